package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Contract is a deployed contract's code and persistent storage (spec §3).
// Storage mutates on call transactions within the block-application path
// and is never destroyed.
type Contract struct {
	Address Address
	Code    []Instruction
	Storage map[uint64]int64
}

// deriveContractAddress derives a contract's address from its deployer and
// deploy timestamp (spec §3): SHA-256 of deployer-address|deploy-timestamp,
// truncated the same way wallet addresses are.
func deriveContractAddress(deployer Address, timestamp int64) Address {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", deployer, timestamp)))
	return Address("0x" + hex.EncodeToString(sum[:])[:40])
}

// ContractRegistry owns contract code and storage independently of the
// chain (spec §3 Ownership). Grounded on the shape of the teacher's
// ContractRegistry in core/common_structs.go, narrowed to the spec's
// address/code/storage triple with no owner/pause metadata.
type ContractRegistry struct {
	contracts map[Address]*Contract
}

func NewContractRegistry() *ContractRegistry {
	return &ContractRegistry{contracts: make(map[Address]*Contract)}
}

// Deploy compiles source, derives the contract's address, and registers it.
// Not concurrency-safe on its own — callers hold the chain's guard.
func (r *ContractRegistry) Deploy(deployer Address, source string, timestamp int64) (*Contract, error) {
	code, err := Compile(source)
	if err != nil {
		return nil, err
	}
	addr := deriveContractAddress(deployer, timestamp)
	c := &Contract{Address: addr, Code: code, Storage: make(map[uint64]int64)}
	r.contracts[addr] = c
	return c, nil
}

// Get looks up a contract by address.
func (r *ContractRegistry) Get(addr Address) (*Contract, bool) {
	c, ok := r.contracts[addr]
	return c, ok
}

// Clone deep-copies the registry. ValidateChain and ReplaceChain do not use
// it: they replay into a fresh NewContractRegistry.
func (r *ContractRegistry) Clone() *ContractRegistry {
	out := NewContractRegistry()
	for addr, c := range r.contracts {
		storage := make(map[uint64]int64, len(c.Storage))
		for k, v := range c.Storage {
			storage[k] = v
		}
		code := make([]Instruction, len(c.Code))
		copy(code, c.Code)
		out.contracts[addr] = &Contract{Address: addr, Code: code, Storage: storage}
	}
	return out
}
