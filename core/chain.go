package core

import (
	"fmt"
	"time"
)

// Chain is the append-only block vector plus the balance map and contract
// registry it determines (spec §3/§4.5). It carries no internal lock: the
// node orchestrator (node.go) serializes every mutation behind one guard,
// matching the "single logical value" design note in spec §9. Grounded on
// the shape of the teacher's Ledger (core/ledger.go) with WAL/snapshot
// persistence dropped — state here is in-memory only, rebuilt by replay.
type Chain struct {
	Blocks     []*Block
	Balances   map[Address]int64
	Contracts  *ContractRegistry
	Difficulty int
	receipts   map[string]*Receipt
}

// NewChain builds a fresh chain holding only the canonical genesis block.
func NewChain(difficulty int) *Chain {
	return &Chain{
		Blocks:     []*Block{NewGenesisBlock()},
		Balances:   make(map[Address]int64),
		Contracts:  NewContractRegistry(),
		Difficulty: difficulty,
		receipts:   make(map[string]*Receipt),
	}
}

// Tip returns the last block in the chain.
func (c *Chain) Tip() *Block { return c.Blocks[len(c.Blocks)-1] }

// GetBlock looks up a block by index.
func (c *Chain) GetBlock(index uint64) (*Block, bool) {
	if index >= uint64(len(c.Blocks)) {
		return nil, false
	}
	return c.Blocks[index], true
}

// ReceiptFor returns the VM receipt recorded for a call transaction's id, if
// any block applied so far contained one.
func (c *Chain) ReceiptFor(txID string) (*Receipt, bool) {
	r, ok := c.receipts[txID]
	return r, ok
}

// Balance returns addr's balance, defaulting to 0 (spec §6 GET /api/balance).
func (c *Chain) Balance(addr Address) int64 { return c.Balances[addr] }

// TxProof locates txID in the chain and returns the block it was mined in
// plus a Merkle inclusion proof against that block's stored merkle_root,
// supplementing spec §6 with a light-client-style proof endpoint.
func (c *Chain) TxProof(txID string) (block *Block, proof []ProofStep, err error) {
	for _, b := range c.Blocks {
		for i, tx := range b.Transactions {
			if tx.ID != txID {
				continue
			}
			hashes := make([]Hash, len(b.Transactions))
			for j, t := range b.Transactions {
				hashes[j] = t.CanonicalHash()
			}
			steps, _, perr := MerkleProof(hashes, i)
			if perr != nil {
				return nil, nil, newErr(ErrMalformed, "failed to build merkle proof", perr)
			}
			return b, steps, nil
		}
	}
	return nil, nil, newErr(ErrMalformed, "transaction not found in any applied block", nil)
}

// ApplyBlock validates b against the current tip and, on success, mutates
// the chain's balances and contract registry (spec §4.5 apply_block).
func (c *Chain) ApplyBlock(b *Block) error {
	if err := applyBlockToState(b, c.Tip(), c.Difficulty, c.Balances, c.Contracts, c.receipts); err != nil {
		return err
	}
	c.Blocks = append(c.Blocks, b)
	return nil
}

// ValidateChain replays blocks from genesis on fresh, ephemeral state and
// returns true iff every block applies cleanly and block 0 is the canonical
// genesis (spec §4.5 validate_chain).
func (c *Chain) ValidateChain(blocks []*Block) bool {
	if len(blocks) == 0 || !isCanonicalGenesis(blocks[0]) {
		return false
	}
	balances := make(map[Address]int64)
	contracts := NewContractRegistry()
	receipts := make(map[string]*Receipt)

	prev := blocks[0]
	for _, b := range blocks[1:] {
		if err := applyBlockToState(b, prev, c.Difficulty, balances, contracts, receipts); err != nil {
			return false
		}
		prev = b
	}
	return true
}

// ReplaceChain accepts candidate iff it is strictly longer than the current
// chain and validates cleanly, rebuilding balances and contracts by full
// replay on acceptance (spec §4.5 replace_chain). Equal-length chains are
// never swapped — first-seen wins.
func (c *Chain) ReplaceChain(candidate []*Block) error {
	if len(candidate) <= len(c.Blocks) {
		return newErr(ErrChainRejected, "candidate chain is not longer than the current chain", nil)
	}
	if !c.ValidateChain(candidate) {
		return newErr(ErrChainRejected, "candidate chain failed validation", nil)
	}

	balances := make(map[Address]int64)
	contracts := NewContractRegistry()
	receipts := make(map[string]*Receipt)
	prev := candidate[0]
	for _, b := range candidate[1:] {
		if err := applyBlockToState(b, prev, c.Difficulty, balances, contracts, receipts); err != nil {
			return newErr(ErrChainRejected, "candidate chain failed replay", err)
		}
		prev = b
	}

	c.Blocks = candidate
	c.Balances = balances
	c.Contracts = contracts
	c.receipts = receipts
	return nil
}

// applyBlockToState is the structural + per-transaction validation/apply
// step shared by ApplyBlock, ValidateChain and ReplaceChain's replay.
func applyBlockToState(b, prev *Block, difficulty int, balances map[Address]int64, contracts *ContractRegistry, receipts map[string]*Receipt) error {
	if b.Index != prev.Index+1 {
		return newErr(ErrBadIndex, fmt.Sprintf("expected index %d, got %d", prev.Index+1, b.Index), nil)
	}
	if b.PreviousHash != prev.Hash {
		return newErr(ErrBadPrevHash, "previous_hash does not match tip", nil)
	}
	if b.Timestamp > time.Now().UnixMilli()+MaxBlockTimestampFwd {
		return newErr(ErrBlockTimestamp, "block timestamp too far in the future", nil)
	}
	if err := b.verifyHash(difficulty); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := applyTx(tx, balances, contracts, receipts); err != nil {
			return err
		}
	}
	return nil
}

// applyTx verifies, transfers, and (for contract payloads) dispatches a
// single transaction's effects. A signature failure invalidates the
// containing block; an InsufficientFunds condition only reverts that
// transaction's transfer and lets the block continue (spec §4.5, scenario
// S3 in spec §8).
func applyTx(tx *Transaction, balances map[Address]int64, contracts *ContractRegistry, receipts map[string]*Receipt) error {
	if !tx.IsSystem() {
		if err := Verify(tx); err != nil {
			return err
		}
	}

	sender := Address(tx.Sender)
	recipient := Address(tx.Recipient)
	amount := int64(tx.Amount)

	senderBefore := balances[sender]
	recipientBefore := balances[recipient]
	balances[sender] = senderBefore - amount
	balances[recipient] = recipientBefore + amount

	if !tx.IsSystem() && balances[sender] < 0 {
		balances[sender] = senderBefore
		balances[recipient] = recipientBefore
		return nil
	}

	if tx.ContractPayload == nil {
		return nil
	}

	if tx.ContractPayload.Deploy != "" {
		// A bad source fails only this transaction's contract effect; the
		// transfer above still stands.
		contracts.Deploy(sender, tx.ContractPayload.Deploy, tx.Timestamp)
		return nil
	}

	call := tx.ContractPayload.Call
	contract, ok := contracts.Get(Address(call.Address))
	if !ok {
		receipts[tx.ID] = &Receipt{Success: false, Error: string(ErrMalformed)}
		return nil
	}

	shadow := make(map[uint64]int64, len(contract.Storage))
	for k, v := range contract.Storage {
		shadow[k] = v
	}
	receipt := Execute(contract.Code, call.Args, shadow)
	if receipt.Success {
		contract.Storage = shadow
	}
	receipts[tx.ID] = receipt
	return nil
}
