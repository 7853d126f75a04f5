package core

import "encoding/hex"

// SystemSender is the fixed sender string used by coinbase/system
// transactions. It bears no signature and is only ever emitted internally by
// the miner.
const SystemSender = "system"

// Hash is a 32-byte SHA-256 digest. All hashes exposed to callers are
// rendered as lowercase hex via Hex().
type Hash [32]byte

// Hex renders the digest as lowercase hex, the canonical representation used
// throughout the wire format and REST surface.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// Address identifies a wallet or contract account. Wallet addresses are
// "0x" + the first 40 hex chars of SHA-256(pubkey); contract addresses are
// derived similarly from the deploying transaction (see contracts.go).
type Address string

// Opcode identifies a single VM instruction (spec §4.6).
type Opcode byte

const (
	OpPush Opcode = iota
	OpPop
	OpDup
	OpSwap
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpLt
	OpGt
	OpNot
	OpJump
	OpJumpIf
	OpStore
	OpLoad
	OpLog
	OpHalt
)

// opcodeNames maps assembler mnemonics to opcodes for Compile.
var opcodeNames = map[string]Opcode{
	"PUSH":   OpPush,
	"POP":    OpPop,
	"DUP":    OpDup,
	"SWAP":   OpSwap,
	"ADD":    OpAdd,
	"SUB":    OpSub,
	"MUL":    OpMul,
	"DIV":    OpDiv,
	"MOD":    OpMod,
	"EQ":     OpEq,
	"LT":     OpLt,
	"GT":     OpGt,
	"NOT":    OpNot,
	"JUMP":   OpJump,
	"JUMPIF": OpJumpIf,
	"STORE":  OpStore,
	"LOAD":   OpLoad,
	"LOG":    OpLog,
	"HALT":   OpHalt,
}

// Default tunables (spec §6 configuration table); the node wires these in
// from pkg/config rather than consulting globals at runtime (spec §9).
const (
	DefaultAPIPort       = 8080
	DefaultP2PPort       = 0
	DefaultDifficulty    = 2
	DefaultMiningReward  = 50
	DefaultMempoolMax    = 5000
	InitialGas           = 100_000
	MaxStackDepth        = 1024
	MaxBlockTimestampFwd = 2 * 60 * 1000 // ms, spec §9 open question resolution
)
