package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Block is the chain's unit of append (spec §3). Field names and JSON
// ordering are part of the cross-node wire format (spec §6).
type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	PreviousHash string         `json:"previous_hash"`
	Nonce        uint64         `json:"nonce"`
	MerkleRoot   string         `json:"merkle_root"`
	Hash         string         `json:"hash"`
}

// computeMerkleRoot derives the merkle root over this block's transactions'
// canonical hashes (spec §3/§4.1).
func (b *Block) computeMerkleRoot() Hash {
	hashes := make([]Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.CanonicalHash()
	}
	return MerkleRoot(hashes)
}

// computeHash is SHA-256 over index|timestamp|previous_hash|nonce|merkle_root
// (spec §3). It does not read or set b.Hash — callers store the result.
func (b *Block) computeHash() Hash {
	s := fmt.Sprintf("%d|%d|%s|%d|%s", b.Index, b.Timestamp, b.PreviousHash, b.Nonce, b.MerkleRoot)
	return sha256.Sum256([]byte(s))
}

// meetsDifficulty reports whether hexHash has at least difficulty leading
// hex '0' characters.
func meetsDifficulty(hexHash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hexHash) < difficulty {
		return false
	}
	return strings.Count(hexHash[:difficulty], "0") == difficulty
}

// verifyHash recomputes both the merkle root and the block hash and checks
// them against the stored fields, plus the difficulty invariant (spec §4.5
// structural checks, invariant 1 in spec §8).
func (b *Block) verifyHash(difficulty int) error {
	gotMerkle := b.computeMerkleRoot().Hex()
	if gotMerkle != b.MerkleRoot {
		return newErr(ErrBadMerkle, "recomputed merkle root does not match stored root", nil)
	}
	gotHash := b.computeHash().Hex()
	if gotHash != b.Hash {
		return newErr(ErrBadHash, "recomputed block hash does not match stored hash", nil)
	}
	if !meetsDifficulty(b.Hash, difficulty) {
		return newErr(ErrDifficultyNotMet, fmt.Sprintf("hash %s does not meet difficulty %d", b.Hash, difficulty), nil)
	}
	return nil
}

// containsTxID reports whether id appears among b's transactions. The
// mempool's RemoveIncluded (spec §4.3) does not call it; it builds its own
// id set.
func (b *Block) containsTxID(id string) bool {
	for _, tx := range b.Transactions {
		if tx.ID == id {
			return true
		}
	}
	return false
}
