package core

import (
	"sync/atomic"
	"time"
)

// Mine searches for a nonce against tip+txs that meets difficulty (spec
// §4.4). epoch is the node's monotonically increasing chain-epoch counter;
// startEpoch is its value when the search began. The search checks the
// epoch every iteration and aborts with MiningPreempted the moment it
// changes — i.e. a block was applied or the chain was replaced underneath
// this search. The
// timestamp is fixed once at the start of the search and never touched
// again, matching the teacher's PoW loop shape in core/consensus.go
// (narrowed here from the hybrid PoH+PoS+PoW scheme to a single-difficulty
// search, and from ctx.Done() cancellation to an atomic epoch check).
func Mine(tip *Block, txs []*Transaction, difficulty int, epoch *atomic.Uint64, startEpoch uint64) (*Block, error) {
	b := &Block{
		Index:        tip.Index + 1,
		Timestamp:    time.Now().UnixMilli(),
		Transactions: txs,
		PreviousHash: tip.Hash,
		Nonce:        0,
	}
	b.MerkleRoot = b.computeMerkleRoot().Hex()

	for {
		if epoch.Load() != startEpoch {
			return nil, newErr(ErrMiningPreempted, "chain tip changed during search", nil)
		}
		hash := b.computeHash().Hex()
		if meetsDifficulty(hash, difficulty) {
			b.Hash = hash
			return b, nil
		}
		b.Nonce++
	}
}
