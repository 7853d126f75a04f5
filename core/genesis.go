package core

// NewGenesisBlock returns the canonical block 0: fixed fields, empty
// transaction list (spec §3). Every node must derive the identical genesis
// hash, so the timestamp and nonce are fixed constants rather than
// wall-clock/search-derived values.
func NewGenesisBlock() *Block {
	b := &Block{
		Index:        0,
		Timestamp:    0,
		Transactions: []*Transaction{},
		PreviousHash: "0",
		Nonce:        0,
	}
	b.MerkleRoot = b.computeMerkleRoot().Hex()
	b.Hash = b.computeHash().Hex()
	return b
}

// isCanonicalGenesis reports whether b is bit-for-bit the canonical genesis
// block, used by validate_chain (spec §4.5).
func isCanonicalGenesis(b *Block) bool {
	if b == nil {
		return false
	}
	g := NewGenesisBlock()
	return b.Index == g.Index &&
		b.Timestamp == g.Timestamp &&
		b.PreviousHash == g.PreviousHash &&
		b.Nonce == g.Nonce &&
		b.MerkleRoot == g.MerkleRoot &&
		b.Hash == g.Hash &&
		len(b.Transactions) == 0
}
