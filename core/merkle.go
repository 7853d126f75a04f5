package core

import "crypto/sha256"

// hashBytes is the SHA-256 of data, typed as Hash.
func hashBytes(data []byte) Hash { return sha256.Sum256(data) }

// MerkleRoot computes the merkle root over a list of transaction canonical
// hashes (spec §3/§4.1): recursively pairwise-hash the list, duplicating the
// last element when a level has an odd count. An empty list hashes to
// SHA-256 of the empty string. Unlike a leaf-hashing tree, the inputs here
// are already the transactions' canonical hashes — they are not re-hashed
// before the first level.
func MerkleRoot(hashes []Hash) Hash {
	if len(hashes) == 0 {
		return sha256.Sum256(nil)
	}

	level := make([][32]byte, len(hashes))
	for i, h := range hashes {
		level[i] = h
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next[i/2] = sha256.Sum256(buf)
		}
		level = next
	}
	return level[0]
}
