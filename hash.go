package rkgrep

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// mixValue runs a Rabin-Karp hash through xxh3. Window hashes only occupy
// the low 30 bits and are far from uniform, so they cannot index blocks
// directly.
func mixValue(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return xxh3.Hash(buf[:])
}

// hashValue mixes v and returns the block index (upper 32 bits) and
// intra-block hash (lower 32 bits).
func hashValue(v uint64, numBlocks uint64) (blockIdx uint64, intraHash uint32) {
	return hashSplit(mixValue(v), numBlocks)
}

// hashSplit splits a 64-bit hash into block index and intra-block hash.
func hashSplit(h uint64, numBlocks uint64) (blockIdx uint64, intraHash uint32) {
	// Upper 32 bits pick the block, lower 32 bits drive the probes.
	blockIdx = (h >> 32) % numBlocks
	intraHash = uint32(h)
	return
}
