package rkgrep

import (
	"fmt"
	"math"
)

const (
	// BlockBits is the number of bits per block (one cache line).
	BlockBits = 512
	// BlockWords is the number of uint64s per block.
	BlockWords = BlockBits / 64

	ln2        = 0.6931471805599453
	ln2Squared = 0.4804530139182014

	// DefaultFalsePositiveRate is the target rate used by BuildDocBloom.
	DefaultFalsePositiveRate = 0.01

	// MaxBlocks is the largest filter this package allocates (16 GiB). It is
	// a sanity bound on the request, not a check of available memory: a
	// filter under the bound can still exhaust the machine.
	MaxBlocks = uint64(1) << 28
)

// primePartitions maps k to k distinct partition sizes summing to BlockBits.
// Reducing one 32-bit hash modulo each size yields k independent probe
// positions. Even k uses primes only; odd k needs one even filler because an
// odd count of odd numbers cannot sum to 512.
var primePartitions = map[uint32][]uint32{
	3:  {167, 173, 172},
	4:  {109, 127, 137, 139},
	5:  {97, 101, 103, 109, 102},
	6:  {61, 79, 83, 89, 97, 103},
	7:  {61, 67, 71, 79, 83, 89, 62},
	8:  {37, 47, 53, 61, 67, 71, 79, 97},
	9:  {41, 43, 47, 53, 59, 67, 71, 73, 58},
	10: {31, 37, 41, 43, 47, 53, 59, 61, 67, 73},
	11: {29, 31, 37, 41, 43, 44, 47, 53, 59, 61, 67},
	12: {17, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 71},
	13: {17, 19, 23, 29, 31, 37, 41, 43, 47, 52, 53, 59, 61},
	14: {11, 13, 17, 19, 23, 29, 31, 37, 41, 47, 53, 59, 61, 71},
}

// OptimalParams sizes a filter for expectedItems values at fpRate. It returns
// the block count, the probe count k (clamped to [3, 14]) and the ideal bits
// per value.
func OptimalParams(expectedItems uint64, fpRate float64) (numBlocks uint64, k uint32, bitsPerItem float64) {
	expectedItems = max(expectedItems, 1)
	switch {
	case fpRate <= 0:
		fpRate = 0.0001
	case fpRate >= 1:
		fpRate = 0.99
	}

	// m/n = -ln(p) / ln(2)^2
	bitsPerItem = -math.Log(fpRate) / ln2Squared
	numBlocks = uint64(math.Ceil(float64(expectedItems) * bitsPerItem / BlockBits))

	// k = (m/n) ln 2, using the m we actually got after rounding up to blocks.
	actual := float64(numBlocks) * BlockBits / float64(expectedItems)
	k = uint32(math.Round(actual * ln2))
	k = min(max(k, 3), 14)

	return numBlocks, k, bitsPerItem
}

// checkedParams is OptimalParams refusing sizes above MaxBlocks.
func checkedParams(expectedItems uint64, fpRate float64) (numBlocks uint64, k uint32, err error) {
	numBlocks, k, _ = OptimalParams(expectedItems, fpRate)
	if numBlocks > MaxBlocks {
		return 0, 0, fmt.Errorf("%w: %d items at rate %g need %d blocks (max %d)",
			ErrAllocation, expectedItems, fpRate, numBlocks, MaxBlocks)
	}
	return numBlocks, k, nil
}

// GetPrimePartition returns the partition sizes for k, or nil if k is not
// supported.
func GetPrimePartition(k uint32) []uint32 {
	return primePartitions[k]
}

// ComputeOffsets returns the first bit of each partition within a block.
func ComputeOffsets(primes []uint32) []uint32 {
	offsets := make([]uint32, len(primes))
	var next uint32
	for i, p := range primes {
		offsets[i] = next
		next += p
	}
	return offsets
}

// EstimateFalsePositiveRate returns (1 - e^(-kn/m))^k for m bits, k probes
// and n values added.
func EstimateFalsePositiveRate(numBlocks uint64, k uint32, itemsAdded uint64) float64 {
	m := float64(numBlocks) * BlockBits
	n := float64(itemsAdded)
	if m == 0 || n == 0 {
		return 0
	}

	kf := float64(k)
	return math.Pow(1-math.Exp(-kf*n/m), kf)
}
