package rkgrep

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sync/atomic"
	"unsafe"
)

// cacheLineSize is the size of a CPU cache line in bytes.
const cacheLineSize = 64

// Filter is a bloom filter over Rabin-Karp hash values. It is not safe for
// concurrent mutation; concurrent TestHash calls on a filter nobody is
// adding to are fine.
//
// Memory is split into 512-bit blocks, one cache line each. A value is mixed
// once with xxh3; the upper half of the mix picks a block and the lower half
// is reduced modulo k distinct partition sizes to pick one bit per partition.
type Filter struct {
	raw       []byte   // backing allocation, keeps blocks alive
	blocks    []uint64 // BlockWords words per block, cache-line aligned
	numBlocks uint64
	k         uint32
	primes    []uint32 // partition sizes within a block
	offsets   []uint32 // partition start bits within a block
	count     uint64   // values added
}

// NewFilter creates a filter sized for expectedItems values at the given
// false positive rate. It fails with ErrAllocation when that size exceeds
// MaxBlocks. Smaller requests are allocated directly, and running out of
// memory for them is fatal to the process as with any Go allocation.
func NewFilter(expectedItems uint64, fpRate float64) (*Filter, error) {
	numBlocks, k, err := checkedParams(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewFilterWithParams(numBlocks, k)
}

// NewFilterWithParams creates a filter with numBlocks 512-bit blocks and k
// probes per value. Zero blocks means one; an unsupported k falls back to 7.
func NewFilterWithParams(numBlocks uint64, k uint32) (*Filter, error) {
	numBlocks, k, primes, err := normalizeParams(numBlocks, k)
	if err != nil {
		return nil, err
	}

	raw, blocks := makeAlignedUint64Slice(int(numBlocks * BlockWords))

	return &Filter{
		raw:       raw,
		blocks:    blocks,
		numBlocks: numBlocks,
		k:         k,
		primes:    primes,
		offsets:   ComputeOffsets(primes),
	}, nil
}

func normalizeParams(numBlocks uint64, k uint32) (uint64, uint32, []uint32, error) {
	if numBlocks == 0 {
		numBlocks = 1
	}
	if numBlocks > MaxBlocks {
		return 0, 0, nil, fmt.Errorf("%w: %d blocks requested (max %d)", ErrAllocation, numBlocks, MaxBlocks)
	}

	primes := GetPrimePartition(k)
	if primes == nil {
		k = 7
		primes = GetPrimePartition(k)
	}
	return numBlocks, k, primes, nil
}

// makeAlignedUint64Slice allocates a cache-line aligned slice of uint64.
// Returns the raw byte slice (to keep alive for GC) and the aligned uint64 slice.
func makeAlignedUint64Slice(n int) ([]byte, []uint64) {
	raw := make([]byte, n*8+cacheLineSize-1)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (cacheLineSize - int(addr%cacheLineSize)) % cacheLineSize
	aligned := unsafe.Slice((*uint64)(unsafe.Pointer(&raw[offset])), n)
	return raw, aligned
}

// AddHash inserts a hash value.
func (f *Filter) AddHash(v uint64) {
	blockIdx, intraHash := hashValue(v, f.numBlocks)
	base := blockIdx * BlockWords

	for i := uint32(0); i < f.k; i++ {
		bitPos := f.offsets[i] + (intraHash % f.primes[i])
		f.blocks[base+uint64(bitPos/64)] |= 1 << (bitPos % 64)
	}

	f.count++
}

// TestHash reports whether v may have been added. false is definitive.
func (f *Filter) TestHash(v uint64) bool {
	blockIdx, intraHash := hashValue(v, f.numBlocks)
	base := blockIdx * BlockWords

	for i := uint32(0); i < f.k; i++ {
		bitPos := f.offsets[i] + (intraHash % f.primes[i])
		if f.blocks[base+uint64(bitPos/64)]&(1<<(bitPos%64)) == 0 {
			return false
		}
	}
	return true
}

// Cap returns the capacity of the filter in bits.
func (f *Filter) Cap() uint64 {
	return f.numBlocks * BlockBits
}

// K returns the number of probes per value.
func (f *Filter) K() uint32 {
	return f.k
}

// Count returns the number of AddHash calls since creation.
func (f *Filter) Count() uint64 {
	return f.count
}

// NumBlocks returns the number of 512-bit blocks in the filter.
func (f *Filter) NumBlocks() uint64 {
	return f.numBlocks
}

// EstimatedFillRatio estimates the proportion of bits that are set.
func (f *Filter) EstimatedFillRatio() float64 {
	var setBits uint64
	for _, word := range f.blocks {
		setBits += uint64(bits.OnesCount64(word))
	}
	return float64(setBits) / float64(f.numBlocks*BlockBits)
}

// EstimatedFalsePositiveRate estimates the current false positive rate
// from the number of values added.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.numBlocks, f.k, f.count)
}

const (
	filterVersion byte = 1

	// Version (1) + K (4) + NumBlocks (8) + Count (8)
	filterHeaderSize = 21
)

// MarshalBinary serializes the filter:
//   - Version (1 byte)
//   - K (4 bytes, little-endian)
//   - NumBlocks (8 bytes, little-endian)
//   - Count (8 bytes, little-endian)
//   - Blocks (NumBlocks * 64 bytes, little-endian words)
//
// Primes and offsets are derived from K on load.
func (f *Filter) MarshalBinary() ([]byte, error) {
	return marshalFilter(f.k, f.numBlocks, f.count, func(i int) uint64 { return f.blocks[i] }), nil
}

func marshalFilter(k uint32, numBlocks, count uint64, word func(int) uint64) []byte {
	n := int(numBlocks * BlockWords)
	buf := make([]byte, filterHeaderSize+n*8)

	buf[0] = filterVersion
	binary.LittleEndian.PutUint32(buf[1:5], k)
	binary.LittleEndian.PutUint64(buf[5:13], numBlocks)
	binary.LittleEndian.PutUint64(buf[13:21], count)

	off := filterHeaderSize
	for i := range n {
		binary.LittleEndian.PutUint64(buf[off:off+8], word(i))
		off += 8
	}
	return buf
}

// UnmarshalFilter decodes a filter written by Filter.MarshalBinary or
// AtomicFilter.MarshalBinary.
func UnmarshalFilter(data []byte) (*Filter, error) {
	if len(data) < filterHeaderSize {
		return nil, fmt.Errorf("%w: data too short (got %d bytes, need at least %d)", ErrInvalidData, len(data), filterHeaderSize)
	}

	if data[0] != filterVersion {
		return nil, fmt.Errorf("%w: got version %d, expected %d", ErrUnsupportedVersion, data[0], filterVersion)
	}

	k := binary.LittleEndian.Uint32(data[1:5])
	numBlocks := binary.LittleEndian.Uint64(data[5:13])
	count := binary.LittleEndian.Uint64(data[13:21])

	primes := GetPrimePartition(k)
	if primes == nil {
		return nil, fmt.Errorf("%w: k=%d is not supported (valid range: 3-14)", ErrInvalidK, k)
	}

	// Bounding numBlocks first keeps the length arithmetic below from overflowing.
	if numBlocks == 0 {
		return nil, fmt.Errorf("%w: numBlocks cannot be zero", ErrInvalidData)
	}
	if numBlocks > MaxBlocks {
		return nil, fmt.Errorf("%w: numBlocks too large (%d)", ErrInvalidData, numBlocks)
	}

	want := filterHeaderSize + numBlocks*BlockWords*8
	if uint64(len(data)) != want {
		return nil, fmt.Errorf("%w: data length mismatch (got %d bytes, expected %d)", ErrInvalidData, len(data), want)
	}

	raw, blocks := makeAlignedUint64Slice(int(numBlocks * BlockWords))
	off := filterHeaderSize
	for i := range blocks {
		blocks[i] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}

	return &Filter{
		raw:       raw,
		blocks:    blocks,
		numBlocks: numBlocks,
		k:         k,
		primes:    primes,
		offsets:   ComputeOffsets(primes),
		count:     count,
	}, nil
}

// AtomicFilter is a Filter whose words are updated atomically, so AddHash
// and TestHash may run from many goroutines at once. It backs
// BuildDocBloomParallel.
type AtomicFilter struct {
	raw       []byte
	blocks    []atomic.Uint64
	numBlocks uint64
	k         uint32
	primes    []uint32
	offsets   []uint32
	count     atomic.Uint64
}

// NewAtomicFilter is NewFilter for the concurrent variant.
func NewAtomicFilter(expectedItems uint64, fpRate float64) (*AtomicFilter, error) {
	numBlocks, k, err := checkedParams(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewAtomicFilterWithParams(numBlocks, k)
}

// NewAtomicFilterWithParams is NewFilterWithParams for the concurrent variant.
func NewAtomicFilterWithParams(numBlocks uint64, k uint32) (*AtomicFilter, error) {
	numBlocks, k, primes, err := normalizeParams(numBlocks, k)
	if err != nil {
		return nil, err
	}

	raw, blocks := makeAlignedAtomicUint64Slice(int(numBlocks * BlockWords))

	return &AtomicFilter{
		raw:       raw,
		blocks:    blocks,
		numBlocks: numBlocks,
		k:         k,
		primes:    primes,
		offsets:   ComputeOffsets(primes),
	}, nil
}

// makeAlignedAtomicUint64Slice allocates a cache-line aligned slice of atomic.Uint64.
func makeAlignedAtomicUint64Slice(n int) ([]byte, []atomic.Uint64) {
	const atomicSize = 8 // same as uint64
	raw := make([]byte, n*atomicSize+cacheLineSize-1)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (cacheLineSize - int(addr%cacheLineSize)) % cacheLineSize
	aligned := unsafe.Slice((*atomic.Uint64)(unsafe.Pointer(&raw[offset])), n)
	return raw, aligned
}

// AddHash inserts a hash value atomically.
func (f *AtomicFilter) AddHash(v uint64) {
	blockIdx, intraHash := hashValue(v, f.numBlocks)
	base := blockIdx * BlockWords

	for i := uint32(0); i < f.k; i++ {
		bitPos := f.offsets[i] + (intraHash % f.primes[i])
		f.blocks[base+uint64(bitPos/64)].Or(1 << (bitPos % 64))
	}

	f.count.Add(1)
}

// TestHash reports whether v may have been added.
func (f *AtomicFilter) TestHash(v uint64) bool {
	blockIdx, intraHash := hashValue(v, f.numBlocks)
	base := blockIdx * BlockWords

	for i := uint32(0); i < f.k; i++ {
		bitPos := f.offsets[i] + (intraHash % f.primes[i])
		if f.blocks[base+uint64(bitPos/64)].Load()&(1<<(bitPos%64)) == 0 {
			return false
		}
	}
	return true
}

// Cap returns the capacity of the filter in bits.
func (f *AtomicFilter) Cap() uint64 {
	return f.numBlocks * BlockBits
}

// K returns the number of probes per value.
func (f *AtomicFilter) K() uint32 {
	return f.k
}

// Count returns the number of AddHash calls since creation.
func (f *AtomicFilter) Count() uint64 {
	return f.count.Load()
}

// NumBlocks returns the number of 512-bit blocks in the filter.
func (f *AtomicFilter) NumBlocks() uint64 {
	return f.numBlocks
}

// EstimatedFillRatio estimates the proportion of bits that are set.
func (f *AtomicFilter) EstimatedFillRatio() float64 {
	var setBits uint64
	for i := range f.blocks {
		setBits += uint64(bits.OnesCount64(f.blocks[i].Load()))
	}
	return float64(setBits) / float64(f.numBlocks*BlockBits)
}

// EstimatedFalsePositiveRate estimates the current false positive rate.
func (f *AtomicFilter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.numBlocks, f.k, f.count.Load())
}

// MarshalBinary serializes the filter in the Filter format. Concurrent
// AddHash calls may or may not be captured.
func (f *AtomicFilter) MarshalBinary() ([]byte, error) {
	return marshalFilter(f.k, f.numBlocks, f.count.Load(), func(i int) uint64 { return f.blocks[i].Load() }), nil
}
