package rkgrep

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
)

// hashSet is the filter behind a DocBloom.
type hashSet interface {
	AddHash(v uint64)
	TestHash(v uint64) bool
	Count() uint64
	EstimatedFalsePositiveRate() float64
	MarshalBinary() ([]byte, error)
}

var (
	_ hashSet = (*Filter)(nil)
	_ hashSet = (*AtomicFilter)(nil)
)

// DocBloom holds the hash of every length-Window() window of one document.
// It is a Prefilter for patterns of exactly that length: MatchWithFilter
// scans the document anyway for patterns of any other length.
//
// A DocBloom is read-only once built and may be queried concurrently.
type DocBloom struct {
	set     hashSet
	window  int
	windows int
}

// BuildDocBloom builds a DocBloom for doc over windows of length m, using a
// filter sized for capacity values at DefaultFalsePositiveRate. A capacity of
// zero sizes the filter for the number of windows in doc.
//
// When doc is shorter than m (or m <= 0) nothing is inserted and the filter
// reports every hash absent.
func BuildDocBloom(doc []byte, m int, capacity uint64) (*DocBloom, error) {
	return BuildDocBloomWithRate(doc, m, capacity, DefaultFalsePositiveRate)
}

// BuildDocBloomWithRate is BuildDocBloom with an explicit target false
// positive rate.
func BuildDocBloomWithRate(doc []byte, m int, capacity uint64, fpRate float64) (*DocBloom, error) {
	f, err := NewFilter(filterCapacity(doc, m, capacity), fpRate)
	if err != nil {
		return nil, err
	}

	b := &DocBloom{set: f, window: max(m, 0)}
	for _, h := range WindowHashes(doc, m) {
		f.AddHash(h)
		b.windows++
	}
	return b, nil
}

// BuildDocBloomParallel builds the same DocBloom as BuildDocBloom using
// workers goroutines, each hashing a contiguous run of windows with its own
// rolling state. workers <= 0 means GOMAXPROCS.
func BuildDocBloomParallel(doc []byte, m int, capacity uint64, workers int) (*DocBloom, error) {
	return BuildDocBloomParallelWithRate(doc, m, capacity, workers, DefaultFalsePositiveRate)
}

// BuildDocBloomParallelWithRate is BuildDocBloomParallel with an explicit
// target false positive rate.
func BuildDocBloomParallelWithRate(doc []byte, m int, capacity uint64, workers int, fpRate float64) (*DocBloom, error) {
	f, err := NewAtomicFilter(filterCapacity(doc, m, capacity), fpRate)
	if err != nil {
		return nil, err
	}

	b := &DocBloom{set: f, window: max(m, 0)}
	n := windowCount(len(doc), m)
	if n == 0 {
		return b, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			// Windows [start, end) need doc[start : end-1+m].
			for _, h := range WindowHashes(doc[start:end-1+m], m) {
				f.AddHash(h)
			}
		}(start, end)
	}
	wg.Wait()

	b.windows = n
	return b, nil
}

func windowCount(n, m int) int {
	if m <= 0 || n < m {
		return 0
	}
	return n - m + 1
}

func filterCapacity(doc []byte, m int, capacity uint64) uint64 {
	if capacity > 0 {
		return capacity
	}
	return uint64(max(windowCount(len(doc), m), 1))
}

// TestHash reports whether some window may hash to h.
//
// A nil DocBloom rules nothing out.
func (b *DocBloom) TestHash(h uint64) bool {
	if b == nil {
		return true
	}
	if b.windows == 0 {
		return false
	}
	return b.set.TestHash(h)
}

// Window returns the window length the filter was built for.
// A nil DocBloom has no window, so MatchWithFilter scans the document.
func (b *DocBloom) Window() int {
	if b == nil {
		return 0
	}
	return b.window
}

// Windows returns the number of windows inserted.
func (b *DocBloom) Windows() int {
	if b == nil {
		return 0
	}
	return b.windows
}

// EstimatedFalsePositiveRate estimates the chance that TestHash answers true
// for a hash no window has.
func (b *DocBloom) EstimatedFalsePositiveRate() float64 {
	if b == nil {
		return 1
	}
	if b.windows == 0 {
		return 0
	}
	return b.set.EstimatedFalsePositiveRate()
}

const (
	docBloomVersion byte = 1

	// Version (1) + Window (8) + Windows (8)
	docBloomHeaderSize = 17
)

// MarshalBinary serializes the window metadata followed by the filter in
// the Filter.MarshalBinary format.
func (b *DocBloom) MarshalBinary() ([]byte, error) {
	body, err := b.set.MarshalBinary()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, docBloomHeaderSize, docBloomHeaderSize+len(body))
	buf[0] = docBloomVersion
	binary.LittleEndian.PutUint64(buf[1:9], uint64(b.window))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(b.windows))
	return append(buf, body...), nil
}

// UnmarshalDocBloom decodes a DocBloom written by DocBloom.MarshalBinary.
// The result is backed by a Filter whatever the original was built with.
func UnmarshalDocBloom(data []byte) (*DocBloom, error) {
	if len(data) < docBloomHeaderSize {
		return nil, fmt.Errorf("%w: data too short (got %d bytes, need at least %d)", ErrInvalidData, len(data), docBloomHeaderSize)
	}
	if data[0] != docBloomVersion {
		return nil, fmt.Errorf("%w: got version %d, expected %d", ErrUnsupportedVersion, data[0], docBloomVersion)
	}

	window := binary.LittleEndian.Uint64(data[1:9])
	windows := binary.LittleEndian.Uint64(data[9:17])
	const maxInt = uint64(int(^uint(0) >> 1))
	if window > maxInt || windows > maxInt {
		return nil, fmt.Errorf("%w: window=%d windows=%d", ErrInvalidLength, window, windows)
	}
	if windows > 0 && window == 0 {
		return nil, fmt.Errorf("%w: %d windows of length 0", ErrInvalidLength, windows)
	}

	f, err := UnmarshalFilter(data[docBloomHeaderSize:])
	if err != nil {
		return nil, err
	}
	return &DocBloom{set: f, window: int(window), windows: int(windows)}, nil
}
