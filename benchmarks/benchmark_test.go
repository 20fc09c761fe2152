package benchmarks

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	bab "github.com/bits-and-blooms/bloom/v3"
	"github.com/cespare/xxhash/v2"
	"github.com/chmduquesne/rollinghash/rabinkarp64"
	atomicbloom "github.com/ericvolp12/atomic-bloom"
	"github.com/greatroar/blobloom"
	"github.com/jcalabro/rkgrep"
)

const (
	docLen      = 1 << 20
	window      = 16
	benchFPRate = 0.01
)

var (
	doc []byte

	// present patterns are copied out of doc; absent ones use bytes doc
	// never contains.
	present [][]byte
	absent  [][]byte
)

func init() {
	rng := rand.New(rand.NewPCG(1, 2))
	doc = make([]byte, docLen)
	for i := range doc {
		doc[i] = 'a' + byte(rng.UintN(26))
	}

	for range 64 {
		start := rng.IntN(docLen - window)
		present = append(present, doc[start:start+window])

		p := make([]byte, window)
		for i := range p {
			p[i] = 'A' + byte(rng.UintN(26))
		}
		absent = append(absent, p)
	}
}

func key(h uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h)
	return buf[:]
}

// Each adapter turns a third-party filter into an rkgrep.Prefilter keyed on
// window hashes.

type babPrefilter struct{ f *bab.BloomFilter }

func (p babPrefilter) TestHash(h uint64) bool { return p.f.Test(key(h)) }

type atomicBloomPrefilter struct{ f *atomicbloom.BloomFilter }

func (p atomicBloomPrefilter) TestHash(h uint64) bool { return p.f.Test(key(h)) }

// blobloom wants uniformly distributed input; window hashes are not.
type blobloomPrefilter struct{ f *blobloom.Filter }

func (p blobloomPrefilter) TestHash(h uint64) bool { return p.f.Has(xxhash.Sum64(key(h))) }

func buildBitsAndBlooms() rkgrep.Prefilter {
	f := bab.NewWithEstimates(docLen, benchFPRate)
	for _, h := range rkgrep.WindowHashes(doc, window) {
		f.Add(key(h))
	}
	return babPrefilter{f}
}

func buildAtomicBloom() rkgrep.Prefilter {
	f := atomicbloom.NewWithEstimates(docLen, benchFPRate)
	for _, h := range rkgrep.WindowHashes(doc, window) {
		f.Add(key(h))
	}
	return atomicBloomPrefilter{f}
}

func buildBlobloom() rkgrep.Prefilter {
	f := blobloom.NewOptimized(blobloom.Config{
		Capacity: docLen,
		FPRate:   benchFPRate,
	})
	for _, h := range rkgrep.WindowHashes(doc, window) {
		f.Add(xxhash.Sum64(key(h)))
	}
	return blobloomPrefilter{f}
}

func buildDocBloom() rkgrep.Prefilter {
	b, err := rkgrep.BuildDocBloom(doc, window, 0)
	if err != nil {
		panic(err)
	}
	return b
}

func buildDocBloomParallel() rkgrep.Prefilter {
	b, err := rkgrep.BuildDocBloomParallel(doc, window, 0, 0)
	if err != nil {
		panic(err)
	}
	return b
}

var backends = []struct {
	name  string
	build func() rkgrep.Prefilter
}{
	{"DocBloom", buildDocBloom},
	{"DocBloomParallel", buildDocBloomParallel},
	{"BitsAndBlooms", buildBitsAndBlooms},
	{"AtomicBloom", buildAtomicBloom},
	{"Blobloom", buildBlobloom},
}

// ============================================================================
// Building
// ============================================================================

func BenchmarkBuild(b *testing.B) {
	for _, be := range backends {
		b.Run(be.name, func(b *testing.B) {
			b.SetBytes(docLen)
			for range b.N {
				be.build()
			}
		})
	}
}

// ============================================================================
// Matching
// ============================================================================

func BenchmarkMatchExact(b *testing.B) {
	b.SetBytes(docLen)
	for i := range b.N {
		rkgrep.MatchExact(present[i%len(present)], doc)
	}
}

func BenchmarkMatchNaive(b *testing.B) {
	b.SetBytes(docLen)
	for i := range b.N {
		rkgrep.MatchNaive(present[i%len(present)], doc)
	}
}

func BenchmarkMatchWithFilterAbsent(b *testing.B) {
	for _, be := range backends {
		f := be.build()
		b.Run(be.name, func(b *testing.B) {
			for i := range b.N {
				rkgrep.MatchWithFilter(absent[i%len(absent)], doc, f)
			}
		})
	}
}

func BenchmarkMatchWithFilterPresent(b *testing.B) {
	for _, be := range backends {
		f := be.build()
		b.Run(be.name, func(b *testing.B) {
			b.SetBytes(docLen)
			for i := range b.N {
				rkgrep.MatchWithFilter(present[i%len(present)], doc, f)
			}
		})
	}
}

// ============================================================================
// Rolling
// ============================================================================

func BenchmarkRoll_RKGrep(b *testing.B) {
	b.SetBytes(docLen - window)
	for range b.N {
		var sum uint64
		for _, h := range rkgrep.WindowHashes(doc, window) {
			sum += h
		}
		_ = sum
	}
}

func BenchmarkRoll_RollingHashRabinKarp64(b *testing.B) {
	b.SetBytes(docLen - window)
	for range b.N {
		rh := rabinkarp64.New()
		rh.Write(doc[:window])
		sum := rh.Sum64()
		for _, c := range doc[window:] {
			rh.Roll(c)
			sum += rh.Sum64()
		}
		_ = sum
	}
}

// ============================================================================
// Prefilters must never lose a window
// ============================================================================

func TestBackendsHaveNoFalseNegatives(t *testing.T) {
	for _, be := range backends {
		f := be.build()
		for _, p := range present {
			want := rkgrep.MatchExact(p, doc)
			got := rkgrep.MatchWithFilter(p, doc, f)
			if got != want {
				t.Errorf("%s: pattern %q got %+v, want %+v", be.name, p, got, want)
			}
		}
	}
}
