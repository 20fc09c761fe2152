// Package rkgrep finds exact occurrences of a byte pattern in a document with
// the Rabin-Karp rolling hash, and can rule out absent patterns up front with
// a bloom filter built over the document's window hashes.
//
// # Hashing
//
// A window of m bytes hashes to the base-256 polynomial
//
//	b[0]*256^(m-1) + b[1]*256^(m-2) + ... + b[m-1]   (mod 961748941)
//
// [HashInit] computes it from scratch in O(m). [HashNext] slides the window
// one byte in O(1), and the result is always the same value [HashInit] would
// give for the shifted window. [RollingHash] packages the two as a small
// value type, and [WindowHashes] iterates over every window of a document.
//
// # Matching
//
// [MatchExact] compares each window hash against the pattern hash. The
// modulus is only about 2^30, so distinct windows do collide; a hash hit is
// therefore confirmed byte for byte before it is counted, and rejected hits
// are reported in [Match.Collisions]. [MatchNaive] is the brute-force
// reference.
//
// Patterns that are empty or longer than the document never match.
//
// # Pre-filtering
//
// [BuildDocBloom] inserts the hash of every length-m window of a document
// into a [Filter]. [MatchWithFilter] hashes the pattern, asks the filter,
// and only scans the document when the filter says the hash may be present:
//
//	b, err := rkgrep.BuildDocBloom(doc, len(pattern), 0)
//	if err != nil {
//		return err
//	}
//	m := rkgrep.MatchWithFilter(pattern, doc, b)
//
// Bloom filters have false positives but no false negatives, so an absent
// answer is final and costs O(len(pattern)). A false positive only costs the
// scan [MatchExact] would have done anyway.
//
// A filter bound to one window length says nothing about patterns of another
// length; [MatchWithFilter] scans the document for those.
//
// # Filters
//
// [Filter] splits memory into 512-bit blocks, one cache line each. Every
// value is mixed once with xxh3; the upper 32 bits choose a block and the
// lower 32 bits are reduced modulo k distinct partition sizes to choose one
// bit per partition. [AtomicFilter] is the same layout with atomic words and
// is what [BuildDocBloomParallel] fills from several goroutines.
//
// # Concurrency
//
// All matchers are pure functions. A built [DocBloom] or [Filter] may be
// queried from any number of goroutines as long as nothing adds to it.
package rkgrep
