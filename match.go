package rkgrep

import "bytes"

// NoMatch is the First index of a Match with no occurrences.
const NoMatch = -1

// Match is the outcome of searching a document for a pattern.
type Match struct {
	// Count is the number of (possibly overlapping) occurrences.
	Count int
	// First is the start index of the first occurrence, or NoMatch.
	First int
	// Collisions is the number of windows whose hash equalled the pattern
	// hash but whose bytes did not. They are not part of Count.
	Collisions int
}

// Found reports whether the pattern occurred at least once.
func (m Match) Found() bool {
	return m.Count > 0
}

func noMatch() Match {
	return Match{First: NoMatch}
}

// searchable reports whether a pattern of length m can occur in a document
// of length n. Empty patterns never match.
func searchable(m, n int) bool {
	return m > 0 && m <= n
}

// MatchNaive compares the pattern against every window byte by byte.
// It is the reference the hashing matchers are checked against.
func MatchNaive(pattern, doc []byte) Match {
	res := noMatch()
	m := len(pattern)
	if !searchable(m, len(doc)) {
		return res
	}

	for i := 0; i+m <= len(doc); i++ {
		if bytes.Equal(doc[i:i+m], pattern) {
			res.record(i)
		}
	}
	return res
}

// MatchExact finds every occurrence of pattern in doc with the Rabin-Karp
// rolling hash. A window whose hash equals the pattern hash is only a
// candidate; it is counted after its bytes compare equal to the pattern.
func MatchExact(pattern, doc []byte) Match {
	res := noMatch()
	m := len(pattern)
	if !searchable(m, len(doc)) {
		return res
	}

	want, _ := HashInit(pattern, m)
	for i, h := range WindowHashes(doc, m) {
		if h != want {
			continue
		}
		if !bytes.Equal(doc[i:i+m], pattern) {
			res.Collisions++
			continue
		}
		res.record(i)
	}
	return res
}

func (m *Match) record(i int) {
	if m.Count == 0 {
		m.First = i
	}
	m.Count++
}

// Prefilter answers approximate membership for Rabin-Karp hash values.
// TestHash must never return false for a value that was added.
type Prefilter interface {
	TestHash(h uint64) bool
}

// windowed is implemented by prefilters bound to a single window length.
type windowed interface {
	Window() int
}

// MatchWithFilter consults f before scanning. When f reports that no window
// of doc hashes like pattern, it returns no match without touching doc;
// otherwise it runs MatchExact over the whole document.
//
// f must have been populated from doc. A nil f, or one built for a window
// length other than len(pattern), cannot rule anything out and the document
// is scanned.
func MatchWithFilter(pattern, doc []byte, f Prefilter) Match {
	m := len(pattern)
	if !searchable(m, len(doc)) {
		return noMatch()
	}
	if f == nil {
		return MatchExact(pattern, doc)
	}
	if w, ok := f.(windowed); ok && w.Window() != m {
		return MatchExact(pattern, doc)
	}

	h, _ := HashInit(pattern, m)
	if !f.TestHash(h) {
		return noMatch()
	}
	return MatchExact(pattern, doc)
}
