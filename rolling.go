package rkgrep

import "iter"

// HashInit computes the Rabin-Karp hash of the first m bytes of buf:
//
//	buf[0]*256^(m-1) + buf[1]*256^(m-2) + ... + buf[m-1]   (mod Modulus)
//
// It also returns pow = 256^m mod Modulus, which is what HashNext needs to
// drop the outgoing byte. A window length of zero (or less) hashes to 0 with
// pow 1; so does a window longer than buf.
func HashInit(buf []byte, m int) (sum, pow uint64) {
	pow = 1
	if m <= 0 || m > len(buf) {
		return 0, pow
	}

	// Horner's rule: one multiply-add per byte, pow accumulated alongside.
	for _, b := range buf[:m] {
		sum = ModAdd(ModMul(sum, Radix), uint64(b))
		pow = ModMul(pow, Radix)
	}
	return sum, pow
}

// HashNext slides a window hash one byte to the right. Given the hash of
// window [i, i+m) and pow = 256^m mod Modulus, it returns the hash of
// [i+1, i+m+1), where leftmost is the byte at i and rightmost the byte at i+m.
//
// The result is identical to calling HashInit on the shifted window.
func HashNext(sum, pow uint64, leftmost, rightmost byte) uint64 {
	sum = ModMul(sum, Radix)
	sum = ModSub(sum, ModMul(uint64(leftmost), pow))
	return ModAdd(sum, uint64(rightmost))
}

// RollingHash is the state of a Rabin-Karp scan over windows of a fixed
// length. It is a plain value: each Roll returns the next state, so two scans
// never share anything.
type RollingHash struct {
	Sum uint64 // hash of the current window
	Pow uint64 // 256^Len mod Modulus
	Len int    // window length
}

// NewRollingHash hashes the first m bytes of buf.
func NewRollingHash(buf []byte, m int) RollingHash {
	sum, pow := HashInit(buf, m)
	if m < 0 || m > len(buf) {
		m = 0
	}
	return RollingHash{Sum: sum, Pow: pow, Len: m}
}

// Roll advances the window by one byte: out leaves on the left, in enters on
// the right.
func (r RollingHash) Roll(out, in byte) RollingHash {
	r.Sum = HashNext(r.Sum, r.Pow, out, in)
	return r
}

// WindowHashes yields the start index and hash of every length-m window of
// doc, left to right. Nothing is yielded when m <= 0 or doc is shorter than m.
func WindowHashes(doc []byte, m int) iter.Seq2[int, uint64] {
	return func(yield func(int, uint64) bool) {
		if m <= 0 || len(doc) < m {
			return
		}
		rh := NewRollingHash(doc, m)
		last := len(doc) - m
		for i := 0; ; i++ {
			if !yield(i, rh.Sum) {
				return
			}
			if i == last {
				return
			}
			rh = rh.Roll(doc[i], doc[i+m])
		}
	}
}
