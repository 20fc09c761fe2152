package rkgrep

const (
	// Modulus is the prime defining the field all Rabin-Karp hashes live in.
	// Every hash value produced by this package lies in [0, Modulus).
	Modulus = 961748941

	// Radix is the polynomial base, one digit per byte.
	Radix = 256
)

// ModAdd returns (a + b) mod Modulus. a and b must already be reduced.
func ModAdd(a, b uint64) uint64 {
	return (a + b) % Modulus
}

// ModSub returns (a - b) mod Modulus without a negative intermediate.
// a and b must already be reduced.
func ModSub(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + Modulus - b
}

// ModMul returns (a * b) mod Modulus.
// Reduced operands are below 2^30, so the product fits in 64 bits.
func ModMul(a, b uint64) uint64 {
	return (a * b) % Modulus
}
