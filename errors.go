package rkgrep

import "errors"

var (
	// ErrAllocation is returned when a bloom filter cannot be allocated for
	// the requested capacity.
	ErrAllocation = errors.New("rkgrep: cannot allocate bloom filter")

	// ErrInvalidData is returned when the serialized data is invalid or corrupted.
	ErrInvalidData = errors.New("rkgrep: invalid serialized data")

	// ErrUnsupportedVersion is returned when the serialization version is not supported.
	ErrUnsupportedVersion = errors.New("rkgrep: unsupported serialization version")

	// ErrInvalidK is returned when k value in serialized data is not supported.
	ErrInvalidK = errors.New("rkgrep: invalid k value in serialized data")

	// ErrInvalidLength is returned when a serialized document bloom records a
	// window length that no document could have produced.
	ErrInvalidLength = errors.New("rkgrep: invalid window length")
)
