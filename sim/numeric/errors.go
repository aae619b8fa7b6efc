package numeric

import "errors"

var (
	// ErrBitWidth is returned for a bit width outside the supported range.
	ErrBitWidth = errors.New("bit width out of range")
	// ErrOutOfRange is returned when a value cannot be represented in the requested width.
	ErrOutOfRange = errors.New("value out of range")
	// ErrNotBinary is returned when an input contains characters other than 0 and 1.
	ErrNotBinary = errors.New("input must contain only 0 and 1")
	// ErrBase is returned for a radix outside [2, 36].
	ErrBase = errors.New("base must be between 2 and 36")
	// ErrDigit is returned when a digit is not valid in the given base.
	ErrDigit = errors.New("invalid digit for base")
	// ErrPrecision is returned for a float precision other than 32 or 64.
	ErrPrecision = errors.New("precision must be 32 or 64")
)

// MinBits and MaxBits bound the integer encodings.
const (
	MinBits = 2
	MaxBits = 64
)

func isBinary(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != '0' && c != '1' {
			return false
		}
	}
	return true
}
