// Package errctl implements the error-detection and error-correction codes
// taught alongside the data-link layer: CRC polynomial division, the Internet
// one's-complement checksum, and single-error-correcting Hamming codes.
package errctl

import "errors"

var (
	// ErrNotBinary is returned when data contains characters other than 0 and 1.
	ErrNotBinary = errors.New("input must be a non-empty string of 0 and 1")
	// ErrGenerator is returned for a CRC generator that is too short or has a leading zero.
	ErrGenerator = errors.New("generator must start with 1 and have at least 2 bits")
	// ErrWord is returned for a checksum word that is not valid hex or does not fit the word size.
	ErrWord = errors.New("invalid checksum word")
	// ErrWordSize is returned for an unsupported checksum word size.
	ErrWordSize = errors.New("word size must be 8, 16 or 32 bits")
	// ErrCodeword is returned for a Hamming codeword that cannot carry data or has
	// a syndrome pointing outside the codeword.
	ErrCodeword = errors.New("invalid codeword")
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
