package numeric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// Encoding is the fixed-width binary form of an integer.
type Encoding struct {
	Value  int64    `json:"value" yaml:"value"`
	Bits   int      `json:"bits" yaml:"bits"`
	Binary string   `json:"binary" yaml:"binary"`
	Hex    string   `json:"hex" yaml:"hex"`
	Steps  []string `json:"steps" yaml:"steps"`
}

// TwosComplementRange returns the representable range for a bit width.
func TwosComplementRange(bits int) (lo, hi int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	hi = int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

// SignedMagnitudeRange returns the representable range for a bit width.
// Both +0 and -0 exist, so the range is symmetric.
func SignedMagnitudeRange(bits int) (lo, hi int64) {
	_, hi = TwosComplementRange(bits)
	return -hi, hi
}

func checkBits(bits int) error {
	if bits < MinBits || bits > MaxBits {
		return fmt.Errorf("%w: %d (valid: %d-%d)", ErrBitWidth, bits, MinBits, MaxBits)
	}
	return nil
}

func mask(bits int) uint64 {
	return uint64(1)<<uint(bits) - 1
}

func pad(v uint64, bits int) string {
	return fmt.Sprintf("%0*b", bits, v)
}

func hexOf(v uint64, bits int) string {
	return fmt.Sprintf("%0*X", (bits+3)/4, v)
}

func invert(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c == '0' {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// TwosComplement encodes n in the given bit width using two's complement.
func TwosComplement(n int64, bits int) (Encoding, error) {
	if err := checkBits(bits); err != nil {
		return Encoding{}, err
	}
	lo, hi := TwosComplementRange(bits)
	if n < lo || n > hi {
		return Encoding{}, fmt.Errorf("%w: %d not in [%d, %d] for %d-bit two's complement", ErrOutOfRange, n, lo, hi, bits)
	}

	rec := trace.NewRecorder(trace.CurrentLevel())
	rec.Stepf("range for %d bits: [%d, %d]", bits, lo, hi)

	pattern := uint64(n) & mask(bits)
	if n >= 0 {
		rec.Stepf("%d is non-negative: write it in binary and pad to %d bits: %s", n, bits, pad(pattern, bits))
	} else {
		magnitude := uint64(-n) & mask(bits)
		magBits := pad(magnitude, bits)
		rec.Stepf("magnitude |%d| in binary: %s", n, magBits)
		rec.Stepf("invert every bit: %s", invert(magBits))
		rec.Stepf("add one: %s", pad(pattern, bits))
	}
	rec.Stepf("hex: 0x%s", hexOf(pattern, bits))

	return Encoding{
		Value:  n,
		Bits:   bits,
		Binary: pad(pattern, bits),
		Hex:    hexOf(pattern, bits),
		Steps:  rec.Steps(),
	}, nil
}

// DecodeTwosComplement interprets a bit string as a two's complement integer.
func DecodeTwosComplement(s string) (int64, error) {
	if !isBinary(s) {
		return 0, fmt.Errorf("%w: %q", ErrNotBinary, s)
	}
	if len(s) > MaxBits {
		return 0, fmt.Errorf("%w: %d", ErrBitWidth, len(s))
	}
	v, err := strconv.ParseUint(s, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	if s[0] == '0' || len(s) == 64 {
		return int64(v), nil
	}
	return int64(v) - int64(1)<<uint(len(s)), nil
}

// SignedMagnitude encodes n as a sign bit followed by bits-1 magnitude bits.
func SignedMagnitude(n int64, bits int) (Encoding, error) {
	if err := checkBits(bits); err != nil {
		return Encoding{}, err
	}
	lo, hi := SignedMagnitudeRange(bits)
	if n < lo || n > hi {
		return Encoding{}, fmt.Errorf("%w: %d not in [%d, %d] for %d-bit signed magnitude", ErrOutOfRange, n, lo, hi, bits)
	}

	rec := trace.NewRecorder(trace.CurrentLevel())
	rec.Stepf("range for %d bits: [%d, %d]", bits, lo, hi)

	sign, label := uint64(0), "positive"
	magnitude := uint64(n)
	if n < 0 {
		sign, label = 1, "negative"
		magnitude = uint64(-n)
	}
	rec.Stepf("sign bit: %d (%s)", sign, label)
	rec.Stepf("magnitude %d in %d bits: %s", magnitude, bits-1, pad(magnitude, bits-1))

	pattern := sign<<uint(bits-1) | magnitude
	rec.Stepf("combined: %s", pad(pattern, bits))

	return Encoding{
		Value:  n,
		Bits:   bits,
		Binary: pad(pattern, bits),
		Hex:    hexOf(pattern, bits),
		Steps:  rec.Steps(),
	}, nil
}

// DecodeSignedMagnitude interprets a bit string as sign + magnitude.
// Both 100...0 and 000...0 decode to zero.
func DecodeSignedMagnitude(s string) (int64, error) {
	if !isBinary(s) || len(s) < MinBits {
		return 0, fmt.Errorf("%w: %q", ErrNotBinary, s)
	}
	if len(s) > MaxBits {
		return 0, fmt.Errorf("%w: %d", ErrBitWidth, len(s))
	}
	magnitude, err := strconv.ParseUint(s[1:], 2, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	if s[0] == '1' {
		return -int64(magnitude), nil
	}
	return int64(magnitude), nil
}
