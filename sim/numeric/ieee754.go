package numeric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// Float categories.
const (
	CategoryNormal    = "normal"
	CategorySubnormal = "subnormal"
	CategoryZero      = "zero"
	CategoryInfinity  = "infinity"
	CategoryNaN       = "nan"
)

// layout describes the field widths of one IEEE-754 binary format.
type layout struct {
	exponentBits int
	mantissaBits int
	bias         int
}

var layouts = map[int]layout{
	32: {exponentBits: 8, mantissaBits: 23, bias: 127},
	64: {exponentBits: 11, mantissaBits: 52, bias: 1023},
}

// Float is an IEEE-754 encoding split into its fields.
type Float struct {
	Value            float64  `json:"value" yaml:"value"`
	Precision        int      `json:"precision" yaml:"precision"`
	Sign             string   `json:"sign" yaml:"sign"`
	Exponent         string   `json:"exponent" yaml:"exponent"`
	Mantissa         string   `json:"mantissa" yaml:"mantissa"`
	Binary           string   `json:"binary" yaml:"binary"`
	Hex              string   `json:"hex" yaml:"hex"`
	Bias             int      `json:"bias" yaml:"bias"`
	UnbiasedExponent int      `json:"unbiased_exponent" yaml:"unbiased_exponent"`
	Category         string   `json:"category" yaml:"category"`
	Steps            []string `json:"steps" yaml:"steps"`
}

// IEEE754 encodes x in single (32) or double (64) precision.
func IEEE754(x float64, precision int) (Float, error) {
	l, ok := layouts[precision]
	if !ok {
		return Float{}, fmt.Errorf("%w: %d", ErrPrecision, precision)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())

	var raw uint64
	stored := x
	if precision == 32 {
		f := float32(x)
		raw = uint64(math.Float32bits(f))
		stored = float64(f)
		if stored != x && !math.IsNaN(x) {
			rec.Stepf("%g is not exact in single precision; nearest value is %g", x, stored)
		}
	} else {
		raw = math.Float64bits(x)
	}

	out := decompose(raw, precision, l, rec)
	out.Value = stored
	out.Steps = rec.Steps()
	return out, nil
}

// DecodeIEEE754 interprets a 32- or 64-bit pattern, given as binary digits or
// as hex with a 0x prefix, and returns the value it encodes.
func DecodeIEEE754(pattern string) (Float, error) {
	pattern = strings.ReplaceAll(strings.TrimSpace(pattern), " ", "")
	var raw uint64
	var precision int
	switch {
	case strings.HasPrefix(strings.ToLower(pattern), "0x"):
		digits := pattern[2:]
		precision = len(digits) * 4
		v, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return Float{}, fmt.Errorf("parsing hex %q: %w", pattern, err)
		}
		raw = v
	case isBinary(pattern):
		precision = len(pattern)
		v, err := strconv.ParseUint(pattern, 2, 64)
		if err != nil {
			return Float{}, fmt.Errorf("parsing binary %q: %w", pattern, err)
		}
		raw = v
	default:
		return Float{}, fmt.Errorf("%w: %q", ErrNotBinary, pattern)
	}
	l, ok := layouts[precision]
	if !ok {
		return Float{}, fmt.Errorf("%w: pattern has %d bits", ErrPrecision, precision)
	}

	rec := trace.NewRecorder(trace.CurrentLevel())
	out := decompose(raw, precision, l, rec)
	if precision == 32 {
		out.Value = float64(math.Float32frombits(uint32(raw)))
	} else {
		out.Value = math.Float64frombits(raw)
	}
	rec.Stepf("value: %g", out.Value)
	out.Steps = rec.Steps()
	return out, nil
}

func decompose(raw uint64, precision int, l layout, rec *trace.Recorder) Float {
	sign := raw >> uint(precision-1)
	exponent := (raw >> uint(l.mantissaBits)) & mask(l.exponentBits)
	mantissa := raw & mask(l.mantissaBits)

	out := Float{
		Precision: precision,
		Sign:      strconv.FormatUint(sign, 2),
		Exponent:  pad(exponent, l.exponentBits),
		Mantissa:  pad(mantissa, l.mantissaBits),
		Binary:    pad(raw, precision),
		Hex:       hexOf(raw, precision),
		Bias:      l.bias,
	}

	signLabel := "positive"
	if sign == 1 {
		signLabel = "negative"
	}
	rec.Stepf("sign bit: %d (%s)", sign, signLabel)

	fraction := strings.TrimRight(out.Mantissa, "0")
	if fraction == "" {
		fraction = "0"
	}
	switch {
	case exponent == 0 && mantissa == 0:
		out.Category = CategoryZero
		rec.Stepf("exponent and mantissa are all zero: the value is %s zero", signLabel)
	case exponent == 0:
		out.Category = CategorySubnormal
		out.UnbiasedExponent = 1 - l.bias
		rec.Stepf("exponent field is zero: subnormal, value = 0.%s x 2^%d", fraction, out.UnbiasedExponent)
	case exponent == mask(l.exponentBits) && mantissa == 0:
		out.Category = CategoryInfinity
		rec.Stepf("exponent all ones with zero mantissa: infinity")
	case exponent == mask(l.exponentBits):
		out.Category = CategoryNaN
		rec.Stepf("exponent all ones with non-zero mantissa: NaN")
	default:
		out.Category = CategoryNormal
		out.UnbiasedExponent = int(exponent) - l.bias
		rec.Stepf("normalized form: 1.%s x 2^%d", fraction, out.UnbiasedExponent)
		rec.Stepf("biased exponent: %d + %d = %d = %s", out.UnbiasedExponent, l.bias, exponent, out.Exponent)
	}
	rec.Stepf("mantissa (%d bits, implicit leading 1 dropped): %s", l.mantissaBits, out.Mantissa)
	rec.Stepf("result: %s %s %s = 0x%s", out.Sign, out.Exponent, out.Mantissa, out.Hex)
	return out
}
