package numeric

import (
	"fmt"
	"math"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Conversion is the outcome of a positional base conversion.
type Conversion struct {
	Input    string   `json:"input" yaml:"input"`
	FromBase int      `json:"from_base" yaml:"from_base"`
	ToBase   int      `json:"to_base" yaml:"to_base"`
	Output   string   `json:"output" yaml:"output"`
	Decimal  int64    `json:"decimal" yaml:"decimal"`
	Steps    []string `json:"steps" yaml:"steps"`
}

func checkBase(base int) error {
	if base < 2 || base > 36 {
		return fmt.Errorf("%w: %d", ErrBase, base)
	}
	return nil
}

// FromDecimal converts d to the given base by repeated division.
func FromDecimal(d int64, base int) (Conversion, error) {
	if err := checkBase(base); err != nil {
		return Conversion{}, err
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	out := Conversion{Input: fmt.Sprint(d), FromBase: 10, ToBase: base, Decimal: d}
	out.Output = fromDecimal(d, base, rec)
	out.Steps = rec.Steps()
	return out, nil
}

func fromDecimal(d int64, base int, rec *trace.Recorder) string {
	if d == 0 {
		rec.Stepf("0 is 0 in every base")
		return "0"
	}
	magnitude := uint64(d)
	if d < 0 {
		magnitude = uint64(-d)
		rec.Stepf("convert the magnitude %d and prefix the sign", magnitude)
	}
	var rev []byte
	for magnitude > 0 {
		q, r := magnitude/uint64(base), magnitude%uint64(base)
		rec.Stepf("%d / %d = %d remainder %d (%c)", magnitude, base, q, r, digits[r])
		rev = append(rev, digits[r])
		magnitude = q
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
	}
	for i := len(rev) - 1; i >= 0; i-- {
		b.WriteByte(rev[i])
	}
	rec.Stepf("read the remainders from last to first: %s", b.String())
	return b.String()
}

// ToDecimal converts a number written in the given base to decimal by positional expansion.
// Digits are case-insensitive; a leading '-' marks a negative value.
func ToDecimal(s string, base int) (Conversion, error) {
	if err := checkBase(base); err != nil {
		return Conversion{}, err
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	v, err := toDecimal(s, base, rec)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		Input:    s,
		FromBase: base,
		ToBase:   10,
		Output:   fmt.Sprint(v),
		Decimal:  v,
		Steps:    rec.Steps(),
	}, nil
}

func toDecimal(s string, base int, rec *trace.Recorder) (int64, error) {
	text := strings.ToUpper(strings.TrimSpace(s))
	negative := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	if text == "" {
		return 0, fmt.Errorf("%w: empty input", ErrDigit)
	}

	var acc uint64
	terms := make([]string, 0, len(text))
	for i, c := range text {
		v := strings.IndexRune(digits, c)
		if v < 0 || v >= base {
			return 0, fmt.Errorf("%w: %q in base %d", ErrDigit, c, base)
		}
		if acc > (math.MaxUint64-uint64(v))/uint64(base) {
			return 0, fmt.Errorf("%w: %s overflows 64 bits", ErrOutOfRange, s)
		}
		acc = acc*uint64(base) + uint64(v)
		terms = append(terms, fmt.Sprintf("%d*%d^%d", v, base, len(text)-1-i))
	}
	rec.Stepf("expand by position: %s", strings.Join(terms, " + "))

	limit := uint64(math.MaxInt64)
	if negative {
		limit++
	}
	if acc > limit {
		return 0, fmt.Errorf("%w: %s does not fit in int64", ErrOutOfRange, s)
	}
	result := int64(acc)
	if negative {
		result = -result
	}
	rec.Stepf("sum = %d", result)
	return result, nil
}

// Convert rewrites s from one base to another via decimal.
func Convert(s string, from, to int) (Conversion, error) {
	if err := checkBase(from); err != nil {
		return Conversion{}, err
	}
	if err := checkBase(to); err != nil {
		return Conversion{}, err
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	d, err := toDecimal(s, from, rec)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		Input:    s,
		FromBase: from,
		ToBase:   to,
		Output:   fromDecimal(d, to, rec),
		Decimal:  d,
		Steps:    rec.Steps(),
	}, nil
}
