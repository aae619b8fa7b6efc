// Package rle implements count-prefixed run-length encoding: each run of a
// symbol is written as its decimal length followed by the symbol.
package rle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cstopics/cstopics/sim/trace"
)

var (
	// ErrDigitInInput is returned when plaintext contains a digit, which the
	// encoded form could not tell apart from a run length.
	ErrDigitInInput = errors.New("plaintext must not contain digits")
	// ErrMalformed is returned for an encoded string that is not count/symbol pairs.
	ErrMalformed = errors.New("malformed run-length encoding")
)

// Run is one symbol repeated Count times.
type Run struct {
	Symbol rune `json:"symbol" yaml:"symbol"`
	Count  int  `json:"count" yaml:"count"`
}

// Result holds both forms of the data plus the runs found.
type Result struct {
	Plain   string   `json:"plain" yaml:"plain"`
	Encoded string   `json:"encoded" yaml:"encoded"`
	Runs    []Run    `json:"runs" yaml:"runs"`
	Ratio   float64  `json:"ratio" yaml:"ratio"` // len(Encoded) / len(Plain); 0 for empty input
	Steps   []string `json:"steps" yaml:"steps"`
}

// Encode compresses plain into count/symbol pairs.
func Encode(plain string) (Result, error) {
	rec := trace.NewRecorder(trace.CurrentLevel())
	runs := make([]Run, 0)
	for _, c := range plain {
		if unicode.IsDigit(c) {
			return Result{}, fmt.Errorf("%w: %q", ErrDigitInInput, c)
		}
		if n := len(runs); n > 0 && runs[n-1].Symbol == c {
			runs[n-1].Count++
			continue
		}
		runs = append(runs, Run{Symbol: c, Count: 1})
	}
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(strconv.Itoa(r.Count))
		b.WriteRune(r.Symbol)
		rec.Stepf("run of %d %q -> %d%c", r.Count, r.Symbol, r.Count, r.Symbol)
	}
	return finish(plain, b.String(), runs, rec), nil
}

// Decode expands count/symbol pairs back to plaintext.
func Decode(encoded string) (Result, error) {
	rec := trace.NewRecorder(trace.CurrentLevel())
	runs := make([]Run, 0)
	var plain strings.Builder
	count := 0
	haveCount := false
	for _, c := range encoded {
		if c >= '0' && c <= '9' {
			count = count*10 + int(c-'0')
			haveCount = true
			if count > 1<<20 {
				return Result{}, fmt.Errorf("%w: run length too large", ErrMalformed)
			}
			continue
		}
		if unicode.IsDigit(c) {
			return Result{}, fmt.Errorf("%w: %q is not an ASCII digit", ErrMalformed, c)
		}
		if !haveCount || count == 0 {
			return Result{}, fmt.Errorf("%w: symbol %q has no positive count", ErrMalformed, c)
		}
		runs = append(runs, Run{Symbol: c, Count: count})
		plain.WriteString(strings.Repeat(string(c), count))
		rec.Stepf("%d%c -> %s", count, c, strings.Repeat(string(c), count))
		count, haveCount = 0, false
	}
	if haveCount {
		return Result{}, fmt.Errorf("%w: trailing count without a symbol", ErrMalformed)
	}
	return finish(plain.String(), encoded, runs, rec), nil
}

func finish(plain, encoded string, runs []Run, rec *trace.Recorder) Result {
	res := Result{Plain: plain, Encoded: encoded, Runs: runs}
	if len(plain) > 0 {
		res.Ratio = float64(len(encoded)) / float64(len(plain))
		rec.Stepf("compression ratio %d/%d = %.2f", len(encoded), len(plain), res.Ratio)
	}
	res.Steps = rec.Steps()
	return res
}
