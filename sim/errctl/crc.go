package errctl

import (
	"fmt"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// DivisionRow is one XOR step of the long division, for rendering.
type DivisionRow struct {
	Position int    `json:"position" yaml:"position"`
	Window   string `json:"window" yaml:"window"`
	Divisor  string `json:"divisor" yaml:"divisor"`
	Result   string `json:"result" yaml:"result"`
}

// CRCResult is the remainder of a CRC computation and the transmitted codeword.
type CRCResult struct {
	Data      string        `json:"data" yaml:"data"`
	Generator string        `json:"generator" yaml:"generator"`
	Remainder string        `json:"remainder" yaml:"remainder"`
	Codeword  string        `json:"codeword" yaml:"codeword"`
	Valid     bool          `json:"valid" yaml:"valid"`
	Rows      []DivisionRow `json:"rows" yaml:"rows"`
	Steps     []string      `json:"steps" yaml:"steps"`
}

func checkGenerator(g string) error {
	if !isBinary(g) || len(g) < 2 || g[0] != '1' {
		return fmt.Errorf("%w: %q", ErrGenerator, g)
	}
	return nil
}

// CRC appends len(generator)-1 zeros to data and divides by the generator
// modulo 2. The remainder is the check sequence.
func CRC(data, generator string) (CRCResult, error) {
	if !isBinary(data) {
		return CRCResult{}, fmt.Errorf("data: %w", ErrNotBinary)
	}
	if err := checkGenerator(generator); err != nil {
		return CRCResult{}, err
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	width := len(generator) - 1
	dividend := data + strings.Repeat("0", width)
	rec.Stepf("append %d zero(s) to the data: %s", width, dividend)

	remainder, rows := divide(dividend, generator, rec)
	rec.Stepf("remainder: %s", remainder)
	codeword := data + remainder
	rec.Stepf("transmitted codeword: %s", codeword)

	return CRCResult{
		Data:      data,
		Generator: generator,
		Remainder: remainder,
		Codeword:  codeword,
		Valid:     true,
		Rows:      rows,
		Steps:     rec.Steps(),
	}, nil
}

// CRCCheck divides a received codeword by the generator. The codeword is
// accepted iff the remainder is all zeros.
func CRCCheck(codeword, generator string) (CRCResult, error) {
	if !isBinary(codeword) {
		return CRCResult{}, fmt.Errorf("codeword: %w", ErrNotBinary)
	}
	if err := checkGenerator(generator); err != nil {
		return CRCResult{}, err
	}
	if len(codeword) < len(generator) {
		return CRCResult{}, fmt.Errorf("%w: codeword %q is shorter than generator %q", ErrCodeword, codeword, generator)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	rec.Stepf("divide the received codeword %s by %s", codeword, generator)
	remainder, rows := divide(codeword, generator, rec)
	valid := !strings.Contains(remainder, "1")
	if valid {
		rec.Stepf("remainder %s is zero: no error detected", remainder)
	} else {
		rec.Stepf("remainder %s is non-zero: error detected", remainder)
	}
	return CRCResult{
		Data:      codeword[:len(codeword)-(len(generator)-1)],
		Generator: generator,
		Remainder: remainder,
		Codeword:  codeword,
		Valid:     valid,
		Rows:      rows,
		Steps:     rec.Steps(),
	}, nil
}

// divide performs modulo-2 long division and returns the remainder of width len(g)-1.
func divide(dividend, g string, rec *trace.Recorder) (string, []DivisionRow) {
	bits := []byte(dividend)
	rows := make([]DivisionRow, 0)
	for i := 0; i+len(g) <= len(bits); i++ {
		if bits[i] != '1' {
			continue
		}
		window := string(bits[i : i+len(g)])
		for j := range g {
			if bits[i+j] == g[j] {
				bits[i+j] = '0'
			} else {
				bits[i+j] = '1'
			}
		}
		result := string(bits[i : i+len(g)])
		rows = append(rows, DivisionRow{Position: i, Window: window, Divisor: g, Result: result})
		rec.Stepf("bit %d: %s XOR %s = %s", i, window, g, result)
	}
	return string(bits[len(bits)-(len(g)-1):]), rows
}
