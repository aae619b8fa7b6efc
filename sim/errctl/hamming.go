package errctl

import (
	"fmt"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// HammingCode is an even-parity Hamming codeword. Positions are 1-based;
// parity bits sit at the powers of two.
type HammingCode struct {
	Data            string   `json:"data" yaml:"data"`
	Codeword        string   `json:"codeword" yaml:"codeword"`
	ParityPositions []int    `json:"parity_positions" yaml:"parity_positions"`
	Steps           []string `json:"steps" yaml:"steps"`
}

// HammingCorrection is the result of checking a received codeword.
type HammingCorrection struct {
	Received      string   `json:"received" yaml:"received"`
	Syndrome      string   `json:"syndrome" yaml:"syndrome"`
	ErrorPosition int      `json:"error_position" yaml:"error_position"`
	Corrected     string   `json:"corrected" yaml:"corrected"`
	Data          string   `json:"data" yaml:"data"`
	Steps         []string `json:"steps" yaml:"steps"`
}

// ParityBitCount returns the smallest r with 2^r >= m+r+1.
func ParityBitCount(m int) int {
	r := 0
	for 1<<r < m+r+1 {
		r++
	}
	return r
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// HammingEncode places data in the non-power-of-two positions and fills each
// parity position with the even parity of the positions it covers.
func HammingEncode(data string) (HammingCode, error) {
	if !isBinary(data) {
		return HammingCode{}, fmt.Errorf("data: %w", ErrNotBinary)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	m := len(data)
	r := ParityBitCount(m)
	n := m + r
	rec.Stepf("m = %d data bits need r = %d parity bits (2^%d = %d >= %d)", m, r, r, 1<<r, m+r+1)

	code := make([]byte, n+1) // index 0 unused
	next := 0
	parity := make([]int, 0, r)
	for pos := 1; pos <= n; pos++ {
		if isPowerOfTwo(pos) {
			parity = append(parity, pos)
			code[pos] = '_'
			continue
		}
		code[pos] = data[next]
		next++
	}
	rec.Stepf("place data bits around parity positions %v: %s", parity, string(code[1:]))

	for _, p := range parity {
		ones := 0
		covered := make([]int, 0)
		for pos := 1; pos <= n; pos++ {
			if pos&p != 0 && pos != p {
				covered = append(covered, pos)
				if code[pos] == '1' {
					ones++
				}
			}
		}
		code[p] = byte('0' + ones%2)
		rec.Stepf("P%d covers %v with %d one(s): P%d = %c", p, covered, ones, p, code[p])
	}
	rec.Stepf("codeword: %s", string(code[1:]))

	return HammingCode{
		Data:            data,
		Codeword:        string(code[1:]),
		ParityPositions: parity,
		Steps:           rec.Steps(),
	}, nil
}

// HammingCorrect recomputes every parity check over the received codeword.
// The syndrome read as a binary number is the 1-based position of a single
// flipped bit, or 0 when no error is detected.
func HammingCorrect(codeword string) (HammingCorrection, error) {
	if !isBinary(codeword) {
		return HammingCorrection{}, fmt.Errorf("codeword: %w", ErrNotBinary)
	}
	n := len(codeword)
	r := 0
	for 1<<r <= n {
		r++
	}
	if n-r < 1 {
		return HammingCorrection{}, fmt.Errorf("%w: %d bits carry no data", ErrCodeword, n)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	code := []byte(" " + codeword)

	syndrome := make([]byte, r)
	position := 0
	for i := 0; i < r; i++ {
		p := 1 << i
		ones := 0
		for pos := 1; pos <= n; pos++ {
			if pos&p != 0 && code[pos] == '1' {
				ones++
			}
		}
		bit := ones % 2
		syndrome[r-1-i] = byte('0' + bit)
		position |= bit << i
		rec.Stepf("check P%d: %d one(s) -> %d", p, ones, bit)
	}
	rec.Stepf("syndrome %s = %d", string(syndrome), position)

	if position > n {
		return HammingCorrection{}, fmt.Errorf("%w: syndrome %d points past the %d-bit codeword (more than one bit flipped)", ErrCodeword, position, n)
	}
	if position == 0 {
		rec.Stepf("no error detected")
	} else {
		if code[position] == '1' {
			code[position] = '0'
		} else {
			code[position] = '1'
		}
		rec.Stepf("flip bit %d: %s", position, string(code[1:]))
	}

	var data strings.Builder
	for pos := 1; pos <= n; pos++ {
		if !isPowerOfTwo(pos) {
			data.WriteByte(code[pos])
		}
	}
	rec.Stepf("data bits: %s", data.String())

	return HammingCorrection{
		Received:      codeword,
		Syndrome:      string(syndrome),
		ErrorPosition: position,
		Corrected:     string(code[1:]),
		Data:          data.String(),
		Steps:         rec.Steps(),
	}, nil
}
