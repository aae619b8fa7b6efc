package errctl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// DefaultWordBits is the word size of the Internet checksum.
const DefaultWordBits = 16

// ChecksumResult carries the folded sum and its one's complement.
type ChecksumResult struct {
	Words    []string `json:"words" yaml:"words"`
	WordBits int      `json:"word_bits" yaml:"word_bits"`
	Sum      string   `json:"sum" yaml:"sum"`
	Checksum string   `json:"checksum" yaml:"checksum"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Steps    []string `json:"steps" yaml:"steps"`
}

// ParseWords splits text into hex words separated by whitespace or newlines.
// An optional 0x prefix is removed.
func ParseWords(text string) []string {
	words := make([]string, 0)
	for _, f := range strings.Fields(text) {
		w := strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		if w != "" {
			words = append(words, strings.ToUpper(w))
		}
	}
	return words
}

func wordMask(bits int) (uint64, error) {
	switch bits {
	case 8, 16, 32:
		return uint64(1)<<uint(bits) - 1, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrWordSize, bits)
}

// onesComplementSum adds the words with end-around carry.
func onesComplementSum(words []string, bits int, rec *trace.Recorder) (uint64, error) {
	m, err := wordMask(bits)
	if err != nil {
		return 0, err
	}
	if len(words) == 0 {
		return 0, fmt.Errorf("%w: no words given", ErrWord)
	}
	digits := bits / 4
	var sum uint64
	for i, w := range words {
		w = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(w), "0x"), "0X")
		v, err := strconv.ParseUint(w, 16, 64)
		if err != nil || len(w) == 0 || v > m {
			return 0, fmt.Errorf("%w: %q is not a %d-bit hex word", ErrWord, w, bits)
		}
		sum += v
		rec.Stepf("add word %d (%0*X): sum = %X", i+1, digits, v, sum)
		for sum>>uint(bits) != 0 {
			carry := sum >> uint(bits)
			sum = (sum & m) + carry
			rec.Stepf("wrap carry %X around: sum = %0*X", carry, digits, sum)
		}
	}
	return sum, nil
}

// Checksum computes the one's-complement checksum of the words.
func Checksum(words []string, wordBits int) (ChecksumResult, error) {
	if wordBits == 0 {
		wordBits = DefaultWordBits
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	sum, err := onesComplementSum(words, wordBits, rec)
	if err != nil {
		return ChecksumResult{}, err
	}
	m, _ := wordMask(wordBits)
	digits := wordBits / 4
	checksum := ^sum & m
	rec.Stepf("one's complement of %0*X: %0*X", digits, sum, digits, checksum)
	return ChecksumResult{
		Words:    words,
		WordBits: wordBits,
		Sum:      fmt.Sprintf("%0*X", digits, sum),
		Checksum: fmt.Sprintf("%0*X", digits, checksum),
		Valid:    true,
		Steps:    rec.Steps(),
	}, nil
}

// VerifyChecksum sums the received words together with the checksum. The data
// is accepted iff the folded sum is all ones.
func VerifyChecksum(words []string, checksum string, wordBits int) (ChecksumResult, error) {
	if wordBits == 0 {
		wordBits = DefaultWordBits
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	all := append(append([]string{}, words...), checksum)
	sum, err := onesComplementSum(all, wordBits, rec)
	if err != nil {
		return ChecksumResult{}, err
	}
	m, _ := wordMask(wordBits)
	digits := wordBits / 4
	valid := sum == m
	if valid {
		rec.Stepf("sum %0*X is all ones: no error detected", digits, sum)
	} else {
		rec.Stepf("sum %0*X is not all ones: error detected", digits, sum)
	}
	return ChecksumResult{
		Words:    words,
		WordBits: wordBits,
		Sum:      fmt.Sprintf("%0*X", digits, sum),
		Checksum: checksum,
		Valid:    valid,
		Steps:    rec.Steps(),
	}, nil
}
