package errctl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParityBitCount(t *testing.T) {
	tests := map[int]int{1: 2, 4: 3, 7: 4, 11: 4, 12: 5, 26: 5, 27: 6}
	for m, want := range tests {
		assert.Equal(t, want, ParityBitCount(m), "m=%d", m)
	}
}

func TestHammingEncode_Hamming74(t *testing.T) {
	// GIVEN the 4-bit dataword 1011
	code, err := HammingEncode("1011")
	require.NoError(t, err)

	// THEN positions 3,5,6,7 carry 1,0,1,1 and parity makes each group even
	assert.Equal(t, "0110011", code.Codeword)
	assert.Equal(t, []int{1, 2, 4}, code.ParityPositions)
}

func TestHammingCorrect_NoError(t *testing.T) {
	res, err := HammingCorrect("0110011")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ErrorPosition)
	assert.Equal(t, "000", res.Syndrome)
	assert.Equal(t, "1011", res.Data)
}

func TestHammingCorrect_SingleBitFlipAtEveryPosition(t *testing.T) {
	// GIVEN every dataword up to 8 bits
	for m := 1; m <= 8; m++ {
		for v := 0; v < 1<<m; v++ {
			data := fmt.Sprintf("%0*b", m, v)
			code, err := HammingEncode(data)
			require.NoError(t, err)

			for pos := 1; pos <= len(code.Codeword); pos++ {
				// WHEN exactly one bit is flipped
				received := []byte(code.Codeword)
				received[pos-1] ^= 1

				res, err := HammingCorrect(string(received))
				require.NoError(t, err)

				// THEN the syndrome names that bit and correction restores the codeword
				assert.Equal(t, pos, res.ErrorPosition, "data=%s pos=%d", data, pos)
				assert.Equal(t, code.Codeword, res.Corrected)
				assert.Equal(t, data, res.Data)
			}
		}
	}
}

func TestHammingCorrect_Errors(t *testing.T) {
	_, err := HammingCorrect("01")
	assert.ErrorIs(t, err, ErrCodeword)
	_, err = HammingCorrect("01x")
	assert.ErrorIs(t, err, ErrNotBinary)
	_, err = HammingEncode("")
	assert.ErrorIs(t, err, ErrNotBinary)
}
