package errctl

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC_WorkedExample(t *testing.T) {
	// GIVEN data 110101 and generator 1011 (x^3 + x + 1)
	res, err := CRC("110101", "1011")
	require.NoError(t, err)

	// THEN the remainder is 3 bits wide and matches polynomial division
	assert.Equal(t, "111", res.Remainder)
	assert.Equal(t, "110101111", res.Codeword)
	assert.Len(t, res.Rows, 5)

	// AND the transmitted codeword verifies
	check, err := CRCCheck(res.Codeword, "1011")
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, "000", check.Remainder)
	assert.Equal(t, "110101", check.Data)
}

func TestCRC_TextbookExample(t *testing.T) {
	res, err := CRC("1101011011", "10011")
	require.NoError(t, err)
	assert.Equal(t, "1110", res.Remainder)
}

func TestCRCCheck_DetectsSingleBitError(t *testing.T) {
	res, err := CRC("110101", "1011")
	require.NoError(t, err)
	corrupted := []byte(res.Codeword)
	corrupted[2] ^= 1
	check, err := CRCCheck(string(corrupted), "1011")
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Contains(t, check.Remainder, "1")
}

func TestCRC_AppendedRemainderAlwaysVerifies(t *testing.T) {
	// GIVEN random data and random generators starting with 1
	rng := rand.New(rand.NewSource(42))
	randomBits := func(n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(byte('0' + rng.Intn(2)))
		}
		return b.String()
	}
	for i := 0; i < 200; i++ {
		data := randomBits(1 + rng.Intn(24))
		gen := "1" + randomBits(1+rng.Intn(8))

		// WHEN the CRC is appended
		res, err := CRC(data, gen)
		require.NoError(t, err)
		require.Len(t, res.Remainder, len(gen)-1)

		// THEN the codeword always checks clean
		check, err := CRCCheck(res.Codeword, gen)
		require.NoError(t, err)
		assert.True(t, check.Valid, "data=%s gen=%s", data, gen)
	}
}

func TestCRC_InvalidInput(t *testing.T) {
	_, err := CRC("1021", "1011")
	assert.ErrorIs(t, err, ErrNotBinary)
	_, err = CRC("1101", "0101")
	assert.ErrorIs(t, err, ErrGenerator)
	_, err = CRC("1101", "1")
	assert.ErrorIs(t, err, ErrGenerator)
	_, err = CRCCheck("10", "1011")
	assert.ErrorIs(t, err, ErrCodeword)
}
