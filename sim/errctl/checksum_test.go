package errctl

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_WrapsCarryAndComplements(t *testing.T) {
	// GIVEN two words whose sum overflows 16 bits
	res, err := Checksum([]string{"8000", "8001"}, 16)
	require.NoError(t, err)

	// THEN the carry wraps around before complementing
	assert.Equal(t, "0002", res.Sum)
	assert.Equal(t, "FFFD", res.Checksum)
}

func TestChecksum_TextbookExample(t *testing.T) {
	words := ParseWords("4500\n0073\n0000\n4000\n4011\n\nc0a8\n0001\n0xC0A8\n00c7\n")
	require.Len(t, words, 9)
	res, err := Checksum(words, 16)
	require.NoError(t, err)
	assert.Equal(t, "B861", res.Checksum)

	verify, err := VerifyChecksum(words, res.Checksum, 16)
	require.NoError(t, err)
	assert.True(t, verify.Valid)
	assert.Equal(t, "FFFF", verify.Sum)
}

func TestVerifyChecksum_RandomWords(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, bits := range []int{8, 16, 32} {
		for i := 0; i < 50; i++ {
			words := make([]string, 1+rng.Intn(10))
			for j := range words {
				words[j] = fmt.Sprintf("%X", rng.Uint64()&(uint64(1)<<uint(bits)-1))
			}
			res, err := Checksum(words, bits)
			require.NoError(t, err)
			verify, err := VerifyChecksum(words, res.Checksum, bits)
			require.NoError(t, err)
			assert.True(t, verify.Valid, "bits=%d words=%v", bits, words)
		}
	}
}

func TestVerifyChecksum_DetectsCorruption(t *testing.T) {
	res, err := Checksum([]string{"1234", "ABCD"}, 16)
	require.NoError(t, err)
	verify, err := VerifyChecksum([]string{"1235", "ABCD"}, res.Checksum, 16)
	require.NoError(t, err)
	assert.False(t, verify.Valid)
}

func TestChecksum_Errors(t *testing.T) {
	_, err := Checksum(nil, 16)
	assert.ErrorIs(t, err, ErrWord)
	_, err = Checksum([]string{"12345"}, 16)
	assert.ErrorIs(t, err, ErrWord)
	_, err = Checksum([]string{"zz"}, 16)
	assert.ErrorIs(t, err, ErrWord)
	_, err = Checksum([]string{"12"}, 12)
	assert.ErrorIs(t, err, ErrWordSize)
}

func TestChecksum_DefaultWordSize(t *testing.T) {
	res, err := Checksum([]string{"0001"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, res.WordBits)
	assert.Equal(t, "FFFE", res.Checksum)
}
