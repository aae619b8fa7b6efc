package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwosComplement_KnownValues(t *testing.T) {
	tests := []struct {
		n      int64
		bits   int
		binary string
		hex    string
	}{
		{5, 8, "00000101", "05"},
		{-5, 8, "11111011", "FB"},
		{-128, 8, "10000000", "80"},
		{127, 8, "01111111", "7F"},
		{-1, 4, "1111", "F"},
		{0, 2, "00", "0"},
	}
	for _, tc := range tests {
		enc, err := TwosComplement(tc.n, tc.bits)
		require.NoError(t, err, "n=%d bits=%d", tc.n, tc.bits)
		assert.Equal(t, tc.binary, enc.Binary, "n=%d", tc.n)
		assert.Equal(t, tc.hex, enc.Hex, "n=%d", tc.n)
		assert.NotEmpty(t, enc.Steps)
	}
}

func TestTwosComplement_NegativeStepsShowInvertAndAddOne(t *testing.T) {
	enc, err := TwosComplement(-6, 8)
	require.NoError(t, err)
	assert.Contains(t, enc.Steps, "magnitude |-6| in binary: 00000110")
	assert.Contains(t, enc.Steps, "invert every bit: 11111001")
	assert.Contains(t, enc.Steps, "add one: 11111010")
}

func TestTwosComplement_OutOfRange(t *testing.T) {
	_, err := TwosComplement(128, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = TwosComplement(-129, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = TwosComplement(1, 1)
	assert.ErrorIs(t, err, ErrBitWidth)
	_, err = TwosComplement(1, 65)
	assert.ErrorIs(t, err, ErrBitWidth)
}

func TestTwosComplement_RoundTripAllWidths(t *testing.T) {
	// GIVEN every width and a spread of values including both extremes
	for bits := MinBits; bits <= MaxBits; bits++ {
		lo, hi := TwosComplementRange(bits)
		for _, n := range []int64{lo, lo + 1, -1, 0, 1, hi - 1, hi} {
			if n < lo || n > hi {
				continue
			}
			// WHEN encoded and decoded
			enc, err := TwosComplement(n, bits)
			require.NoError(t, err)
			got, err := DecodeTwosComplement(enc.Binary)
			require.NoError(t, err)

			// THEN the value survives
			assert.Equal(t, n, got, "bits=%d", bits)
		}
	}
}

func TestTwosComplement_Extremes64(t *testing.T) {
	enc, err := TwosComplement(math.MinInt64, 64)
	require.NoError(t, err)
	assert.Equal(t, "8000000000000000", enc.Hex)
}

func TestSignedMagnitude_KnownValues(t *testing.T) {
	enc, err := SignedMagnitude(-5, 8)
	require.NoError(t, err)
	assert.Equal(t, "10000101", enc.Binary)

	enc, err = SignedMagnitude(5, 8)
	require.NoError(t, err)
	assert.Equal(t, "00000101", enc.Binary)
}

func TestSignedMagnitude_RangeIsSymmetric(t *testing.T) {
	_, err := SignedMagnitude(-128, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = SignedMagnitude(-127, 8)
	assert.NoError(t, err)
}

func TestSignedMagnitude_RoundTrip(t *testing.T) {
	for bits := MinBits; bits <= MaxBits; bits++ {
		lo, hi := SignedMagnitudeRange(bits)
		for _, n := range []int64{lo, -1, 0, 1, hi} {
			enc, err := SignedMagnitude(n, bits)
			require.NoError(t, err)
			got, err := DecodeSignedMagnitude(enc.Binary)
			require.NoError(t, err)
			assert.Equal(t, n, got, "bits=%d", bits)
		}
	}
}

func TestDecodeSignedMagnitude_NegativeZero(t *testing.T) {
	got, err := DecodeSignedMagnitude("1000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestDecode_RejectsNonBinary(t *testing.T) {
	_, err := DecodeTwosComplement("10a1")
	assert.ErrorIs(t, err, ErrNotBinary)
	_, err = DecodeSignedMagnitude("")
	assert.ErrorIs(t, err, ErrNotBinary)
}
