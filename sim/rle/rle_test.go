package rle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Example(t *testing.T) {
	res, err := Encode("WWWWWBWWBB")
	require.NoError(t, err)
	assert.Equal(t, "5W1B2W2B", res.Encoded)
	assert.Equal(t, []Run{{'W', 5}, {'B', 1}, {'W', 2}, {'B', 2}}, res.Runs)
	assert.InDelta(t, 0.8, res.Ratio, 1e-9)
}

func TestDecode_Example(t *testing.T) {
	res, err := Decode("5W1B2W2B")
	require.NoError(t, err)
	assert.Equal(t, "WWWWWBWWBB", res.Plain)
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "aaaaaaaaaaaaaa", "abcabc", "ééé  !!"} {
		enc, err := Encode(s)
		require.NoError(t, err)
		dec, err := Decode(enc.Encoded)
		require.NoError(t, err)
		assert.Equal(t, s, dec.Plain)
	}
}

func TestEncode_MultiDigitRuns(t *testing.T) {
	res, err := Encode("xxxxxxxxxxxx")
	require.NoError(t, err)
	assert.Equal(t, "12x", res.Encoded)
}

func TestErrors(t *testing.T) {
	_, err := Encode("ab1")
	assert.ErrorIs(t, err, ErrDigitInInput)
	_, err = Decode("W3")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Decode("3W2")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Decode("0W")
	assert.ErrorIs(t, err, ErrMalformed)

	// Only ASCII digits count; other decimal digits are malformed input.
	_, err = Decode("\u0663A")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Decode("2A\u0663B")
	assert.ErrorIs(t, err, ErrMalformed)
}
