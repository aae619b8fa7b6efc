package rsa

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeys_TextbookExample(t *testing.T) {
	// GIVEN p=61, q=53, e=17
	kp, err := GenerateKeys(61, 53, 17)
	require.NoError(t, err)

	// THEN n, phi and d match the classic worked example
	assert.Equal(t, uint64(3233), kp.N)
	assert.Equal(t, uint64(3120), kp.Phi)
	assert.Equal(t, uint64(2753), kp.Private.D)
	assert.NotEmpty(t, kp.Steps)

	// AND m=65 encrypts to 2790
	c, err := Encrypt(65, kp.Public)
	require.NoError(t, err)
	assert.Equal(t, uint64(2790), c.Output)

	m, err := Decrypt(c.Output, kp.Private)
	require.NoError(t, err)
	assert.Equal(t, uint64(65), m.Output)
}

func TestGenerateKeys_AutoExponent(t *testing.T) {
	kp, err := GenerateKeys(61, 53, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), kp.Public.E, "3 and 5 divide 3120")
}

func TestGenerateKeys_Errors(t *testing.T) {
	tests := []struct {
		name    string
		p, q, e uint64
		want    error
	}{
		{"p not prime", 15, 53, 17, ErrNotPrime},
		{"q not prime", 61, 1, 17, ErrNotPrime},
		{"same prime", 61, 61, 17, ErrSamePrime},
		{"e shares factor", 61, 53, 15, ErrNotCoprime},
		{"e too small", 61, 53, 1, ErrExponent},
		{"e too large", 61, 53, 3121, ErrExponent},
		{"no e available", 2, 3, 0, ErrExponent},
		{"n overflows", 4294967291, 4294967311, 0, ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateKeys(tc.p, tc.q, tc.e)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEncrypt_MessageMustBeBelowN(t *testing.T) {
	kp, err := GenerateKeys(61, 53, 17)
	require.NoError(t, err)
	_, err = Encrypt(3233, kp.Public)
	assert.ErrorIs(t, err, ErrMessageRange)
}

func TestDecryptEncrypt_RoundTrip(t *testing.T) {
	// GIVEN several key pairs, including one with a large modulus
	primes := [][2]uint64{{61, 53}, {101, 113}, {7919, 104729}, {2147483647, 2147483629}}
	rng := rand.New(rand.NewSource(42))
	for _, pq := range primes {
		kp, err := GenerateKeys(pq[0], pq[1], 0)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			// WHEN a random m < n is encrypted then decrypted
			m := uint64(rng.Int63n(int64(kp.N)))
			c, err := Encrypt(m, kp.Public)
			require.NoError(t, err)
			back, err := Decrypt(c.Output, kp.Private)
			require.NoError(t, err)

			// THEN the original message comes back
			assert.Equal(t, m, back.Output, "p=%d q=%d m=%d", pq[0], pq[1], m)
		}
	}
}

func TestEncryptText_RoundTrip(t *testing.T) {
	kp, err := GenerateKeys(7919, 104729, 65537)
	require.NoError(t, err)
	cipher, err := EncryptText("Hello, RSA!", kp.Public)
	require.NoError(t, err)
	plain, err := DecryptText(cipher, kp.Private)
	require.NoError(t, err)
	assert.Equal(t, "Hello, RSA!", plain)
}

func TestIsPrime(t *testing.T) {
	primes := []uint64{2, 3, 5, 97, 7919, 2147483647, 1000000007, 18446744073709551557}
	for _, p := range primes {
		assert.True(t, IsPrime(p), "%d", p)
	}
	composites := []uint64{0, 1, 4, 561, 1105, 3215031751, 2147483649, 18446744073709551615}
	for _, c := range composites {
		assert.False(t, IsPrime(c), "%d", c)
	}
}

func TestModInverse(t *testing.T) {
	d, err := ModInverse(3, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), d)

	_, err = ModInverse(6, 9)
	assert.ErrorIs(t, err, ErrNotCoprime)
}

func TestModPow(t *testing.T) {
	assert.Equal(t, uint64(445), ModPow(4, 13, 497))
	assert.Equal(t, uint64(1), ModPow(5, 0, 7))
	assert.Equal(t, uint64(0), ModPow(5, 3, 1))
}
