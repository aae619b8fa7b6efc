// Package rsa walks through textbook RSA: key generation from two primes,
// and encryption/decryption by square-and-multiply modular exponentiation.
// It is a teaching aid over 64-bit integers, not a cryptographic library.
package rsa

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/cstopics/cstopics/sim/trace"
)

var (
	// ErrNotPrime is returned when p or q is not prime.
	ErrNotPrime = errors.New("p and q must both be prime")
	// ErrSamePrime is returned when p == q.
	ErrSamePrime = errors.New("p and q must be distinct")
	// ErrNotCoprime is returned when e shares a factor with phi(n).
	ErrNotCoprime = errors.New("e must be coprime with phi(n)")
	// ErrExponent is returned when e is outside (1, phi(n)).
	ErrExponent = errors.New("e must satisfy 1 < e < phi(n)")
	// ErrMessageRange is returned when a message or ciphertext is not below n.
	ErrMessageRange = errors.New("message must be less than n")
	// ErrTooLarge is returned when n would not fit in 63 bits.
	ErrTooLarge = errors.New("p*q must be below 2^63")
)

// PublicKey is (n, e).
type PublicKey struct {
	N uint64 `json:"n" yaml:"n"`
	E uint64 `json:"e" yaml:"e"`
}

// PrivateKey is (n, d).
type PrivateKey struct {
	N uint64 `json:"n" yaml:"n"`
	D uint64 `json:"d" yaml:"d"`
}

// KeyPair holds every intermediate of key generation.
type KeyPair struct {
	P       uint64     `json:"p" yaml:"p"`
	Q       uint64     `json:"q" yaml:"q"`
	N       uint64     `json:"n" yaml:"n"`
	Phi     uint64     `json:"phi" yaml:"phi"`
	Public  PublicKey  `json:"public" yaml:"public"`
	Private PrivateKey `json:"private" yaml:"private"`
	Steps   []string   `json:"steps" yaml:"steps"`
}

// Exchange is the result of one encryption or decryption.
type Exchange struct {
	Input    uint64   `json:"input" yaml:"input"`
	Output   uint64   `json:"output" yaml:"output"`
	Exponent uint64   `json:"exponent" yaml:"exponent"`
	Modulus  uint64   `json:"modulus" yaml:"modulus"`
	Steps    []string `json:"steps" yaml:"steps"`
}

// GenerateKeys derives an RSA key pair. When e is 0 the smallest odd e >= 3
// coprime with phi(n) is chosen.
func GenerateKeys(p, q, e uint64) (KeyPair, error) {
	if !IsPrime(p) || !IsPrime(q) {
		return KeyPair{}, fmt.Errorf("%w: p=%d q=%d", ErrNotPrime, p, q)
	}
	if p == q {
		return KeyPair{}, fmt.Errorf("%w: p=q=%d", ErrSamePrime, p)
	}
	hi, n := bits.Mul64(p, q)
	if hi != 0 || n > 1<<63-1 {
		return KeyPair{}, fmt.Errorf("%w: p=%d q=%d", ErrTooLarge, p, q)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	phi := (p - 1) * (q - 1)
	rec.Stepf("n = p*q = %d*%d = %d", p, q, n)
	rec.Stepf("phi(n) = (p-1)*(q-1) = %d*%d = %d", p-1, q-1, phi)

	if e == 0 {
		for cand := uint64(3); cand < phi; cand += 2 {
			if GCD(cand, phi) == 1 {
				e = cand
				break
			}
		}
		if e == 0 {
			return KeyPair{}, fmt.Errorf("%w: no valid e below phi(n)=%d", ErrExponent, phi)
		}
		rec.Stepf("choose the smallest odd e coprime with %d: e = %d", phi, e)
	}
	if e <= 1 || e >= phi {
		return KeyPair{}, fmt.Errorf("%w: e=%d phi=%d", ErrExponent, e, phi)
	}
	if g := GCD(e, phi); g != 1 {
		return KeyPair{}, fmt.Errorf("%w: gcd(%d, %d) = %d", ErrNotCoprime, e, phi, g)
	}
	rec.Stepf("gcd(e, phi(n)) = gcd(%d, %d) = 1", e, phi)

	rec.Stepf("extended Euclid on (%d, %d):", e, phi)
	d, err := modInverse(e, phi, rec)
	if err != nil {
		return KeyPair{}, err
	}
	rec.Stepf("d = e^-1 mod phi(n) = %d (check: %d*%d mod %d = 1)", d, e, d, phi)
	rec.Stepf("public key (n=%d, e=%d), private key (n=%d, d=%d)", n, e, n, d)

	return KeyPair{
		P:       p,
		Q:       q,
		N:       n,
		Phi:     phi,
		Public:  PublicKey{N: n, E: e},
		Private: PrivateKey{N: n, D: d},
		Steps:   rec.Steps(),
	}, nil
}

// Encrypt computes c = m^e mod n.
func Encrypt(m uint64, pub PublicKey) (Exchange, error) {
	return exchange("encrypt", m, pub.E, pub.N)
}

// Decrypt computes m = c^d mod n.
func Decrypt(c uint64, priv PrivateKey) (Exchange, error) {
	return exchange("decrypt", c, priv.D, priv.N)
}

func exchange(op string, in, exp, n uint64) (Exchange, error) {
	if n < 2 {
		return Exchange{}, fmt.Errorf("%w: n=%d", ErrMessageRange, n)
	}
	if in >= n {
		return Exchange{}, fmt.Errorf("%w: %d >= %d", ErrMessageRange, in, n)
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	rec.Stepf("%s: %d^%d mod %d, exponent bits %b", op, in, exp, n, exp)
	out := modPow(in, exp, n, rec)
	rec.Stepf("result: %d", out)
	return Exchange{Input: in, Output: out, Exponent: exp, Modulus: n, Steps: rec.Steps()}, nil
}

// EncryptText encrypts each rune of text independently.
func EncryptText(text string, pub PublicKey) ([]uint64, error) {
	out := make([]uint64, 0, len(text))
	for _, r := range text {
		ex, err := Encrypt(uint64(r), pub)
		if err != nil {
			return nil, fmt.Errorf("rune %q: %w", r, err)
		}
		out = append(out, ex.Output)
	}
	return out, nil
}

// DecryptText reverses EncryptText.
func DecryptText(cipher []uint64, priv PrivateKey) (string, error) {
	runes := make([]rune, 0, len(cipher))
	for i, c := range cipher {
		ex, err := Decrypt(c, priv)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", i, err)
		}
		runes = append(runes, rune(ex.Output))
	}
	return string(runes), nil
}
