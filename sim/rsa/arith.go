package rsa

import (
	"math/bits"

	"github.com/cstopics/cstopics/sim/trace"
)

// mulMod returns a*b mod m using a 128-bit intermediate product. a and b must be < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// ModPow computes base^exp mod m by left-to-right square-and-multiply.
func ModPow(base, exp, m uint64) uint64 {
	return modPow(base, exp, m, nil)
}

func modPow(base, exp, m uint64, rec *trace.Recorder) uint64 {
	if m == 1 {
		return 0
	}
	base %= m
	result := uint64(1)
	for i := bits.Len64(exp) - 1; i >= 0; i-- {
		result = mulMod(result, result, m)
		if exp>>uint(i)&1 == 1 {
			result = mulMod(result, base, m)
			rec.Stepf("bit %d = 1: square and multiply -> %d", i, result)
		} else {
			rec.Stepf("bit %d = 0: square -> %d", i, result)
		}
	}
	return result
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ModInverse returns x with a*x ≡ 1 (mod m) using the extended Euclidean
// algorithm. m must be below 2^63.
func ModInverse(a, m uint64) (uint64, error) {
	return modInverse(a, m, nil)
}

func modInverse(a, m uint64, rec *trace.Recorder) (uint64, error) {
	if m < 2 || m > 1<<63-1 {
		return 0, ErrTooLarge
	}
	oldR, r := int64(a%m), int64(m)
	oldS, s := int64(1), int64(0)
	for r != 0 {
		q := oldR / r
		rec.Stepf("%d = %d*%d + %d", oldR, q, r, oldR-q*r)
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	if oldR != 1 {
		return 0, ErrNotCoprime
	}
	if oldS < 0 {
		oldS += int64(m)
	}
	return uint64(oldS), nil
}

// IsPrime reports whether n is prime. Deterministic Miller-Rabin: the witness
// set below is exact for every 64-bit n.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	witnesses := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}
	for _, p := range witnesses {
		if n%p == 0 {
			return n == p
		}
	}
	d, s := n-1, 0
	for d%2 == 0 {
		d /= 2
		s++
	}
	for _, a := range witnesses {
		x := ModPow(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for i := 1; i < s; i++ {
			x = mulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}
