package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Clock returns the current time; tests inject a fixed one.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferenceCodeLength is the length of an order reference code
const ReferenceCodeLength = 8

// NewReferenceCode returns 8 uniformly drawn characters from [A-Z0-9].
func NewReferenceCode() (string, error) {
	b := make([]byte, ReferenceCodeLength)
	for i := range b {
		n, err := randIntn(len(referenceAlphabet))
		if err != nil {
			return "", err
		}
		b[i] = referenceAlphabet[n]
	}
	return string(b), nil
}

// IsReferenceCode reports whether s has the shape of a reference code.
func IsReferenceCode(s string) bool {
	if len(s) != ReferenceCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// randIntn returns a uniform int in [0, n) from crypto/rand.
func randIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("randIntn: invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand. When k is smaller
// than len(s) only the first k positions are drawn, which is enough to make
// s[:k] a uniform k-subset in uniform order.
func shuffle[T any](s []T, k int) error {
	if k > len(s) {
		k = len(s)
	}
	for i := 0; i < k; i++ {
		j, err := randIntn(len(s) - i)
		if err != nil {
			return err
		}
		j += i
		s[i], s[j] = s[j], s[i]
	}
	return nil
}
