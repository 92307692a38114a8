package code

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// New generates a uniformly random 6-digit verification code, zero-padded to
// six characters. The range is inclusive: 000000 through 999999.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
