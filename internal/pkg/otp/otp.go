// Package otp generates and compares numeric one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const Digits = 6

var upper = big.NewInt(1_000_000)

// Generate returns a uniformly random zero-padded 6-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
