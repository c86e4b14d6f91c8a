package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// New returns n random bytes hex-encoded.
func New(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRefreshToken generates a cryptographically random 64-character hex token.
func NewRefreshToken() (string, error) {
	return New(32)
}
