// Package auth generates and verifies the per-switch API tokens that
// authenticate check-ins.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

// tokenBytes is the entropy of a token; the hex encoding doubles the length.
const tokenBytes = 32

// GenerateToken returns a fresh random token: 64 lowercase hex characters.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// VerifyToken compares a presented token against the stored one in constant
// time, so comparison latency leaks nothing about how many leading
// characters matched.
func VerifyToken(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
