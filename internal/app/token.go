package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of every secret this service mints: nonces,
// session tokens, and link tokens. 32 bytes is double the 128-bit floor.
const tokenBytes = 32

// generateToken returns a hex-encoded random secret.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
