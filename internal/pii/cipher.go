// Package pii encrypts identity payloads before they reach the database.
// Plaintext PII never leaves the process boundary.
package pii

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the required master key length in bytes.
const KeySize = chacha20poly1305.KeySize

// hkdfInfo domain-separates PII keys from any other use of the master key.
var hkdfInfo = []byte("agora-auth/pii/v1")

// Cipher seals and opens PII payloads with XChaCha20-Poly1305. Each account
// gets its own subkey derived from the master key, so a leaked ciphertext
// from one account reveals nothing about another even under nonce reuse.
type Cipher struct {
	masterKey []byte
}

// NewCipher creates a Cipher from a 32-byte master key.
func NewCipher(masterKey []byte) (*Cipher, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("pii master key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	key := make([]byte, KeySize)
	copy(key, masterKey)
	return &Cipher{masterKey: key}, nil
}

// Seal encrypts the identity payload for the given account. Output layout is
// nonce || ciphertext; the nonce is random per call.
func (c *Cipher) Seal(accountID uuid.UUID, details *types.PiiDetails) ([]byte, error) {
	plaintext, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pii payload: %w", err)
	}

	aead, err := c.aeadFor(accountID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, accountID[:]), nil
}

// Open decrypts a payload previously produced by Seal for the same account.
func (c *Cipher) Open(accountID uuid.UUID, sealed []byte) (*types.PiiDetails, error) {
	aead, err := c.aeadFor(accountID)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("pii ciphertext too short: %d bytes", len(sealed))
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, accountID[:])
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt pii payload: %w", err)
	}

	var details types.PiiDetails
	if err := json.Unmarshal(plaintext, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pii payload: %w", err)
	}

	return &details, nil
}

// aeadFor derives the per-account AEAD from the master key.
func (c *Cipher) aeadFor(accountID uuid.UUID) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, c.masterKey, accountID[:], hkdfInfo)
	subkey := make([]byte, KeySize)
	if _, err := io.ReadFull(kdf, subkey); err != nil {
		return nil, fmt.Errorf("failed to derive pii subkey: %w", err)
	}

	aead, err := chacha20poly1305.NewX(subkey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct aead: %w", err)
	}
	return aead, nil
}
