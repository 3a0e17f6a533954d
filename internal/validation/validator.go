// Package validation checks request field shapes before any store access.
package validation

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// WalletAddressPattern is the regex pattern for hex wallet addresses
var WalletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// SignaturePattern matches a 0x-prefixed 65-byte hex signature (r||s||v)
var SignaturePattern = regexp.MustCompile(`^0x[0-9a-fA-F]{130}$`)

// NonceValuePattern matches the hex nonce values this service issues
var NonceValuePattern = regexp.MustCompile(`^[0-9a-f]{32,128}$`)

// ValidateWalletAddress validates a wallet address format
func ValidateWalletAddress(address string) error {
	if address == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}

	if !WalletAddressPattern.MatchString(address) {
		return fmt.Errorf("invalid wallet address format: must be 0x followed by 40 hex characters")
	}

	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid wallet address")
	}

	return nil
}

// ValidateSignature validates the encoded signature shape. Cryptographic
// verification happens later; this only rejects bodies that could never
// recover.
func ValidateSignature(signature string) error {
	if signature == "" {
		return fmt.Errorf("signature cannot be empty")
	}

	if !SignaturePattern.MatchString(signature) {
		return fmt.Errorf("invalid signature format: must be 0x followed by 130 hex characters")
	}

	return nil
}

// ValidateNonceValue validates the challenge nonce shape
func ValidateNonceValue(nonce string) error {
	if nonce == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	if !NonceValuePattern.MatchString(nonce) {
		return fmt.Errorf("invalid nonce format")
	}

	return nil
}

// ValidateMessage validates the challenge message presented for signing
func ValidateMessage(message string) error {
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	if len(message) > 4096 {
		return fmt.Errorf("message too long: %d bytes", len(message))
	}

	return nil
}
