// Package ethsig recovers Ethereum addresses from EIP-191 personal-message
// signatures. It is pure computation: no store access, no network I/O.
package ethsig

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected byte length of an ECDSA signature (r||s||v).
const SignatureLength = 65

var (
	// ErrMalformedSignature indicates the signature has the wrong length or
	// encoding and was never a candidate for recovery.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrRecoveryFailure indicates the signature decoded cleanly but does not
	// describe a valid curve point for the given message.
	ErrRecoveryFailure = errors.New("signature recovery failed")
)

// RecoverAddress recovers the signer address from an EIP-191 personal_sign
// signature over message. The signature is the 0x-prefixed hex form produced
// by wallet software; the recovery id may be 0/1 or the legacy 27/28.
//
// A valid signature that recovers to an unexpected address is not an error
// here. Comparing the recovered address against a claimed one is the
// caller's job.
func RecoverAddress(message string, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28 per the original yellow-paper convention;
	// crypto.SigToPub wants 0/1.
	v := sig[64]
	if v == 27 || v == 28 {
		sig = append([]byte(nil), sig...)
		sig[64] = v - 27
	} else if v > 1 {
		return common.Address{}, fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, v)
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailure, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// Matches reports whether the recovered address equals the claimed one,
// ignoring hex case.
func Matches(recovered common.Address, claimed string) bool {
	if !common.IsHexAddress(claimed) {
		return false
	}
	return recovered == common.HexToAddress(claimed)
}
