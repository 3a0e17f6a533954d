package app

import (
	"context"
	"fmt"

	"github.com/agora-market/agora-auth/internal/pii"
	"github.com/agora-market/agora-auth/internal/storage"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// AccountService exposes profile reads and updates, and the PII disclosure
// gate. The PII payload is sealed before it reaches the store and is never
// handed back out; only the pii_provided flag is readable.
type AccountService struct {
	accounts  AccountStore
	wallets   WalletStore
	piiCipher *pii.Cipher
}

// NewAccountService creates an AccountService
func NewAccountService(accounts AccountStore, wallets WalletStore, piiCipher *pii.Cipher) *AccountService {
	return &AccountService{
		accounts:  accounts,
		wallets:   wallets,
		piiCipher: piiCipher,
	}
}

// Get loads an account with its wallet set
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, apperrors.AccountNotFound(id.String())
	}

	account.Wallets, err = s.wallets.GetByAccountID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	return account, nil
}

// RequiresDisclosure reports whether the account must supply identity
// details before its first high-value transaction. Threshold enforcement
// lives with the transaction processor; this service only owns the flag.
func (s *AccountService) RequiresDisclosure(account *types.Account) bool {
	return !account.PiiProvided
}

// UpdateProfile applies a partial profile update
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, update storage.ProfileUpdate) (*types.Account, error) {
	account, err := s.accounts.UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if account == nil {
		return nil, apperrors.AccountNotFound(id.String())
	}

	account.Wallets, err = s.wallets.GetByAccountID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	return account, nil
}

// SubmitPii validates, encrypts, and stores the identity payload, flipping
// pii_provided to true. All three fields are mandatory.
func (s *AccountService) SubmitPii(ctx context.Context, id uuid.UUID, details *types.PiiDetails) (*types.Account, error) {
	if details == nil || !details.Complete() {
		return nil, apperrors.Validation("fullName, phoneNumber, and address are all required")
	}

	ciphertext, err := s.piiCipher.Seal(id, details)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt pii payload: %w", err)
	}

	account, err := s.accounts.SetPii(ctx, id, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to store pii payload: %w", err)
	}
	if account == nil {
		return nil, apperrors.AccountNotFound(id.String())
	}

	account.Wallets, err = s.wallets.GetByAccountID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	return account, nil
}
