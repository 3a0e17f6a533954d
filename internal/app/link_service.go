package app

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-market/agora-auth/internal/ethsig"
	"github.com/agora-market/agora-auth/internal/logger"
	"github.com/agora-market/agora-auth/internal/metrics"
	"github.com/agora-market/agora-auth/internal/validation"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// LinkService runs the two-phase handshake that attaches an additional
// proven wallet to an existing account. Phase one hands a short-lived
// opaque token to the authenticated account; phase two accepts that token
// from anyone who can also prove control of the new address. Which HTTP
// session (if any) presents phase two is deliberately irrelevant.
type LinkService struct {
	linkTokens   LinkTokenStore
	nonces       *NonceService
	accounts     AccountStore
	wallets      WalletStore
	events       EventPublisher
	linkTokenTTL time.Duration
}

// NewLinkService creates a LinkService
func NewLinkService(
	linkTokens LinkTokenStore,
	nonces *NonceService,
	accounts AccountStore,
	wallets WalletStore,
	events EventPublisher,
	linkTokenTTL time.Duration,
) *LinkService {
	return &LinkService{
		linkTokens:   linkTokens,
		nonces:       nonces,
		accounts:     accounts,
		wallets:      wallets,
		events:       events,
		linkTokenTTL: linkTokenTTL,
	}
}

// StartLink issues a link token for the account. The caller relays it
// out-of-band to the device controlling the new wallet.
func (s *LinkService) StartLink(ctx context.Context, accountID uuid.UUID) (*types.LinkToken, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		return nil, apperrors.AccountNotFound(accountID.String())
	}

	value, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate link token: %w", err)
	}

	now := time.Now().UTC()
	token := &types.LinkToken{
		ID:        uuid.New(),
		Token:     value,
		AccountID: accountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.linkTokenTTL),
	}

	if err := s.linkTokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store link token: %w", err)
	}

	return token, nil
}

// ConfirmLink proves control of the new address and attaches it to the
// account the link token was issued for.
//
// The link token and the nonce are both consumed up front and stay consumed
// whatever happens next. A failed confirmation burns them; the client starts
// over with fresh ones.
func (s *LinkService) ConfirmLink(ctx context.Context, linkToken, newWalletAddress, signature, message, nonce string) (*types.Account, error) {
	if linkToken == "" {
		return nil, apperrors.ErrInvalidLinkToken
	}
	if err := validation.ValidateWalletAddress(newWalletAddress); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validation.ValidateSignature(signature); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validation.ValidateNonceValue(nonce); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	newWalletAddress = types.NormalizeAddress(newWalletAddress)

	accountID, ok, err := s.linkTokens.Consume(ctx, linkToken)
	if err != nil {
		return nil, fmt.Errorf("link token consumption failed: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidLinkToken
	}

	ok, err = s.nonces.Consume(ctx, nonce, newWalletAddress)
	if err != nil {
		return nil, fmt.Errorf("nonce consumption failed: %w", err)
	}
	if !ok || !MessageEmbedsNonce(message, nonce) {
		return nil, apperrors.ErrNonceInvalidOrReused
	}

	recovered, err := ethsig.RecoverAddress(message, signature)
	if err != nil {
		return nil, apperrors.InvalidSignature(err.Error())
	}
	if !ethsig.Matches(recovered, newWalletAddress) {
		return nil, apperrors.ErrSignerMismatch
	}

	if err := s.attach(ctx, accountID, newWalletAddress); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload account: %w", err)
	}
	account.Wallets, err = s.wallets.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	metrics.WalletsLinked.Inc()
	s.events.PublishWalletLinked(ctx, accountID, newWalletAddress)
	logger.Info(ctx, "wallet linked", "account_id", accountID, "wallet", newWalletAddress)

	return account, nil
}

// attach claims the address for the account. The storage layer's uniqueness
// constraint decides races; losing the race to a different account is the
// wallet_already_linked failure, losing it to ourselves is a no-op.
func (s *LinkService) attach(ctx context.Context, accountID uuid.UUID, address string) error {
	inserted, err := s.wallets.TryAttach(ctx, accountID, address)
	if err != nil {
		return fmt.Errorf("failed to attach wallet: %w", err)
	}
	if inserted {
		return nil
	}

	existing, err := s.wallets.GetByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to resolve wallet owner: %w", err)
	}
	if existing == nil {
		// Insert lost to a concurrent delete; treat as conflict rather than retry.
		return apperrors.ErrWalletAlreadyLinked
	}
	if existing.AccountID != accountID {
		return apperrors.ErrWalletAlreadyLinked
	}

	return nil
}
