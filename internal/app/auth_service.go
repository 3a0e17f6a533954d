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
)

// AuthService converts signature proofs into bearer sessions. It is the
// only code path that may create an account.
type AuthService struct {
	nonces     *NonceService
	accounts   AccountStore
	wallets    WalletStore
	sessions   SessionStore
	events     EventPublisher
	sessionTTL time.Duration
}

// NewAuthService creates an AuthService
func NewAuthService(
	nonces *NonceService,
	accounts AccountStore,
	wallets WalletStore,
	sessions SessionStore,
	events EventPublisher,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		nonces:     nonces,
		accounts:   accounts,
		wallets:    wallets,
		sessions:   sessions,
		events:     events,
		sessionTTL: sessionTTL,
	}
}

// AuthResult is the outcome of a successful authentication
type AuthResult struct {
	Session        *types.Session
	Account        *types.Account
	AccountCreated bool
}

// Authenticate verifies a signed challenge and issues a session.
//
// The nonce is consumed first, before any signature work: replaying an
// intercepted (signature, message) pair fails here no matter how valid the
// signature is. Consumption is permanent; a failed verification does not
// return the nonce to circulation.
func (s *AuthService) Authenticate(ctx context.Context, walletAddress, signature, message, nonce string) (*AuthResult, error) {
	if err := validation.ValidateWalletAddress(walletAddress); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validation.ValidateSignature(signature); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validation.ValidateNonceValue(nonce); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validation.ValidateMessage(message); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	walletAddress = types.NormalizeAddress(walletAddress)

	ok, err := s.nonces.Consume(ctx, nonce, walletAddress)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(apperrors.ErrCodeInternalError).Inc()
		return nil, fmt.Errorf("nonce consumption failed: %w", err)
	}
	if !ok || !MessageEmbedsNonce(message, nonce) {
		metrics.AuthAttempts.WithLabelValues(apperrors.ErrCodeInvalidNonce).Inc()
		return nil, apperrors.ErrNonceInvalidOrReused
	}

	recovered, err := ethsig.RecoverAddress(message, signature)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(apperrors.ErrCodeInvalidSignature).Inc()
		return nil, apperrors.InvalidSignature(err.Error())
	}
	if !ethsig.Matches(recovered, walletAddress) {
		metrics.AuthAttempts.WithLabelValues(apperrors.ErrCodeSignerMismatch).Inc()
		return nil, apperrors.ErrSignerMismatch
	}

	account, err := s.accounts.GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	created := false
	if account == nil {
		account, err = s.accounts.CreateWithWallet(ctx, usernameFor(walletAddress), walletAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		created = true
		metrics.AccountsCreated.Inc()
		logger.Info(ctx, "account created", "account_id", account.ID, "wallet", walletAddress)
	}

	session, err := s.issueSession(ctx, account, walletAddress)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	s.events.PublishLogin(ctx, account.ID, walletAddress)

	return &AuthResult{Session: session, Account: account, AccountCreated: created}, nil
}

// Validate resolves a bearer token to a live session
func (s *AuthService) Validate(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, apperrors.ErrSessionExpiredOrRevoked
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil || !session.Valid(time.Now()) {
		return nil, apperrors.ErrSessionExpiredOrRevoked
	}

	return session, nil
}

// Revoke invalidates a session token. Idempotent: unknown and
// already-revoked tokens succeed silently.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}

	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if session != nil && !session.Revoked {
		metrics.SessionsRevoked.Inc()
		s.events.PublishLogout(ctx, session.AccountID, session.WalletAddress)
	}

	return nil
}

// issueSession mints and stores a new bearer session
func (s *AuthService) issueSession(ctx context.Context, account *types.Account, walletAddress string) (*types.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &types.Session{
		Token:         token,
		AccountID:     account.ID,
		WalletAddress: walletAddress,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.sessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// usernameFor derives the placeholder username for a first-time wallet.
// Users can change it later through the profile endpoint.
func usernameFor(walletAddress string) string {
	if len(walletAddress) >= 10 {
		return "user_" + walletAddress[2:10]
	}
	return "user_" + walletAddress
}
