package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agora-market/agora-auth/internal/logger"
	"github.com/agora-market/agora-auth/internal/metrics"
	"github.com/agora-market/agora-auth/internal/validation"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
	"golang.org/x/time/rate"
)

// challengeTemplate is the human-readable message wallet software shows the
// user before signing. It embeds the address and nonce so the signature is
// bound to exactly one authentication attempt.
const challengeTemplate = "Sign this message to authenticate with Agora Market.\n\nWallet: %s\nNonce: %s\nIssued At: %s"

// NonceService issues and consumes one-time authentication challenges
type NonceService struct {
	nonces NonceStore
	ttl    time.Duration

	// Per-address issuance throttle. Process-local by design: it guards
	// against nonce-exhaustion spam, not against correctness races, which
	// the store-level Consume handles.
	limiters map[string]*addressLimiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

type addressLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewNonceService creates a NonceService
func NewNonceService(nonces NonceStore, ttl time.Duration, perMinute, burst int) *NonceService {
	return &NonceService{
		nonces:   nonces,
		ttl:      ttl,
		limiters: make(map[string]*addressLimiter),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// Issue generates a fresh challenge for the wallet address and stores it as
// issued. Fails with a rate_limited error when the address has exhausted its
// issuance budget.
func (s *NonceService) Issue(ctx context.Context, walletAddress string) (*types.Nonce, error) {
	if err := validation.ValidateWalletAddress(walletAddress); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	walletAddress = types.NormalizeAddress(walletAddress)

	if !s.allow(walletAddress) {
		return nil, apperrors.RateLimited("nonce request budget exhausted for this address")
	}

	value, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now().UTC()
	nonce := &types.Nonce{
		Value:         value,
		WalletAddress: walletAddress,
		Message:       fmt.Sprintf(challengeTemplate, walletAddress, value, now.Format(time.RFC3339)),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}

	if err := s.nonces.Create(ctx, nonce); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	metrics.NoncesIssued.Inc()
	return nonce, nil
}

// Consume atomically spends the nonce for the wallet. True at most once per
// nonce across all callers; false otherwise.
func (s *NonceService) Consume(ctx context.Context, value, walletAddress string) (bool, error) {
	return s.nonces.Consume(ctx, value, types.NormalizeAddress(walletAddress))
}

// MessageEmbedsNonce reports whether the presented message carries the
// nonce. The signature covers the message, so this ties the signature to
// the challenge without a second store read.
func MessageEmbedsNonce(message, nonce string) bool {
	return nonce != "" && strings.Contains(message, nonce)
}

// Sweep deletes long-expired nonces and stale limiters on a ticker until
// the context is cancelled. Expiry enforcement never depends on the sweep;
// Consume re-checks expires_at on every call.
func (s *NonceService) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.nonces.DeleteExpired(ctx, time.Now().Add(-interval))
			if err != nil {
				logger.Warn(ctx, "nonce sweep failed", "error", err)
			} else if deleted > 0 {
				logger.Debug(ctx, "swept expired nonces", "deleted", deleted)
			}
			s.dropStaleLimiters()
		}
	}
}

// allow checks the per-address issuance limiter
func (s *NonceService) allow(walletAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[walletAddress]
	if !exists {
		entry = &addressLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[walletAddress] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// dropStaleLimiters removes limiter entries not seen for a while
func (s *NonceService) dropStaleLimiters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for address, entry := range s.limiters {
		if time.Since(entry.lastSeen) > 10*time.Minute {
			delete(s.limiters, address)
		}
	}
}
