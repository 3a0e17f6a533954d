package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/jackc/pgx/v5"
)

// SessionRepository handles bearer session persistence
type SessionRepository struct {
	store *Store
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Create inserts a freshly issued session
func (r *SessionRepository) Create(ctx context.Context, session *types.Session) error {
	query := `
		INSERT INTO sessions (token, account_id, wallet_address, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.store.pool.Exec(ctx, query,
		session.Token,
		session.AccountID,
		session.WalletAddress,
		session.IssuedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its bearer token
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*types.Session, error) {
	query := `
		SELECT token, account_id, wallet_address, issued_at, expires_at, revoked, revoked_at
		FROM sessions
		WHERE token = $1
	`

	var session types.Session
	err := r.store.pool.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.AccountID,
		&session.WalletAddress,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.Revoked,
		&session.RevokedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// Revoke marks a session revoked. Idempotent: revoking a missing or
// already-revoked token is not an error.
func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE sessions
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token = $1 AND revoked = FALSE
	`

	if _, err := r.store.pool.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// DeleteExpired reclaims storage for sessions past their expiry
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	tag, err := r.store.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
