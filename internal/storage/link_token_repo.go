package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LinkTokenRepository handles wallet-link handshake tokens
type LinkTokenRepository struct {
	store *Store
}

// NewLinkTokenRepository creates a new LinkTokenRepository
func NewLinkTokenRepository(store *Store) *LinkTokenRepository {
	return &LinkTokenRepository{store: store}
}

// Create inserts a freshly issued link token
func (r *LinkTokenRepository) Create(ctx context.Context, token *types.LinkToken) error {
	query := `
		INSERT INTO link_tokens (id, token, account_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.store.pool.Exec(ctx, query,
		token.ID,
		token.Token,
		token.AccountID,
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create link token: %w", err)
	}

	return nil
}

// Consume atomically marks a live link token consumed and returns the
// account it was issued for. Same guarded-UPDATE shape as nonce consumption:
// at most one concurrent caller wins. Returns (uuid.Nil, false) for unknown,
// expired, or already-consumed tokens.
func (r *LinkTokenRepository) Consume(ctx context.Context, token string) (uuid.UUID, bool, error) {
	query := `
		UPDATE link_tokens
		SET consumed = TRUE, consumed_at = NOW()
		WHERE token = $1
		  AND consumed = FALSE
		  AND expires_at > NOW()
		RETURNING account_id
	`

	var accountID uuid.UUID
	err := r.store.pool.QueryRow(ctx, query, token).Scan(&accountID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		// Fail closed on ambiguity.
		return uuid.Nil, false, fmt.Errorf("failed to consume link token: %w", err)
	}

	return accountID, true, nil
}

// DeleteExpired reclaims storage for link tokens past their expiry
func (r *LinkTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM link_tokens WHERE expires_at < $1`

	tag, err := r.store.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired link tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
