package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-market/agora-auth/pkg/types"
)

// NonceRepository handles one-time challenge persistence
type NonceRepository struct {
	store *Store
}

// NewNonceRepository creates a new NonceRepository
func NewNonceRepository(store *Store) *NonceRepository {
	return &NonceRepository{store: store}
}

// Create inserts a freshly issued nonce
func (r *NonceRepository) Create(ctx context.Context, nonce *types.Nonce) error {
	query := `
		INSERT INTO auth_nonces (value, wallet_address, message, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.store.pool.Exec(ctx, query,
		nonce.Value,
		nonce.WalletAddress,
		nonce.Message,
		nonce.IssuedAt,
		nonce.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create nonce: %w", err)
	}

	return nil
}

// Consume atomically marks a matching live nonce as consumed. The guarded
// UPDATE is the anti-replay mechanism: across any number of service
// instances sharing the database, at most one caller sees a row change.
// Returns false on unknown, expired, already-consumed, or wrong-wallet
// nonces, leaving state untouched.
func (r *NonceRepository) Consume(ctx context.Context, value, walletAddress string) (bool, error) {
	query := `
		UPDATE auth_nonces
		SET consumed = TRUE, consumed_at = NOW()
		WHERE value = $1
		  AND wallet_address = $2
		  AND consumed = FALSE
		  AND expires_at > NOW()
	`

	tag, err := r.store.pool.Exec(ctx, query, value, walletAddress)
	if err != nil {
		// Fail closed: an ambiguous store error is a failed consume, never a success.
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteExpired reclaims storage for nonces that expired before the cutoff.
// Expiry itself is passive; this only trims dead rows.
func (r *NonceRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_nonces WHERE expires_at < $1`

	tag, err := r.store.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired nonces: %w", err)
	}

	return tag.RowsAffected(), nil
}
