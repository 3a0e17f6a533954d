package storage

import (
	"context"
	"fmt"

	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository handles wallet data operations
type WalletRepository struct {
	store *Store
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(store *Store) *WalletRepository {
	return &WalletRepository{store: store}
}

// TryAttach attempts to claim the address for the account. The unique index
// on wallets.address makes the claim race-free: when two callers insert the
// same address concurrently, exactly one row lands and the loser observes
// inserted == false. Returns whether a row was inserted.
func (r *WalletRepository) TryAttach(ctx context.Context, accountID uuid.UUID, address string) (bool, error) {
	query := `
		INSERT INTO wallets (id, account_id, address, is_primary)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (address) DO NOTHING
	`

	tag, err := r.store.pool.Exec(ctx, query, uuid.New(), accountID, types.NormalizeAddress(address))
	if err != nil {
		return false, fmt.Errorf("failed to attach wallet: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByAddress retrieves a wallet by its canonical address
func (r *WalletRepository) GetByAddress(ctx context.Context, address string) (*types.Wallet, error) {
	query := `
		SELECT id, account_id, address, is_primary, added_at
		FROM wallets
		WHERE address = $1
	`

	var wallet types.Wallet
	err := r.store.pool.QueryRow(ctx, query, types.NormalizeAddress(address)).Scan(
		&wallet.ID,
		&wallet.AccountID,
		&wallet.Address,
		&wallet.IsPrimary,
		&wallet.AddedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet by address: %w", err)
	}

	return &wallet, nil
}

// GetByAccountID retrieves all wallets for an account, primary first
func (r *WalletRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*types.Wallet, error) {
	query := `
		SELECT id, account_id, address, is_primary, added_at
		FROM wallets
		WHERE account_id = $1
		ORDER BY is_primary DESC, added_at ASC
	`

	rows, err := r.store.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallets by account ID: %w", err)
	}
	defer rows.Close()

	var wallets []*types.Wallet
	for rows.Next() {
		var wallet types.Wallet
		err := rows.Scan(
			&wallet.ID,
			&wallet.AccountID,
			&wallet.Address,
			&wallet.IsPrimary,
			&wallet.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, &wallet)
	}

	return wallets, nil
}
