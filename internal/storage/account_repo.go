package storage

import (
	"context"
	"fmt"

	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository handles account data operations
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

const accountColumns = `id, username, display_name, email, reputation_score, pii_provided, created_at, updated_at`

func scanAccount(row pgx.Row) (*types.Account, error) {
	var account types.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.DisplayName,
		&account.Email,
		&account.ReputationScore,
		&account.PiiProvided,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateTx creates a new account using the provided transaction or connection
func (r *AccountRepository) CreateTx(ctx context.Context, db DBTX, username string) (*types.Account, error) {
	query := `
		INSERT INTO accounts (id, username)
		VALUES ($1, $2)
		RETURNING ` + accountColumns

	account, err := scanAccount(db.QueryRow(ctx, query, uuid.New(), username))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// CreateWithWallet creates an account together with its primary wallet in a
// single transaction. The unique index on wallets.address aborts the
// transaction if the address was claimed concurrently, so a half-created
// account can never linger.
func (r *AccountRepository) CreateWithWallet(ctx context.Context, username, address string) (*types.Account, error) {
	var account *types.Account

	err := r.store.WithTx(ctx, func(tx pgx.Tx) error {
		created, err := r.CreateTx(ctx, tx, username)
		if err != nil {
			return err
		}

		wallet := &types.Wallet{
			ID:        uuid.New(),
			AccountID: created.ID,
			Address:   types.NormalizeAddress(address),
			IsPrimary: true,
		}
		walletQuery := `
			INSERT INTO wallets (id, account_id, address, is_primary)
			VALUES ($1, $2, $3, $4)
			RETURNING added_at
		`
		if err := tx.QueryRow(ctx, walletQuery, wallet.ID, wallet.AccountID, wallet.Address, wallet.IsPrimary).Scan(&wallet.AddedAt); err != nil {
			return fmt.Errorf("failed to create primary wallet: %w", err)
		}

		created.Wallets = []*types.Wallet{wallet}
		account = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.store.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}

	return account, nil
}

// GetByWallet retrieves the account owning the given wallet address
func (r *AccountRepository) GetByWallet(ctx context.Context, address string) (*types.Account, error) {
	query := `
		SELECT a.id, a.username, a.display_name, a.email, a.reputation_score, a.pii_provided, a.created_at, a.updated_at
		FROM accounts a
		JOIN wallets w ON w.account_id = a.id
		WHERE w.address = $1
	`

	account, err := scanAccount(r.store.pool.QueryRow(ctx, query, types.NormalizeAddress(address)))
	if err != nil {
		return nil, fmt.Errorf("failed to get account by wallet: %w", err)
	}

	return account, nil
}

// ProfileUpdate contains the optional profile fields for a partial update.
// Nil pointers leave the stored value unchanged.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string
	Email       *string
}

// UpdateProfile applies a partial profile update and returns the new state
func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*types.Account, error) {
	query := `
		UPDATE accounts
		SET username     = COALESCE($2, username),
		    display_name = COALESCE($3, display_name),
		    email        = COALESCE($4, email),
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.store.pool.QueryRow(ctx, query, id, update.Username, update.DisplayName, update.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return account, nil
}

// SetPii stores the encrypted identity payload and flips pii_provided.
// The flag is monotonic: once true, later updates keep it true.
func (r *AccountRepository) SetPii(ctx context.Context, id uuid.UUID, ciphertext []byte) (*types.Account, error) {
	query := `
		UPDATE accounts
		SET pii_ciphertext = $2, pii_provided = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.store.pool.QueryRow(ctx, query, id, ciphertext))
	if err != nil {
		return nil, fmt.Errorf("failed to store pii payload: %w", err)
	}

	return account, nil
}

// GetPiiCiphertext returns the stored encrypted payload, or nil when the
// account has not disclosed identity details. Operational surface for
// compliance exports; the HTTP layer never serves it.
func (r *AccountRepository) GetPiiCiphertext(ctx context.Context, id uuid.UUID) ([]byte, error) {
	query := `SELECT pii_ciphertext FROM accounts WHERE id = $1`

	var ciphertext []byte
	err := r.store.pool.QueryRow(ctx, query, id).Scan(&ciphertext)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pii payload: %w", err)
	}

	return ciphertext, nil
}
