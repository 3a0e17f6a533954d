package app

import (
	"context"
	"time"

	"github.com/agora-market/agora-auth/internal/storage"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// The services below depend on narrow store interfaces rather than the pgx
// repositories directly so they can be unit-tested against in-memory fakes.
// The storage package provides the production implementations.

// NonceStore persists one-time challenges
type NonceStore interface {
	Create(ctx context.Context, nonce *types.Nonce) error
	// Consume must be atomic across concurrent callers and service
	// instances: at most one Consume per nonce ever returns true.
	Consume(ctx context.Context, value, walletAddress string) (bool, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccountStore persists accounts and their profile state
type AccountStore interface {
	CreateWithWallet(ctx context.Context, username, address string) (*types.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Account, error)
	GetByWallet(ctx context.Context, address string) (*types.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update storage.ProfileUpdate) (*types.Account, error)
	SetPii(ctx context.Context, id uuid.UUID, ciphertext []byte) (*types.Account, error)
}

// WalletStore persists the account-wallet relationship
type WalletStore interface {
	// TryAttach claims the address for the account; the implementation must
	// rely on a storage-level uniqueness constraint, not check-then-insert.
	TryAttach(ctx context.Context, accountID uuid.UUID, address string) (bool, error)
	GetByAddress(ctx context.Context, address string) (*types.Wallet, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*types.Wallet, error)
}

// SessionStore persists bearer sessions
type SessionStore interface {
	Create(ctx context.Context, session *types.Session) error
	GetByToken(ctx context.Context, token string) (*types.Session, error)
	Revoke(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// LinkTokenStore persists wallet-link handshake tokens
type LinkTokenStore interface {
	Create(ctx context.Context, token *types.LinkToken) error
	Consume(ctx context.Context, token string) (uuid.UUID, bool, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher fans auth lifecycle events out to other services.
// Implementations must be best-effort: they log failures and never return
// them into the auth path.
type EventPublisher interface {
	PublishLogin(ctx context.Context, accountID uuid.UUID, walletAddress string)
	PublishLogout(ctx context.Context, accountID uuid.UUID, walletAddress string)
	PublishWalletLinked(ctx context.Context, accountID uuid.UUID, walletAddress string)
}
