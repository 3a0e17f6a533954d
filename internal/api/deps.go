package api

import (
	"context"

	"github.com/agora-market/agora-auth/internal/app"
	"github.com/agora-market/agora-auth/internal/storage"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// AuthService is the subset of app.AuthService used by the API layer.
// It is an interface to allow handler-level unit tests without a database.
type AuthService interface {
	Authenticate(ctx context.Context, walletAddress, signature, message, nonce string) (*app.AuthResult, error)
	Validate(ctx context.Context, token string) (*types.Session, error)
	Revoke(ctx context.Context, token string) error
}

// NonceService issues authentication challenges
type NonceService interface {
	Issue(ctx context.Context, walletAddress string) (*types.Nonce, error)
}

// LinkService runs the wallet-linking handshake
type LinkService interface {
	StartLink(ctx context.Context, accountID uuid.UUID) (*types.LinkToken, error)
	ConfirmLink(ctx context.Context, linkToken, newWalletAddress, signature, message, nonce string) (*types.Account, error)
}

// AccountService reads and updates profiles
type AccountService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update storage.ProfileUpdate) (*types.Account, error)
	SubmitPii(ctx context.Context, id uuid.UUID, details *types.PiiDetails) (*types.Account, error)
}
