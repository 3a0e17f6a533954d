package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeAddress lower-cases a hex wallet address. Addresses are
// case-insensitive on chain; the canonical stored form is lower-case.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// Wallet represents a proven blockchain address attached to an account.
// A wallet belongs to exactly one account; the address is globally unique.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Address   string    `json:"address"`
	IsPrimary bool      `json:"is_primary"`
	AddedAt   time.Time `json:"added_at"`
}

// Account represents a marketplace user. Accounts are created only by the
// first successful authentication of a never-seen wallet address.
type Account struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email"`
	ReputationScore int       `json:"reputation_score"`
	PiiProvided     bool      `json:"pii_provided"`
	Wallets         []*Wallet `json:"wallets,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PrimaryWallet returns the account's primary wallet, or nil if the wallet
// set has not been loaded.
func (a *Account) PrimaryWallet() *Wallet {
	for _, w := range a.Wallets {
		if w.IsPrimary {
			return w
		}
	}
	return nil
}

// OwnsWallet reports whether the loaded wallet set contains the address.
func (a *Account) OwnsWallet(address string) bool {
	address = NormalizeAddress(address)
	for _, w := range a.Wallets {
		if w.Address == address {
			return true
		}
	}
	return false
}

// Nonce is a one-time authentication challenge bound to a wallet address.
// It transitions issued -> consumed exactly once; expiry is passive.
type Nonce struct {
	Value         string     `json:"value"`
	WalletAddress string     `json:"wallet_address"`
	Message       string     `json:"message"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Consumed      bool       `json:"consumed"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
}

// Session is the bearer credential issued after a successful signature
// verification. The token is an opaque random secret, never a claim carrier.
type Session struct {
	Token         string     `json:"token"`
	AccountID     uuid.UUID  `json:"account_id"`
	WalletAddress string     `json:"wallet_address"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Revoked       bool       `json:"revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// Valid reports whether the session can authenticate a request at the
// given instant.
func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// LinkToken bridges the two halves of the wallet-linking handshake: issued
// to an authenticated account, redeemed by whoever proves control of the
// new address.
type LinkToken struct {
	ID        uuid.UUID  `json:"id"`
	Token     string     `json:"token"`
	AccountID uuid.UUID  `json:"account_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Consumed  bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// PiiDetails is the identity payload collected before an account's first
// high-value transaction. It is encrypted at rest and never returned from
// read endpoints.
type PiiDetails struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// Complete reports whether all mandatory identity fields are present.
func (p *PiiDetails) Complete() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.PhoneNumber) != "" &&
		strings.TrimSpace(p.Address) != ""
}
