package app

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"
	"time"

	"github.com/agora-market/agora-auth/internal/storage"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memStore is a thread-safe in-memory implementation of every store
// interface the services need. The Consume methods mirror the production
// guarded-UPDATE semantics: check-and-set under one lock.
type memStore struct {
	mu         sync.Mutex
	nonces     map[string]*types.Nonce
	accounts   map[uuid.UUID]*types.Account
	wallets    map[string]*types.Wallet // keyed by address
	sessions   map[string]*types.Session
	linkTokens map[string]*types.LinkToken
	piiBlobs   map[uuid.UUID][]byte
}

func newMemStore() *memStore {
	return &memStore{
		nonces:     make(map[string]*types.Nonce),
		accounts:   make(map[uuid.UUID]*types.Account),
		wallets:    make(map[string]*types.Wallet),
		sessions:   make(map[string]*types.Session),
		linkTokens: make(map[string]*types.LinkToken),
		piiBlobs:   make(map[uuid.UUID][]byte),
	}
}

// --- NonceStore ---

func (m *memStore) Create(ctx context.Context, nonce *types.Nonce) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *nonce
	m.nonces[nonce.Value] = &copied
	return nil
}

func (m *memStore) Consume(ctx context.Context, value, walletAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, ok := m.nonces[value]
	if !ok || nonce.Consumed || nonce.WalletAddress != walletAddress || time.Now().After(nonce.ExpiresAt) {
		return false, nil
	}
	now := time.Now()
	nonce.Consumed = true
	nonce.ConsumedAt = &now
	return true, nil
}

func (m *memStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for value, nonce := range m.nonces {
		if nonce.ExpiresAt.Before(cutoff) {
			delete(m.nonces, value)
			deleted++
		}
	}
	return deleted, nil
}

// --- AccountStore ---

func (m *memStore) CreateWithWallet(ctx context.Context, username, address string) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	account := &types.Account{
		ID:        uuid.New(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	wallet := &types.Wallet{
		ID:        uuid.New(),
		AccountID: account.ID,
		Address:   types.NormalizeAddress(address),
		IsPrimary: true,
		AddedAt:   now,
	}
	m.accounts[account.ID] = account
	m.wallets[wallet.Address] = wallet

	out := *account
	out.Wallets = []*types.Wallet{wallet}
	return &out, nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	out := *account
	return &out, nil
}

func (m *memStore) GetByWallet(ctx context.Context, address string) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[types.NormalizeAddress(address)]
	if !ok {
		return nil, nil
	}
	out := *m.accounts[wallet.AccountID]
	return &out, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, id uuid.UUID, update storage.ProfileUpdate) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	if update.Username != nil {
		account.Username = *update.Username
	}
	if update.DisplayName != nil {
		account.DisplayName = *update.DisplayName
	}
	if update.Email != nil {
		account.Email = *update.Email
	}
	account.UpdatedAt = time.Now()
	out := *account
	return &out, nil
}

func (m *memStore) SetPii(ctx context.Context, id uuid.UUID, ciphertext []byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	m.piiBlobs[id] = ciphertext
	account.PiiProvided = true
	account.UpdatedAt = time.Now()
	out := *account
	return &out, nil
}

// --- WalletStore ---

func (m *memStore) TryAttach(ctx context.Context, accountID uuid.UUID, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	address = types.NormalizeAddress(address)
	if _, taken := m.wallets[address]; taken {
		return false, nil
	}
	m.wallets[address] = &types.Wallet{
		ID:        uuid.New(),
		AccountID: accountID,
		Address:   address,
		AddedAt:   time.Now(),
	}
	return true, nil
}

func (m *memStore) GetByAddress(ctx context.Context, address string) (*types.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[types.NormalizeAddress(address)]
	if !ok {
		return nil, nil
	}
	out := *wallet
	return &out, nil
}

func (m *memStore) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*types.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wallets []*types.Wallet
	for _, wallet := range m.wallets {
		if wallet.AccountID == accountID {
			out := *wallet
			wallets = append(wallets, &out)
		}
	}
	return wallets, nil
}

// --- SessionStore ---

func (m *memStore) CreateSession(ctx context.Context, session *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *memStore) GetByToken(ctx context.Context, token string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	out := *session
	return &out, nil
}

func (m *memStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[token]; ok && !session.Revoked {
		now := time.Now()
		session.Revoked = true
		session.RevokedAt = &now
	}
	return nil
}

// --- LinkTokenStore ---

func (m *memStore) CreateLinkToken(ctx context.Context, token *types.LinkToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *token
	m.linkTokens[token.Token] = &copied
	return nil
}

func (m *memStore) ConsumeLinkToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.linkTokens[token]
	if !ok || record.Consumed || time.Now().After(record.ExpiresAt) {
		return uuid.Nil, false, nil
	}
	now := time.Now()
	record.Consumed = true
	record.ConsumedAt = &now
	return record.AccountID, true, nil
}

// sessionStoreAdapter exposes memStore under the SessionStore interface
// (Create collides between nonce and session stores).
type sessionStoreAdapter struct{ m *memStore }

func (a sessionStoreAdapter) Create(ctx context.Context, s *types.Session) error {
	return a.m.CreateSession(ctx, s)
}
func (a sessionStoreAdapter) GetByToken(ctx context.Context, token string) (*types.Session, error) {
	return a.m.GetByToken(ctx, token)
}
func (a sessionStoreAdapter) Revoke(ctx context.Context, token string) error {
	return a.m.Revoke(ctx, token)
}
func (a sessionStoreAdapter) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// linkTokenStoreAdapter exposes memStore under the LinkTokenStore interface.
type linkTokenStoreAdapter struct{ m *memStore }

func (a linkTokenStoreAdapter) Create(ctx context.Context, t *types.LinkToken) error {
	return a.m.CreateLinkToken(ctx, t)
}
func (a linkTokenStoreAdapter) Consume(ctx context.Context, token string) (uuid.UUID, bool, error) {
	return a.m.ConsumeLinkToken(ctx, token)
}
func (a linkTokenStoreAdapter) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// recordingPublisher captures events for assertions
type recordingPublisher struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
	linked  []string
}

func (p *recordingPublisher) PublishLogin(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, walletAddress)
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, walletAddress)
}

func (p *recordingPublisher) PublishWalletLinked(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.linked = append(p.linked, walletAddress)
}

// testWallet is a generated key pair with wallet-style signing
type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &testWallet{
		key:     key,
		address: types.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
}

// sign produces the 0x-hex personal_sign signature wallets emit (V=27/28)
func (w *testWallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

// authStack wires the services over one shared memStore
type authStack struct {
	store  *memStore
	events *recordingPublisher
	nonces *NonceService
	auth   *AuthService
	link   *LinkService
}

func newAuthStack(t *testing.T) *authStack {
	t.Helper()
	store := newMemStore()
	events := &recordingPublisher{}
	nonces := NewNonceService(store, 5*time.Minute, 600, 600)
	auth := NewAuthService(nonces, store, store, sessionStoreAdapter{store}, events, 24*time.Hour)
	link := NewLinkService(linkTokenStoreAdapter{store}, nonces, store, store, events, 10*time.Minute)
	return &authStack{store: store, events: events, nonces: nonces, auth: auth, link: link}
}
