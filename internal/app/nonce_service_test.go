package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueNonce(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, 5*time.Minute, 600, 600)
	wallet := newTestWallet(t)
	ctx := context.Background()

	nonce, err := service.Issue(ctx, wallet.address)
	require.NoError(t, err)

	assert.Equal(t, wallet.address, nonce.WalletAddress)
	assert.Len(t, nonce.Value, 64)
	assert.Contains(t, nonce.Message, nonce.Value)
	assert.Contains(t, nonce.Message, wallet.address)
	assert.True(t, nonce.ExpiresAt.After(nonce.IssuedAt))

	second, err := service.Issue(ctx, wallet.address)
	require.NoError(t, err)
	assert.NotEqual(t, nonce.Value, second.Value)
}

func TestIssueNonceInvalidAddress(t *testing.T) {
	service := NewNonceService(newMemStore(), 5*time.Minute, 600, 600)

	for _, address := range []string{"", "0x123", "not-hex", "0x" + strings.Repeat("zz", 20)} {
		_, err := service.Issue(context.Background(), address)
		require.Error(t, err, address)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
	}
}

func TestIssueNonceRateLimitPerAddress(t *testing.T) {
	service := NewNonceService(newMemStore(), 5*time.Minute, 5, 5)
	throttled := newTestWallet(t)
	fresh := newTestWallet(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.Issue(ctx, throttled.address)
		require.NoError(t, err, "request %d", i)
	}

	_, err := service.Issue(ctx, throttled.address)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimited, appErr.Code)

	// the budget is per address, other wallets are unaffected
	_, err = service.Issue(ctx, fresh.address)
	assert.NoError(t, err)
}

func TestConsumeNonceSingleUse(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, 5*time.Minute, 600, 600)
	wallet := newTestWallet(t)
	ctx := context.Background()

	nonce, err := service.Issue(ctx, wallet.address)
	require.NoError(t, err)

	ok, err := service.Consume(ctx, nonce.Value, wallet.address)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Consume(ctx, nonce.Value, wallet.address)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeNonceExactlyOnceUnderContention(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, 5*time.Minute, 600, 600)
	wallet := newTestWallet(t)
	ctx := context.Background()

	nonce, err := service.Issue(ctx, wallet.address)
	require.NoError(t, err)

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := service.Consume(ctx, nonce.Value, wallet.address)
			if err == nil && ok {
				results <- true
			}
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for range results {
		winners++
	}
	assert.Equal(t, 1, winners)
}

func TestConsumeNonceWrongWallet(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, 5*time.Minute, 600, 600)
	owner := newTestWallet(t)
	other := newTestWallet(t)
	ctx := context.Background()

	nonce, err := service.Issue(ctx, owner.address)
	require.NoError(t, err)

	ok, err := service.Consume(ctx, nonce.Value, other.address)
	require.NoError(t, err)
	assert.False(t, ok)

	// the mismatch did not spend it for the rightful owner
	ok, err = service.Consume(ctx, nonce.Value, owner.address)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsumeExpiredNonce(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, time.Millisecond, 600, 600)
	wallet := newTestWallet(t)
	ctx := context.Background()

	nonce, err := service.Issue(ctx, wallet.address)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	ok, err := service.Consume(ctx, nonce.Value, wallet.address)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageEmbedsNonce(t *testing.T) {
	assert.True(t, MessageEmbedsNonce("Nonce: abc123", "abc123"))
	assert.False(t, MessageEmbedsNonce("Nonce: abc123", "def456"))
	assert.False(t, MessageEmbedsNonce("anything", ""))
	assert.False(t, MessageEmbedsNonce("", "abc123"))
}

func TestSweepRemovesExpiredNonces(t *testing.T) {
	store := newMemStore()
	service := NewNonceService(store, time.Millisecond, 600, 600)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		wallet := newTestWallet(t)
		_, err := service.Issue(ctx, wallet.address)
		require.NoError(t, err)
	}
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		service.Sweep(ctx, 2*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.nonces) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop on context cancellation")
	}
}

func TestLimiterMapDoesNotGrowUnbounded(t *testing.T) {
	service := NewNonceService(newMemStore(), 5*time.Minute, 600, 600)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		address := fmt.Sprintf("0x%040x", i+1)
		_, err := service.Issue(ctx, address)
		require.NoError(t, err)
	}

	service.mu.Lock()
	for _, limiter := range service.limiters {
		limiter.lastSeen = time.Now().Add(-time.Hour)
	}
	service.mu.Unlock()

	service.dropStaleLimiters()

	service.mu.Lock()
	remaining := len(service.limiters)
	service.mu.Unlock()
	assert.Zero(t, remaining)
}
