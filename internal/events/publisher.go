// Package events publishes authentication lifecycle events so other
// marketplace services (notifications, escrow) can react to logins,
// logouts, and newly linked wallets. Delivery is best-effort: a publish
// failure is logged and never fails the auth operation that triggered it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/agora-market/agora-auth/internal/logger"
	"github.com/google/uuid"
)

// Topics for auth lifecycle events
const (
	TopicLogin        = "auth.login"
	TopicLogout       = "auth.logout"
	TopicWalletLinked = "auth.wallet_linked"
)

// AuthEvent is the payload published on every topic
type AuthEvent struct {
	AccountID     uuid.UUID `json:"account_id"`
	WalletAddress string    `json:"wallet_address"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher fans auth events out through a watermill publisher
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher creates a Publisher on top of any watermill transport
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// PublishLogin announces a successful authentication
func (p *Publisher) PublishLogin(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.publish(ctx, TopicLogin, accountID, walletAddress)
}

// PublishLogout announces a session revocation
func (p *Publisher) PublishLogout(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.publish(ctx, TopicLogout, accountID, walletAddress)
}

// PublishWalletLinked announces a wallet newly attached to an account
func (p *Publisher) PublishWalletLinked(ctx context.Context, accountID uuid.UUID, walletAddress string) {
	p.publish(ctx, TopicWalletLinked, accountID, walletAddress)
}

func (p *Publisher) publish(ctx context.Context, topic string, accountID uuid.UUID, walletAddress string) {
	event := AuthEvent{
		AccountID:     accountID,
		WalletAddress: walletAddress,
		OccurredAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx, "failed to marshal auth event", "topic", topic, "error", err)
		return
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		// The auth operation already succeeded; losing the event is the
		// lesser failure.
		logger.Error(ctx, "failed to publish auth event", "topic", topic, "error", err)
	}
}

// Close shuts the underlying transport down
func (p *Publisher) Close() error {
	if err := p.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close event publisher: %w", err)
	}
	return nil
}
