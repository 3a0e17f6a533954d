package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/agora-market/agora-auth/internal/api"
	"github.com/agora-market/agora-auth/internal/app"
	"github.com/agora-market/agora-auth/internal/config"
	"github.com/agora-market/agora-auth/internal/events"
	"github.com/agora-market/agora-auth/internal/logger"
	"github.com/agora-market/agora-auth/internal/pii"
	"github.com/agora-market/agora-auth/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	store, err := storage.New(cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("connected to database")

	// Initialize the event transport. In-process by default; a Redis stream
	// when REDIS_URL is set so other marketplace services can subscribe.
	transport, err := newEventTransport(cfg)
	if err != nil {
		slog.Error("failed to initialize event transport", "error", err)
		os.Exit(1)
	}
	publisher := events.NewPublisher(transport)
	defer publisher.Close()

	piiCipher, err := pii.NewCipher(cfg.PiiMasterKey)
	if err != nil {
		slog.Error("failed to initialize pii cipher", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	nonceRepo := storage.NewNonceRepository(store)
	accountRepo := storage.NewAccountRepository(store)
	walletRepo := storage.NewWalletRepository(store)
	sessionRepo := storage.NewSessionRepository(store)
	linkTokenRepo := storage.NewLinkTokenRepository(store)

	// Initialize application services
	nonceService := app.NewNonceService(nonceRepo, cfg.NonceTTL, cfg.NonceRatePerMinute, cfg.NonceBurst)
	authService := app.NewAuthService(nonceService, accountRepo, walletRepo, sessionRepo, publisher, cfg.SessionTTL)
	linkService := app.NewLinkService(linkTokenRepo, nonceService, accountRepo, walletRepo, publisher, cfg.LinkTokenTTL)
	accountService := app.NewAccountService(accountRepo, walletRepo, piiCipher)

	// Background sweepers for expired rows
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go nonceService.Sweep(sweepCtx, 5*time.Minute)
	go sweepSessions(sweepCtx, sessionRepo, linkTokenRepo)

	// Initialize API server
	server := api.NewServer(cfg, nonceService, authService, linkService, accountService)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Wait for either server error or shutdown signal
	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("error during shutdown", "error", err)
			slog.Warn("forcing shutdown")
		}
	}

	slog.Info("server stopped")
}

// newEventTransport picks the watermill publisher backend
func newEventTransport(cfg *config.Config) (message.Publisher, error) {
	if cfg.RedisURL == "" {
		return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	return redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redis.NewClient(opts)},
		watermill.NopLogger{},
	)
}

// sweepSessions deletes long-expired sessions and link tokens hourly
func sweepSessions(ctx context.Context, sessions *storage.SessionRepository, linkTokens *storage.LinkTokenRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-24 * time.Hour)
			if _, err := sessions.DeleteExpired(ctx, cutoff); err != nil {
				slog.Warn("session sweep failed", "error", err)
			}
			if _, err := linkTokens.DeleteExpired(ctx, cutoff); err != nil {
				slog.Warn("link token sweep failed", "error", err)
			}
		}
	}
}
