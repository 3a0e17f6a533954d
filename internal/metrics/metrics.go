// Package metrics exposes Prometheus instrumentation for the auth flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NoncesIssued counts challenge nonces handed out
	NoncesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_auth_nonces_issued_total",
		Help: "Number of authentication nonces issued",
	})

	// AuthAttempts counts verification attempts by outcome. The reason label
	// is the stable error code for failures and "ok" for success.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_auth_attempts_total",
		Help: "Number of signature verification attempts by outcome",
	}, []string{"reason"})

	// AccountsCreated counts accounts created on first-time wallet auth
	AccountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_auth_accounts_created_total",
		Help: "Number of accounts created by first-time wallet authentication",
	})

	// SessionsRevoked counts explicit logouts
	SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_auth_sessions_revoked_total",
		Help: "Number of sessions revoked via logout",
	})

	// WalletsLinked counts completed link handshakes
	WalletsLinked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_auth_wallets_linked_total",
		Help: "Number of wallets linked to existing accounts",
	})

	// RequestDuration observes HTTP handler latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_auth_request_duration_seconds",
		Help:    "HTTP request latency by path and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})
)
