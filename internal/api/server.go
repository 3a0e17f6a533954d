package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agora-market/agora-auth/internal/config"
	"github.com/agora-market/agora-auth/internal/logger"
	"github.com/agora-market/agora-auth/internal/middleware"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	nonces      NonceService
	auth        AuthService
	links       LinkService
	accounts    AccountService
	sessionAuth *middleware.SessionAuth
	rateLimiter *middleware.RateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	nonces NonceService,
	auth AuthService,
	links LinkService,
	accounts AccountService,
) *Server {
	return &Server{
		config:      cfg,
		nonces:      nonces,
		auth:        auth,
		links:       links,
		accounts:    accounts,
		sessionAuth: middleware.NewSessionAuth(auth),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitEnabled),
	}
}

// Handler builds the route tree with its middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Unauthenticated auth flow. The confirm-link call carries its own
	// proof (link token + signature) and deliberately takes no session.
	mux.HandleFunc("POST /api/auth/nonce", s.handleNonce)
	mux.HandleFunc("POST /api/auth/verify", s.handleVerify)
	mux.HandleFunc("POST /api/auth/confirm-link", s.handleConfirmLink)

	// Session-guarded routes
	mux.Handle("GET /api/auth/session", s.sessionAuth.Require(http.HandlerFunc(s.handleSession)))
	mux.Handle("POST /api/auth/logout", s.sessionAuth.Require(http.HandlerFunc(s.handleLogout)))
	mux.Handle("POST /api/auth/link-token", s.sessionAuth.Require(http.HandlerFunc(s.handleLinkToken)))
	mux.Handle("GET /api/account/profile", s.sessionAuth.Require(http.HandlerFunc(s.handleGetProfile)))
	mux.Handle("PUT /api/account/profile", s.sessionAuth.Require(http.HandlerFunc(s.handleUpdateProfile)))

	// Chain: RequestID -> RateLimit -> LimitBody -> Logging -> Metrics -> Routes
	return middleware.RequestID(
		s.rateLimiter.Limit(
			middleware.LimitBody(
				s.loggingMiddleware(
					middleware.Metrics(mux)))))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info(context.Background(), "starting server", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := middleware.NewStatusRecorder(w)

		next.ServeHTTP(recorder, r)

		logger.Info(r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// decodeJSON parses a request body into dst
func (s *Server) decodeJSON(r *http.Request, dst interface{}) *apperrors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return apperrors.NewWithDetail(
				apperrors.ErrCodeBadRequest,
				"Request body too large",
				err.Error(),
				http.StatusRequestEntityTooLarge,
			)
		}
		return apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			err.Error(),
			http.StatusBadRequest,
		)
	}
	return nil
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response. Internal failures are logged with
// their detail and returned as an opaque 500.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		logger.Error(ctx, "request failed", "error", err)
		appErr = apperrors.ErrInternalError
	} else if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "code", appErr.Code, "detail", appErr.Detail)
		appErr = apperrors.New(appErr.Code, appErr.Message, appErr.StatusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(appErr)
}
