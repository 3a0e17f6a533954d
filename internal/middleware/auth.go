package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// SessionKey is the context key for the authenticated session
	SessionKey ContextKey = "session"
)

// SessionValidator resolves a bearer token to a live session
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*types.Session, error)
}

// SessionAuth guards routes behind a bearer session token
type SessionAuth struct {
	sessions SessionValidator
}

// NewSessionAuth creates a SessionAuth middleware
func NewSessionAuth(sessions SessionValidator) *SessionAuth {
	return &SessionAuth{sessions: sessions}
}

// Require rejects requests without a valid session and stores the session
// in the request context for handlers.
func (m *SessionAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			m.writeError(w, apperrors.ErrUnauthorized)
			return
		}

		session, err := m.sessions.Validate(r.Context(), token)
		if err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok {
				m.writeError(w, appErr)
			} else {
				m.writeError(w, apperrors.ErrInternalError)
			}
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header, or ""
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetSession retrieves the authenticated session from context, or nil
func GetSession(ctx context.Context) *types.Session {
	session, _ := ctx.Value(SessionKey).(*types.Session)
	return session
}

// GetAccountID retrieves the authenticated account ID from context
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	session := GetSession(ctx)
	if session == nil {
		return uuid.Nil, false
	}
	return session.AccountID, true
}

func (m *SessionAuth) writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
