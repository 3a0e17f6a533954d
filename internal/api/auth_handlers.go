package api

import (
	"net/http"
	"time"

	"github.com/agora-market/agora-auth/internal/middleware"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
)

// NonceRequest asks for a fresh challenge for a wallet
type NonceRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// NonceResponse carries the challenge the wallet must sign
type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyRequest presents a signed challenge
type VerifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Nonce         string `json:"nonce"`
}

// VerifyResponse is a successful login. RequiresDisclosure tells the client
// to prompt for identity details before the account's first large trade.
type VerifyResponse struct {
	Token              string           `json:"token"`
	ExpiresAt          time.Time        `json:"expiresAt"`
	Account            *AccountResponse `json:"account"`
	AccountCreated     bool             `json:"accountCreated"`
	RequiresDisclosure bool             `json:"requiresDisclosure"`
}

// SessionResponse reports session liveness
type SessionResponse struct {
	Success       bool      `json:"success"`
	WalletAddress string    `json:"walletAddress"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// LinkTokenResponse carries a one-time wallet-linking token
type LinkTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ConfirmLinkRequest completes the linking handshake from the new wallet
type ConfirmLinkRequest struct {
	Token            string `json:"token"`
	NewWalletAddress string `json:"newWalletAddress"`
	Signature        string `json:"signature"`
	Message          string `json:"message"`
	Nonce            string `json:"nonce"`
}

// ConfirmLinkResponse reports the updated wallet set
type ConfirmLinkResponse struct {
	Success bool             `json:"success"`
	Account *AccountResponse `json:"account"`
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	var req NonceRequest
	if appErr := s.decodeJSON(r, &req); appErr != nil {
		s.writeError(r.Context(), w, appErr)
		return
	}

	nonce, err := s.nonces.Issue(r.Context(), req.WalletAddress)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NonceResponse{
		Nonce:     nonce.Value,
		Message:   nonce.Message,
		ExpiresAt: nonce.ExpiresAt,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if appErr := s.decodeJSON(r, &req); appErr != nil {
		s.writeError(r.Context(), w, appErr)
		return
	}

	result, err := s.auth.Authenticate(r.Context(), req.WalletAddress, req.Signature, req.Message, req.Nonce)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, VerifyResponse{
		Token:              result.Session.Token,
		ExpiresAt:          result.Session.ExpiresAt,
		Account:            toAccountResponse(result.Account),
		AccountCreated:     result.AccountCreated,
		RequiresDisclosure: !result.Account.PiiProvided,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	s.writeJSON(w, http.StatusOK, SessionResponse{
		Success:       true,
		WalletAddress: session.WalletAddress,
		ExpiresAt:     session.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Revoke(r.Context(), middleware.BearerToken(r)); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLinkToken(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		s.writeError(r.Context(), w, apperrors.ErrUnauthorized)
		return
	}

	token, err := s.links.StartLink(r.Context(), accountID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, LinkTokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

func (s *Server) handleConfirmLink(w http.ResponseWriter, r *http.Request) {
	var req ConfirmLinkRequest
	if appErr := s.decodeJSON(r, &req); appErr != nil {
		s.writeError(r.Context(), w, appErr)
		return
	}

	account, err := s.links.ConfirmLink(r.Context(), req.Token, req.NewWalletAddress, req.Signature, req.Message, req.Nonce)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ConfirmLinkResponse{
		Success: true,
		Account: toAccountResponse(account),
	})
}

// WalletResponse represents a linked wallet in API responses
type WalletResponse struct {
	Address   string    `json:"address"`
	IsPrimary bool      `json:"isPrimary"`
	AddedAt   time.Time `json:"addedAt"`
}

// AccountResponse represents an account in API responses. The PII payload
// never appears here, only the provided flag.
type AccountResponse struct {
	ID              string           `json:"id"`
	Username        string           `json:"username"`
	DisplayName     string           `json:"displayName,omitempty"`
	Email           string           `json:"email,omitempty"`
	ReputationScore int              `json:"reputationScore"`
	PiiProvided     bool             `json:"piiProvided"`
	Wallets         []WalletResponse `json:"wallets"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func toAccountResponse(account *types.Account) *AccountResponse {
	wallets := make([]WalletResponse, 0, len(account.Wallets))
	for _, wallet := range account.Wallets {
		wallets = append(wallets, WalletResponse{
			Address:   wallet.Address,
			IsPrimary: wallet.IsPrimary,
			AddedAt:   wallet.AddedAt,
		})
	}

	return &AccountResponse{
		ID:              account.ID.String(),
		Username:        account.Username,
		DisplayName:     account.DisplayName,
		Email:           account.Email,
		ReputationScore: account.ReputationScore,
		PiiProvided:     account.PiiProvided,
		Wallets:         wallets,
		CreatedAt:       account.CreatedAt,
	}
}
