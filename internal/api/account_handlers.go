package api

import (
	"net/http"

	"github.com/agora-market/agora-auth/internal/middleware"
	"github.com/agora-market/agora-auth/internal/storage"
	apperrors "github.com/agora-market/agora-auth/pkg/errors"
	"github.com/agora-market/agora-auth/pkg/types"
	"github.com/google/uuid"
)

// UpdateProfileRequest is a partial profile update. When all three identity
// fields are supplied together the update runs through the PII disclosure
// path instead; the payload is encrypted and only pii_provided is readable
// afterwards.
type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`

	FullName    string `json:"fullName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (req *UpdateProfileRequest) piiDetails() *types.PiiDetails {
	if req.FullName == "" && req.PhoneNumber == "" && req.Address == "" {
		return nil
	}
	return &types.PiiDetails{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		s.writeError(r.Context(), w, apperrors.ErrUnauthorized)
		return
	}

	account, err := s.accounts.Get(r.Context(), accountID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		s.writeError(r.Context(), w, apperrors.ErrUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if appErr := s.decodeJSON(r, &req); appErr != nil {
		s.writeError(r.Context(), w, appErr)
		return
	}

	account, err := s.applyProfileUpdate(r, accountID, &req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) applyProfileUpdate(r *http.Request, accountID uuid.UUID, req *UpdateProfileRequest) (*types.Account, error) {
	if details := req.piiDetails(); details != nil {
		account, err := s.accounts.SubmitPii(r.Context(), accountID, details)
		if err != nil {
			return nil, err
		}
		if req.Username == nil && req.DisplayName == nil && req.Email == nil {
			return account, nil
		}
	}

	return s.accounts.UpdateProfile(r.Context(), accountID, storage.ProfileUpdate{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	})
}
