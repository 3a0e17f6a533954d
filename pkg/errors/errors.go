package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeForbidden            = "forbidden"
	ErrCodeNotFound             = "not_found"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeConflict             = "conflict"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeInternalError        = "internal_error"
	ErrCodeInvalidNonce         = "invalid_nonce"
	ErrCodeInvalidSignature     = "invalid_signature"
	ErrCodeSignerMismatch       = "signer_mismatch"
	ErrCodeSessionInvalid       = "session_invalid"
	ErrCodeWalletAlreadyLinked  = "wallet_already_linked"
	ErrCodeInvalidLinkToken     = "invalid_link_token"
	ErrCodeValidation           = "validation_error"
	ErrCodeAccountNotFound      = "account_not_found"
)

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Access denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request parameters",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalError = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrNonceInvalidOrReused = &AppError{
		Code:       ErrCodeInvalidNonce,
		Message:    "Nonce is unknown, expired, or already used",
		StatusCode: http.StatusUnauthorized,
	}

	ErrSignerMismatch = &AppError{
		Code:       ErrCodeSignerMismatch,
		Message:    "Signature was produced by a different wallet",
		StatusCode: http.StatusUnauthorized,
	}

	ErrSessionExpiredOrRevoked = &AppError{
		Code:       ErrCodeSessionInvalid,
		Message:    "Session is missing, expired, or revoked",
		StatusCode: http.StatusUnauthorized,
	}

	ErrWalletAlreadyLinked = &AppError{
		Code:       ErrCodeWalletAlreadyLinked,
		Message:    "Wallet is already linked to another account",
		StatusCode: http.StatusConflict,
	}

	ErrInvalidLinkToken = &AppError{
		Code:       ErrCodeInvalidLinkToken,
		Message:    "Link token is unknown, expired, or already used",
		StatusCode: http.StatusUnauthorized,
	}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// InvalidSignature creates an invalid signature error
func InvalidSignature(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidSignature,
		Message:    "Signature could not be verified",
		Detail:     detail,
		StatusCode: http.StatusUnauthorized,
	}
}

// RateLimited creates a rate limited error
func RateLimited(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeRateLimited,
		Message:    "Too many requests",
		Detail:     detail,
		StatusCode: http.StatusTooManyRequests,
	}
}

// Validation creates a field validation error
func Validation(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    "Request validation failed",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// AccountNotFound creates an account not found error
func AccountNotFound(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeAccountNotFound,
		Message:    "Account not found",
		Detail:     detail,
		StatusCode: http.StatusNotFound,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
