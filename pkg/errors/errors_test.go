package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "error without detail",
			err: &AppError{
				Code:    ErrCodeUnauthorized,
				Message: "Authentication required",
			},
			expected: "unauthorized: Authentication required",
		},
		{
			name: "error with detail",
			err: &AppError{
				Code:    ErrCodeBadRequest,
				Message: "Invalid request",
				Detail:  "missing required field 'walletAddress'",
			},
			expected: "bad_request: Invalid request (missing required field 'walletAddress')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNew(t *testing.T) {
	err := New("test_code", "Test message", http.StatusTeapot)

	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "Test message", err.Message)
	assert.Equal(t, http.StatusTeapot, err.StatusCode)
	assert.Empty(t, err.Detail)
}

func TestNewWithDetail(t *testing.T) {
	err := NewWithDetail(
		"test_code",
		"Test message",
		"Additional details",
		http.StatusBadRequest,
	)

	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "Test message", err.Message)
	assert.Equal(t, "Additional details", err.Detail)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestInvalidSignature(t *testing.T) {
	err := InvalidSignature("signature verification failed")

	assert.Equal(t, ErrCodeInvalidSignature, err.Code)
	assert.Equal(t, "Signature could not be verified", err.Message)
	assert.Equal(t, "signature verification failed", err.Detail)
	assert.Equal(t, http.StatusUnauthorized, err.StatusCode)
}

func TestRateLimited(t *testing.T) {
	err := RateLimited("nonce requests exhausted for address")

	assert.Equal(t, ErrCodeRateLimited, err.Code)
	assert.Contains(t, err.Detail, "nonce")
	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
}

func TestValidation(t *testing.T) {
	err := Validation("fullName is required")

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "fullName is required", err.Detail)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestIsAppError(t *testing.T) {
	t.Run("returns AppError when error is AppError", func(t *testing.T) {
		originalErr := New("test", "test", http.StatusBadRequest)
		appErr, ok := IsAppError(originalErr)

		require.True(t, ok)
		assert.Equal(t, originalErr, appErr)
	})

	t.Run("returns false when error is not AppError", func(t *testing.T) {
		stdErr := errors.New("standard error")
		appErr, ok := IsAppError(stdErr)

		assert.False(t, ok)
		assert.Nil(t, appErr)
	})

	t.Run("works with wrapped errors", func(t *testing.T) {
		originalErr := New("test", "test", http.StatusBadRequest)
		wrappedErr := fmt.Errorf("wrapped: %w", originalErr)

		appErr, ok := IsAppError(wrappedErr)

		require.True(t, ok)
		assert.Equal(t, originalErr, appErr)
	})
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		statusCode int
	}{
		{
			name:       "ErrUnauthorized",
			err:        ErrUnauthorized,
			code:       ErrCodeUnauthorized,
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "ErrNonceInvalidOrReused",
			err:        ErrNonceInvalidOrReused,
			code:       ErrCodeInvalidNonce,
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "ErrSignerMismatch",
			err:        ErrSignerMismatch,
			code:       ErrCodeSignerMismatch,
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "ErrSessionExpiredOrRevoked",
			err:        ErrSessionExpiredOrRevoked,
			code:       ErrCodeSessionInvalid,
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "ErrWalletAlreadyLinked",
			err:        ErrWalletAlreadyLinked,
			code:       ErrCodeWalletAlreadyLinked,
			statusCode: http.StatusConflict,
		},
		{
			name:       "ErrInvalidLinkToken",
			err:        ErrInvalidLinkToken,
			code:       ErrCodeInvalidLinkToken,
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "ErrInternalError",
			err:        ErrInternalError,
			code:       ErrCodeInternalError,
			statusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.statusCode, tt.err.StatusCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	// Verify all error codes are unique and non-empty
	codes := []string{
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeNotFound,
		ErrCodeBadRequest,
		ErrCodeConflict,
		ErrCodeRateLimited,
		ErrCodeInternalError,
		ErrCodeInvalidNonce,
		ErrCodeInvalidSignature,
		ErrCodeSignerMismatch,
		ErrCodeSessionInvalid,
		ErrCodeWalletAlreadyLinked,
		ErrCodeInvalidLinkToken,
		ErrCodeValidation,
		ErrCodeAccountNotFound,
	}

	uniqueCodes := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, uniqueCodes[code], "error code %s is duplicate", code)
		uniqueCodes[code] = true
	}
}

func TestAppError_ImplementsError(t *testing.T) {
	// Verify AppError implements the error interface
	var err error = &AppError{
		Code:    "test",
		Message: "test message",
	}

	assert.NotEmpty(t, err.Error())
}
