package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_002", "Invalid amount", http.StatusBadRequest),
			expected: "[PAY_002] Invalid amount",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("PAY_002", "test", http.StatusBadRequest).Unwrap())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("burn: %w", ErrInsufficientBalance("10.00", "5.00"))

	assert.True(t, errors.Is(err, ErrInsufficientBalance("", "")))
	assert.False(t, errors.Is(err, ErrInvalidAmount()))
}

func TestInsufficientBalance_Details(t *testing.T) {
	err := ErrInsufficientBalance("1500.00", "1000.00")

	assert.Equal(t, "PAY_001", err.Code)
	assert.Equal(t, http.StatusPaymentRequired, err.HTTPStatus)
	assert.Equal(t, "1500.00", err.Details["attempted"])
	assert.Equal(t, "1000.00", err.Details["available"])
}

func TestErrorCatalogue(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"SignatureInvalid", ErrSignatureInvalid(), "SEC_001", 401},
		{"InvalidToken", ErrInvalidToken(), "SEC_002", 401},
		{"InvalidAmount", ErrInvalidAmount(), "PAY_002", 400},
		{"IdempotencyConflict", ErrIdempotencyConflict(), "PAY_003", 409},
		{"WalletNotFound", ErrWalletNotFound(), "PAY_004", 404},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"Validation", Validation("bad"), "VAL_001", 400},
		{"PayloadTooLarge", ErrPayloadTooLarge(1024), "VAL_002", 413},
		{"Internal", InternalError(errors.New("x")), "SYS_001", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Transaction")
	assert.Contains(t, err.Message, "Transaction")
	assert.Equal(t, "PAY_004", err.Code)
}
