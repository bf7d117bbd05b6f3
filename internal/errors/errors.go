package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrPasswordReused     = errors.New("new password must be different from the current password")
	ErrUserNotFound       = errors.New("user no longer exists")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInsufficientRole   = errors.New("insufficient permissions")

	ErrTokenRequired  = errors.New("access token required")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenWrongType = errors.New("invalid token type")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)

// AccountLockedError carries the remaining lockout window so handlers can
// tell the caller how long to wait.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %d minutes", e.RetryAfterMinutes())
}

// RetryAfterMinutes rounds the remaining window up to whole minutes, never
// reporting zero while the lock is still active.
func (e *AccountLockedError) RetryAfterMinutes() int {
	minutes := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// ValidationError wraps a malformed or incomplete request payload.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}
