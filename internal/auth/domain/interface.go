package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateLoginSecurity(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error
	Deactivate(ctx context.Context, userID string) error

	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshTokenByID(ctx context.Context, id string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
	GetActiveTokenCount(ctx context.Context, userID string) (int, error)
	DeleteOldestRefreshToken(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	RecordLoginAttempt(ctx context.Context, userID, email, ip string, success bool) error
	TrimLoginAttempts(ctx context.Context, keep int) error
}
