package domain

import (
	"time"

	"github.com/fintrack/auth-service/pkg/constant"
)

type User struct {
	ID                  string
	FullName            string
	Email               string
	PasswordHash        string
	Role                string
	Status              string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	PasswordChangedAt   time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

func (u *User) IsActive() bool {
	return u.Status == constant.StatusActive
}

// IsLocked reports whether the lockout window is still open.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockRemaining returns how long the lockout window has left, or zero when
// the account is not locked.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockedUntil.Sub(now)
}

// RecordFailedLogin applies one failed password check to the record. If a
// previous lock has already expired the counter restarts at 1 instead of
// accumulating across lock cycles. Reaching maxAttempts sets the lock
// window; the counter itself never grows past the sanity ceiling.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	if u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
		u.FailedLoginAttempts = 1
		u.LockedUntil = nil
		return
	}

	u.FailedLoginAttempts++
	if u.FailedLoginAttempts > constant.FailedAttemptCeiling {
		u.FailedLoginAttempts = constant.FailedAttemptCeiling
	}

	if u.FailedLoginAttempts >= maxAttempts && !u.IsLocked(now) {
		until := now.Add(lockDuration)
		u.LockedUntil = &until
	}
}

// RecordSuccessfulLogin clears the failure counter and any lock
// unconditionally.
func (u *User) RecordSuccessfulLogin() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
