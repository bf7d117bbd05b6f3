// Package revocation tracks access tokens that must be rejected despite an
// otherwise valid signature and expiry.
package revocation

//go:generate mockgen -destination=../../mocks/mock_revocation_registry.go -package=mocks github.com/fintrack/auth-service/internal/auth/revocation Registry

import (
	"context"
	"time"
)

// Registry is the revocation store consulted by the session middleware.
// Memory is the single-instance default; Redis shares the blacklist across
// horizontally scaled instances.
type Registry interface {
	// Blacklist records a raw token string for at least ttl.
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	// IsBlacklisted reports whether the token has been revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	// EvictExpired drops entries past their ttl and returns how many were
	// removed.
	EvictExpired(ctx context.Context) (int, error)
}
