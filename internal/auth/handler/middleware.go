package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/fintrack/auth-service/internal/auth/domain"
	"github.com/fintrack/auth-service/internal/auth/revocation"
	"github.com/fintrack/auth-service/internal/auth/service"
	autherror "github.com/fintrack/auth-service/internal/errors"
)

const identityKey = "auth_identity"

// Identity is the read-only annotation attached to an admitted request.
type Identity struct {
	UserID  string
	Email   string
	Role    string
	TokenID string
	Token   string
}

// IdentityFromCtx returns the identity set by RequireAuth.
func IdentityFromCtx(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}

type AuthMiddleware struct {
	tokens   service.TokenGenerator
	registry revocation.Registry
	repo     domain.UserRepository
}

func NewAuthMiddleware(tokens service.TokenGenerator, registry revocation.Registry, repo domain.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		registry: registry,
		repo:     repo,
	}
}

// RequireAuth walks the admission chain: bearer token present, not
// blacklisted, signature valid, not expired, correct type, subject exists,
// account active, not locked. Any failed step short-circuits with its own
// status.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			return respondError(c, autherror.ErrTokenRequired)
		}

		revoked, err := m.registry.IsBlacklisted(c.Context(), tokenString)
		if err != nil {
			return respondError(c, err)
		}
		if revoked {
			return respondError(c, autherror.ErrTokenRevoked)
		}

		claims, err := m.tokens.VerifyAccessToken(tokenString)
		if err != nil {
			return respondError(c, err)
		}

		user, err := m.repo.GetByID(c.Context(), claims.UserID)
		if err != nil {
			return respondError(c, err)
		}
		if user == nil {
			// A token for a vanished subject is dead on arrival; keep
			// it out without another store round-trip next time.
			if blErr := m.registry.Blacklist(c.Context(), tokenString, m.tokens.GetAccessTokenExpiry()); blErr != nil {
				logrus.WithError(blErr).Warn("failed to blacklist orphaned token")
			}
			return respondError(c, autherror.ErrUserNotFound)
		}
		if !user.IsActive() {
			return respondError(c, autherror.ErrAccountDeactivated)
		}

		now := time.Now()
		if user.IsLocked(now) {
			return respondError(c, &autherror.AccountLockedError{RetryAfter: user.LockRemaining(now)})
		}

		// Tokens minted before the last password change are stale.
		if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
			return respondError(c, autherror.ErrTokenInvalid)
		}

		c.Locals(identityKey, Identity{
			UserID:  claims.UserID,
			Email:   claims.Email,
			Role:    claims.Role,
			TokenID: claims.ID,
			Token:   tokenString,
		})

		return c.Next()
	}
}

// RequireRole admits only identities carrying the given role. Must run
// after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromCtx(c)
		if !ok {
			return respondError(c, autherror.ErrTokenRequired)
		}
		if identity.Role != role {
			return respondError(c, autherror.ErrInsufficientRole)
		}

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
