package service

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/fintrack/auth-service/internal/auth/domain UserRepository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrack/auth-service/config"
	"github.com/fintrack/auth-service/internal/auth/domain"
	"github.com/fintrack/auth-service/internal/auth/dto"
	"github.com/fintrack/auth-service/internal/auth/revocation"
	autherror "github.com/fintrack/auth-service/internal/errors"
	"github.com/fintrack/auth-service/pkg/constant"
)

type UserService struct {
	repo     domain.UserRepository
	tokens   TokenGenerator
	registry revocation.Registry
	cfg      *config.Config
}

func NewUserService(repo domain.UserRepository, tokens TokenGenerator, registry revocation.Registry, cfg *config.Config) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		registry: registry,
		cfg:      cfg,
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, *TokenPair, error) {
	email := domain.NormalizeEmail(input.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, autherror.ErrEmailAlreadyInUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:                uuid.NewString(),
		FullName:          input.FullName,
		Email:             email,
		PasswordHash:      string(hashed),
		Role:              constant.DefaultUserRole,
		Status:            constant.StatusActive,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user, "")
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*domain.User, *TokenPair, error) {
	email := domain.NormalizeEmail(input.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, autherror.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, autherror.ErrAccountDeactivated
	}

	now := time.Now()
	if user.IsLocked(now) {
		_ = s.repo.RecordLoginAttempt(ctx, user.ID, email, input.IPAddress, false)
		return nil, nil, &autherror.AccountLockedError{RetryAfter: user.LockRemaining(now)}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		user.RecordFailedLogin(now, s.cfg.MaxLoginAttempts, s.lockoutDuration())
		if err := s.repo.UpdateLoginSecurity(ctx, user.ID, user.FailedLoginAttempts, user.LockedUntil); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to persist lockout state")
		}
		_ = s.repo.RecordLoginAttempt(ctx, user.ID, email, input.IPAddress, false)

		if user.IsLocked(now) {
			return nil, nil, &autherror.AccountLockedError{RetryAfter: user.LockRemaining(now)}
		}
		return nil, nil, autherror.ErrInvalidCredentials
	}

	user.RecordSuccessfulLogin()
	if err := s.repo.UpdateLoginSecurity(ctx, user.ID, 0, nil); err != nil {
		return nil, nil, err
	}
	if err := s.repo.RecordLoginAttempt(ctx, user.ID, email, input.IPAddress, true); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user, input.IPAddress)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked before a
// new pair is minted, so replaying it afterwards always fails.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*domain.User, *TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.repo.GetRefreshTokenByID(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		return nil, nil, autherror.ErrRefreshTokenNotFound
	}
	if stored.Revoked {
		return nil, nil, autherror.ErrRefreshTokenRevoked
	}
	if !time.Now().Before(stored.ExpiresAt) {
		return nil, nil, autherror.ErrRefreshTokenExpired
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return nil, nil, err
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, autherror.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, nil, autherror.ErrAccountDeactivated
	}

	pair, err := s.issueTokens(ctx, user, input.IPAddress)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	return user, nil
}

// Logout blacklists the presented access token for the rest of its lifetime
// and, when the caller supplies its refresh token, revokes that descriptor
// too. Other sessions of the same user stay valid.
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.registry.Blacklist(ctx, accessToken, s.tokens.GetAccessTokenExpiry()); err != nil {
		return err
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		// An unusable refresh token needs no revocation.
		return nil
	}
	return s.repo.RevokeRefreshToken(ctx, claims.ID)
}

// LogoutAll revokes every refresh token of the user and blacklists the
// presented access token.
func (s *UserService) LogoutAll(ctx context.Context, userID, accessToken string) error {
	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return err
	}
	return s.registry.Blacklist(ctx, accessToken, s.tokens.GetAccessTokenExpiry())
}

// ChangePassword verifies the current password, rejects reuse, rehashes, and
// revokes every refresh token as a side effect.
func (s *UserService) ChangePassword(ctx context.Context, userID, accessToken string, input dto.ChangePasswordInput) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return autherror.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.NewPassword)) == nil {
		return autherror.ErrPasswordReused
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.bcryptCost())
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hashed), time.Now()); err != nil {
		return err
	}
	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return err
	}
	return s.registry.Blacklist(ctx, accessToken, s.tokens.GetAccessTokenExpiry())
}

// DeactivateAccount disables the account and ends every session: all
// refresh tokens are revoked and the presented access token is blacklisted.
func (s *UserService) DeactivateAccount(ctx context.Context, userID, accessToken string) error {
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return err
	}
	return s.registry.Blacklist(ctx, accessToken, s.tokens.GetAccessTokenExpiry())
}

func (s *UserService) issueTokens(ctx context.Context, user *domain.User, ip string) (*TokenPair, error) {
	pair, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	rt := &domain.RefreshToken{
		ID:        pair.RefreshTokenID,
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		IPAddress: ip,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.repo.StoreRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	// Cap active descriptors per user; the oldest is silently dropped.
	count, err := s.repo.GetActiveTokenCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if count > s.cfg.MaxActiveTokensPerUser {
		if err := s.repo.DeleteOldestRefreshToken(ctx, user.ID); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to delete oldest refresh token")
		}
	}

	return pair, nil
}

func (s *UserService) bcryptCost() int {
	if s.cfg.BcryptCost >= bcrypt.MinCost && s.cfg.BcryptCost <= bcrypt.MaxCost {
		return s.cfg.BcryptCost
	}
	return bcrypt.DefaultCost
}

func (s *UserService) lockoutDuration() time.Duration {
	return time.Duration(s.cfg.LockoutMinutes) * time.Minute
}

// HashToken is the digest stored in a refresh-token descriptor; raw tokens
// are never persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
