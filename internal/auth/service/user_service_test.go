package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrack/auth-service/config"
	"github.com/fintrack/auth-service/internal/auth/domain"
	"github.com/fintrack/auth-service/internal/auth/dto"
	"github.com/fintrack/auth-service/internal/auth/service"
	autherror "github.com/fintrack/auth-service/internal/errors"
	"github.com/fintrack/auth-service/internal/mocks"
	"github.com/fintrack/auth-service/pkg/constant"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxLoginAttempts:       5,
		LockoutMinutes:         30,
		BcryptCost:             bcrypt.MinCost,
		MaxActiveTokensPerUser: 5,
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	return &domain.User{
		ID:           "user-123",
		FullName:     "Alice Example",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, password),
		Role:         constant.DefaultUserRole,
		Status:       constant.StatusActive,
	}
}

func tokenPair() *service.TokenPair {
	return &service.TokenPair{
		AccessToken:      "access-token",
		RefreshToken:     "refresh-token",
		AccessTokenID:    "access-jti",
		RefreshTokenID:   "refresh-jti",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}
}

func newService(ctrl *gomock.Controller) (*service.UserService, *mocks.MockUserRepository, *mocks.MockTokenGenerator, *mocks.MockRegistry) {
	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	mockRegistry := mocks.NewMockRegistry(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, mockRegistry, testConfig())
	return s, mockRepo, mockTokens, mockRegistry
}

func TestUserService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)

	input := dto.RegisterInput{
		FullName: "Alice Example",
		Email:    "Alice@Example.com",
		Password: "Passw0rd!",
	}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, nil)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *domain.User) error {
			assert.Equal(t, "alice@example.com", u.Email)
			assert.Equal(t, constant.DefaultUserRole, u.Role)
			assert.Equal(t, constant.StatusActive, u.Status)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)))
			return nil
		})
	mockTokens.EXPECT().Generate(gomock.Any(), "alice@example.com", constant.DefaultUserRole).Return(tokenPair(), nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().GetActiveTokenCount(gomock.Any(), gomock.Any()).Return(1, nil)

	user, pair, err := s.Register(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, pair)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "access-token", pair.AccessToken)
}

func TestUserService_Register_EmailAlreadyInUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)

	existing := &domain.User{ID: "existing", Email: "alice@example.com"}
	mockRepo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(existing, nil)

	_, _, err := s.Register(context.Background(), dto.RegisterInput{
		FullName: "Alice",
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})

	assert.ErrorIs(t, err, autherror.ErrEmailAlreadyInUse)
}

func TestUserService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().UpdateLoginSecurity(gomock.Any(), user.ID, 0, gomock.Nil()).Return(nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, "10.0.0.1", true).Return(nil)
	mockTokens.EXPECT().Generate(user.ID, user.Email, user.Role).Return(tokenPair(), nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rt *domain.RefreshToken) error {
			assert.Equal(t, "refresh-jti", rt.ID)
			assert.Equal(t, user.ID, rt.UserID)
			assert.Equal(t, service.HashToken("refresh-token"), rt.TokenHash)
			assert.False(t, rt.Revoked)
			return nil
		})
	mockRepo.EXPECT().GetActiveTokenCount(gomock.Any(), user.ID).Return(1, nil)

	got, pair, err := s.Login(context.Background(), dto.LoginInput{
		Email:     user.Email,
		Password:  "Passw0rd!",
		IPAddress: "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().UpdateLoginSecurity(gomock.Any(), user.ID, 1, gomock.Nil()).Return(nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, gomock.Any(), false).Return(nil)

	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "wrong",
	})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
}

func TestUserService_Login_LocksAtMaxAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")
	user.FailedLoginAttempts = 4

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().UpdateLoginSecurity(gomock.Any(), user.ID, 5, gomock.Not(gomock.Nil())).Return(nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, gomock.Any(), false).Return(nil)

	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "wrong",
	})

	var locked *autherror.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 30, locked.RetryAfterMinutes())
}

func TestUserService_Login_RejectedWhileLocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")
	user.FailedLoginAttempts = 5
	until := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &until

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, gomock.Any(), false).Return(nil)

	// Even the correct password is rejected while the window is open.
	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "Passw0rd!",
	})

	var locked *autherror.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.RetryAfter, time.Duration(0))
}

func TestUserService_Login_SucceedsAfterLockExpires(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")
	user.FailedLoginAttempts = 5
	expired := time.Now().Add(-time.Minute)
	user.LockedUntil = &expired

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().UpdateLoginSecurity(gomock.Any(), user.ID, 0, gomock.Nil()).Return(nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, gomock.Any(), true).Return(nil)
	mockTokens.EXPECT().Generate(user.ID, user.Email, user.Role).Return(tokenPair(), nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().GetActiveTokenCount(gomock.Any(), user.ID).Return(1, nil)

	got, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "Passw0rd!",
	})

	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)
}

func TestUserService_Login_DeactivatedAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")
	user.Status = constant.StatusDeactivated

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)

	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "Passw0rd!",
	})

	assert.ErrorIs(t, err, autherror.ErrAccountDeactivated)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever",
	})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
}

func TestUserService_Login_EvictsOldestTokenPastCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	mockRepo.EXPECT().UpdateLoginSecurity(gomock.Any(), user.ID, 0, gomock.Nil()).Return(nil)
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), user.ID, user.Email, gomock.Any(), true).Return(nil)
	mockTokens.EXPECT().Generate(user.ID, user.Email, user.Role).Return(tokenPair(), nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().GetActiveTokenCount(gomock.Any(), user.ID).Return(6, nil)
	mockRepo.EXPECT().DeleteOldestRefreshToken(gomock.Any(), user.ID).Return(nil)

	_, _, err := s.Login(context.Background(), dto.LoginInput{
		Email:    user.Email,
		Password: "Passw0rd!",
	})

	require.NoError(t, err)
}

func refreshClaims(jti string) *service.JWTCustomClaims {
	return &service.JWTCustomClaims{
		UserID:    "user-123",
		Email:     "alice@example.com",
		Role:      constant.DefaultUserRole,
		TokenType: constant.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestUserService_Refresh_RotatesToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")

	stored := &domain.RefreshToken{
		ID:        "old-jti",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	mockTokens.EXPECT().VerifyRefreshToken("old-refresh").Return(refreshClaims("old-jti"), nil)
	mockRepo.EXPECT().GetRefreshTokenByID(gomock.Any(), "old-jti").Return(stored, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "old-jti").Return(nil)
	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	mockTokens.EXPECT().Generate(user.ID, user.Email, user.Role).Return(tokenPair(), nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().GetActiveTokenCount(gomock.Any(), user.ID).Return(2, nil)

	_, pair, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "old-refresh"})

	require.NoError(t, err)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
}

func TestUserService_Refresh_ReplayOfRevokedToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)

	stored := &domain.RefreshToken{
		ID:        "old-jti",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Hour),
		Revoked:   true,
	}

	mockTokens.EXPECT().VerifyRefreshToken("old-refresh").Return(refreshClaims("old-jti"), nil)
	mockRepo.EXPECT().GetRefreshTokenByID(gomock.Any(), "old-jti").Return(stored, nil)

	_, _, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "old-refresh"})

	assert.ErrorIs(t, err, autherror.ErrRefreshTokenRevoked)
}

func TestUserService_Refresh_UnknownDescriptor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)

	mockTokens.EXPECT().VerifyRefreshToken("old-refresh").Return(refreshClaims("old-jti"), nil)
	mockRepo.EXPECT().GetRefreshTokenByID(gomock.Any(), "old-jti").Return(nil, nil)

	_, _, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "old-refresh"})

	assert.ErrorIs(t, err, autherror.ErrRefreshTokenNotFound)
}

func TestUserService_Refresh_ExpiredDescriptor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, _ := newService(ctrl)

	stored := &domain.RefreshToken{
		ID:        "old-jti",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	mockTokens.EXPECT().VerifyRefreshToken("old-refresh").Return(refreshClaims("old-jti"), nil)
	mockRepo.EXPECT().GetRefreshTokenByID(gomock.Any(), "old-jti").Return(stored, nil)

	_, _, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "old-refresh"})

	assert.ErrorIs(t, err, autherror.ErrRefreshTokenExpired)
}

func TestUserService_Refresh_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _, mockTokens, _ := newService(ctrl)

	mockTokens.EXPECT().VerifyRefreshToken("tampered").Return(nil, autherror.ErrTokenInvalid)

	_, _, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "tampered"})

	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
}

func TestUserService_Logout_BlacklistsAccessToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _, mockTokens, mockRegistry := newService(ctrl)

	mockTokens.EXPECT().GetAccessTokenExpiry().Return(15 * time.Minute)
	mockRegistry.EXPECT().Blacklist(gomock.Any(), "access-token", 15*time.Minute).Return(nil)

	err := s.Logout(context.Background(), "access-token", "")

	assert.NoError(t, err)
}

func TestUserService_Logout_RevokesSuppliedRefreshToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, mockRegistry := newService(ctrl)

	mockTokens.EXPECT().GetAccessTokenExpiry().Return(15 * time.Minute)
	mockRegistry.EXPECT().Blacklist(gomock.Any(), "access-token", 15*time.Minute).Return(nil)
	mockTokens.EXPECT().VerifyRefreshToken("refresh-token").Return(refreshClaims("refresh-jti"), nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "refresh-jti").Return(nil)

	err := s.Logout(context.Background(), "access-token", "refresh-token")

	assert.NoError(t, err)
}

func TestUserService_LogoutAll_RevokesEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, mockRegistry := newService(ctrl)

	mockRepo.EXPECT().RevokeAllRefreshTokens(gomock.Any(), "user-123").Return(nil)
	mockTokens.EXPECT().GetAccessTokenExpiry().Return(15 * time.Minute)
	mockRegistry.EXPECT().Blacklist(gomock.Any(), "access-token", 15*time.Minute).Return(nil)

	err := s.LogoutAll(context.Background(), "user-123", "access-token")

	assert.NoError(t, err)
}

func TestUserService_ChangePassword_RevokesAllSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, mockTokens, mockRegistry := newService(ctrl)
	user := activeUser(t, "OldPassw0rd!")

	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	mockRepo.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, hash string, _ time.Time) error {
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("NewPassw0rd!")))
			return nil
		})
	mockRepo.EXPECT().RevokeAllRefreshTokens(gomock.Any(), user.ID).Return(nil)
	mockTokens.EXPECT().GetAccessTokenExpiry().Return(15 * time.Minute)
	mockRegistry.EXPECT().Blacklist(gomock.Any(), "access-token", 15*time.Minute).Return(nil)

	err := s.ChangePassword(context.Background(), user.ID, "access-token", dto.ChangePasswordInput{
		CurrentPassword: "OldPassw0rd!",
		NewPassword:     "NewPassw0rd!",
	})

	assert.NoError(t, err)
}

func TestUserService_ChangePassword_WrongCurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "OldPassw0rd!")

	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

	err := s.ChangePassword(context.Background(), user.ID, "access-token", dto.ChangePasswordInput{
		CurrentPassword: "not-it",
		NewPassword:     "NewPassw0rd!",
	})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
}

func TestUserService_ChangePassword_RejectsReuse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "OldPassw0rd!")

	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

	err := s.ChangePassword(context.Background(), user.ID, "access-token", dto.ChangePasswordInput{
		CurrentPassword: "OldPassw0rd!",
		NewPassword:     "OldPassw0rd!",
	})

	assert.ErrorIs(t, err, autherror.ErrPasswordReused)
}

func TestUserService_GetUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mockRepo, _, _ := newService(ctrl)
	user := activeUser(t, "Passw0rd!")

	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

	got, err := s.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	mockRepo.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, nil)

	_, err = s.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, autherror.ErrUserNotFound)
}
