package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fintrack/auth-service/internal/auth/dto"
	"github.com/fintrack/auth-service/internal/auth/service"
	autherror "github.com/fintrack/auth-service/internal/errors"
)

type AuthHandler struct {
	userService *service.UserService
	validate    *validator.Validate
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		validate:    validator.New(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, autherror.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondError(c, validationError(err))
	}

	user, pair, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusCreated, "Registration successful", dto.AuthResponse{
		User:         dto.NewUserOutput(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, autherror.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondError(c, validationError(err))
	}

	input.IPAddress = c.IP()

	user, pair, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Login successful", dto.AuthResponse{
		User:         dto.NewUserOutput(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, autherror.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondError(c, validationError(err))
	}

	input.IPAddress = c.IP()

	user, pair, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Token refreshed", dto.AuthResponse{
		User:         dto.NewUserOutput(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	identity, ok := IdentityFromCtx(c)
	if !ok {
		return respondError(c, autherror.ErrTokenRequired)
	}

	user, err := h.userService.GetUser(c.Context(), identity.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "User retrieved", fiber.Map{"user": dto.NewUserOutput(user)})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, ok := IdentityFromCtx(c)
	if !ok {
		return respondError(c, autherror.ErrTokenRequired)
	}

	// Body is optional; it may carry the refresh token to revoke.
	var input dto.LogoutInput
	_ = c.BodyParser(&input)

	if err := h.userService.Logout(c.Context(), identity.Token, input.RefreshToken); err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	identity, ok := IdentityFromCtx(c)
	if !ok {
		return respondError(c, autherror.ErrTokenRequired)
	}

	if err := h.userService.LogoutAll(c.Context(), identity.UserID, identity.Token); err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Logged out from all devices", nil)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity, ok := IdentityFromCtx(c)
	if !ok {
		return respondError(c, autherror.ErrTokenRequired)
	}

	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, autherror.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondError(c, validationError(err))
	}

	if err := h.userService.ChangePassword(c.Context(), identity.UserID, identity.Token, input); err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Password changed, please log in again", nil)
}

func (h *AuthHandler) Deactivate(c *fiber.Ctx) error {
	identity, ok := IdentityFromCtx(c)
	if !ok {
		return respondError(c, autherror.ErrTokenRequired)
	}

	if err := h.userService.DeactivateAccount(c.Context(), identity.UserID, identity.Token); err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Account deactivated", nil)
}

func validationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return autherror.NewValidationError("invalid field %q (rule: %s)", fe.Field(), fe.Tag())
	}

	return autherror.NewValidationError("invalid request payload")
}
