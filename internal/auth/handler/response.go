package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	autherror "github.com/fintrack/auth-service/internal/errors"
)

// respond writes the JSON envelope every endpoint uses.
func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{
		"success": status < fiber.StatusBadRequest,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}

	return c.Status(status).JSON(body)
}

// respondError maps the error taxonomy onto a fixed status + message.
// Unexpected errors become a generic 500; detail stays in the logs.
func respondError(c *fiber.Ctx, err error) error {
	var locked *autherror.AccountLockedError
	if errors.As(err, &locked) {
		msg := fmt.Sprintf("Account temporarily locked, retry in %d minutes", locked.RetryAfterMinutes())
		return respond(c, fiber.StatusLocked, msg, nil)
	}

	var validation *autherror.ValidationError
	if errors.As(err, &validation) {
		return respond(c, fiber.StatusBadRequest, validation.Detail, nil)
	}

	if msg, ok := authFailureMessages[err]; ok {
		return respond(c, fiber.StatusUnauthorized, msg, nil)
	}

	switch {
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return respond(c, fiber.StatusConflict, "Email already in use", nil)
	case errors.Is(err, autherror.ErrPasswordReused):
		return respond(c, fiber.StatusConflict, "New password must be different from the current password", nil)
	case errors.Is(err, autherror.ErrInsufficientRole):
		return respond(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"path": c.Path(),
		"ip":   c.IP(),
	}).Error("unexpected error")

	return respond(c, fiber.StatusInternalServerError, "Internal server error", nil)
}

// authFailureMessages are the 401 signals of the admission chain. A missing
// subject is reported the same way as any other authentication failure,
// never as a 404.
var authFailureMessages = map[error]string{
	autherror.ErrTokenRequired:        "Access token required",
	autherror.ErrTokenRevoked:         "Token revoked",
	autherror.ErrTokenInvalid:         "Invalid token",
	autherror.ErrTokenExpired:         "Token expired",
	autherror.ErrTokenWrongType:       "Invalid token type",
	autherror.ErrUserNotFound:         "User no longer exists",
	autherror.ErrAccountDeactivated:   "Account deactivated",
	autherror.ErrInvalidCredentials:   "Invalid email or password",
	autherror.ErrRefreshTokenNotFound: "Refresh token not found",
	autherror.ErrRefreshTokenRevoked:  "Refresh token revoked",
	autherror.ErrRefreshTokenExpired:  "Refresh token expired",
}
