package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, mw *AuthMiddleware) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return respond(c, fiber.StatusOK, "ok", nil)
	})

	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh-token", h.Refresh)

	requireAuth := mw.RequireAuth()
	auth.Get("/getUser", requireAuth, h.GetUser)
	auth.Post("/logout", requireAuth, h.Logout)
	auth.Post("/logout-all", requireAuth, h.LogoutAll)
	auth.Post("/change-password", requireAuth, h.ChangePassword)
	auth.Post("/deactivate", requireAuth, h.Deactivate)
}
