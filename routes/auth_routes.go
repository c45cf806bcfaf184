package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.RegisterUser)
	auth.Post("/login", h.LoginUser)
	auth.Get("/me", middleware.Protected(secret), h.Me)
	auth.Put("/profile", middleware.Protected(secret), h.UpdateProfile)
}
