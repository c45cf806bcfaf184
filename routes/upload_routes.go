package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	uploads := app.Group("/api/uploads", middleware.Protected(secret), middleware.AdminRequired())
	uploads.Get("/signature", h.GenerateUploadSignature)
}
