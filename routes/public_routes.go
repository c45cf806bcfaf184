package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

// PublicRoutes serves the catalog to everyone. A bearer token, when present,
// personalizes can_access and lesson visibility.
func PublicRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	app.Get("/r/:code", h.CaptureReferral)

	api := app.Group("/api")
	api.Get("/r/:code", h.CaptureReferral)

	optional := middleware.OptionalAuth(secret)
	api.Get("/courses", optional, h.ListCourses)
	api.Get("/courses/:id", optional, h.GetCourse)
	api.Get("/courses/:id/lessons", optional, h.GetCourseLessons)

	api.Get("/shop", h.ListShopProducts)
	api.Get("/shop/:id", h.GetShopProduct)
}
