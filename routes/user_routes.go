package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func UserRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	user := app.Group("/api/user", middleware.Protected(secret))
	user.Get("/courses", h.GetUserCourses)
	user.Get("/lessons", h.GetUserLessons)
}
