package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api")

	admin := api.Group("/admin", middleware.Protected(secret), middleware.AdminRequired())

	courses := admin.Group("/courses")
	courses.Post("", h.CreateCourse)
	courses.Put("/:id", h.UpdateCourse)
	courses.Delete("/:id", h.DeleteCourse)
	courses.Post("/:id/lessons", h.CreateLesson)

	lessons := admin.Group("/lessons")
	lessons.Put("/:lessonId", h.UpdateLesson)
	lessons.Delete("/:lessonId", h.DeleteLesson)

	shop := admin.Group("/shop")
	shop.Post("", h.CreateShopProduct)
	shop.Put("/:id", h.UpdateShopProduct)
	shop.Delete("/:id", h.DeleteShopProduct)

	users := admin.Group("/users")
	users.Get("", h.GetAllUsers)
	users.Put("/:userId/subscription", h.SetUserSubscription)

	admin.Get("/user-courses/:userId", h.GetUserPurchasedCourses)
	admin.Post("/assign-course", h.AssignCourse)
	admin.Delete("/remove-course/:userId/:courseId", h.RemoveCourse)
	admin.Get("/stats", h.GetDashboardStats)

	admin.Get("/payout-requests", h.ListPayoutRequests)
	admin.Post("/payout-requests/:requestId/process", h.ProcessPayoutRequest)
}
