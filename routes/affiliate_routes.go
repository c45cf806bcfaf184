package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func AffiliateRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	affiliate := app.Group("/api/affiliate", middleware.Protected(secret))
	affiliate.Get("/stats", h.GetAffiliateStats)
	affiliate.Post("/set-referrer", h.SetReferrer)
	affiliate.Post("/update-payout-method", h.UpdatePayoutMethod)
	affiliate.Post("/payout", h.RequestPayout)
}
