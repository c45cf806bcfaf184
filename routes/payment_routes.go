package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/anjiri1684/course_academy/payments"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api")

	// The session id is the capability here; the success page polls this
	// before the browser has restored its session.
	api.Get("/payments/status/:sessionId", h.GetPaymentStatus)

	api.Post("/webhook/stripe", h.ProviderWebhook(payments.ProviderStripe))
	api.Post("/webhook/paypal", h.ProviderWebhook(payments.ProviderPayPal))

	protected := middleware.Protected(secret)
	api.Post("/payments/checkout", protected, h.CreateSubscriptionCheckout)
	api.Post("/payments/course", protected, h.CreateCourseCheckout)
	api.Post("/checkout/shop-product", protected, h.CreateShopCheckout)
}
