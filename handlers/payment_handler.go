package handlers

import (
	"github.com/anjiri1684/course_academy/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

type SubscriptionCheckoutRequest struct {
	PlanID    string `json:"plan_id" validate:"required"`
	OriginURL string `json:"origin_url" validate:"omitempty,url"`
}

type CourseCheckoutRequest struct {
	CourseID  string `json:"course_id" validate:"required,uuid"`
	OriginURL string `json:"origin_url" validate:"omitempty,url"`
}

type ShopCheckoutRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	OriginURL string `json:"origin_url" validate:"omitempty,url"`
}

func (h *Handler) checkout(c *fiber.Ctx, intent models.Intent, origin string) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	if origin == "" {
		origin = h.cfg.FrontendURL
	}
	res, err := h.payments.CreateCheckout(c.UserContext(), user, intent, origin)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) CreateSubscriptionCheckout(c *fiber.Ctx) error {
	var req SubscriptionCheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.checkout(c, models.Intent{Kind: models.IntentSubscription, TargetID: req.PlanID}, req.OriginURL)
}

func (h *Handler) CreateCourseCheckout(c *fiber.Ctx) error {
	var req CourseCheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.checkout(c, models.Intent{Kind: models.IntentCourse, TargetID: req.CourseID}, req.OriginURL)
}

func (h *Handler) CreateShopCheckout(c *fiber.Ctx) error {
	var req ShopCheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.checkout(c, models.Intent{Kind: models.IntentShopProduct, TargetID: req.ProductID}, req.OriginURL)
}

// GetPaymentStatus is what the success page polls. Every call reconciles the
// session with the provider, so it also grants the purchase when the webhook
// has not arrived yet.
func (h *Handler) GetPaymentStatus(c *fiber.Ctx) error {
	ref := c.Params("sessionId")
	status, err := h.payments.ConfirmWithRetry(c.UserContext(), ref, h.cfg.ConfirmAttempts, h.cfg.ConfirmBackoff)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(status)
}

// ProviderWebhook returns the webhook endpoint for provider. Callbacks for a
// provider that is not the configured one are answered with 404.
func (h *Handler) ProviderWebhook(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.payments.Provider().Name() != provider {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown payment provider"})
		}

		req, err := adaptor.ConvertRequest(c, false)
		if err != nil {
			return h.fail(c, err)
		}
		if err := h.payments.HandleWebhook(c.UserContext(), c.Body(), req.Header); err != nil {
			h.log.Warn("webhook rejected", zap.String("provider", provider), zap.Error(err))
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"received": true})
	}
}
