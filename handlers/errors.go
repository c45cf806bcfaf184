package handlers

import (
	"errors"

	"github.com/anjiri1684/course_academy/payments"
	"github.com/anjiri1684/course_academy/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrAlreadyOwned, fiber.StatusConflict},
	{services.ErrEmailTaken, fiber.StatusConflict},
	{services.ErrPayoutAlreadyPending, fiber.StatusConflict},
	{services.ErrPayoutNotPending, fiber.StatusConflict},
	{services.ErrInvalidReferral, fiber.StatusBadRequest},
	{services.ErrPayoutBelowMinimum, fiber.StatusBadRequest},
	{services.ErrInvalidPayoutAmount, fiber.StatusBadRequest},
	{services.ErrPayoutExceedsBalance, fiber.StatusBadRequest},
	{services.ErrPayoutMethodMissing, fiber.StatusBadRequest},
	{services.ErrInvalidPayoutDetails, fiber.StatusBadRequest},
	{services.ErrCourseIsFree, fiber.StatusBadRequest},
	{services.ErrInvalidBundle, fiber.StatusBadRequest},
	{services.ErrInvalidCourse, fiber.StatusBadRequest},
	{services.ErrInvalidPlan, fiber.StatusBadRequest},
	{services.ErrOutOfStock, fiber.StatusBadRequest},
	{services.ErrCaptchaFailed, fiber.StatusBadRequest},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{services.ErrAccessDenied, fiber.StatusForbidden},
	{services.ErrSessionExpired, fiber.StatusGone},
	{services.ErrCourseNotFound, fiber.StatusNotFound},
	{services.ErrLessonNotFound, fiber.StatusNotFound},
	{services.ErrProductNotFound, fiber.StatusNotFound},
	{services.ErrSessionNotFound, fiber.StatusNotFound},
	{services.ErrUserNotFound, fiber.StatusNotFound},
	{services.ErrPayoutNotFound, fiber.StatusNotFound},
	{services.ErrPurchaseNotFound, fiber.StatusNotFound},
	{payments.ErrInvalidSignature, fiber.StatusBadRequest},
	{services.ErrProviderUnavailable, fiber.StatusServiceUnavailable},
}

// fail renders a domain error. Anything without a known status is logged and
// reported as a generic 500 so internals never reach the client.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := err.Error()
		if m.err == payments.ErrInvalidSignature {
			// the wrapped cause comes from the provider SDK
			msg = m.err.Error()
		}
		return c.Status(m.status).JSON(fiber.Map{"error": msg})
	}
	h.log.Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
