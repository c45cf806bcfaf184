package handlers

import (
	"time"

	"github.com/anjiri1684/course_academy/middleware"
	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/services"
	"github.com/anjiri1684/course_academy/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

type Config struct {
	FrontendURL   string
	CloudinaryURL string
	// Provider lookups retried inside a single status request.
	ConfirmAttempts int
	ConfirmBackoff  time.Duration
}

type Handler struct {
	auth       *services.AuthService
	catalog    *services.CatalogService
	payments   *services.PaymentService
	affiliates *services.AffiliateService
	admin      *services.AdminService
	hub        *websocket.Hub
	cfg        Config
	log        *zap.Logger
}

func New(auth *services.AuthService, catalog *services.CatalogService, payments *services.PaymentService,
	affiliates *services.AffiliateService, admin *services.AdminService, hub *websocket.Hub, cfg Config, log *zap.Logger) *Handler {
	return &Handler{
		auth:       auth,
		catalog:    catalog,
		payments:   payments,
		affiliates: affiliates,
		admin:      admin,
		hub:        hub,
		cfg:        cfg,
		log:        log,
	}
}

// currentUser loads the caller behind the bearer token. It returns nil
// without error for anonymous requests.
func (h *Handler) currentUser(c *fiber.Ctx) (*models.User, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return nil, nil
	}
	return h.auth.Me(c.UserContext(), id)
}

func (h *Handler) requireUser(c *fiber.Ctx) (*models.User, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fiber.ErrUnauthorized
	}
	return user, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
