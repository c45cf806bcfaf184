package middleware

import (
	"strings"

	"github.com/anjiri1684/course_academy/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "Missing or malformed JWT") {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// OptionalAuth stores the token when a valid bearer credential is present and
// lets anonymous requests through untouched.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return c.Next()
		}
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err == nil && token.Valid {
			c.Locals("user", token)
		}
		return c.Next()
	}
}

func claims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, false
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	return mc, ok
}

// UserID returns the authenticated caller, if any.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	mc, ok := claims(c)
	if !ok {
		return uuid.Nil, false
	}
	raw, _ := mc["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mc, ok := claims(c)
		role, _ := mc["role"].(string)
		if !ok || role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}
