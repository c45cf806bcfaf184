package handlers

import (
	"github.com/anjiri1684/course_academy/middleware"
	"github.com/anjiri1684/course_academy/services"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	FullName        *string `json:"name" validate:"omitempty,min=2"`
	CurrentPassword string  `json:"current_password" validate:"required_with=NewPassword"`
	NewPassword     string  `json:"new_password" validate:"omitempty,min=6"`
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return h.fail(c, fiber.ErrUnauthorized)
	}

	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), userID, services.ProfileInput{
		FullName:        req.FullName,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}
