package handlers

import (
	"github.com/anjiri1684/course_academy/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.admin.ListUsers(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}

type AssignCourseRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	CourseID string `json:"course_id" validate:"required,uuid"`
}

func (h *Handler) AssignCourse(c *fiber.Ctx) error {
	var req AssignCourseRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	purchase, err := h.admin.AssignCourse(c.UserContext(), uuid.MustParse(req.UserID), uuid.MustParse(req.CourseID))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

func (h *Handler) RemoveCourse(c *fiber.Ctx) error {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	courseID, err := uuidParam(c, "courseId")
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.admin.RemoveCourse(c.UserContext(), userID, courseID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course removed"})
}

func (h *Handler) GetUserPurchasedCourses(c *fiber.Ctx) error {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	courses, err := h.catalog.PurchasedCourses(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(courses)
}

type SubscriptionRequest struct {
	Status string  `json:"subscription_status" validate:"required,oneof=active inactive"`
	PlanID *string `json:"plan_id"`
}

func (h *Handler) SetUserSubscription(c *fiber.Ctx) error {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	var req SubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.PlanID != nil {
		if _, ok := models.PricingPlans[*req.PlanID]; !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown plan"})
		}
	}
	if err := h.admin.SetSubscription(c.UserContext(), userID, req.Status, req.PlanID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscription updated"})
}

func (h *Handler) ListPayoutRequests(c *fiber.Ctx) error {
	requests, err := h.affiliates.ListPayoutRequests(c.UserContext(), c.Query("status", models.PayoutPending))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(requests)
}

type ProcessPayoutRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=complete reject"`
	AdminNotes string `json:"admin_notes"`
}

func (h *Handler) ProcessPayoutRequest(c *fiber.Ctx) error {
	requestID, err := uuidParam(c, "requestId")
	if err != nil {
		return h.fail(c, err)
	}
	var req ProcessPayoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	decision := models.PayoutCompleted
	if req.Decision == "reject" {
		decision = models.PayoutRejected
	}
	var notes *string
	if req.AdminNotes != "" {
		notes = &req.AdminNotes
	}

	payout, err := h.affiliates.ResolvePayout(c.UserContext(), requestID, decision, notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(payout)
}
