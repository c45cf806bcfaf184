package handlers

import (
	"strconv"
	"time"

	"github.com/anjiri1684/course_academy/services"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Name         string `json:"name" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	CaptchaToken string `json:"captcha_token"`
	// ReferralCode and ReferralCapturedAt (unix seconds) come from the
	// client's stored capture; the referral cookies are used when absent.
	ReferralCode       string `json:"referral_code"`
	ReferralCapturedAt int64  `json:"referral_captured_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	code, capturedAt := req.ReferralCode, req.ReferralCapturedAt
	if code == "" {
		code = c.Cookies(referralCookie)
		capturedAt, _ = strconv.ParseInt(c.Cookies(referralCapturedCookie), 10, 64)
	}
	in := services.RegisterInput{
		FullName:     req.Name,
		Email:        req.Email,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     c.IP(),
		ReferralCode: code,
	}
	if capturedAt > 0 {
		at := time.Unix(capturedAt, 0)
		in.ReferralCapturedAt = &at
	}

	res, err := h.auth.Register(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	if code != "" {
		clearReferralCookies(c)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}
