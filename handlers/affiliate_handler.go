package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	referralCookie         = "affiliate_ref"
	referralCapturedCookie = "affiliate_ref_captured"
)

func clearReferralCookies(c *fiber.Ctx) {
	for _, name := range []string{referralCookie, referralCapturedCookie} {
		c.Cookie(&fiber.Cookie{Name: name, Value: "", Path: "/", Expires: time.Unix(0, 0), HTTPOnly: true})
	}
}

// CaptureReferral handles shared affiliate links. The code is remembered in
// cookies for the referral window and the visitor is sent to the frontend.
func (h *Handler) CaptureReferral(c *fiber.Ctx) error {
	target := strings.TrimRight(h.cfg.FrontendURL, "/") + "/"

	capture, err := h.affiliates.CaptureReferral(c.UserContext(), c.Params("code"), time.Now())
	if err != nil {
		// unknown codes still land on the site, just without attribution
		return c.Redirect(target, fiber.StatusFound)
	}

	expires := capture.ExpiresAt
	c.Cookie(&fiber.Cookie{Name: referralCookie, Value: capture.Code, Path: "/", Expires: expires, HTTPOnly: true, SameSite: "Lax"})
	c.Cookie(&fiber.Cookie{
		Name:     referralCapturedCookie,
		Value:    strconv.FormatInt(capture.CapturedAt.Unix(), 10),
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.Redirect(target+"?ref="+url.QueryEscape(capture.Code), fiber.StatusFound)
}

func (h *Handler) GetAffiliateStats(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	stats, err := h.affiliates.Stats(c.UserContext(), user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}

// SetReferrer commits a captured code for an already registered user. Codes
// that are stale, unknown or repeated are ignored rather than rejected.
func (h *Handler) SetReferrer(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	code := c.Query("affiliate_user_id")
	if code == "" {
		code = c.Cookies(referralCookie)
	}
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "affiliate_user_id is required"})
	}

	capturedAt := user.CreatedAt
	raw := c.Query("captured_at", c.Cookies(referralCapturedCookie))
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
		capturedAt = time.Unix(unix, 0)
	}

	applied, err := h.affiliates.CommitReferrer(c.UserContext(), user, code, capturedAt, time.Now())
	if err != nil {
		return h.fail(c, err)
	}
	clearReferralCookies(c)
	return c.JSON(fiber.Map{"applied": applied})
}

type PayoutMethodRequest struct {
	Method  string `json:"payout_method" validate:"required,oneof=paypal wise iban"`
	Details string `json:"payout_details" validate:"required"`
}

func (h *Handler) UpdatePayoutMethod(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req PayoutMethodRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.affiliates.UpdatePayoutMethod(c.UserContext(), user.ID, req.Method, req.Details); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payout method updated"})
}

type PayoutRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) RequestPayout(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req PayoutRequestBody
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	payout, err := h.affiliates.RequestPayout(c.UserContext(), user.ID, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payout)
}
