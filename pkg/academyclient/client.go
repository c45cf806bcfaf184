// Package academyclient is a Go client for the course academy API. It keeps
// the bearer token and any captured referral in a Store so a restarted
// client resumes where it left off.
package academyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anjiri1684/course_academy/models"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrSessionExpired   = errors.New("checkout session expired")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	store      Store
	session    *Session

	referralTTL  time.Duration
	pollAttempts int
	pollBackoff  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithReferralTTL(ttl time.Duration) Option {
	return func(c *Client) { c.referralTTL = ttl }
}

// WithPolling sets how often PollPaymentStatus asks for the outcome.
func WithPolling(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.pollAttempts = attempts
		c.pollBackoff = backoff
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewClient targets the API mounted at baseURL, e.g. https://academy.example/api.
func NewClient(baseURL string, store Store, opts ...Option) *Client {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		store:        store,
		referralTTL:  24 * time.Hour,
		pollAttempts: 5,
		pollBackoff:  2 * time.Second,
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = &Session{client: c}
	return c
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		msg := payload.Error
		if msg == "" {
			msg = payload.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterParams struct {
	Name         string
	Email        string
	Password     string
	CaptchaToken string
}

// Register creates the account and signs in. A pending referral travels with
// the request and is forgotten once the account exists.
func (c *Client) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	body := map[string]any{
		"name":          p.Name,
		"email":         p.Email,
		"password":      p.Password,
		"captcha_token": p.CaptchaToken,
	}
	referral, hasReferral := c.PendingReferral()
	if hasReferral {
		body["referral_code"] = referral.Code
		body["referral_captured_at"] = referral.CapturedAt.Unix()
	}

	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &res); err != nil {
		return nil, err
	}
	if hasReferral {
		c.ClearReferral()
	}
	if err := c.session.set(res.Token, res.User); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var res authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	if err := c.session.set(res.Token, res.User); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) Logout() error {
	return c.session.Clear()
}

// CourseDetail is a course with the server's access decision for the caller.
type CourseDetail struct {
	models.Course
	CanAccess bool `json:"can_access"`
}

func (c *Client) Courses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := c.do(ctx, http.MethodGet, "/courses", nil, &courses)
	return courses, err
}

func (c *Client) Course(ctx context.Context, id string) (*CourseDetail, error) {
	var course CourseDetail
	if err := c.do(ctx, http.MethodGet, "/courses/"+id, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

func (c *Client) checkout(ctx context.Context, path string, body map[string]string) (*CheckoutResult, error) {
	if !c.session.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var res CheckoutResult
	if err := c.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CheckoutSubscription(ctx context.Context, planID, originURL string) (*CheckoutResult, error) {
	return c.checkout(ctx, "/payments/checkout", map[string]string{"plan_id": planID, "origin_url": originURL})
}

func (c *Client) CheckoutCourse(ctx context.Context, courseID, originURL string) (*CheckoutResult, error) {
	return c.checkout(ctx, "/payments/course", map[string]string{"course_id": courseID, "origin_url": originURL})
}

func (c *Client) CheckoutShopProduct(ctx context.Context, productID, originURL string) (*CheckoutResult, error) {
	return c.checkout(ctx, "/checkout/shop-product", map[string]string{"product_id": productID, "origin_url": originURL})
}

type PaymentStatus struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func (s PaymentStatus) Paid() bool    { return s.PaymentStatus == "paid" }
func (s PaymentStatus) Expired() bool { return s.Status == "expired" }

func (c *Client) PaymentStatus(ctx context.Context, sessionID string) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := c.do(ctx, http.MethodGet, "/payments/status/"+sessionID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PollResult is the outcome of waiting for a checkout. Confirmed is false
// when the attempts ran out while the provider still reported the session
// open; the purchase may yet complete through the webhook.
type PollResult struct {
	Status    PaymentStatus
	Confirmed bool
}

// PollPaymentStatus asks for the checkout outcome until it is paid or expired,
// at most pollAttempts+1 times. Running out of attempts on an open session is
// not an error. Once the outcome is known the session user is refreshed.
func (c *Client) PollPaymentStatus(ctx context.Context, sessionID string) (*PollResult, error) {
	var (
		last    *PaymentStatus
		lastErr error
	)
	for attempt := 0; attempt <= c.pollAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.pollBackoff); err != nil {
				return nil, err
			}
		}

		status, err := c.PaymentStatus(ctx, sessionID)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		last = status

		if status.Paid() {
			c.refreshQuietly(ctx)
			return &PollResult{Status: *status, Confirmed: true}, nil
		}
		if status.Expired() {
			return nil, ErrSessionExpired
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	c.refreshQuietly(ctx)
	return &PollResult{Status: *last}, nil
}

func (c *Client) refreshQuietly(ctx context.Context) {
	if c.session.Authenticated() {
		_, _ = c.session.Refresh(ctx)
	}
}
