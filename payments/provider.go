package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable marks transient failures talking to a provider.
	ErrUnavailable      = errors.New("payment provider unavailable")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIgnoredEvent is returned for webhook events that carry no payment outcome.
	ErrIgnoredEvent = errors.New("webhook event ignored")
)

// SessionIDPlaceholder is substituted with the provider session id in success URLs.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

const (
	StatusOpen     = "open"
	StatusComplete = "complete"
	StatusExpired  = "expired"

	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

type CheckoutRequest struct {
	Title         string
	Amount        decimal.Decimal
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionStatus is the provider's authoritative view of a checkout session.
type SessionStatus struct {
	Status        string
	PaymentStatus string
}

func (s SessionStatus) Paid() bool {
	return s.PaymentStatus == PaymentPaid
}

func (s SessionStatus) Expired() bool {
	return s.Status == StatusExpired
}

type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetStatus(ctx context.Context, sessionRef string) (*SessionStatus, error)
	// ParseWebhook authenticates a callback and returns the session it concerns.
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (string, error)
}

// ToMinorUnits converts an amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
