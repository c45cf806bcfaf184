package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeProvider struct {
	sessions      session.Client
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProvider) Name() string { return ProviderStripe }

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(ToMinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, classifyStripeError("create checkout session", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) GetStatus(ctx context.Context, sessionRef string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.sessions.Get(sessionRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return &SessionStatus{Status: StatusExpired, PaymentStatus: PaymentUnpaid}, nil
		}
		return nil, classifyStripeError("get checkout session", err)
	}

	status := &SessionStatus{Status: string(s.Status), PaymentStatus: PaymentUnpaid}
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status.PaymentStatus = PaymentPaid
	}
	return status, nil
}

func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.expired":
	default:
		return "", ErrIgnoredEvent
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return "", fmt.Errorf("decode checkout session event: %w", err)
	}
	return s.ID, nil
}

func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500 &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("stripe %s: %s", op, stripeErr.Msg)
	}
	return fmt.Errorf("%w: stripe %s: %v", ErrUnavailable, op, err)
}
