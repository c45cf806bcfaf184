package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type PayPalConfig struct {
	APIBaseURL   string
	ClientID     string
	ClientSecret string
	WebhookID    string
}

// PayPalProvider drives the PayPal Orders v2 API. An approved order is
// captured the first time its status is read, which is when it becomes paid.
type PayPalProvider struct {
	cfg    PayPalConfig
	client *http.Client
	tokens *tokenSource
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func NewPayPalProvider(cfg PayPalConfig) *PayPalProvider {
	client := &http.Client{Timeout: 10 * time.Second}
	return &PayPalProvider{
		cfg:    cfg,
		client: client,
		tokens: &tokenSource{
			tokenURL:     cfg.APIBaseURL + "/v1/oauth2/token",
			clientID:     cfg.ClientID,
			clientSecret: cfg.ClientSecret,
			client:       client,
		},
	}
}

func (p *PayPalProvider) Name() string { return ProviderPayPal }

func (p *PayPalProvider) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(method+" "+path, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (p *PayPalProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	// PayPal appends ?token=<order id> to the return URL itself.
	returnURL := strings.Replace(req.SuccessURL, "session_id="+SessionIDPlaceholder, "provider=paypal", 1)

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"description": req.Title,
				"custom_id":   req.Metadata["intent"],
				"amount": map[string]string{
					"currency_code": strings.ToUpper(req.Currency),
					"value":         req.Amount.StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url":  returnURL,
			"cancel_url":  req.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var order paypalOrder
	if _, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &order); err != nil {
		return nil, err
	}
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return &CheckoutSession{ID: order.ID, URL: link.Href}, nil
		}
	}
	return nil, fmt.Errorf("paypal order %s has no approval link", order.ID)
}

func (p *PayPalProvider) GetStatus(ctx context.Context, sessionRef string) (*SessionStatus, error) {
	var order paypalOrder
	code, err := p.do(ctx, http.MethodGet, "/v2/checkout/orders/"+sessionRef, nil, &order)
	if code == http.StatusNotFound {
		return &SessionStatus{Status: StatusExpired, PaymentStatus: PaymentUnpaid}, nil
	}
	if err != nil {
		return nil, err
	}

	if order.Status == "APPROVED" {
		var captured paypalOrder
		if _, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+sessionRef+"/capture", map[string]any{}, &captured); err != nil {
			return nil, err
		}
		order.Status = captured.Status
	}

	switch order.Status {
	case "COMPLETED":
		return &SessionStatus{Status: StatusComplete, PaymentStatus: PaymentPaid}, nil
	case "VOIDED":
		return &SessionStatus{Status: StatusExpired, PaymentStatus: PaymentUnpaid}, nil
	}
	return &SessionStatus{Status: StatusOpen, PaymentStatus: PaymentUnpaid}, nil
}

type paypalWebhookEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func (p *PayPalProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (string, error) {
	verify := map[string]any{
		"auth_algo":         header.Get("Paypal-Auth-Algo"),
		"cert_url":          header.Get("Paypal-Cert-Url"),
		"transmission_id":   header.Get("Paypal-Transmission-Id"),
		"transmission_sig":  header.Get("Paypal-Transmission-Sig"),
		"transmission_time": header.Get("Paypal-Transmission-Time"),
		"webhook_id":        p.cfg.WebhookID,
		"webhook_event":     json.RawMessage(payload),
	}
	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if _, err := p.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", verify, &result); err != nil {
		return "", err
	}
	if result.VerificationStatus != "SUCCESS" {
		return "", ErrInvalidSignature
	}

	var event paypalWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", fmt.Errorf("decode paypal event: %w", err)
	}
	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED", "CHECKOUT.ORDER.COMPLETED":
		return event.Resource.ID, nil
	case "PAYMENT.CAPTURE.COMPLETED":
		return event.Resource.SupplementaryData.RelatedIDs.OrderID, nil
	}
	return "", ErrIgnoredEvent
}
