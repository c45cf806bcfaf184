package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

// Notifier delivers transactional email. Failures are logged by the
// implementation and never block the caller.
type Notifier interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlContent string)
}

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Endpoint    string

	client *http.Client
	log    *zap.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewNotifier returns a Brevo-backed notifier, or a no-op one when the
// service is not configured.
func NewNotifier(apiKey, senderEmail, senderName string, log *zap.Logger) Notifier {
	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Warn("email service not configured, notifications disabled")
		return Noop{}
	}
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Endpoint:    brevoURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (s *BrevoService) send(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:at]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

func (s *BrevoService) Send(ctx context.Context, toName, toEmail, subject, htmlContent string) {
	if err := s.send(ctx, toEmail, toName, subject, htmlContent); err != nil {
		s.log.Error("failed to send email", zap.String("to", toEmail), zap.String("subject", subject), zap.Error(err))
		return
	}
	s.log.Debug("email sent", zap.String("to", toEmail), zap.String("subject", subject))
}

type Noop struct{}

func (Noop) Send(context.Context, string, string, string, string) {}
