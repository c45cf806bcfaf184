package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/anjiri1684/course_academy/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubProvider struct {
	mu       sync.Mutex
	statuses map[string]payments.SessionStatus
	// failures is how many GetStatus calls fail before answering.
	failures int
	calls    int
	created  []payments.CheckoutRequest
	// lookupErr, when set, is returned by every GetStatus call.
	lookupErr error

	webhookRef string
	webhookErr error
}

func newStubProvider() *stubProvider {
	return &stubProvider{statuses: map[string]payments.SessionStatus{}}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, req)
	id := fmt.Sprintf("cs_test_%d", len(p.created))
	p.statuses[id] = payments.SessionStatus{Status: payments.StatusOpen, PaymentStatus: payments.PaymentUnpaid}
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (p *stubProvider) GetStatus(ctx context.Context, ref string) (*payments.SessionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	if p.failures > 0 {
		p.failures--
		return nil, payments.ErrUnavailable
	}
	status, ok := p.statuses[ref]
	if !ok {
		return &payments.SessionStatus{Status: payments.StatusExpired, PaymentStatus: payments.PaymentUnpaid}, nil
	}
	return &status, nil
}

func (p *stubProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (string, error) {
	return p.webhookRef, p.webhookErr
}

func (p *stubProvider) markPaid(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = payments.SessionStatus{Status: payments.StatusComplete, PaymentStatus: payments.PaymentPaid}
}

func (p *stubProvider) markExpired(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = payments.SessionStatus{Status: payments.StatusExpired, PaymentStatus: payments.PaymentUnpaid}
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[uuid.UUID][]any
}

func (p *recordingPublisher) Publish(userID uuid.UUID, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[uuid.UUID][]any{}
	}
	p.events[userID] = append(p.events[userID], payload)
}

func (p *recordingPublisher) count(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestPaymentService(repo *memRepo, provider *stubProvider) *PaymentService {
	svc := NewPaymentService(repo, provider, nil, &recordingPublisher{}, PaymentConfig{
		Currency:          "eur",
		CommissionPercent: decimal.NewFromInt(10),
	}, zap.NewNop())
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func newTestAffiliateService(repo *memRepo) *AffiliateService {
	return NewAffiliateService(repo, nil, AffiliateConfig{
		CommissionPercent: decimal.NewFromInt(10),
		MinPayout:         decimal.NewFromInt(50),
		ReferralTTL:       24 * time.Hour,
		FrontendURL:       "https://academy.example.com",
	}, zap.NewNop())
}
