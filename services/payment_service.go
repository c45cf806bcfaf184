package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anjiri1684/course_academy/metrics"
	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/notifications"
	"github.com/anjiri1684/course_academy/payments"
	"github.com/anjiri1684/course_academy/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventPublisher pushes a payload to the live connections of a user.
type EventPublisher interface {
	Publish(userID uuid.UUID, payload any)
}

type EntitlementEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
}

const EventEntitlementGranted = "entitlement.granted"

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// PaymentStatus mirrors the provider vocabulary returned to clients.
type PaymentStatus struct {
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	Currency      string          `json:"currency"`
}

func (s PaymentStatus) Paid() bool { return s.PaymentStatus == payments.PaymentPaid }

type PaymentConfig struct {
	Currency          string
	CommissionPercent decimal.Decimal
}

type PaymentService struct {
	repo     store.Repository
	provider payments.Provider
	notifier notifications.Notifier
	events   EventPublisher
	cfg      PaymentConfig
	log      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPaymentService(repo store.Repository, provider payments.Provider, notifier notifications.Notifier,
	events EventPublisher, cfg PaymentConfig, log *zap.Logger) *PaymentService {
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	return &PaymentService{
		repo:     repo,
		provider: provider,
		notifier: notifier,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		sleep:    sleepContext,
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

// Commission computes the referrer's share of amount, rounded to cents.
func Commission(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

type checkoutItem struct {
	title     string
	amount    decimal.Decimal
	typeParam string
	cancelTo  string
}

func (s *PaymentService) priceIntent(ctx context.Context, user *models.User, intent models.Intent) (*checkoutItem, error) {
	switch intent.Kind {
	case models.IntentSubscription:
		plan, ok := models.PricingPlans[intent.TargetID]
		if !ok {
			return nil, ErrInvalidPlan
		}
		if user.HasActiveSubscription() {
			return nil, ErrAlreadyOwned
		}
		return &checkoutItem{title: plan.Name, amount: plan.Price, cancelTo: "/courses"}, nil

	case models.IntentCourse:
		courseID, err := uuid.Parse(intent.TargetID)
		if err != nil {
			return nil, ErrCourseNotFound
		}
		course, err := s.repo.FindCourseByID(ctx, courseID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		if err != nil {
			return nil, err
		}
		if course.IsFree {
			return nil, ErrCourseIsFree
		}
		owned, err := s.repo.HasPurchase(ctx, user.ID, course.ID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, ErrAlreadyOwned
		}
		return &checkoutItem{title: course.Title, amount: course.Price, typeParam: "course", cancelTo: "/courses/" + course.ID.String()}, nil

	case models.IntentShopProduct:
		productID, err := uuid.Parse(intent.TargetID)
		if err != nil {
			return nil, ErrProductNotFound
		}
		product, err := s.repo.FindShopProductByID(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		if !product.InStock {
			return nil, ErrOutOfStock
		}
		return &checkoutItem{title: product.Title, amount: product.Price, typeParam: "shop", cancelTo: "/shop"}, nil
	}
	return nil, fmt.Errorf("unsupported intent %q", intent.Kind)
}

// CreateCheckout opens a provider session for intent and records it as open.
func (s *PaymentService) CreateCheckout(ctx context.Context, user *models.User, intent models.Intent, originURL string) (*CheckoutResult, error) {
	item, err := s.priceIntent(ctx, user, intent)
	if err != nil {
		return nil, err
	}

	origin := strings.TrimRight(originURL, "/")
	successURL := origin + "/payment/success?session_id=" + payments.SessionIDPlaceholder
	if item.typeParam != "" {
		successURL += "&type=" + item.typeParam
	}

	checkout, err := s.provider.CreateCheckout(ctx, payments.CheckoutRequest{
		Title:         item.title,
		Amount:        item.amount,
		Currency:      s.cfg.Currency,
		SuccessURL:    successURL,
		CancelURL:     origin + item.cancelTo,
		CustomerEmail: user.Email,
		Metadata: map[string]string{
			"user_id": user.ID.String(),
			"intent":  intent.String(),
		},
	})
	if err != nil {
		s.log.Error("failed to create checkout session",
			zap.String("provider", s.provider.Name()), zap.String("intent", intent.String()), zap.Error(err))
		return nil, ErrProviderUnavailable
	}

	session := &models.PaymentSession{
		SessionRef: checkout.ID,
		Provider:   s.provider.Name(),
		Intent:     intent.String(),
		UserID:     user.ID,
		Amount:     item.amount,
		Currency:   s.cfg.Currency,
		Status:     models.SessionOpen,
	}
	if err := s.repo.CreatePaymentSession(ctx, session); err != nil {
		return nil, fmt.Errorf("record payment session: %w", err)
	}

	metrics.CheckoutsCreated.WithLabelValues(s.provider.Name(), intent.Kind).Inc()
	s.log.Info("checkout session created",
		zap.String("session_id", checkout.ID), zap.String("user_id", user.ID.String()), zap.String("intent", intent.String()))

	return &CheckoutResult{URL: checkout.URL, SessionID: checkout.ID}, nil
}

func statusOf(session *models.PaymentSession, status, paymentStatus string) *PaymentStatus {
	return &PaymentStatus{
		Status:        status,
		PaymentStatus: paymentStatus,
		AmountTotal:   session.Amount,
		Currency:      session.Currency,
	}
}

// Confirm reconciles a session with the provider. Entitlement and commission
// are applied exactly once, by whichever caller moves the session to paid.
func (s *PaymentService) Confirm(ctx context.Context, sessionRef string) (*PaymentStatus, error) {
	session, err := s.repo.FindPaymentSession(ctx, sessionRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case models.SessionPaid:
		metrics.PaymentConfirmations.WithLabelValues("already_paid").Inc()
		return statusOf(session, payments.StatusComplete, payments.PaymentPaid), nil
	case models.SessionExpired:
		return statusOf(session, payments.StatusExpired, payments.PaymentUnpaid), nil
	}

	remote, err := s.provider.GetStatus(ctx, sessionRef)
	if errors.Is(err, payments.ErrUnavailable) {
		metrics.PaymentConfirmations.WithLabelValues("unavailable").Inc()
		s.log.Warn("payment provider lookup failed", zap.String("session_id", sessionRef), zap.Error(err))
		return nil, ErrProviderUnavailable
	}
	if err != nil {
		metrics.PaymentConfirmations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("look up session %s: %w", sessionRef, err)
	}

	switch {
	case remote.Paid():
		if err := s.fulfil(ctx, session); err != nil {
			return nil, err
		}
		return statusOf(session, payments.StatusComplete, payments.PaymentPaid), nil
	case remote.Expired():
		expired, err := s.repo.ExpirePaymentSession(ctx, sessionRef)
		if err != nil {
			return nil, err
		}
		if expired {
			metrics.PaymentConfirmations.WithLabelValues("expired").Inc()
			s.log.Info("payment session expired", zap.String("session_id", sessionRef))
		}
		return statusOf(session, payments.StatusExpired, payments.PaymentUnpaid), nil
	}

	metrics.PaymentConfirmations.WithLabelValues("open").Inc()
	return statusOf(session, payments.StatusOpen, payments.PaymentUnpaid), nil
}

type commissionCredit struct {
	referrer *models.User
	amount   decimal.Decimal
}

func (s *PaymentService) fulfil(ctx context.Context, session *models.PaymentSession) error {
	intent, err := session.ParsedIntent()
	if err != nil {
		return err
	}

	var (
		claimed bool
		credit  *commissionCredit
	)
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		claimed, err = tx.ClaimPaymentSession(ctx, session.SessionRef, s.now())
		if err != nil || !claimed {
			return err
		}
		if err := s.grant(ctx, tx, session, intent); err != nil {
			return err
		}
		credit, err = s.creditCommission(ctx, tx, session)
		return err
	})
	if err != nil {
		metrics.PaymentConfirmations.WithLabelValues("error").Inc()
		return fmt.Errorf("fulfil session %s: %w", session.SessionRef, err)
	}
	if !claimed {
		metrics.PaymentConfirmations.WithLabelValues("already_paid").Inc()
		return nil
	}

	metrics.PaymentConfirmations.WithLabelValues("paid").Inc()
	s.log.Info("payment confirmed",
		zap.String("session_id", session.SessionRef), zap.String("user_id", session.UserID.String()), zap.String("intent", session.Intent))

	if s.events != nil {
		s.events.Publish(session.UserID, EntitlementEvent{Type: EventEntitlementGranted, SessionID: session.SessionRef, Intent: session.Intent})
	}
	s.notifyBuyer(ctx, session)
	if credit != nil {
		metrics.CommissionsCredited.Inc()
		subject, body := notifications.CommissionEarned(credit.amount.StringFixed(2))
		s.notifier.Send(ctx, credit.referrer.FullName, credit.referrer.Email, subject, body)
	}
	return nil
}

func (s *PaymentService) grant(ctx context.Context, tx store.Repository, session *models.PaymentSession, intent models.Intent) error {
	switch intent.Kind {
	case models.IntentCourse:
		courseID, err := uuid.Parse(intent.TargetID)
		if err != nil {
			return err
		}
		ref := session.SessionRef
		created, err := tx.CreatePurchase(ctx, &models.Purchase{
			UserID:     session.UserID,
			CourseID:   courseID,
			SessionRef: &ref,
			Source:     models.PurchaseSourcePayment,
		})
		if err != nil {
			return err
		}
		if !created {
			s.log.Warn("course already owned when payment confirmed",
				zap.String("session_id", ref), zap.String("course_id", courseID.String()))
		}
	case models.IntentSubscription:
		plan := intent.TargetID
		return tx.SetSubscription(ctx, session.UserID, models.SubscriptionActive, &plan)
	case models.IntentShopProduct:
		// Fulfilment of physical goods happens outside this system.
	}
	return nil
}

// creditCommission pays the buyer's referrer for the buyer's first confirmed
// payment only. The buyer row stays locked until commit.
func (s *PaymentService) creditCommission(ctx context.Context, tx store.Repository, session *models.PaymentSession) (*commissionCredit, error) {
	buyer, err := tx.LockUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if buyer.CommissionPaid {
		return nil, nil
	}
	if err := tx.MarkCommissionPaid(ctx, buyer.ID); err != nil {
		return nil, err
	}
	if buyer.ReferredBy == nil {
		return nil, nil
	}

	referrer, err := tx.FindUserByAffiliateCode(ctx, *buyer.ReferredBy)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("referrer no longer resolves", zap.String("code", *buyer.ReferredBy))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if referrer.ID == buyer.ID {
		return nil, nil
	}

	amount := Commission(session.Amount, s.cfg.CommissionPercent)
	if !amount.IsPositive() {
		return nil, nil
	}
	if err := tx.AdjustAffiliateBalance(ctx, referrer.ID, amount, amount); err != nil {
		return nil, err
	}
	if err := tx.CompleteReferral(ctx, buyer.ID, amount, session.SessionRef); err != nil {
		return nil, err
	}

	s.log.Info("affiliate commission credited",
		zap.String("referrer_id", referrer.ID.String()), zap.String("buyer_id", buyer.ID.String()), zap.String("amount", amount.StringFixed(2)))
	return &commissionCredit{referrer: referrer, amount: amount}, nil
}

func (s *PaymentService) notifyBuyer(ctx context.Context, session *models.PaymentSession) {
	buyer, err := s.repo.FindUserByID(ctx, session.UserID)
	if err != nil {
		s.log.Warn("could not load buyer for notification", zap.String("user_id", session.UserID.String()), zap.Error(err))
		return
	}
	subject, body := notifications.PurchaseConfirmed(session.Intent)
	s.notifier.Send(ctx, buyer.FullName, buyer.Email, subject, body)
}

// ConfirmWithRetry retries Confirm while the provider is unavailable, up to
// attempts times with backoff between tries.
func (s *PaymentService) ConfirmWithRetry(ctx context.Context, sessionRef string, attempts int, backoff time.Duration) (*PaymentStatus, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
		status, err := s.Confirm(ctx, sessionRef)
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// HandleWebhook authenticates a provider callback and confirms the session it
// names. Events for unknown sessions or without a payment outcome are ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, header http.Header) error {
	sessionRef, err := s.provider.ParseWebhook(ctx, payload, header)
	if errors.Is(err, payments.ErrIgnoredEvent) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.Confirm(ctx, sessionRef)
	if errors.Is(err, ErrSessionNotFound) {
		s.log.Warn("webhook for unknown session", zap.String("session_id", sessionRef))
		return nil
	}
	return err
}

// ExpireStale reconciles open sessions older than olderThan and returns how
// many of them were settled.
func (s *PaymentService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	sessions, err := s.repo.ListOpenSessionsBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		status, err := s.Confirm(ctx, session.SessionRef)
		if err != nil {
			s.log.Warn("could not reconcile stale session", zap.String("session_id", session.SessionRef), zap.Error(err))
			continue
		}
		if status.Status != payments.StatusOpen {
			settled++
		}
	}
	return settled, nil
}

func (s *PaymentService) Provider() payments.Provider { return s.provider }
