package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/anjiri1684/course_academy/metrics"
	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/notifications"
	"github.com/anjiri1684/course_academy/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AffiliateConfig struct {
	CommissionPercent decimal.Decimal
	MinPayout         decimal.Decimal
	ReferralTTL       time.Duration
	FrontendURL       string
}

type AffiliateService struct {
	repo     store.Repository
	notifier notifications.Notifier
	validate *validator.Validate
	cfg      AffiliateConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewAffiliateService(repo store.Repository, notifier notifications.Notifier, cfg AffiliateConfig, log *zap.Logger) *AffiliateService {
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	return &AffiliateService{
		repo:     repo,
		notifier: notifier,
		validate: validator.New(),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func NormalizeAffiliateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferralCapture is what a visitor carries between following a shared link
// and registering.
type ReferralCapture struct {
	Code       string    `json:"code"`
	CapturedAt time.Time `json:"captured_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CaptureReferral checks that code belongs to an affiliate and stamps the
// capture time.
func (s *AffiliateService) CaptureReferral(ctx context.Context, code string, now time.Time) (*ReferralCapture, error) {
	code = NormalizeAffiliateCode(code)
	if code == "" {
		return nil, ErrInvalidReferral
	}
	if _, err := s.repo.FindUserByAffiliateCode(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidReferral
		}
		return nil, err
	}
	return &ReferralCapture{Code: code, CapturedAt: now, ExpiresAt: now.Add(s.cfg.ReferralTTL)}, nil
}

func (s *AffiliateService) checkWindow(user *models.User, capturedAt, now time.Time) error {
	if user.ReferredBy != nil {
		return fmt.Errorf("%w: user already referred", ErrInvalidReferral)
	}
	if capturedAt.After(user.CreatedAt) {
		return fmt.Errorf("%w: captured after registration", ErrInvalidReferral)
	}
	if user.CreatedAt.Sub(capturedAt) > s.cfg.ReferralTTL {
		return fmt.Errorf("%w: capture expired before registration", ErrInvalidReferral)
	}
	if now.Sub(user.CreatedAt) > s.cfg.ReferralTTL {
		return fmt.Errorf("%w: attribution window closed", ErrInvalidReferral)
	}
	return nil
}

// CommitReferrer records code as the user's referrer when the capture is
// inside the claim window. Invalid or repeated attempts are logged and
// reported as not applied, never as a failure.
func (s *AffiliateService) CommitReferrer(ctx context.Context, user *models.User, code string, capturedAt, now time.Time) (bool, error) {
	code = NormalizeAffiliateCode(code)
	err := s.commitReferrer(ctx, user, code, capturedAt, now)
	if errors.Is(err, ErrInvalidReferral) {
		s.log.Info("referral ignored", zap.String("user_id", user.ID.String()), zap.String("code", code), zap.Error(err))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("referral attributed", zap.String("user_id", user.ID.String()), zap.String("code", code))
	return true, nil
}

func (s *AffiliateService) commitReferrer(ctx context.Context, user *models.User, code string, capturedAt, now time.Time) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidReferral)
	}
	if err := s.checkWindow(user, capturedAt, now); err != nil {
		return err
	}

	referrer, err := s.repo.FindUserByAffiliateCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: unknown code", ErrInvalidReferral)
	}
	if err != nil {
		return err
	}
	if referrer.ID == user.ID {
		return fmt.Errorf("%w: self referral", ErrInvalidReferral)
	}

	return s.repo.Transaction(ctx, func(tx store.Repository) error {
		set, err := tx.SetReferrer(ctx, user.ID, code, now)
		if err != nil {
			return err
		}
		if !set {
			return fmt.Errorf("%w: user already referred", ErrInvalidReferral)
		}
		err = tx.CreateReferral(ctx, &models.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: user.ID,
			AffiliateCode:  code,
			Status:         models.ReferralPending,
		})
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: user already referred", ErrInvalidReferral)
		}
		if err != nil {
			return err
		}
		user.ReferredBy = &code
		user.ReferredAt = &now
		return nil
	})
}

// RequestPayout debits amount from the affiliate balance and files a pending
// request for an admin to settle.
func (s *AffiliateService) RequestPayout(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.PayoutRequest, error) {
	// balance and request columns hold whole cents
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, ErrInvalidPayoutAmount
	}
	if amount.LessThan(s.cfg.MinPayout) {
		return nil, ErrPayoutBelowMinimum
	}

	var req *models.PayoutRequest
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		user, err := tx.LockUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if amount.GreaterThan(user.AffiliateBalance) {
			return ErrPayoutExceedsBalance
		}
		if user.PayoutMethod == nil || user.PayoutDetails == nil || *user.PayoutDetails == "" {
			return ErrPayoutMethodMissing
		}
		pending, err := tx.HasPendingPayout(ctx, userID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPayoutAlreadyPending
		}

		err = tx.AdjustAffiliateBalance(ctx, userID, amount.Neg(), decimal.Zero)
		if errors.Is(err, store.ErrInsufficientBalance) {
			return ErrPayoutExceedsBalance
		}
		if err != nil {
			return err
		}

		req = &models.PayoutRequest{
			UserID:  userID,
			Amount:  amount,
			Method:  *user.PayoutMethod,
			Details: *user.PayoutDetails,
			Status:  models.PayoutPending,
		}
		err = tx.CreatePayoutRequest(ctx, req)
		if errors.Is(err, store.ErrDuplicate) {
			return ErrPayoutAlreadyPending
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Payouts.WithLabelValues(models.PayoutPending).Inc()
	s.log.Info("payout requested", zap.String("user_id", userID.String()), zap.String("amount", amount.StringFixed(2)))
	return req, nil
}

// ResolvePayout settles a pending request. A rejection returns the reserved
// amount to the affiliate balance.
func (s *AffiliateService) ResolvePayout(ctx context.Context, requestID uuid.UUID, decision string, notes *string) (*models.PayoutRequest, error) {
	if decision != models.PayoutCompleted && decision != models.PayoutRejected {
		return nil, fmt.Errorf("invalid payout decision %q", decision)
	}

	var req *models.PayoutRequest
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.LockPayoutRequest(ctx, requestID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPayoutNotFound
		}
		if err != nil {
			return err
		}
		if req.Status != models.PayoutPending {
			return ErrPayoutNotPending
		}

		at := s.now()
		if err := tx.ResolvePayoutRequest(ctx, requestID, decision, notes, at); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPayoutNotPending
			}
			return err
		}
		if decision == models.PayoutRejected {
			if err := tx.AdjustAffiliateBalance(ctx, req.UserID, req.Amount, decimal.Zero); err != nil {
				return err
			}
		}
		req.Status = decision
		req.AdminNotes = notes
		req.ProcessedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Payouts.WithLabelValues(decision).Inc()
	s.log.Info("payout resolved", zap.String("request_id", requestID.String()), zap.String("status", decision))

	if user, err := s.repo.FindUserByID(ctx, req.UserID); err == nil {
		subject, body := notifications.PayoutProcessed(req.Amount.StringFixed(2), decision, notes)
		s.notifier.Send(ctx, user.FullName, user.Email, subject, body)
	}
	return req, nil
}

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// validIBAN checks the shape and the ISO 13616 mod-97 checksum.
func validIBAN(iban string) bool {
	if !ibanPattern.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
			continue
		}
		digits.WriteRune(r)
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func (s *AffiliateService) normalizePayoutDetails(method, details string) (string, error) {
	details = strings.TrimSpace(details)
	switch method {
	case models.PayoutMethodPayPal, models.PayoutMethodWise:
		if err := s.validate.Var(details, "required,email"); err != nil {
			return "", ErrInvalidPayoutDetails
		}
		return strings.ToLower(details), nil
	case models.PayoutMethodIBAN:
		iban := strings.ToUpper(strings.ReplaceAll(details, " ", ""))
		if !validIBAN(iban) {
			return "", ErrInvalidPayoutDetails
		}
		return iban, nil
	}
	return "", ErrInvalidPayoutDetails
}

// UpdatePayoutMethod stores where payouts are sent. It is refused while a
// payout request is pending.
func (s *AffiliateService) UpdatePayoutMethod(ctx context.Context, userID uuid.UUID, method, details string) error {
	normalized, err := s.normalizePayoutDetails(method, details)
	if err != nil {
		return err
	}

	return s.repo.Transaction(ctx, func(tx store.Repository) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		pending, err := tx.HasPendingPayout(ctx, userID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPayoutAlreadyPending
		}
		return tx.SetPayoutMethod(ctx, userID, method, normalized)
	})
}

type AffiliateStats struct {
	AffiliateCode     string                 `json:"affiliate_code"`
	AffiliateLink     string                 `json:"affiliate_link"`
	Balance           decimal.Decimal        `json:"balance"`
	TotalEarned       decimal.Decimal        `json:"total_earned"`
	ReferralCount     int64                  `json:"referral_count"`
	CommissionPercent decimal.Decimal        `json:"commission_percent"`
	MinPayout         decimal.Decimal        `json:"min_payout"`
	PayoutMethod      *string                `json:"payout_method"`
	PayoutDetails     *string                `json:"payout_details"`
	PendingPayouts    []models.PayoutRequest `json:"pending_payouts"`
	PayoutHistory     []models.PayoutRequest `json:"payout_history"`
}

func (s *AffiliateService) Stats(ctx context.Context, userID uuid.UUID) (*AffiliateStats, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListPayoutRequests(ctx, store.PayoutFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	pending := make([]models.PayoutRequest, 0)
	for _, req := range history {
		if req.Status == models.PayoutPending {
			pending = append(pending, req)
		}
	}

	return &AffiliateStats{
		AffiliateCode:     user.AffiliateCode,
		AffiliateLink:     strings.TrimRight(s.cfg.FrontendURL, "/") + "/?ref=" + user.AffiliateCode,
		Balance:           user.AffiliateBalance,
		TotalEarned:       user.AffiliateTotalEarned,
		ReferralCount:     count,
		CommissionPercent: s.cfg.CommissionPercent,
		MinPayout:         s.cfg.MinPayout,
		PayoutMethod:      user.PayoutMethod,
		PayoutDetails:     user.PayoutDetails,
		PendingPayouts:    pending,
		PayoutHistory:     history,
	}, nil
}

func (s *AffiliateService) ListPayoutRequests(ctx context.Context, status string) ([]models.PayoutRequest, error) {
	return s.repo.ListPayoutRequests(ctx, store.PayoutFilter{Status: status})
}
