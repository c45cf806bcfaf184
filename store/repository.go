package store

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	ErrInsufficientBalance = errors.New("insufficient affiliate balance")
)

// PayoutFilter narrows ListPayoutRequests. Zero values match everything.
type PayoutFilter struct {
	UserID *uuid.UUID
	Status string
}

type Stats struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	TotalCourses        int64 `json:"total_courses"`
	TotalPayments       int64 `json:"total_payments"`
	PendingPayouts      int64 `json:"pending_payouts"`
}

// Repository is the persistence contract. Methods called on the value handed to
// Transaction's callback run inside that transaction; LockUser and
// LockPayoutRequest only hold their row lock there.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByAffiliateCode(ctx context.Context, code string) (*models.User, error)
	AffiliateCodeExists(ctx context.Context, code string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetSubscription(ctx context.Context, userID uuid.UUID, status string, plan *string) error
	// UpdateProfile sets the display name and, when passwordHash is non-nil,
	// the password.
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, passwordHash *string) error
	// SetReferrer writes referred_by only when it is still empty.
	SetReferrer(ctx context.Context, userID uuid.UUID, code string, at time.Time) (bool, error)
	SetPayoutMethod(ctx context.Context, userID uuid.UUID, method, details string) error
	// AdjustAffiliateBalance adds balanceDelta to the balance and earned to the
	// lifetime total. The balance is never allowed below zero.
	AdjustAffiliateBalance(ctx context.Context, userID uuid.UUID, balanceDelta, earned decimal.Decimal) error
	MarkCommissionPaid(ctx context.Context, userID uuid.UUID) error

	CreateReferral(ctx context.Context, referral *models.Referral) error
	CompleteReferral(ctx context.Context, referredUserID uuid.UUID, reward decimal.Decimal, sessionRef string) error
	CountReferrals(ctx context.Context, referrerID uuid.UUID) (int64, error)

	ListCourses(ctx context.Context) ([]models.Course, error)
	FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	ListLessons(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, id uuid.UUID) error

	FindShopProductByID(ctx context.Context, id uuid.UUID) (*models.ShopProduct, error)
	ListShopProducts(ctx context.Context) ([]models.ShopProduct, error)
	CreateShopProduct(ctx context.Context, product *models.ShopProduct) error
	UpdateShopProduct(ctx context.Context, product *models.ShopProduct) error
	DeleteShopProduct(ctx context.Context, id uuid.UUID) error

	ListPurchasedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	HasPurchase(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	// CreatePurchase reports false when the user already owns the course.
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (bool, error)
	DeletePurchase(ctx context.Context, userID, courseID uuid.UUID) error

	CreatePaymentSession(ctx context.Context, session *models.PaymentSession) error
	FindPaymentSession(ctx context.Context, sessionRef string) (*models.PaymentSession, error)
	ListOpenSessionsBefore(ctx context.Context, before time.Time) ([]models.PaymentSession, error)
	CountPaidSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	// ClaimPaymentSession moves a session from open to paid and reports whether
	// this caller performed the transition.
	ClaimPaymentSession(ctx context.Context, sessionRef string, paidAt time.Time) (bool, error)
	ExpirePaymentSession(ctx context.Context, sessionRef string) (bool, error)

	CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error
	HasPendingPayout(ctx context.Context, userID uuid.UUID) (bool, error)
	LockPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ResolvePayoutRequest(ctx context.Context, id uuid.UUID, status string, notes *string, at time.Time) error
	ListPayoutRequests(ctx context.Context, filter PayoutFilter) ([]models.PayoutRequest, error)

	Stats(ctx context.Context) (Stats, error)
}
