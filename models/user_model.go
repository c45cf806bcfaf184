package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"

	PayoutMethodPayPal = "paypal"
	PayoutMethodWise   = "wise"
	PayoutMethodIBAN   = "iban"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"name"`
	Email    string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'member'" json:"role"`

	SubscriptionStatus string  `gorm:"size:20;not null;default:'inactive'" json:"subscription_status"`
	SubscriptionPlan   *string `gorm:"size:32" json:"subscription_plan,omitempty"`

	AffiliateCode        string          `gorm:"size:10;not null;uniqueIndex" json:"affiliate_code"`
	ReferredBy           *string         `gorm:"size:10;index" json:"referred_by"`
	ReferredAt           *time.Time      `json:"referred_at,omitempty"`
	AffiliateBalance     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"affiliate_balance"`
	AffiliateTotalEarned decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"affiliate_total_earned"`
	PayoutMethod         *string         `gorm:"size:10" json:"payout_method"`
	PayoutDetails        *string         `gorm:"size:255" json:"payout_details"`

	// Set by the user's first confirmed payment. Only that payment can earn
	// their referrer a commission.
	CommissionPaid bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) HasActiveSubscription() bool {
	return u != nil && u.SubscriptionStatus == SubscriptionActive
}
