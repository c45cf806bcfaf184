package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SessionOpen    = "open"
	SessionPaid    = "paid"
	SessionExpired = "expired"

	IntentSubscription = "subscription"
	IntentCourse       = "course"
	IntentShopProduct  = "shop_product"
)

// Intent names what a checkout session pays for.
type Intent struct {
	Kind     string
	TargetID string
}

func (i Intent) String() string {
	return i.Kind + ":" + i.TargetID
}

func ParseIntent(s string) (Intent, error) {
	kind, target, ok := strings.Cut(s, ":")
	if !ok || target == "" {
		return Intent{}, fmt.Errorf("malformed intent %q", s)
	}
	switch kind {
	case IntentSubscription, IntentCourse, IntentShopProduct:
		return Intent{Kind: kind, TargetID: target}, nil
	}
	return Intent{}, fmt.Errorf("unknown intent kind %q", kind)
}

type PaymentSession struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionRef string          `gorm:"size:255;not null;uniqueIndex" json:"session_id"`
	Provider   string          `gorm:"size:20;not null" json:"provider"`
	Intent     string          `gorm:"size:80;not null" json:"intent"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency   string          `gorm:"size:3;not null" json:"currency"`
	Status     string          `gorm:"size:10;not null;default:'open';index" json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *PaymentSession) ParsedIntent() (Intent, error) {
	return ParseIntent(p.Intent)
}

// PricingPlan is a subscription offering; prices are fixed server side.
type PricingPlan struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Interval string          `json:"interval"`
}

var PricingPlans = map[string]PricingPlan{
	"monthly":  {ID: "monthly", Name: "Monthly Subscription", Price: decimal.RequireFromString("29.99"), Interval: "month"},
	"yearly":   {ID: "yearly", Name: "Yearly Subscription", Price: decimal.RequireFromString("249.99"), Interval: "year"},
	"lifetime": {ID: "lifetime", Name: "Lifetime Access", Price: decimal.RequireFromString("499.99"), Interval: "once"},
}
