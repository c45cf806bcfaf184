package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
)

type Referral struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ReferrerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"referrer_id"`
	ReferredUserID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"referred_user_id"`
	AffiliateCode  string          `gorm:"size:10;not null" json:"affiliate_code"`
	Status         string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	RewardAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"reward_amount"`
	SessionRef     *string         `gorm:"size:255;uniqueIndex" json:"session_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
