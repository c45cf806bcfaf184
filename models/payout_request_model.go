package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PayoutPending   = "pending"
	PayoutCompleted = "completed"
	PayoutRejected  = "rejected"
)

type PayoutRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method      string          `gorm:"size:10;not null" json:"payout_method"`
	Details     string          `gorm:"size:255;not null" json:"payout_details"`
	Status      string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	AdminNotes  *string         `gorm:"type:text" json:"admin_notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`

	User User `gorm:"foreignkey:UserID" json:"-"`
}
