package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PurchaseSourcePayment = "payment"
	PurchaseSourceAdmin   = "admin"
)

// Purchase is an immutable entitlement record. Bundles are stored as a single
// row for the bundle id; members are resolved at check time.
type Purchase struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_purchase_user_course" json:"user_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_purchase_user_course" json:"course_id"`
	SessionRef *string   `gorm:"size:255;uniqueIndex" json:"session_ref,omitempty"`
	Source     string    `gorm:"size:10;not null;default:'payment'" json:"source"`

	CreatedAt time.Time `json:"purchased_at"`
}
