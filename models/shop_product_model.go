package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShopProduct struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:512" json:"image"`
	InStock     bool            `gorm:"not null;default:true" json:"in_stock"`
	Order       int             `gorm:"not null;default:0" json:"order"`

	CreatedAt time.Time `json:"created_at"`
}
