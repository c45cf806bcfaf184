package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	CourseTypeSingle = "single"
	CourseTypeBundle = "bundle"
)

type Course struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title             string          `gorm:"size:255;not null" json:"title"`
	Description       string          `gorm:"type:text" json:"description"`
	Thumbnail         string          `gorm:"size:512" json:"thumbnail"`
	Price             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	IsFree            bool            `gorm:"not null;default:false" json:"is_free"`
	CourseType        string          `gorm:"size:10;not null;default:'single'" json:"course_type"`
	IncludedCourseIDs pq.StringArray  `gorm:"type:text[]" json:"included_courses"`
	Order             int             `gorm:"not null;default:0" json:"order"`

	Lessons []Lesson `gorm:"foreignkey:CourseID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Course) IsBundle() bool {
	return c.CourseType == CourseTypeBundle
}

// IncludedIDs parses the bundle member list, skipping entries that are not uuids.
func (c *Course) IncludedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.IncludedCourseIDs))
	for _, raw := range c.IncludedCourseIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Course) Includes(id uuid.UUID) bool {
	for _, member := range c.IncludedIDs() {
		if member == id {
			return true
		}
	}
	return false
}

type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Title    string    `gorm:"size:255;not null" json:"title"`
	VideoURL string    `gorm:"size:512;not null" json:"video_url"`
	Order    int       `gorm:"not null;default:0" json:"order"`

	CreatedAt time.Time `json:"created_at"`
}
