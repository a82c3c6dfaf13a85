package types

import (
	"time"

	"github.com/google/uuid"
)

// PathInIndex is the lesson's position in the course outline ("1.2" style).
// It is treated as an opaque key: never parsed, only compared for equality.
// The (course_id, path_in_index) pair is unique in practice; the generation
// pipeline skips paths that already have a row.
type Lesson struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID        uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Course          *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title           string    `gorm:"column:title;not null" json:"title"`
	PathInIndex     string    `gorm:"column:path_in_index;not null;index" json:"path_in_index"`
	ContentMarkdown string    `gorm:"column:content_markdown;type:text" json:"content_markdown"`
	PDFPath         *string   `gorm:"column:pdf_path" json:"pdf_path"`
	IsCompleted     bool      `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	UserNotes       *string   `gorm:"column:user_notes;type:text" json:"user_notes"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }
