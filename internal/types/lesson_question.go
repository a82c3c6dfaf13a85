package types

import (
	"time"

	"github.com/google/uuid"
)

// Append-only question/answer exchange on a lesson.
type LessonQuestion struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Lesson    *Lesson   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	Question  string    `gorm:"column:question;type:text;not null" json:"question"`
	Answer    string    `gorm:"column:answer;type:text;not null" json:"answer"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (LessonQuestion) TableName() string { return "lesson_question" }
