package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

type LessonQuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, questions []*types.LessonQuestion) ([]*types.LessonQuestion, error)
	// ListByLessonID returns questions most-recent-first.
	ListByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonQuestion, error)
	DeleteByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) error
}

type lessonQuestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonQuestionRepo(db *gorm.DB, baseLog *logger.Logger) LessonQuestionRepo {
	repoLog := baseLog.With("repo", "LessonQuestionRepo")
	return &lessonQuestionRepo{db: db, log: repoLog}
}

func (qr *lessonQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.LessonQuestion) ([]*types.LessonQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if len(questions) == 0 {
		return []*types.LessonQuestion{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (qr *lessonQuestionRepo) ListByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.LessonQuestion
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *lessonQuestionRepo) DeleteByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if len(lessonIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("lesson_id IN ?", lessonIDs).
		Delete(&types.LessonQuestion{}).Error
}
