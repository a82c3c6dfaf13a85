package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/repos"
	"github.com/ceppa-ai/autolearn-backend/internal/requestdata"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

type CourseService interface {
	CreateCourse(ctx context.Context, topic, customInstructions, language string) (*types.Course, error)
	ListCourses(ctx context.Context, offset, limit int) ([]*types.Course, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	UpdateCourseTitle(ctx context.Context, courseID uuid.UUID, title string) (*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
	// ListLessonStubs reports which outline paths have generated lessons and
	// their completion state, for course views.
	ListLessonStubs(ctx context.Context, courseID uuid.UUID) ([]LessonStub, error)
}

type LessonStub struct {
	PathInIndex string `json:"path_in_index"`
	IsCompleted bool   `json:"is_completed"`
}

type courseService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo   repos.CourseRepo
	lessonRepo   repos.LessonRepo
	questionRepo repos.LessonQuestionRepo
	content      ContentService
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	questionRepo repos.LessonQuestionRepo,
	content ContentService,
) CourseService {
	return &courseService{
		db:           db,
		log:          baseLog.With("service", "CourseService"),
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		questionRepo: questionRepo,
		content:      content,
	}
}

func (cs *courseService) CreateCourse(ctx context.Context, topic, customInstructions, language string) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if language == "" {
		language = "en"
	}

	// Outline generation happens before any row exists; a malformed outline
	// means no course is created at all.
	outlineJSON, _, err := cs.content.GenerateCourseOutline(ctx, topic, customInstructions, language)
	if err != nil {
		return nil, fmt.Errorf("generate course outline: %w", err)
	}

	now := time.Now()
	course := &types.Course{
		ID:          uuid.New(),
		UserID:      rd.UserID,
		Title:       topic,
		Description: fmt.Sprintf("Course on %s", topic),
		OutlineJSON: datatypes.JSON([]byte(outlineJSON)),
		Language:    language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := cs.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

func (cs *courseService) ListCourses(ctx context.Context, offset, limit int) ([]*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return cs.courseRepo.ListByUserID(ctx, nil, rd.UserID, offset, limit)
}

func (cs *courseService) GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	courses, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil || courses[0].UserID != rd.UserID {
		return nil, ErrNotFound
	}
	return courses[0], nil
}

func (cs *courseService) UpdateCourseTitle(ctx context.Context, courseID uuid.UUID, title string) (*types.Course, error) {
	course, err := cs.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return course, nil
	}
	if err := cs.courseRepo.UpdateFields(ctx, nil, courseID, map[string]interface{}{
		"title":      title,
		"updated_at": time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	course.Title = title
	return course, nil
}

// DeleteCourse removes the course together with its lessons and their
// questions. The cascade is orchestrated here rather than left to storage
// constraints.
func (cs *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	course, err := cs.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessons, lErr := cs.lessonRepo.GetByCourseIDs(ctx, tx, []uuid.UUID{course.ID})
		if lErr != nil {
			return fmt.Errorf("load lessons: %w", lErr)
		}
		lessonIDs := make([]uuid.UUID, 0, len(lessons))
		for _, l := range lessons {
			if l != nil {
				lessonIDs = append(lessonIDs, l.ID)
			}
		}
		if err := cs.questionRepo.DeleteByLessonIDs(ctx, tx, lessonIDs); err != nil {
			return fmt.Errorf("delete lesson questions: %w", err)
		}
		if err := cs.lessonRepo.DeleteByCourseIDs(ctx, tx, []uuid.UUID{course.ID}); err != nil {
			return fmt.Errorf("delete lessons: %w", err)
		}
		if err := cs.courseRepo.DeleteByIDs(ctx, tx, []uuid.UUID{course.ID}); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
}

func (cs *courseService) ListLessonStubs(ctx context.Context, courseID uuid.UUID) ([]LessonStub, error) {
	course, err := cs.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := cs.lessonRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{course.ID})
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	stubs := make([]LessonStub, 0, len(lessons))
	for _, l := range lessons {
		if l != nil {
			stubs = append(stubs, LessonStub{PathInIndex: l.PathInIndex, IsCompleted: l.IsCompleted})
		}
	}
	return stubs, nil
}
