package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/repos"
	"github.com/ceppa-ai/autolearn-backend/internal/requestdata"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

type LessonService interface {
	// GenerateLesson returns the stored row unchanged when one exists for
	// (course, path); otherwise it generates, persists and schedules PDF
	// conversion in the background.
	GenerateLesson(ctx context.Context, courseID uuid.UUID, title, pathInIndex string) (*types.Lesson, error)
	GetLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error)
	UpdateLesson(ctx context.Context, lessonID uuid.UUID, isCompleted *bool, userNotes *string) (*types.Lesson, error)
	RegenerateLesson(ctx context.Context, lessonID uuid.UUID, feedback string) (*types.Lesson, error)
	AskQuestion(ctx context.Context, lessonID uuid.UUID, question string) (*types.LessonQuestion, error)
	ListQuestions(ctx context.Context, lessonID uuid.UUID) ([]*types.LessonQuestion, error)
}

type lessonService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo   repos.CourseRepo
	lessonRepo   repos.LessonRepo
	questionRepo repos.LessonQuestionRepo

	content ContentService
	pdf     PDFService
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	questionRepo repos.LessonQuestionRepo,
	content ContentService,
	pdf PDFService,
) LessonService {
	return &lessonService{
		db:           db,
		log:          baseLog.With("service", "LessonService"),
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		questionRepo: questionRepo,
		content:      content,
		pdf:          pdf,
	}
}

// loadOwnedCourse fetches a course and enforces ownership from request data.
func (ls *lessonService) loadOwnedCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	courses, err := ls.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil || courses[0].UserID != rd.UserID {
		return nil, ErrNotFound
	}
	return courses[0], nil
}

// loadOwnedLesson fetches a lesson and its course, enforcing ownership.
func (ls *lessonService) loadOwnedLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, *types.Course, error) {
	lessons, err := ls.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, nil, fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, nil, ErrNotFound
	}
	lesson := lessons[0]
	course, err := ls.loadOwnedCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}

func (ls *lessonService) GenerateLesson(ctx context.Context, courseID uuid.UUID, title, pathInIndex string) (*types.Lesson, error) {
	course, err := ls.loadOwnedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	existing, err := ls.lessonRepo.GetByCoursePath(ctx, nil, courseID, pathInIndex)
	if err != nil {
		return nil, fmt.Errorf("check existing lesson: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	content, err := ls.content.GenerateLessonContent(ctx, course.Title, title, string(course.OutlineJSON), course.Language, "")
	if err != nil {
		return nil, fmt.Errorf("generate lesson content: %w", err)
	}

	lesson := &types.Lesson{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           title,
		PathInIndex:     pathInIndex,
		ContentMarkdown: content,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if _, err := ls.lessonRepo.Create(ctx, nil, []*types.Lesson{lesson}); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	ls.schedulePDF(lesson.ID, content, course.UserID, course.Title, title)
	return lesson, nil
}

// schedulePDF converts in the background and writes the resulting path with
// the repo's own DB handle; the originating request's transaction is gone by
// the time conversion finishes, so the update is deliberately decoupled.
func (ls *lessonService) schedulePDF(lessonID uuid.UUID, content string, userID uuid.UUID, courseTitle, lessonTitle string) {
	go func() {
		ctx := context.Background()
		path, err := ls.pdf.ConvertMarkdownToPDF(ctx, content, userID, courseTitle, lessonTitle)
		if err != nil {
			ls.log.Warn("Background PDF conversion errored", "lesson_id", lessonID, "error", err)
			return
		}
		if path == "" {
			return
		}
		if err := ls.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]interface{}{
			"pdf_path":   path,
			"updated_at": time.Now(),
		}); err != nil {
			ls.log.Warn("Background PDF path update failed", "lesson_id", lessonID, "error", err)
		}
	}()
}

func (ls *lessonService) GetLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	lesson, _, err := ls.loadOwnedLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (ls *lessonService) UpdateLesson(ctx context.Context, lessonID uuid.UUID, isCompleted *bool, userNotes *string) (*types.Lesson, error) {
	lesson, _, err := ls.loadOwnedLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if isCompleted != nil {
		updates["is_completed"] = *isCompleted
		lesson.IsCompleted = *isCompleted
	}
	if userNotes != nil {
		updates["user_notes"] = *userNotes
		lesson.UserNotes = userNotes
	}
	if len(updates) == 0 {
		return lesson, nil
	}
	updates["updated_at"] = time.Now()
	if err := ls.lessonRepo.UpdateFields(ctx, nil, lessonID, updates); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return lesson, nil
}

// RegenerateLesson replaces the body and clears the PDF path before any new
// conversion can complete, so a fetch in between observes a null pdf_path.
func (ls *lessonService) RegenerateLesson(ctx context.Context, lessonID uuid.UUID, feedback string) (*types.Lesson, error) {
	lesson, course, err := ls.loadOwnedLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	content, err := ls.content.GenerateLessonContent(ctx, course.Title, lesson.Title, string(course.OutlineJSON), course.Language, feedback)
	if err != nil {
		return nil, fmt.Errorf("regenerate lesson content: %w", err)
	}

	if err := ls.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]interface{}{
		"content_markdown": content,
		"pdf_path":         nil,
		"updated_at":       time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	lesson.ContentMarkdown = content
	lesson.PDFPath = nil

	ls.schedulePDF(lesson.ID, content, course.UserID, course.Title, lesson.Title)
	return lesson, nil
}

func (ls *lessonService) AskQuestion(ctx context.Context, lessonID uuid.UUID, question string) (*types.LessonQuestion, error) {
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	lesson, course, err := ls.loadOwnedLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	answer, err := ls.content.AnswerLessonQuestion(ctx, lesson.Title, lesson.ContentMarkdown, question, course.Language)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	q := &types.LessonQuestion{
		ID:        uuid.New(),
		LessonID:  lessonID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if _, err := ls.questionRepo.Create(ctx, nil, []*types.LessonQuestion{q}); err != nil {
		return nil, fmt.Errorf("create lesson question: %w", err)
	}
	return q, nil
}

func (ls *lessonService) ListQuestions(ctx context.Context, lessonID uuid.UUID) ([]*types.LessonQuestion, error) {
	if _, _, err := ls.loadOwnedLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	return ls.questionRepo.ListByLessonID(ctx, nil, lessonID)
}
