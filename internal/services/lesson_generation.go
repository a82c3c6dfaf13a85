package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/repos"
	"github.com/ceppa-ai/autolearn-backend/internal/requestdata"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

// LessonGenerationService runs the whole-course generation fan-out: it diffs
// the outline against persisted lessons, schedules one unit of work per
// missing lesson under a shared concurrency cap, and tallies progress into
// the batch status store that the polling endpoint reads.
type LessonGenerationService interface {
	StartBatch(ctx context.Context, courseID uuid.UUID) (*BatchStartResult, error)
	GetStatus(ctx context.Context, courseID uuid.UUID) (BatchStatus, error)
}

type BatchStartResult struct {
	TotalLessons     int    `json:"total_lessons"`
	AlreadyGenerated int    `json:"already_generated"`
	ToGenerate       int    `json:"to_generate"`
	Message          string `json:"message,omitempty"`
}

type lessonGenerationService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo repos.CourseRepo
	lessonRepo repos.LessonRepo

	content ContentService
	pdf     PDFService
	status  BatchStatusStore

	maxConcurrent int
}

func NewLessonGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	content ContentService,
	pdf PDFService,
	status BatchStatusStore,
	maxConcurrent int,
) LessonGenerationService {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &lessonGenerationService{
		db:            db,
		log:           baseLog.With("service", "LessonGenerationService"),
		courseRepo:    courseRepo,
		lessonRepo:    lessonRepo,
		content:       content,
		pdf:           pdf,
		status:        status,
		maxConcurrent: maxConcurrent,
	}
}

func (gs *lessonGenerationService) StartBatch(ctx context.Context, courseID uuid.UUID) (*BatchStartResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}

	courses, err := gs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil || courses[0].UserID != rd.UserID {
		return nil, ErrNotFound
	}
	course := courses[0]

	var modules []types.OutlineModule
	if err := json.Unmarshal(course.OutlineJSON, &modules); err != nil {
		return nil, fmt.Errorf("course outline is not valid JSON: %w", err)
	}
	stubs := types.FlattenOutline(modules)

	existing, err := gs.lessonRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load existing lessons: %w", err)
	}
	existingPaths := map[string]bool{}
	for _, l := range existing {
		if l != nil {
			existingPaths[l.PathInIndex] = true
		}
	}

	missing := make([]types.OutlineLesson, 0, len(stubs))
	for _, stub := range stubs {
		if !existingPaths[stub.Path] {
			missing = append(missing, stub)
		}
	}

	result := &BatchStartResult{
		TotalLessons:     len(stubs),
		AlreadyGenerated: len(stubs) - len(missing),
		ToGenerate:       len(missing),
	}

	if len(missing) == 0 {
		// Nothing to do; the previous status record (if any) stays untouched.
		result.Message = "all lessons already generated"
		return result, nil
	}

	key := BatchKey{CourseID: courseID, UserID: rd.UserID}
	gs.status.Begin(key, len(missing))

	// The fan-out outlives this request, so it runs on a fresh context; a
	// process restart drops both the in-flight units and the status record.
	go gs.runBatch(context.Background(), key, course, missing)

	return result, nil
}

func (gs *lessonGenerationService) runBatch(ctx context.Context, key BatchKey, course *types.Course, missing []types.OutlineLesson) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gs.maxConcurrent)

	for _, stub := range missing {
		stub := stub
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					gs.log.Error("Lesson generation unit panicked", "course_id", key.CourseID, "path", stub.Path, "panic", r)
					gs.status.RecordFailure(key, stub.Title, fmt.Sprintf("panic: %v", r))
				}
			}()
			gs.generateOne(gctx, key, course, stub)
			// Unit outcomes land in the status record; a failed lesson must
			// never cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()
	gs.status.Finish(key)

	final := gs.status.Get(key)
	gs.log.Info("Lesson generation batch finished",
		"course_id", key.CourseID,
		"completed", final.Completed,
		"failed", final.Failed,
		"duration", time.Since(start).String(),
	)
}

// generateOne runs one lesson's unit of work: content, persist, convert,
// update pdf path. The steps are strictly sequential within the unit.
func (gs *lessonGenerationService) generateOne(ctx context.Context, key BatchKey, course *types.Course, stub types.OutlineLesson) {
	content, err := gs.content.GenerateLessonContent(ctx, course.Title, stub.Title, string(course.OutlineJSON), course.Language, "")
	if err != nil {
		gs.log.Warn("Lesson content generation failed", "course_id", course.ID, "path", stub.Path, "error", err)
		gs.status.RecordFailure(key, stub.Title, err.Error())
		return
	}

	lesson := &types.Lesson{
		ID:              uuid.New(),
		CourseID:        course.ID,
		Title:           stub.Title,
		PathInIndex:     stub.Path,
		ContentMarkdown: content,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if _, err := gs.lessonRepo.Create(ctx, nil, []*types.Lesson{lesson}); err != nil {
		gs.log.Warn("Lesson persist failed", "course_id", course.ID, "path", stub.Path, "error", err)
		gs.status.RecordFailure(key, stub.Title, err.Error())
		return
	}

	// PDF conversion is best-effort: a lesson without a PDF is still a
	// generated lesson, so conversion failures never count as unit failures.
	pdfPath, err := gs.pdf.ConvertMarkdownToPDF(ctx, content, key.UserID, course.Title, stub.Title)
	if err != nil {
		gs.log.Warn("PDF conversion errored", "lesson_id", lesson.ID, "error", err)
	} else if pdfPath != "" {
		if err := gs.lessonRepo.UpdateFields(ctx, nil, lesson.ID, map[string]interface{}{
			"pdf_path":   pdfPath,
			"updated_at": time.Now(),
		}); err != nil {
			gs.log.Warn("PDF path update failed", "lesson_id", lesson.ID, "error", err)
		}
	}

	gs.status.RecordSuccess(key)
}

func (gs *lessonGenerationService) GetStatus(ctx context.Context, courseID uuid.UUID) (BatchStatus, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return BatchStatus{}, fmt.Errorf("not authenticated")
	}

	courses, err := gs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return BatchStatus{}, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil || courses[0].UserID != rd.UserID {
		return BatchStatus{}, ErrNotFound
	}

	return gs.status.Get(BatchKey{CourseID: courseID, UserID: rd.UserID}), nil
}
