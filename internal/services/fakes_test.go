package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ceppa-ai/autolearn-backend/internal/requestdata"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

var errContentFailed = errors.New("content generation failed")

func timeAfter() <-chan time.Time {
	return time.After(2 * time.Millisecond)
}

// Test doubles shared by the service tests. They hold state under a mutex so
// the generation fan-out can hit them concurrently.

func authedCtx(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[uuid.UUID]*types.Course
}

func newFakeCourseRepo(courses ...*types.Course) *fakeCourseRepo {
	m := map[uuid.UUID]*types.Course{}
	for _, c := range courses {
		m[c.ID] = c
	}
	return &fakeCourseRepo{courses: m}
}

func (f *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return courses, nil
}

func (f *fakeCourseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Course{}
	for _, id := range courseIDs {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, offset, limit int) ([]*types.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Course{}
	for _, c := range f.courses {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[courseID]; ok {
		if title, ok := updates["title"].(string); ok {
			c.Title = title
		}
	}
	return nil
}

func (f *fakeCourseRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range courseIDs {
		delete(f.courses, id)
	}
	return nil
}

type fakeLessonRepo struct {
	mu        sync.Mutex
	lessons   map[uuid.UUID]*types.Lesson
	updates   []map[string]interface{}
	createErr error
}

func newFakeLessonRepo(lessons ...*types.Lesson) *fakeLessonRepo {
	m := map[uuid.UUID]*types.Lesson{}
	for _, l := range lessons {
		m[l.ID] = l
	}
	return &fakeLessonRepo{lessons: m}
}

func (f *fakeLessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, l := range lessons {
		f.lessons[l.ID] = l
	}
	return lessons, nil
}

func (f *fakeLessonRepo) GetByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Lesson{}
	for _, id := range lessonIDs {
		if l, ok := f.lessons[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLessonRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Lesson{}
	for _, l := range f.lessons {
		for _, id := range courseIDs {
			if l.CourseID == id {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (f *fakeLessonRepo) GetByCoursePath(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, path string) (*types.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lessons {
		if l.CourseID == courseID && l.PathInIndex == path {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLessonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates)
	l, ok := f.lessons[lessonID]
	if !ok {
		return nil
	}
	if v, ok := updates["content_markdown"].(string); ok {
		l.ContentMarkdown = v
	}
	if v, ok := updates["is_completed"].(bool); ok {
		l.IsCompleted = v
	}
	if v, ok := updates["user_notes"].(string); ok {
		l.UserNotes = &v
	}
	if v, found := updates["pdf_path"]; found {
		if s, ok := v.(string); ok {
			l.PDFPath = &s
		} else {
			l.PDFPath = nil
		}
	}
	return nil
}

func (f *fakeLessonRepo) DeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, l := range f.lessons {
		for _, cid := range courseIDs {
			if l.CourseID == cid {
				delete(f.lessons, id)
			}
		}
	}
	return nil
}

func (f *fakeLessonRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lessons)
}

func (f *fakeLessonRepo) byPath(courseID uuid.UUID, path string) *types.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lessons {
		if l.CourseID == courseID && l.PathInIndex == path {
			return l
		}
	}
	return nil
}

type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions []*types.LessonQuestion
}

func (f *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.LessonQuestion) ([]*types.LessonQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, questions...)
	return questions, nil
}

func (f *fakeQuestionRepo) ListByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.LessonQuestion{}
	for i := len(f.questions) - 1; i >= 0; i-- {
		if f.questions[i].LessonID == lessonID {
			out = append(out, f.questions[i])
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) DeleteByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) error {
	return nil
}

type fakeContentService struct {
	mu           sync.Mutex
	inFlight     int
	maxInFlight  int
	lessonCalls  int
	lastFeedback string
	failTitles   map[string]bool
	outlineResp  string
	outlineErr   error
	answerResp   string
}

func (f *fakeContentService) GenerateCourseOutline(ctx context.Context, topic, instructions, language string) (string, []types.OutlineModule, error) {
	if f.outlineErr != nil {
		return "", nil, f.outlineErr
	}
	var modules []types.OutlineModule
	if f.outlineResp != "" {
		modules = []types.OutlineModule{{Title: "Module 1", Lessons: []types.OutlineLesson{{Title: "Intro", Path: "1.1"}}}}
	}
	return f.outlineResp, modules, nil
}

func (f *fakeContentService) GenerateLessonContent(ctx context.Context, courseTitle, lessonTitle, outlineJSON, language, feedback string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.lessonCalls++
	f.lastFeedback = feedback
	fail := f.failTitles[lessonTitle]
	f.mu.Unlock()

	// Hold the slot briefly so overlapping units actually overlap.
	select {
	case <-ctx.Done():
	case <-timeAfter():
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if fail {
		return "", errContentFailed
	}
	return "# " + lessonTitle, nil
}

func (f *fakeContentService) AnswerLessonQuestion(ctx context.Context, lessonTitle, lessonBody, question, language string) (string, error) {
	if f.answerResp != "" {
		return f.answerResp, nil
	}
	return "answer", nil
}

func (f *fakeContentService) stats() (calls, maxInFlight int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lessonCalls, f.maxInFlight
}

type fakePDFService struct {
	mu    sync.Mutex
	calls int
	path  string
	err   error
}

func (f *fakePDFService) ConvertMarkdownToPDF(ctx context.Context, contentMD string, userID uuid.UUID, courseTitle, lessonTitle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

func (f *fakePDFService) MediaRoot() string { return "" }

func (f *fakePDFService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
