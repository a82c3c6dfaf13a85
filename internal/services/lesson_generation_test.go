package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

func outlineJSON(paths ...string) datatypes.JSON {
	out := `[{"title":"Module 1","lessons":[`
	for i, p := range paths {
		if i > 0 {
			out += ","
		}
		out += `{"title":"Lesson ` + p + `","path":"` + p + `"}`
	}
	out += `]}]`
	return datatypes.JSON(out)
}

func testCourse(userID uuid.UUID, paths ...string) *types.Course {
	return &types.Course{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Go from Scratch",
		OutlineJSON: outlineJSON(paths...),
		Language:    "en",
	}
}

func newGenService(t *testing.T, courseRepo *fakeCourseRepo, lessonRepo *fakeLessonRepo, content *fakeContentService, pdf *fakePDFService, maxConcurrent int) (LessonGenerationService, BatchStatusStore) {
	t.Helper()
	store := NewMemoryStatusStore()
	svc := NewLessonGenerationService(nil, testLogger(t), courseRepo, lessonRepo, content, pdf, store, maxConcurrent)
	return svc, store
}

// waitForBatch polls until the batch record reports done.
func waitForBatch(t *testing.T, store BatchStatusStore, key BatchKey) BatchStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got := store.Get(key)
		if got.Total > 0 && !got.InProgress {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("batch did not finish in time: %#v", store.Get(key))
	return BatchStatus{}
}

func TestStartBatch_RequiresAuthentication(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1")
	svc, _ := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), &fakeContentService{}, &fakePDFService{}, 2)

	if _, err := svc.StartBatch(authedCtx(uuid.Nil), course.ID); err == nil {
		t.Fatalf("expected error without authenticated user")
	}
}

func TestStartBatch_UnknownCourseReturnsNotFound(t *testing.T) {
	svc, _ := newGenService(t, newFakeCourseRepo(), newFakeLessonRepo(), &fakeContentService{}, &fakePDFService{}, 2)

	_, err := svc.StartBatch(authedCtx(uuid.New()), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartBatch_OtherUsersCourseReturnsNotFound(t *testing.T) {
	course := testCourse(uuid.New(), "1.1")
	svc, _ := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), &fakeContentService{}, &fakePDFService{}, 2)

	_, err := svc.StartBatch(authedCtx(uuid.New()), course.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign course, got %v", err)
	}
}

func TestStartBatch_MalformedOutlineFails(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID)
	course.OutlineJSON = datatypes.JSON(`{"not": "an array"`)
	content := &fakeContentService{}
	svc, _ := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), content, &fakePDFService{}, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err == nil {
		t.Fatalf("expected error for malformed outline")
	}
	if calls, _ := content.stats(); calls != 0 {
		t.Fatalf("expected no generation calls, got %d", calls)
	}
}

func TestStartBatch_AllLessonsExistingSkipsBatch(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1", "1.2")
	lessonRepo := newFakeLessonRepo(
		&types.Lesson{ID: uuid.New(), CourseID: course.ID, PathInIndex: "1.1"},
		&types.Lesson{ID: uuid.New(), CourseID: course.ID, PathInIndex: "1.2"},
	)
	content := &fakeContentService{}
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, content, &fakePDFService{}, 2)

	result, err := svc.StartBatch(authedCtx(userID), course.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if result.TotalLessons != 2 || result.AlreadyGenerated != 2 || result.ToGenerate != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.Message == "" {
		t.Fatalf("expected nothing-to-do message")
	}
	if calls, _ := content.stats(); calls != 0 {
		t.Fatalf("expected no generation calls, got %d", calls)
	}
	got := store.Get(BatchKey{CourseID: course.ID, UserID: userID})
	if got.Total != 0 || got.InProgress {
		t.Fatalf("expected status untouched, got %#v", got)
	}
}

func TestStartBatch_GeneratesOnlyMissingLessons(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1", "1.2", "2.1")
	lessonRepo := newFakeLessonRepo(
		&types.Lesson{ID: uuid.New(), CourseID: course.ID, PathInIndex: "1.2"},
	)
	content := &fakeContentService{}
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, content, &fakePDFService{}, 2)

	result, err := svc.StartBatch(authedCtx(userID), course.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if result.TotalLessons != 3 || result.AlreadyGenerated != 1 || result.ToGenerate != 2 {
		t.Fatalf("unexpected result: %#v", result)
	}

	got := waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})
	if got.Total != 2 || got.Completed != 2 || got.Failed != 0 {
		t.Fatalf("unexpected final status: %#v", got)
	}
	if lessonRepo.count() != 3 {
		t.Fatalf("expected 3 lesson rows, got %d", lessonRepo.count())
	}
	if calls, _ := content.stats(); calls != 2 {
		t.Fatalf("expected 2 generation calls, got %d", calls)
	}
	if l := lessonRepo.byPath(course.ID, "2.1"); l == nil || l.ContentMarkdown == "" {
		t.Fatalf("expected generated content for 2.1, got %#v", l)
	}
}

func TestStartBatch_FailedLessonDoesNotCancelSiblings(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1", "1.2", "1.3")
	content := &fakeContentService{failTitles: map[string]bool{"Lesson 1.2": true}}
	lessonRepo := newFakeLessonRepo()
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, content, &fakePDFService{}, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})
	if got.Completed != 2 || got.Failed != 1 {
		t.Fatalf("unexpected final status: %#v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0].Lesson != "Lesson 1.2" {
		t.Fatalf("unexpected errors: %#v", got.Errors)
	}
	if lessonRepo.count() != 2 {
		t.Fatalf("expected 2 persisted lessons, got %d", lessonRepo.count())
	}
	if got.Completed+got.Failed != got.Total {
		t.Fatalf("accounting mismatch: %#v", got)
	}
}

func TestStartBatch_PersistFailureCountsAsUnitFailure(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1")
	lessonRepo := newFakeLessonRepo()
	lessonRepo.createErr = errors.New("insert failed")
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, &fakeContentService{}, &fakePDFService{}, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})
	if got.Completed != 0 || got.Failed != 1 {
		t.Fatalf("unexpected final status: %#v", got)
	}
}

func TestStartBatch_PDFFailureStillCountsSuccess(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1", "1.2")
	pdf := &fakePDFService{err: errors.New("pandoc missing")}
	lessonRepo := newFakeLessonRepo()
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, &fakeContentService{}, pdf, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})
	if got.Completed != 2 || got.Failed != 0 {
		t.Fatalf("pdf failure leaked into status: %#v", got)
	}
	if lessonRepo.count() != 2 {
		t.Fatalf("expected lessons persisted despite pdf failure, got %d", lessonRepo.count())
	}
	if pdf.callCount() != 2 {
		t.Fatalf("expected 2 conversion attempts, got %d", pdf.callCount())
	}
}

func TestStartBatch_PDFPathPersistedOnSuccess(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1")
	pdf := &fakePDFService{path: "u/c/l.pdf"}
	lessonRepo := newFakeLessonRepo()
	svc, store := newGenService(t, newFakeCourseRepo(course), lessonRepo, &fakeContentService{}, pdf, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})

	l := lessonRepo.byPath(course.ID, "1.1")
	if l == nil || l.PDFPath == nil || *l.PDFPath != "u/c/l.pdf" {
		t.Fatalf("expected pdf path persisted, got %#v", l)
	}
}

func TestStartBatch_RespectsConcurrencyCap(t *testing.T) {
	userID := uuid.New()
	paths := []string{"1.1", "1.2", "1.3", "2.1", "2.2", "2.3", "3.1", "3.2"}
	course := testCourse(userID, paths...)
	content := &fakeContentService{}
	svc, store := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), content, &fakePDFService{}, 2)

	if _, err := svc.StartBatch(authedCtx(userID), course.ID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := waitForBatch(t, store, BatchKey{CourseID: course.ID, UserID: userID})
	if got.Completed != len(paths) {
		t.Fatalf("unexpected final status: %#v", got)
	}
	calls, maxInFlight := content.stats()
	if calls != len(paths) {
		t.Fatalf("expected %d calls, got %d", len(paths), calls)
	}
	if maxInFlight > 2 {
		t.Fatalf("concurrency cap exceeded: %d in flight", maxInFlight)
	}
}

func TestGetStatus_ScopedToOwner(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1")
	svc, store := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), &fakeContentService{}, &fakePDFService{}, 2)

	store.Begin(BatchKey{CourseID: course.ID, UserID: userID}, 1)

	got, err := svc.GetStatus(authedCtx(userID), course.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Total != 1 || !got.InProgress {
		t.Fatalf("unexpected status: %#v", got)
	}

	if _, err := svc.GetStatus(authedCtx(uuid.New()), course.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestGetStatus_NeverStartedReadsAsZero(t *testing.T) {
	userID := uuid.New()
	course := testCourse(userID, "1.1")
	svc, _ := newGenService(t, newFakeCourseRepo(course), newFakeLessonRepo(), &fakeContentService{}, &fakePDFService{}, 2)

	got, err := svc.GetStatus(authedCtx(userID), course.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Total != 0 || got.InProgress || len(got.Errors) != 0 {
		t.Fatalf("expected zero record, got %#v", got)
	}
}
