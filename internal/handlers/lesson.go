package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceppa-ai/autolearn-backend/internal/services"
)

type LessonHandler struct {
	lessonService services.LessonService
}

func NewLessonHandler(lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// POST /api/v1/lessons/generate
func (lh *LessonHandler) Generate(c *gin.Context) {
	var req struct {
		CourseID    uuid.UUID `json:"course_id"`
		Title       string    `json:"title"`
		PathInIndex string    `json:"path_in_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	lesson, err := lh.lessonService.GenerateLesson(c.Request.Context(), req.CourseID, req.Title, req.PathInIndex)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, lesson)
}

// GET /api/v1/lessons/:id
func (lh *LessonHandler) Get(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	lesson, err := lh.lessonService.GetLesson(c.Request.Context(), lessonID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, lesson)
}

// PUT /api/v1/lessons/:id
func (lh *LessonHandler) Update(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		IsCompleted *bool   `json:"is_completed"`
		UserNotes   *string `json:"user_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	lesson, err := lh.lessonService.UpdateLesson(c.Request.Context(), lessonID, req.IsCompleted, req.UserNotes)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, lesson)
}

// POST /api/v1/lessons/:id/regenerate
func (lh *LessonHandler) Regenerate(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	lesson, err := lh.lessonService.RegenerateLesson(c.Request.Context(), lessonID, req.Feedback)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, lesson)
}

// POST /api/v1/lessons/:id/questions
func (lh *LessonHandler) AskQuestion(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	question, err := lh.lessonService.AskQuestion(c.Request.Context(), lessonID, req.Question)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, question)
}

// GET /api/v1/lessons/:id/questions
func (lh *LessonHandler) ListQuestions(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	questions, err := lh.lessonService.ListQuestions(c.Request.Context(), lessonID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, questions)
}
