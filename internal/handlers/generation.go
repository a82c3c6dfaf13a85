package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceppa-ai/autolearn-backend/internal/services"
)

type GenerationHandler struct {
	genService services.LessonGenerationService
}

func NewGenerationHandler(genService services.LessonGenerationService) *GenerationHandler {
	return &GenerationHandler{genService: genService}
}

// POST /api/v1/courses/:id/generate-lessons
//
// Schedules generation of every outline lesson that has no row yet and
// returns immediately; progress is visible on the status endpoint. Failures
// inside the batch never surface here.
func (gh *GenerationHandler) StartBatch(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := gh.genService.StartBatch(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/v1/courses/:id/generation-status
func (gh *GenerationHandler) GetStatus(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	status, err := gh.genService.GetStatus(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, status)
}
