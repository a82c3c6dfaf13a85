package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceppa-ai/autolearn-backend/internal/services"
)

type CourseHandler struct {
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// POST /api/v1/courses
func (ch *CourseHandler) Create(c *gin.Context) {
	var req struct {
		Topic              string `json:"topic"`
		CustomInstructions string `json:"custom_instructions"`
		Language           string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	course, err := ch.courseService.CreateCourse(c.Request.Context(), req.Topic, req.CustomInstructions, req.Language)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, course)
}

// GET /api/v1/courses
func (ch *CourseHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	courses, err := ch.courseService.ListCourses(c.Request.Context(), offset, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, courses)
}

// GET /api/v1/courses/:id
func (ch *CourseHandler) Get(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	course, err := ch.courseService.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, course)
}

// PUT /api/v1/courses/:id
func (ch *CourseHandler) Update(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	course, err := ch.courseService.UpdateCourseTitle(c.Request.Context(), courseID, req.Title)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, course)
}

// DELETE /api/v1/courses/:id
func (ch *CourseHandler) Delete(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ch.courseService.DeleteCourse(c.Request.Context(), courseID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "course deleted successfully"})
}

// GET /api/v1/courses/:id/lessons
func (ch *CourseHandler) ListLessonStubs(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	stubs, err := ch.courseService.ListLessonStubs(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stubs)
}
