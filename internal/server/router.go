package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ceppa-ai/autolearn-backend/internal/handlers"
	"github.com/ceppa-ai/autolearn-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CourseHandler     *handlers.CourseHandler
	LessonHandler     *handlers.LessonHandler
	GenerationHandler *handlers.GenerationHandler
	AllowOrigins      []string
	MediaRoot         string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.MediaRoot != "" {
		router.Static("/media", cfg.MediaRoot)
	}
	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api/v1")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	// Courses
	protected.POST("/courses", cfg.CourseHandler.Create)
	protected.GET("/courses", cfg.CourseHandler.List)
	protected.GET("/courses/:id", cfg.CourseHandler.Get)
	protected.PUT("/courses/:id", cfg.CourseHandler.Update)
	protected.DELETE("/courses/:id", cfg.CourseHandler.Delete)
	protected.GET("/courses/:id/lessons", cfg.CourseHandler.ListLessonStubs)
	protected.POST("/courses/:id/generate-lessons", cfg.GenerationHandler.StartBatch)
	protected.GET("/courses/:id/generation-status", cfg.GenerationHandler.GetStatus)
	// Lessons
	protected.POST("/lessons/generate", cfg.LessonHandler.Generate)
	protected.GET("/lessons/:id", cfg.LessonHandler.Get)
	protected.PUT("/lessons/:id", cfg.LessonHandler.Update)
	protected.POST("/lessons/:id/regenerate", cfg.LessonHandler.Regenerate)
	protected.POST("/lessons/:id/questions", cfg.LessonHandler.AskQuestion)
	protected.GET("/lessons/:id/questions", cfg.LessonHandler.ListQuestions)

	return router
}
