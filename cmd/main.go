package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ceppa-ai/autolearn-backend/internal/db"
	"github.com/ceppa-ai/autolearn-backend/internal/handlers"
	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/middleware"
	"github.com/ceppa-ai/autolearn-backend/internal/repos"
	"github.com/ceppa-ai/autolearn-backend/internal/server"
	"github.com/ceppa-ai/autolearn-backend/internal/services"
	"github.com/ceppa-ai/autolearn-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	maxConcurrent := utils.GetEnvAsInt("LESSON_GEN_MAX_CONCURRENT", 3, log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	lessonQuestionRepo := repos.NewLessonQuestionRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	pdfService, err := services.NewPDFService(log)
	if err != nil {
		log.Error("Could not init PDFService", "error", err)
		os.Exit(1)
	}
	contentService := services.NewContentService(log, openaiClient)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	courseService := services.NewCourseService(thePG, log, courseRepo, lessonRepo, lessonQuestionRepo, contentService)
	lessonService := services.NewLessonService(thePG, log, courseRepo, lessonRepo, lessonQuestionRepo, contentService, pdfService)

	var statusStore services.BatchStatusStore
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
		redisDB := utils.GetEnvAsInt("REDIS_DB", 0, log)
		statusStore = services.NewRedisStatusStore(redisAddr, redisPassword, redisDB, log)
	} else {
		statusStore = services.NewMemoryStatusStore()
	}
	generationService := services.NewLessonGenerationService(thePG, log, courseRepo, lessonRepo, contentService, pdfService, statusStore, maxConcurrent)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	courseHandler := handlers.NewCourseHandler(courseService)
	lessonHandler := handlers.NewLessonHandler(lessonService)
	generationHandler := handlers.NewGenerationHandler(generationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		CourseHandler:     courseHandler,
		LessonHandler:     lessonHandler,
		GenerationHandler: generationHandler,
		AllowOrigins:      allowOrigins,
		MediaRoot:         pdfService.MediaRoot(),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
