package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/utils"
)

// PDFService shells out to pandoc to convert lesson markdown into a PDF under
// the media root. Conversion is best-effort: engines are tried in order and a
// total failure returns an empty path with a nil error, so callers treat a
// missing pdf_path as "not available".
type PDFService interface {
	ConvertMarkdownToPDF(ctx context.Context, contentMD string, userID uuid.UUID, courseTitle, lessonTitle string) (string, error)
	MediaRoot() string
}

type pdfService struct {
	log       *logger.Logger
	mediaRoot string
	pandocBin string
	engines   []string
	timeout   time.Duration
}

func NewPDFService(baseLog *logger.Logger) (PDFService, error) {
	log := baseLog.With("service", "PDFService")

	mediaRoot := utils.GetEnv("MEDIA_ROOT", "./user_files", log)
	if err := os.MkdirAll(mediaRoot, 0o755); err != nil {
		return nil, fmt.Errorf("Failed to create media root %s: %w", mediaRoot, err)
	}
	pandocBin := utils.GetEnv("PANDOC_BIN", "pandoc", log)
	timeoutSec := utils.GetEnvAsInt("PANDOC_TIMEOUT_SECONDS", 120, log)

	return &pdfService{
		log:       log,
		mediaRoot: mediaRoot,
		pandocBin: pandocBin,
		engines:   []string{"xelatex", "pdflatex"},
		timeout:   time.Duration(timeoutSec) * time.Second,
	}, nil
}

func (ps *pdfService) MediaRoot() string {
	return ps.mediaRoot
}

func (ps *pdfService) ConvertMarkdownToPDF(ctx context.Context, contentMD string, userID uuid.UUID, courseTitle, lessonTitle string) (string, error) {
	safeCourse := utils.SanitizeFilename(courseTitle)
	safeLesson := utils.SanitizeFilename(lessonTitle)

	dirPath := filepath.Join(ps.mediaRoot, userID.String(), safeCourse)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("create lesson dir: %w", err)
	}

	mdFile := filepath.Join(dirPath, safeLesson+".md")
	pdfFile := filepath.Join(dirPath, safeLesson+".pdf")

	if err := os.WriteFile(mdFile, []byte(contentMD), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	for i, engine := range ps.engines {
		runCtx, cancel := context.WithTimeout(ctx, ps.timeout)
		cmd := exec.CommandContext(runCtx, ps.pandocBin,
			mdFile,
			"-o", pdfFile,
			"--pdf-engine="+engine,
			"-V", "geometry:margin=1in",
			"--toc",
		)
		out, err := cmd.CombinedOutput()
		cancel()
		if err == nil {
			return filepath.Join(userID.String(), safeCourse, safeLesson+".pdf"), nil
		}

		ps.log.Warn("pandoc conversion failed",
			"engine", engine,
			"lesson", lessonTitle,
			"error", err,
			"output", string(out),
		)
		if i == len(ps.engines)-1 {
			// All engines exhausted; the lesson simply stays without a PDF.
			return "", nil
		}
	}
	return "", nil
}
