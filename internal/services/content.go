package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
	"github.com/ceppa-ai/autolearn-backend/internal/types"
)

// ContentService owns every prompt sent to the completion API: course
// outlines, lesson bodies and lesson Q&A. The outline response is validated
// as JSON here so callers never persist a malformed outline.
type ContentService interface {
	GenerateCourseOutline(ctx context.Context, topic, instructions, language string) (string, []types.OutlineModule, error)
	GenerateLessonContent(ctx context.Context, courseTitle, lessonTitle, outlineJSON, language, feedback string) (string, error)
	AnswerLessonQuestion(ctx context.Context, lessonTitle, lessonBody, question, language string) (string, error)
}

type contentService struct {
	log *logger.Logger
	ai  OpenAIClient
}

func NewContentService(baseLog *logger.Logger, ai OpenAIClient) ContentService {
	return &contentService{
		log: baseLog.With("service", "ContentService"),
		ai:  ai,
	}
}

var languageNames = map[string]string{
	"en": "English",
	"it": "Italian",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ar": "Arabic",
}

func languageInstruction(language, verb string) string {
	name, ok := languageNames[language]
	if !ok {
		name = strings.ToUpper(language)
	}
	return fmt.Sprintf("%s in %s.", verb, name)
}

// stripCodeFences removes a leading ```json / ``` marker and a trailing ```
// so that models which wrap JSON in fences despite instructions still parse.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

func (cs *contentService) GenerateCourseOutline(ctx context.Context, topic, instructions, language string) (string, []types.OutlineModule, error) {
	if language == "" {
		language = "en"
	}

	extra := ""
	if strings.TrimSpace(instructions) != "" {
		extra = fmt.Sprintf("Additional User Instructions: %s\n", instructions)
	}

	prompt := fmt.Sprintf(`Act as an expert curriculum designer. Create a comprehensive and detailed course syllabus for the topic: %q.
%s
%s
The output MUST be a valid JSON array of Modules. Each Module has a "title" and a list of "lessons".
Each Lesson has a "title" and a "path". The path should be a hierarchical number string (e.g. "1.1", "1.2").

Example JSON format:
[
  {
    "title": "Module 1: Introduction",
    "lessons": [
      {"title": "What is %s?", "path": "1.1"},
      {"title": "Setup and Installation", "path": "1.2"}
    ]
  }
]

Provide ONLY the JSON output. Do not include markdown formatting (like `+"```json"+`), just the raw JSON.
Make the course deep and comprehensive.`, topic, languageInstruction(language, "Respond"), extra, topic)

	raw, err := cs.ai.Complete(ctx, prompt, 0.7)
	if err != nil {
		return "", nil, fmt.Errorf("generate course outline: %w", err)
	}

	cleaned := stripCodeFences(raw)
	var modules []types.OutlineModule
	if err := json.Unmarshal([]byte(cleaned), &modules); err != nil {
		return "", nil, fmt.Errorf("outline is not valid JSON: %w", err)
	}
	return cleaned, modules, nil
}

func (cs *contentService) GenerateLessonContent(ctx context.Context, courseTitle, lessonTitle, outlineJSON, language, feedback string) (string, error) {
	if language == "" {
		language = "en"
	}

	feedbackInstruction := ""
	if strings.TrimSpace(feedback) != "" {
		feedbackInstruction = fmt.Sprintf("\n\nIMPORTANT: The user provided this feedback about the previous version:\n%s\nPlease address these concerns and improve the lesson accordingly.", feedback)
	}

	prompt := fmt.Sprintf(`Act as an expert instructor. Write a comprehensive lesson for the course %q on the specific lesson: %q.
%s

The course context (index) is:
%s

Your output should be detailed, educational Markdown.
Structure:
1. Title
2. Introduction
3. Core Concepts (use subsections)
4. Examples (code blocks or practical examples)
5. Exercises (A section with 3-5 practical exercises or questions for the student to solve offline).

Do not use LaTeX math delimiters like \(. Use standard markdown.
Make it engaging and clear.%s`, courseTitle, lessonTitle, languageInstruction(language, "Write the lesson"), outlineJSON, feedbackInstruction)

	content, err := cs.ai.Complete(ctx, prompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("generate lesson content: %w", err)
	}
	return content, nil
}

func (cs *contentService) AnswerLessonQuestion(ctx context.Context, lessonTitle, lessonBody, question, language string) (string, error) {
	if language == "" {
		language = "en"
	}

	prompt := fmt.Sprintf(`Act as a patient tutor. A student is studying the lesson %q and asked a question about it.
%s

Lesson content:
%s

Student question: %s

Answer the question clearly and concisely, scoped to the lesson content above. Use markdown where helpful.`, lessonTitle, languageInstruction(language, "Respond"), lessonBody, question)

	answer, err := cs.ai.Complete(ctx, prompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("answer lesson question: %w", err)
	}
	return answer, nil
}
