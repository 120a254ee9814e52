package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/taxonomy"
)

const generationLockTTL = 2 * time.Minute

type chargedQuestionStore interface {
	CreateCharged(ctx context.Context, userID string, questions []*models.Question) (int, error)
}

type GenerationResult struct {
	Questions        []*models.Question `json:"questions"`
	CreditsRemaining int                `json:"credits_remaining"`
}

// AIService fronts the AI provider for the three AI operations: question
// generation, stateless answer grading and audio transcription.
type AIService struct {
	ai            AIProvider
	questions     chargedQuestionStore
	credits       *CreditService
	locker        Locker
	publisher     EventPublisher
	taxonomy      *taxonomy.Taxonomy
	maxPerRequest int
	tempDir       string
}

func NewAIService(
	ai AIProvider,
	questions chargedQuestionStore,
	credits *CreditService,
	locker Locker,
	publisher EventPublisher,
	tx *taxonomy.Taxonomy,
	maxPerRequest int,
	tempDir string,
) *AIService {
	if maxPerRequest <= 0 {
		maxPerRequest = 10
	}
	return &AIService{
		ai:            ai,
		questions:     questions,
		credits:       credits,
		locker:        locker,
		publisher:     publisher,
		taxonomy:      tx,
		maxPerRequest: maxPerRequest,
		tempDir:       tempDir,
	}
}

func (s *AIService) validateGenerate(req *models.GenerateQuestionsRequest) error {
	fields := map[string]string{}
	if !s.taxonomy.Valid(req.Field, req.SubField) {
		fields["sub_field"] = "Unknown field or sub-field"
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyIntermediate
	}
	if !models.ValidDifficulty(req.Difficulty) {
		fields["difficulty"] = "Difficulty must be beginner, intermediate or advanced"
	}
	if req.Count < 1 || req.Count > s.maxPerRequest {
		fields["count"] = fmt.Sprintf("Count must be between 1 and %d", s.maxPerRequest)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Generate asks the AI for a question set and stores it, charging one
// credit per stored question. Only one generation per user runs at a time.
func (s *AIService) Generate(ctx context.Context, userID string, req models.GenerateQuestionsRequest) (*GenerationResult, error) {
	if err := s.validateGenerate(&req); err != nil {
		return nil, err
	}

	release, ok, err := s.locker.Acquire(ctx, "generate_lock:"+userID, generationLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Message: "A question generation is already in progress"}
	}
	defer release()

	balance, err := s.credits.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Credits < req.Count {
		return nil, &InsufficientCreditsError{Required: req.Count, Available: balance.Credits}
	}

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"field":      req.Field,
		"sub_field":  req.SubField,
		"difficulty": req.Difficulty,
		"count":      req.Count,
	})

	generated, err := s.ai.GenerateQuestions(ctx, req)
	if err != nil {
		log.WithError(err).Error("question generation failed")
		return nil, &AIError{Message: "Failed to generate questions", Err: err}
	}
	if len(generated) == 0 {
		return nil, &AIError{Message: "The AI returned no usable questions"}
	}
	if len(generated) > req.Count {
		generated = generated[:req.Count]
	}

	questions := make([]*models.Question, len(generated))
	for i, g := range generated {
		questions[i] = &models.Question{
			Field:      req.Field,
			SubField:   req.SubField,
			Question:   g.Question,
			Answer:     g.Answer,
			Difficulty: req.Difficulty,
			IsPublic:   req.Public,
		}
	}

	remaining, err := s.questions.CreateCharged(ctx, userID, questions)
	if errors.Is(err, repository.ErrInsufficientCredits) {
		return nil, &InsufficientCreditsError{Required: len(questions), Available: balance.Credits}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store generated questions: %w", err)
	}

	log.WithField("stored", len(questions)).Info("questions generated")

	s.credits.Changed(ctx, userID, remaining)
	s.publisher.Publish(ctx, userID, models.EventQuestionsGenerated, map[string]interface{}{
		"field":             req.Field,
		"sub_field":         req.SubField,
		"count":             len(questions),
		"credits_remaining": remaining,
	})

	return &GenerationResult{Questions: questions, CreditsRemaining: remaining}, nil
}

// Evaluate grades a free-standing answer without storing anything.
func (s *AIService) Evaluate(ctx context.Context, req models.EvaluateAnswerRequest) (*models.Evaluation, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.Question) == "" {
		fields["question"] = "Question is required"
	}
	if strings.TrimSpace(req.Answer) == "" {
		fields["answer"] = "Answer is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ev, err := s.ai.EvaluateAnswer(ctx, EvaluationInput{
		Question:        req.Question,
		Answer:          req.Answer,
		CanonicalAnswer: req.CanonicalAnswer,
		Field:           req.Field,
	})
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("answer evaluation failed")
		return nil, &AIError{Message: "Failed to evaluate answer", Err: err}
	}
	return clampEvaluation(ev), nil
}

func clampEvaluation(ev *models.Evaluation) *models.Evaluation {
	ev.Score = models.ClampScore(ev.Score)
	ev.Metrics = ev.Metrics.Clamp()
	return ev
}

// Transcribe spools the audio to a temp file for the provider and removes
// it afterwards, whatever the outcome.
func (s *AIService) Transcribe(ctx context.Context, audio io.Reader, mimeType string) (string, error) {
	tmp, err := os.CreateTemp(s.tempDir, "answer-*.audio")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	written, err := io.Copy(tmp, audio)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if written == 0 {
		return "", invalid("audio", "Audio file is empty")
	}

	text, err := s.ai.Transcribe(ctx, path, mimeType)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("bytes", written).Error("transcription failed")
		return "", &AIError{Message: "Failed to transcribe audio", Err: err}
	}
	if text == "" {
		return "", &AIError{Message: "The AI returned an empty transcription"}
	}
	return text, nil
}
