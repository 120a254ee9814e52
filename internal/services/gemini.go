package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
)

// AIProvider generates and grades interview questions and transcribes
// spoken answers.
type AIProvider interface {
	GenerateQuestions(ctx context.Context, req models.GenerateQuestionsRequest) ([]models.GeneratedQuestion, error)
	EvaluateAnswer(ctx context.Context, in EvaluationInput) (*models.Evaluation, error)
	Transcribe(ctx context.Context, path, mimeType string) (string, error)
}

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) generateText(ctx context.Context, parts ...genai.Part) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	start := time.Now()
	resp, err := s.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	logger.WithContext(ctx).WithField("duration_ms", time.Since(start).Milliseconds()).Debug("gemini call finished")

	return extractText(resp), nil
}

func (s *GeminiService) GenerateQuestions(ctx context.Context, req models.GenerateQuestionsRequest) ([]models.GeneratedQuestion, error) {
	raw, err := s.generateText(ctx, genai.Text(buildGenerationPrompt(req)))
	if err != nil {
		return nil, err
	}
	return parseGeneratedQuestions(raw)
}

func (s *GeminiService) EvaluateAnswer(ctx context.Context, in EvaluationInput) (*models.Evaluation, error) {
	raw, err := s.generateText(ctx, genai.Text(buildEvaluationPrompt(in)))
	if err != nil {
		return nil, err
	}
	return parseEvaluation(raw)
}

// Transcribe uploads the audio file at path to the Gemini File API and asks
// the model for a verbatim transcript. The remote copy is always deleted.
func (s *GeminiService) Transcribe(ctx context.Context, path, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	file, err := s.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: "answer-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	defer func() {
		if err := s.client.DeleteFile(context.Background(), file.Name); err != nil {
			logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{"file": file.Name}).Warn("failed to delete uploaded audio")
		}
	}()

	// Wait until file is active
	for i := 0; i < 20 && file.State != genai.FileStateActive; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}
		file = current
		if file.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}
		if file.State == genai.FileStateActive {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(transcriptionPrompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	return strings.TrimSpace(extractText(resp)), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
