package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/services"
)

type aiService interface {
	Generate(ctx context.Context, userID string, req models.GenerateQuestionsRequest) (*services.GenerationResult, error)
	Evaluate(ctx context.Context, req models.EvaluateAnswerRequest) (*models.Evaluation, error)
	Transcribe(ctx context.Context, audio io.Reader, mimeType string) (string, error)
}

type AIHandler struct {
	svc           aiService
	maxAudioBytes int64
}

func NewAIHandler(svc aiService, maxAudioBytes int64) *AIHandler {
	return &AIHandler{svc: svc, maxAudioBytes: maxAudioBytes}
}

func (h *AIHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Generate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AIHandler) EvaluateAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ev, err := h.svc.Evaluate(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Transcribe accepts a multipart upload with the recording in the "audio"
// field.
func (h *AIHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxAudioBytes+(1<<20) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "Audio file is too large", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes+(1<<20))

	file, header, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "Audio file is too large", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{
			"audio": "Audio file is required",
		}, r))
		return
	}
	defer file.Close()

	if header.Size > h.maxAudioBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "Audio file is too large", r))
		return
	}

	mimeType, ok := audioMimeType(header.Header.Get("Content-Type"))
	if !ok {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Audio format not supported", r))
		return
	}

	text, err := h.svc.Transcribe(r.Context(), file, mimeType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// audioMimeType accepts audio/* and video/webm (browser MediaRecorder
// output) and returns the bare media type.
func audioMimeType(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	mediaType = strings.ToLower(mediaType)
	if strings.HasPrefix(mediaType, "audio/") || mediaType == "video/webm" {
		return mediaType, true
	}
	return "", false
}
