package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/services"
)

type questionService interface {
	Create(ctx context.Context, userID string, req models.CreateQuestionRequest) (*models.Question, error)
	List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Question, error)
	Update(ctx context.Context, userID string, id uuid.UUID, req models.UpdateQuestionRequest) (*models.Question, error)
	SetVisibility(ctx context.Context, userID string, id uuid.UUID, public bool) (*models.Question, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Practice(ctx context.Context, userID string, req models.PracticeRequest) ([]*models.Question, error)
	SubmitAttempt(ctx context.Context, userID string, id uuid.UUID, answer string) (*services.AttemptResult, error)
	ListAttempts(ctx context.Context, userID string, id uuid.UUID, limit int) ([]*models.QuestionAttempt, error)
	AddNote(ctx context.Context, userID string, id uuid.UUID, content string) (*models.QuestionNote, error)
	DeleteNote(ctx context.Context, userID string, questionID, noteID uuid.UUID) error
}

type QuestionHandler struct {
	svc questionService
}

func NewQuestionHandler(svc questionService) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.svc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be an integer", r))
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "offset must be a non-negative integer", r))
		return
	}

	f := models.QuestionFilter{
		Field:      query.Get("field"),
		SubField:   query.Get("sub_field"),
		Difficulty: query.Get("difficulty"),
		Visibility: query.Get("visibility"),
		Search:     query.Get("search"),
		Limit:      limit,
		Offset:     offset,
	}

	questions, total, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()), f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if questions == nil {
		questions = []*models.Question{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"total":     total,
		"offset":    offset,
	})
}

func (h *QuestionHandler) Practice(w http.ResponseWriter, r *http.Request) {
	count, ok := queryInt(r, "count", 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "count must be an integer", r))
		return
	}
	query := r.URL.Query()
	req := models.PracticeRequest{
		Field:      query.Get("field"),
		SubField:   query.Get("sub_field"),
		Difficulty: query.Get("difficulty"),
		Count:      count,
	}

	questions, err := h.svc.Practice(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"requested": count,
	})
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}

	q, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	var req models.UpdateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.svc.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QuestionHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	var req models.SetVisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.svc.SetVisibility(r.Context(), middleware.GetUserID(r.Context()), id, req.IsPublic)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Question deleted"})
}

func (h *QuestionHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	var req models.SubmitAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.SubmitAttempt(r.Context(), middleware.GetUserID(r.Context()), id, req.Answer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *QuestionHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	limit, ok := queryInt(r, "limit", 20)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be an integer", r))
		return
	}

	attempts, err := h.svc.ListAttempts(r.Context(), middleware.GetUserID(r.Context()), id, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *QuestionHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	var req models.AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.svc.AddNote(r.Context(), middleware.GetUserID(r.Context()), id, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *QuestionHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "question")
	if !ok {
		return
	}
	noteID, ok := uuidParam(w, r, "noteId", "note")
	if !ok {
		return
	}

	if err := h.svc.DeleteNote(r.Context(), middleware.GetUserID(r.Context()), id, noteID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}
