package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
)

type progressService interface {
	Save(ctx context.Context, userID string, req models.SaveProgressRequest) (*models.PracticeProgress, error)
	Load(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error)
	List(ctx context.Context, userID string) ([]*models.PracticeProgress, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type ProgressHandler struct {
	svc progressService
}

func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

func (h *ProgressHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.Save(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) Load(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	p, err := h.svc.Load(r.Context(), middleware.GetUserID(r.Context()), query.Get("field"), query.Get("sub_field"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": list})
}

func (h *ProgressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "progress")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Progress deleted"})
}
