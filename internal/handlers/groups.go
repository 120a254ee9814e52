package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/services"
)

type groupService interface {
	Create(ctx context.Context, userID string, req models.CreateGroupRequest) (*services.GroupDetail, error)
	List(ctx context.Context, userID string) ([]*models.QuestionGroup, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*services.GroupDetail, error)
	UpdateProgress(ctx context.Context, userID string, id uuid.UUID, req models.UpdateGroupProgressRequest) (*models.QuestionGroup, error)
	Rename(ctx context.Context, userID string, id uuid.UUID, name string) (*models.QuestionGroup, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type GroupHandler struct {
	svc groupService
}

func NewGroupHandler(svc groupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.svc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "group")
	if !ok {
		return
	}

	g, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "group")
	if !ok {
		return
	}
	var req models.UpdateGroupProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.svc.UpdateProgress(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "group")
	if !ok {
		return
	}
	var req models.RenameGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.svc.Rename(r.Context(), middleware.GetUserID(r.Context()), id, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "group")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}
