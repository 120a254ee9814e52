package handlers

import (
	"context"
	"net/http"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/taxonomy"
)

type FieldHandler struct {
	taxonomy *taxonomy.Taxonomy
}

func NewFieldHandler(tx *taxonomy.Taxonomy) *FieldHandler {
	return &FieldHandler{taxonomy: tx}
}

func (h *FieldHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": h.taxonomy.All()})
}

type statsService interface {
	Dashboard(ctx context.Context, userID string) (*models.DashboardStats, error)
}

type StatsHandler struct {
	svc statsService
}

func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
