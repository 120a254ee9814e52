package handlers

import (
	"context"
	"net/http"

	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/models"
)

type creditService interface {
	Check(ctx context.Context, userID string) (*models.CreditBalance, error)
	Deduct(ctx context.Context, userID string, amount int) (*models.CreditBalance, error)
	Refresh(ctx context.Context, userID string) (*models.CreditBalance, bool, error)
}

type CreditHandler struct {
	svc creditService
}

func NewCreditHandler(svc creditService) *CreditHandler {
	return &CreditHandler{svc: svc}
}

func (h *CreditHandler) Get(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Check(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *CreditHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req models.DeductCreditsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	balance, err := h.svc.Deduct(r.Context(), middleware.GetUserID(r.Context()), req.Amount)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *CreditHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	balance, refreshed, err := h.svc.Refresh(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.CreditBalance
		Refreshed bool `json:"refreshed"`
	}{balance, refreshed})
}
