package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

type PortfolioHandler struct {
	portfolioService PortfolioService
}

type PortfolioService interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Portfolio, error)
	ApplyRate(ctx context.Context, userID uuid.UUID, rate float64, durationDays int) (*models.Portfolio, *models.RateChange, error)
	InterestHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.InterestEntry, int, error)
}

func NewPortfolioHandler(portfolioService PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// GetMyPortfolio returns the authenticated user's portfolio with the
// daily interest the current rate yields.
func (h *PortfolioHandler) GetMyPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	p, err := h.portfolioService.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		*models.Portfolio
		DailyInterest float64 `json:"daily_interest"`
	}{
		Portfolio:     p,
		DailyInterest: p.DailyInterest(),
	})
}

func (h *PortfolioHandler) GetInterestHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	limit, offset := parsePagination(r)

	entries, total, err := h.portfolioService.InterestHistory(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   entries,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

type ApplyRateRequest struct {
	MonthlyRate  float64 `json:"monthly_rate"`
	DurationDays int     `json:"duration_days"`
}

type ApplyRateResponse struct {
	Portfolio  *models.Portfolio  `json:"portfolio"`
	RateChange *models.RateChange `json:"rate_change"`
}

// ApplyRate is the admin operation that sets a user's interest plan.
func (h *PortfolioHandler) ApplyRate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := uuid.Parse(vars["userId"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid user ID", err))
		return
	}

	var req ApplyRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	p, rc, err := h.portfolioService.ApplyRate(r.Context(), userID, req.MonthlyRate, req.DurationDays)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ApplyRateResponse{Portfolio: p, RateChange: rc})
}

// GetUserPortfolio is the admin view of any user's portfolio.
func (h *PortfolioHandler) GetUserPortfolio(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := uuid.Parse(vars["userId"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid user ID", err))
		return
	}

	p, err := h.portfolioService.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		*models.Portfolio
		DailyInterest float64 `json:"daily_interest"`
	}{
		Portfolio:     p,
		DailyInterest: p.DailyInterest(),
	})
}
