package portfolio

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

// Service owns the portfolio ledger: rate application with its audit
// trail, and the read paths for portfolios and interest statements.
type Service struct {
	portfolios  *repository.PortfolioRepository
	rateChanges *repository.RateChangeRepository
	interest    *repository.InterestRepository
	log         *logger.Logger
}

func NewService(
	portfolios *repository.PortfolioRepository,
	rateChanges *repository.RateChangeRepository,
	interest *repository.InterestRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		portfolios:  portfolios,
		rateChanges: rateChanges,
		interest:    interest,
		log:         log,
	}
}

func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Portfolio, error) {
	return s.portfolios.GetByUser(ctx, userID)
}

// ApplyRate overwrites the portfolio's monthly rate and duration and
// restarts the countdown at the new duration, then appends a RateChange
// row capturing old -> new. Old values are seeded from the latest prior
// change, or zero for a first application. The portfolio is provisioned
// on the fly if the user does not have one yet.
func (s *Service) ApplyRate(ctx context.Context, userID uuid.UUID, rate float64, durationDays int) (*models.Portfolio, *models.RateChange, error) {
	if rate < 0 {
		return nil, nil, apperrors.NewValidationError("Interest rate cannot be negative", nil)
	}
	if durationDays < 0 {
		return nil, nil, apperrors.NewValidationError("Duration cannot be negative", nil)
	}

	p, err := s.portfolios.Ensure(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	prev, err := s.rateChanges.Latest(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.portfolios.UpdateRate(ctx, p.ID, rate, durationDays); err != nil {
		return nil, nil, err
	}

	rc := &models.RateChange{
		PortfolioID: p.ID,
		UserID:      userID,
		NewRate:     rate,
		NewDuration: durationDays,
	}
	if prev != nil {
		rc.OldRate = prev.NewRate
		rc.OldDuration = prev.NewDuration
	}

	if err := s.rateChanges.Create(ctx, rc); err != nil {
		return nil, nil, err
	}

	p.CurrentMonthlyRate = rate
	p.CurrentDurationDays = durationDays
	p.RemainingDays = durationDays

	s.log.Infow("Applied interest rate",
		"user_id", userID.String(),
		"old_rate", rc.OldRate,
		"new_rate", rc.NewRate,
		"new_duration", rc.NewDuration,
	)

	return p, rc, nil
}

// InterestHistory returns the user's per-day credit statement, newest
// first, with the total row count for pagination.
func (s *Service) InterestHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.InterestEntry, int, error) {
	entries, err := s.interest.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.interest.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
