package accrual

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

// MetricsRecorder tracks accrual batches; satisfied by
// monitoring.Metrics and by a no-op in tests.
type MetricsRecorder interface {
	RecordAccrualRun(duration time.Duration, credited int, totalInterest float64)
}

// errAlreadyCredited marks a portfolio whose history row for today
// already exists; the run skips it instead of double-crediting.
var errAlreadyCredited = errors.New("portfolio already credited for date")

// Engine advances every portfolio with remaining accrual days by one day:
// decrements the countdown, credits the day's interest and appends the
// interest history row. Each portfolio settles in its own database
// transaction so one failure never aborts the rest of the batch.
type Engine struct {
	db         *database.DB
	portfolios *repository.PortfolioRepository
	interest   *repository.InterestRepository
	metrics    MetricsRecorder
	log        *logger.Logger
}

func NewEngine(
	db *database.DB,
	portfolios *repository.PortfolioRepository,
	interest *repository.InterestRepository,
	metrics MetricsRecorder,
	log *logger.Logger,
) *Engine {
	return &Engine{
		db:         db,
		portfolios: portfolios,
		interest:   interest,
		metrics:    metrics,
		log:        log,
	}
}

// Failure records one portfolio the run could not credit.
type Failure struct {
	PortfolioID uuid.UUID `json:"portfolio_id"`
	UserID      uuid.UUID `json:"user_id"`
	Err         string    `json:"error"`
}

// RunReport summarizes one accrual batch.
type RunReport struct {
	Date          time.Time `json:"date"`
	Processed     int       `json:"processed"`
	Credited      int       `json:"credited"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	TotalInterest float64   `json:"total_interest"`
	Failures      []Failure `json:"failures,omitempty"`
}

// RunDailyAccrual processes every eligible portfolio for today. Listing
// failures abort the run; per-portfolio failures are collected into the
// report and logged, never swallowed, and never stop the batch. A
// portfolio already credited for today is skipped, so re-running on the
// same day is safe.
func (e *Engine) RunDailyAccrual(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	date := creditDate(start)

	portfolios, err := e.portfolios.ListEligible(ctx)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Date: date, Processed: len(portfolios)}

	for i := range portfolios {
		p := &portfolios[i]
		interest := p.DailyInterest()

		err := e.creditOne(ctx, p, interest, date)
		switch {
		case errors.Is(err, errAlreadyCredited):
			report.Skipped++
		case err != nil:
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				PortfolioID: p.ID,
				UserID:      p.UserID,
				Err:         err.Error(),
			})
			e.log.Errorw("Failed to credit portfolio",
				"portfolio_id", p.ID.String(),
				"user_id", p.UserID.String(),
				"error", err.Error(),
			)
		default:
			report.Credited++
			report.TotalInterest += interest
		}
	}

	duration := time.Since(start)
	e.metrics.RecordAccrualRun(duration, report.Credited, report.TotalInterest)
	e.log.LogAccrualRun(report.Processed, report.Credited, report.Skipped, report.Failed, report.TotalInterest, duration)

	return report, nil
}

// creditOne settles a single portfolio's day atomically: the history row
// insert doubles as the idempotency check, and the portfolio update only
// commits together with it.
func (e *Engine) creditOne(ctx context.Context, p *models.Portfolio, interest float64, date time.Time) error {
	return e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		entry := &models.InterestEntry{
			PortfolioID:     p.ID,
			UserID:          p.UserID,
			PrincipalAmount: p.PrincipalAmount,
			MonthlyRate:     p.CurrentMonthlyRate,
			DailyInterest:   interest,
			AccrualDate:     date,
		}

		inserted, err := e.interest.InsertEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyCredited
		}

		return e.portfolios.ApplyDailyAccrual(ctx, tx, p.ID, interest, date)
	})
}

// creditDate truncates to the UTC day the credit belongs to.
func creditDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
