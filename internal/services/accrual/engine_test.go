package accrual

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credixa-git/crypto-app-be/internal/database"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

type fakeMetrics struct {
	runs     int
	credited int
	interest float64
}

func (f *fakeMetrics) RecordAccrualRun(duration time.Duration, credited int, totalInterest float64) {
	f.runs++
	f.credited = credited
	f.interest = totalInterest
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *fakeMetrics) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)
	metrics := &fakeMetrics{}

	engine := NewEngine(
		db,
		repository.NewPortfolioRepository(db),
		repository.NewInterestRepository(db),
		metrics,
		logger.NewNop(),
	)

	return engine, mock, metrics
}

var portfolioCols = []string{
	"id", "user_id", "principal_amount", "current_monthly_rate",
	"current_duration_days", "remaining_days", "current_accumulated_interest",
	"total_earned_interest", "last_credit_date", "status", "created_at", "updated_at",
}

func eligibleRows(portfolios ...*models.Portfolio) *sqlmock.Rows {
	rows := sqlmock.NewRows(portfolioCols)
	now := time.Now()
	for _, p := range portfolios {
		rows.AddRow(
			p.ID, p.UserID, p.PrincipalAmount, p.CurrentMonthlyRate,
			p.CurrentDurationDays, p.RemainingDays, p.AccumulatedInterest,
			p.TotalEarnedInterest, nil, string(models.PortfolioActive), now, now,
		)
	}
	return rows
}

func testPortfolio(principal, rate float64, remaining int) *models.Portfolio {
	return &models.Portfolio{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		PrincipalAmount:     principal,
		CurrentMonthlyRate:  rate,
		CurrentDurationDays: 30,
		RemainingDays:       remaining,
	}
}

func TestRunDailyAccrualCreditsFlatThirtiethOfMonthlyInterest(t *testing.T) {
	engine, mock, metrics := newTestEngine(t)

	// 1000 at 12% monthly is 120/month, 4/day on the flat 30-day divisor.
	p := testPortfolio(1000, 12, 10)

	mock.ExpectQuery("SELECT (.+) FROM portfolios").
		WillReturnRows(eligibleRows(p))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interest_history").
		WithArgs(p.ID, p.UserID, 1000.0, 12.0, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(p.ID, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := engine.RunDailyAccrual(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Credited)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.InDelta(t, 4.0, report.TotalInterest, 1e-9)

	assert.Equal(t, 1, metrics.runs)
	assert.Equal(t, 1, metrics.credited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDailyAccrualSkipsAlreadyCreditedPortfolio(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	p := testPortfolio(1000, 12, 10)

	mock.ExpectQuery("SELECT (.+) FROM portfolios").
		WillReturnRows(eligibleRows(p))

	mock.ExpectBegin()
	// Unique (portfolio_id, accrual_date) conflict: the insert is a no-op.
	mock.ExpectExec("INSERT INTO interest_history").
		WithArgs(p.ID, p.UserID, 1000.0, 12.0, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	report, err := engine.RunDailyAccrual(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Credited)
	assert.Equal(t, 0, report.Failed)
	assert.Zero(t, report.TotalInterest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDailyAccrualIsolatesPortfolioFailures(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	bad := testPortfolio(1000, 12, 10)
	good := testPortfolio(3000, 10, 5)

	mock.ExpectQuery("SELECT (.+) FROM portfolios").
		WillReturnRows(eligibleRows(bad, good))

	// First portfolio fails mid-transaction and rolls back.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interest_history").
		WithArgs(bad.ID, bad.UserID, 1000.0, 12.0, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(bad.ID, 4.0, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	// Second portfolio still settles: 3000 * 10% / 30 = 10/day.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interest_history").
		WithArgs(good.ID, good.UserID, 3000.0, 10.0, 10.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(good.ID, 10.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := engine.RunDailyAccrual(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Credited)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad.ID, report.Failures[0].PortfolioID)
	assert.InDelta(t, 10.0, report.TotalInterest, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDailyAccrualAbortsWhenListingFails(t *testing.T) {
	engine, mock, metrics := newTestEngine(t)

	mock.ExpectQuery("SELECT (.+) FROM portfolios").
		WillReturnError(assert.AnError)

	report, err := engine.RunDailyAccrual(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Zero(t, metrics.runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditDateTruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 3, 10, 2, 30, 0, 0, loc)

	got := creditDate(in)

	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), got)
}
