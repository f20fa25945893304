package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)

	svc := NewService(
		repository.NewPortfolioRepository(db),
		repository.NewRateChangeRepository(db),
		repository.NewInterestRepository(db),
		logger.NewNop(),
	)

	return svc, mock
}

var portfolioCols = []string{
	"id", "user_id", "principal_amount", "current_monthly_rate",
	"current_duration_days", "remaining_days", "current_accumulated_interest",
	"total_earned_interest", "last_credit_date", "status", "created_at", "updated_at",
}

var rateChangeCols = []string{
	"id", "portfolio_id", "user_id", "old_rate", "new_rate", "old_duration", "new_duration", "created_at",
}

func TestApplyRateFirstApplication(t *testing.T) {
	svc, mock := newTestService(t)
	userID, portfolioID := uuid.New(), uuid.New()
	now := time.Now()

	// Portfolio is provisioned lazily on the first rate application.
	mock.ExpectExec("INSERT INTO portfolios").
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE user_id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(portfolioCols).AddRow(
			portfolioID, userID, 0.0, 0.0, 0, 0, 0.0, 0.0, nil, "active", now, now,
		))
	mock.ExpectQuery("SELECT (.+) FROM rate_changes").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(rateChangeCols))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(portfolioID, 12.0, 30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO rate_changes").
		WithArgs(portfolioID, userID, 0.0, 12.0, 0, 30).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), now))

	p, rc, err := svc.ApplyRate(context.Background(), userID, 12, 30)
	require.NoError(t, err)

	assert.Equal(t, 12.0, p.CurrentMonthlyRate)
	assert.Equal(t, 30, p.CurrentDurationDays)
	assert.Equal(t, 30, p.RemainingDays)

	// First change audits from zero.
	assert.Zero(t, rc.OldRate)
	assert.Zero(t, rc.OldDuration)
	assert.Equal(t, 12.0, rc.NewRate)
	assert.Equal(t, 30, rc.NewDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRateSeedsOldValuesFromLatestChange(t *testing.T) {
	svc, mock := newTestService(t)
	userID, portfolioID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectExec("INSERT INTO portfolios").
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE user_id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(portfolioCols).AddRow(
			portfolioID, userID, 5000.0, 10.0, 60, 14, 120.0, 480.0, nil, "active", now, now,
		))
	mock.ExpectQuery("SELECT (.+) FROM rate_changes").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(rateChangeCols).AddRow(
			uuid.New(), portfolioID, userID, 8.0, 10.0, 30, 60, now,
		))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(portfolioID, 15.0, 90).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO rate_changes").
		WithArgs(portfolioID, userID, 10.0, 15.0, 60, 90).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), now))

	p, rc, err := svc.ApplyRate(context.Background(), userID, 15, 90)
	require.NoError(t, err)

	// Countdown restarts at the new duration even mid-plan.
	assert.Equal(t, 90, p.RemainingDays)

	assert.Equal(t, 10.0, rc.OldRate)
	assert.Equal(t, 60, rc.OldDuration)
	assert.Equal(t, 15.0, rc.NewRate)
	assert.Equal(t, 90, rc.NewDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRateRejectsNegativeInputs(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.ApplyRate(context.Background(), uuid.New(), -1, 30)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)

	_, _, err = svc.ApplyRate(context.Background(), uuid.New(), 12, -5)
	require.Error(t, err)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestInterestHistoryReturnsEntriesAndTotal(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM interest_history").
		WithArgs(userID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "portfolio_id", "user_id", "principal_amount", "monthly_rate",
			"daily_interest", "accrual_date", "created_at",
		}).
			AddRow(uuid.New(), uuid.New(), userID, 1000.0, 12.0, 4.0, now, now).
			AddRow(uuid.New(), uuid.New(), userID, 1000.0, 12.0, 4.0, now.AddDate(0, 0, -1), now))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	entries, total, err := svc.InterestHistory(context.Background(), userID, 20, 0)
	require.NoError(t, err)

	assert.Len(t, entries, 2)
	assert.Equal(t, 45, total)
	assert.InDelta(t, 4.0, entries[0].DailyInterest, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
