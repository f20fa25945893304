package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

const portfolioColumns = `id, user_id, principal_amount, current_monthly_rate,
	current_duration_days, remaining_days, current_accumulated_interest,
	total_earned_interest, last_credit_date, status, created_at, updated_at`

type PortfolioRepository struct {
	db *database.DB
}

func NewPortfolioRepository(db *database.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func scanPortfolio(row interface {
	Scan(dest ...interface{}) error
}) (*models.Portfolio, error) {
	var p models.Portfolio
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PrincipalAmount,
		&p.CurrentMonthlyRate,
		&p.CurrentDurationDays,
		&p.RemainingDays,
		&p.AccumulatedInterest,
		&p.TotalEarnedInterest,
		&p.LastCreditDate,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PortfolioRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Portfolio, error) {
	query := fmt.Sprintf(`SELECT %s FROM portfolios WHERE user_id = $1`, portfolioColumns)

	p, err := scanPortfolio(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPortfolioNotFoundError(userID.String())
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get portfolio", err)
	}

	return p, nil
}

// Ensure provisions a zero-balance portfolio for the user if none exists
// and returns the row either way. Portfolios are created lazily on the
// first rate application or the first approved deposit.
func (r *PortfolioRepository) Ensure(ctx context.Context, userID uuid.UUID) (*models.Portfolio, error) {
	return r.ensure(ctx, r.db, userID)
}

func (r *PortfolioRepository) EnsureTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Portfolio, error) {
	return r.ensure(ctx, tx, userID)
}

func (r *PortfolioRepository) ensure(ctx context.Context, ex database.Execer, userID uuid.UUID) (*models.Portfolio, error) {
	insert := `
		INSERT INTO portfolios (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := ex.ExecContext(ctx, insert, userID); err != nil {
		return nil, apperrors.NewDatabaseError("provision portfolio", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM portfolios WHERE user_id = $1`, portfolioColumns)
	p, err := scanPortfolio(ex.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get portfolio", err)
	}

	return p, nil
}

// UpdateRate overwrites the configured rate and duration and restarts the
// accrual countdown at the new duration. Re-applying a rate is how an
// admin restarts a plan, so the reset is intentional.
func (r *PortfolioRepository) UpdateRate(ctx context.Context, portfolioID uuid.UUID, rate float64, durationDays int) error {
	query := `
		UPDATE portfolios
		SET current_monthly_rate = $2,
			current_duration_days = $3,
			remaining_days = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, portfolioID, rate, durationDays)
	if err != nil {
		return apperrors.NewDatabaseError("update portfolio rate", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("update portfolio rate", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("Portfolio not found", nil)
	}

	return nil
}

func (r *PortfolioRepository) CreditPrincipal(ctx context.Context, userID uuid.UUID, amount float64) error {
	return r.creditPrincipal(ctx, r.db, userID, amount)
}

func (r *PortfolioRepository) CreditPrincipalTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount float64) error {
	return r.creditPrincipal(ctx, tx, userID, amount)
}

// creditPrincipal adds to the principal with in-place arithmetic so a
// concurrent accrual credit cannot be lost to a stale read.
func (r *PortfolioRepository) creditPrincipal(ctx context.Context, ex database.Execer, userID uuid.UUID, amount float64) error {
	query := `
		UPDATE portfolios
		SET principal_amount = principal_amount + $2,
			updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := ex.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return apperrors.NewDatabaseError("credit principal", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("credit principal", err)
	}
	if rows == 0 {
		return apperrors.NewPortfolioNotFoundError(userID.String())
	}

	return nil
}

func (r *PortfolioRepository) DebitPrincipal(ctx context.Context, userID uuid.UUID, amount float64) error {
	return r.debitGuarded(ctx, r.db, userID, amount, "principal_amount")
}

func (r *PortfolioRepository) DebitPrincipalTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount float64) error {
	return r.debitGuarded(ctx, tx, userID, amount, "principal_amount")
}

func (r *PortfolioRepository) DebitAccumulatedInterest(ctx context.Context, userID uuid.UUID, amount float64) error {
	return r.debitGuarded(ctx, r.db, userID, amount, "current_accumulated_interest")
}

func (r *PortfolioRepository) DebitAccumulatedInterestTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount float64) error {
	return r.debitGuarded(ctx, tx, userID, amount, "current_accumulated_interest")
}

// debitGuarded subtracts from a balance column only when the balance
// covers the amount. The guard predicate makes the sufficiency re-check
// and the debit a single atomic statement, so two settlements racing for
// the same funds cannot both succeed.
func (r *PortfolioRepository) debitGuarded(ctx context.Context, ex database.Execer, userID uuid.UUID, amount float64, column string) error {
	query := fmt.Sprintf(`
		UPDATE portfolios
		SET %s = %s - $2,
			updated_at = NOW()
		WHERE user_id = $1 AND %s >= $2
	`, column, column, column)

	result, err := ex.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return apperrors.NewDatabaseError("debit portfolio", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("debit portfolio", err)
	}
	if rows > 0 {
		return nil
	}

	// Zero rows is either a missing portfolio or insufficient funds.
	var exists bool
	err = ex.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM portfolios WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return apperrors.NewDatabaseError("debit portfolio", err)
	}
	if !exists {
		return apperrors.NewPortfolioNotFoundError(userID.String())
	}

	if column == "principal_amount" {
		return apperrors.NewInsufficientPrincipalError(amount)
	}
	return apperrors.NewInsufficientInterestError(amount)
}

// ListEligible returns every portfolio still inside its accrual window.
func (r *PortfolioRepository) ListEligible(ctx context.Context) ([]models.Portfolio, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM portfolios
		WHERE remaining_days > 0
		ORDER BY created_at
	`, portfolioColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list eligible portfolios", err)
	}
	defer rows.Close()

	var portfolios []models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan portfolio", err)
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list eligible portfolios", err)
	}

	return portfolios, nil
}

// ApplyDailyAccrual advances one portfolio by a single day: decrements the
// countdown and credits the day's interest to both interest buckets. The
// remaining_days > 0 predicate floors the countdown at zero.
func (r *PortfolioRepository) ApplyDailyAccrual(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, interest float64, creditDate time.Time) error {
	query := `
		UPDATE portfolios
		SET remaining_days = remaining_days - 1,
			current_accumulated_interest = current_accumulated_interest + $2,
			total_earned_interest = total_earned_interest + $2,
			last_credit_date = $3,
			updated_at = NOW()
		WHERE id = $1 AND remaining_days > 0
	`

	result, err := tx.ExecContext(ctx, query, portfolioID, interest, creditDate)
	if err != nil {
		return apperrors.NewDatabaseError("apply daily accrual", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("apply daily accrual", err)
	}
	if rows == 0 {
		return apperrors.NewInvalidStateError("Portfolio has no remaining accrual days", nil)
	}

	return nil
}
