package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

type InterestRepository struct {
	db *database.DB
}

func NewInterestRepository(db *database.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

// InsertEntry appends one day's credit for a portfolio. The unique
// (portfolio_id, accrual_date) index turns a same-day duplicate into a
// no-op; the false return tells the accrual engine to skip the portfolio
// instead of double-crediting it.
func (r *InterestRepository) InsertEntry(ctx context.Context, tx *sql.Tx, entry *models.InterestEntry) (bool, error) {
	query := `
		INSERT INTO interest_history (portfolio_id, user_id, principal_amount, monthly_rate, daily_interest, accrual_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (portfolio_id, accrual_date) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query,
		entry.PortfolioID,
		entry.UserID,
		entry.PrincipalAmount,
		entry.MonthlyRate,
		entry.DailyInterest,
		entry.AccrualDate,
	)
	if err != nil {
		return false, apperrors.NewDatabaseError("insert interest entry", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError("insert interest entry", err)
	}

	return rows > 0, nil
}

func (r *InterestRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.InterestEntry, error) {
	query := `
		SELECT id, portfolio_id, user_id, principal_amount, monthly_rate, daily_interest, accrual_date, created_at
		FROM interest_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID,
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list interest history", err)
	}
	defer rows.Close()

	var entries []models.InterestEntry
	for rows.Next() {
		var e models.InterestEntry
		err := rows.Scan(
			&e.ID,
			&e.PortfolioID,
			&e.UserID,
			&e.PrincipalAmount,
			&e.MonthlyRate,
			&e.DailyInterest,
			&e.AccrualDate,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan interest entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list interest history", err)
	}

	return entries, nil
}

func (r *InterestRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interest_history WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count interest history", err)
	}
	return total, nil
}
