package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

type RateChangeRepository struct {
	db *database.DB
}

func NewRateChangeRepository(db *database.DB) *RateChangeRepository {
	return &RateChangeRepository{db: db}
}

// Latest returns the most recent rate change for the user, or nil when
// the user has never had a rate applied.
func (r *RateChangeRepository) Latest(ctx context.Context, userID uuid.UUID) (*models.RateChange, error) {
	query := `
		SELECT id, portfolio_id, user_id, old_rate, new_rate, old_duration, new_duration, created_at
		FROM rate_changes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rc models.RateChange
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rc.ID,
		&rc.PortfolioID,
		&rc.UserID,
		&rc.OldRate,
		&rc.NewRate,
		&rc.OldDuration,
		&rc.NewDuration,
		&rc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get latest rate change", err)
	}

	return &rc, nil
}

func (r *RateChangeRepository) Create(ctx context.Context, rc *models.RateChange) error {
	query := `
		INSERT INTO rate_changes (portfolio_id, user_id, old_rate, new_rate, old_duration, new_duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rc.PortfolioID,
		rc.UserID,
		rc.OldRate,
		rc.NewRate,
		rc.OldDuration,
		rc.NewDuration,
	).Scan(&rc.ID, &rc.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create rate change", err)
	}

	return nil
}
