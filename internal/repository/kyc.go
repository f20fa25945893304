package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

const kycColumns = `id, user_id, document_type, front_key, back_key, status,
	rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

type KYCRepository struct {
	db *database.DB
}

func NewKYCRepository(db *database.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

func scanKYC(row interface {
	Scan(dest ...interface{}) error
}) (*models.KYCSubmission, error) {
	var k models.KYCSubmission
	err := row.Scan(
		&k.ID,
		&k.UserID,
		&k.DocumentType,
		&k.FrontKey,
		&k.BackKey,
		&k.Status,
		&k.RejectionReason,
		&k.ReviewedBy,
		&k.ReviewedAt,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// Upsert creates the user's submission or, for a rejected one, replaces
// it with the new documents and resets the status to applied. One
// submission per user.
func (r *KYCRepository) Upsert(ctx context.Context, k *models.KYCSubmission) error {
	query := `
		INSERT INTO kyc_submissions (user_id, document_type, front_key, back_key, status)
		VALUES ($1, $2, $3, $4, 'applied')
		ON CONFLICT (user_id) DO UPDATE
		SET document_type = EXCLUDED.document_type,
			front_key = EXCLUDED.front_key,
			back_key = EXCLUDED.back_key,
			status = 'applied',
			rejection_reason = '',
			reviewed_by = NULL,
			reviewed_at = NULL,
			updated_at = NOW()
		WHERE kyc_submissions.status = 'rejected'
		RETURNING id, status, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, k.UserID, k.DocumentType, k.FrontKey, k.BackKey).
		Scan(&k.ID, &k.Status, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		// Conflict hit a submission that is applied or verified already.
		return apperrors.NewInvalidStateError("KYC already submitted", nil)
	}
	if err != nil {
		return apperrors.NewDatabaseError("upsert kyc submission", err)
	}

	return nil
}

func (r *KYCRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.KYCSubmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM kyc_submissions WHERE user_id = $1`, kycColumns)

	k, err := scanKYC(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("KYC submission not found", nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get kyc submission", err)
	}

	return k, nil
}

// Review resolves an applied submission. The status predicate keeps the
// applied -> verified/rejected transition one-way.
func (r *KYCRepository) Review(ctx context.Context, userID uuid.UUID, status models.KYCStatus, reason string, reviewedBy uuid.UUID) (bool, error) {
	query := `
		UPDATE kyc_submissions
		SET status = $2,
			rejection_reason = $3,
			reviewed_by = $4,
			reviewed_at = NOW(),
			updated_at = NOW()
		WHERE user_id = $1 AND status = 'applied'
	`

	result, err := r.db.ExecContext(ctx, query, userID, status, reason, reviewedBy)
	if err != nil {
		return false, apperrors.NewDatabaseError("review kyc submission", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError("review kyc submission", err)
	}

	return rows > 0, nil
}

func (r *KYCRepository) ListByStatus(ctx context.Context, status models.KYCStatus, limit, offset int) ([]models.KYCSubmission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM kyc_submissions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, kycColumns)

	rows, err := r.db.QueryContext(ctx, query, string(status),
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list kyc submissions", err)
	}
	defer rows.Close()

	var submissions []models.KYCSubmission
	for rows.Next() {
		k, err := scanKYC(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan kyc submission", err)
		}
		submissions = append(submissions, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list kyc submissions", err)
	}

	return submissions, nil
}
