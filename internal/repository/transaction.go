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

const transactionColumns = `id, user_id, wallet_id, type, status, amount,
	transaction_hash, screenshot_key, withdrawal_type, withdrawal_address,
	reject_reason, created_at, updated_at`

// TransactionFilter narrows history listings; empty fields match all.
type TransactionFilter struct {
	Status models.TransactionStatus
	Type   models.TransactionType
}

type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row interface {
	Scan(dest ...interface{}) error
}) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.WalletID,
		&t.Type,
		&t.Status,
		&t.Amount,
		&t.TransactionHash,
		&t.ScreenshotKey,
		&t.WithdrawalType,
		&t.WithdrawalAddress,
		&t.RejectReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, wallet_id, type, status, amount,
			transaction_hash, screenshot_key, withdrawal_type, withdrawal_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		t.UserID,
		t.WalletID,
		t.Type,
		t.Status,
		t.Amount,
		t.TransactionHash,
		t.ScreenshotKey,
		t.WithdrawalType,
		t.WithdrawalAddress,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create transaction", err)
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTransactionNotFoundError(id.String())
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get transaction", err)
	}

	return t, nil
}

// MarkApproved flips a pending transaction to approved. The status
// predicate is the compare-and-swap: of two concurrent approvals only one
// sees a pending row, the other gets false. Runs inside the settlement
// transaction so a failed balance mutation rolls the flip back.
func (r *TransactionRepository) MarkApproved(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error) {
	return r.swapStatus(ctx, tx, id, models.TransactionApproved, "")
}

// MarkRejected flips a pending transaction to rejected with a reason.
// It never touches the portfolio.
func (r *TransactionRepository) MarkRejected(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.swapStatus(ctx, r.db, id, models.TransactionRejected, reason)
}

func (r *TransactionRepository) swapStatus(ctx context.Context, ex database.Execer, id uuid.UUID, status models.TransactionStatus, reason string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2,
			reject_reason = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := ex.ExecContext(ctx, query, id, status, reason)
	if err != nil {
		return false, apperrors.NewDatabaseError("update transaction status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError("update transaction status", err)
	}

	return rows > 0, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter, limit, offset int) ([]models.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE user_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR type = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, transactionColumns)

	rows, err := r.db.QueryContext(ctx, query, userID,
		string(filter.Status), string(filter.Type),
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list transactions", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) CountByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR type = $3)
	`, userID, string(filter.Status), string(filter.Type)).Scan(&total)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count transactions", err)
	}
	return total, nil
}

func (r *TransactionRepository) ListAll(ctx context.Context, filter TransactionFilter, limit, offset int) ([]models.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, transactionColumns)

	rows, err := r.db.QueryContext(ctx, query,
		string(filter.Status), string(filter.Type),
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list transactions", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) CountAll(ctx context.Context, filter TransactionFilter) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR type = $2)
	`, string(filter.Status), string(filter.Type)).Scan(&total)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count transactions", err)
	}
	return total, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan transaction", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list transactions", err)
	}
	return transactions, nil
}
