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

const walletColumns = `id, wallet_address, chain, token, qr_key, is_active,
	description, network_fee, minimum_amount, maximum_amount, priority,
	created_by, updated_by, created_at, updated_at`

type WalletRepository struct {
	db *database.DB
}

func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func scanWallet(row interface {
	Scan(dest ...interface{}) error
}) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(
		&w.ID,
		&w.WalletAddress,
		&w.Chain,
		&w.Token,
		&w.QRKey,
		&w.IsActive,
		&w.Description,
		&w.NetworkFee,
		&w.MinimumAmount,
		&w.MaximumAmount,
		&w.Priority,
		&w.CreatedBy,
		&w.UpdatedBy,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) Create(ctx context.Context, w *models.Wallet) error {
	query := `
		INSERT INTO wallets (wallet_address, chain, token, qr_key, is_active,
			description, network_fee, minimum_amount, maximum_amount, priority, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		w.WalletAddress,
		w.Chain,
		w.Token,
		w.QRKey,
		w.IsActive,
		w.Description,
		w.NetworkFee,
		w.MinimumAmount,
		w.MaximumAmount,
		w.Priority,
		w.CreatedBy,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create wallet", err)
	}

	return nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1`, walletColumns)

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Wallet not found", nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get wallet", err)
	}

	return w, nil
}

// GetActive returns the wallet only if it is currently accepting
// deposits; inactive wallets are treated as absent.
func (r *WalletRepository) GetActive(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1 AND is_active = TRUE`, walletColumns)

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("No supported wallet found", nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get wallet", err)
	}

	return w, nil
}

func (r *WalletRepository) Update(ctx context.Context, w *models.Wallet) error {
	query := `
		UPDATE wallets
		SET wallet_address = $2,
			chain = $3,
			token = $4,
			qr_key = $5,
			description = $6,
			network_fee = $7,
			minimum_amount = $8,
			maximum_amount = $9,
			priority = $10,
			updated_by = $11,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		w.ID,
		w.WalletAddress,
		w.Chain,
		w.Token,
		w.QRKey,
		w.Description,
		w.NetworkFee,
		w.MinimumAmount,
		w.MaximumAmount,
		w.Priority,
		w.UpdatedBy,
	)
	if err != nil {
		return apperrors.NewDatabaseError("update wallet", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("update wallet", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("Wallet not found", nil)
	}

	return nil
}

func (r *WalletRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE wallets
		SET is_active = $2, updated_by = $3, updated_at = NOW()
		WHERE id = $1
	`, id, active, updatedBy)
	if err != nil {
		return apperrors.NewDatabaseError("set wallet active", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("set wallet active", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("Wallet not found", nil)
	}

	return nil
}

// List returns wallets by priority; activeOnly restricts to wallets users
// may currently deposit into.
func (r *WalletRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Wallet, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM wallets
		WHERE ($1 = FALSE OR is_active = TRUE)
		ORDER BY priority DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`, walletColumns)

	rows, err := r.db.QueryContext(ctx, query, activeOnly,
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list wallets", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan wallet", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list wallets", err)
	}

	return wallets, nil
}

func (r *WalletRepository) Count(ctx context.Context, activeOnly bool) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallets WHERE ($1 = FALSE OR is_active = TRUE)`, activeOnly,
	).Scan(&total)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count wallets", err)
	}
	return total, nil
}
