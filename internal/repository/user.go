package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

const userColumns = `id, name, email, hashed_password, role, is_verified, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.HashedPassword,
		&u.Role,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, hashed_password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_verified, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.HashedPassword, u.Role).
		Scan(&u.ID, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return apperrors.NewConflictError("Email already registered", err)
		}
		return apperrors.NewDatabaseError("create user", err)
	}

	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("User not found", nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user", err)
	}

	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("User not found", nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user", err)
	}

	return u, nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewDatabaseError("mark user verified", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("mark user verified", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("User not found", nil)
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET hashed_password = $2, updated_at = NOW() WHERE id = $1`, id, hashedPassword)
	if err != nil {
		return apperrors.NewDatabaseError("update password", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("update password", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("User not found", nil)
	}

	return nil
}
