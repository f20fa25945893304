package repository

import (
	"context"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/models"
)

type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (text, image_key)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, n.Text, n.ImageKey).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create notification", err)
	}

	return nil
}

func (r *NotificationRepository) List(ctx context.Context, limit, offset int) ([]models.Notification, error) {
	query := `
		SELECT id, text, image_key, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query,
		database.SafeLimit(limit), database.SafeOffset(offset))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Text, &n.ImageKey, &n.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("scan notification", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}

	return notifications, nil
}
