package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

const imageURLExpiry = time.Hour

// Presigner turns stored object keys into temporary GET URLs.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Service manages admin broadcast announcements shown to all users.
type Service struct {
	notifications *repository.NotificationRepository
	presigner     Presigner
	log           *logger.Logger
}

func NewService(notifications *repository.NotificationRepository, presigner Presigner, log *logger.Logger) *Service {
	return &Service{
		notifications: notifications,
		presigner:     presigner,
		log:           log,
	}
}

func (s *Service) Create(ctx context.Context, adminID uuid.UUID, text, imageKey string) (*models.Notification, error) {
	if text == "" {
		return nil, apperrors.NewValidationError("Notification text is required", nil)
	}

	n := &models.Notification{
		Text:     text,
		ImageKey: imageKey,
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	s.log.Infow("Notification published", "notification_id", n.ID, "created_by", adminID)

	return n, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Notification, error) {
	notifications, err := s.notifications.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range notifications {
		n := &notifications[i]
		if n.ImageKey == "" {
			continue
		}

		url, err := s.presigner.PresignedURL(ctx, n.ImageKey, imageURLExpiry)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to sign notification image URL", err)
		}
		n.ImageURL = url
	}

	return notifications, nil
}
