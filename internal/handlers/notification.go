package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/storage"
)

const (
	maxNotificationImageSize = 5 << 20 // 5 MiB
	notificationFolder       = "notifications"
)

type NotificationHandler struct {
	notificationService NotificationService
	uploads             Uploader
}

type NotificationService interface {
	Create(ctx context.Context, adminID uuid.UUID, text, imageKey string) (*models.Notification, error)
	List(ctx context.Context, limit, offset int) ([]models.Notification, error)
}

func NewNotificationHandler(notificationService NotificationService, uploads Uploader) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		uploads:             uploads,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	notifications, err := h.notificationService.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   notifications,
		Total:  len(notifications),
		Limit:  limit,
		Offset: offset,
	})
}

// Create publishes an announcement, with an optional image.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	if err := r.ParseMultipartForm(maxNotificationImageSize); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid multipart form", err))
		return
	}

	var imageKey string
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()

		imageKey = storage.FileKey(notificationFolder, header.Filename)
		if err := h.uploads.Upload(r.Context(), imageKey, file); err != nil {
			respondError(w, apperrors.NewInternalError("Failed to store image", err))
			return
		}
	} else if err != http.ErrMissingFile {
		respondError(w, apperrors.NewValidationError("Invalid image", err))
		return
	}

	n, err := h.notificationService.Create(r.Context(), adminID, r.FormValue("text"), imageKey)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, n)
}
