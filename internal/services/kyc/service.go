package kyc

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

const urlExpiry = 15 * time.Minute

var validDocumentTypes = map[string]bool{
	"passport":        true,
	"national_id":     true,
	"driving_license": true,
}

// Presigner turns stored object keys into temporary GET URLs.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Service struct {
	submissions *repository.KYCRepository
	presigner   Presigner
	log         *logger.Logger
}

func NewService(submissions *repository.KYCRepository, presigner Presigner, log *logger.Logger) *Service {
	return &Service{
		submissions: submissions,
		presigner:   presigner,
		log:         log,
	}
}

// Submit records the user's identity documents. The document images are
// already uploaded; only their object keys arrive here. Resubmission is
// allowed after a rejection, never while a review is pending or passed.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, documentType, frontKey, backKey string) (*models.KYCSubmission, error) {
	if !validDocumentTypes[documentType] {
		return nil, apperrors.NewValidationError("Invalid document type", nil).WithDetails(map[string]interface{}{
			"document_type": documentType,
		})
	}
	if frontKey == "" || backKey == "" {
		return nil, apperrors.NewValidationError("Both document images are required", nil)
	}

	submission := &models.KYCSubmission{
		UserID:       userID,
		DocumentType: documentType,
		FrontKey:     frontKey,
		BackKey:      backKey,
	}

	if err := s.submissions.Upsert(ctx, submission); err != nil {
		return nil, err
	}

	s.log.Infow("KYC submission received", "user_id", userID, "document_type", documentType)

	return submission, nil
}

// GetByUser returns the user's submission with presigned document URLs.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.KYCSubmission, error) {
	submission, err := s.submissions.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.attachURLs(ctx, submission); err != nil {
		return nil, err
	}

	return submission, nil
}

// Review resolves an applied submission as verified or rejected. A
// rejection requires a reason so the user knows what to fix.
func (s *Service) Review(ctx context.Context, userID, reviewedBy uuid.UUID, approve bool, reason string) error {
	status := models.KYCVerified
	if !approve {
		if reason == "" {
			return apperrors.NewValidationError("Rejection reason is required", nil)
		}
		status = models.KYCRejected
	} else {
		reason = ""
	}

	resolved, err := s.submissions.Review(ctx, userID, status, reason, reviewedBy)
	if err != nil {
		return err
	}
	if !resolved {
		return apperrors.NewInvalidStateError("KYC submission is not awaiting review", nil)
	}

	s.log.Infow("KYC submission reviewed",
		"user_id", userID,
		"status", status,
		"reviewed_by", reviewedBy,
	)

	return nil
}

// ListByStatus returns submissions for the admin review queue, with
// presigned document URLs.
func (s *Service) ListByStatus(ctx context.Context, status models.KYCStatus, limit, offset int) ([]models.KYCSubmission, error) {
	submissions, err := s.submissions.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range submissions {
		if err := s.attachURLs(ctx, &submissions[i]); err != nil {
			return nil, err
		}
	}

	return submissions, nil
}

func (s *Service) attachURLs(ctx context.Context, k *models.KYCSubmission) error {
	front, err := s.presigner.PresignedURL(ctx, k.FrontKey, urlExpiry)
	if err != nil {
		return apperrors.NewInternalError("Failed to sign document URL", err)
	}
	back, err := s.presigner.PresignedURL(ctx, k.BackKey, urlExpiry)
	if err != nil {
		return apperrors.NewInternalError("Failed to sign document URL", err)
	}

	k.FrontURL = front
	k.BackURL = back
	return nil
}
