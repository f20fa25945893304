package kyc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

type fakePresigner struct{}

func (fakePresigner) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)

	svc := NewService(repository.NewKYCRepository(db), fakePresigner{}, logger.NewNop())

	return svc, mock
}

func TestSubmitCreatesAppliedSubmission(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO kyc_submissions").
		WithArgs(userID, "passport", "kyc-documents/front.png", "kyc-documents/back.png").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
			AddRow(uuid.New(), "applied", now, now))

	submission, err := svc.Submit(context.Background(), userID, "passport",
		"kyc-documents/front.png", "kyc-documents/back.png")
	require.NoError(t, err)
	assert.Equal(t, models.KYCApplied, submission.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRejectsUnknownDocumentType(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.Submit(context.Background(), uuid.New(), "library_card", "front", "back")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWhileReviewPending(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()

	// The conditional upsert only replaces rejected submissions; an
	// applied or verified one returns no row.
	mock.ExpectQuery("INSERT INTO kyc_submissions").
		WithArgs(userID, "passport", "front", "back").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at", "updated_at"}))

	_, err := svc.Submit(context.Background(), userID, "passport", "front", "back")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInvalidState, appErr.Type)
}

func TestReviewVerifiesAppliedSubmission(t *testing.T) {
	svc, mock := newTestService(t)
	userID, adminID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE kyc_submissions").
		WithArgs(userID, string(models.KYCVerified), "", adminID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Review(context.Background(), userID, adminID, true, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRejectionRequiresReason(t *testing.T) {
	svc, mock := newTestService(t)

	err := svc.Review(context.Background(), uuid.New(), uuid.New(), false, "")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewAlreadyResolvedSubmission(t *testing.T) {
	svc, mock := newTestService(t)
	userID, adminID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE kyc_submissions").
		WithArgs(userID, string(models.KYCRejected), "blurry photo", adminID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Review(context.Background(), userID, adminID, false, "blurry photo")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInvalidState, appErr.Type)
}

func TestGetByUserAttachesPresignedURLs(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM kyc_submissions WHERE user_id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "document_type", "front_key", "back_key", "status",
			"rejection_reason", "reviewed_by", "reviewed_at", "created_at", "updated_at",
		}).AddRow(
			uuid.New(), userID, "passport", "kyc-documents/f.png", "kyc-documents/b.png", "applied",
			"", nil, nil, now, now,
		))

	submission, err := svc.GetByUser(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example.com/kyc-documents/f.png", submission.FrontURL)
	assert.Equal(t, "https://signed.example.com/kyc-documents/b.png", submission.BackURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
