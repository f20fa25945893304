package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

type fakeMailer struct {
	otps     []string
	welcomes []string
}

func (f *fakeMailer) SendOTP(to, code string) error {
	f.otps = append(f.otps, to)
	return nil
}

func (f *fakeMailer) SendWelcome(to, name string) error {
	f.welcomes = append(f.welcomes, to)
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeMailer) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)
	mail := &fakeMailer{}

	svc := NewService(repository.NewUserRepository(db), nil, mail, logger.NewNop())

	return svc, mock, mail
}

var userCols = []string{
	"id", "name", "email", "hashed_password", "role", "is_verified", "created_at", "updated_at",
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "Ada", "ada@example.com", "short")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRejectsEmptyEmail(t *testing.T) {
	svc, mock, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "Ada", "   ", "longenough")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			userID, "Ada", "ada@example.com", string(hashed), "user", true, now, now,
		))

	user, err := svc.Login(context.Background(), "Ada@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)
	now := time.Now()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			uuid.New(), "Ada", "ada@example.com", string(hashed), "user", true, now, now,
		))

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeAuthentication, appErr.Type)
}

func TestLoginHidesUnknownAccounts(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)

	// Unknown email and wrong password are indistinguishable.
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeAuthentication, appErr.Type)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}
