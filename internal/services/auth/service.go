package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/credixa-git/crypto-app-be/internal/cache"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

const (
	purposeVerify = "verify"
	purposeReset  = "reset"

	bcryptCost = 12
)

// Mailer is the outbound mail surface the auth flow needs; satisfied by
// mailer.Mailer and by fakes in tests.
type Mailer interface {
	SendOTP(to, code string) error
	SendWelcome(to, name string) error
}

// Service owns signup, login and the OTP verification flows. Email
// delivery is fire-and-forget: a failed send is logged and the flow
// continues.
type Service struct {
	users *repository.UserRepository
	otp   *cache.OTPStore
	mail  Mailer
	log   *logger.Logger
}

func NewService(users *repository.UserRepository, otp *cache.OTPStore, mail Mailer, log *logger.Logger) *Service {
	return &Service{
		users: users,
		otp:   otp,
		mail:  mail,
		log:   log,
	}
}

func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationError("Email is required", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("Password must be at least 8 characters", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to hash password", err)
	}

	user := &models.User{
		Name:           name,
		Email:          email,
		HashedPassword: string(hashed),
		Role:           "user",
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	code, err := s.otp.Issue(ctx, user.ID.String(), purposeVerify)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to issue verification code", err)
	}

	go s.sendAsync(user.Email, code, user.Name)

	return user, nil
}

func (s *Service) sendAsync(email, code, name string) {
	if err := s.mail.SendOTP(email, code); err != nil {
		s.log.Errorw("Failed to send verification email", "email", email, "error", err.Error())
	}
	if err := s.mail.SendWelcome(email, name); err != nil {
		s.log.Errorw("Failed to send welcome email", "email", email, "error", err.Error())
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the email exists.
		return nil, apperrors.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	return user, nil
}

// VerifyEmail consumes the signup OTP and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}

	ok, err := s.otp.Verify(ctx, user.ID.String(), purposeVerify, code)
	if err != nil {
		return apperrors.NewInternalError("Failed to verify code", err)
	}
	if !ok {
		return apperrors.NewValidationError("Invalid or expired verification code", nil)
	}

	return s.users.MarkVerified(ctx, user.ID)
}

// RequestPasswordReset issues a reset OTP. Always succeeds from the
// caller's perspective when the account is unknown, to avoid account
// enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.log.Infow("Password reset requested for unknown email", "email", email)
		return nil
	}

	code, err := s.otp.Issue(ctx, user.ID.String(), purposeReset)
	if err != nil {
		return apperrors.NewInternalError("Failed to issue reset code", err)
	}

	go func() {
		if err := s.mail.SendOTP(user.Email, code); err != nil {
			s.log.Errorw("Failed to send reset email", "email", user.Email, "error", err.Error())
		}
	}()

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("Password must be at least 8 characters", nil)
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}

	ok, err := s.otp.Verify(ctx, user.ID.String(), purposeReset, code)
	if err != nil {
		return apperrors.NewInternalError("Failed to verify code", err)
	}
	if !ok {
		return apperrors.NewValidationError("Invalid or expired reset code", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperrors.NewInternalError("Failed to hash password", err)
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hashed))
}
