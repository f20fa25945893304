package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

const qrURLExpiry = time.Hour

// Presigner turns stored object keys into temporary GET URLs.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Service manages the admin-curated set of deposit wallets.
type Service struct {
	wallets   *repository.WalletRepository
	presigner Presigner
	log       *logger.Logger
}

func NewService(wallets *repository.WalletRepository, presigner Presigner, log *logger.Logger) *Service {
	return &Service{
		wallets:   wallets,
		presigner: presigner,
		log:       log,
	}
}

// CreateRequest carries the admin-supplied wallet fields. A zero
// minimum and maximum means deposits of any size are accepted.
type CreateRequest struct {
	WalletAddress string
	Chain         string
	Token         string
	QRKey         string
	Description   string
	NetworkFee    float64
	MinimumAmount float64
	MaximumAmount float64
	Priority      int
	IsActive      bool
}

func (s *Service) Create(ctx context.Context, adminID uuid.UUID, req CreateRequest) (*models.Wallet, error) {
	if err := validateFields(req.WalletAddress, req.Chain, req.Token, req.MinimumAmount, req.MaximumAmount, req.NetworkFee); err != nil {
		return nil, err
	}

	w := &models.Wallet{
		WalletAddress: req.WalletAddress,
		Chain:         req.Chain,
		Token:         req.Token,
		QRKey:         req.QRKey,
		IsActive:      req.IsActive,
		Description:   req.Description,
		NetworkFee:    req.NetworkFee,
		MinimumAmount: req.MinimumAmount,
		MaximumAmount: req.MaximumAmount,
		Priority:      req.Priority,
		CreatedBy:     adminID,
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, err
	}

	s.log.Infow("Wallet created",
		"wallet_id", w.ID,
		"chain", w.Chain,
		"token", w.Token,
		"created_by", adminID,
	)

	return w, nil
}

func (s *Service) Update(ctx context.Context, adminID, walletID uuid.UUID, req CreateRequest) (*models.Wallet, error) {
	if err := validateFields(req.WalletAddress, req.Chain, req.Token, req.MinimumAmount, req.MaximumAmount, req.NetworkFee); err != nil {
		return nil, err
	}

	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	w.WalletAddress = req.WalletAddress
	w.Chain = req.Chain
	w.Token = req.Token
	if req.QRKey != "" {
		w.QRKey = req.QRKey
	}
	w.Description = req.Description
	w.NetworkFee = req.NetworkFee
	w.MinimumAmount = req.MinimumAmount
	w.MaximumAmount = req.MaximumAmount
	w.Priority = req.Priority
	w.UpdatedBy = &adminID

	if err := s.wallets.Update(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// SetActive toggles whether the wallet is offered for deposits. Pending
// transactions against a deactivated wallet are unaffected.
func (s *Service) SetActive(ctx context.Context, adminID, walletID uuid.UUID, active bool) error {
	if err := s.wallets.SetActive(ctx, walletID, active, adminID); err != nil {
		return err
	}

	s.log.Infow("Wallet activation changed", "wallet_id", walletID, "active", active, "updated_by", adminID)
	return nil
}

// ListActive returns deposit-ready wallets for users, QR URLs attached.
func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]models.Wallet, int, error) {
	wallets, err := s.wallets.List(ctx, true, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.wallets.Count(ctx, true)
	if err != nil {
		return nil, 0, err
	}

	for i := range wallets {
		if err := s.attachQRURL(ctx, &wallets[i]); err != nil {
			return nil, 0, err
		}
	}

	return wallets, total, nil
}

// ListAll is the admin view, inactive wallets included.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]models.Wallet, int, error) {
	wallets, err := s.wallets.List(ctx, false, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.wallets.Count(ctx, false)
	if err != nil {
		return nil, 0, err
	}

	for i := range wallets {
		if err := s.attachQRURL(ctx, &wallets[i]); err != nil {
			return nil, 0, err
		}
	}

	return wallets, total, nil
}

func (s *Service) GetByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	if err := s.attachQRURL(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

func (s *Service) attachQRURL(ctx context.Context, w *models.Wallet) error {
	if w.QRKey == "" {
		return nil
	}

	url, err := s.presigner.PresignedURL(ctx, w.QRKey, qrURLExpiry)
	if err != nil {
		return apperrors.NewInternalError("Failed to sign QR code URL", err)
	}

	w.QRURL = url
	return nil
}

func validateFields(address, chain, token string, min, max, fee float64) error {
	if address == "" {
		return apperrors.NewValidationError("Wallet address is required", nil)
	}
	if chain == "" || token == "" {
		return apperrors.NewValidationError("Chain and token are required", nil)
	}
	if min < 0 || max < 0 || fee < 0 {
		return apperrors.NewValidationError("Amounts must not be negative", nil)
	}
	if max > 0 && min > max {
		return apperrors.NewValidationError("Minimum amount exceeds maximum amount", nil)
	}
	return nil
}
