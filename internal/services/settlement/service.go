package settlement

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/credixa-git/crypto-app-be/internal/database"
	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
)

// MetricsRecorder counts settlement outcomes; satisfied by
// monitoring.Metrics and by a no-op in tests.
type MetricsRecorder interface {
	RecordSettlement(txType, outcome string)
}

// Service owns the transaction ledger: deposit/withdrawal submission and
// the approve/reject state machine that mutates the portfolio exactly
// once per transaction.
type Service struct {
	db           *database.DB
	transactions *repository.TransactionRepository
	portfolios   *repository.PortfolioRepository
	wallets      *repository.WalletRepository
	metrics      MetricsRecorder
	log          *logger.Logger
}

func NewService(
	db *database.DB,
	transactions *repository.TransactionRepository,
	portfolios *repository.PortfolioRepository,
	wallets *repository.WalletRepository,
	metrics MetricsRecorder,
	log *logger.Logger,
) *Service {
	return &Service{
		db:           db,
		transactions: transactions,
		portfolios:   portfolios,
		wallets:      wallets,
		metrics:      metrics,
		log:          log,
	}
}

type DepositRequest struct {
	UserID          uuid.UUID
	WalletID        uuid.UUID
	Amount          float64
	TransactionHash string
	ScreenshotKey   string
}

// SubmitDeposit validates the target wallet and amount bounds and records
// a pending deposit. The portfolio is untouched until approval.
func (s *Service) SubmitDeposit(ctx context.Context, req DepositRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError("Amount must be positive", nil)
	}
	if req.TransactionHash == "" {
		return nil, apperrors.NewValidationError("Transaction hash is required", nil)
	}
	if req.ScreenshotKey == "" {
		return nil, apperrors.NewValidationError("Screenshot is required", nil)
	}

	wallet, err := s.wallets.GetActive(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	if wallet.HasAmountLimits() &&
		(req.Amount < wallet.MinimumAmount || req.Amount > wallet.MaximumAmount) {
		return nil, apperrors.NewAmountOutOfBoundsError(wallet.MinimumAmount, wallet.MaximumAmount)
	}

	t := &models.Transaction{
		UserID:          req.UserID,
		WalletID:        wallet.ID,
		Type:            models.TransactionDeposit,
		Status:          models.TransactionPending,
		Amount:          req.Amount,
		TransactionHash: req.TransactionHash,
		ScreenshotKey:   req.ScreenshotKey,
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Infow("Deposit transaction created",
		"transaction_id", t.ID.String(),
		"user_id", req.UserID.String(),
		"amount", req.Amount,
	)

	return t, nil
}

type WithdrawalRequest struct {
	UserID            uuid.UUID
	WalletID          uuid.UUID
	Amount            float64
	WithdrawalType    models.WithdrawalType
	WithdrawalAddress string
}

// SubmitWithdrawal checks the user can currently cover the amount and
// records a pending withdrawal. Funds are not reserved; sufficiency is
// re-checked atomically at approval, which is the authoritative guard.
func (s *Service) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError("Amount must be positive", nil)
	}
	if req.WithdrawalAddress == "" {
		return nil, apperrors.NewValidationError("Withdrawal address is required", nil)
	}

	wallet, err := s.wallets.GetActive(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.portfolios.GetByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	switch req.WithdrawalType {
	case models.WithdrawPrincipal:
		if req.Amount > portfolio.PrincipalAmount {
			return nil, apperrors.NewInsufficientPrincipalError(req.Amount)
		}
	case models.WithdrawInterest:
		if req.Amount > portfolio.AccumulatedInterest {
			return nil, apperrors.NewInsufficientInterestError(req.Amount)
		}
	default:
		return nil, apperrors.NewValidationError("Invalid withdrawal type", nil)
	}

	t := &models.Transaction{
		UserID:            req.UserID,
		WalletID:          wallet.ID,
		Type:              models.TransactionWithdrawal,
		Status:            models.TransactionPending,
		Amount:            req.Amount,
		WithdrawalType:    req.WithdrawalType,
		WithdrawalAddress: req.WithdrawalAddress,
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Infow("Withdrawal transaction created",
		"transaction_id", t.ID.String(),
		"user_id", req.UserID.String(),
		"withdrawal_type", string(req.WithdrawalType),
		"amount", req.Amount,
	)

	return t, nil
}

// Approve settles a pending transaction. The status flip and the balance
// mutation run in one database transaction: the flip is a conditional
// update keyed on pending status, so a second concurrent approval sees
// zero rows and fails with InvalidState; a failed debit (balance moved
// since submission) rolls everything back and the transaction stays
// pending.
func (s *Service) Approve(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if t.Status != models.TransactionPending {
		s.metrics.RecordSettlement(string(t.Type), "invalid_state")
		return nil, apperrors.NewTransactionNotPendingError(transactionID.String())
	}

	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		swapped, err := s.transactions.MarkApproved(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if !swapped {
			return apperrors.NewTransactionNotPendingError(transactionID.String())
		}

		return s.applyToPortfolio(ctx, tx, t)
	})

	if err != nil {
		s.metrics.RecordSettlement(string(t.Type), "failed")
		s.log.LogSettlement(t.ID.String(), "approve", t.Amount, err)
		return nil, err
	}

	t.Status = models.TransactionApproved
	s.metrics.RecordSettlement(string(t.Type), "approved")
	s.log.LogSettlement(t.ID.String(), "approve", t.Amount, nil)

	return t, nil
}

func (s *Service) applyToPortfolio(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	switch t.Type {
	case models.TransactionDeposit:
		// First approved deposit provisions the portfolio.
		if _, err := s.portfolios.EnsureTx(ctx, tx, t.UserID); err != nil {
			return err
		}
		return s.portfolios.CreditPrincipalTx(ctx, tx, t.UserID, t.Amount)

	case models.TransactionWithdrawal:
		switch t.WithdrawalType {
		case models.WithdrawPrincipal:
			return s.portfolios.DebitPrincipalTx(ctx, tx, t.UserID, t.Amount)
		case models.WithdrawInterest:
			return s.portfolios.DebitAccumulatedInterestTx(ctx, tx, t.UserID, t.Amount)
		default:
			return apperrors.NewValidationError("Invalid withdrawal type", nil)
		}

	default:
		return apperrors.NewValidationError("Invalid transaction type", nil)
	}
}

// Reject marks a pending transaction rejected with a reason. The
// portfolio is never touched on rejection.
func (s *Service) Reject(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	swapped, err := s.transactions.MarkRejected(ctx, transactionID, reason)
	if err != nil {
		s.metrics.RecordSettlement(string(t.Type), "failed")
		return nil, err
	}
	if !swapped {
		s.metrics.RecordSettlement(string(t.Type), "invalid_state")
		return nil, apperrors.NewTransactionNotPendingError(transactionID.String())
	}

	t.Status = models.TransactionRejected
	t.RejectReason = reason
	s.metrics.RecordSettlement(string(t.Type), "rejected")
	s.log.LogSettlement(t.ID.String(), "reject", t.Amount, nil)

	return t, nil
}

// History returns one user's transactions with the total count.
func (s *Service) History(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter, limit, offset int) ([]models.Transaction, int, error) {
	transactions, err := s.transactions.ListByUser(ctx, userID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transactions.CountByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// ListAll returns transactions across all users for admin review.
func (s *Service) ListAll(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]models.Transaction, int, error) {
	transactions, err := s.transactions.ListAll(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transactions.CountAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}
