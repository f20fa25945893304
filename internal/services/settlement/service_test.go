package settlement

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

type fakeMetrics struct {
	settlements [][2]string
}

func (f *fakeMetrics) RecordSettlement(txType, outcome string) {
	f.settlements = append(f.settlements, [2]string{txType, outcome})
}

func (f *fakeMetrics) lastOutcome() string {
	if len(f.settlements) == 0 {
		return ""
	}
	return f.settlements[len(f.settlements)-1][1]
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeMetrics) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)
	metrics := &fakeMetrics{}

	svc := NewService(
		db,
		repository.NewTransactionRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewWalletRepository(db),
		metrics,
		logger.NewNop(),
	)

	return svc, mock, metrics
}

var transactionCols = []string{
	"id", "user_id", "wallet_id", "type", "status", "amount",
	"transaction_hash", "screenshot_key", "withdrawal_type", "withdrawal_address",
	"reject_reason", "created_at", "updated_at",
}

var walletCols = []string{
	"id", "wallet_address", "chain", "token", "qr_key", "is_active",
	"description", "network_fee", "minimum_amount", "maximum_amount", "priority",
	"created_by", "updated_by", "created_at", "updated_at",
}

func transactionRow(id, userID uuid.UUID, txType models.TransactionType, status models.TransactionStatus, amount float64, withdrawalType models.WithdrawalType) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(transactionCols).AddRow(
		id, userID, uuid.New(), string(txType), string(status), amount,
		"0xabc", "screenshots/key.png", string(withdrawalType), "",
		"", now, now,
	)
}

func walletRow(id uuid.UUID, min, max float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(walletCols).AddRow(
		id, "TAddr123", "TRON", "USDT", "wallet-qr/key.png", true,
		"", 1.0, min, max, 1,
		uuid.New(), nil, now, now,
	)
}

func TestApproveDepositCreditsPrincipal(t *testing.T) {
	svc, mock, metrics := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionDeposit, models.TransactionPending, 500.0, ""))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionApproved), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO portfolios").
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE user_id").
		WithArgs(userID).
		WillReturnRows(portfolioRow(userID, 0, 12, 30))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(userID, 500.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Approve(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionApproved, result.Status)
	assert.Equal(t, "approved", metrics.lastOutcome())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovePrincipalWithdrawalDebitsExactAmount(t *testing.T) {
	svc, mock, metrics := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionWithdrawal, models.TransactionPending, 200.0, models.WithdrawPrincipal))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionApproved), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(userID, 200.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Approve(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionApproved, result.Status)
	assert.Equal(t, "approved", metrics.lastOutcome())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveWithdrawalInsufficientFundsRollsBack(t *testing.T) {
	svc, mock, metrics := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionWithdrawal, models.TransactionPending, 5000.0, models.WithdrawPrincipal))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionApproved), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Guard predicate rejects the debit: balance moved since submission.
	mock.ExpectExec("UPDATE portfolios").
		WithArgs(userID, 5000.0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), txID)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInsufficientFunds, appErr.Type)
	assert.Equal(t, "failed", metrics.lastOutcome())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveNonPendingTransaction(t *testing.T) {
	svc, mock, metrics := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionDeposit, models.TransactionApproved, 500.0, ""))

	_, err := svc.Approve(context.Background(), txID)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInvalidState, appErr.Type)
	assert.Equal(t, "invalid_state", metrics.lastOutcome())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveLosesStatusRace(t *testing.T) {
	svc, mock, _ := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionDeposit, models.TransactionPending, 500.0, ""))

	mock.ExpectBegin()
	// A concurrent approval flipped the status first; the swap sees zero rows.
	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionApproved), "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), txID)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInvalidState, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectPendingTransaction(t *testing.T) {
	svc, mock, metrics := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionWithdrawal, models.TransactionPending, 300.0, models.WithdrawInterest))

	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionRejected), "hash not found on chain").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Reject(context.Background(), txID, "hash not found on chain")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRejected, result.Status)
	assert.Equal(t, "hash not found on chain", result.RejectReason)
	assert.Equal(t, "rejected", metrics.lastOutcome())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectAlreadySettledTransaction(t *testing.T) {
	svc, mock, _ := newTestService(t)
	txID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id").
		WithArgs(txID).
		WillReturnRows(transactionRow(txID, userID, models.TransactionDeposit, models.TransactionApproved, 300.0, ""))

	mock.ExpectExec("UPDATE transactions").
		WithArgs(txID, string(models.TransactionRejected), "duplicate").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Reject(context.Background(), txID, "duplicate")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInvalidState, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDepositRejectsOutOfBoundsAmount(t *testing.T) {
	svc, mock, _ := newTestService(t)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE id").
		WithArgs(walletID).
		WillReturnRows(walletRow(walletID, 100, 1000))

	_, err := svc.SubmitDeposit(context.Background(), DepositRequest{
		UserID:          uuid.New(),
		WalletID:        walletID,
		Amount:          50,
		TransactionHash: "0xabc",
		ScreenshotKey:   "screenshots/key.png",
	})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	// No transaction row was created.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDepositUnboundedWalletAcceptsAnyAmount(t *testing.T) {
	svc, mock, _ := newTestService(t)
	walletID, userID := uuid.New(), uuid.New()

	// 0/0 bounds mean "no limit", not a zero-amount cap.
	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE id").
		WithArgs(walletID).
		WillReturnRows(walletRow(walletID, 0, 0))

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(userID, walletID, string(models.TransactionDeposit), string(models.TransactionPending),
			1000000.0, "0xabc", "screenshots/key.png", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(uuid.New(), time.Now(), time.Now()))

	result, err := svc.SubmitDeposit(context.Background(), DepositRequest{
		UserID:          userID,
		WalletID:        walletID,
		Amount:          1000000,
		TransactionHash: "0xabc",
		ScreenshotKey:   "screenshots/key.png",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWithdrawalInsufficientBalancePrecheck(t *testing.T) {
	svc, mock, _ := newTestService(t)
	walletID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE id").
		WithArgs(walletID).
		WillReturnRows(walletRow(walletID, 0, 0))
	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE user_id").
		WithArgs(userID).
		WillReturnRows(portfolioRow(userID, 100, 12, 30))

	_, err := svc.SubmitWithdrawal(context.Background(), WithdrawalRequest{
		UserID:            userID,
		WalletID:          walletID,
		Amount:            500,
		WithdrawalType:    models.WithdrawPrincipal,
		WithdrawalAddress: "TAddr123",
	})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeInsufficientFunds, appErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var portfolioCols = []string{
	"id", "user_id", "principal_amount", "current_monthly_rate",
	"current_duration_days", "remaining_days", "current_accumulated_interest",
	"total_earned_interest", "last_credit_date", "status", "created_at", "updated_at",
}

func portfolioRow(userID uuid.UUID, principal, rate float64, remainingDays int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(portfolioCols).AddRow(
		uuid.New(), userID, principal, rate,
		30, remainingDays, 0.0,
		0.0, nil, string(models.PortfolioActive), now, now,
	)
}
