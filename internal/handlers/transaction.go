package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/repository"
	"github.com/credixa-git/crypto-app-be/internal/services/settlement"
	"github.com/credixa-git/crypto-app-be/internal/storage"
)

const (
	maxScreenshotSize  = 10 << 20 // 10 MiB
	screenshotFolder   = "screenshots"
	screenshotURLHours = 1
)

type TransactionHandler struct {
	settlementService SettlementService
	uploads           Uploader
}

type SettlementService interface {
	SubmitDeposit(ctx context.Context, req settlement.DepositRequest) (*models.Transaction, error)
	SubmitWithdrawal(ctx context.Context, req settlement.WithdrawalRequest) (*models.Transaction, error)
	Approve(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	Reject(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error)
	History(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter, limit, offset int) ([]models.Transaction, int, error)
	ListAll(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]models.Transaction, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

func NewTransactionHandler(settlementService SettlementService, uploads Uploader) *TransactionHandler {
	return &TransactionHandler{
		settlementService: settlementService,
		uploads:           uploads,
	}
}

// SubmitDeposit accepts a multipart form: the deposit fields plus the
// payment screenshot, which is stored before the transaction row is
// created.
func (h *TransactionHandler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	if err := r.ParseMultipartForm(maxScreenshotSize); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid multipart form", err))
		return
	}

	walletID, err := uuid.Parse(r.FormValue("wallet_id"))
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid wallet ID", err))
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid amount", err))
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		respondError(w, apperrors.NewValidationError("Screenshot is required", err))
		return
	}
	defer file.Close()

	key := storage.FileKey(screenshotFolder, header.Filename)
	if err := h.uploads.Upload(r.Context(), key, file); err != nil {
		respondError(w, apperrors.NewInternalError("Failed to store screenshot", err))
		return
	}

	t, err := h.settlementService.SubmitDeposit(r.Context(), settlement.DepositRequest{
		UserID:          userID,
		WalletID:        walletID,
		Amount:          amount,
		TransactionHash: r.FormValue("transaction_hash"),
		ScreenshotKey:   key,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

type WithdrawalRequestBody struct {
	WalletID          uuid.UUID `json:"wallet_id"`
	Amount            float64   `json:"amount"`
	WithdrawalType    string    `json:"withdrawal_type"`
	WithdrawalAddress string    `json:"withdrawal_address"`
}

func (h *TransactionHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	var req WithdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	t, err := h.settlementService.SubmitWithdrawal(r.Context(), settlement.WithdrawalRequest{
		UserID:            userID,
		WalletID:          req.WalletID,
		Amount:            req.Amount,
		WithdrawalType:    models.WithdrawalType(req.WithdrawalType),
		WithdrawalAddress: req.WithdrawalAddress,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

func (h *TransactionHandler) GetMyTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	limit, offset := parsePagination(r)
	filter := filterFromQuery(r)

	transactions, total, err := h.settlementService.History(r.Context(), userID, filter, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   transactions,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ListTransactions is the admin review queue across all users.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := filterFromQuery(r)

	transactions, total, err := h.settlementService.ListAll(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   transactions,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetTransaction returns one transaction with a presigned screenshot URL
// for deposit review.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid transaction ID", err))
		return
	}

	t, err := h.settlementService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	if t.ScreenshotKey != "" {
		url, err := h.uploads.PresignedURL(r.Context(), t.ScreenshotKey, screenshotURLHours*time.Hour)
		if err != nil {
			respondError(w, apperrors.NewInternalError("Failed to sign screenshot URL", err))
			return
		}
		t.ScreenshotURL = url
	}

	respondJSON(w, http.StatusOK, t)
}

func (h *TransactionHandler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid transaction ID", err))
		return
	}

	t, err := h.settlementService.Approve(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, t)
}

type RejectTransactionRequest struct {
	Reason string `json:"reason"`
}

func (h *TransactionHandler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid transaction ID", err))
		return
	}

	var req RejectTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", err))
		return
	}
	if req.Reason == "" {
		respondError(w, apperrors.NewValidationError("Rejection reason is required", nil))
		return
	}

	t, err := h.settlementService.Reject(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, t)
}

func filterFromQuery(r *http.Request) repository.TransactionFilter {
	return repository.TransactionFilter{
		Status: models.TransactionStatus(r.URL.Query().Get("status")),
		Type:   models.TransactionType(r.URL.Query().Get("type")),
	}
}
