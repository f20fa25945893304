package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/services/wallet"
	"github.com/credixa-git/crypto-app-be/internal/storage"
)

const (
	maxQRSize = 5 << 20 // 5 MiB
	qrFolder  = "wallet-qr"
)

type WalletHandler struct {
	walletService WalletService
	uploads       Uploader
}

type WalletService interface {
	Create(ctx context.Context, adminID uuid.UUID, req wallet.CreateRequest) (*models.Wallet, error)
	Update(ctx context.Context, adminID, walletID uuid.UUID, req wallet.CreateRequest) (*models.Wallet, error)
	SetActive(ctx context.Context, adminID, walletID uuid.UUID, active bool) error
	ListActive(ctx context.Context, limit, offset int) ([]models.Wallet, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Wallet, int, error)
	GetByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
}

func NewWalletHandler(walletService WalletService, uploads Uploader) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		uploads:       uploads,
	}
}

// ListActiveWallets is the user-facing deposit target list.
func (h *WalletHandler) ListActiveWallets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	wallets, total, err := h.walletService.ListActive(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   wallets,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *WalletHandler) ListAllWallets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	wallets, total, err := h.walletService.ListAll(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   wallets,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid wallet ID", err))
		return
	}

	wlt, err := h.walletService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wlt)
}

// CreateWallet takes a multipart form so the QR code image can ride
// along with the wallet fields.
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	req, err := h.walletRequestFromForm(r)
	if err != nil {
		respondError(w, err)
		return
	}

	wlt, err := h.walletService.Create(r.Context(), adminID, *req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, wlt)
}

func (h *WalletHandler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid wallet ID", err))
		return
	}

	req, err := h.walletRequestFromForm(r)
	if err != nil {
		respondError(w, err)
		return
	}

	wlt, err := h.walletService.Update(r.Context(), adminID, id, *req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wlt)
}

type SetWalletActiveRequest struct {
	Active bool `json:"active"`
}

func (h *WalletHandler) SetWalletActive(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid wallet ID", err))
		return
	}

	active := r.URL.Query().Get("active") == "true"

	if err := h.walletService.SetActive(r.Context(), adminID, id, active); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *WalletHandler) walletRequestFromForm(r *http.Request) (*wallet.CreateRequest, error) {
	if err := r.ParseMultipartForm(maxQRSize); err != nil {
		return nil, apperrors.NewValidationError("Invalid multipart form", err)
	}

	req := &wallet.CreateRequest{
		WalletAddress: r.FormValue("wallet_address"),
		Chain:         r.FormValue("chain"),
		Token:         r.FormValue("token"),
		Description:   r.FormValue("description"),
		IsActive:      r.FormValue("is_active") == "true",
	}

	var err error
	if v := r.FormValue("network_fee"); v != "" {
		if req.NetworkFee, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, apperrors.NewValidationError("Invalid network fee", err)
		}
	}
	if v := r.FormValue("minimum_amount"); v != "" {
		if req.MinimumAmount, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, apperrors.NewValidationError("Invalid minimum amount", err)
		}
	}
	if v := r.FormValue("maximum_amount"); v != "" {
		if req.MaximumAmount, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, apperrors.NewValidationError("Invalid maximum amount", err)
		}
	}
	if v := r.FormValue("priority"); v != "" {
		if req.Priority, err = strconv.Atoi(v); err != nil {
			return nil, apperrors.NewValidationError("Invalid priority", err)
		}
	}

	file, header, err := r.FormFile("qr")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid QR image", err)
	}
	defer file.Close()

	key := storage.FileKey(qrFolder, header.Filename)
	if err := h.uploads.Upload(r.Context(), key, file); err != nil {
		return nil, apperrors.NewInternalError("Failed to store QR image", err)
	}
	req.QRKey = key

	return req, nil
}
