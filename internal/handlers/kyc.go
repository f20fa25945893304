package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/credixa-git/crypto-app-be/internal/errors"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/models"
	"github.com/credixa-git/crypto-app-be/internal/storage"
)

const (
	maxDocumentSize = 10 << 20 // 10 MiB
	kycFolder       = "kyc-documents"
)

type KYCHandler struct {
	kycService KYCService
	uploads    Uploader
}

type KYCService interface {
	Submit(ctx context.Context, userID uuid.UUID, documentType, frontKey, backKey string) (*models.KYCSubmission, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.KYCSubmission, error)
	Review(ctx context.Context, userID, reviewedBy uuid.UUID, approve bool, reason string) error
	ListByStatus(ctx context.Context, status models.KYCStatus, limit, offset int) ([]models.KYCSubmission, error)
}

func NewKYCHandler(kycService KYCService, uploads Uploader) *KYCHandler {
	return &KYCHandler{
		kycService: kycService,
		uploads:    uploads,
	}
}

// Submit receives the identity document images and queues the
// submission for admin review.
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid multipart form", err))
		return
	}

	frontKey, err := h.storeDocument(r, "front")
	if err != nil {
		respondError(w, err)
		return
	}
	backKey, err := h.storeDocument(r, "back")
	if err != nil {
		respondError(w, err)
		return
	}

	submission, err := h.kycService.Submit(r.Context(), userID, r.FormValue("document_type"), frontKey, backKey)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, submission)
}

func (h *KYCHandler) storeDocument(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", apperrors.NewValidationError("Both document images are required", err)
	}
	defer file.Close()

	key := storage.FileKey(kycFolder, header.Filename)
	if err := h.uploads.Upload(r.Context(), key, file); err != nil {
		return "", apperrors.NewInternalError("Failed to store document", err)
	}

	return key, nil
}

func (h *KYCHandler) GetMyKYC(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	submission, err := h.kycService.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, submission)
}

// ListSubmissions is the admin review queue, filterable by status.
func (h *KYCHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := models.KYCStatus(r.URL.Query().Get("status"))

	submissions, err := h.kycService.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated{
		Data:   submissions,
		Total:  len(submissions),
		Limit:  limit,
		Offset: offset,
	})
}

type ReviewKYCRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *KYCHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		respondError(w, apperrors.NewInvalidTokenError())
		return
	}

	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		respondError(w, apperrors.NewValidationError("Invalid user ID", err))
		return
	}

	var req ReviewKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	if err := h.kycService.Review(r.Context(), userID, adminID, req.Approve, req.Reason); err != nil {
		respondError(w, err)
		return
	}

	status := models.KYCVerified
	if !req.Approve {
		status = models.KYCRejected
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}
