package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	Role           string    `json:"role" db:"role"`
	IsVerified     bool      `json:"is_verified" db:"is_verified"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Wallet is an admin-managed deposit target. Users send funds to its
// address and attach the resulting transaction hash to a deposit request.
type Wallet struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	WalletAddress string     `json:"wallet_address" db:"wallet_address"`
	Chain         string     `json:"chain" db:"chain"`
	Token         string     `json:"token" db:"token"`
	QRKey         string     `json:"-" db:"qr_key"`
	QRURL         string     `json:"qr_url,omitempty" db:"-"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	Description   string     `json:"description" db:"description"`
	NetworkFee    float64    `json:"network_fee" db:"network_fee"`
	MinimumAmount float64    `json:"minimum_amount" db:"minimum_amount"`
	MaximumAmount float64    `json:"maximum_amount" db:"maximum_amount"`
	Priority      int        `json:"priority" db:"priority"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	UpdatedBy     *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasAmountLimits reports whether the wallet enforces deposit bounds.
// A 0/0 pair is the "no limit" sentinel, not a zero-amount cap.
func (w *Wallet) HasAmountLimits() bool {
	return !(w.MinimumAmount == 0 && w.MaximumAmount == 0)
}

type KYCStatus string

const (
	KYCApplied  KYCStatus = "applied"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

type KYCSubmission struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	DocumentType    string     `json:"document_type" db:"document_type"`
	FrontKey        string     `json:"-" db:"front_key"`
	BackKey         string     `json:"-" db:"back_key"`
	FrontURL        string     `json:"front_url,omitempty" db:"-"`
	BackURL         string     `json:"back_url,omitempty" db:"-"`
	Status          KYCStatus  `json:"status" db:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	ImageKey  string    `json:"-" db:"image_key"`
	ImageURL  string    `json:"image_url,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
