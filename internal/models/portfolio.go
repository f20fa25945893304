package models

import (
	"time"

	"github.com/google/uuid"
)

type PortfolioStatus string

const (
	PortfolioActive PortfolioStatus = "active"
	PortfolioPaused PortfolioStatus = "paused"
)

// Portfolio is the per-user financial state: the principal earning
// interest, the currently configured rate/duration, and the interest
// buckets. One portfolio per user. Accrual eligibility is governed by
// RemainingDays > 0, not by Status.
type Portfolio struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	UserID               uuid.UUID       `json:"user_id" db:"user_id"`
	PrincipalAmount      float64         `json:"principal_amount" db:"principal_amount"`
	CurrentMonthlyRate   float64         `json:"current_monthly_rate" db:"current_monthly_rate"`
	CurrentDurationDays  int             `json:"current_duration_days" db:"current_duration_days"`
	RemainingDays        int             `json:"remaining_days" db:"remaining_days"`
	AccumulatedInterest  float64         `json:"current_accumulated_interest" db:"current_accumulated_interest"`
	TotalEarnedInterest  float64         `json:"total_earned_interest" db:"total_earned_interest"`
	LastCreditDate       *time.Time      `json:"last_credit_date,omitempty" db:"last_credit_date"`
	Status               PortfolioStatus `json:"status" db:"status"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// DailyInterest is the amount one accrual run credits to the portfolio.
// A flat 30-day month divisor is used regardless of the calendar month;
// this mirrors how the plans are quoted to users and is deliberately not
// calendar-accurate.
func (p *Portfolio) DailyInterest() float64 {
	return p.PrincipalAmount * (p.CurrentMonthlyRate / 100) / 30
}

// RateChange is one row of the append-only rate audit trail. It is never
// read back to reconstruct portfolio state; the only read is fetching the
// latest row to seed the "old" values of the next change.
type RateChange struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PortfolioID uuid.UUID `json:"portfolio_id" db:"portfolio_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	OldRate     float64   `json:"old_rate" db:"old_rate"`
	NewRate     float64   `json:"new_rate" db:"new_rate"`
	OldDuration int       `json:"old_duration" db:"old_duration"`
	NewDuration int       `json:"new_duration" db:"new_duration"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// InterestEntry is one day's credited interest for one portfolio,
// append-only. (portfolio_id, accrual_date) is unique so a same-day
// re-run of the accrual job cannot double-credit.
type InterestEntry struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PortfolioID     uuid.UUID `json:"portfolio_id" db:"portfolio_id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	PrincipalAmount float64   `json:"principal_amount" db:"principal_amount"`
	MonthlyRate     float64   `json:"monthly_rate" db:"monthly_rate"`
	DailyInterest   float64   `json:"daily_interest" db:"daily_interest"`
	AccrualDate     time.Time `json:"date" db:"accrual_date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionRejected TransactionStatus = "rejected"
)

type WithdrawalType string

const (
	WithdrawPrincipal WithdrawalType = "principal"
	WithdrawInterest  WithdrawalType = "interest"
)

// Transaction is a user deposit or withdrawal request. Status moves
// exactly once from pending to approved or rejected; the portfolio is
// mutated only on the pending->approved transition.
type Transaction struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	UserID            uuid.UUID         `json:"user_id" db:"user_id"`
	WalletID          uuid.UUID         `json:"wallet_id" db:"wallet_id"`
	Type              TransactionType   `json:"type" db:"type"`
	Status            TransactionStatus `json:"status" db:"status"`
	Amount            float64           `json:"amount" db:"amount"`
	TransactionHash   string            `json:"transaction_hash,omitempty" db:"transaction_hash"`
	ScreenshotKey     string            `json:"-" db:"screenshot_key"`
	ScreenshotURL     string            `json:"screenshot_url,omitempty" db:"-"`
	WithdrawalType    WithdrawalType    `json:"withdrawal_type,omitempty" db:"withdrawal_type"`
	WithdrawalAddress string            `json:"withdrawal_address,omitempty" db:"withdrawal_address"`
	RejectReason      string            `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}
