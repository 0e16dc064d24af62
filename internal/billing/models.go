package billing

import (
	"time"

	"talkline/internal/calls"
)

// PackageRecord is a paid minutes allotment owned by the external billing system.
// The engine reads it and never mutates it.
type PackageRecord struct {
	ID               string `json:"id" db:"id"`
	PayerID          string `json:"payer_id" db:"payer_id"`
	MinutesPurchased int64  `json:"minutes_purchased" db:"minutes_purchased"`

	// UnitPriceMinor is the price of the whole allotment in minor units.
	UnitPriceMinor int64  `json:"unit_price_minor" db:"unit_price_minor"`
	Currency       string `json:"currency" db:"currency"`

	// AppFeeBPS is the platform share in basis points (1000 = 10%).
	// Nil means the package carries no explicit fee; see FeeBPS.
	AppFeeBPS *int64 `json:"app_fee_bps,omitempty" db:"app_fee_bps"`
}

// DefaultAppFeeBPS is used when a package carries no explicit fee.
const DefaultAppFeeBPS = 1000

// FeeBPS is the fee that applies to the package: the explicit one, else
// DefaultAppFeeBPS. An explicit zero means no fee.
func (p PackageRecord) FeeBPS() int64 {
	if p.AppFeeBPS == nil {
		return DefaultAppFeeBPS
	}
	return *p.AppFeeBPS
}

// ExplicitFee returns a pointer for PackageRecord.AppFeeBPS.
func ExplicitFee(bps int64) *int64 { return &bps }

// Settlement is the one-shot billing split of a terminated session.
//
// Invariants:
// - At most one settlement per session.
// - AppFeeMinor + PayeeAmountMinor == ProratedMinor.
// - Amounts never change after creation; only forwarding bookkeeping does.
type Settlement struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	PackageID string `json:"package_id" db:"package_id"`
	PayerID   string `json:"payer_id" db:"payer_id"`
	PayeeID   string `json:"payee_id" db:"payee_id"`

	FinalMinutes     calls.Minutes `json:"final_minutes" db:"final_minutes_hundredths"`
	MinutesPurchased int64         `json:"minutes_purchased" db:"minutes_purchased"`

	ProratedMinor    int64  `json:"prorated_minor" db:"prorated_minor"`
	AppFeeMinor      int64  `json:"app_fee_minor" db:"app_fee_minor"`
	PayeeAmountMinor int64  `json:"payee_amount_minor" db:"payee_amount_minor"`
	Currency         string `json:"currency" db:"currency"`

	Status          SettlementStatus `json:"status" db:"status"`
	ForwardAttempts int              `json:"forward_attempts" db:"forward_attempts"`
	LastError       string           `json:"last_error,omitempty" db:"last_error"`
	ForwardedAt     *time.Time       `json:"forwarded_at,omitempty" db:"forwarded_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SettlementStatus string

const (
	// StatusPendingForward means the payout sink has not acknowledged the settlement yet.
	StatusPendingForward SettlementStatus = "pending_forward"
	StatusForwarded      SettlementStatus = "forwarded"
)
