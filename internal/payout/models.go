package payout

import "time"

// Entry is an immutable payee payout ledger row.
// Each settled session produces at most one entry, keyed by its settlement id.
type Entry struct {
	ID      string `json:"id" db:"id"`
	PayeeID string `json:"payee_id" db:"payee_id"`

	Type EntryType `json:"type" db:"type"`

	// AmountMinor is the signed amount in minor units (e.g., cents).
	// Earnings are positive, transfers out are negative.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// SessionID links the entry to the call that earned it.
	SessionID string `json:"session_id,omitempty" db:"session_id"`

	// IdempotencyKey is the settlement id for earnings; retries reuse it.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	Status EntryStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryType string

const (
	EntryTypeEarning  EntryType = "earning"
	EntryTypeTransfer EntryType = "transfer"
)

// EntryStatus follows the external transfer; this module only writes pending.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// Balance is a payee's running total per currency.
type Balance struct {
	PayeeID      string `json:"payee_id"`
	Currency     string `json:"currency"`
	EarnedMinor  int64  `json:"earned_minor"`
	PendingMinor int64  `json:"pending_minor"`
	BalanceMinor int64  `json:"balance_minor"`
}
