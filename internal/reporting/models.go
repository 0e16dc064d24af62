package reporting

import (
	"time"

	"talkline/internal/calls"
)

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// Side selects which participant role an account played in a session.
type Side string

const (
	SideAny       Side = ""
	SideInitiator Side = "initiator"
	SideResponder Side = "responder"
)

func (s Side) valid() bool { return s == SideAny || s == SideInitiator || s == SideResponder }

// SessionsSummaryRequest asks for aggregated session usage of one account.
type SessionsSummaryRequest struct {
	AccountID string    `json:"account_id"`
	Side      Side      `json:"side,omitempty"`
	Range     TimeRange `json:"range"`
}

type SessionsSummary struct {
	AccountID string `json:"account_id"`
	Side      Side   `json:"side,omitempty"`

	TotalSessions int `json:"total_sessions"`
	OpenSessions  int `json:"open_sessions"`
	EndedSessions int `json:"ended_sessions"`
	TimedOut      int `json:"timed_out_sessions"`
	NeverAnswered int `json:"failed_sessions"`

	MinutesUsed      calls.Minutes `json:"minutes_used"`
	MinutesPurchased int64         `json:"minutes_purchased"`
	AverageMinutes   calls.Minutes `json:"average_minutes"`

	// WarningsSent counts sessions that crossed the low-minutes band.
	WarningsSent int `json:"warnings_sent"`
}

// EarningsSummaryRequest asks for a payee's settled earnings.
// Currency is optional; when empty the first settlement's currency is used.
type EarningsSummaryRequest struct {
	PayeeID  string    `json:"payee_id"`
	Range    TimeRange `json:"range"`
	Currency string    `json:"currency,omitempty"`
}

type EarningsSummary struct {
	PayeeID  string `json:"payee_id"`
	Currency string `json:"currency"`

	Settlements     int `json:"settlements"`
	PendingForwards int `json:"pending_forwards"`

	ProratedMinor int64         `json:"prorated_minor"`
	AppFeeMinor   int64         `json:"app_fee_minor"`
	PayeeMinor    int64         `json:"payee_minor"`
	BilledMinutes calls.Minutes `json:"billed_minutes"`
}
