package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Every event names at least one target (account, session, settlement or suspension).
// - Audit is best-effort; do not block critical flows on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorAccountID is the account causing the event; empty for engine-initiated events.
	ActorAccountID string `json:"actor_account_id,omitempty" db:"actor_account_id"`
	ActorRole      string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifiers (optional, depending on the event type).
	SubjectAccountID string `json:"subject_account_id,omitempty" db:"subject_account_id"`
	SessionID        string `json:"session_id,omitempty" db:"session_id"`
	SettlementID     string `json:"settlement_id,omitempty" db:"settlement_id"`
	SuspensionID     string `json:"suspension_id,omitempty" db:"suspension_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (e Event) hasTarget() bool {
	return e.SubjectAccountID != "" || e.SessionID != "" || e.SettlementID != "" || e.SuspensionID != ""
}

type EventType string

const (
	EventTypeReportSubmitted    EventType = "report_submitted"
	EventTypeSuspensionCreated  EventType = "suspension_created"
	EventTypeSuspensionExpired  EventType = "suspension_expired"
	EventTypeRevocationFailed   EventType = "credential_revocation_failed"
	EventTypeSessionSettled     EventType = "session_settled"
	EventTypePayoutForwardError EventType = "payout_forward_failed"
)
