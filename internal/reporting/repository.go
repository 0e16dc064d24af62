package reporting

import (
	"context"
	"database/sql"
	"time"

	"talkline/internal/billing"
	"talkline/internal/calls"
)

// PostgresRepo reads aggregates straight from call_sessions and usage_settlements.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListSessions(ctx context.Context, accountID string, side Side, from, to time.Time) ([]calls.Session, error) {
	const q = `
SELECT id, initiator_id, responder_id, call_kind, status, package_id, minutes_purchased,
       minutes_used_hundredths, warning_sent, created_at
FROM call_sessions
WHERE created_at >= $2 AND created_at < $3
  AND (
    ($4 = 'initiator' AND initiator_id = $1) OR
    ($4 = 'responder' AND responder_id = $1) OR
    ($4 = '' AND (initiator_id = $1 OR responder_id = $1))
  )
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, accountID, from, to, string(side))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]calls.Session, 0)
	for rows.Next() {
		var (
			s    calls.Session
			used int64
		)
		if err := rows.Scan(
			&s.ID,
			&s.InitiatorID,
			&s.ResponderID,
			&s.Kind,
			&s.Status,
			&s.PackageID,
			&s.MinutesPurchased,
			&used,
			&s.WarningSent,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.MinutesUsed = calls.Minutes(used)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListSettlements(ctx context.Context, payeeID string, from, to time.Time) ([]billing.Settlement, error) {
	const q = `
SELECT id, session_id, payee_id, final_minutes_hundredths, prorated_minor, app_fee_minor,
       payee_amount_minor, currency, status, created_at
FROM usage_settlements
WHERE payee_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, payeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]billing.Settlement, 0)
	for rows.Next() {
		var (
			st    billing.Settlement
			final int64
		)
		if err := rows.Scan(
			&st.ID,
			&st.SessionID,
			&st.PayeeID,
			&final,
			&st.ProratedMinor,
			&st.AppFeeMinor,
			&st.PayeeAmountMinor,
			&st.Currency,
			&st.Status,
			&st.CreatedAt,
		); err != nil {
			return nil, err
		}
		st.FinalMinutes = calls.Minutes(final)
		out = append(out, st)
	}
	return out, rows.Err()
}
