package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"talkline/internal/calls"
	"talkline/pkg/utils"
)

// PostgresPackages reads the packages table written by the billing collaborator.
type PostgresPackages struct {
	db *sql.DB
}

func NewPostgresPackages(db *sql.DB) *PostgresPackages { return &PostgresPackages{db: db} }

func (r *PostgresPackages) GetPackage(ctx context.Context, id string) (PackageRecord, error) {
	const q = `
SELECT id, payer_id, minutes_purchased, unit_price_minor, currency, app_fee_bps
FROM packages
WHERE id = $1
`
	var (
		p   PackageRecord
		fee sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID,
		&p.PayerID,
		&p.MinutesPurchased,
		&p.UnitPriceMinor,
		&p.Currency,
		&fee,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PackageRecord{}, ErrNotFound
		}
		return PackageRecord{}, err
	}
	if fee.Valid {
		p.AppFeeBPS = &fee.Int64
	}
	return p, nil
}

// PostgresStore keeps settlements in usage_settlements with UNIQUE (session_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const settlementColumns = `
id, session_id, package_id, payer_id, payee_id, final_minutes_hundredths, minutes_purchased,
prorated_minor, app_fee_minor, payee_amount_minor, currency, status, forward_attempts,
last_error, forwarded_at, created_at`

func scanSettlement(row interface{ Scan(...any) error }) (Settlement, error) {
	var (
		s         Settlement
		final     int64
		lastError sql.NullString
		forwarded sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.PackageID,
		&s.PayerID,
		&s.PayeeID,
		&final,
		&s.MinutesPurchased,
		&s.ProratedMinor,
		&s.AppFeeMinor,
		&s.PayeeAmountMinor,
		&s.Currency,
		&s.Status,
		&s.ForwardAttempts,
		&lastError,
		&forwarded,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settlement{}, ErrNotFound
		}
		return Settlement{}, err
	}
	s.FinalMinutes = calls.Minutes(final)
	s.LastError = lastError.String
	if forwarded.Valid {
		t := forwarded.Time.UTC()
		s.ForwardedAt = &t
	}
	return s, nil
}

func (r *PostgresStore) Create(ctx context.Context, s Settlement) error {
	const q = `
INSERT INTO usage_settlements (` + settlementColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID,
		s.SessionID,
		s.PackageID,
		s.PayerID,
		s.PayeeID,
		s.FinalMinutes.Hundredths(),
		s.MinutesPurchased,
		s.ProratedMinor,
		s.AppFeeMinor,
		s.PayeeAmountMinor,
		s.Currency,
		s.Status,
		s.ForwardAttempts,
		sql.NullString{String: s.LastError, Valid: s.LastError != ""},
		s.ForwardedAt,
		s.CreatedAt,
	)
	if utils.IsUniqueViolation(err) {
		return ErrAlreadySettled
	}
	return err
}

func (r *PostgresStore) GetBySession(ctx context.Context, sessionID string) (Settlement, error) {
	q := `SELECT ` + settlementColumns + ` FROM usage_settlements WHERE session_id = $1`
	return scanSettlement(r.db.QueryRowContext(ctx, q, sessionID))
}

func (r *PostgresStore) MarkForwarded(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE usage_settlements
SET status = 'forwarded', forwarded_at = $2, forward_attempts = forward_attempts + 1, last_error = NULL
WHERE id = $1
`
	return execOne(ctx, r.db, q, id, at)
}

func (r *PostgresStore) RecordForwardFailure(ctx context.Context, id, msg string) error {
	const q = `
UPDATE usage_settlements
SET forward_attempts = forward_attempts + 1, last_error = $2
WHERE id = $1 AND status = 'pending_forward'
`
	return execOne(ctx, r.db, q, id, msg)
}

func (r *PostgresStore) ListPending(ctx context.Context, limit int) ([]Settlement, error) {
	q := `SELECT ` + settlementColumns + ` FROM usage_settlements
WHERE status = 'pending_forward'
ORDER BY created_at
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Settlement, 0)
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
