package payout

import (
	"context"
	"database/sql"
	"errors"

	"talkline/pkg/utils"
)

// PostgresRepo stores entries in payout_ledger.
// It relies on UNIQUE (payee_id, idempotency_key).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const entryColumns = `id, payee_id, type, amount_minor, currency, session_id, idempotency_key, status, created_at`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	var sessionID sql.NullString
	if err := row.Scan(
		&e.ID,
		&e.PayeeID,
		&e.Type,
		&e.AmountMinor,
		&e.Currency,
		&sessionID,
		&e.IdempotencyKey,
		&e.Status,
		&e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.SessionID = sessionID.String
	return e, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, e Entry) (Entry, bool, error) {
	var out Entry
	var created bool
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO payout_ledger (` + entryColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (payee_id, idempotency_key) DO NOTHING
`
		res, err := tx.ExecContext(ctx, ins,
			e.ID,
			e.PayeeID,
			e.Type,
			e.AmountMinor,
			e.Currency,
			sql.NullString{String: e.SessionID, Valid: e.SessionID != ""},
			e.IdempotencyKey,
			e.Status,
			e.CreatedAt,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 1 {
			out, created = e, true
			return nil
		}

		// Idempotent retry: return the entry already recorded under this key.
		const sel = `SELECT ` + entryColumns + ` FROM payout_ledger WHERE payee_id = $1 AND idempotency_key = $2`
		existing, err := scanEntry(tx.QueryRowContext(ctx, sel, e.PayeeID, e.IdempotencyKey))
		if err != nil {
			return err
		}
		out = existing
		return nil
	})
	return out, created, err
}

func (r *PostgresRepo) ListByPayee(ctx context.Context, payeeID string) ([]Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM payout_ledger WHERE payee_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, payeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
