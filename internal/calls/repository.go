package calls

import (
	"context"
	"database/sql"
	"errors"

	"talkline/pkg/utils"
)

// PostgresRepo stores sessions in the call_sessions table (see store.Migrate).
// Per-session serialization is a row lock taken with SELECT ... FOR UPDATE.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const sessionColumns = `
id, initiator_id, responder_id, call_kind, status, package_id, minutes_purchased,
minutes_used_hundredths, warning_sent, started_at, ended_at, end_reason, channel_ref,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s         Session
		used      int64
		started   sql.NullTime
		ended     sql.NullTime
		endReason sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.InitiatorID,
		&s.ResponderID,
		&s.Kind,
		&s.Status,
		&s.PackageID,
		&s.MinutesPurchased,
		&used,
		&s.WarningSent,
		&started,
		&ended,
		&endReason,
		&s.ChannelRef,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.MinutesUsed = Minutes(used)
	if started.Valid {
		t := started.Time.UTC()
		s.StartedAt = &t
	}
	if ended.Valid {
		t := ended.Time.UTC()
		s.EndedAt = &t
	}
	s.EndReason = endReason.String
	return s, nil
}

func (r *PostgresRepo) Create(ctx context.Context, s Session) error {
	const q = `
INSERT INTO call_sessions (` + sessionColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID,
		s.InitiatorID,
		s.ResponderID,
		s.Kind,
		s.Status,
		s.PackageID,
		s.MinutesPurchased,
		s.MinutesUsed.Hundredths(),
		s.WarningSent,
		s.StartedAt,
		s.EndedAt,
		nullIfEmpty(s.EndReason),
		s.ChannelRef,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	var out Session
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the session row to serialize concurrent transitions per session.
		q := `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1 FOR UPDATE`
		s, err := scanSession(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}

		const upd = `
UPDATE call_sessions
SET status = $2,
    minutes_used_hundredths = $3,
    warning_sent = $4,
    started_at = $5,
    ended_at = $6,
    end_reason = $7,
    updated_at = $8
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			s.ID,
			s.Status,
			s.MinutesUsed.Hundredths(),
			s.WarningSent,
			s.StartedAt,
			s.EndedAt,
			nullIfEmpty(s.EndReason),
			s.UpdatedAt,
		); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

func (r *PostgresRepo) ListOpen(ctx context.Context) ([]Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM call_sessions
WHERE status IN ('connecting', 'active')
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullIfEmpty(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
