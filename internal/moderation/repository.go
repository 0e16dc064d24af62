package moderation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"talkline/pkg/utils"
)

// PostgresStore keeps reports and suspensions in Postgres.
//
// Assumed constraints (see store.Migrate):
// - UNIQUE (subject_account_id, reporter_account_id, reason) on reports
// - partial UNIQUE (subject_account_id) WHERE is_active on suspensions
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) InsertReport(ctx context.Context, r Report) (int, error) {
	var count int
	err := utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO reports (id, subject_account_id, reporter_account_id, reason, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
		if _, err := tx.ExecContext(ctx, ins,
			r.ID,
			r.SubjectID,
			r.ReporterID,
			r.Reason,
			sql.NullString{String: r.Description, Valid: r.Description != ""},
			r.CreatedAt,
		); err != nil {
			if utils.IsUniqueViolation(err) {
				return ErrDuplicateReport
			}
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT count(*) FROM reports WHERE subject_account_id = $1`, r.SubjectID).Scan(&count)
	})
	return count, err
}

func (p *PostgresStore) CountReports(ctx context.Context, subjectID string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM reports WHERE subject_account_id = $1`, subjectID).Scan(&n)
	return n, err
}

const suspensionColumns = `id, subject_account_id, triggered_at, resume_at, is_active, duration_days, report_count, deactivated_at`

func scanSuspension(row interface{ Scan(...any) error }) (Suspension, error) {
	var s Suspension
	var deactivated sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&s.TriggeredAt,
		&s.ResumeAt,
		&s.IsActive,
		&s.DurationDays,
		&s.ReportCount,
		&deactivated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Suspension{}, ErrNotFound
		}
		return Suspension{}, err
	}
	s.TriggeredAt = s.TriggeredAt.UTC()
	s.ResumeAt = s.ResumeAt.UTC()
	if deactivated.Valid {
		t := deactivated.Time.UTC()
		s.DeactivatedAt = &t
	}
	return s, nil
}

func (p *PostgresStore) Escalate(ctx context.Context, candidate Suspension, threshold int, now time.Time) (Suspension, bool, error) {
	var out Suspension
	var created bool
	err := utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := utils.AdvisoryXactLock(ctx, tx, "escalate:"+candidate.SubjectID); err != nil {
			return err
		}

		since := time.Time{}
		latest, err := scanSuspension(tx.QueryRowContext(ctx,
			`SELECT `+suspensionColumns+` FROM suspensions WHERE subject_account_id = $1 ORDER BY triggered_at DESC LIMIT 1`,
			candidate.SubjectID,
		))
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			if latest.IsActive {
				if !latest.Expired(now) {
					out = latest
					return nil
				}
				if _, err := tx.ExecContext(ctx,
					`UPDATE suspensions SET is_active = false, deactivated_at = $2 WHERE id = $1 AND is_active`,
					latest.ID, now,
				); err != nil {
					return err
				}
			}
			since = latest.TriggeredAt
		}

		var count int
		const countQ = `
SELECT count(*) FROM reports
WHERE subject_account_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
`
		sinceArg := sql.NullTime{Time: since, Valid: !since.IsZero()}
		if err := tx.QueryRowContext(ctx, countQ, candidate.SubjectID, sinceArg).Scan(&count); err != nil {
			return err
		}
		if count < threshold {
			return nil
		}

		s := candidate
		s.ReportCount = count
		const ins = `
INSERT INTO suspensions (` + suspensionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULL)
`
		if _, err := tx.ExecContext(ctx, ins,
			s.ID,
			s.SubjectID,
			s.TriggeredAt,
			s.ResumeAt,
			s.IsActive,
			s.DurationDays,
			s.ReportCount,
		); err != nil {
			if utils.IsUniqueViolation(err) {
				return ErrEscalationRaceLost
			}
			return err
		}
		out, created = s, true
		return nil
	})
	if err != nil {
		return Suspension{}, false, err
	}
	return out, created, nil
}

func (p *PostgresStore) Latest(ctx context.Context, subjectID string) (Suspension, error) {
	q := `SELECT ` + suspensionColumns + ` FROM suspensions WHERE subject_account_id = $1 ORDER BY triggered_at DESC LIMIT 1`
	return scanSuspension(p.db.QueryRowContext(ctx, q, subjectID))
}

func (p *PostgresStore) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE suspensions SET is_active = false, deactivated_at = $2 WHERE id = $1 AND is_active`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Suspension, error) {
	q := `SELECT ` + suspensionColumns + ` FROM suspensions
WHERE is_active AND resume_at <= $1
ORDER BY resume_at
LIMIT $2`
	rows, err := p.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Suspension, 0)
	for rows.Next() {
		s, err := scanSuspension(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
