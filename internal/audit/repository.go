package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends to audit_events. The table has no UPDATE/DELETE paths in code.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_account_id, actor_role, subject_account_id, session_id,
  settlement_id, suspension_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10, '')::jsonb,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorAccountID,
		e.ActorRole,
		e.SubjectAccountID,
		e.SessionID,
		e.SettlementID,
		e.SuspensionID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
