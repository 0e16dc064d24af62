// Package store owns the Postgres schema shared by the repositories in internal/.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table and index the Postgres repositories expect.
// Statements are idempotent; it is safe to run on every deploy.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL CHECK (role IN ('talker','listener','moderator','super_admin','transport')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS packages (
			id TEXT PRIMARY KEY,
			payer_id TEXT NOT NULL REFERENCES accounts(id),
			minutes_purchased BIGINT NOT NULL CHECK (minutes_purchased > 0),
			unit_price_minor BIGINT NOT NULL CHECK (unit_price_minor >= 0),
			currency TEXT NOT NULL,
			app_fee_bps BIGINT CHECK (app_fee_bps BETWEEN 0 AND 10000),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS call_sessions (
			id TEXT PRIMARY KEY,
			initiator_id TEXT NOT NULL,
			responder_id TEXT NOT NULL,
			call_kind TEXT NOT NULL CHECK (call_kind IN ('audio','video')),
			status TEXT NOT NULL CHECK (status IN ('connecting','active','ended','timeout','failed')),
			package_id TEXT NOT NULL,
			minutes_purchased BIGINT NOT NULL CHECK (minutes_purchased > 0),
			minutes_used_hundredths BIGINT NOT NULL DEFAULT 0 CHECK (minutes_used_hundredths >= 0),
			warning_sent BOOLEAN NOT NULL DEFAULT false,
			started_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			end_reason TEXT,
			channel_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CHECK (minutes_used_hundredths <= minutes_purchased * 100)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_sessions_open ON call_sessions(created_at) WHERE status IN ('connecting','active');`,
		`CREATE INDEX IF NOT EXISTS idx_call_sessions_responder ON call_sessions(responder_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS usage_settlements (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE REFERENCES call_sessions(id),
			package_id TEXT NOT NULL,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			final_minutes_hundredths BIGINT NOT NULL,
			minutes_purchased BIGINT NOT NULL,
			prorated_minor BIGINT NOT NULL,
			app_fee_minor BIGINT NOT NULL,
			payee_amount_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending_forward','forwarded')),
			forward_attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			forwarded_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			CHECK (app_fee_minor + payee_amount_minor = prorated_minor)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_usage_settlements_pending ON usage_settlements(created_at) WHERE status = 'pending_forward';`,
		`CREATE TABLE IF NOT EXISTS payout_ledger (
			id TEXT PRIMARY KEY,
			payee_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('earning','transfer')),
			amount_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			session_id TEXT,
			idempotency_key TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (payee_id, idempotency_key)
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			subject_account_id TEXT NOT NULL,
			reporter_account_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (subject_account_id, reporter_account_id, reason)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_subject_created ON reports(subject_account_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS suspensions (
			id TEXT PRIMARY KEY,
			subject_account_id TEXT NOT NULL,
			triggered_at TIMESTAMPTZ NOT NULL,
			resume_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL,
			duration_days INT NOT NULL,
			report_count INT NOT NULL,
			deactivated_at TIMESTAMPTZ,
			CHECK (resume_at > triggered_at)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_suspensions_one_active ON suspensions(subject_account_id) WHERE is_active;`,
		`CREATE INDEX IF NOT EXISTS idx_suspensions_subject_triggered ON suspensions(subject_account_id, triggered_at DESC);`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			actor_account_id TEXT,
			actor_role TEXT,
			subject_account_id TEXT,
			session_id TEXT,
			settlement_id TEXT,
			suspension_id TEXT,
			message TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_subject ON audit_events(subject_account_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
