package moderation

import (
	"context"
	"database/sql"
	"errors"

	"talkline/internal/rbac"
)

func isReportableRole(role string) bool { return rbac.IsReportable(role) }

// PostgresSubjects reads account roles from the accounts table.
type PostgresSubjects struct {
	db *sql.DB
}

func NewPostgresSubjects(db *sql.DB) *PostgresSubjects { return &PostgresSubjects{db: db} }

// Role returns the account's role or ErrNotFound.
func (p *PostgresSubjects) Role(ctx context.Context, accountID string) (string, error) {
	var role string
	err := p.db.QueryRowContext(ctx, `SELECT role FROM accounts WHERE id = $1`, accountID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

func (p *PostgresSubjects) IsReportable(ctx context.Context, accountID string) (bool, error) {
	role, err := p.Role(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isReportableRole(role), nil
}
