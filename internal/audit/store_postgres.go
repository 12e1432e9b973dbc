package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

// PostgresStore persists audit entries in PostgreSQL. The table is insert-only;
// no update or delete statements exist on purpose.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the audit trail table. Applied by deployment
// migrations; exposed here so integration tests can bootstrap a database.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id         UUID PRIMARY KEY,
	case_id    UUID        NOT NULL,
	actor_ref  TEXT        NOT NULL,
	action     TEXT        NOT NULL,
	detail     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_entries_case_idx ON audit_entries (case_id, created_at);
`

func (s *PostgresStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_entries (id, case_id, actor_ref, action, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), uuid.UUID(entry.CaseID), entry.ActorRef.String(), entry.Action, entry.DetailText, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]domain.AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT case_id, actor_ref, action, detail, created_at
		 FROM audit_entries WHERE case_id = $1 ORDER BY created_at`,
		uuid.UUID(caseID),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			caseID uuid.UUID
			actor  string
		)
		if err := rows.Scan(&caseID, &actor, &entry.Action, &entry.DetailText, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.CaseID = id.CaseID(caseID)
		entry.ActorRef = id.ReviewerRef(actor)
		out = append(out, entry)
	}
	return out, rows.Err()
}
