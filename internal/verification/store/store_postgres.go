package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
	"drivepass/pkg/platform/sentinel"
)

// PostgresStore persists cases in PostgreSQL. Assessment and Decision are
// jsonb columns hydrated into their typed structs on read; the state column
// carries the compare-and-set condition.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the case table. Applied by deployment migrations;
// exposed here so integration tests can bootstrap a database.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_cases (
	id            UUID PRIMARY KEY,
	subject_ref   TEXT        NOT NULL,
	document_refs TEXT[]      NOT NULL,
	assessment    JSONB,
	decision      JSONB,
	state         TEXT        NOT NULL,
	final_outcome TEXT        NOT NULL DEFAULT '',
	reviewer_ref  TEXT        NOT NULL DEFAULT '',
	review_note   TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	finalized_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS verification_cases_state_idx ON verification_cases (state);
`

func (s *PostgresStore) Create(ctx context.Context, kase *domain.VerificationCase) error {
	assessment, decision, err := marshalCaseJSON(kase)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO verification_cases
		 (id, subject_ref, document_refs, assessment, decision, state, final_outcome, reviewer_ref, review_note, created_at, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(kase.ID), kase.SubjectRef.String(), docRefStrings(kase.DocumentRefs),
		assessment, decision, string(kase.State), string(kase.FinalOutcome),
		kase.ReviewerRef.String(), kase.ReviewNote, kase.CreatedAt, nullableTime(kase.FinalizedAt),
	)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, subject_ref, document_refs, assessment, decision, state, final_outcome, reviewer_ref, review_note, created_at, finalized_at
		 FROM verification_cases WHERE id = $1`,
		uuid.UUID(caseID),
	)
	kase, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return kase, nil
}

func (s *PostgresStore) UpdateState(ctx context.Context, kase *domain.VerificationCase, expected domain.CaseState) error {
	assessment, decision, err := marshalCaseJSON(kase)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE verification_cases
		 SET assessment = $3, decision = $4, state = $5, final_outcome = $6,
		     reviewer_ref = $7, review_note = $8, finalized_at = $9
		 WHERE id = $1 AND state = $2`,
		uuid.UUID(kase.ID), string(expected),
		assessment, decision, string(kase.State), string(kase.FinalOutcome),
		kase.ReviewerRef.String(), kase.ReviewNote, nullableTime(kase.FinalizedAt),
	)
	if err != nil {
		return fmt.Errorf("update case state: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// Distinguish a lost compare-and-set from a missing case.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM verification_cases WHERE id = $1)`,
		uuid.UUID(kase.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("update case state: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrStaleState
}

func (s *PostgresStore) ListByState(ctx context.Context, state domain.CaseState) ([]*domain.VerificationCase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_ref, document_refs, assessment, decision, state, final_outcome, reviewer_ref, review_note, created_at, finalized_at
		 FROM verification_cases WHERE state = $1 ORDER BY created_at`,
		string(state),
	)
	if err != nil {
		return nil, fmt.Errorf("list cases by state: %w", err)
	}
	defer rows.Close()

	var out []*domain.VerificationCase
	for rows.Next() {
		kase, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, kase)
	}
	return out, rows.Err()
}

func scanCase(row pgx.Row) (*domain.VerificationCase, error) {
	var (
		kase         domain.VerificationCase
		caseID       uuid.UUID
		subjectRef   string
		docRefs      []string
		assessment   []byte
		decision     []byte
		state        string
		finalOutcome string
		reviewerRef  string
		finalizedAt  *time.Time
	)
	err := row.Scan(&caseID, &subjectRef, &docRefs, &assessment, &decision,
		&state, &finalOutcome, &reviewerRef, &kase.ReviewNote, &kase.CreatedAt, &finalizedAt)
	if err != nil {
		return nil, err
	}
	kase.ID = id.CaseID(caseID)
	kase.SubjectRef = id.SubjectRef(subjectRef)
	for _, ref := range docRefs {
		kase.DocumentRefs = append(kase.DocumentRefs, id.DocumentRef(ref))
	}
	kase.State = domain.CaseState(state)
	kase.FinalOutcome = domain.FinalOutcome(finalOutcome)
	kase.ReviewerRef = id.ReviewerRef(reviewerRef)
	if finalizedAt != nil {
		kase.FinalizedAt = *finalizedAt
	}
	if len(assessment) > 0 {
		kase.Assessment = &domain.Assessment{}
		if err := json.Unmarshal(assessment, kase.Assessment); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
	}
	if len(decision) > 0 {
		kase.Decision = &domain.Decision{}
		if err := json.Unmarshal(decision, kase.Decision); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
	}
	return &kase, nil
}

func marshalCaseJSON(kase *domain.VerificationCase) (assessment, decision []byte, err error) {
	if kase.Assessment != nil {
		if assessment, err = json.Marshal(kase.Assessment); err != nil {
			return nil, nil, fmt.Errorf("encode assessment: %w", err)
		}
	}
	if kase.Decision != nil {
		if decision, err = json.Marshal(kase.Decision); err != nil {
			return nil, nil, fmt.Errorf("encode decision: %w", err)
		}
	}
	return assessment, decision, nil
}

func docRefStrings(refs []id.DocumentRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return out
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
