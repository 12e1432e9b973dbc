// Package audit captures the append-only trail of workflow transitions.
// Only the workflow controller and the override gateway emit entries; entries
// are never mutated or deleted.
package audit

import (
	"context"
	"time"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

// Store persists audit entries. Append-only; no delete or update surface.
type Store interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]domain.AuditEntry, error)
}

// Publisher writes entries to the durable store and, when a mirror inbox is
// attached, fans them out best-effort (the worker drains the inbox). The
// durable append is the source of truth; a full inbox never blocks it.
type Publisher struct {
	store  Store
	mirror chan<- domain.AuditEntry
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// WithMirror attaches a mirror inbox, typically drained by a Worker into a
// Kafka sink.
func (p *Publisher) WithMirror(inbox chan<- domain.AuditEntry) *Publisher {
	p.mirror = inbox
	return p
}

func (p *Publisher) Emit(ctx context.Context, entry domain.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}
	if p.mirror != nil {
		select {
		case p.mirror <- entry:
		default:
			// Mirror backpressure must not fail the durable append.
		}
	}
	return nil
}

func (p *Publisher) ListByCase(ctx context.Context, caseID id.CaseID) ([]domain.AuditEntry, error) {
	return p.store.ListByCase(ctx, caseID)
}
