package audit

import (
	"context"
	"sync"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

// InMemoryStore keeps the audit trail in memory. Intentionally favors
// clarity over performance; production deployments use the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID id.CaseID) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range s.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}
