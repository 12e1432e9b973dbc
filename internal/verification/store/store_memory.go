package store

import (
	"context"
	"sync"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
	"drivepass/pkg/platform/sentinel"
)

// InMemoryStore keeps cases in a map guarded by a mutex. It intentionally
// favors clarity over performance and is the default for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*domain.VerificationCase
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cases: make(map[id.CaseID]*domain.VerificationCase)}
}

func (s *InMemoryStore) Create(_ context.Context, kase *domain.VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[kase.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[kase.ID] = cloneCase(kase)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, caseID id.CaseID) (*domain.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kase, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCase(kase), nil
}

func (s *InMemoryStore) UpdateState(_ context.Context, kase *domain.VerificationCase, expected domain.CaseState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[kase.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.State != expected {
		return sentinel.ErrStaleState
	}
	s.cases[kase.ID] = cloneCase(kase)
	return nil
}

func (s *InMemoryStore) ListByState(_ context.Context, state domain.CaseState) ([]*domain.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.VerificationCase
	for _, kase := range s.cases {
		if kase.State == state {
			out = append(out, cloneCase(kase))
		}
	}
	return out, nil
}

// cloneCase deep-copies a case so callers never alias stored records.
func cloneCase(kase *domain.VerificationCase) *domain.VerificationCase {
	out := *kase
	out.DocumentRefs = append([]id.DocumentRef(nil), kase.DocumentRefs...)
	if kase.Assessment != nil {
		assessment := *kase.Assessment
		assessment.TamperingIndicators = append([]string(nil), kase.Assessment.TamperingIndicators...)
		assessment.Flags = append([]string(nil), kase.Assessment.Flags...)
		out.Assessment = &assessment
	}
	if kase.Decision != nil {
		decision := *kase.Decision
		decision.Reasons = append([]string(nil), kase.Decision.Reasons...)
		out.Decision = &decision
	}
	return &out
}
