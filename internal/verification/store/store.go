// Package store persists verification cases. Every backend provides the one
// guarantee the workflow relies on: a state update is conditioned on the
// previously-read state and fails with sentinel.ErrStaleState if another
// actor changed it first. That compare-and-set, not locking, is what keeps
// two concurrent reviewers from both finalizing the same case.
package store

import (
	"context"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

type Store interface {
	// Create inserts a new case; sentinel.ErrConflict if the ID exists.
	Create(ctx context.Context, kase *domain.VerificationCase) error

	// Get returns the case or sentinel.ErrNotFound.
	Get(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error)

	// UpdateState writes the full case record, conditioned on the persisted
	// state still matching expected. Returns sentinel.ErrStaleState when the
	// condition fails and sentinel.ErrNotFound when the case is missing.
	UpdateState(ctx context.Context, kase *domain.VerificationCase, expected domain.CaseState) error

	// ListByState returns all cases currently in the given state.
	ListByState(ctx context.Context, state domain.CaseState) ([]*domain.VerificationCase, error)
}
