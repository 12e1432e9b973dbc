// Package service implements the human override gateway: an authorized
// reviewer approving or rejecting an escalated case. Single-resolution
// semantics come from the store's compare-and-set, never from locking.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"drivepass/internal/dispatch"
	"drivepass/internal/domain"
	"drivepass/internal/verification/metrics"
	"drivepass/internal/verification/store"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
	"drivepass/pkg/platform/sentinel"
	"drivepass/pkg/requestcontext"
)

// Service finalizes escalated cases on behalf of human reviewers.
type Service struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(caseStore store.Store, dispatcher *dispatch.Dispatcher, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if caseStore == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "case store is required")
	}
	if dispatcher == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "dispatcher is required")
	}
	return &Service{store: caseStore, dispatcher: dispatcher, logger: logger, metrics: m}, nil
}

// Resolve finalizes a PendingHumanReview case with the reviewer's outcome.
//
// The note is mandatory when overriding an escalation toward Approved
// (regulatory traceability for clearing a flagged case) and optional when
// confirming a rejection. A concurrent resolution surfaces as
// CodeAlreadyResolved naming the winning reviewer; no other mutation path may
// change FinalOutcome once set.
func (s *Service) Resolve(ctx context.Context, caseID id.CaseID, reviewerRef id.ReviewerRef, outcome domain.FinalOutcome, note string) (*domain.VerificationCase, error) {
	if reviewerRef == "" || reviewerRef == id.SystemActor {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reviewer_ref is required")
	}
	if !domain.ValidFinalOutcome(outcome) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown outcome %q", outcome)
	}
	if outcome == domain.OutcomeApproved && note == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a note is required when approving an escalated case")
	}

	kase, err := s.store.Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}

	switch kase.State {
	case domain.CasePendingHumanReview:
		// proceed
	case domain.CaseFinalized:
		return nil, s.alreadyResolved(kase)
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "case is %s, not awaiting review", kase.State)
	}

	kase.State = domain.CaseFinalized
	kase.FinalOutcome = outcome
	kase.ReviewerRef = reviewerRef
	kase.ReviewNote = note
	kase.FinalizedAt = requestcontext.Now(ctx)

	if err := s.store.UpdateState(ctx, kase, domain.CasePendingHumanReview); err != nil {
		if errors.Is(err, sentinel.ErrStaleState) {
			s.metrics.IncResolveConflict()
			// Re-read to name the winner for the "already handled by X" message.
			if current, getErr := s.store.Get(ctx, caseID); getErr == nil && current.State == domain.CaseFinalized {
				return nil, s.alreadyResolved(current)
			}
			return nil, dErrors.New(dErrors.CodeAlreadyResolved, "case was already resolved")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize case")
	}

	if err := s.dispatcher.CaseReviewed(ctx, kase); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed for review",
			"case_id", caseID.String(), "error", err)
	}

	s.logger.InfoContext(ctx, "case finalized by reviewer",
		"case_id", caseID.String(),
		"reviewer_ref", reviewerRef.String(),
		"outcome", string(outcome),
	)
	return kase, nil
}

func (s *Service) alreadyResolved(kase *domain.VerificationCase) error {
	by := kase.ReviewerRef.String()
	if by == "" {
		by = id.SystemActor.String()
	}
	return dErrors.New(dErrors.CodeAlreadyResolved, fmt.Sprintf("already handled by %s", by))
}
