package domain

import (
	"time"

	id "drivepass/pkg/domain"
)

// CaseState tracks a verification case through its lifecycle. Transitions are
// strictly forward; no state is revisited.
type CaseState string

const (
	CaseSubmitted          CaseState = "submitted"
	CaseAnalyzed           CaseState = "analyzed"
	CaseAutoResolved       CaseState = "auto_resolved"
	CasePendingHumanReview CaseState = "pending_human_review"
	CaseFinalized          CaseState = "finalized"
)

// stateRank orders states for forward-only transition checks.
var stateRank = map[CaseState]int{
	CaseSubmitted:          0,
	CaseAnalyzed:           1,
	CaseAutoResolved:       2,
	CasePendingHumanReview: 3,
	CaseFinalized:          4,
}

// ValidCaseState reports whether s is a known lifecycle state.
func ValidCaseState(s CaseState) bool {
	_, ok := stateRank[s]
	return ok
}

// CanTransition reports whether moving from -> to respects the forward-only
// lifecycle. Both states must be known.
func CanTransition(from, to CaseState) bool {
	fr, ok := stateRank[from]
	if !ok {
		return false
	}
	tr, ok := stateRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// FinalOutcome is the terminal result of a finalized case.
type FinalOutcome string

const (
	OutcomeApproved FinalOutcome = "approved"
	OutcomeRejected FinalOutcome = "rejected"
)

// ValidFinalOutcome reports whether o is a known terminal outcome.
func ValidFinalOutcome(o FinalOutcome) bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

// VerificationCase is one identity-verification attempt. Assessment and
// Decision are first-class typed fields rather than serialized blobs so call
// sites never re-parse them.
//
// Invariants:
//   - FinalOutcome is set if and only if State == CaseFinalized.
//   - Decision is set if and only if State is Analyzed or later.
//   - DocumentRefs are immutable after submission.
//   - ReviewerRef is empty for auto-resolved cases.
type VerificationCase struct {
	ID           id.CaseID
	SubjectRef   id.SubjectRef
	DocumentRefs []id.DocumentRef
	Assessment   *Assessment
	Decision     *Decision
	State        CaseState
	FinalOutcome FinalOutcome
	ReviewerRef  id.ReviewerRef
	ReviewNote   string
	CreatedAt    time.Time
	FinalizedAt  time.Time
}

// AutoResolvedCase reports whether the case was finalized by the workflow
// itself rather than a human reviewer.
func (c *VerificationCase) AutoResolvedCase() bool {
	return c.State == CaseFinalized && c.ReviewerRef == ""
}
