package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCaseState(t *testing.T) {
	for _, state := range []CaseState{CaseSubmitted, CaseAnalyzed, CaseAutoResolved, CasePendingHumanReview, CaseFinalized} {
		assert.True(t, ValidCaseState(state), "state %s", state)
	}
	assert.False(t, ValidCaseState("archived"))
	assert.False(t, ValidCaseState(""))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from CaseState
		to   CaseState
		want bool
	}{
		{"submitted to analyzed", CaseSubmitted, CaseAnalyzed, true},
		{"submitted to pending review", CaseSubmitted, CasePendingHumanReview, true},
		{"analyzed to finalized", CaseAnalyzed, CaseFinalized, true},
		{"pending review to finalized", CasePendingHumanReview, CaseFinalized, true},
		{"no self transition", CaseAnalyzed, CaseAnalyzed, false},
		{"no going back", CaseFinalized, CaseSubmitted, false},
		{"unknown from", CaseState("archived"), CaseFinalized, false},
		{"unknown to", CaseSubmitted, CaseState("archived"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidFinalOutcome(t *testing.T) {
	assert.True(t, ValidFinalOutcome(OutcomeApproved))
	assert.True(t, ValidFinalOutcome(OutcomeRejected))
	assert.False(t, ValidFinalOutcome("maybe"))
	assert.False(t, ValidFinalOutcome(""))
}

func TestAutoResolvedCase(t *testing.T) {
	auto := &VerificationCase{State: CaseFinalized}
	assert.True(t, auto.AutoResolvedCase())

	reviewed := &VerificationCase{State: CaseFinalized, ReviewerRef: "reviewer-a"}
	assert.False(t, reviewed.AutoResolvedCase())

	pending := &VerificationCase{State: CasePendingHumanReview}
	assert.False(t, pending.AutoResolvedCase())
}
