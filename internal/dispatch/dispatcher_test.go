package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivepass/internal/audit"
	"drivepass/internal/domain"
	"drivepass/internal/notify"
	id "drivepass/pkg/domain"
)

func newDispatcher(recorder *notify.Recorder) (*Dispatcher, *audit.InMemoryStore) {
	store := audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(audit.NewPublisher(store), recorder, []string{"reviews@drivepass.example"}, logger)
	return d, store
}

func escalatedCase(tier domain.RiskTier) *domain.VerificationCase {
	return &domain.VerificationCase{
		ID:         id.NewCaseID(),
		SubjectRef: "sub-42",
		State:      domain.CasePendingHumanReview,
		Decision: &domain.Decision{
			Outcome:  domain.DecisionEscalate,
			RiskTier: tier,
			Reasons:  []string{"tampering detected"},
		},
	}
}

func TestCaseEscalated_NotifiesOwnersAndSubject(t *testing.T) {
	recorder := &notify.Recorder{}
	d, store := newDispatcher(recorder)
	kase := escalatedCase(domain.RiskHigh)

	require.NoError(t, d.CaseEscalated(context.Background(), kase))

	entries, err := store.ListByCase(context.Background(), kase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditCaseEscalated, entries[0].Action)
	assert.Equal(t, id.SystemActor, entries[0].ActorRef)
	assert.Contains(t, entries[0].DetailText, "tampering detected")

	sends := recorder.Sends()
	require.Len(t, sends, 2, "one to the queue owner, one to the subject")
	assert.Equal(t, "reviews@drivepass.example", sends[0].Recipient)
	assert.Contains(t, sends[0].Body, "risk tier high")
	assert.Equal(t, "sub-42", sends[1].Recipient)
}

func TestCaseEscalated_CriticalTierSendsHighPriorityExtra(t *testing.T) {
	recorder := &notify.Recorder{}
	d, _ := newDispatcher(recorder)

	require.NoError(t, d.CaseEscalated(context.Background(), escalatedCase(domain.RiskCritical)))

	sends := recorder.Sends()
	require.Len(t, sends, 3)
	assert.Contains(t, sends[1].Subject, "[URGENT]")
}

func TestCaseAutoResolved_NotificationFailureDoesNotFailDispatch(t *testing.T) {
	recorder := &notify.Recorder{Fail: errors.New("smtp down")}
	d, store := newDispatcher(recorder)
	kase := &domain.VerificationCase{
		ID:           id.NewCaseID(),
		SubjectRef:   "sub-7",
		State:        domain.CaseFinalized,
		FinalOutcome: domain.OutcomeApproved,
		Decision:     &domain.Decision{Outcome: domain.DecisionAutoApprove, RiskTier: domain.RiskLow},
	}

	require.NoError(t, d.CaseAutoResolved(context.Background(), kase))

	entries, err := store.ListByCase(context.Background(), kase.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "audit entry written even when the notifier is down")
}

func TestCaseReviewed_RecordsReviewerAndNote(t *testing.T) {
	recorder := &notify.Recorder{}
	d, store := newDispatcher(recorder)
	kase := &domain.VerificationCase{
		ID:           id.NewCaseID(),
		SubjectRef:   "sub-9",
		State:        domain.CaseFinalized,
		FinalOutcome: domain.OutcomeApproved,
		ReviewerRef:  "reviewer-ana",
		ReviewNote:   "matched against utility bill",
	}

	require.NoError(t, d.CaseReviewed(context.Background(), kase))

	entries, err := store.ListByCase(context.Background(), kase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id.ReviewerRef("reviewer-ana"), entries[0].ActorRef)
	assert.Contains(t, entries[0].DetailText, "matched against utility bill")
}
