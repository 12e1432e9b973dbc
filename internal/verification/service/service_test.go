package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drivepass/internal/analysis"
	"drivepass/internal/audit"
	"drivepass/internal/dispatch"
	"drivepass/internal/domain"
	"drivepass/internal/notify"
	"drivepass/internal/verification/store"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
)

type WorkflowSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	notifier   *notify.Recorder
	analyzer   *analysis.MockClient
	service    *Service
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.notifier = &notify.Recorder{}
	s.analyzer = &analysis.MockClient{Assessment: cleanAssessment()}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := dispatch.New(audit.NewPublisher(s.auditStore), s.notifier, []string{"reviews@drivepass.example"}, logger)

	var err error
	// Backoff shrunk so retry tests stay fast; the policy shape is unchanged.
	s.service, err = New(s.store, s.analyzer, dispatcher, Config{AnalysisRetries: 2, AnalysisBackoffBase: time.Millisecond}, logger, nil)
	s.Require().NoError(err)
}

func cleanAssessment() domain.Assessment {
	return domain.Assessment{
		IsAuthentic:          true,
		PhotoMatch:           true,
		PhotoMatchConfidence: 0.97,
		ImageQualityScore:    0.9,
		RiskTier:             domain.RiskLow,
		OverallConfidence:    0.95,
	}
}

func (s *WorkflowSuite) submit() id.CaseID {
	caseID, err := s.service.Submit(context.Background(), "sub-1",
		[]id.DocumentRef{"doc://front", "doc://back", "doc://selfie"})
	s.Require().NoError(err)
	return caseID
}

func (s *WorkflowSuite) TestSubmit() {
	ctx := context.Background()

	s.Run("creates a case in submitted state", func() {
		caseID := s.submit()
		kase, err := s.service.Get(ctx, caseID)
		s.Require().NoError(err)
		s.Equal(domain.CaseSubmitted, kase.State)
		s.Nil(kase.Assessment)
		s.Nil(kase.Decision)
		s.Empty(kase.FinalOutcome)

		entries, err := s.auditStore.ListByCase(ctx, caseID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(domain.AuditCaseSubmitted, entries[0].Action)
	})

	s.Run("rejects empty document refs before creating state", func() {
		_, err := s.service.Submit(ctx, "sub-1", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects missing subject", func() {
		_, err := s.service.Submit(ctx, "", []id.DocumentRef{"doc://front"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// Scenario A: a clean assessment finalizes as Approved with no reviewer.
func (s *WorkflowSuite) TestProcessPending_AutoApprove() {
	ctx := context.Background()
	caseID := s.submit()

	kase, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(domain.CaseFinalized, kase.State)
	s.Equal(domain.OutcomeApproved, kase.FinalOutcome)
	s.Empty(kase.ReviewerRef)
	s.True(kase.AutoResolvedCase())
	s.Require().NotNil(kase.Assessment)
	s.Require().NotNil(kase.Decision)
	s.Equal(domain.DecisionAutoApprove, kase.Decision.Outcome)
	s.False(kase.FinalizedAt.IsZero())

	entries, err := s.auditStore.ListByCase(ctx, caseID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(domain.AuditCaseAutoResolved, entries[1].Action)
	s.Equal(id.SystemActor, entries[1].ActorRef)

	sends := s.notifier.Sends()
	s.Require().Len(sends, 1, "only the applicant is notified on auto-approval")
	s.Equal("sub-1", sends[0].Recipient)
}

func (s *WorkflowSuite) TestProcessPending_AutoReject() {
	ctx := context.Background()
	a := cleanAssessment()
	a.IsAuthentic = false
	s.analyzer.Assessment = a
	caseID := s.submit()

	kase, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(domain.CaseFinalized, kase.State)
	s.Equal(domain.OutcomeRejected, kase.FinalOutcome)
	s.Empty(kase.ReviewerRef)
	s.Equal([]string{"not authentic"}, kase.Decision.Reasons)
}

// Scenario B: forgery escalates at Critical tier and pages the queue owner.
func (s *WorkflowSuite) TestProcessPending_ForgeryEscalates() {
	ctx := context.Background()
	a := cleanAssessment()
	a.ForgeryDetected = true
	a.ForgeryConfidence = 0.88
	a.RiskTier = domain.RiskMedium
	s.analyzer.Assessment = a
	caseID := s.submit()

	kase, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(domain.CasePendingHumanReview, kase.State)
	s.Empty(kase.FinalOutcome)
	s.Require().NotNil(kase.Decision)
	s.Equal(domain.DecisionEscalate, kase.Decision.Outcome)
	s.Equal(domain.RiskCritical, kase.Decision.RiskTier, "forgery overrides the self-reported tier")

	var urgent int
	for _, send := range s.notifier.Sends() {
		if send.Subject == "[URGENT] Critical-risk case "+kase.ID.String() {
			urgent++
		}
	}
	s.Equal(1, urgent, "critical escalation sends one high-priority notification")
}

// Scenario C: three consecutive analysis failures escalate with
// "analysis unavailable"; no auto decision is ever produced.
func (s *WorkflowSuite) TestProcessPending_AnalysisExhaustionEscalates() {
	ctx := context.Background()
	s.analyzer.FailTimes = 3
	caseID := s.submit()

	kase, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(domain.CasePendingHumanReview, kase.State)
	s.Nil(kase.Assessment)
	s.Require().NotNil(kase.Decision)
	s.Equal(domain.DecisionEscalate, kase.Decision.Outcome)
	s.Equal([]string{"analysis unavailable"}, kase.Decision.Reasons)
	s.Equal(3, s.analyzer.Calls(), "initial call plus two retries")

	entries, err := s.auditStore.ListByCase(ctx, caseID)
	s.Require().NoError(err)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	s.Contains(actions, domain.AuditAnalysisExhausted)
	s.Contains(actions, domain.AuditCaseEscalated)
}

// A transient failure followed by success resolves normally.
func (s *WorkflowSuite) TestProcessPending_RetriesThroughTransientFailure() {
	ctx := context.Background()
	s.analyzer.FailTimes = 2
	caseID := s.submit()

	kase, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(domain.CaseFinalized, kase.State)
	s.Equal(domain.OutcomeApproved, kase.FinalOutcome)
	s.Equal(3, s.analyzer.Calls())
}

// Idempotence: a second ProcessPending is a no-op returning the same final
// state, with exactly one analysis call and one round of notifications.
func (s *WorkflowSuite) TestProcessPending_Idempotent() {
	ctx := context.Background()
	caseID := s.submit()

	first, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)
	sendsAfterFirst := len(s.notifier.Sends())

	second, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	s.Equal(first.State, second.State)
	s.Equal(first.FinalOutcome, second.FinalOutcome)
	s.Equal(first.Decision, second.Decision)
	s.Equal(1, s.analyzer.Calls(), "analysis runs exactly once")
	s.Equal(sendsAfterFirst, len(s.notifier.Sends()), "no duplicate notifications")
}

func (s *WorkflowSuite) TestProcessPending_UnknownCase() {
	_, err := s.service.ProcessPending(context.Background(), id.NewCaseID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *WorkflowSuite) TestListByState() {
	ctx := context.Background()
	a := cleanAssessment()
	a.PhotoMatch = false
	s.analyzer.Assessment = a
	caseID := s.submit()
	_, err := s.service.ProcessPending(ctx, caseID)
	s.Require().NoError(err)

	pending, err := s.service.ListByState(ctx, domain.CasePendingHumanReview)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(caseID, pending[0].ID)

	_, err = s.service.ListByState(ctx, domain.CaseState("bogus"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
