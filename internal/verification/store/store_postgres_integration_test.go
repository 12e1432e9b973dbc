//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drivepass/internal/domain"
	"drivepass/internal/verification/store"
	id "drivepass/pkg/domain"
	"drivepass/pkg/platform/sentinel"
	"drivepass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.Pool.Exec(context.Background(), store.Schema)
	s.Require().NoError(err)
	s.store = store.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "verification_cases"))
}

func submittedCase() *domain.VerificationCase {
	return &domain.VerificationCase{
		ID:           id.NewCaseID(),
		SubjectRef:   "sub-9",
		DocumentRefs: []id.DocumentRef{"doc://front", "doc://back", "doc://selfie"},
		State:        domain.CaseSubmitted,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTripWithTypedFields() {
	ctx := context.Background()
	kase := submittedCase()
	s.Require().NoError(s.store.Create(ctx, kase))

	kase.State = domain.CaseAnalyzed
	kase.Assessment = &domain.Assessment{
		IsAuthentic:          true,
		PhotoMatch:           true,
		PhotoMatchConfidence: 0.93,
		ImageQualityScore:    0.8,
		RiskTier:             domain.RiskLow,
		OverallConfidence:    0.91,
		Flags:                []string{"glare on back id"},
	}
	kase.Decision = &domain.Decision{Outcome: domain.DecisionAutoApprove, RiskTier: domain.RiskLow}
	s.Require().NoError(s.store.UpdateState(ctx, kase, domain.CaseSubmitted))

	got, err := s.store.Get(ctx, kase.ID)
	s.Require().NoError(err)
	s.Equal(domain.CaseAnalyzed, got.State)
	s.Require().NotNil(got.Assessment)
	s.InDelta(0.91, got.Assessment.OverallConfidence, 1e-9)
	s.Equal([]string{"glare on back id"}, got.Assessment.Flags)
	s.Require().NotNil(got.Decision)
	s.Equal(domain.DecisionAutoApprove, got.Decision.Outcome)
	s.Equal(kase.DocumentRefs, got.DocumentRefs)
}

func (s *PostgresStoreSuite) TestCompareAndSetRejectsStaleWriter() {
	ctx := context.Background()
	kase := submittedCase()
	kase.State = domain.CasePendingHumanReview
	s.Require().NoError(s.store.Create(ctx, kase))

	winner := *kase
	winner.State = domain.CaseFinalized
	winner.FinalOutcome = domain.OutcomeRejected
	winner.ReviewerRef = "reviewer-a"
	winner.FinalizedAt = time.Now().UTC()
	s.Require().NoError(s.store.UpdateState(ctx, &winner, domain.CasePendingHumanReview))

	loser := *kase
	loser.State = domain.CaseFinalized
	loser.FinalOutcome = domain.OutcomeApproved
	loser.ReviewerRef = "reviewer-b"
	s.ErrorIs(s.store.UpdateState(ctx, &loser, domain.CasePendingHumanReview), sentinel.ErrStaleState)

	got, err := s.store.Get(ctx, kase.ID)
	s.Require().NoError(err)
	s.Equal(id.ReviewerRef("reviewer-a"), got.ReviewerRef)
	s.Equal(domain.OutcomeRejected, got.FinalOutcome)
}

func (s *PostgresStoreSuite) TestConcurrentFinalizeSingleWinner() {
	ctx := context.Background()
	kase := submittedCase()
	kase.State = domain.CasePendingHumanReview
	s.Require().NoError(s.store.Create(ctx, kase))

	const writers = 16
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			update := *kase
			update.State = domain.CaseFinalized
			update.FinalOutcome = domain.OutcomeApproved
			update.ReviewerRef = id.ReviewerRef(string(rune('a' + n%26)))
			update.FinalizedAt = time.Now().UTC()
			if err := s.store.UpdateState(ctx, &update, domain.CasePendingHumanReview); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *PostgresStoreSuite) TestListByState() {
	ctx := context.Background()
	pending := submittedCase()
	pending.State = domain.CasePendingHumanReview
	pending.Decision = &domain.Decision{Outcome: domain.DecisionEscalate, RiskTier: domain.RiskHigh, Reasons: []string{"photo mismatch"}}
	s.Require().NoError(s.store.Create(ctx, pending))
	s.Require().NoError(s.store.Create(ctx, submittedCase()))

	listed, err := s.store.ListByState(ctx, domain.CasePendingHumanReview)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(pending.ID, listed[0].ID)

	_, err = s.store.Get(ctx, id.NewCaseID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
