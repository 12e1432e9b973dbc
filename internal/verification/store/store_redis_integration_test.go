//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drivepass/internal/domain"
	"drivepass/internal/verification/store"
	id "drivepass/pkg/domain"
	"drivepass/pkg/platform/sentinel"
	"drivepass/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newCase(state domain.CaseState) *domain.VerificationCase {
	return &domain.VerificationCase{
		ID:           id.NewCaseID(),
		SubjectRef:   "sub-r",
		DocumentRefs: []id.DocumentRef{"doc://front"},
		State:        state,
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *RedisStoreSuite) TestCreateGetRoundTrip() {
	ctx := context.Background()
	kase := s.newCase(domain.CaseSubmitted)
	s.Require().NoError(s.store.Create(ctx, kase))
	s.ErrorIs(s.store.Create(ctx, kase), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, kase.ID)
	s.Require().NoError(err)
	s.Equal(kase.ID, got.ID)
	s.Equal(domain.CaseSubmitted, got.State)

	_, err = s.store.Get(ctx, id.NewCaseID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestCompareAndSet() {
	ctx := context.Background()
	kase := s.newCase(domain.CasePendingHumanReview)
	kase.Decision = &domain.Decision{Outcome: domain.DecisionEscalate, RiskTier: domain.RiskHigh, Reasons: []string{"document expired"}}
	s.Require().NoError(s.store.Create(ctx, kase))

	update := *kase
	update.State = domain.CaseFinalized
	update.FinalOutcome = domain.OutcomeApproved
	update.ReviewerRef = "reviewer-a"
	update.ReviewNote = "docs re-checked"
	update.FinalizedAt = time.Now().UTC()
	s.Require().NoError(s.store.UpdateState(ctx, &update, domain.CasePendingHumanReview))

	stale := *kase
	stale.State = domain.CaseFinalized
	stale.ReviewerRef = "reviewer-b"
	s.ErrorIs(s.store.UpdateState(ctx, &stale, domain.CasePendingHumanReview), sentinel.ErrStaleState)

	got, err := s.store.Get(ctx, kase.ID)
	s.Require().NoError(err)
	s.Equal(id.ReviewerRef("reviewer-a"), got.ReviewerRef)
	s.Require().NotNil(got.Decision)
	s.Equal([]string{"document expired"}, got.Decision.Reasons)
}

func (s *RedisStoreSuite) TestStateIndexFollowsTransitions() {
	ctx := context.Background()
	kase := s.newCase(domain.CaseSubmitted)
	s.Require().NoError(s.store.Create(ctx, kase))

	update := *kase
	update.State = domain.CasePendingHumanReview
	update.Decision = &domain.Decision{Outcome: domain.DecisionEscalate, RiskTier: domain.RiskHigh, Reasons: []string{"photo mismatch"}}
	s.Require().NoError(s.store.UpdateState(ctx, &update, domain.CaseSubmitted))

	pending, err := s.store.ListByState(ctx, domain.CasePendingHumanReview)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(kase.ID, pending[0].ID)

	submitted, err := s.store.ListByState(ctx, domain.CaseSubmitted)
	s.Require().NoError(err)
	s.Empty(submitted)
}
