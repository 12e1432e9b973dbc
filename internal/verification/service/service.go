// Package service drives one verification case from submission to either an
// automatic resolution or escalation to human review. All state writes are
// compare-and-set; correctness comes from the conditional write, never from
// holding a lock across the long-running analysis call.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"drivepass/internal/analysis"
	"drivepass/internal/decision"
	"drivepass/internal/dispatch"
	"drivepass/internal/domain"
	"drivepass/internal/verification/metrics"
	"drivepass/internal/verification/store"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
	"drivepass/pkg/platform/sentinel"
	"drivepass/pkg/requestcontext"
)

const tracerName = "drivepass/verification"

// escalationTierOnAnalysisFailure is the tier recorded when a case escalates
// because the analysis service stayed unreachable. High rather than Critical:
// an outage should not page like a forgery.
const escalationTierOnAnalysisFailure = domain.RiskHigh

// Config tunes the analysis retry policy.
type Config struct {
	// AnalysisRetries is the number of additional attempts after the first
	// failure.
	AnalysisRetries int
	// AnalysisBackoffBase is the first retry delay; each subsequent retry
	// doubles it.
	AnalysisBackoffBase time.Duration
}

// DefaultConfig matches the production policy: 2 retries, 2s base backoff.
func DefaultConfig() Config {
	return Config{AnalysisRetries: 2, AnalysisBackoffBase: 2 * time.Second}
}

// Service is the review workflow controller.
type Service struct {
	store      store.Store
	analyzer   analysis.Client
	dispatcher *dispatch.Dispatcher
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func New(caseStore store.Store, analyzer analysis.Client, dispatcher *dispatch.Dispatcher, cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if caseStore == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "case store is required")
	}
	if analyzer == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "analysis client is required")
	}
	if dispatcher == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "dispatcher is required")
	}
	return &Service{
		store:      caseStore,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Submit creates a case in Submitted state. DocumentRefs are immutable from
// here on; an empty set is rejected before any state is created.
func (s *Service) Submit(ctx context.Context, subjectRef id.SubjectRef, documentRefs []id.DocumentRef) (id.CaseID, error) {
	if subjectRef == "" {
		return id.CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "subject_ref is required")
	}
	if len(documentRefs) == 0 {
		return id.CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "at least one document reference is required")
	}
	for _, ref := range documentRefs {
		if ref == "" {
			return id.CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "document references must not be empty")
		}
	}

	kase := &domain.VerificationCase{
		ID:           id.NewCaseID(),
		SubjectRef:   subjectRef,
		DocumentRefs: append([]id.DocumentRef(nil), documentRefs...),
		State:        domain.CaseSubmitted,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, kase); err != nil {
		return id.CaseID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}
	if err := s.dispatcher.CaseSubmitted(ctx, kase); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed for submission",
			"case_id", kase.ID.String(), "error", err)
	}
	s.metrics.IncSubmitted()

	s.logger.InfoContext(ctx, "case submitted",
		"case_id", kase.ID.String(),
		"subject_ref", subjectRef.String(),
		"documents", len(documentRefs),
	)
	return kase.ID, nil
}

// Get returns a case by ID.
func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error) {
	kase, err := s.store.Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return kase, nil
}

// ListByState returns all cases in the given state (the review queue when
// state is PendingHumanReview).
func (s *Service) ListByState(ctx context.Context, state domain.CaseState) ([]*domain.VerificationCase, error) {
	if !domain.ValidCaseState(state) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown case state %q", state)
	}
	cases, err := s.store.ListByState(ctx, state)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// ProcessPending advances a Submitted case: analyze, synthesize, persist, and
// branch into auto-resolution or escalation.
//
// Idempotent: a case already past Submitted is returned as-is without calling
// the analysis service or re-sending notifications. A concurrent writer that
// advances the case mid-flight surfaces as CodeStaleState; the late analysis
// result is discarded by the failed compare-and-set.
func (s *Service) ProcessPending(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error) {
	ctx, span := s.tracer.Start(ctx, "verification.ProcessPending",
		trace.WithAttributes(attribute.String("case_id", caseID.String())),
	)
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveProcessDuration(time.Since(start).Seconds()) }()

	kase, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if kase.State != domain.CaseSubmitted {
		s.logger.InfoContext(ctx, "case already processed, returning current state",
			"case_id", caseID.String(), "state", string(kase.State))
		return kase, nil
	}

	assessment, attempts, analyzeErr := s.analyzeWithRetry(ctx, kase)
	if analyzeErr != nil {
		return s.escalateUnanalyzed(ctx, kase, attempts)
	}

	kase.Assessment = assessment
	kase.State = domain.CaseAnalyzed
	if err := s.store.UpdateState(ctx, kase, domain.CaseSubmitted); err != nil {
		return nil, s.translateStale(ctx, kase.ID, err, "persist assessment")
	}

	dec := decision.Synthesize(*assessment)
	kase.Decision = &dec
	s.metrics.RecordDecision(string(dec.Outcome))

	s.logger.InfoContext(ctx, "decision synthesized",
		"case_id", kase.ID.String(),
		"outcome", string(dec.Outcome),
		"risk_tier", string(dec.RiskTier),
		"reasons", dec.Reasons,
	)

	switch dec.Outcome {
	case domain.DecisionAutoApprove:
		return s.autoResolve(ctx, kase, domain.OutcomeApproved)
	case domain.DecisionAutoReject:
		return s.autoResolve(ctx, kase, domain.OutcomeRejected)
	default:
		return s.escalate(ctx, kase)
	}
}

// analyzeWithRetry calls the analysis client with the configured retry policy
// and exponential backoff. Only transient analysis failures are retried.
func (s *Service) analyzeWithRetry(ctx context.Context, kase *domain.VerificationCase) (*domain.Assessment, int, error) {
	subjectContext := analysis.Metadata{"subject_ref": kase.SubjectRef.String()}
	backoff := s.cfg.AnalysisBackoffBase

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.cfg.AnalysisRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			}
			backoff *= 2
		}
		attempts++
		s.metrics.IncAnalysisAttempt()
		assessment, err := s.analyzer.Analyze(ctx, kase.DocumentRefs, subjectContext)
		if err == nil {
			return assessment, attempts, nil
		}
		s.metrics.IncAnalysisFailure()
		lastErr = err
		s.logger.WarnContext(ctx, "analysis attempt failed",
			"case_id", kase.ID.String(),
			"attempt", attempts,
			"error", err,
		)
		if !errors.Is(err, analysis.ErrUnavailable) && !errors.Is(err, analysis.ErrTimeout) {
			break
		}
	}
	return nil, attempts, lastErr
}

// escalateUnanalyzed routes a case the analysis service could not assess to
// human review. An unanalyzable case must never be silently dropped or
// auto-resolved.
func (s *Service) escalateUnanalyzed(ctx context.Context, kase *domain.VerificationCase, attempts int) (*domain.VerificationCase, error) {
	kase.Decision = &domain.Decision{
		Outcome:  domain.DecisionEscalate,
		RiskTier: escalationTierOnAnalysisFailure,
		Reasons:  []string{"analysis unavailable"},
	}
	kase.State = domain.CasePendingHumanReview
	if err := s.store.UpdateState(ctx, kase, domain.CaseSubmitted); err != nil {
		return nil, s.translateStale(ctx, kase.ID, err, "escalate unanalyzed case")
	}
	if err := s.dispatcher.AnalysisExhausted(ctx, kase, attempts); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "case_id", kase.ID.String(), "error", err)
	}
	if err := s.dispatcher.CaseEscalated(ctx, kase); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "case_id", kase.ID.String(), "error", err)
	}
	s.metrics.RecordEscalation(string(escalationTierOnAnalysisFailure))
	return kase, nil
}

// autoResolve finalizes the case without a reviewer. The case passes through
// AutoResolved into Finalized within a single compare-and-set write, so no
// observer ever sees a half-resolved record.
func (s *Service) autoResolve(ctx context.Context, kase *domain.VerificationCase, outcome domain.FinalOutcome) (*domain.VerificationCase, error) {
	kase.State = domain.CaseFinalized
	kase.FinalOutcome = outcome
	kase.FinalizedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateState(ctx, kase, domain.CaseAnalyzed); err != nil {
		return nil, s.translateStale(ctx, kase.ID, err, "auto-resolve case")
	}
	if err := s.dispatcher.CaseAutoResolved(ctx, kase); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "case_id", kase.ID.String(), "error", err)
	}
	s.logger.InfoContext(ctx, "case auto-resolved",
		"case_id", kase.ID.String(),
		"outcome", string(outcome),
	)
	return kase, nil
}

func (s *Service) escalate(ctx context.Context, kase *domain.VerificationCase) (*domain.VerificationCase, error) {
	kase.State = domain.CasePendingHumanReview
	if err := s.store.UpdateState(ctx, kase, domain.CaseAnalyzed); err != nil {
		return nil, s.translateStale(ctx, kase.ID, err, "escalate case")
	}
	if err := s.dispatcher.CaseEscalated(ctx, kase); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "case_id", kase.ID.String(), "error", err)
	}
	s.metrics.RecordEscalation(string(kase.Decision.RiskTier))
	s.logger.InfoContext(ctx, "case escalated to human review",
		"case_id", kase.ID.String(),
		"risk_tier", string(kase.Decision.RiskTier),
	)
	return kase, nil
}

// translateStale converts store sentinels into caller-facing domain errors.
// Stale writes surface to the caller; they are never retried here because a
// retry could double-fire notifications.
func (s *Service) translateStale(ctx context.Context, caseID id.CaseID, err error, op string) error {
	if errors.Is(err, sentinel.ErrStaleState) {
		s.logger.WarnContext(ctx, "case state changed concurrently, discarding result",
			"case_id", caseID.String(), "op", op)
		return dErrors.New(dErrors.CodeStaleState, "case state changed, please refresh")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
}
