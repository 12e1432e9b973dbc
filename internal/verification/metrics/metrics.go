package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the verification workflow.
type Metrics struct {
	CasesSubmitted   prometheus.Counter
	Decisions        *prometheus.CounterVec
	Escalations      *prometheus.CounterVec
	AnalysisAttempts prometheus.Counter
	AnalysisFailures prometheus.Counter
	ResolveConflicts prometheus.Counter
	ProcessDuration  prometheus.Histogram
}

// New creates and registers all verification metrics.
func New() *Metrics {
	return &Metrics{
		CasesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivepass_cases_submitted_total",
			Help: "Total number of verification cases submitted",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drivepass_decisions_total",
			Help: "Total number of synthesized decisions by outcome",
		}, []string{"outcome"}),
		Escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drivepass_escalations_total",
			Help: "Total number of cases escalated to human review by risk tier",
		}, []string{"risk_tier"}),
		AnalysisAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivepass_analysis_attempts_total",
			Help: "Total number of calls to the document analysis service",
		}),
		AnalysisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivepass_analysis_failures_total",
			Help: "Total number of failed document analysis calls",
		}),
		ResolveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivepass_resolve_conflicts_total",
			Help: "Total number of finalization attempts that lost the compare-and-set",
		}),
		ProcessDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "drivepass_process_duration_seconds",
			Help:    "Duration of ProcessPending including analysis retries",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordDecision increments the decision counter for an outcome.
func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

// RecordEscalation increments the escalation counter for a risk tier.
func (m *Metrics) RecordEscalation(tier string) {
	if m == nil {
		return
	}
	m.Escalations.WithLabelValues(tier).Inc()
}

// IncSubmitted increments the submitted-cases counter.
func (m *Metrics) IncSubmitted() {
	if m == nil {
		return
	}
	m.CasesSubmitted.Inc()
}

// IncAnalysisAttempt counts one analysis call.
func (m *Metrics) IncAnalysisAttempt() {
	if m == nil {
		return
	}
	m.AnalysisAttempts.Inc()
}

// IncAnalysisFailure counts one failed analysis call.
func (m *Metrics) IncAnalysisFailure() {
	if m == nil {
		return
	}
	m.AnalysisFailures.Inc()
}

// IncResolveConflict counts one lost finalization race.
func (m *Metrics) IncResolveConflict() {
	if m == nil {
		return
	}
	m.ResolveConflicts.Inc()
}

// ObserveProcessDuration records one ProcessPending duration in seconds.
func (m *Metrics) ObserveProcessDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ProcessDuration.Observe(seconds)
}
