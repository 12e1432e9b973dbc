package domain

import (
	"time"

	id "drivepass/pkg/domain"
)

// Audit actions written by the workflow controller and the override gateway.
// These are the only writers; entries are never mutated or deleted.
const (
	AuditCaseSubmitted     = "case_submitted"
	AuditCaseAnalyzed      = "case_analyzed"
	AuditCaseAutoResolved  = "case_auto_resolved"
	AuditCaseEscalated     = "case_escalated"
	AuditCaseReviewed      = "case_reviewed"
	AuditAnalysisExhausted = "analysis_exhausted"
)

// AuditEntry is an append-only record of one workflow transition.
type AuditEntry struct {
	CaseID     id.CaseID
	ActorRef   id.ReviewerRef // "system" or a human identifier
	Action     string
	DetailText string
	Timestamp  time.Time
}
