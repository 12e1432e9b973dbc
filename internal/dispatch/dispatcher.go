// Package dispatch converts workflow transitions into durable audit entries
// and outbound notifications. Audit appends are part of the transition
// contract and their errors propagate; notification failures are logged and
// absorbed - a failed email must never fail a verification decision.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"drivepass/internal/audit"
	"drivepass/internal/domain"
	"drivepass/internal/notify"
	id "drivepass/pkg/domain"
)

type Dispatcher struct {
	audit    *audit.Publisher
	notifier notify.Notifier
	// reviewQueueOwners receive escalation notifications.
	reviewQueueOwners []string
	logger            *slog.Logger
}

func New(auditPublisher *audit.Publisher, notifier notify.Notifier, reviewQueueOwners []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		audit:             auditPublisher,
		notifier:          notifier,
		reviewQueueOwners: reviewQueueOwners,
		logger:            logger,
	}
}

// CaseSubmitted records the creation of a case.
func (d *Dispatcher) CaseSubmitted(ctx context.Context, kase *domain.VerificationCase) error {
	return d.audit.Emit(ctx, domain.AuditEntry{
		CaseID:     kase.ID,
		ActorRef:   id.SystemActor,
		Action:     domain.AuditCaseSubmitted,
		DetailText: fmt.Sprintf("subject %s, %d documents", kase.SubjectRef, len(kase.DocumentRefs)),
	})
}

// CaseAutoResolved records an automatic finalization and tells the applicant.
func (d *Dispatcher) CaseAutoResolved(ctx context.Context, kase *domain.VerificationCase) error {
	detail := fmt.Sprintf("outcome %s", kase.FinalOutcome)
	if kase.Decision != nil && len(kase.Decision.Reasons) > 0 {
		detail += "; reasons: " + strings.Join(kase.Decision.Reasons, ", ")
	}
	if err := d.audit.Emit(ctx, domain.AuditEntry{
		CaseID:     kase.ID,
		ActorRef:   id.SystemActor,
		Action:     domain.AuditCaseAutoResolved,
		DetailText: detail,
	}); err != nil {
		return err
	}

	d.send(ctx, kase.SubjectRef.String(),
		"Identity verification complete",
		fmt.Sprintf("Your identity verification finished with outcome: %s.", kase.FinalOutcome),
	)
	return nil
}

// CaseEscalated records an escalation, pages the review queue owners with the
// decision summary, and tells the applicant review is pending. Critical-tier
// escalations get an additional high-priority notification.
func (d *Dispatcher) CaseEscalated(ctx context.Context, kase *domain.VerificationCase) error {
	decision := kase.Decision
	summary := fmt.Sprintf("risk tier %s; reasons: %s", decision.RiskTier, strings.Join(decision.Reasons, ", "))

	if err := d.audit.Emit(ctx, domain.AuditEntry{
		CaseID:     kase.ID,
		ActorRef:   id.SystemActor,
		Action:     domain.AuditCaseEscalated,
		DetailText: summary,
	}); err != nil {
		return err
	}

	for _, owner := range d.reviewQueueOwners {
		d.send(ctx, owner,
			fmt.Sprintf("Verification case %s needs review", kase.ID),
			summary,
		)
		if decision.RiskTier == domain.RiskCritical {
			d.send(ctx, owner,
				fmt.Sprintf("[URGENT] Critical-risk case %s", kase.ID),
				summary,
			)
		}
	}
	d.send(ctx, kase.SubjectRef.String(),
		"Identity verification under review",
		"Your identity verification needs a manual review. We will notify you once it completes.",
	)
	return nil
}

// AnalysisExhausted records that the analysis service could not be reached
// after all retries and the case fell back to human review.
func (d *Dispatcher) AnalysisExhausted(ctx context.Context, kase *domain.VerificationCase, attempts int) error {
	return d.audit.Emit(ctx, domain.AuditEntry{
		CaseID:     kase.ID,
		ActorRef:   id.SystemActor,
		Action:     domain.AuditAnalysisExhausted,
		DetailText: fmt.Sprintf("analysis unavailable after %d attempts", attempts),
	})
}

// CaseReviewed records a human finalization and tells the applicant.
func (d *Dispatcher) CaseReviewed(ctx context.Context, kase *domain.VerificationCase) error {
	detail := fmt.Sprintf("outcome %s", kase.FinalOutcome)
	if kase.ReviewNote != "" {
		detail += "; note: " + kase.ReviewNote
	}
	if err := d.audit.Emit(ctx, domain.AuditEntry{
		CaseID:     kase.ID,
		ActorRef:   kase.ReviewerRef,
		Action:     domain.AuditCaseReviewed,
		DetailText: detail,
	}); err != nil {
		return err
	}

	d.send(ctx, kase.SubjectRef.String(),
		"Identity verification complete",
		fmt.Sprintf("Your identity verification was reviewed and finished with outcome: %s.", kase.FinalOutcome),
	)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, recipient, subject, body string) {
	if err := d.notifier.Send(ctx, recipient, subject, body); err != nil {
		d.logger.ErrorContext(ctx, "notification send failed",
			"recipient", recipient,
			"subject", subject,
			"error", err,
		)
	}
}
