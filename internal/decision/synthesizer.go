// Package decision derives a routing decision from a document assessment.
// This is pure domain logic - no I/O, no side effects.
package decision

import (
	"fmt"

	"drivepass/internal/domain"
)

// Synthesize applies the red-flag priority ladder to produce a Decision.
// Rule priority (first disqualifier fixes the outcome):
//  1. Forgery - forces escalation and Critical tier; the highest-severity
//     signal wins over the classifier's self-reported tier
//  2. Tampering
//  3. Photo mismatch
//  4. Expired document
//  5. High/Critical self-reported risk tier
//  6. Overall confidence below the auto-approve floor
//  7. Self-reported inauthentic with no other flags - the narrow AutoReject
//
// Conditions after the deciding one still append their reasons for operator
// visibility, but never move an Escalate/AutoReject back toward AutoApprove.
// Only the complete absence of red flags yields auto-approval.
func Synthesize(a domain.Assessment) domain.Decision {
	d := domain.Decision{
		Outcome:  domain.DecisionAutoApprove,
		RiskTier: a.RiskTier,
	}

	escalate := func(reason string) {
		if d.Outcome == domain.DecisionAutoApprove {
			d.Outcome = domain.DecisionEscalate
		}
		d.Reasons = append(d.Reasons, reason)
	}

	if a.ForgeryDetected {
		escalate("forgery detected")
		d.RiskTier = domain.RiskCritical
	}
	if a.TamperingDetected {
		escalate("tampering detected")
	}
	if !a.PhotoMatch {
		escalate("photo mismatch")
	}
	if a.DocumentExpired {
		escalate("document expired")
	}
	if a.RiskTier == domain.RiskHigh || a.RiskTier == domain.RiskCritical {
		escalate(fmt.Sprintf("risk tier %s", a.RiskTier))
	}
	if a.OverallConfidence < MinAutoApproveConfidence {
		escalate(fmt.Sprintf("low confidence (%.2f)", a.OverallConfidence))
	}

	if !a.IsAuthentic {
		if d.Outcome == domain.DecisionAutoApprove {
			// Clean-looking but self-reported inauthentic: intentionally rare,
			// always logged with full reasons.
			d.Outcome = domain.DecisionAutoReject
		}
		d.Reasons = append(d.Reasons, "not authentic")
	}

	return d
}

// MinAutoApproveConfidence is the overall-confidence floor below which a case
// is escalated even when no other red flag fired.
const MinAutoApproveConfidence = 0.70
