package domain

// DecisionOutcome enumerates the routing outcomes derived from an assessment.
type DecisionOutcome string

const (
	DecisionAutoApprove DecisionOutcome = "auto_approve"
	DecisionAutoReject  DecisionOutcome = "auto_reject"
	DecisionEscalate    DecisionOutcome = "escalate"
)

// Decision is the locally-computed routing outcome for a case.
// Reasons are ordered and non-empty whenever the outcome is not AutoApprove.
type Decision struct {
	Outcome  DecisionOutcome `json:"outcome"`
	RiskTier RiskTier        `json:"risk_tier"`
	Reasons  []string        `json:"reasons,omitempty"`
}
