package domain

// RiskTier is the analysis service's self-reported risk classification.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// ValidRiskTier reports whether t is a known tier.
func ValidRiskTier(t RiskTier) bool {
	switch t {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Assessment is the structured output of the external document analysis
// service. Immutable once produced; one per case.
type Assessment struct {
	IsAuthentic          bool     `json:"is_authentic"`
	ForgeryDetected      bool     `json:"forgery_detected"`
	ForgeryConfidence    float64  `json:"forgery_confidence"`
	PhotoMatch           bool     `json:"photo_match"`
	PhotoMatchConfidence float64  `json:"photo_match_confidence"`
	DocumentExpired      bool     `json:"document_expired"`
	TamperingDetected    bool     `json:"tampering_detected"`
	TamperingIndicators  []string `json:"tampering_indicators,omitempty"`
	ImageQualityScore    float64  `json:"image_quality_score"`
	Flags                []string `json:"flags,omitempty"`
	RiskTier             RiskTier `json:"risk_tier"`
	OverallConfidence    float64  `json:"overall_confidence"`
}
