package analysis

import (
	"fmt"

	"drivepass/internal/domain"
)

// wireAssessment mirrors domain.Assessment with pointer fields so a missing
// required field is distinguishable from an explicit zero value.
type wireAssessment struct {
	IsAuthentic          *bool           `json:"is_authentic"`
	ForgeryDetected      *bool           `json:"forgery_detected"`
	ForgeryConfidence    *float64        `json:"forgery_confidence"`
	PhotoMatch           *bool           `json:"photo_match"`
	PhotoMatchConfidence *float64        `json:"photo_match_confidence"`
	DocumentExpired      *bool           `json:"document_expired"`
	TamperingDetected    *bool           `json:"tampering_detected"`
	TamperingIndicators  []string        `json:"tampering_indicators"`
	ImageQualityScore    *float64        `json:"image_quality_score"`
	Flags                []string        `json:"flags"`
	RiskTier             domain.RiskTier `json:"risk_tier"`
	OverallConfidence    *float64        `json:"overall_confidence"`
}

// toAssessment validates the wire form against the Assessment schema and
// converts it. Fails on a missing required field, a confidence outside [0,1],
// or an unknown risk tier.
func (w wireAssessment) toAssessment() (*domain.Assessment, error) {
	required := map[string]any{
		"is_authentic":           w.IsAuthentic,
		"forgery_detected":       w.ForgeryDetected,
		"forgery_confidence":     w.ForgeryConfidence,
		"photo_match":            w.PhotoMatch,
		"photo_match_confidence": w.PhotoMatchConfidence,
		"document_expired":       w.DocumentExpired,
		"tampering_detected":     w.TamperingDetected,
		"image_quality_score":    w.ImageQualityScore,
		"overall_confidence":     w.OverallConfidence,
	}
	for field, ptr := range required {
		switch v := ptr.(type) {
		case *bool:
			if v == nil {
				return nil, fmt.Errorf("missing required field %q", field)
			}
		case *float64:
			if v == nil {
				return nil, fmt.Errorf("missing required field %q", field)
			}
		}
	}
	if w.RiskTier == "" {
		return nil, fmt.Errorf("missing required field %q", "risk_tier")
	}
	if !domain.ValidRiskTier(w.RiskTier) {
		return nil, fmt.Errorf("unknown risk tier %q", w.RiskTier)
	}
	scores := map[string]float64{
		"forgery_confidence":     *w.ForgeryConfidence,
		"photo_match_confidence": *w.PhotoMatchConfidence,
		"image_quality_score":    *w.ImageQualityScore,
		"overall_confidence":     *w.OverallConfidence,
	}
	for field, v := range scores {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%s %v out of range [0,1]", field, v)
		}
	}

	return &domain.Assessment{
		IsAuthentic:          *w.IsAuthentic,
		ForgeryDetected:      *w.ForgeryDetected,
		ForgeryConfidence:    *w.ForgeryConfidence,
		PhotoMatch:           *w.PhotoMatch,
		PhotoMatchConfidence: *w.PhotoMatchConfidence,
		DocumentExpired:      *w.DocumentExpired,
		TamperingDetected:    *w.TamperingDetected,
		TamperingIndicators:  w.TamperingIndicators,
		ImageQualityScore:    *w.ImageQualityScore,
		Flags:                w.Flags,
		RiskTier:             w.RiskTier,
		OverallConfidence:    *w.OverallConfidence,
	}, nil
}
