package handler

import (
	"time"

	"drivepass/internal/domain"
)

// SubmitCaseResponse is the HTTP response for POST /verification/cases.
type SubmitCaseResponse struct {
	CaseID string `json:"case_id"`
	State  string `json:"state"`
}

// CaseResponse is the HTTP representation of a verification case.
type CaseResponse struct {
	CaseID       string              `json:"case_id"`
	SubjectRef   string              `json:"subject_ref"`
	DocumentRefs []string            `json:"document_refs"`
	State        string              `json:"state"`
	Assessment   *AssessmentResponse `json:"assessment,omitempty"`
	Decision     *DecisionResponse   `json:"decision,omitempty"`
	FinalOutcome string              `json:"final_outcome,omitempty"`
	ReviewerRef  string              `json:"reviewer_ref,omitempty"`
	ReviewNote   string              `json:"review_note,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	FinalizedAt  *time.Time          `json:"finalized_at,omitempty"`
}

// AssessmentResponse is the classifier assessment portion of a case.
type AssessmentResponse struct {
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
	RiskTier             string   `json:"risk_tier"`
	OverallConfidence    float64  `json:"overall_confidence"`
}

// DecisionResponse is the synthesized decision portion of a case.
type DecisionResponse struct {
	Outcome  string   `json:"outcome"`
	RiskTier string   `json:"risk_tier"`
	Reasons  []string `json:"reasons"`
}

// ListCasesResponse is the HTTP response for GET /verification/cases.
type ListCasesResponse struct {
	Cases []*CaseResponse `json:"cases"`
}

// FromCase converts a domain case to its HTTP representation.
func FromCase(kase *domain.VerificationCase) *CaseResponse {
	docs := make([]string, len(kase.DocumentRefs))
	for i, ref := range kase.DocumentRefs {
		docs[i] = ref.String()
	}

	resp := &CaseResponse{
		CaseID:       kase.ID.String(),
		SubjectRef:   kase.SubjectRef.String(),
		DocumentRefs: docs,
		State:        string(kase.State),
		FinalOutcome: string(kase.FinalOutcome),
		ReviewerRef:  kase.ReviewerRef.String(),
		ReviewNote:   kase.ReviewNote,
		CreatedAt:    kase.CreatedAt,
	}
	if kase.Assessment != nil {
		resp.Assessment = &AssessmentResponse{
			IsAuthentic:          kase.Assessment.IsAuthentic,
			ForgeryDetected:      kase.Assessment.ForgeryDetected,
			ForgeryConfidence:    kase.Assessment.ForgeryConfidence,
			PhotoMatch:           kase.Assessment.PhotoMatch,
			PhotoMatchConfidence: kase.Assessment.PhotoMatchConfidence,
			DocumentExpired:      kase.Assessment.DocumentExpired,
			TamperingDetected:    kase.Assessment.TamperingDetected,
			TamperingIndicators:  kase.Assessment.TamperingIndicators,
			ImageQualityScore:    kase.Assessment.ImageQualityScore,
			Flags:                kase.Assessment.Flags,
			RiskTier:             string(kase.Assessment.RiskTier),
			OverallConfidence:    kase.Assessment.OverallConfidence,
		}
	}
	if kase.Decision != nil {
		resp.Decision = &DecisionResponse{
			Outcome:  string(kase.Decision.Outcome),
			RiskTier: string(kase.Decision.RiskTier),
			Reasons:  kase.Decision.Reasons,
		}
	}
	if !kase.FinalizedAt.IsZero() {
		t := kase.FinalizedAt
		resp.FinalizedAt = &t
	}
	return resp
}

// FromCases converts a list of domain cases for GET /verification/cases.
func FromCases(cases []*domain.VerificationCase) *ListCasesResponse {
	out := make([]*CaseResponse, len(cases))
	for i, kase := range cases {
		out[i] = FromCase(kase)
	}
	return &ListCasesResponse{Cases: out}
}
