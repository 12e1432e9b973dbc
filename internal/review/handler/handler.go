// Package handler exposes reviewer resolution over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
	"drivepass/pkg/platform/httputil"
	"drivepass/pkg/requestcontext"
)

// Service defines the interface for reviewer resolution.
type Service interface {
	Resolve(ctx context.Context, caseID id.CaseID, reviewerRef id.ReviewerRef, outcome domain.FinalOutcome, note string) (*domain.VerificationCase, error)
}

// CaseRenderer converts a domain case to its HTTP representation. It is
// satisfied by the verification handler package so both surfaces return the
// same case shape.
type CaseRenderer func(*domain.VerificationCase) any

// Handler wires review endpoints to the review service.
type Handler struct {
	service Service
	render  CaseRenderer
	logger  *slog.Logger
}

// New constructs a review handler with its dependencies.
func New(service Service, render CaseRenderer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		render:  render,
		logger:  logger,
	}
}

// Register mounts review endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/review/cases/{caseID}/resolve", h.HandleResolve)
}

// ResolveRequest is the HTTP request body for POST /review/cases/{caseID}/resolve.
type ResolveRequest struct {
	ReviewerRef string `json:"reviewer_ref"`
	Outcome     string `json:"outcome"`
	Note        string `json:"note"`
}

// Validate trims and checks presence. Outcome and note semantics stay in the
// review service so every caller gets the same rules.
func (r *ResolveRequest) Validate() error {
	r.ReviewerRef = strings.TrimSpace(r.ReviewerRef)
	r.Outcome = strings.TrimSpace(r.Outcome)
	r.Note = strings.TrimSpace(r.Note)
	if r.ReviewerRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reviewer_ref is required")
	}
	if r.Outcome == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "outcome is required")
	}
	return nil
}

// HandleResolve handles POST /review/cases/{caseID}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid case id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	kase, err := h.service.Resolve(ctx, caseID, id.ReviewerRef(req.ReviewerRef), domain.FinalOutcome(req.Outcome), req.Note)
	if err != nil {
		h.logger.WarnContext(ctx, "case resolution rejected",
			"request_id", requestID,
			"case_id", caseID.String(),
			"reviewer_ref", req.ReviewerRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case resolved by reviewer",
		"request_id", requestID,
		"case_id", caseID.String(),
		"reviewer_ref", req.ReviewerRef,
		"outcome", req.Outcome,
	)
	httputil.WriteJSON(w, http.StatusOK, h.render(kase))
}
