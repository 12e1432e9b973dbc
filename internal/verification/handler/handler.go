// Package handler exposes the verification workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
	"drivepass/pkg/platform/httputil"
	"drivepass/pkg/requestcontext"
)

// Service defines the interface for verification workflow operations.
type Service interface {
	Submit(ctx context.Context, subjectRef id.SubjectRef, documentRefs []id.DocumentRef) (id.CaseID, error)
	ProcessPending(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error)
	Get(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error)
	ListByState(ctx context.Context, state domain.CaseState) ([]*domain.VerificationCase, error)
}

// Handler wires verification endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/cases", h.HandleSubmit)
	r.Get("/verification/cases", h.HandleList)
	r.Get("/verification/cases/{caseID}", h.HandleGet)
	r.Post("/verification/cases/{caseID}/process", h.HandleProcess)
}

// HandleSubmit handles POST /verification/cases requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caseID, err := h.service.Submit(ctx, req.ParsedSubjectRef(), req.ParsedDocumentRefs())
	if err != nil {
		h.logger.ErrorContext(ctx, "case submission failed",
			"request_id", requestID,
			"subject_ref", req.SubjectRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case submitted",
		"request_id", requestID,
		"case_id", caseID.String(),
		"subject_ref", req.SubjectRef,
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitCaseResponse{
		CaseID: caseID.String(),
		State:  string(domain.CaseSubmitted),
	})
}

// HandleProcess handles POST /verification/cases/{caseID}/process requests.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	kase, err := h.service.ProcessPending(ctx, caseID)
	if err != nil {
		h.logger.ErrorContext(ctx, "case processing failed",
			"request_id", requestID,
			"case_id", caseID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case processed",
		"request_id", requestID,
		"case_id", caseID.String(),
		"state", string(kase.State),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCase(kase))
}

// HandleGet handles GET /verification/cases/{caseID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	kase, err := h.service.Get(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(kase))
}

// HandleList handles GET /verification/cases?state= requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := domain.CaseState(r.URL.Query().Get("state"))
	if state == "" {
		state = domain.CasePendingHumanReview
	}

	cases, err := h.service.ListByState(ctx, state)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCases(cases))
}

func (h *Handler) parseCaseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid case id"))
		return id.CaseID{}, false
	}
	return caseID, true
}
