package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"drivepass/internal/domain"
	"drivepass/internal/review/handler/mocks"
	verificationhandler "drivepass/internal/verification/handler"
	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/review_mocks.go -package=mocks Service
type ReviewHandlerSuite struct {
	suite.Suite
}

func TestReviewHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReviewHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	render := func(kase *domain.VerificationCase) any { return verificationhandler.FromCase(kase) }
	New(mockService, render, logger).Register(r)
	return r, mockService
}

func resolveBody(t *testing.T, reviewer, outcome, note string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"reviewer_ref": reviewer,
		"outcome":      outcome,
		"note":         note,
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func (s *ReviewHandlerSuite) TestHandleResolve() {
	router, mockService := newTestRouter(s.T())
	caseID := id.NewCaseID()
	finalized := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	mockService.EXPECT().Resolve(
		gomock.Any(), caseID, id.ReviewerRef("reviewer-a"), domain.OutcomeApproved, "registry confirmed",
	).Return(&domain.VerificationCase{
		ID:           caseID,
		SubjectRef:   "sub-123",
		DocumentRefs: []id.DocumentRef{"doc://front"},
		State:        domain.CaseFinalized,
		FinalOutcome: domain.OutcomeApproved,
		ReviewerRef:  "reviewer-a",
		ReviewNote:   "registry confirmed",
		CreatedAt:    finalized.Add(-time.Hour),
		FinalizedAt:  finalized,
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/review/cases/"+caseID.String()+"/resolve",
		resolveBody(s.T(), "reviewer-a", "approved", "registry confirmed")))

	assert.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "finalized", resp["state"])
	assert.Equal(s.T(), "approved", resp["final_outcome"])
	assert.Equal(s.T(), "reviewer-a", resp["reviewer_ref"])
	assert.Equal(s.T(), "registry confirmed", resp["review_note"])
}

func (s *ReviewHandlerSuite) TestHandleResolve_Validation() {
	tests := []struct {
		name     string
		reviewer string
		outcome  string
	}{
		{"missing reviewer", "", "approved"},
		{"missing outcome", "reviewer-a", ""},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			router, _ := newTestRouter(s.T())
			caseID := id.NewCaseID()

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
				"/review/cases/"+caseID.String()+"/resolve",
				resolveBody(s.T(), tt.reviewer, tt.outcome, "")))

			assert.Equal(s.T(), http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func (s *ReviewHandlerSuite) TestHandleResolve_InvalidCaseID() {
	router, _ := newTestRouter(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/review/cases/not-a-uuid/resolve",
		resolveBody(s.T(), "reviewer-a", "approved", "note")))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ReviewHandlerSuite) TestHandleResolve_AlreadyResolved() {
	router, mockService := newTestRouter(s.T())
	caseID := id.NewCaseID()
	mockService.EXPECT().Resolve(
		gomock.Any(), caseID, id.ReviewerRef("reviewer-b"), domain.OutcomeRejected, "",
	).Return(nil, dErrors.New(dErrors.CodeAlreadyResolved, "already handled by reviewer-a"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/review/cases/"+caseID.String()+"/resolve",
		resolveBody(s.T(), "reviewer-b", "rejected", "")))

	assert.Equal(s.T(), http.StatusConflict, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeAlreadyResolved), resp["error"])
	assert.Contains(s.T(), resp["message"], "reviewer-a")
}

func (s *ReviewHandlerSuite) TestHandleResolve_NotEscalated() {
	router, mockService := newTestRouter(s.T())
	caseID := id.NewCaseID()
	mockService.EXPECT().Resolve(
		gomock.Any(), caseID, id.ReviewerRef("reviewer-a"), domain.OutcomeRejected, "",
	).Return(nil, dErrors.New(dErrors.CodeInvalidState, "case is submitted, not awaiting review"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/review/cases/"+caseID.String()+"/resolve",
		resolveBody(s.T(), "reviewer-a", "rejected", "")))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}
