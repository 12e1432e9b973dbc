package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

const tracerName = "drivepass/analysis"

// analyzeRequest is the single RPC payload: document references, free-form
// contextual metadata, and the declared output schema. No streaming, no
// partial results.
type analyzeRequest struct {
	Documents    []string          `json:"documents"`
	Context      map[string]string `json:"context,omitempty"`
	OutputSchema json.RawMessage   `json:"output_schema"`
}

// assessmentSchema declares the structured-output contract to the service.
// Kept as raw JSON; the service echoes an object matching it.
var assessmentSchema = json.RawMessage(`{
	"type": "object",
	"required": [
		"is_authentic", "forgery_detected", "forgery_confidence",
		"photo_match", "photo_match_confidence", "document_expired",
		"tampering_detected", "image_quality_score", "risk_tier",
		"overall_confidence"
	],
	"properties": {
		"is_authentic": {"type": "boolean"},
		"forgery_detected": {"type": "boolean"},
		"forgery_confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"photo_match": {"type": "boolean"},
		"photo_match_confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"document_expired": {"type": "boolean"},
		"tampering_detected": {"type": "boolean"},
		"tampering_indicators": {"type": "array", "items": {"type": "string"}},
		"image_quality_score": {"type": "number", "minimum": 0, "maximum": 1},
		"flags": {"type": "array", "items": {"type": "string"}},
		"risk_tier": {"enum": ["low", "medium", "high", "critical"]},
		"overall_confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`)

// HTTPClient calls the analysis service over plain HTTP with a bounded wait.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	tracer   trace.Tracer
}

// NewHTTPClient builds a client for the given endpoint. timeout bounds each
// Analyze call; zero falls back to 30s.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
		tracer:   otel.Tracer(tracerName),
	}
}

// Analyze submits the documents and returns a validated assessment.
// Fails with ErrTimeout when no response arrives within the bounded wait and
// ErrUnavailable on transport failures, non-2xx statuses, or responses that
// violate the Assessment schema.
func (c *HTTPClient) Analyze(ctx context.Context, documentRefs []id.DocumentRef, subjectContext Metadata) (*domain.Assessment, error) {
	ctx, span := c.tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(attribute.Int("documents.count", len(documentRefs))),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docs := make([]string, len(documentRefs))
	for i, ref := range documentRefs {
		docs[i] = ref.String()
	}
	body, err := json.Marshal(analyzeRequest{
		Documents:    docs,
		Context:      subjectContext,
		OutputSchema: assessmentSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within %s", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var wire wireAssessment
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrUnavailable, err)
	}
	assessment, err := wire.toAssessment()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return assessment, nil
}
