// Package analysis wraps the external document analysis service. The client
// validates responses against the Assessment schema and fails fast on
// violations; it never interprets or branches on assessment content. Retry
// policy belongs to the caller.
package analysis

import (
	"context"
	"errors"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

// Typed failures for the caller's retry policy. A malformed response is as
// unusable as no response, so schema violations surface as ErrUnavailable.
var (
	ErrUnavailable = errors.New("analysis service unavailable")
	ErrTimeout     = errors.New("analysis service timeout")
)

// Metadata is free-form subject context forwarded to the analysis service.
type Metadata map[string]string

// Client obtains a structured assessment for a set of document references.
type Client interface {
	Analyze(ctx context.Context, documentRefs []id.DocumentRef, subjectContext Metadata) (*domain.Assessment, error)
}
