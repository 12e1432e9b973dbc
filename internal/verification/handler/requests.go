package handler

import (
	"strings"

	id "drivepass/pkg/domain"
	dErrors "drivepass/pkg/domain-errors"
)

// maxDocumentRefs bounds a single submission; real applications attach at
// most a handful of document images.
const maxDocumentRefs = 16

// SubmitCaseRequest is the HTTP request body for POST /verification/cases.
type SubmitCaseRequest struct {
	SubjectRef   string   `json:"subject_ref"`
	DocumentRefs []string `json:"document_refs"`

	parsedDocumentRefs []id.DocumentRef
}

// Validate validates and parses the request.
func (r *SubmitCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.SubjectRef = strings.TrimSpace(r.SubjectRef)
	if r.SubjectRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject_ref is required")
	}

	if len(r.DocumentRefs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one document reference is required")
	}
	if len(r.DocumentRefs) > maxDocumentRefs {
		return dErrors.Newf(dErrors.CodeInvalidInput, "at most %d document references are allowed", maxDocumentRefs)
	}

	r.parsedDocumentRefs = make([]id.DocumentRef, 0, len(r.DocumentRefs))
	for _, ref := range r.DocumentRefs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "document references must not be empty")
		}
		r.parsedDocumentRefs = append(r.parsedDocumentRefs, id.DocumentRef(ref))
	}
	return nil
}

// ParsedSubjectRef returns the validated subject reference.
func (r *SubmitCaseRequest) ParsedSubjectRef() id.SubjectRef {
	return id.SubjectRef(r.SubjectRef)
}

// ParsedDocumentRefs returns the validated document references.
func (r *SubmitCaseRequest) ParsedDocumentRefs() []id.DocumentRef {
	return r.parsedDocumentRefs
}
