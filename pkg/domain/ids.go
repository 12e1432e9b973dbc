// Package domain defines the typed identifiers shared across the service.
//
// IDs generated by this service (CaseID) are UUID-backed so the compiler
// keeps them distinct. References owned by surrounding systems (subjects,
// reviewers, documents) stay opaque strings: we never parse or mint them.
package domain

import (
	"github.com/google/uuid"

	dErrors "drivepass/pkg/domain-errors"
)

// CaseID identifies one verification attempt.
type CaseID uuid.UUID

// NewCaseID mints a fresh case identifier.
func NewCaseID() CaseID {
	return CaseID(uuid.New())
}

// ParseCaseID validates and converts a string into a CaseID.
// IDs must be valid, non-nil UUIDs.
func ParseCaseID(s string) (CaseID, error) {
	if s == "" {
		return CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "case id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return CaseID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "case id must be a valid UUID")
	}
	if u == uuid.Nil {
		return CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "case id must not be the nil UUID")
	}
	return CaseID(u), nil
}

func (id CaseID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id CaseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// SubjectRef is the opaque identifier of the subscription/applicant being
// verified. Owned by the surrounding platform; treated as a black box here.
type SubjectRef string

func (r SubjectRef) String() string { return string(r) }

// ReviewerRef identifies the human who finalized an escalated case.
type ReviewerRef string

func (r ReviewerRef) String() string { return string(r) }

// SystemActor is the actor recorded on audit entries written by the workflow
// itself rather than a human reviewer.
const SystemActor ReviewerRef = "system"

// DocumentRef locates one submitted document (front ID, back ID, selfie).
// The storage mechanics behind the locator are out of scope.
type DocumentRef string

func (r DocumentRef) String() string { return string(r) }
