// Package id defines strongly typed identifiers shared across modules.
//
// IDs are constructed via Parse* functions at trust boundaries so that a raw
// string from a request or a webhook never flows into a store untyped.
package id

import (
	"github.com/google/uuid"

	dErrors "losbridge/pkg/domain-errors"
)

// ApplicationID identifies a platform loan application.
type ApplicationID struct {
	value uuid.UUID
}

// NewApplicationID generates a fresh application ID.
func NewApplicationID() ApplicationID {
	return ApplicationID{value: uuid.New()}
}

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid application id")
	}
	return ApplicationID{value: parsed}, nil
}

func (a ApplicationID) String() string { return a.value.String() }

// IsNil reports whether the ID is the zero value.
func (a ApplicationID) IsNil() bool { return a.value == uuid.Nil }

// ExternalLoanID is the opaque identifier the external system assigns to a
// loan record. It is not a UUID on every LOS, so it stays an opaque string.
type ExternalLoanID string

// ParseExternalLoanID validates an external loan identifier.
func ParseExternalLoanID(s string) (ExternalLoanID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "external loan id cannot be empty")
	}
	return ExternalLoanID(s), nil
}

func (e ExternalLoanID) String() string { return string(e) }

// IsZero reports whether the ID is unset.
func (e ExternalLoanID) IsZero() bool { return e == "" }
