// Package domainerrors defines coded domain errors shared across services.
//
// Services return these instead of transport errors so that handlers can map
// them to HTTP statuses in one place and callers can branch on the code
// without string matching.
package domainerrors

import "errors"

// Code classifies a domain error.
type Code string

const (
	// CodeNotConfigured signals a missing prerequisite (no credentials, no
	// link). Fatal for the current call; never retried automatically.
	CodeNotConfigured Code = "not_configured"

	// CodeNotFound signals a referenced application, link, or external loan
	// that does not exist.
	CodeNotFound Code = "not_found"

	// CodeExternalCall signals a failed call to the external system
	// (network error or a 4xx/5xx response). The caller decides whether to
	// retry; link state is updated before this is surfaced.
	CodeExternalCall Code = "external_call_failed"

	// CodeMapping signals an unexpected shape in a field transform. Transforms
	// degrade to identity rather than fail, so this is rare and structural,
	// not transient.
	CodeMapping Code = "mapping_error"

	// CodeInvalidInput signals a request the caller can fix.
	CodeInvalidInput Code = "invalid_input"

	// CodeInternal signals an unexpected failure inside this service.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain error that wraps an underlying cause. errors.Is and
// errors.As keep working through the wrap.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, walking the wrap chain. Non-domain errors
// report CodeInternal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
