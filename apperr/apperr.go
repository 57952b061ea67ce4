// Package apperr carries the error kinds the service pipelines report.
// Kinds classify failures for the transport layer; the HTTP status mapping
// itself lives with the controllers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindInvalidInput marks missing, out-of-range, or unsupported parameters.
	KindInvalidInput Kind = iota + 1
	// KindNotFound marks a referenced attachment or owner-scoped page that
	// does not exist.
	KindNotFound
	// KindForbidden marks an authorization mismatch on owner or filename.
	KindForbidden
	// KindUpstreamStorage marks an object-store I/O failure, potentially transient.
	KindUpstreamStorage
	// KindInternal marks a metadata/object-store inconsistency or any other
	// invariant violation.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUpstreamStorage:
		return "upstream_storage"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error pairs a kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err. Errors that did not originate in a
// pipeline report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
