// Package rule contains the pure business logic for exception rules:
// validation guards and the coded error taxonomy surfaced to callers.
package rule

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into the machine-checkable taxonomy.
type Kind int

const (
	// KindUnknown covers errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation - empty/invalid name, type, or scope. Never retried.
	KindValidation
	// KindDuplicateName - exact-match collision on an active rule. Never retried.
	KindDuplicateName
	// KindNotFound - id does not resolve, including unknown temporary ids.
	KindNotFound
	// KindStorage - external store failure. Retried by the coordinator.
	KindStorage
	// KindTimeout - an attempt exceeded its window. Retried by the coordinator.
	KindTimeout
	// KindCancelled - operation cancelled before completion.
	KindCancelled
)

// String returns the short name for a kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateName:
		return "duplicate_name"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a structured error carrying a kind, a human-readable message,
// an optional wrapped cause, and (for duplicate collisions) alternative
// name suggestions.
type Error struct {
	kind        Kind
	message     string
	cause       error
	suggestions []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() Kind {
	return e.kind
}

// Suggestions returns alternative names attached to a duplicate-name error.
func (e *Error) Suggestions() []string {
	return e.suggestions
}

// Is matches errors by kind so callers can use errors.Is with a sentinel
// built via NewError(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind
}

// NewError creates an error with an explicit kind.
func NewError(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// NewValidation creates a validation error.
func NewValidation(format string, args ...any) *Error {
	return &Error{kind: KindValidation, message: fmt.Sprintf(format, args...)}
}

// NewDuplicateName creates a duplicate-name error carrying suggestions.
func NewDuplicateName(name string, suggestions []string) *Error {
	return &Error{
		kind:        KindDuplicateName,
		message:     fmt.Sprintf("an active rule named %q already exists", name),
		suggestions: suggestions,
	}
}

// NewNotFound creates a not-found error for an id.
func NewNotFound(id string) *Error {
	return &Error{kind: KindNotFound, message: fmt.Sprintf("rule %s not found", id)}
}

// WrapStorage wraps a store failure.
func WrapStorage(err error, message string) *Error {
	return &Error{kind: KindStorage, message: message, cause: err}
}

// NewCancelled creates a cancellation error for an operation id.
func NewCancelled(id string) *Error {
	return &Error{kind: KindCancelled, message: fmt.Sprintf("operation %s cancelled", id)}
}

// KindOf extracts the taxonomy kind from any error. Errors outside the
// taxonomy report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}
