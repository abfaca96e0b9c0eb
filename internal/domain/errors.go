package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error categories the service produces. The
// HTTP layer maps kinds to status codes; everything else passes errors around
// without inspecting transport concerns.
type ErrorKind string

const (
	KindInvalidState ErrorKind = "invalid_state"
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindProvider     ErrorKind = "provider"
	KindInternal     ErrorKind = "internal"
)

// Error carries a stable kind alongside a user-presentable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound constructs a not-found error for the named resource.
func ErrNotFound(resource string) *Error {
	return NewError(KindNotFound, "%s not found", resource)
}

// ErrInvalidTransition reports an operation attempted from an ineligible status.
func ErrInvalidTransition(entityType EntityType, jobType JobType, from Status) *Error {
	return NewError(KindInvalidState, "cannot run %s on %s while %s", jobType, entityType, from)
}

// KindOf extracts the error kind, defaulting to internal for plain errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
