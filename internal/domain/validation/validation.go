// Package validation defines the typed error returned by the scoring and
// royalty engines when their inputs or configuration are malformed.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is the sentinel kind shared by every validation failure.
var ErrInvalid = errors.New("validation failed")

// Error describes one rejected input.
type Error struct {
	Op     string // operation that rejected the input, e.g. "competition.compute_scores"
	Field  string // offending field or parameter
	Reason string
}

// New returns a validation error for op/field.
func New(op, field, reason string) *Error {
	return &Error{Op: op, Field: field, Reason: reason}
}

// Newf is New with a formatted reason.
func Newf(op, field, format string, args ...any) *Error {
	return &Error{Op: op, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

// Component is the part of Op before the first dot, e.g. "royalty".
func (e *Error) Component() string {
	component, _, _ := strings.Cut(e.Op, ".")
	return component
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *Error) Unwrap() error { return ErrInvalid }

// Is reports whether err is (or wraps) a validation failure.
func Is(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// As extracts the *Error carried by err, if any.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
