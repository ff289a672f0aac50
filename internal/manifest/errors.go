package manifest

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrParse = errors.New("invalid spec file")
)

// Reports a structural violation in a spec.
//
// Index is the 0-based position of the offending instruction, or -1 when
// the problem concerns the spec as a whole.
type ValidationError struct {
	Index  int    // Position in the instruction list, -1 for the spec itself.
	Kind   Kind   // Kind of the offending instruction, if known.
	Field  string // Name of the offending field.
	Reason string // Human-readable description of the violation.
	Err    error  // Underlying cause, if any.
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("spec: %s: %s", e.Field, e.Reason)
	}
	if e.Kind == "" {
		return fmt.Sprintf("instructions[%d]: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("instructions[%d] (%s): %s: %s", e.Index, e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Classifies validation errors as invalid arguments.
func (e *ValidationError) Is(target error) bool {
	return target == errdefs.ErrInvalidArgument
}

func invalidf(index int, kind Kind, field, format string, args ...any) *ValidationError {
	return &ValidationError{Index: index, Kind: kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}
