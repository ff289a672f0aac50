package descriptor

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrEscape = errors.New("malformed escape sequence")
)

// Reports a descriptor that cannot be encoded: it fails validation or does
// not survive the encoding round trip.
type EncodingError struct {
	Command string // Name of the offending command, empty if unknown.
	Field   string // JSON field name of the offending value.
	Reason  string // Human-readable description of the violation.
}

func (e *EncodingError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("command descriptor: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("command descriptor %q: %s: %s", e.Command, e.Field, e.Reason)
}

// Classifies encoding errors as invalid arguments.
func (e *EncodingError) Is(target error) bool {
	return target == errdefs.ErrInvalidArgument
}

func encodingErrorf(cmd, field, format string, args ...any) *EncodingError {
	return &EncodingError{Command: cmd, Field: field, Reason: fmt.Sprintf(format, args...)}
}
