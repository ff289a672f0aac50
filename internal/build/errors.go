package build

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrRender              = errors.New("rendered script is not a valid Dockerfile")
	ErrFileSystemOperation = errors.New("file system operation failed")
)

// Reports a macro that cannot be expanded in the context of its spec.
//
// These problems depend on earlier instructions (which environments exist)
// and are therefore not caught by validation.
type ExpansionError struct {
	Index  int    // Position of the macro in the instruction list.
	Reason string // Human-readable description of the problem.
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("instructions[%d] (miniconda): %s", e.Index, e.Reason)
}

// Classifies expansion errors as invalid arguments.
func (e *ExpansionError) Is(target error) bool {
	return target == errdefs.ErrInvalidArgument
}

func expansionErrorf(index int, format string, args ...any) *ExpansionError {
	return &ExpansionError{Index: index, Reason: fmt.Sprintf(format, args...)}
}
