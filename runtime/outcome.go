package runtime

import (
	"errors"

	"github.com/pithecene-io/genoa/types"
)

// Process exit codes.
const (
	ExitCodeSuccess         = 0 // requested target satisfied
	ExitCodeToolFailure     = 1 // tool failure or unexpected error
	ExitCodeConfiguration   = 2 // bad or contradictory settings
	ExitCodeDependencyGraph = 3 // broken stage graph
	ExitCodeEnvironment     = 4 // missing executable, runtime or image
)

// ExitCodeFor maps a run error to the process exit code. A nil error is
// success; anything outside the taxonomy (including interruption) is 1.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, types.ErrConfiguration):
		return ExitCodeConfiguration
	case errors.Is(err, types.ErrDependency):
		return ExitCodeDependencyGraph
	case errors.Is(err, types.ErrEnvironment):
		return ExitCodeEnvironment
	default:
		return ExitCodeToolFailure
	}
}
