package types

import (
	"errors"
	"fmt"
)

// Sentinel kinds for errors.Is classification.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDependency    = errors.New("dependency error")
	ErrEnvironment   = errors.New("environment error")
	ErrToolExecution = errors.New("tool execution error")
)

// ConfigurationError reports bad, missing or contradictory user input.
// It is always raised before any stage runs.
type ConfigurationError struct {
	// Field is the offending setting, if one can be named.
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Msg)
	}
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Msg)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// DependencyError reports a declared predecessor that is unsatisfied when
// its successor is about to run. It indicates a graph-construction defect.
type DependencyError struct {
	Stage       string
	Predecessor string
	Msg         string
}

func (e *DependencyError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "predecessor is not satisfied"
	}
	if e.Predecessor != "" {
		return fmt.Sprintf("%v: stage %s: predecessor %s: %s", ErrDependency, e.Stage, e.Predecessor, msg)
	}
	return fmt.Sprintf("%v: stage %s: %s", ErrDependency, e.Stage, msg)
}

// Is matches ErrDependency.
func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

// EnvironmentError reports a missing executable, sandbox runtime or image.
type EnvironmentError struct {
	Stage string
	// Hint tells the operator how to fix the environment.
	Hint string
	Err  error
}

func (e *EnvironmentError) Error() string {
	msg := fmt.Sprintf("%v: stage %s", ErrEnvironment, e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

// Is matches ErrEnvironment.
func (e *EnvironmentError) Is(target error) bool { return target == ErrEnvironment }

// Unwrap returns the underlying cause.
func (e *EnvironmentError) Unwrap() error { return e.Err }

// ToolExecutionError reports an external tool that ran and exited non-zero.
type ToolExecutionError struct {
	Stage    string
	ExitCode int
	// LogPath is where the tool's combined output was captured.
	LogPath string
}

func (e *ToolExecutionError) Error() string {
	msg := fmt.Sprintf("%v: stage %s exited with status %d", ErrToolExecution, e.Stage, e.ExitCode)
	if e.LogPath != "" {
		msg += " (log: " + e.LogPath + ")"
	}
	return msg
}

// Is matches ErrToolExecution.
func (e *ToolExecutionError) Is(target error) bool { return target == ErrToolExecution }

// FailedStage extracts the stage name from any stage-scoped error in err's chain.
// Returns "" when no stage can be named.
func FailedStage(err error) string {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return depErr.Stage
	}
	var envErr *EnvironmentError
	if errors.As(err, &envErr) {
		return envErr.Stage
	}
	var toolErr *ToolExecutionError
	if errors.As(err, &toolErr) {
		return toolErr.Stage
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// StageError attaches a stage name to an error that carries none,
// such as a marker-store failure or a context cancellation.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }
