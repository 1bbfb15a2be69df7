// Package types defines core domain types for the genoa pipeline runner.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"context"
	"errors"
	"strings"
)

// TargetAll names the full pipeline closure.
const TargetAll = "all"

// RunMeta identifies a single pipeline invocation.
type RunMeta struct {
	// RunID is the unique run identifier (a UUID unless supplied).
	RunID string
	// Target is the requested stage name or TargetAll.
	Target string
	// Organism is the organism label from settings, carried for log context.
	Organism string
}

// Validate checks that run identity is usable for logging and history.
func (r *RunMeta) Validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("run_id must be non-empty")
	}
	if strings.TrimSpace(r.Target) == "" {
		return errors.New("target must be non-empty")
	}
	return nil
}

// OutcomeStatus is the final status of a pipeline run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every stage in the plan is satisfied.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeToolFailure indicates an external tool exited non-zero.
	OutcomeToolFailure OutcomeStatus = "tool_failure"
	// OutcomeConfigError indicates invalid user settings.
	OutcomeConfigError OutcomeStatus = "config_error"
	// OutcomeDependencyError indicates a broken stage graph.
	OutcomeDependencyError OutcomeStatus = "dependency_error"
	// OutcomeEnvironmentError indicates a missing executable, runtime or image.
	OutcomeEnvironmentError OutcomeStatus = "environment_error"
	// OutcomeInterrupted indicates the run was cancelled mid-stage.
	OutcomeInterrupted OutcomeStatus = "interrupted"
	// OutcomeInternalError covers everything else (marker store I/O, log files).
	OutcomeInternalError OutcomeStatus = "internal_error"
)

// StageStatus is the per-stage result within a run.
type StageStatus string

const (
	// StageSkipped means a completion marker already existed.
	StageSkipped StageStatus = "skipped"
	// StageSucceeded means the action exited zero and the marker was written.
	StageSucceeded StageStatus = "succeeded"
	// StageFailed means the action failed; no marker was written.
	StageFailed StageStatus = "failed"
	// StagePending is used by plans: the stage would run.
	StagePending StageStatus = "pending"
)

// OutcomeForError classifies a run error into an OutcomeStatus.
// A nil error is a success.
func OutcomeForError(err error) OutcomeStatus {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrConfiguration):
		return OutcomeConfigError
	case errors.Is(err, ErrDependency):
		return OutcomeDependencyError
	case errors.Is(err, ErrEnvironment):
		return OutcomeEnvironmentError
	case errors.Is(err, ErrToolExecution):
		return OutcomeToolFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeInterrupted
	default:
		return OutcomeInternalError
	}
}
