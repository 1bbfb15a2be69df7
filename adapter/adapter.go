// Package adapter defines the completion notification boundary.
//
// Adapters publish a pipeline_completed event to a downstream system after
// every run. Publishing is best effort: callers log failures and never let
// them change the run's exit code.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/types"
)

// EventType is the event_type of every completion event.
const EventType = "pipeline_completed"

// PipelineCompletedEvent is the payload published when a run finishes.
type PipelineCompletedEvent struct {
	EventType     string `json:"event_type"` // always "pipeline_completed"
	Version       string `json:"version"`
	RunID         string `json:"run_id"`
	Target        string `json:"target"`
	Mode          string `json:"mode"`
	Organism      string `json:"organism"`
	Outcome       string `json:"outcome"` // success, tool_failure, etc.
	FailedStage   string `json:"failed_stage,omitempty"`
	Message       string `json:"message,omitempty"`
	StagesRun     int    `json:"stages_run"`
	StagesSkipped int    `json:"stages_skipped"`
	DurationMs    int64  `json:"duration_ms"`
	Timestamp     string `json:"timestamp"` // RFC 3339
}

// NewEvent builds the completion event for result.
func NewEvent(result *runtime.RunResult, organism string, now time.Time) *PipelineCompletedEvent {
	ran, skipped := result.Counts()
	ev := &PipelineCompletedEvent{
		EventType:     EventType,
		Version:       types.Version,
		Target:        result.Target,
		Mode:          string(result.Mode),
		Organism:      organism,
		Outcome:       string(result.Outcome),
		FailedStage:   result.FailedStage(),
		StagesRun:     ran,
		StagesSkipped: skipped,
		DurationMs:    result.Duration.Milliseconds(),
		Timestamp:     now.UTC().Format(time.RFC3339),
	}
	if result.RunMeta != nil {
		ev.RunID = result.RunMeta.RunID
	}
	if result.Err != nil {
		ev.Message = result.Err.Error()
	}
	return ev
}

// Adapter publishes completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *PipelineCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
