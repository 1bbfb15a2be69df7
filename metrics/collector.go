// Package metrics provides per-run pipeline counters.
//
// The Collector accumulates counters during a single pipeline run. It is a
// leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Stage lifecycle
	StagesPlanned   int64 `json:"stages_planned"`
	StagesSkipped   int64 `json:"stages_skipped"`
	StagesStarted   int64 `json:"stages_started"`
	StagesSucceeded int64 `json:"stages_succeeded"`
	StagesFailed    int64 `json:"stages_failed"`

	// Tool launches
	ToolLaunchFailure int64 `json:"tool_launch_failure"`

	// Markers
	MarkerWrites        int64 `json:"marker_writes"`
	MarkerWriteFailures int64 `json:"marker_write_failures"`

	// History (Lode) writes, per call
	HistoryWriteSuccess int64 `json:"history_write_success"`
	HistoryWriteFailure int64 `json:"history_write_failure"`

	// Dimensions (informational, set at construction)
	Mode          string `json:"mode"`
	Sandbox       string `json:"sandbox"`
	MarkerBackend string `json:"marker_backend"`
	RunID         string `json:"run_id"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	stagesPlanned   int64
	stagesSkipped   int64
	stagesStarted   int64
	stagesSucceeded int64
	stagesFailed    int64

	toolLaunchFailure int64

	markerWrites        int64
	markerWriteFailures int64

	historyWriteSuccess int64
	historyWriteFailure int64

	mode          string
	sandbox       string
	markerBackend string
	runID         string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(mode, sandbox, markerBackend, runID string) *Collector {
	return &Collector{
		mode:          mode,
		sandbox:       sandbox,
		markerBackend: markerBackend,
		runID:         runID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Stage lifecycle ---

// AddStagesPlanned records the size of the execution plan.
func (c *Collector) AddStagesPlanned(n int) {
	if c == nil {
		return
	}
	c.add(&c.stagesPlanned, int64(n))
}

// IncStageSkipped records a stage skipped because its marker was present.
func (c *Collector) IncStageSkipped() {
	if c == nil {
		return
	}
	c.add(&c.stagesSkipped, 1)
}

// IncStageStarted records a stage action launch attempt.
func (c *Collector) IncStageStarted() {
	if c == nil {
		return
	}
	c.add(&c.stagesStarted, 1)
}

// IncStageSucceeded records a stage action that exited successfully.
func (c *Collector) IncStageSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.stagesSucceeded, 1)
}

// IncStageFailed records a stage action failure of any kind.
func (c *Collector) IncStageFailed() {
	if c == nil {
		return
	}
	c.add(&c.stagesFailed, 1)
}

// IncToolLaunchFailure records a tool that could not be started
// (missing executable, runtime or image).
func (c *Collector) IncToolLaunchFailure() {
	if c == nil {
		return
	}
	c.add(&c.toolLaunchFailure, 1)
}

// --- Markers ---

// IncMarkerWrite records a completion marker written.
func (c *Collector) IncMarkerWrite() {
	if c == nil {
		return
	}
	c.add(&c.markerWrites, 1)
}

// IncMarkerWriteFailure records a failed marker write.
func (c *Collector) IncMarkerWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.markerWriteFailures, 1)
}

// --- History ---
// History counters are per-call, not per-record.

// IncHistoryWriteSuccess records a successful history write.
func (c *Collector) IncHistoryWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.historyWriteSuccess, 1)
}

// IncHistoryWriteFailure records a failed history write.
func (c *Collector) IncHistoryWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.historyWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		StagesPlanned:   c.stagesPlanned,
		StagesSkipped:   c.stagesSkipped,
		StagesStarted:   c.stagesStarted,
		StagesSucceeded: c.stagesSucceeded,
		StagesFailed:    c.stagesFailed,

		ToolLaunchFailure: c.toolLaunchFailure,

		MarkerWrites:        c.markerWrites,
		MarkerWriteFailures: c.markerWriteFailures,

		HistoryWriteSuccess: c.historyWriteSuccess,
		HistoryWriteFailure: c.historyWriteFailure,

		Mode:          c.mode,
		Sandbox:       c.sandbox,
		MarkerBackend: c.markerBackend,
		RunID:         c.runID,
	}
}
