package lode

import (
	"time"

	"github.com/pithecene-io/genoa/metrics"
	"github.com/pithecene-io/genoa/runtime"
)

// Record kinds, also the last partition key of the history dataset.
const (
	RecordKindRun   = "run"
	RecordKindStage = "stage"
)

// dayFormat is the layout of the day partition.
const dayFormat = "2006-01-02"

// RunRecord is one row per pipeline run.
type RunRecord struct {
	Organism      string
	Day           string
	RunID         string
	Target        string
	Mode          string
	Outcome       string
	FailedStage   string
	Message       string
	ExitCode      int
	StagesRun     int
	StagesSkipped int
	DurationMs    int64
	CompletedAt   time.Time
	Metrics       *metrics.Snapshot
}

// StageRecord is one row per stage the run planned.
type StageRecord struct {
	Organism   string
	Day        string
	RunID      string
	Stage      string
	Status     string
	ExitCode   int
	DurationMs int64
	LogPath    string
	Error      string
}

// NewRecords builds the run record and per-stage records for result.
func NewRecords(result *runtime.RunResult, organism string, snap *metrics.Snapshot, exitCode int, completedAt time.Time) (RunRecord, []StageRecord) {
	completedAt = completedAt.UTC()
	day := completedAt.Format(dayFormat)
	runID := ""
	if result.RunMeta != nil {
		runID = result.RunMeta.RunID
	}

	ran, skipped := result.Counts()
	run := RunRecord{
		Organism:      organism,
		Day:           day,
		RunID:         runID,
		Target:        result.Target,
		Mode:          string(result.Mode),
		Outcome:       string(result.Outcome),
		FailedStage:   result.FailedStage(),
		ExitCode:      exitCode,
		StagesRun:     ran,
		StagesSkipped: skipped,
		DurationMs:    result.Duration.Milliseconds(),
		CompletedAt:   completedAt,
		Metrics:       snap,
	}
	if result.Err != nil {
		run.Message = result.Err.Error()
	}

	stages := make([]StageRecord, 0, len(result.Stages))
	for _, s := range result.Stages {
		stages = append(stages, StageRecord{
			Organism:   organism,
			Day:        day,
			RunID:      runID,
			Stage:      s.Name,
			Status:     string(s.Status),
			ExitCode:   s.ExitCode,
			DurationMs: s.Duration.Milliseconds(),
			LogPath:    s.LogPath,
			Error:      s.Error,
		})
	}
	return run, stages
}

func (r RunRecord) toMap() map[string]any {
	m := map[string]any{
		"record_kind":    RecordKindRun,
		"organism":       r.Organism,
		"day":            r.Day,
		"run_id":         r.RunID,
		"target":         r.Target,
		"mode":           r.Mode,
		"outcome":        r.Outcome,
		"exit_code":      r.ExitCode,
		"stages_run":     r.StagesRun,
		"stages_skipped": r.StagesSkipped,
		"duration_ms":    r.DurationMs,
		"completed_at":   r.CompletedAt.Format(time.RFC3339Nano),
	}
	if r.FailedStage != "" {
		m["failed_stage"] = r.FailedStage
	}
	if r.Message != "" {
		m["message"] = r.Message
	}
	if r.Metrics != nil {
		m["metrics"] = map[string]any{
			"stages_planned":        r.Metrics.StagesPlanned,
			"stages_skipped":        r.Metrics.StagesSkipped,
			"stages_started":        r.Metrics.StagesStarted,
			"stages_succeeded":      r.Metrics.StagesSucceeded,
			"stages_failed":         r.Metrics.StagesFailed,
			"tool_launch_failures":  r.Metrics.ToolLaunchFailure,
			"marker_writes":         r.Metrics.MarkerWrites,
			"marker_write_failures": r.Metrics.MarkerWriteFailures,
			"sandbox":               r.Metrics.Sandbox,
			"marker_backend":        r.Metrics.MarkerBackend,
		}
	}
	return m
}

func runRecordFromMap(m map[string]any) RunRecord {
	r := RunRecord{
		Organism:      toString(m["organism"]),
		Day:           toString(m["day"]),
		RunID:         toString(m["run_id"]),
		Target:        toString(m["target"]),
		Mode:          toString(m["mode"]),
		Outcome:       toString(m["outcome"]),
		FailedStage:   toString(m["failed_stage"]),
		Message:       toString(m["message"]),
		ExitCode:      int(toInt64(m["exit_code"])),
		StagesRun:     int(toInt64(m["stages_run"])),
		StagesSkipped: int(toInt64(m["stages_skipped"])),
		DurationMs:    toInt64(m["duration_ms"]),
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(m["completed_at"])); err == nil {
		r.CompletedAt = ts
	}
	if mm, ok := m["metrics"].(map[string]any); ok {
		r.Metrics = &metrics.Snapshot{
			StagesPlanned:       toInt64(mm["stages_planned"]),
			StagesSkipped:       toInt64(mm["stages_skipped"]),
			StagesStarted:       toInt64(mm["stages_started"]),
			StagesSucceeded:     toInt64(mm["stages_succeeded"]),
			StagesFailed:        toInt64(mm["stages_failed"]),
			ToolLaunchFailure:   toInt64(mm["tool_launch_failures"]),
			MarkerWrites:        toInt64(mm["marker_writes"]),
			MarkerWriteFailures: toInt64(mm["marker_write_failures"]),
			Mode:                r.Mode,
			Sandbox:             toString(mm["sandbox"]),
			MarkerBackend:       toString(mm["marker_backend"]),
			RunID:               r.RunID,
		}
	}
	return r
}

func (s StageRecord) toMap() map[string]any {
	m := map[string]any{
		"record_kind": RecordKindStage,
		"organism":    s.Organism,
		"day":         s.Day,
		"run_id":      s.RunID,
		"stage":       s.Stage,
		"status":      s.Status,
		"exit_code":   s.ExitCode,
		"duration_ms": s.DurationMs,
		"log_path":    s.LogPath,
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}

func stageRecordFromMap(m map[string]any) StageRecord {
	return StageRecord{
		Organism:   toString(m["organism"]),
		Day:        toString(m["day"]),
		RunID:      toString(m["run_id"]),
		Stage:      toString(m["stage"]),
		Status:     toString(m["status"]),
		ExitCode:   int(toInt64(m["exit_code"])),
		DurationMs: toInt64(m["duration_ms"]),
		LogPath:    toString(m["log_path"]),
		Error:      toString(m["error"]),
	}
}

// toString returns v if it is a string, else "".
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 accepts the numeric types a codec may decode into.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
