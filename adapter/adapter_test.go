package adapter

import (
	"testing"
	"time"

	"github.com/pithecene-io/genoa/evidence"
	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/types"
)

func TestNewEvent(t *testing.T) {
	err := &types.ToolExecutionError{Stage: types.StageRepeatMasker, ExitCode: 2, LogPath: "/w/logs/repeat_masker.log"}
	result := &runtime.RunResult{
		RunMeta: &types.RunMeta{RunID: "run-1", Target: "all"},
		Target:  types.StageGeneAnnotation,
		Mode:    evidence.ModeEP,
		Outcome: types.OutcomeToolFailure,
		Stages: []runtime.StageResult{
			{Name: types.StageBusco, Status: types.StageSkipped},
			{Name: types.StageRepeatDatabase, Status: types.StageSucceeded},
			{Name: types.StageRepeatModeler, Status: types.StageSucceeded},
			{Name: types.StageRepeatMasker, Status: types.StageFailed},
			{Name: types.StageGeneAnnotation, Status: types.StagePending},
		},
		Duration: 1500 * time.Millisecond,
		Err:      err,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	ev := NewEvent(result, "dmel", now)

	if ev.EventType != EventType || ev.RunID != "run-1" || ev.Organism != "dmel" {
		t.Errorf("identity = %+v", ev)
	}
	if ev.Mode != "EP" || ev.Outcome != "tool_failure" || ev.FailedStage != types.StageRepeatMasker {
		t.Errorf("outcome = %+v", ev)
	}
	if ev.StagesRun != 3 || ev.StagesSkipped != 1 {
		t.Errorf("StagesRun = %d, StagesSkipped = %d", ev.StagesRun, ev.StagesSkipped)
	}
	if ev.DurationMs != 1500 {
		t.Errorf("DurationMs = %d", ev.DurationMs)
	}
	if ev.Timestamp != "2026-03-01T11:00:00Z" {
		t.Errorf("Timestamp = %q", ev.Timestamp)
	}
	if ev.Message != err.Error() {
		t.Errorf("Message = %q", ev.Message)
	}
}

func TestNewEvent_Success(t *testing.T) {
	ev := NewEvent(&runtime.RunResult{Outcome: types.OutcomeSuccess}, "dmel", time.Now())
	if ev.RunID != "" || ev.FailedStage != "" || ev.Message != "" {
		t.Errorf("event = %+v", ev)
	}
}
