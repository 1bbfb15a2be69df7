package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("EP", "none", "fs", "run-001")

	c.AddStagesPlanned(5)
	c.IncStageSkipped()
	c.IncStageSkipped()
	c.IncStageStarted()
	c.IncStageStarted()
	c.IncStageStarted()
	c.IncStageSucceeded()
	c.IncStageSucceeded()
	c.IncStageFailed()
	c.IncToolLaunchFailure()
	c.IncMarkerWrite()
	c.IncMarkerWrite()
	c.IncMarkerWriteFailure()
	c.IncHistoryWriteSuccess()
	c.IncHistoryWriteFailure()
	c.IncHistoryWriteFailure()

	s := c.Snapshot()

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"StagesPlanned", s.StagesPlanned, 5},
		{"StagesSkipped", s.StagesSkipped, 2},
		{"StagesStarted", s.StagesStarted, 3},
		{"StagesSucceeded", s.StagesSucceeded, 2},
		{"StagesFailed", s.StagesFailed, 1},
		{"ToolLaunchFailure", s.ToolLaunchFailure, 1},
		{"MarkerWrites", s.MarkerWrites, 2},
		{"MarkerWriteFailures", s.MarkerWriteFailures, 1},
		{"HistoryWriteSuccess", s.HistoryWriteSuccess, 1},
		{"HistoryWriteFailure", s.HistoryWriteFailure, 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("ETP", "singularity", "redis", "run-42")
	s := c.Snapshot()

	if s.Mode != "ETP" {
		t.Errorf("Mode = %q, want %q", s.Mode, "ETP")
	}
	if s.Sandbox != "singularity" {
		t.Errorf("Sandbox = %q, want %q", s.Sandbox, "singularity")
	}
	if s.MarkerBackend != "redis" {
		t.Errorf("MarkerBackend = %q, want %q", s.MarkerBackend, "redis")
	}
	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("EP", "none", "fs", "run-001")
	c.IncStageStarted()
	c.IncMarkerWrite()

	s1 := c.Snapshot()

	c.IncStageSucceeded()
	c.IncMarkerWrite()
	c.IncMarkerWrite()

	if s1.StagesSucceeded != 0 {
		t.Errorf("s1.StagesSucceeded = %d, want 0 (snapshot should be frozen)", s1.StagesSucceeded)
	}
	if s1.MarkerWrites != 1 {
		t.Errorf("s1.MarkerWrites = %d, want 1 (snapshot should be frozen)", s1.MarkerWrites)
	}

	s2 := c.Snapshot()
	if s2.StagesSucceeded != 1 {
		t.Errorf("s2.StagesSucceeded = %d, want 1", s2.StagesSucceeded)
	}
	if s2.MarkerWrites != 3 {
		t.Errorf("s2.MarkerWrites = %d, want 3", s2.MarkerWrites)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.AddStagesPlanned(3)
	c.IncStageSkipped()
	c.IncStageStarted()
	c.IncStageSucceeded()
	c.IncStageFailed()
	c.IncToolLaunchFailure()
	c.IncMarkerWrite()
	c.IncMarkerWriteFailure()
	c.IncHistoryWriteSuccess()
	c.IncHistoryWriteFailure()

	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("EP", "none", "fs", "run-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncStageStarted()
				c.IncMarkerWrite()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.StagesStarted != want {
		t.Errorf("StagesStarted = %d, want %d", s.StagesStarted, want)
	}
	if s.MarkerWrites != want {
		t.Errorf("MarkerWrites = %d, want %d", s.MarkerWrites, want)
	}
}
