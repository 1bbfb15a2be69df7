// Package lode persists run history to a Lode dataset.
//
// Records are JSONL, Hive-partitioned by organism/day/run_id/record_kind.
// Each run is written as a single snapshot holding its stage records and
// one run record.
package lode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the dataset ID of the run history.
const DefaultDataset = "genoa"

// partitionKeys is the Hive layout of the history dataset.
var partitionKeys = []string{"organism", "day", "run_id", "record_kind"}

// ErrNoRuns is returned when the history holds no matching run records.
var ErrNoRuns = errors.New("no runs recorded")

// History reads and writes run history.
type History struct {
	dataset lode.Dataset
}

// NewHistory opens the history dataset over factory.
// Use lode.NewMemoryFactory() for testing.
func NewHistory(factory lode.StoreFactory) (*History, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(DefaultDataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, DefaultDataset)
	}
	return &History{dataset: ds}, nil
}

// NewHistoryFS opens the history dataset rooted at dir.
func NewHistoryFS(dir string) (*History, error) {
	return NewHistory(lode.NewFSFactory(dir))
}

// Record writes one run's records as a single snapshot.
func (h *History) Record(ctx context.Context, run RunRecord, stages []StageRecord) error {
	if run.RunID == "" {
		return errors.New("history: run record requires a run ID")
	}
	records := make([]any, 0, len(stages)+1)
	for _, s := range stages {
		records = append(records, s.toMap())
	}
	records = append(records, run.toMap())

	if _, err := h.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, fmt.Sprintf("%s/run_id=%s", DefaultDataset, run.RunID))
	}
	return nil
}

// Filter narrows history queries. Empty fields match everything.
type Filter struct {
	Organism string
	RunID    string
	// Limit caps the number of runs returned (0 = no limit).
	Limit int
}

// Runs returns run records matching f, newest first.
func (h *History) Runs(ctx context.Context, f Filter) ([]RunRecord, error) {
	var runs []RunRecord
	err := h.scan(ctx, f, func(m map[string]any) {
		if m["record_kind"] == RecordKindRun {
			runs = append(runs, runRecordFromMap(m))
		}
	})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}

	slices.SortStableFunc(runs, func(a, b RunRecord) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})
	if f.Limit > 0 && len(runs) > f.Limit {
		runs = runs[:f.Limit]
	}
	return runs, nil
}

// Stages returns the stage records of one run in the order they were written.
func (h *History) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	if runID == "" {
		return nil, errors.New("history: run ID is required")
	}
	var stages []StageRecord
	err := h.scan(ctx, Filter{RunID: runID}, func(m map[string]any) {
		if m["record_kind"] == RecordKindStage {
			stages = append(stages, stageRecordFromMap(m))
		}
	})
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, ErrNoRuns
	}
	return stages, nil
}

// scan visits every record matching f, newest snapshot first.
func (h *History) scan(ctx context.Context, f Filter, visit func(map[string]any)) error {
	snapshots, err := h.dataset.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, DefaultDataset+"/snapshots")
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		// Manifest paths are a coarse pre-filter; record fields decide.
		if !snapshotMatches(snap, "organism", f.Organism) || !snapshotMatches(snap, "run_id", f.RunID) {
			continue
		}

		data, err := h.dataset.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", DefaultDataset, snap.ID))
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if f.Organism != "" && toString(m["organism"]) != f.Organism {
				continue
			}
			if f.RunID != "" && toString(m["run_id"]) != f.RunID {
				continue
			}
			visit(m)
		}
	}
	return nil
}

// Close releases history resources.
func (h *History) Close() error { return nil }

func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if hasPartition(f.Path, key, value) {
			return true
		}
	}
	return false
}

// hasPartition reports whether path contains the exact key=value segment,
// so run_id=run-1 never matches run_id=run-10.
func hasPartition(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
