// Package marker tracks stage completion.
//
// A marker is a durable fact meaning "stage X completed successfully as of
// its last run". Markers are written only after a stage's action succeeds,
// are never partially visible, and are never invalidated by input changes:
// only Delete and Clear remove them.
//
// Stores assume a single writer. Running two pipelines against the same
// store concurrently is not defended against.
package marker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/genoa/types"
)

// Backends.
const (
	BackendFS     = "fs"
	BackendMemory = "memory" // in-process, for tests; not offered by Open
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// ErrNotFound is returned by Get when no marker exists for a stage.
var ErrNotFound = errors.New("marker not found")

// Record is the persisted marker body. Presence alone decides completion;
// the fields are informational.
type Record struct {
	Version     int    `msgpack:"version"`
	Stage       string `msgpack:"stage"`
	RunID       string `msgpack:"run_id"`
	CompletedAt string `msgpack:"completed_at"`
	DurationMS  int64  `msgpack:"duration_ms"`
	ExitCode    int    `msgpack:"exit_code"`
	Mode        string `msgpack:"mode"`
}

// NewRecord returns a record for stage completed at now.
func NewRecord(stage, runID, mode string, d time.Duration, now time.Time) Record {
	return Record{
		Version:     types.MarkerFormatVersion,
		Stage:       stage,
		RunID:       runID,
		CompletedAt: now.UTC().Format(time.RFC3339),
		DurationMS:  d.Milliseconds(),
		Mode:        mode,
	}
}

// Store persists completion markers keyed by stage name.
type Store interface {
	// Done reports whether a marker exists for stage.
	Done(ctx context.Context, stage string) (bool, error)
	// Get returns the marker for stage, or ErrNotFound.
	Get(ctx context.Context, stage string) (*Record, error)
	// Put records rec atomically: a concurrent or crashed Put never leaves
	// a marker that Done reports as present with partial content.
	Put(ctx context.Context, rec Record) error
	// Delete removes the marker for stage. Deleting an absent marker is not an error.
	Delete(ctx context.Context, stage string) error
	// Clear removes every marker.
	Clear(ctx context.Context) error
	// Location describes where markers live, for display.
	Location() string
}

// Encode serializes rec with msgpack.
func Encode(rec Record) ([]byte, error) {
	if rec.Stage == "" {
		return nil, errors.New("marker record requires a stage")
	}
	b, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode marker %s: %w", rec.Stage, err)
	}
	return b, nil
}

// Decode parses a msgpack marker body.
func Decode(b []byte) (*Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode marker: %w", err)
	}
	return &rec, nil
}
