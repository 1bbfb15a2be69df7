package runtime

import (
	"context"

	"github.com/pithecene-io/genoa/marker"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/stage"
)

// StageState is one row of `genoa status`.
type StageState struct {
	Name       string
	Applicable bool
	Done       bool
	// Marker is the completion record when Done and readable.
	Marker    *marker.Record
	OutputDir string
	LogPath   string
}

// Status reports applicability and marker state for every catalog stage,
// in declaration order. A marker that exists but cannot be decoded still
// counts as done.
func Status(ctx context.Context, res *settings.Resolved, store marker.Store) ([]StageState, error) {
	var out []StageState
	for _, s := range stage.Catalog() {
		done, err := store.Done(ctx, s.Name)
		if err != nil {
			return nil, err
		}
		st := StageState{
			Name:       s.Name,
			Applicable: s.Applicable(res),
			Done:       done,
			OutputDir:  res.Paths.StageDir(s.Name),
			LogPath:    res.Paths.LogPath(s.Name),
		}
		if done {
			if rec, err := store.Get(ctx, s.Name); err == nil {
				st.Marker = rec
			}
		}
		out = append(out, st)
	}
	return out, nil
}
