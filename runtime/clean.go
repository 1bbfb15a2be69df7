package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pithecene-io/genoa/marker"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/stage"
	"github.com/pithecene-io/genoa/types"
)

// CleanOptions selects what a clean removes.
type CleanOptions struct {
	// Stage limits the clean to one stage's output dir, log and marker,
	// plus those of any stage that also writes into that dir.
	Stage string
	// Cached also removes cached artifacts (busco downloads) and the
	// whole state dir.
	Cached bool
	// DryRun reports what would be removed without removing anything.
	DryRun bool
}

// CleanResult lists what was (or would be) removed.
type CleanResult struct {
	// Paths are existing files and dirs removed.
	Paths []string
	// Markers are stages whose markers were removed.
	Markers []string
	DryRun  bool
}

// Clean removes stage outputs and markers. Stage output dirs are removed
// for every catalog stage regardless of applicability, so switching
// evidence between runs never leaves stale outputs behind.
func Clean(ctx context.Context, res *settings.Resolved, store marker.Store, opts CleanOptions) (*CleanResult, error) {
	if opts.Stage != "" && opts.Cached {
		return nil, types.Configf("stage", "a single-stage clean cannot include cached artifacts")
	}

	stages := stage.Names()
	if opts.Stage != "" {
		if _, ok := stage.Lookup(opts.Stage); !ok {
			return nil, types.Configf("stage", "unknown stage %q", opts.Stage)
		}
		stages = append([]string{opts.Stage}, stage.CoWriters(opts.Stage)...)
	}

	var targets []string
	for _, name := range stages {
		targets = append(targets, res.Paths.StageDir(name))
	}
	if opts.Stage != "" {
		for _, name := range stages {
			targets = append(targets, res.Paths.LogPath(name))
		}
	} else {
		targets = append(targets, res.Paths.LogDir)
	}
	if opts.Cached {
		targets = append(targets, res.Paths.BuscoDownloads, res.Paths.StateDir)
	}

	result := &CleanResult{DryRun: opts.DryRun}

	for _, name := range stages {
		done, err := store.Done(ctx, name)
		if err != nil {
			return nil, err
		}
		if done {
			result.Markers = append(result.Markers, name)
		}
	}

	for _, p := range targets {
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", p, err)
		}
		result.Paths = append(result.Paths, p)
	}

	if opts.DryRun {
		return result, nil
	}

	// Markers go first: an interrupted clean must never leave a marker
	// whose outputs are already gone.
	if opts.Stage != "" {
		for _, name := range stages {
			if err := store.Delete(ctx, name); err != nil {
				return nil, err
			}
		}
	} else if err := store.Clear(ctx); err != nil {
		return nil, err
	}

	for _, p := range result.Paths {
		if err := os.RemoveAll(p); err != nil {
			return nil, fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return result, nil
}
