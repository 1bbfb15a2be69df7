package marker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/genoa/iox"
)

// FileSuffix is appended to the stage name to form the marker file name.
const FileSuffix = ".done"

// FSStore keeps one marker file per stage in a directory.
type FSStore struct {
	dir string
}

// NewFSStore creates a store rooted at dir. The directory is created on
// first Put.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// Path returns the marker file path for stage.
func (s *FSStore) Path(stage string) string {
	return filepath.Join(s.dir, stage+FileSuffix)
}

func (s *FSStore) Done(_ context.Context, stage string) (bool, error) {
	_, err := os.Stat(s.Path(stage))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat marker %s: %w", stage, err)
	}
}

func (s *FSStore) Get(_ context.Context, stage string) (*Record, error) {
	b, err := os.ReadFile(s.Path(stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read marker %s: %w", stage, err)
	}
	return Decode(b)
}

// Put writes the marker to a temp file in the marker dir and renames it
// into place.
func (s *FSStore) Put(_ context.Context, rec Record) error {
	b, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := iox.WriteFileAtomic(s.Path(rec.Stage), b, 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w", rec.Stage, err)
	}
	return nil
}

func (s *FSStore) Delete(_ context.Context, stage string) error {
	if err := os.Remove(s.Path(stage)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove marker %s: %w", stage, err)
	}
	return nil
}

// Clear removes every marker file, plus temp files left by a crashed Put.
func (s *FSStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list markers: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, FileSuffix) || strings.Contains(name, FileSuffix+".tmp-")) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove marker %s: %w", name, err)
		}
	}
	return nil
}

func (s *FSStore) Location() string { return s.dir }

var _ Store = (*FSStore)(nil)
