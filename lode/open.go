package lode

import (
	"context"
	"fmt"
)

// History backends.
const (
	BackendNone = ""
	BackendFS   = "fs"
	BackendS3   = "s3"
)

// Options selects and configures a history backend.
type Options struct {
	Backend string
	// Path is a directory for fs, or "bucket/prefix" for s3.
	Path         string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// Open opens the configured history. It returns nil, nil when history is
// disabled.
func Open(ctx context.Context, opts Options) (*History, error) {
	switch opts.Backend {
	case BackendNone:
		return nil, nil
	case BackendFS:
		if opts.Path == "" {
			return nil, fmt.Errorf("history: fs backend requires a path")
		}
		return NewHistoryFS(opts.Path)
	case BackendS3:
		bucket, prefix := ParseS3Path(opts.Path)
		return NewHistoryS3(ctx, S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       opts.Region,
			Endpoint:     opts.Endpoint,
			UsePathStyle: opts.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("history: unknown backend %q", opts.Backend)
	}
}
