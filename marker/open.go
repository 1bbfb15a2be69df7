package marker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
)

// Options selects and configures a marker backend.
type Options struct {
	// Backend is one of BackendFS (default), BackendRedis, BackendS3.
	Backend string
	// Dir is the marker directory for the fs backend.
	Dir string
	// Scope separates pipelines sharing a redis server or bucket. It is
	// required for those backends; see ScopeFor.
	Scope     string
	RedisURL  string
	KeyPrefix string
	S3        S3Config
}

// ScopeFor returns the marker scope of a pipeline rooted at workDir.
// Markers are only valid for the output tree they describe, so two work
// dirs never share a scope.
func ScopeFor(workDir string) string {
	sum := sha256.Sum256([]byte(workDir))
	return hex.EncodeToString(sum[:6])
}

// Open returns the configured store and a function releasing its resources.
// Markers must outlive the process, so the in-memory store is not offered.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }
	switch opts.Backend {
	case "", BackendFS:
		if opts.Dir == "" {
			return nil, nil, errors.New("fs marker store requires a directory")
		}
		return NewFSStore(opts.Dir), noop, nil
	case BackendRedis:
		if opts.Scope == "" {
			return nil, nil, errors.New("redis marker store requires a scope")
		}
		prefix := opts.KeyPrefix
		if prefix == "" {
			prefix = DefaultKeyPrefix
		}
		s, err := NewRedisStore(opts.RedisURL, prefix+":"+opts.Scope)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendS3:
		if opts.Scope == "" {
			return nil, nil, errors.New("s3 marker store requires a scope")
		}
		cfg := opts.S3
		cfg.Prefix = path.Join(cfg.Prefix, opts.Scope)
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown marker backend %q (must be fs, redis or s3)", opts.Backend)
	}
}
