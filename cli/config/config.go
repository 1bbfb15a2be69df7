// Package config loads the genoa settings file (genoa.yaml or genoa.hcl).
//
// Every value is optional in the file; CLI flags override file values and
// required settings are enforced later by settings.Resolve.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/pithecene-io/genoa/log"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/types"
)

// Config represents a genoa settings file.
type Config struct {
	Assembly      string                `yaml:"assembly"`
	Organism      string                `yaml:"organism"`
	Species       string                `yaml:"species"`
	Threads       int                   `yaml:"threads"`
	BuscoLineage  string                `yaml:"busco_lineage"`
	WorkDir       string                `yaml:"work_dir"`
	RepeatLibrary string                `yaml:"repeat_library"`
	Evidence      EvidenceConfig        `yaml:"evidence"`
	Sandbox       SandboxConfig         `yaml:"sandbox"`
	Tools         map[string]ToolConfig `yaml:"tools"`
	Markers       MarkersConfig         `yaml:"markers"`
	History       HistoryConfig         `yaml:"history"`
	Notify        NotifyConfig          `yaml:"notify"`
	Log           LogConfig             `yaml:"log"`
}

// EvidenceConfig lists the evidence inputs.
type EvidenceConfig struct {
	Proteins  string      `yaml:"proteins"`
	Reads     ReadsConfig `yaml:"reads"`
	Alignment string      `yaml:"alignment"`
}

// ReadsConfig lists raw RNA-seq read files.
type ReadsConfig struct {
	R1       []string `yaml:"r1"`
	R2       []string `yaml:"r2"`
	Unpaired []string `yaml:"unpaired"`
}

// SandboxConfig selects the container runtime.
type SandboxConfig struct {
	Runtime string `yaml:"runtime"`
	Image   string `yaml:"image"`
}

// ToolConfig overrides one stage's tool.
type ToolConfig struct {
	Executable string   `yaml:"executable"`
	Image      string   `yaml:"image"`
	OutputDir  string   `yaml:"output_dir"`
	ExtraArgs  []string `yaml:"extra_args"`
}

// MarkersConfig selects the completion marker backend.
type MarkersConfig struct {
	Backend   string   `yaml:"backend"`
	RedisURL  string   `yaml:"redis_url"`
	KeyPrefix string   `yaml:"key_prefix"`
	S3        S3Config `yaml:"s3"`
}

// S3Config locates S3 marker objects.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// HistoryConfig selects the run history backend. An empty backend
// disables history.
type HistoryConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// NotifyConfig configures the completion notification. An empty type
// disables it.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for string parsing ("10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Accepted enumerations.
var (
	MarkerBackends  = []string{"", "fs", "redis", "s3"}
	HistoryBackends = []string{"", "fs", "s3"}
	NotifyTypes     = []string{"", "webhook", "redis"}
)

// Validate checks the enumerations and cross-field rules this package
// owns. Settings rules (required fields, sandbox, tools) are checked by
// settings.Resolve.
func (c *Config) Validate() error {
	if !slices.Contains(MarkerBackends, c.Markers.Backend) {
		return types.Configf("markers.backend", "unknown backend %q (must be fs, redis or s3)", c.Markers.Backend)
	}
	if c.Markers.Backend == "redis" && c.Markers.RedisURL == "" {
		return types.Configf("markers.redis_url", "required when markers.backend is redis")
	}
	if c.Markers.Backend == "s3" && c.Markers.S3.Bucket == "" {
		return types.Configf("markers.s3.bucket", "required when markers.backend is s3")
	}
	if !slices.Contains(HistoryBackends, c.History.Backend) {
		return types.Configf("history.backend", "unknown backend %q (must be fs or s3)", c.History.Backend)
	}
	if c.History.Backend == "s3" && c.History.Path == "" {
		return types.Configf("history.path", "bucket/prefix required when history.backend is s3")
	}
	if !slices.Contains(NotifyTypes, c.Notify.Type) {
		return types.Configf("notify.type", "unknown type %q (must be webhook or redis)", c.Notify.Type)
	}
	if c.Notify.Type != "" && c.Notify.URL == "" {
		return types.Configf("notify.url", "required when notify.type is %s", c.Notify.Type)
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		return types.Configf("notify.retries", "must be >= 0, got %d", *c.Notify.Retries)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return types.Configf("log.level", "%v", err)
	}
	return nil
}

// Raw converts the file's pipeline settings into resolver input.
func (c *Config) Raw() settings.Raw {
	raw := settings.Raw{
		Assembly:       c.Assembly,
		Organism:       c.Organism,
		Species:        c.Species,
		Threads:        c.Threads,
		BuscoLineage:   c.BuscoLineage,
		WorkDir:        c.WorkDir,
		RepeatLibrary:  c.RepeatLibrary,
		Proteins:       c.Evidence.Proteins,
		ReadsR1:        slices.Clone(c.Evidence.Reads.R1),
		ReadsR2:        slices.Clone(c.Evidence.Reads.R2),
		ReadsUnpaired:  slices.Clone(c.Evidence.Reads.Unpaired),
		Alignment:      c.Evidence.Alignment,
		SandboxRuntime: c.Sandbox.Runtime,
		SandboxImage:   c.Sandbox.Image,
	}
	if len(c.Tools) > 0 {
		raw.Tools = make(map[string]settings.RawTool, len(c.Tools))
		for name, t := range c.Tools {
			raw.Tools[name] = settings.RawTool{
				Executable: t.Executable,
				Image:      t.Image,
				OutputDir:  t.OutputDir,
				ExtraArgs:  slices.Clone(t.ExtraArgs),
			}
		}
	}
	return raw
}
