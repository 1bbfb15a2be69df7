package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the HCL schema of a settings file. Tool overrides are
// labeled blocks: tool "busco" { ... }.
type hclFile struct {
	Assembly      string       `hcl:"assembly,optional"`
	Organism      string       `hcl:"organism,optional"`
	Species       string       `hcl:"species,optional"`
	Threads       int          `hcl:"threads,optional"`
	BuscoLineage  string       `hcl:"busco_lineage,optional"`
	WorkDir       string       `hcl:"work_dir,optional"`
	RepeatLibrary string       `hcl:"repeat_library,optional"`
	Evidence      *hclEvidence `hcl:"evidence,block"`
	Sandbox       *hclSandbox  `hcl:"sandbox,block"`
	Tools         []hclTool    `hcl:"tool,block"`
	Markers       *hclMarkers  `hcl:"markers,block"`
	History       *hclHistory  `hcl:"history,block"`
	Notify        *hclNotify   `hcl:"notify,block"`
	Log           *hclLog      `hcl:"log,block"`
}

type hclEvidence struct {
	Proteins  string    `hcl:"proteins,optional"`
	Reads     *hclReads `hcl:"reads,block"`
	Alignment string    `hcl:"alignment,optional"`
}

type hclReads struct {
	R1       []string `hcl:"r1,optional"`
	R2       []string `hcl:"r2,optional"`
	Unpaired []string `hcl:"unpaired,optional"`
}

type hclSandbox struct {
	Runtime string `hcl:"runtime,optional"`
	Image   string `hcl:"image,optional"`
}

type hclTool struct {
	Name       string   `hcl:"name,label"`
	Executable string   `hcl:"executable,optional"`
	Image      string   `hcl:"image,optional"`
	OutputDir  string   `hcl:"output_dir,optional"`
	ExtraArgs  []string `hcl:"extra_args,optional"`
}

type hclMarkers struct {
	Backend   string `hcl:"backend,optional"`
	RedisURL  string `hcl:"redis_url,optional"`
	KeyPrefix string `hcl:"key_prefix,optional"`
	S3        *hclS3 `hcl:"s3,block"`
}

type hclS3 struct {
	Bucket    string `hcl:"bucket,optional"`
	Prefix    string `hcl:"prefix,optional"`
	Region    string `hcl:"region,optional"`
	Endpoint  string `hcl:"endpoint,optional"`
	PathStyle bool   `hcl:"path_style,optional"`
}

type hclHistory struct {
	Backend   string `hcl:"backend,optional"`
	Path      string `hcl:"path,optional"`
	Region    string `hcl:"region,optional"`
	Endpoint  string `hcl:"endpoint,optional"`
	PathStyle bool   `hcl:"path_style,optional"`
}

type hclNotify struct {
	Type    string            `hcl:"type,optional"`
	URL     string            `hcl:"url,optional"`
	Channel string            `hcl:"channel,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Timeout string            `hcl:"timeout,optional"`
	Retries *int              `hcl:"retries,optional"`
}

type hclLog struct {
	Level string `hcl:"level,optional"`
}

// envContext exposes the process environment as env.NAME.
func envContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && name != "" {
			vars[name] = cty.StringVal(value)
		}
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

func decodeHCL(path string, data []byte) (*Config, error) {
	var f hclFile
	if err := hclsimple.Decode(path, data, envContext(), &f); err != nil {
		return nil, fmt.Errorf("invalid HCL in %s: %w", path, err)
	}
	return f.toConfig()
}

func (f *hclFile) toConfig() (*Config, error) {
	cfg := &Config{
		Assembly:      f.Assembly,
		Organism:      f.Organism,
		Species:       f.Species,
		Threads:       f.Threads,
		BuscoLineage:  f.BuscoLineage,
		WorkDir:       f.WorkDir,
		RepeatLibrary: f.RepeatLibrary,
	}

	if e := f.Evidence; e != nil {
		cfg.Evidence.Proteins = e.Proteins
		cfg.Evidence.Alignment = e.Alignment
		if r := e.Reads; r != nil {
			cfg.Evidence.Reads = ReadsConfig{R1: r.R1, R2: r.R2, Unpaired: r.Unpaired}
		}
	}
	if s := f.Sandbox; s != nil {
		cfg.Sandbox = SandboxConfig{Runtime: s.Runtime, Image: s.Image}
	}
	if len(f.Tools) > 0 {
		cfg.Tools = make(map[string]ToolConfig, len(f.Tools))
		for _, t := range f.Tools {
			if _, dup := cfg.Tools[t.Name]; dup {
				return nil, fmt.Errorf("duplicate tool block %q", t.Name)
			}
			cfg.Tools[t.Name] = ToolConfig{
				Executable: t.Executable,
				Image:      t.Image,
				OutputDir:  t.OutputDir,
				ExtraArgs:  t.ExtraArgs,
			}
		}
	}
	if m := f.Markers; m != nil {
		cfg.Markers = MarkersConfig{Backend: m.Backend, RedisURL: m.RedisURL, KeyPrefix: m.KeyPrefix}
		if s3 := m.S3; s3 != nil {
			cfg.Markers.S3 = S3Config{
				Bucket:    s3.Bucket,
				Prefix:    s3.Prefix,
				Region:    s3.Region,
				Endpoint:  s3.Endpoint,
				PathStyle: s3.PathStyle,
			}
		}
	}
	if h := f.History; h != nil {
		cfg.History = HistoryConfig{
			Backend:   h.Backend,
			Path:      h.Path,
			Region:    h.Region,
			Endpoint:  h.Endpoint,
			PathStyle: h.PathStyle,
		}
	}
	if n := f.Notify; n != nil {
		cfg.Notify = NotifyConfig{
			Type:    n.Type,
			URL:     n.URL,
			Channel: n.Channel,
			Headers: n.Headers,
			Retries: n.Retries,
		}
		if err := cfg.Notify.Timeout.parse(n.Timeout); err != nil {
			return nil, fmt.Errorf("notify.timeout: %w", err)
		}
	}
	if l := f.Log; l != nil {
		cfg.Log.Level = l.Level
	}
	return cfg, nil
}
