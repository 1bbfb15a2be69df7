// Package settings resolves raw user settings into validated, immutable
// settings and absolute paths.
//
// Resolution is pure: it normalizes paths lexically against an explicit
// base directory and never touches the filesystem. The Resolved value is
// read-only for the lifetime of one pipeline invocation.
package settings

import (
	"path/filepath"

	"github.com/pithecene-io/genoa/evidence"
)

// Sandbox runtimes.
const (
	RuntimeNone        = "none"
	RuntimeSingularity = "singularity"
	RuntimeApptainer   = "apptainer"
	RuntimeDocker      = "docker"
)

// Reserved work-dir entries no stage output dir may shadow.
const (
	StateDirName          = ".genoa"
	MarkerDirName         = "markers"
	HistoryDirName        = "history"
	LogDirName            = "logs"
	BuscoDownloadsDirName = "busco_downloads"
)

// Raw is the unvalidated settings surface: file values merged with CLI flags.
type Raw struct {
	// Required.
	Assembly     string
	Organism     string
	Species      string
	Threads      int
	BuscoLineage string

	WorkDir string

	// RepeatLibrary is an optional supplementary repeat library merged
	// with the modeled families.
	RepeatLibrary string

	// Evidence.
	Proteins      string
	ReadsR1       []string
	ReadsR2       []string
	ReadsUnpaired []string
	Alignment     string

	SandboxRuntime string
	SandboxImage   string

	// Tools holds per-stage overrides keyed by stage name.
	Tools map[string]RawTool
}

// RawTool is a per-stage override.
type RawTool struct {
	Executable string
	Image      string
	OutputDir  string
	ExtraArgs  []string
}

// Tool is a resolved per-stage override.
type Tool struct {
	// Executable replaces the catalog default when non-empty.
	Executable string
	// Image is the sandbox image for this stage ("" when no sandbox).
	Image string
	// ExtraArgs are appended to the stage's fixed arguments.
	ExtraArgs []string
}

// Settings holds validated scalar settings.
type Settings struct {
	Organism     string
	Species      string
	Threads      int
	BuscoLineage string
	// SandboxRuntime is RuntimeNone when tools run on the host.
	SandboxRuntime string
	Tools          map[string]Tool
}

// Sandboxed reports whether external tools cross an isolation boundary.
func (s Settings) Sandboxed() bool { return s.SandboxRuntime != RuntimeNone }

// Tool returns the override for stage (zero value when none).
func (s Settings) Tool(stage string) Tool { return s.Tools[stage] }

// Paths holds absolute, environment-independent paths. Inside a sandbox
// every path is bound at the same location, so these forms are valid on
// both sides of the boundary.
type Paths struct {
	WorkDir  string
	Assembly string

	Proteins      string
	ReadsR1       []string
	ReadsR2       []string
	ReadsUnpaired []string
	// PreAligned is the user-supplied alignment result, if any.
	PreAligned string
	// Alignment is the canonical final alignment reference consumed by gene
	// annotation: PreAligned when set, else the sorted output of the
	// alignment sub-chain, else "".
	Alignment string

	SupplementaryLibrary string
	// RepeatLibrary is the library RepeatMasker uses: the merged library
	// when a supplementary one is configured, else the modeled families.
	RepeatLibrary   string
	ModeledFamilies string
	MergedLibrary   string
	RepeatDatabase  string
	MaskedAssembly  string
	AlignIndex      string
	AlignSAM        string
	SortedBAM       string

	StateDir       string
	MarkerDir      string
	HistoryDir     string
	LogDir         string
	BuscoDownloads string

	stageDirs map[string]string
}

// StageDir returns the output directory owned by stage.
func (p Paths) StageDir(stage string) string { return p.stageDirs[stage] }

// StageDirs returns a copy of the stage → output dir map.
func (p Paths) StageDirs() map[string]string {
	out := make(map[string]string, len(p.stageDirs))
	for k, v := range p.stageDirs {
		out[k] = v
	}
	return out
}

// LogPath returns the per-stage log file path.
func (p Paths) LogPath(stage string) string {
	return filepath.Join(p.LogDir, stage+".log")
}

// Resolved is the complete output of resolution.
type Resolved struct {
	Settings
	Paths    Paths
	Evidence evidence.Evidence
	Mode     evidence.Mode
	// Warnings are non-fatal observations for the caller to log.
	Warnings []string
}
