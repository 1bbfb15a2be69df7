// Package reader shapes pipeline state into the read-only views the CLI
// renders: the stage catalog, plans, marker status and run history.
//
// Table, json, yaml and TUI output all use these same payloads.
package reader

// StageRow is one catalog entry (`genoa stages`).
type StageRow struct {
	Name        string   `json:"name" yaml:"name"`
	Needs       []string `json:"needs" yaml:"needs"`
	Tool        string   `json:"tool" yaml:"tool"`
	Description string   `json:"description" yaml:"description"`
}

// PlanRow is one planned stage (`genoa plan`, `genoa run --dry-run`).
type PlanRow struct {
	Stage   string   `json:"stage" yaml:"stage"`
	Status  string   `json:"status" yaml:"status"`
	Needs   []string `json:"needs" yaml:"needs"`
	Command string   `json:"command" yaml:"command"`
}

// StatusRow is one stage's marker state (`genoa status`).
type StatusRow struct {
	Stage       string `json:"stage" yaml:"stage"`
	State       string `json:"state" yaml:"state"` // done, pending or n/a
	RunID       string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	CompletedAt string `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	OutputDir   string `json:"output_dir" yaml:"output_dir"`
}

// Status states.
const (
	StateDone         = "done"
	StatePending      = "pending"
	StateInapplicable = "n/a"
)

// StatusSummary counts StatusRows by state.
type StatusSummary struct {
	Mode         string `json:"mode" yaml:"mode"`
	Done         int    `json:"done" yaml:"done"`
	Pending      int    `json:"pending" yaml:"pending"`
	Inapplicable int    `json:"inapplicable" yaml:"inapplicable"`
}

// StatusView is the full `genoa status` payload.
type StatusView struct {
	Summary StatusSummary `json:"summary" yaml:"summary"`
	Stages  []StatusRow   `json:"stages" yaml:"stages"`
}

// HistoryRow is one recorded run (`genoa history`).
type HistoryRow struct {
	RunID         string `json:"run_id" yaml:"run_id"`
	CompletedAt   string `json:"completed_at" yaml:"completed_at"`
	Organism      string `json:"organism" yaml:"organism"`
	Target        string `json:"target" yaml:"target"`
	Mode          string `json:"mode" yaml:"mode"`
	Outcome       string `json:"outcome" yaml:"outcome"`
	FailedStage   string `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	StagesRun     int    `json:"stages_run" yaml:"stages_run"`
	StagesSkipped int    `json:"stages_skipped" yaml:"stages_skipped"`
	Duration      string `json:"duration" yaml:"duration"`
}

// HistoryStageRow is one stage of a recorded run (`genoa history --run`).
type HistoryStageRow struct {
	Stage    string `json:"stage" yaml:"stage"`
	Status   string `json:"status" yaml:"status"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Duration string `json:"duration" yaml:"duration"`
	LogPath  string `json:"log_path" yaml:"log_path"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CleanRow is one removed (or to-be-removed) item.
type CleanRow struct {
	Kind   string `json:"kind" yaml:"kind"` // path or marker
	Target string `json:"target" yaml:"target"`
	DryRun bool   `json:"dry_run" yaml:"dry_run"`
}

// VersionInfo is the `genoa version` payload.
type VersionInfo struct {
	Version       string `json:"version" yaml:"version"`
	Commit        string `json:"commit" yaml:"commit"`
	MarkerVersion int    `json:"marker_format_version" yaml:"marker_format_version"`
}
