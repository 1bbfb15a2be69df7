package reader

import (
	"strings"
	"time"

	"github.com/pithecene-io/genoa/lode"
	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/stage"
	"github.com/pithecene-io/genoa/types"
)

// Stages returns the static catalog in declaration order.
func Stages() []StageRow {
	catalog := stage.Catalog()
	rows := make([]StageRow, len(catalog))
	for i, s := range catalog {
		tool := s.Tool
		if types.IsBuiltinStage(s.Name) {
			tool = "(builtin)"
		}
		rows[i] = StageRow{
			Name:        s.Name,
			Needs:       nonNil(s.Needs),
			Tool:        tool,
			Description: s.Description,
		}
	}
	return rows
}

// Plan converts a plan (or a finished run) into rows.
func Plan(result *runtime.RunResult) []PlanRow {
	rows := make([]PlanRow, 0, len(result.Stages))
	for _, s := range result.Stages {
		rows = append(rows, PlanRow{
			Stage:   s.Name,
			Status:  string(s.Status),
			Needs:   nonNil(s.Needs),
			Command: ShellJoin(s.Command),
		})
	}
	return rows
}

// Status converts stage states into the status view.
func Status(mode string, states []runtime.StageState) *StatusView {
	view := &StatusView{Summary: StatusSummary{Mode: mode}, Stages: make([]StatusRow, 0, len(states))}
	for _, st := range states {
		row := StatusRow{Stage: st.Name, OutputDir: st.OutputDir}
		switch {
		case st.Done:
			row.State = StateDone
			view.Summary.Done++
		case st.Applicable:
			row.State = StatePending
			view.Summary.Pending++
		default:
			row.State = StateInapplicable
			view.Summary.Inapplicable++
		}
		if st.Marker != nil {
			row.RunID = st.Marker.RunID
			row.CompletedAt = st.Marker.CompletedAt
		}
		view.Stages = append(view.Stages, row)
	}
	return view
}

// History converts run records into rows, preserving order.
func History(runs []lode.RunRecord) []HistoryRow {
	rows := make([]HistoryRow, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, HistoryRow{
			RunID:         r.RunID,
			CompletedAt:   r.CompletedAt.UTC().Format(time.RFC3339),
			Organism:      r.Organism,
			Target:        r.Target,
			Mode:          r.Mode,
			Outcome:       r.Outcome,
			FailedStage:   r.FailedStage,
			StagesRun:     r.StagesRun,
			StagesSkipped: r.StagesSkipped,
			Duration:      formatMs(r.DurationMs),
		})
	}
	return rows
}

// HistoryStages converts one run's stage records into rows.
func HistoryStages(stages []lode.StageRecord) []HistoryStageRow {
	rows := make([]HistoryStageRow, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, HistoryStageRow{
			Stage:    s.Stage,
			Status:   s.Status,
			ExitCode: s.ExitCode,
			Duration: formatMs(s.DurationMs),
			LogPath:  s.LogPath,
			Error:    s.Error,
		})
	}
	return rows
}

// Clean lists what a clean removed, markers first.
func Clean(result *runtime.CleanResult) []CleanRow {
	rows := make([]CleanRow, 0, len(result.Markers)+len(result.Paths))
	for _, m := range result.Markers {
		rows = append(rows, CleanRow{Kind: "marker", Target: m, DryRun: result.DryRun})
	}
	for _, p := range result.Paths {
		rows = append(rows, CleanRow{Kind: "path", Target: p, DryRun: result.DryRun})
	}
	return rows
}

// ShellJoin renders argv for display, quoting arguments that need it.
func ShellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n'\"\\$`;&|<>*?()[]{}") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
