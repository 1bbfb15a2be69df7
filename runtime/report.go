package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/genoa/metrics"
	"github.com/pithecene-io/genoa/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID       string              `json:"run_id"`
	Target      string              `json:"target"`
	Mode        string              `json:"mode"`
	Outcome     types.OutcomeStatus `json:"outcome"`
	Message     string              `json:"message,omitempty"`
	FailedStage string              `json:"failed_stage,omitempty"`
	ExitCode    int                 `json:"exit_code"`
	DurationMs  int64               `json:"duration_ms"`

	Stages  []ReportStage     `json:"stages"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// ReportStage holds one stage's result in the report.
type ReportStage struct {
	Name       string            `json:"name"`
	Status     types.StageStatus `json:"status"`
	ExitCode   int               `json:"exit_code"`
	DurationMs int64             `json:"duration_ms"`
	LogPath    string            `json:"log_path"`
	Error      string            `json:"error,omitempty"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, snap metrics.Snapshot, exitCode int) *RunReport {
	report := &RunReport{
		RunID:       result.RunMeta.RunID,
		Target:      result.Target,
		Mode:        string(result.Mode),
		Outcome:     result.Outcome,
		FailedStage: result.FailedStage(),
		ExitCode:    exitCode,
		DurationMs:  result.Duration.Milliseconds(),
		Stages:      make([]ReportStage, 0, len(result.Stages)),
		Metrics:     &snap,
	}
	if result.Err != nil {
		report.Message = result.Err.Error()
	}

	for _, s := range result.Stages {
		report.Stages = append(report.Stages, ReportStage{
			Name:       s.Name,
			Status:     s.Status,
			ExitCode:   s.ExitCode,
			DurationMs: s.Duration.Milliseconds(),
			LogPath:    s.LogPath,
			Error:      s.Error,
		})
	}
	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeRunReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return f.Close()
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
