package types //nolint:revive // types is a valid package name

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKinds_Is(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"configuration", Configf("threads", "must be > 0"), ErrConfiguration},
		{"dependency", &DependencyError{Stage: "align_reads", Predecessor: "align_index"}, ErrDependency},
		{"environment", &EnvironmentError{Stage: "busco", Err: errors.New("not found")}, ErrEnvironment},
		{"tool", &ToolExecutionError{Stage: "busco", ExitCode: 2}, ErrToolExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("run failed: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.kind)
			}
			for _, other := range []error{ErrConfiguration, ErrDependency, ErrEnvironment, ErrToolExecution} {
				if other != tt.kind && errors.Is(wrapped, other) {
					t.Errorf("errors.Is(%v, %v) = true, want false", wrapped, other)
				}
			}
		})
	}
}

func TestFailedStage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"tool", fmt.Errorf("x: %w", &ToolExecutionError{Stage: "repeat_masker", ExitCode: 1}), "repeat_masker"},
		{"environment", &EnvironmentError{Stage: "busco"}, "busco"},
		{"dependency", &DependencyError{Stage: "gene_annotation", Predecessor: "busco"}, "gene_annotation"},
		{"stage wrapper", &StageError{Stage: "align_sort", Err: context.Canceled}, "align_sort"},
		{"configuration", Configf("assembly", "required"), ""},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailedStage(tt.err); got != tt.want {
				t.Errorf("FailedStage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolExecutionError_MessageNamesStageAndLog(t *testing.T) {
	err := &ToolExecutionError{Stage: "align_reads", ExitCode: 137, LogPath: "/w/logs/align_reads.log"}
	msg := err.Error()
	for _, want := range []string{"align_reads", "137", "/w/logs/align_reads.log"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestOutcomeForError(t *testing.T) {
	tests := []struct {
		err  error
		want OutcomeStatus
	}{
		{nil, OutcomeSuccess},
		{Configf("", "no evidence"), OutcomeConfigError},
		{&DependencyError{Stage: "a", Predecessor: "b"}, OutcomeDependencyError},
		{&EnvironmentError{Stage: "a"}, OutcomeEnvironmentError},
		{&ToolExecutionError{Stage: "a", ExitCode: 1}, OutcomeToolFailure},
		{&StageError{Stage: "a", Err: context.Canceled}, OutcomeInterrupted},
		{&StageError{Stage: "a", Err: errors.New("disk full")}, OutcomeInternalError},
	}

	for _, tt := range tests {
		if got := OutcomeForError(tt.err); got != tt.want {
			t.Errorf("OutcomeForError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRunMeta_Validate(t *testing.T) {
	if err := (&RunMeta{RunID: "r", Target: TargetAll}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (&RunMeta{Target: TargetAll}).Validate(); err == nil {
		t.Error("Validate() with empty run id should fail")
	}
	if err := (&RunMeta{RunID: "r"}).Validate(); err == nil {
		t.Error("Validate() with empty target should fail")
	}
}
