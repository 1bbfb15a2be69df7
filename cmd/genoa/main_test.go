package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/types"
)

// captureExit replaces osExit and stderr for the duration of the test.
func captureExit(t *testing.T) (*int, *bytes.Buffer) {
	t.Helper()
	code := -1
	var buf bytes.Buffer
	origExit, origStderr := osExit, stderr
	osExit = func(c int) { code = c }
	stderr = &buf
	t.Cleanup(func() {
		osExit, stderr = origExit, origStderr
	})
	return &code, &buf
}

func TestExitErrHandler_NilError(t *testing.T) {
	code, buf := captureExit(t)
	exitErrHandler(nil, nil)
	if *code != -1 || buf.Len() != 0 {
		t.Errorf("nil error should not exit or print, got code=%d out=%q", *code, buf.String())
	}
}

func TestExitErrHandler_ExitCoder(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"success no message", cli.Exit("", 0), 0, ""},
		{"tool failure", cli.Exit("tool execution error: stage busco exited with status 3", 1), 1, "stage busco"},
		{"configuration", cli.Exit("configuration error: organism is required", 2), 2, "organism is required"},
		{"dependency", cli.Exit("dependency error", 3), 3, "dependency error"},
		{"environment", cli.Exit("environment error", 4), 4, "environment error"},
		{"wrapped", errors.Join(errors.New("context"), cli.Exit("inner error", 42)), 42, "inner error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, buf := captureExit(t)
			exitErrHandler(nil, tt.err)
			if *code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", *code, tt.wantCode)
			}
			if tt.wantMsg == "" && buf.Len() != 0 {
				t.Errorf("expected no output, got %q", buf.String())
			}
			if !strings.Contains(buf.String(), tt.wantMsg) {
				t.Errorf("output %q should contain %q", buf.String(), tt.wantMsg)
			}
		})
	}
}

func TestExitErrHandler_RegularError(t *testing.T) {
	code, buf := captureExit(t)
	exitErrHandler(nil, errors.New("regular error"))
	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
	if !strings.Contains(buf.String(), "Error: regular error") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()
	if !strings.HasPrefix(app.Version, types.Version) {
		t.Errorf("Version = %q, want prefix %q", app.Version, types.Version)
	}
	for _, name := range []string{"run", "plan", "status", "stages", "clean", "clean-all", "history", "version"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
}
