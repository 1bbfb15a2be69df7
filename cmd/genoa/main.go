// Package main provides the genoa CLI entrypoint.
//
// Usage:
//
//	genoa <command> [options] [stage|all]
//
// Exit codes:
//   - 0: success
//   - 1: tool failure or unexpected error
//   - 2: configuration error
//   - 3: dependency-graph error
//   - 4: environment error (missing executable, runtime or image)
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/cli/cmd"
	"github.com/pithecene-io/genoa/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// Replaced in tests.
var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

func newApp() *cli.App {
	return &cli.App{
		Name:           "genoa",
		Usage:          "Genome annotation pipeline runner",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands:       cmd.Commands(commit),
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		osExit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			_, _ = fmt.Fprintln(stderr, msg)
		}
		osExit(code)
		return
	}

	// Unexpected error - print and exit with code 1
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	osExit(1)
}
