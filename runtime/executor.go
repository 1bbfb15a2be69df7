package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pithecene-io/genoa/iox"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/stage"
	"github.com/pithecene-io/genoa/types"
)

// commandNotFound is the conventional shell status for a missing command.
// Inside a sandbox it means the tool is absent from the image.
const commandNotFound = 127

// Invoker runs one stage action to completion. Implementations must not
// retry.
//
// Invoke returns nil only when the action exited successfully. Failures are
// reported as *types.ToolExecutionError (the tool ran and failed),
// *types.EnvironmentError (the tool, runtime or image is missing), or the
// context error when ctx was canceled.
type Invoker interface {
	Invoke(ctx context.Context, inv stage.Invocation, logPath string) (*InvokeResult, error)
}

// InvokeResult describes a finished attempt.
type InvokeResult struct {
	// ExitCode is the process exit code (0 for a successful builtin).
	ExitCode int
	Duration time.Duration
}

// ProcessInvoker launches stage tools as child processes, optionally
// inside a sandbox runtime, with combined output appended to the stage log.
type ProcessInvoker struct {
	// Sandbox is the sandbox runtime (settings.RuntimeNone for the host).
	Sandbox string
	// Stream, when set, also receives tool output (e.g. os.Stderr).
	Stream io.Writer
	// LookPath resolves executables (default exec.LookPath).
	LookPath func(file string) (string, error)
	// Now is the clock used for log headers (default time.Now).
	Now func() time.Time
}

// NewProcessInvoker creates an invoker for the given sandbox runtime.
func NewProcessInvoker(sandbox string, stream io.Writer) *ProcessInvoker {
	if sandbox == "" {
		sandbox = settings.RuntimeNone
	}
	return &ProcessInvoker{Sandbox: sandbox, Stream: stream}
}

func (p *ProcessInvoker) lookPath(file string) (string, error) {
	if p.LookPath != nil {
		return p.LookPath(file)
	}
	return exec.LookPath(file)
}

func (p *ProcessInvoker) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *ProcessInvoker) sandboxed() bool {
	return p.Sandbox != "" && p.Sandbox != settings.RuntimeNone
}

// Invoke runs inv, appending a header, the combined output and a footer to
// logPath.
func (p *ProcessInvoker) Invoke(ctx context.Context, inv stage.Invocation, logPath string) (*InvokeResult, error) {
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir for %s: %w", inv.Stage, err)
	}
	// Sandbox runtimes reject bind sources that do not exist.
	for _, d := range inv.Dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s for %s: %w", d, inv.Stage, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log for %s: %w", inv.Stage, err)
	}
	defer iox.DiscardClose(logFile)

	var out io.Writer = logFile
	if p.Stream != nil {
		out = io.MultiWriter(logFile, p.Stream)
	}

	argv := SandboxCommand(p.Sandbox, inv)
	start := p.now()
	_, _ = fmt.Fprintf(out, "=== %s attempt started %s ===\n$ %s\n",
		inv.Stage, start.UTC().Format(time.RFC3339), strings.Join(argv, " "))

	res, err := p.run(ctx, inv, argv, out)
	if res != nil {
		res.Duration = p.now().Sub(start)
	}

	switch {
	case err == nil:
		_, _ = fmt.Fprintf(out, "=== %s succeeded after %s ===\n", inv.Stage, res.Duration.Round(time.Millisecond))
	case res != nil:
		_, _ = fmt.Fprintf(out, "=== %s failed with exit code %d: %v ===\n", inv.Stage, res.ExitCode, err)
	default:
		_, _ = fmt.Fprintf(out, "=== %s not completed: %v ===\n", inv.Stage, err)
	}
	return res, p.classify(inv, res, err, logPath)
}

// run executes the builtin or external action. A nil result means the
// action never started or was interrupted.
func (p *ProcessInvoker) run(ctx context.Context, inv stage.Invocation, argv []string, out io.Writer) (*InvokeResult, error) {
	if inv.IsBuiltin() {
		if err := inv.Builtin(ctx, out); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return &InvokeResult{ExitCode: 1}, err
		}
		return &InvokeResult{}, nil
	}

	if err := p.checkEnvironment(inv); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 10 * time.Second

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		return &InvokeResult{}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := -1
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			code = status.ExitStatus()
			if status.Signaled() {
				code = 128 + int(status.Signal())
			}
		}
		return &InvokeResult{ExitCode: code}, err
	}
	return nil, &types.EnvironmentError{Stage: inv.Stage, Err: err, Hint: "the tool could not be started"}
}

// checkEnvironment verifies the executable (host) or the sandbox runtime
// and local image exist before launch.
func (p *ProcessInvoker) checkEnvironment(inv stage.Invocation) error {
	if !p.sandboxed() {
		if _, err := p.lookPath(inv.Executable); err != nil {
			return &types.EnvironmentError{
				Stage: inv.Stage,
				Err:   err,
				Hint:  fmt.Sprintf("install %s or set tools.%s.executable", inv.Executable, inv.Stage),
			}
		}
		return nil
	}

	if _, err := p.lookPath(p.Sandbox); err != nil {
		return &types.EnvironmentError{
			Stage: inv.Stage,
			Err:   err,
			Hint:  fmt.Sprintf("install the %s runtime or set sandbox.runtime to none", p.Sandbox),
		}
	}
	if settings.IsLocalImage(inv.Image) {
		if _, err := os.Stat(inv.Image); err != nil {
			return &types.EnvironmentError{
				Stage: inv.Stage,
				Err:   fmt.Errorf("sandbox image: %w", err),
				Hint:  fmt.Sprintf("build or download the image, or set tools.%s.image", inv.Stage),
			}
		}
	}
	return nil
}

func (p *ProcessInvoker) classify(inv stage.Invocation, res *InvokeResult, err error, logPath string) error {
	if err == nil {
		return nil
	}
	if res == nil {
		// Environment errors and context cancellation pass through.
		return err
	}
	if p.sandboxed() && !inv.IsBuiltin() && res.ExitCode == commandNotFound {
		return &types.EnvironmentError{
			Stage: inv.Stage,
			Err:   fmt.Errorf("%s not found inside image %s", inv.Executable, inv.Image),
			Hint:  fmt.Sprintf("use an image that provides %s (see %s)", inv.Executable, logPath),
		}
	}
	return &types.ToolExecutionError{Stage: inv.Stage, ExitCode: res.ExitCode, LogPath: logPath}
}

var _ Invoker = (*ProcessInvoker)(nil)
