package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/adapter"
	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/cli/render"
	"github.com/pithecene-io/genoa/lode"
	"github.com/pithecene-io/genoa/log"
	"github.com/pithecene-io/genoa/metrics"
	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/types"
)

// finalizeTimeout bounds history and notification writes, which run on a
// fresh context after the run context may already be canceled.
const finalizeTimeout = 30 * time.Second

// RunCommand returns the run command.
// This is the only command that executes tools.
func RunCommand() *cli.Command {
	flags := append(SettingsFlags(),
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run ID (default: random UUID)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print the plan without executing anything",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON run report to this path (- for stderr)",
		},
		&cli.BoolFlag{
			Name:  "stream",
			Usage: "Also stream tool output to stderr",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the result summary",
		},
		&cli.StringFlag{
			Name:  "notify",
			Usage: "Completion notification: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "notify-url",
			Usage: "Webhook URL or Redis URL for notifications",
		},
		&cli.StringFlag{
			Name:  "notify-channel",
			Usage: "Redis channel for notifications",
		},
		&cli.DurationFlag{
			Name:  "notify-timeout",
			Usage: "Per-attempt notification timeout",
		},
		&cli.IntFlag{
			Name:  "notify-retries",
			Usage: "Notification retry attempts",
		},
		FormatFlag,
	)
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a stage and everything it needs (default: all)",
		ArgsUsage: "[stage|all]",
		Flags:     flags,
		Action:    runAction,
	}
}

// PlanCommand returns the plan command, equivalent to `run --dry-run`.
func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Show the ordered plan for a target without running anything",
		ArgsUsage: "[stage|all]",
		Flags:     append(SettingsFlags(), ReadOnlyFlags()...),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for plan command", 1)
			}
			return planAction(c)
		},
	}
}

// targetArg returns the single optional positional target.
func targetArg(c *cli.Context) (string, error) {
	switch c.NArg() {
	case 0:
		return types.TargetAll, nil
	case 1:
		return c.Args().First(), nil
	default:
		return "", types.Configf("target", "expected at most one target, got %d", c.NArg())
	}
}

// newRunMeta builds run identity, generating a run ID when none was given.
func newRunMeta(c *cli.Context, target, organism string) *types.RunMeta {
	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	return &types.RunMeta{RunID: runID, Target: target, Organism: organism}
}

func newLogger(s *setup, meta *types.RunMeta) (*log.Logger, error) {
	level, err := log.ParseLevel(s.config.Log.Level)
	if err != nil {
		return nil, types.Configf("log.level", "%v", err)
	}
	return log.NewLogger(meta, level), nil
}

// orchestration holds everything a run or plan needs; release frees it.
type orchestration struct {
	setup     *setup
	meta      *types.RunMeta
	logger    *log.Logger
	collector *metrics.Collector
	orch      *runtime.Orchestrator
	release   func() error
}

func prepare(ctx context.Context, c *cli.Context) (*orchestration, error) {
	target, err := targetArg(c)
	if err != nil {
		return nil, err
	}
	s, err := resolveSetup(c)
	if err != nil {
		return nil, err
	}
	meta := newRunMeta(c, target, s.resolved.Organism)
	logger, err := newLogger(s, meta)
	if err != nil {
		return nil, err
	}
	for _, w := range s.resolved.Warnings {
		logger.Warn(w, nil)
	}

	store, release, err := openMarkers(ctx, s)
	if err != nil {
		return nil, err
	}

	var stream io.Writer
	if c.Bool("stream") {
		stream = os.Stderr
	}
	collector := metrics.NewCollector(string(s.resolved.Mode), s.resolved.SandboxRuntime, s.markerBackend(), meta.RunID)
	orch, err := runtime.NewOrchestrator(&runtime.RunConfig{
		Resolved:  s.resolved,
		Markers:   store,
		Invoker:   runtime.NewProcessInvoker(s.resolved.SandboxRuntime, stream),
		RunMeta:   meta,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		_ = release()
		return nil, err
	}
	logger.Info("mode selected", map[string]any{"mode": s.resolved.Mode, "evidence": s.resolved.Evidence.String()})

	return &orchestration{
		setup:     s,
		meta:      meta,
		logger:    logger,
		collector: collector,
		orch:      orch,
		release:   release,
	}, nil
}

func planAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfiguration)
	}

	o, err := prepare(c.Context, c)
	if err != nil {
		return exitError(err)
	}
	defer func() { _ = o.release() }()
	defer func() { _ = o.logger.Sync() }()

	plan, err := o.orch.Plan(c.Context, o.meta.Target)
	if err != nil {
		return exitError(err)
	}
	return r.Render(reader.Plan(plan))
}

func runAction(c *cli.Context) error {
	if c.Bool("dry-run") {
		return planAction(c)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o, err := prepare(ctx, c)
	if err != nil {
		return exitError(err)
	}
	defer func() { _ = o.release() }()
	defer func() { _ = o.logger.Sync() }()

	// Notification and history settings are checked before any tool runs.
	choice, err := parseNotifyConfig(c, o.setup.config)
	if err != nil {
		return exitError(err)
	}
	notifier, err := newNotifier(choice)
	if err != nil {
		return exitError(types.Configf("notify", "%v", err))
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
	}
	history, err := openHistory(ctx, o.setup)
	if err != nil {
		return exitError(err)
	}
	if history != nil {
		defer func() { _ = history.Close() }()
	}

	result, runErr := o.orch.Run(ctx, o.meta.Target)
	exitCode := runtime.ExitCodeFor(runErr)
	completedAt := time.Now()

	recordHistory(o, history, result, exitCode, completedAt)
	publishCompletion(o.logger, notifier, adapter.NewEvent(result, o.setup.resolved.Organism, completedAt))

	if path := c.String("report"); path != "" {
		report := runtime.BuildRunReport(result, o.collector.Snapshot(), exitCode)
		if err := runtime.WriteRunReport(report, path); err != nil {
			o.logger.Error("failed to write run report", map[string]any{"path": path, "error": err.Error()})
		}
	}

	if !c.Bool("quiet") {
		printRunResult(os.Stdout, result)
	}

	if runErr != nil {
		return cli.Exit(runErr.Error(), exitCode)
	}
	return nil
}

// recordHistory appends the run to history. Failures are logged only.
func recordHistory(o *orchestration, history *lode.History, result *runtime.RunResult, exitCode int, completedAt time.Time) {
	if history == nil {
		return
	}
	snap := o.collector.Snapshot()
	run, stages := lode.NewRecords(result, o.setup.resolved.Organism, &snap, exitCode, completedAt)

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := history.Record(ctx, run, stages); err != nil {
		o.collector.IncHistoryWriteFailure()
		o.logger.Warn("failed to record run history", map[string]any{"error": err.Error()})
		return
	}
	o.collector.IncHistoryWriteSuccess()
}

// publishCompletion sends the completion event. Failures are logged only.
func publishCompletion(logger *log.Logger, notifier adapter.Adapter, event *adapter.PipelineCompletedEvent) {
	if notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := notifier.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish completion event", map[string]any{"error": err.Error()})
		return
	}
	logger.Debug("completion event published", map[string]any{"outcome": event.Outcome})
}

func printRunResult(w io.Writer, result *runtime.RunResult) {
	ran, skipped := result.Counts()
	_, _ = fmt.Fprintf(w, "\nrun_id=%s, target=%s, mode=%s, outcome=%s, duration=%s\n",
		result.RunMeta.RunID,
		result.Target,
		result.Mode,
		result.Outcome,
		result.Duration.Round(time.Millisecond),
	)
	_, _ = fmt.Fprintf(w, "stages: %d run, %d skipped\n", ran, skipped)

	if len(result.Stages) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n=== Stages ===\n")
	for _, s := range result.Stages {
		line := fmt.Sprintf("  %-22s %-9s", s.Name, s.Status)
		if s.Status == types.StageSucceeded || s.Status == types.StageFailed {
			line += fmt.Sprintf(" %s", s.Duration.Round(time.Millisecond))
		}
		if s.Status == types.StageFailed {
			line += fmt.Sprintf(" (log: %s)", s.LogPath)
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
