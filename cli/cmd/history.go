package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/cli/render"
	"github.com/pithecene-io/genoa/cli/tui"
	"github.com/pithecene-io/genoa/lode"
	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/types"
)

// HistoryCommand returns the history command.
// Runs are listed newest first for the configured organism.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs (requires history.backend)",
		Flags: append(SettingsFlags(), append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "run",
				Usage: "Show the stages of one run",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to return (0 = no limit)",
			},
		)...),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfiguration)
	}

	s, err := resolveSetup(c)
	if err != nil {
		return exitError(err)
	}
	history, err := openHistory(c.Context, s)
	if err != nil {
		return exitError(err)
	}
	if history == nil {
		return exitError(types.Configf("history.backend", "run history is disabled; set history.backend to fs or s3"))
	}
	defer func() { _ = history.Close() }()

	if runID := c.String("run"); runID != "" {
		stages, err := history.Stages(c.Context, runID)
		if errors.Is(err, lode.ErrNoRuns) {
			return cli.Exit("no recorded run with id "+runID, runtime.ExitCodeToolFailure)
		}
		if err != nil {
			return exitError(err)
		}
		rows := reader.HistoryStages(stages)
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewHistoryRun, rows)
		}
		return r.Render(rows)
	}

	runs, err := history.Runs(c.Context, lode.Filter{
		Organism: s.resolved.Organism,
		Limit:    c.Int("limit"),
	})
	if err != nil && !errors.Is(err, lode.ErrNoRuns) {
		return exitError(err)
	}
	rows := reader.History(runs)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewHistory, rows)
	}
	return r.Render(rows)
}
