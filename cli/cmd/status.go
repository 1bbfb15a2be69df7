package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/cli/render"
	"github.com/pithecene-io/genoa/cli/tui"
	"github.com/pithecene-io/genoa/runtime"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show applicability and completion state of every stage",
		Flags:  append(SettingsFlags(), ReadOnlyFlags()...),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfiguration)
	}

	s, err := resolveSetup(c)
	if err != nil {
		return exitError(err)
	}
	store, release, err := openMarkers(c.Context, s)
	if err != nil {
		return exitError(err)
	}
	defer func() { _ = release() }()

	states, err := runtime.Status(c.Context, s.resolved, store)
	if err != nil {
		return exitError(err)
	}
	view := reader.Status(string(s.resolved.Mode), states)

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatus, view)
	}
	return r.Render(view)
}

// StagesCommand returns the stages command. It lists the static catalog
// and needs no settings.
func StagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "stages",
		Usage: "List the stage catalog",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), runtime.ExitCodeConfiguration)
			}
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for stages command", 1)
			}
			return r.Render(reader.Stages())
		},
	}
}
