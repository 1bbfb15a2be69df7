package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/cli/render"
	"github.com/pithecene-io/genoa/types"
)

// VersionCommand returns the version command.
// It reports the project version and the marker format version, and
// needs no settings.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		return r.Render(reader.VersionInfo{
			Version:       types.Version,
			Commit:        commit,
			MarkerVersion: types.MarkerFormatVersion,
		})
	}
}

// Commands returns every genoa command in display order.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		RunCommand(),
		PlanCommand(),
		StatusCommand(),
		StagesCommand(),
		CleanCommand(),
		CleanAllCommand(),
		HistoryCommand(),
		VersionCommand(commit),
	}
}
