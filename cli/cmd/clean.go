package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/cli/render"
	"github.com/pithecene-io/genoa/runtime"
)

// CleanCommand returns the clean command: stage outputs, logs and markers.
func CleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove stage outputs, logs and completion markers",
		Flags: append(SettingsFlags(),
			&cli.StringFlag{
				Name:  "stage",
				Usage: "Only clean this stage's output dir, log and marker",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List what would be removed without removing it",
			},
			FormatFlag,
		),
		Action: func(c *cli.Context) error {
			return cleanAction(c, runtime.CleanOptions{
				Stage:  c.String("stage"),
				DryRun: c.Bool("dry-run"),
			})
		},
	}
}

// CleanAllCommand returns the clean-all command: clean plus cached
// artifacts and the whole state dir.
func CleanAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean-all",
		Usage: "Clean plus cached artifacts (BUSCO downloads) and all genoa state",
		Flags: append(SettingsFlags(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List what would be removed without removing it",
			},
			FormatFlag,
		),
		Action: func(c *cli.Context) error {
			return cleanAction(c, runtime.CleanOptions{
				Cached: true,
				DryRun: c.Bool("dry-run"),
			})
		},
	}
}

func cleanAction(c *cli.Context, opts runtime.CleanOptions) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfiguration)
	}

	s, err := resolveLayoutSetup(c)
	if err != nil {
		return exitError(err)
	}
	store, release, err := openMarkers(c.Context, s)
	if err != nil {
		return exitError(err)
	}
	defer func() { _ = release() }()

	result, err := runtime.Clean(c.Context, s.resolved, store, opts)
	if err != nil {
		return exitError(err)
	}
	return r.Render(reader.Clean(result))
}
