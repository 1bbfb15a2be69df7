// Package cmd provides CLI commands for the genoa binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (status, history).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (status, history only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ConfigFlag points at a settings file. Without it genoa.yaml, genoa.yml
// or genoa.hcl in the working directory is used when present.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to settings file (YAML or HCL)",
	EnvVars: []string{"GENOA_CONFIG"},
}

// SettingsFlags returns the flags that override settings file values.
// None is marked required: a value may come from the file instead, and
// missing values are reported by resolution.
func SettingsFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "assembly", Usage: "Genome assembly FASTA"},
		&cli.StringFlag{Name: "organism", Usage: "Organism label used in output names"},
		&cli.StringFlag{Name: "species", Usage: "Gene-model species name"},
		&cli.IntFlag{Name: "threads", Aliases: []string{"t"}, Usage: "Threads per tool"},
		&cli.StringFlag{Name: "busco-lineage", Usage: "BUSCO lineage dataset"},
		&cli.StringFlag{Name: "work-dir", Aliases: []string{"w"}, Usage: "Working directory for outputs (default .)"},
		&cli.StringFlag{Name: "repeat-library", Usage: "Supplementary repeat library merged with modeled families"},
		&cli.StringFlag{Name: "proteins", Usage: "Protein evidence FASTA"},
		&cli.StringSliceFlag{Name: "reads-r1", Usage: "Paired RNA-seq reads, mate 1 (repeatable)"},
		&cli.StringSliceFlag{Name: "reads-r2", Usage: "Paired RNA-seq reads, mate 2 (repeatable)"},
		&cli.StringSliceFlag{Name: "reads-unpaired", Usage: "Unpaired RNA-seq reads (repeatable)"},
		&cli.StringFlag{Name: "alignment", Usage: "Pre-aligned RNA-seq result (BAM)"},
		&cli.StringFlag{Name: "sandbox-runtime", Usage: "Sandbox runtime: none, singularity, apptainer, docker"},
		&cli.StringFlag{Name: "sandbox-image", Usage: "Default sandbox image for every tool"},
		&cli.StringFlag{Name: "marker-backend", Usage: "Marker backend: fs, redis, s3"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
	}
}
