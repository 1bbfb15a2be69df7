package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	genoaconfig "github.com/pithecene-io/genoa/cli/config"
	"github.com/pithecene-io/genoa/runtime"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/types"
)

// resolveString returns the CLI value if explicitly set, else the config
// value if non-empty, else the urfave default.
func resolveString(c *cli.Context, flag, cfgVal string) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(flag)
}

// resolveInt returns the CLI value if explicitly set, else the config
// value if non-zero, else the urfave default.
func resolveInt(c *cli.Context, flag string, cfgVal int) int {
	if c.IsSet(flag) {
		return c.Int(flag)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(flag)
}

// resolveBool returns the CLI value if explicitly set, else the config value.
func resolveBool(c *cli.Context, flag string, cfgVal bool) bool {
	if c.IsSet(flag) {
		return c.Bool(flag)
	}
	return cfgVal || c.Bool(flag)
}

// resolveDuration returns the CLI value if explicitly set, else the config
// value if non-zero, else the urfave default.
func resolveDuration(c *cli.Context, flag string, cfgVal time.Duration) time.Duration {
	if c.IsSet(flag) {
		return c.Duration(flag)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(flag)
}

// resolveSlice returns the CLI values if explicitly set, else the config values.
func resolveSlice(c *cli.Context, flag string, cfgVal []string) []string {
	if c.IsSet(flag) {
		return c.StringSlice(flag)
	}
	return cfgVal
}

// configVal reads a field from cfg, returning the zero value for a nil config.
func configVal[T any](cfg *genoaconfig.Config, get func(*genoaconfig.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// loadConfig loads --config, or the settings file discovered in the
// working directory. A nil config means no file was found and none was
// requested. Failures are configuration errors.
func loadConfig(c *cli.Context) (*genoaconfig.Config, error) {
	path := c.String("config")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = genoaconfig.Discover(wd)
		if path == "" {
			return nil, nil
		}
	}

	cfg, err := genoaconfig.Load(path)
	if err != nil {
		return nil, types.Configf("config", "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRaw merges file values with CLI flags; flags win.
func buildRaw(c *cli.Context, cfg *genoaconfig.Config) settings.Raw {
	var raw settings.Raw
	if cfg != nil {
		raw = cfg.Raw()
	}
	raw.Assembly = resolveString(c, "assembly", raw.Assembly)
	raw.Organism = resolveString(c, "organism", raw.Organism)
	raw.Species = resolveString(c, "species", raw.Species)
	raw.Threads = resolveInt(c, "threads", raw.Threads)
	raw.BuscoLineage = resolveString(c, "busco-lineage", raw.BuscoLineage)
	raw.WorkDir = resolveString(c, "work-dir", raw.WorkDir)
	raw.RepeatLibrary = resolveString(c, "repeat-library", raw.RepeatLibrary)
	raw.Proteins = resolveString(c, "proteins", raw.Proteins)
	raw.ReadsR1 = resolveSlice(c, "reads-r1", raw.ReadsR1)
	raw.ReadsR2 = resolveSlice(c, "reads-r2", raw.ReadsR2)
	raw.ReadsUnpaired = resolveSlice(c, "reads-unpaired", raw.ReadsUnpaired)
	raw.Alignment = resolveString(c, "alignment", raw.Alignment)
	raw.SandboxRuntime = resolveString(c, "sandbox-runtime", raw.SandboxRuntime)
	raw.SandboxImage = resolveString(c, "sandbox-image", raw.SandboxImage)
	return raw
}

// setup is the resolved state shared by every settings-aware command.
type setup struct {
	// config is never nil; it is empty when no settings file exists.
	config   *genoaconfig.Config
	resolved *settings.Resolved
}

// resolveSetup loads the settings file, applies flags and resolves
// settings against the working directory.
func resolveSetup(c *cli.Context) (*setup, error) {
	return resolveWith(c, settings.Resolve)
}

// resolveLayoutSetup is resolveSetup for commands that only manage the
// work-dir layout: evidence and the other run settings are not required.
func resolveLayoutSetup(c *cli.Context) (*setup, error) {
	return resolveWith(c, settings.ResolveLayout)
}

func resolveWith(c *cli.Context, resolve func(settings.Raw, string) (*settings.Resolved, error)) (*setup, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &genoaconfig.Config{}
	}
	cfg.Markers.Backend = resolveString(c, "marker-backend", cfg.Markers.Backend)
	cfg.Log.Level = resolveString(c, "log-level", cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	res, err := resolve(buildRaw(c, cfg), wd)
	if err != nil {
		return nil, err
	}
	return &setup{config: cfg, resolved: res}, nil
}

// exitError maps err to a cli.Exit carrying the taxonomy exit code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), runtime.ExitCodeFor(err))
}
