// Package stage defines the static catalog of pipeline stages: their
// predecessors, applicability rules and invocation templates.
//
// The catalog is compiled in. Declaration order is significant: it is
// the tie-break order used when planning.
package stage

import (
	"context"
	"io"
	"path/filepath"
	"slices"

	"github.com/pithecene-io/genoa/settings"
)

// Invocation is the fully constructed command for one stage attempt.
type Invocation struct {
	Stage string
	// Executable and Args describe an external tool launch.
	Executable string
	Args       []string
	// Dir is the working directory of the process.
	Dir string
	// OutputDir is the directory owned by the stage.
	OutputDir string
	// Dirs are directories outside OutputDir the tool writes into. They
	// must exist before launch.
	Dirs []string
	// Binds are host directories a sandbox must expose at the same path.
	Binds []string
	// Image is the sandbox image ("" when running on the host).
	Image string
	// Builtin, when non-nil, replaces the external launch with an
	// in-process action. Its diagnostics go to log.
	Builtin func(ctx context.Context, log io.Writer) error
}

// IsBuiltin reports whether the invocation runs in-process.
func (inv Invocation) IsBuiltin() bool { return inv.Builtin != nil }

// Command returns executable followed by args.
func (inv Invocation) Command() []string {
	if inv.IsBuiltin() {
		return []string{"(builtin)", inv.Stage}
	}
	return append([]string{inv.Executable}, inv.Args...)
}

// Stage is one catalog entry.
type Stage struct {
	Name string
	// Needs lists predecessors before applicability filtering.
	Needs []string
	// Tool is the default executable ("" for builtin stages).
	Tool        string
	Description string
	// Applies reports whether the stage takes part in a run with the
	// given configuration. Nil means always.
	Applies func(res *settings.Resolved) bool
	// AlsoWrites names stages whose output dirs this stage writes into.
	// Removing one of those dirs invalidates this stage too.
	AlsoWrites []string

	args func(res *settings.Resolved, t settings.Tool) []string
	// inputs are files the stage reads; their parent dirs are bound.
	inputs func(res *settings.Resolved) []string
	// dirs are directories bound as is and created before launch.
	dirs    func(res *settings.Resolved) []string
	builtin func(res *settings.Resolved) func(context.Context, io.Writer) error
}

// Applicable reports whether s applies under res.
func (s Stage) Applicable(res *settings.Resolved) bool {
	return s.Applies == nil || s.Applies(res)
}

// Invocation constructs the command for s under res. Construction is pure:
// nothing is launched and nothing on disk is touched.
func (s Stage) Invocation(res *settings.Resolved) Invocation {
	out := res.Paths.StageDir(s.Name)
	inv := Invocation{
		Stage:     s.Name,
		Dir:       out,
		OutputDir: out,
	}

	if s.builtin != nil {
		inv.Builtin = s.builtin(res)
		return inv
	}

	tool := res.Tool(s.Name)
	inv.Executable = s.Tool
	if tool.Executable != "" {
		inv.Executable = tool.Executable
	}
	inv.Args = s.args(res, tool)
	inv.Image = tool.Image

	var inputs []string
	if s.inputs != nil {
		inputs = s.inputs(res)
	}
	if s.dirs != nil {
		inv.Dirs = s.dirs(res)
	}
	inv.Binds = binds(out, inputs, inv.Dirs)
	return inv
}

// binds returns the deduplicated, sorted set of host directories covering
// the stage output dir, the parent of every input file and every extra dir.
// Nothing broader is exposed.
func binds(outDir string, inputs, dirs []string) []string {
	set := map[string]bool{outDir: true}
	for _, in := range inputs {
		if in != "" {
			set[filepath.Dir(in)] = true
		}
	}
	for _, d := range dirs {
		if d != "" {
			set[d] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Catalog returns the stages in declaration order.
func Catalog() []Stage {
	return slices.Clone(catalog)
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Stage, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// CoWriters returns, in declaration order, the stages that write into
// name's output dir.
func CoWriters(name string) []string {
	var out []string
	for _, s := range catalog {
		if slices.Contains(s.AlsoWrites, name) {
			out = append(out, s.Name)
		}
	}
	return out
}

// Names returns the catalog stage names in declaration order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}

func needsAlignment(res *settings.Resolved) bool { return res.Evidence.NeedsAlignment() }

func hasSupplementaryLibrary(res *settings.Resolved) bool {
	return res.Paths.SupplementaryLibrary != ""
}
