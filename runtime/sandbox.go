package runtime

import (
	"slices"

	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/stage"
)

// SandboxCommand returns the argv that runs inv under runtime. Every bind
// maps a host directory to the same path inside the sandbox, so resolved
// paths in the tool arguments need no translation. Builtin invocations
// return their display form.
func SandboxCommand(runtime string, inv stage.Invocation) []string {
	if inv.IsBuiltin() {
		return inv.Command()
	}

	var argv []string
	switch runtime {
	case settings.RuntimeSingularity, settings.RuntimeApptainer:
		argv = []string{runtime, "exec", "--pwd", inv.Dir}
		for _, b := range inv.Binds {
			argv = append(argv, "--bind", b+":"+b)
		}
		argv = append(argv, inv.Image)
	case settings.RuntimeDocker:
		argv = []string{runtime, "run", "--rm", "-w", inv.Dir}
		for _, b := range inv.Binds {
			argv = append(argv, "-v", b+":"+b)
		}
		argv = append(argv, inv.Image)
	default:
		return slices.Clone(inv.Command())
	}
	return append(argv, inv.Command()...)
}
