package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/genoa/evidence"
	"github.com/pithecene-io/genoa/types"
)

// Resolve validates raw and derives absolute paths against base, which
// must be absolute (normally the process working directory).
func Resolve(raw Raw, base string) (*Resolved, error) {
	if !filepath.IsAbs(base) {
		return nil, fmt.Errorf("resolve base %q must be absolute", base)
	}

	if err := validateRequired(raw); err != nil {
		return nil, err
	}

	abs := absAgainst(base)
	paths := Paths{
		WorkDir:              abs(workDirOrDefault(raw.WorkDir)),
		Assembly:             abs(raw.Assembly),
		Proteins:             abs(raw.Proteins),
		ReadsR1:              absAll(raw.ReadsR1, abs),
		ReadsR2:              absAll(raw.ReadsR2, abs),
		ReadsUnpaired:        absAll(raw.ReadsUnpaired, abs),
		PreAligned:           abs(raw.Alignment),
		SupplementaryLibrary: abs(raw.RepeatLibrary),
	}

	if len(paths.ReadsR1) != len(paths.ReadsR2) {
		return nil, types.Configf("evidence.reads", "r1 has %d files but r2 has %d; paired reads must match",
			len(paths.ReadsR1), len(paths.ReadsR2))
	}

	ev := evidence.Evidence{
		Proteins:   paths.Proteins != "",
		RawReads:   len(paths.ReadsR1) > 0 || len(paths.ReadsUnpaired) > 0,
		PreAligned: paths.PreAligned != "",
	}
	mode, err := ev.Mode()
	if err != nil {
		return nil, err
	}

	var warnings []string
	if ev.RawReads && ev.PreAligned {
		warnings = append(warnings, "both raw reads and a pre-aligned result are configured; using the pre-aligned result and skipping alignment")
	}

	stageDirs, err := resolveStageDirs(raw.Tools, paths.WorkDir)
	if err != nil {
		return nil, err
	}
	paths.stageDirs = stageDirs

	deriveArtifactPaths(&paths, raw.Organism, ev)

	s := Settings{
		Organism:       raw.Organism,
		Species:        raw.Species,
		Threads:        raw.Threads,
		BuscoLineage:   raw.BuscoLineage,
		SandboxRuntime: raw.SandboxRuntime,
	}
	if s.SandboxRuntime == "" {
		s.SandboxRuntime = RuntimeNone
	}
	switch s.SandboxRuntime {
	case RuntimeNone, RuntimeSingularity, RuntimeApptainer, RuntimeDocker:
	default:
		return nil, types.Configf("sandbox.runtime", "unknown runtime %q (must be none, singularity, apptainer or docker)", s.SandboxRuntime)
	}

	tools, err := resolveTools(raw, s.Sandboxed(), abs)
	if err != nil {
		return nil, err
	}
	s.Tools = tools

	return &Resolved{
		Settings: s,
		Paths:    paths,
		Evidence: ev,
		Mode:     mode,
		Warnings: warnings,
	}, nil
}

// ResolveLayout derives only the work-dir layout: stage output dirs, logs,
// state and cached downloads. It needs no evidence or tool settings, so
// outputs can be managed without a runnable configuration. The result has
// no mode and no artifact paths.
func ResolveLayout(raw Raw, base string) (*Resolved, error) {
	if !filepath.IsAbs(base) {
		return nil, fmt.Errorf("resolve base %q must be absolute", base)
	}
	for name := range raw.Tools {
		if !types.IsStage(name) {
			return nil, types.Configf("tools", "unknown stage %q", name)
		}
	}

	paths := Paths{WorkDir: absAgainst(base)(workDirOrDefault(raw.WorkDir))}
	stageDirs, err := resolveStageDirs(raw.Tools, paths.WorkDir)
	if err != nil {
		return nil, err
	}
	paths.stageDirs = stageDirs
	deriveLayoutPaths(&paths)

	return &Resolved{
		Settings: Settings{Organism: raw.Organism, SandboxRuntime: RuntimeNone},
		Paths:    paths,
	}, nil
}

func absAgainst(base string) func(string) string {
	return func(p string) string {
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}
}

func workDirOrDefault(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func validateRequired(raw Raw) error {
	if strings.TrimSpace(raw.Assembly) == "" {
		return types.Configf("assembly", "input assembly path is required")
	}
	for _, f := range []struct{ field, value string }{
		{"organism", raw.Organism},
		{"species", raw.Species},
		{"busco_lineage", raw.BuscoLineage},
	} {
		if strings.TrimSpace(f.value) == "" {
			return types.Configf(f.field, "required")
		}
	}
	if strings.ContainsAny(raw.Organism, `/\`) || raw.Organism == "." || raw.Organism == ".." {
		return types.Configf("organism", "%q is used in file names and must not contain path separators", raw.Organism)
	}
	if raw.Threads <= 0 {
		return types.Configf("threads", "must be > 0, got %d", raw.Threads)
	}
	return nil
}

func resolveStageDirs(tools map[string]RawTool, workDir string) (map[string]string, error) {
	reserved := map[string]bool{
		StateDirName:          true,
		LogDirName:            true,
		BuscoDownloadsDirName: true,
	}

	dirs := make(map[string]string, len(types.StageNames))
	owner := make(map[string]string, len(types.StageNames))
	for _, name := range types.StageNames {
		rel := name
		if t, ok := tools[name]; ok && t.OutputDir != "" {
			rel = t.OutputDir
		}
		if filepath.IsAbs(rel) || rel != filepath.Base(rel) || rel == "." || rel == ".." {
			return nil, types.Configf("tools."+name+".output_dir", "%q must be a single relative directory name", rel)
		}
		if reserved[rel] {
			return nil, types.Configf("tools."+name+".output_dir", "%q is reserved", rel)
		}
		if other, taken := owner[rel]; taken {
			return nil, types.Configf("tools."+name+".output_dir", "%q is already used by stage %s", rel, other)
		}
		owner[rel] = name
		dirs[name] = filepath.Join(workDir, rel)
	}
	return dirs, nil
}

func resolveTools(raw Raw, sandboxed bool, abs func(string) string) (map[string]Tool, error) {
	for name := range raw.Tools {
		if !types.IsStage(name) {
			return nil, types.Configf("tools", "unknown stage %q", name)
		}
	}

	resolveImage := func(image string) string {
		if IsLocalImage(image) {
			return abs(image)
		}
		return image
	}

	defaultImage := resolveImage(raw.SandboxImage)
	tools := make(map[string]Tool, len(types.StageNames))
	for _, name := range types.StageNames {
		rt := raw.Tools[name]
		t := Tool{
			Executable: rt.Executable,
			ExtraArgs:  append([]string(nil), rt.ExtraArgs...),
		}
		if sandboxed && !types.IsBuiltinStage(name) {
			t.Image = defaultImage
			if rt.Image != "" {
				t.Image = resolveImage(rt.Image)
			}
			if t.Image == "" {
				return nil, types.Configf("tools."+name+".image", "sandbox runtime is set but no image is configured for this stage or as sandbox.image")
			}
		}
		if types.IsBuiltinStage(name) && (rt.Executable != "" || rt.Image != "" || len(rt.ExtraArgs) > 0) {
			return nil, types.Configf("tools."+name, "builtin stage accepts only output_dir")
		}
		tools[name] = t
	}
	return tools, nil
}

// IsLocalImage reports whether image names a file on disk (such as a
// .sif) rather than a registry reference like docker://org/img:tag.
func IsLocalImage(image string) bool {
	if image == "" || strings.Contains(image, "://") {
		return false
	}
	return strings.HasSuffix(image, ".sif") || strings.HasSuffix(image, ".simg") ||
		strings.HasPrefix(image, "/") || strings.HasPrefix(image, "./") || strings.HasPrefix(image, "../")
}

func absAll(in []string, abs func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, abs(p))
	}
	return out
}

func deriveLayoutPaths(p *Paths) {
	p.StateDir = filepath.Join(p.WorkDir, StateDirName)
	p.MarkerDir = filepath.Join(p.StateDir, MarkerDirName)
	p.HistoryDir = filepath.Join(p.StateDir, HistoryDirName)
	p.LogDir = filepath.Join(p.WorkDir, LogDirName)
	p.BuscoDownloads = filepath.Join(p.WorkDir, BuscoDownloadsDirName)
}

func deriveArtifactPaths(p *Paths, organism string, ev evidence.Evidence) {
	deriveLayoutPaths(p)

	p.RepeatDatabase = filepath.Join(p.StageDir(types.StageRepeatDatabase), organism)
	p.ModeledFamilies = p.RepeatDatabase + "-families.fa"
	p.MergedLibrary = filepath.Join(p.StageDir(types.StageRepeatLibrary), organism+"-merged.fa")
	p.RepeatLibrary = p.ModeledFamilies
	if p.SupplementaryLibrary != "" {
		p.RepeatLibrary = p.MergedLibrary
	}

	p.MaskedAssembly = filepath.Join(p.StageDir(types.StageRepeatMasker), filepath.Base(p.Assembly)+".masked")
	p.AlignIndex = filepath.Join(p.StageDir(types.StageAlignIndex), organism)
	p.AlignSAM = filepath.Join(p.StageDir(types.StageAlignReads), organism+".sam")
	p.SortedBAM = filepath.Join(p.StageDir(types.StageAlignSort), organism+".bam")

	switch {
	case ev.PreAligned:
		p.Alignment = p.PreAligned
	case ev.RawReads:
		p.Alignment = p.SortedBAM
	}
}
