package settings

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/pithecene-io/genoa/evidence"
	"github.com/pithecene-io/genoa/types"
)

const base = "/data/project"

func validRaw() Raw {
	return Raw{
		Assembly:     "genome/asm.fa",
		Organism:     "dmel",
		Species:      "dmel_braker",
		Threads:      8,
		BuscoLineage: "diptera_odb10",
		WorkDir:      "run",
		Proteins:     "/ref/proteins.fa",
	}
}

func mustResolve(t *testing.T, raw Raw) *Resolved {
	t.Helper()
	res, err := Resolve(raw, base)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return res
}

func TestResolve_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Raw)
		field string
	}{
		{"assembly", func(r *Raw) { r.Assembly = "" }, "assembly"},
		{"organism", func(r *Raw) { r.Organism = " " }, "organism"},
		{"species", func(r *Raw) { r.Species = "" }, "species"},
		{"lineage", func(r *Raw) { r.BuscoLineage = "" }, "busco_lineage"},
		{"threads zero", func(r *Raw) { r.Threads = 0 }, "threads"},
		{"organism path", func(r *Raw) { r.Organism = "a/b" }, "organism"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mut(&raw)
			_, err := Resolve(raw, base)
			var cfgErr *types.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Resolve() error = %v, want ConfigurationError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestResolve_FirstMissingFieldIsStable(t *testing.T) {
	raw := validRaw()
	raw.Organism, raw.Species, raw.BuscoLineage = "", "", ""
	for range 20 {
		_, err := Resolve(raw, base)
		var cfgErr *types.ConfigurationError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "organism" {
			t.Fatalf("Resolve() error = %v, want organism reported first", err)
		}
	}
}

func TestResolveLayout(t *testing.T) {
	res, err := ResolveLayout(Raw{
		WorkDir: "run",
		Tools:   map[string]RawTool{types.StageBusco: {OutputDir: "busco_out"}},
	}, base)
	if err != nil {
		t.Fatalf("ResolveLayout() error = %v", err)
	}
	p := res.Paths
	checks := map[string]string{
		"WorkDir":        p.WorkDir,
		"busco":          p.StageDir(types.StageBusco),
		"repeat_masker":  p.StageDir(types.StageRepeatMasker),
		"MarkerDir":      p.MarkerDir,
		"LogDir":         p.LogDir,
		"BuscoDownloads": p.BuscoDownloads,
	}
	want := map[string]string{
		"WorkDir":        "/data/project/run",
		"busco":          "/data/project/run/busco_out",
		"repeat_masker":  "/data/project/run/repeat_masker",
		"MarkerDir":      "/data/project/run/.genoa/markers",
		"LogDir":         "/data/project/run/logs",
		"BuscoDownloads": "/data/project/run/busco_downloads",
	}
	for k, got := range checks {
		if got != want[k] {
			t.Errorf("%s = %q, want %q", k, got, want[k])
		}
	}
	if res.Mode != "" || res.Sandboxed() {
		t.Errorf("layout-only result has Mode %q, sandboxed %v", res.Mode, res.Sandboxed())
	}
}

func TestResolveLayout_Invalid(t *testing.T) {
	if _, err := ResolveLayout(Raw{}, "relative"); err == nil {
		t.Error("relative base should fail")
	}
	for _, tools := range []map[string]RawTool{
		{"nope": {}},
		{types.StageBusco: {OutputDir: "../x"}},
	} {
		if _, err := ResolveLayout(Raw{Tools: tools}, base); !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("tools %v: error = %v, want ConfigurationError", tools, err)
		}
	}
}

func TestResolve_NoEvidenceFails(t *testing.T) {
	raw := validRaw()
	raw.Proteins = ""
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("Resolve() error = %v, want ConfigurationError", err)
	}
}

func TestResolve_RelativeBaseRejected(t *testing.T) {
	if _, err := Resolve(validRaw(), "relative"); err == nil {
		t.Fatal("Resolve() with relative base should fail")
	}
}

func TestResolve_AbsolutePaths(t *testing.T) {
	res := mustResolve(t, validRaw())

	if res.Paths.WorkDir != "/data/project/run" {
		t.Errorf("WorkDir = %q", res.Paths.WorkDir)
	}
	if res.Paths.Assembly != "/data/project/genome/asm.fa" {
		t.Errorf("Assembly = %q", res.Paths.Assembly)
	}
	if res.Paths.Proteins != "/ref/proteins.fa" {
		t.Errorf("Proteins = %q", res.Paths.Proteins)
	}
	if res.Paths.MarkerDir != "/data/project/run/.genoa/markers" {
		t.Errorf("MarkerDir = %q", res.Paths.MarkerDir)
	}
	if got := res.Paths.LogPath(types.StageBusco); got != "/data/project/run/logs/busco.log" {
		t.Errorf("LogPath(busco) = %q", got)
	}
	if got := res.Paths.MaskedAssembly; got != "/data/project/run/repeat_masker/asm.fa.masked" {
		t.Errorf("MaskedAssembly = %q", got)
	}
}

func TestResolve_DefaultWorkDir(t *testing.T) {
	raw := validRaw()
	raw.WorkDir = ""
	res := mustResolve(t, raw)
	if res.Paths.WorkDir != base {
		t.Errorf("WorkDir = %q, want %q", res.Paths.WorkDir, base)
	}
}

func TestResolve_ModeAndAlignment(t *testing.T) {
	tests := []struct {
		name          string
		mut           func(*Raw)
		wantMode      evidence.Mode
		wantAlignment string
		wantChain     bool
		wantWarning   bool
	}{
		{
			name:     "protein only",
			mut:      func(*Raw) {},
			wantMode: evidence.ModeEP,
		},
		{
			name: "raw reads only",
			mut: func(r *Raw) {
				r.Proteins = ""
				r.ReadsR1 = []string{"reads/a_1.fq.gz"}
				r.ReadsR2 = []string{"reads/a_2.fq.gz"}
			},
			wantMode:      evidence.ModeET,
			wantAlignment: "/data/project/run/align_sort/dmel.bam",
			wantChain:     true,
		},
		{
			name: "unpaired reads only",
			mut: func(r *Raw) {
				r.Proteins = ""
				r.ReadsUnpaired = []string{"reads/u.fq.gz"}
			},
			wantMode:      evidence.ModeET,
			wantAlignment: "/data/project/run/align_sort/dmel.bam",
			wantChain:     true,
		},
		{
			name:          "protein and pre-aligned",
			mut:           func(r *Raw) { r.Alignment = "rna.bam" },
			wantMode:      evidence.ModeETP,
			wantAlignment: "/data/project/rna.bam",
		},
		{
			name: "raw reads and pre-aligned",
			mut: func(r *Raw) {
				r.Alignment = "/bam/rna.bam"
				r.ReadsUnpaired = []string{"u.fq"}
			},
			wantMode:      evidence.ModeETP,
			wantAlignment: "/bam/rna.bam",
			wantWarning:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mut(&raw)
			res := mustResolve(t, raw)
			if res.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", res.Mode, tt.wantMode)
			}
			if res.Paths.Alignment != tt.wantAlignment {
				t.Errorf("Alignment = %q, want %q", res.Paths.Alignment, tt.wantAlignment)
			}
			if res.Evidence.NeedsAlignment() != tt.wantChain {
				t.Errorf("NeedsAlignment = %v, want %v", res.Evidence.NeedsAlignment(), tt.wantChain)
			}
			if (len(res.Warnings) > 0) != tt.wantWarning {
				t.Errorf("Warnings = %v, want warning %v", res.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestResolve_MismatchedPairs(t *testing.T) {
	raw := validRaw()
	raw.ReadsR1 = []string{"a_1.fq", "b_1.fq"}
	raw.ReadsR2 = []string{"a_2.fq"}
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("Resolve() error = %v, want ConfigurationError", err)
	}
}

func TestResolve_RepeatLibrary(t *testing.T) {
	res := mustResolve(t, validRaw())
	if res.Paths.RepeatLibrary != "/data/project/run/repeat_database/dmel-families.fa" {
		t.Errorf("RepeatLibrary without supplement = %q", res.Paths.RepeatLibrary)
	}

	raw := validRaw()
	raw.RepeatLibrary = "lib/extra.fa"
	res = mustResolve(t, raw)
	if res.Paths.RepeatLibrary != "/data/project/run/repeat_library/dmel-merged.fa" {
		t.Errorf("RepeatLibrary with supplement = %q", res.Paths.RepeatLibrary)
	}
	if res.Paths.SupplementaryLibrary != "/data/project/lib/extra.fa" {
		t.Errorf("SupplementaryLibrary = %q", res.Paths.SupplementaryLibrary)
	}
}

func TestResolve_OutputDirOverrides(t *testing.T) {
	raw := validRaw()
	raw.Tools = map[string]RawTool{types.StageBusco: {OutputDir: "busco_out"}}
	res := mustResolve(t, raw)
	if got := res.Paths.StageDir(types.StageBusco); got != "/data/project/run/busco_out" {
		t.Errorf("StageDir(busco) = %q", got)
	}

	bad := []string{"a/b", "..", "/abs", "logs", ".genoa", types.StageRepeatMasker}
	for _, dir := range bad {
		raw := validRaw()
		raw.Tools = map[string]RawTool{types.StageBusco: {OutputDir: dir}}
		if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("output_dir %q: error = %v, want ConfigurationError", dir, err)
		}
	}
}

func TestResolve_Tools(t *testing.T) {
	raw := validRaw()
	raw.Tools = map[string]RawTool{"bogus": {}}
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("unknown tool: error = %v, want ConfigurationError", err)
	}

	raw = validRaw()
	raw.Tools = map[string]RawTool{types.StageRepeatLibrary: {ExtraArgs: []string{"-x"}}}
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("builtin extra args: error = %v, want ConfigurationError", err)
	}

	raw = validRaw()
	raw.Tools = map[string]RawTool{types.StageBusco: {ExtraArgs: []string{"--offline"}, Executable: "/opt/busco"}}
	res := mustResolve(t, raw)
	tool := res.Tool(types.StageBusco)
	if !slices.Equal(tool.ExtraArgs, []string{"--offline"}) || tool.Executable != "/opt/busco" {
		t.Errorf("Tool(busco) = %+v", tool)
	}
}

func TestResolve_Sandbox(t *testing.T) {
	raw := validRaw()
	raw.SandboxRuntime = "podman"
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("unknown runtime: error = %v, want ConfigurationError", err)
	}

	raw = validRaw()
	raw.SandboxRuntime = RuntimeSingularity
	if _, err := Resolve(raw, base); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("missing image: error = %v, want ConfigurationError", err)
	}

	raw = validRaw()
	raw.SandboxRuntime = RuntimeSingularity
	raw.SandboxImage = "images/braker3.sif"
	raw.Tools = map[string]RawTool{types.StageBusco: {Image: "docker://ezlabgva/busco:v5"}}
	res := mustResolve(t, raw)
	if !res.Sandboxed() {
		t.Fatal("Sandboxed() = false")
	}
	if got := res.Tool(types.StageGeneAnnotation).Image; got != "/data/project/images/braker3.sif" {
		t.Errorf("default image = %q", got)
	}
	if got := res.Tool(types.StageBusco).Image; got != "docker://ezlabgva/busco:v5" {
		t.Errorf("busco image = %q", got)
	}
	if got := res.Tool(types.StageRepeatLibrary).Image; got != "" {
		t.Errorf("builtin stage image = %q, want empty", got)
	}

	res = mustResolve(t, validRaw())
	if res.Sandboxed() || res.SandboxRuntime != RuntimeNone {
		t.Errorf("default runtime = %q, want none", res.SandboxRuntime)
	}
}

func TestIsLocalImage(t *testing.T) {
	tests := map[string]bool{
		"braker3.sif":                 true,
		"/opt/images/busco":           true,
		"./img.simg":                  true,
		"docker://teambraker/braker3": false,
		"teambraker/braker3:latest":   false,
		"":                            false,
	}
	for image, want := range tests {
		if got := IsLocalImage(image); got != want {
			t.Errorf("IsLocalImage(%q) = %v, want %v", image, got, want)
		}
	}
}

func TestResolve_IsPure(t *testing.T) {
	raw := validRaw()
	raw.ReadsUnpaired = []string{"u.fq"}
	a := mustResolve(t, raw)
	b := mustResolve(t, raw)
	if a.Paths.Alignment != b.Paths.Alignment || a.Mode != b.Mode {
		t.Error("Resolve() is not deterministic")
	}
	if !strings.HasPrefix(a.Paths.ReadsUnpaired[0], base) {
		t.Errorf("ReadsUnpaired = %v", a.Paths.ReadsUnpaired)
	}
}
