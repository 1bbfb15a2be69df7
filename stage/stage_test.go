package stage

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/types"
)

func resolve(t *testing.T, mut func(*settings.Raw)) *settings.Resolved {
	t.Helper()
	raw := settings.Raw{
		Assembly:     "/in/asm.fa",
		Organism:     "dmel",
		Species:      "dmel_braker",
		Threads:      4,
		BuscoLineage: "diptera_odb10",
		WorkDir:      "/work",
		Proteins:     "/ref/prot.fa",
	}
	if mut != nil {
		mut(&raw)
	}
	res, err := settings.Resolve(raw, "/")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return res
}

func TestCatalog_MatchesStageNames(t *testing.T) {
	if got := Names(); !slices.Equal(got, types.StageNames) {
		t.Fatalf("Names() = %v, want %v", got, types.StageNames)
	}

	seen := map[string]int{}
	for i, s := range Catalog() {
		seen[s.Name] = i
		for _, need := range s.Needs {
			j, ok := seen[need]
			if !ok {
				t.Errorf("stage %s needs %s, which is not declared before it", s.Name, need)
				continue
			}
			if j >= i {
				t.Errorf("stage %s needs later stage %s", s.Name, need)
			}
		}
		if (s.builtin != nil) != types.IsBuiltinStage(s.Name) {
			t.Errorf("stage %s builtin mismatch", s.Name)
		}
		if s.builtin == nil && (s.Tool == "" || s.args == nil) {
			t.Errorf("external stage %s has no tool template", s.Name)
		}
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(types.StageGeneAnnotation)
	if !ok || s.Tool != "braker.pl" {
		t.Fatalf("Lookup(gene_annotation) = %+v, %v", s, ok)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup(nope) should fail")
	}
}

func TestApplicability(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*settings.Raw)
		want map[string]bool
	}{
		{
			name: "protein only",
			want: map[string]bool{types.StageRepeatLibrary: false, types.StageAlignIndex: false, types.StageAlignSort: false},
		},
		{
			name: "raw reads",
			mut:  func(r *settings.Raw) { r.ReadsUnpaired = []string{"/r/u.fq"} },
			want: map[string]bool{types.StageAlignIndex: true, types.StageAlignReads: true, types.StageAlignSort: true},
		},
		{
			name: "raw reads with pre-aligned",
			mut: func(r *settings.Raw) {
				r.ReadsUnpaired = []string{"/r/u.fq"}
				r.Alignment = "/r/rna.bam"
			},
			want: map[string]bool{types.StageAlignIndex: false, types.StageAlignReads: false},
		},
		{
			name: "supplementary library",
			mut:  func(r *settings.Raw) { r.RepeatLibrary = "/lib/extra.fa" },
			want: map[string]bool{types.StageRepeatLibrary: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolve(t, tt.mut)
			for name, want := range tt.want {
				s, _ := Lookup(name)
				if got := s.Applicable(res); got != want {
					t.Errorf("%s.Applicable() = %v, want %v", name, got, want)
				}
			}
			for _, always := range []string{types.StageBusco, types.StageRepeatMasker, types.StageGeneAnnotation} {
				s, _ := Lookup(always)
				if !s.Applicable(res) {
					t.Errorf("%s should always apply", always)
				}
			}
		})
	}
}

func invocation(t *testing.T, name string, res *settings.Resolved) Invocation {
	t.Helper()
	s, ok := Lookup(name)
	if !ok {
		t.Fatalf("unknown stage %s", name)
	}
	return s.Invocation(res)
}

func TestInvocation_Busco(t *testing.T) {
	res := resolve(t, func(r *settings.Raw) {
		r.Tools = map[string]settings.RawTool{types.StageBusco: {ExtraArgs: []string{"--offline"}}}
	})
	inv := invocation(t, types.StageBusco, res)

	want := []string{
		"busco", "-i", "/in/asm.fa", "-l", "diptera_odb10", "-o", "dmel",
		"--out_path", "/work/busco", "-m", "genome", "-c", "4",
		"--download_path", "/work/busco_downloads", "-f", "--offline",
	}
	if got := inv.Command(); !slices.Equal(got, want) {
		t.Errorf("Command() =\n%v\nwant\n%v", got, want)
	}
	if inv.Dir != "/work/busco" || inv.OutputDir != "/work/busco" {
		t.Errorf("Dir = %q, OutputDir = %q", inv.Dir, inv.OutputDir)
	}
}

func TestInvocation_GeneAnnotationModes(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*settings.Raw)
		want    []string
		notWant []string
	}{
		{
			name:    "EP",
			want:    []string{"--prot_seq=/ref/prot.fa", "--epmode"},
			notWant: []string{"--bam="},
		},
		{
			name: "ET",
			mut: func(r *settings.Raw) {
				r.Proteins = ""
				r.ReadsR1 = []string{"/r/a_1.fq"}
				r.ReadsR2 = []string{"/r/a_2.fq"}
			},
			want:    []string{"--bam=/work/align_sort/dmel.bam"},
			notWant: []string{"--prot_seq=", "--epmode"},
		},
		{
			name:    "ETP",
			mut:     func(r *settings.Raw) { r.Alignment = "/r/rna.bam" },
			want:    []string{"--prot_seq=/ref/prot.fa", "--bam=/r/rna.bam"},
			notWant: []string{"--epmode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := invocation(t, types.StageGeneAnnotation, resolve(t, tt.mut))
			cmd := strings.Join(inv.Command(), " ")
			if !strings.Contains(cmd, "--genome=/work/repeat_masker/asm.fa.masked") {
				t.Errorf("missing masked genome: %s", cmd)
			}
			for _, w := range tt.want {
				if !strings.Contains(cmd, w) {
					t.Errorf("command missing %q: %s", w, cmd)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(cmd, nw) {
					t.Errorf("command should not contain %q: %s", nw, cmd)
				}
			}
		})
	}
}

func TestInvocation_AlignReads(t *testing.T) {
	res := resolve(t, func(r *settings.Raw) {
		r.ReadsR1 = []string{"/r/a_1.fq", "/r/b_1.fq"}
		r.ReadsR2 = []string{"/r/a_2.fq", "/r/b_2.fq"}
		r.ReadsUnpaired = []string{"/u/c.fq"}
	})
	inv := invocation(t, types.StageAlignReads, res)
	want := []string{
		"hisat2", "-p", "4", "-x", "/work/align_index/dmel",
		"-1", "/r/a_1.fq,/r/b_1.fq", "-2", "/r/a_2.fq,/r/b_2.fq",
		"-U", "/u/c.fq", "-S", "/work/align_reads/dmel.sam",
	}
	if got := inv.Command(); !slices.Equal(got, want) {
		t.Errorf("Command() =\n%v\nwant\n%v", got, want)
	}
	wantBinds := []string{"/r", "/u", "/work/align_index", "/work/align_reads"}
	if !slices.Equal(inv.Binds, wantBinds) {
		t.Errorf("Binds = %v, want %v", inv.Binds, wantBinds)
	}
}

func TestInvocation_BindsAreMinimal(t *testing.T) {
	withReads := func(r *settings.Raw) {
		r.ReadsR1 = []string{"/r/a_1.fq"}
		r.ReadsR2 = []string{"/r/a_2.fq"}
	}
	withPreAligned := func(r *settings.Raw) { r.Alignment = "/bam/rna.bam" }

	tests := []struct {
		stage    string
		mut      func(*settings.Raw)
		wantBind []string
		wantDirs []string
	}{
		{types.StageBusco, nil, []string{"/in", "/work/busco", "/work/busco_downloads"}, []string{"/work/busco_downloads"}},
		{types.StageRepeatDatabase, nil, []string{"/in", "/work/repeat_database"}, nil},
		{types.StageRepeatModeler, nil, []string{"/work/repeat_database", "/work/repeat_modeler"}, nil},
		{types.StageRepeatMasker, nil, []string{"/in", "/work/repeat_database", "/work/repeat_masker"}, nil},
		{types.StageAlignIndex, withReads, []string{"/work/align_index", "/work/repeat_masker"}, nil},
		{types.StageAlignSort, withReads, []string{"/work/align_reads", "/work/align_sort"}, nil},
		{types.StageGeneAnnotation, nil, []string{"/ref", "/work/gene_annotation", "/work/repeat_masker"}, nil},
		{types.StageGeneAnnotation, withPreAligned, []string{"/bam", "/ref", "/work/gene_annotation", "/work/repeat_masker"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			inv := invocation(t, tt.stage, resolve(t, tt.mut))
			if !slices.Equal(inv.Binds, tt.wantBind) {
				t.Errorf("Binds = %v, want %v", inv.Binds, tt.wantBind)
			}
			if !slices.Equal(inv.Dirs, tt.wantDirs) {
				t.Errorf("Dirs = %v, want %v", inv.Dirs, tt.wantDirs)
			}
			if slices.Contains(inv.Binds, "/work") {
				t.Errorf("Binds %v expose the whole work dir", inv.Binds)
			}
		})
	}
}

func TestCoWriters(t *testing.T) {
	if got := CoWriters(types.StageRepeatDatabase); !slices.Equal(got, []string{types.StageRepeatModeler}) {
		t.Errorf("CoWriters(repeat_database) = %v", got)
	}
	if got := CoWriters(types.StageBusco); len(got) != 0 {
		t.Errorf("CoWriters(busco) = %v, want none", got)
	}
	for _, s := range Catalog() {
		for _, other := range s.AlsoWrites {
			if _, ok := Lookup(other); !ok || other == s.Name {
				t.Errorf("stage %s AlsoWrites invalid stage %q", s.Name, other)
			}
		}
	}
}

func TestInvocation_RepeatMaskerUsesResolvedLibrary(t *testing.T) {
	inv := invocation(t, types.StageRepeatMasker, resolve(t, nil))
	if !slices.Contains(inv.Args, "/work/repeat_database/dmel-families.fa") {
		t.Errorf("args %v should use modeled families", inv.Args)
	}
	if inv.Args[len(inv.Args)-1] != "/in/asm.fa" {
		t.Errorf("assembly must be the last argument: %v", inv.Args)
	}

	inv = invocation(t, types.StageRepeatMasker, resolve(t, func(r *settings.Raw) { r.RepeatLibrary = "/lib/x.fa" }))
	if !slices.Contains(inv.Args, "/work/repeat_library/dmel-merged.fa") {
		t.Errorf("args %v should use merged library", inv.Args)
	}
}

func TestInvocation_ExecutableAndImageOverride(t *testing.T) {
	res := resolve(t, func(r *settings.Raw) {
		r.SandboxRuntime = settings.RuntimeApptainer
		r.SandboxImage = "/img/braker3.sif"
		r.Tools = map[string]settings.RawTool{
			types.StageAlignSort: {Executable: "/opt/samtools/bin/samtools", Image: "/img/samtools.sif"},
		}
	})
	inv := invocation(t, types.StageAlignSort, res)
	if inv.Executable != "/opt/samtools/bin/samtools" || inv.Image != "/img/samtools.sif" {
		t.Errorf("Executable = %q, Image = %q", inv.Executable, inv.Image)
	}
	if inv.Args[0] != "sort" {
		t.Errorf("subcommand = %q, want sort", inv.Args[0])
	}

	inv = invocation(t, types.StageBusco, res)
	if inv.Image != "/img/braker3.sif" {
		t.Errorf("default image = %q", inv.Image)
	}
}

func TestInvocation_IsPure(t *testing.T) {
	res := resolve(t, func(r *settings.Raw) { r.WorkDir = filepath.Join(t.TempDir(), "work") })
	for _, s := range Catalog() {
		_ = s.Invocation(res)
	}
	if _, err := os.Stat(res.Paths.WorkDir); !os.IsNotExist(err) {
		t.Errorf("constructing invocations touched the filesystem: %v", err)
	}
}

func TestMergeLibraries(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t, func(r *settings.Raw) {
		r.WorkDir = dir
		r.RepeatLibrary = filepath.Join(dir, "extra.fa")
	})

	if err := os.MkdirAll(filepath.Dir(res.Paths.ModeledFamilies), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(res.Paths.ModeledFamilies, []byte(">fam1\nACGT"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(res.Paths.SupplementaryLibrary, []byte(">extra\nTTTT\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	inv := invocation(t, types.StageRepeatLibrary, res)
	if !inv.IsBuiltin() {
		t.Fatal("repeat_library should be builtin")
	}

	var log strings.Builder
	if err := inv.Builtin(t.Context(), &log); err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	got, err := os.ReadFile(res.Paths.MergedLibrary)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != ">fam1\nACGT\n>extra\nTTTT\n" {
		t.Errorf("merged = %q", got)
	}
	if !strings.Contains(log.String(), res.Paths.MergedLibrary) {
		t.Errorf("log = %q", log.String())
	}
}

func TestMergeLibraries_MissingInput(t *testing.T) {
	dir := t.TempDir()
	res := resolve(t, func(r *settings.Raw) {
		r.WorkDir = dir
		r.RepeatLibrary = filepath.Join(dir, "missing.fa")
	})
	inv := invocation(t, types.StageRepeatLibrary, res)
	if err := inv.Builtin(t.Context(), &strings.Builder{}); err == nil {
		t.Fatal("Builtin() should fail on missing input")
	}
	if _, err := os.Stat(res.Paths.MergedLibrary); !os.IsNotExist(err) {
		t.Errorf("merged library should not exist after failure: %v", err)
	}
}
