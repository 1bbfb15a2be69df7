package stage

import (
	"strconv"
	"strings"

	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/types"
)

var catalog = []Stage{
	{
		Name:        types.StageBusco,
		Tool:        "busco",
		Description: "assess assembly completeness against a lineage dataset",
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{
				"-i", res.Paths.Assembly,
				"-l", res.BuscoLineage,
				"-o", res.Organism,
				"--out_path", res.Paths.StageDir(types.StageBusco),
				"-m", "genome",
				"-c", threads(res),
				"--download_path", res.Paths.BuscoDownloads,
				"-f",
			}
			return append(args, t.ExtraArgs...)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.Assembly}
		},
		dirs: func(res *settings.Resolved) []string {
			return []string{res.Paths.BuscoDownloads}
		},
	},
	{
		Name:        types.StageRepeatDatabase,
		Tool:        "BuildDatabase",
		Description: "build the repeat modeling database from the assembly",
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{"-name", res.Paths.RepeatDatabase, res.Paths.Assembly}
			return append(args, t.ExtraArgs...)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.Assembly}
		},
	},
	{
		Name:        types.StageRepeatModeler,
		Needs:       []string{types.StageRepeatDatabase},
		AlsoWrites:  []string{types.StageRepeatDatabase},
		Tool:        "RepeatModeler",
		Description: "model repeat families; writes <database>-families.fa beside the database",
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{"-database", res.Paths.RepeatDatabase, "-threads", threads(res)}
			return append(args, t.ExtraArgs...)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.RepeatDatabase}
		},
	},
	{
		Name:        types.StageRepeatLibrary,
		Needs:       []string{types.StageRepeatModeler},
		Description: "merge modeled families with the supplementary repeat library",
		Applies:     hasSupplementaryLibrary,
		builtin:     mergeLibraries,
	},
	{
		Name:        types.StageRepeatMasker,
		Needs:       []string{types.StageRepeatModeler, types.StageRepeatLibrary},
		Tool:        "RepeatMasker",
		Description: "soft-mask repeats in the assembly",
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{
				"-pa", threads(res),
				"-lib", res.Paths.RepeatLibrary,
				"-xsmall", "-gff",
				"-dir", res.Paths.StageDir(types.StageRepeatMasker),
			}
			args = append(args, t.ExtraArgs...)
			return append(args, res.Paths.Assembly)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.Assembly, res.Paths.RepeatLibrary}
		},
	},
	{
		Name:        types.StageAlignIndex,
		Needs:       []string{types.StageRepeatMasker},
		Tool:        "hisat2-build",
		Description: "index the masked assembly for read alignment",
		Applies:     needsAlignment,
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := append([]string{"-p", threads(res)}, t.ExtraArgs...)
			return append(args, res.Paths.MaskedAssembly, res.Paths.AlignIndex)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.MaskedAssembly}
		},
	},
	{
		Name:        types.StageAlignReads,
		Needs:       []string{types.StageAlignIndex},
		Tool:        "hisat2",
		Description: "align raw RNA reads to the masked assembly",
		Applies:     needsAlignment,
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{"-p", threads(res), "-x", res.Paths.AlignIndex}
			if len(res.Paths.ReadsR1) > 0 {
				args = append(args,
					"-1", strings.Join(res.Paths.ReadsR1, ","),
					"-2", strings.Join(res.Paths.ReadsR2, ","))
			}
			if len(res.Paths.ReadsUnpaired) > 0 {
				args = append(args, "-U", strings.Join(res.Paths.ReadsUnpaired, ","))
			}
			args = append(args, "-S", res.Paths.AlignSAM)
			return append(args, t.ExtraArgs...)
		},
		inputs: func(res *settings.Resolved) []string {
			in := []string{res.Paths.AlignIndex}
			in = append(in, res.Paths.ReadsR1...)
			in = append(in, res.Paths.ReadsR2...)
			return append(in, res.Paths.ReadsUnpaired...)
		},
	},
	{
		Name:        types.StageAlignSort,
		Needs:       []string{types.StageAlignReads},
		Tool:        "samtools",
		Description: "convert and sort the alignment to BAM",
		Applies:     needsAlignment,
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{"sort", "-@", threads(res), "-o", res.Paths.SortedBAM}
			args = append(args, t.ExtraArgs...)
			return append(args, res.Paths.AlignSAM)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.AlignSAM}
		},
	},
	{
		Name:        types.StageGeneAnnotation,
		Needs:       []string{types.StageBusco, types.StageRepeatMasker, types.StageAlignSort},
		Tool:        "braker.pl",
		Description: "predict gene structures from the masked assembly and evidence",
		args: func(res *settings.Resolved, t settings.Tool) []string {
			args := []string{
				"--genome=" + res.Paths.MaskedAssembly,
				"--species=" + res.Species,
				"--threads=" + threads(res),
				"--softmasking",
				"--workingdir=" + res.Paths.StageDir(types.StageGeneAnnotation),
			}
			if res.Paths.Proteins != "" {
				args = append(args, "--prot_seq="+res.Paths.Proteins)
			}
			if res.Paths.Alignment != "" {
				args = append(args, "--bam="+res.Paths.Alignment)
			}
			args = append(args, res.Mode.Flags()...)
			return append(args, t.ExtraArgs...)
		},
		inputs: func(res *settings.Resolved) []string {
			return []string{res.Paths.MaskedAssembly, res.Paths.Proteins, res.Paths.Alignment}
		},
	},
}

func threads(res *settings.Resolved) string { return strconv.Itoa(res.Threads) }
