package types

// Stage identifiers, in catalog declaration order.
// Definitions (predecessors, applicability, invocation templates) live in
// package stage; these names are shared with settings so that per-tool
// overrides can be validated without importing the catalog.
const (
	StageBusco          = "busco"
	StageRepeatDatabase = "repeat_database"
	StageRepeatModeler  = "repeat_modeler"
	StageRepeatLibrary  = "repeat_library"
	StageRepeatMasker   = "repeat_masker"
	StageAlignIndex     = "align_index"
	StageAlignReads     = "align_reads"
	StageAlignSort      = "align_sort"
	StageGeneAnnotation = "gene_annotation"
)

// StageNames lists every stage in declaration order.
var StageNames = []string{
	StageBusco,
	StageRepeatDatabase,
	StageRepeatModeler,
	StageRepeatLibrary,
	StageRepeatMasker,
	StageAlignIndex,
	StageAlignReads,
	StageAlignSort,
	StageGeneAnnotation,
}

// TerminalStage is the stage "all" resolves to.
const TerminalStage = StageGeneAnnotation

// IsStage reports whether name is a known stage.
func IsStage(name string) bool {
	for _, s := range StageNames {
		if s == name {
			return true
		}
	}
	return false
}

// IsBuiltinStage reports whether the stage runs in-process rather than as
// an external tool. Builtin stages never cross a sandbox boundary.
func IsBuiltinStage(name string) bool {
	return name == StageRepeatLibrary
}
