// Package evidence selects the gene-annotation execution mode from the
// optional evidence a user supplied.
//
// Selection is a pure function evaluated once at startup. The resulting
// Evidence value is immutable and is passed explicitly to the stage
// catalog's applicability predicates and to the orchestrator.
package evidence

import (
	"fmt"

	"github.com/pithecene-io/genoa/types"
)

// Mode is one of the three mutually exclusive annotation modes.
type Mode string

const (
	// ModeEP uses protein evidence only.
	ModeEP Mode = "EP"
	// ModeET uses transcript (RNA-seq) evidence only.
	ModeET Mode = "ET"
	// ModeETP combines protein and transcript evidence.
	ModeETP Mode = "ETP"
)

// ProteinOnlyFlag is passed to the gene predictor in EP mode. ET and ETP
// are the predictor's implicit defaults and take no extra flag.
const ProteinOnlyFlag = "--epmode"

// Flags returns the extra gene-predictor flags implied by the mode.
func (m Mode) Flags() []string {
	if m == ModeEP {
		return []string{ProteinOnlyFlag}
	}
	return nil
}

// SelectMode maps evidence presence to a mode.
//
//	protein  rna   mode
//	true     true  ETP
//	true     false EP
//	false    true  ET
//	false    false ConfigurationError
func SelectMode(hasProtein, hasRNA bool) (Mode, error) {
	switch {
	case hasProtein && hasRNA:
		return ModeETP, nil
	case hasProtein:
		return ModeEP, nil
	case hasRNA:
		return ModeET, nil
	default:
		return "", types.Configf("evidence", "no protein or RNA-seq evidence configured; gene annotation needs at least one")
	}
}

// Evidence records which optional evidence inputs are present.
type Evidence struct {
	Proteins   bool
	RawReads   bool
	PreAligned bool
}

// HasRNA reports whether any transcript evidence is present.
func (e Evidence) HasRNA() bool { return e.RawReads || e.PreAligned }

// NeedsAlignment reports whether the alignment sub-chain (index, align,
// sort) applies. Only raw reads without a pre-aligned result need it.
func (e Evidence) NeedsAlignment() bool { return e.RawReads && !e.PreAligned }

// Mode selects the annotation mode for this evidence set.
func (e Evidence) Mode() (Mode, error) {
	return SelectMode(e.Proteins, e.HasRNA())
}

// String renders the evidence set for logs and plans.
func (e Evidence) String() string {
	return fmt.Sprintf("proteins=%t raw_reads=%t pre_aligned=%t", e.Proteins, e.RawReads, e.PreAligned)
}
