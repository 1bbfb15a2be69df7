// Package tui provides Bubble Tea views for the genoa CLI.
//
// A TUI is opt-in (--tui) and read-only. It renders the same reader
// payloads as table/json/yaml output and never fetches data of its own.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/genoa/cli/reader"
	"github.com/pithecene-io/genoa/types"
)

var (
	primaryColor   = lipgloss.Color("#0F766E") // teal
	successColor   = lipgloss.Color("#22C55E")
	warningColor   = lipgloss.Color("#EAB308")
	errorColor     = lipgloss.Color("#DC2626")
	mutedColor     = lipgloss.Color("#737373")
	highlightColor = lipgloss.Color("#14B8A6")
	textColor      = lipgloss.AdaptiveColor{Light: "#171717", Dark: "#F5F5F5"}
)

var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(textColor)

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// MutedStyle for inapplicable or secondary text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Align(lipgloss.Center)
)

// StateStyle colors a marker state, stage status or run outcome.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case reader.StateDone, string(types.StageSucceeded), string(types.OutcomeSuccess):
		return SuccessStyle
	case reader.StatePending, string(types.StageSkipped),
		string(types.OutcomeInterrupted):
		return WarningStyle
	case reader.StateInapplicable:
		return MutedStyle
	case string(types.StageFailed), string(types.OutcomeToolFailure),
		string(types.OutcomeConfigError), string(types.OutcomeDependencyError),
		string(types.OutcomeEnvironmentError), string(types.OutcomeInternalError):
		return ErrorStyle
	default:
		return ValueStyle
	}
}
