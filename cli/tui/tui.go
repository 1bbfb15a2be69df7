package tui

import (
	"fmt"
	"slices"
)

// View types with a TUI.
const (
	ViewStatus     = "status"
	ViewHistory    = "history"
	ViewHistoryRun = "history_run"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	switch viewType {
	case ViewStatus:
		return RunStatusTUI(data)
	case ViewHistory, ViewHistoryRun:
		return RunHistoryTUI(viewType, data)
	}
	return fmt.Errorf("unknown view type: %s", viewType)
}

// IsTUISupported returns true if the view type supports TUI mode.
// Only read-only views (status, history) have one.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewStatus, ViewHistory, ViewHistoryRun}
}
