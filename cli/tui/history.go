package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/genoa/cli/reader"
)

// HistoryModel is a Bubble Tea model for run history views. The runs
// list is scrollable; the cursor row is expanded with its details.
type HistoryModel struct {
	viewType string
	data     any
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewHistoryModel creates a new history model.
func NewHistoryModel(viewType string, data any) HistoryModel {
	return HistoryModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < m.rows()-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

func (m HistoryModel) rows() int {
	switch data := m.data.(type) {
	case []reader.HistoryRow:
		return len(data)
	case []reader.HistoryStageRow:
		return len(data)
	}
	return 0
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewHistory:
		content = m.renderRuns()
	case ViewHistoryRun:
		content = m.renderRunStages()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ to move, q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m HistoryModel) renderRuns() string {
	data, ok := m.data.([]reader.HistoryRow)
	if !ok {
		return "Invalid data type for history"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run History"))
	b.WriteString("\n\n")

	if len(data) == 0 {
		b.WriteString(MutedStyle.Render("No runs recorded"))
		return b.String()
	}

	for i, row := range data {
		b.WriteString(fmt.Sprintf("%s %s  %s\n",
			m.marker(i),
			ValueStyle.Render(row.CompletedAt),
			StateStyle(row.Outcome).Render(row.Outcome)))
	}

	b.WriteString("\n")
	b.WriteString(renderRunDetails(data[m.cursor]))
	return b.String()
}

func renderRunDetails(row reader.HistoryRow) string {
	var b strings.Builder
	fields := [][]string{
		{"Run ID", row.RunID},
		{"Organism", row.Organism},
		{"Target", row.Target},
		{"Mode", row.Mode},
		{"Outcome", row.Outcome},
		{"Stages", fmt.Sprintf("%d run, %d skipped", row.StagesRun, row.StagesSkipped)},
		{"Duration", row.Duration},
	}
	if row.FailedStage != "" {
		fields = append(fields, []string{"Failed Stage", row.FailedStage})
	}

	for _, f := range fields {
		label := LabelStyle.Render(f[0] + ":")
		value := ValueStyle.Render(f[1])
		if f[0] == "Outcome" {
			value = StateStyle(row.Outcome).Render(f[1])
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}
	return BoxStyle.Render(b.String())
}

func (m HistoryModel) renderRunStages() string {
	data, ok := m.data.([]reader.HistoryStageRow)
	if !ok {
		return "Invalid data type for history_run"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Stages"))
	b.WriteString("\n\n")

	for i, row := range data {
		b.WriteString(fmt.Sprintf("%s %s %s  %s\n",
			m.marker(i),
			LabelStyle.Width(24).Render(row.Stage),
			StateStyle(row.Status).Render(row.Status),
			MutedStyle.Render(row.Duration)))
	}

	if len(data) > 0 {
		sel := data[m.cursor]
		var d strings.Builder
		d.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Exit Code:"), ValueStyle.Render(fmt.Sprintf("%d", sel.ExitCode))))
		d.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Log:"), ValueStyle.Render(sel.LogPath)))
		if sel.Error != "" {
			d.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Error:"), ErrorStyle.Render(sel.Error)))
		}
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(d.String()))
	}
	return b.String()
}

func (m HistoryModel) marker(i int) string {
	if i == m.cursor {
		return lipgloss.NewStyle().Foreground(highlightColor).Render(">")
	}
	return " "
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// RunHistoryTUI runs the history TUI.
func RunHistoryTUI(viewType string, data any) error {
	p := tea.NewProgram(NewHistoryModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderHistoryStatic renders history data without full TUI (for fallback).
func RenderHistoryStatic(viewType string, data any) string {
	model := NewHistoryModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
