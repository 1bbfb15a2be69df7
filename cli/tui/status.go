package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/genoa/cli/reader"
)

// StatusModel is a Bubble Tea model for the stage status view.
type StatusModel struct {
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatusModel creates a new status model.
func NewStatusModel(data any) StatusModel {
	return StatusModel{data: data}
}

// Init implements tea.Model.
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatusModel) View() string {
	if m.quitting {
		return ""
	}
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return m.renderStatus() + "\n" + help
}

func (m StatusModel) renderStatus() string {
	data, ok := m.data.(*reader.StatusView)
	if !ok {
		return "Invalid data type for status"
	}

	var b strings.Builder
	title := "Stage Status"
	if data.Summary.Mode != "" {
		title += " (" + data.Summary.Mode + ")"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Done", data.Summary.Done, successColor),
		renderStatBox("Pending", data.Summary.Pending, warningColor),
		renderStatBox("Not applicable", data.Summary.Inapplicable, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	for _, row := range data.Stages {
		line := fmt.Sprintf("%s %s", LabelStyle.Width(24).Render(row.Stage), StateStyle(row.State).Render(row.State))
		if row.RunID != "" {
			line += MutedStyle.Render(fmt.Sprintf("  %s  %s", row.CompletedAt, row.RunID))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatusTUI runs the status TUI.
func RunStatusTUI(data any) error {
	p := tea.NewProgram(NewStatusModel(data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatusStatic renders status data without full TUI (for fallback).
func RenderStatusStatic(data any) string {
	model := NewStatusModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
