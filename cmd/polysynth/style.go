package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle = lipgloss.NewStyle().Foreground(dim)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1)
)

type row struct {
	label string
	value string
}

func kv(label string, value any) row {
	return row{label: label, value: fmt.Sprint(value)}
}

// panel renders a titled box of label/value rows.
func panel(title string, rows ...row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.label))
	}
	lines := []string{titleStyle.Render(title)}
	for _, r := range rows {
		label := r.label + strings.Repeat(" ", width-lipgloss.Width(r.label))
		lines = append(lines, labelStyle.Render(label)+"  "+r.value)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
