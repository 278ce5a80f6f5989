package main

import (
	"fmt"
	"strings"

	"questTracker/internal/models/quest"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	labelStyle  = lipgloss.NewStyle().Width(14)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var statusStyles = map[quest.Status]lipgloss.Style{
	quest.StatusUnobtained: mutedStyle,
	quest.StatusObtained:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	quest.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	quest.StatusTurnedIn:   doneStyle,
}

const barWidth = 20

// progressBar renders pct (0..100) as a fixed-width bar.
func progressBar(pct float64) string {
	filled := int(pct/100*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	return barStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func progressLine(label string, done, total int, pct float64) string {
	return fmt.Sprintf("%s %s %d/%d %5.1f%%", labelStyle.Render(label), progressBar(pct), done, total, pct)
}

func statusLabel(s quest.Status) string {
	return statusStyles[s].Render(s.String())
}
