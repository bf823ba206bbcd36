package tui

import (
	"charm.land/lipgloss/v2"
)

// Color palette — kid-friendly, bright but not garish
var (
	primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	accent  = lipgloss.Color("#F97316") // Orange
	success = lipgloss.Color("#22C55E") // Green
	text    = lipgloss.Color("#F8FAFC") // White
	textDim = lipgloss.Color("#94A3B8") // Slate
	bgCard  = lipgloss.Color("#1E293B") // Dark Slate
	border  = lipgloss.Color("#334155") // Slate
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(bgCard).
			Foreground(primary).
			Bold(true).
			Padding(0, 2)

	footerStyle = lipgloss.NewStyle().
			Background(bgCard).
			Foreground(textDim).
			Padding(0, 2)

	trainerStyle = lipgloss.NewStyle().
			Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	learnerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Align(lipgloss.Right)

	selectedChoice = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)

	unselectedChoice = lipgloss.NewStyle().
				Foreground(text)

	promptStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)
)
