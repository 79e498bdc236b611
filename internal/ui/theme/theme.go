// Package theme holds the colors and styles used by CLI output.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Rule = lipgloss.NewStyle().
		Foreground(Border)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Accent)

	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)
)

// Score picks a style for an accuracy percentage: below 60 is weak, below
// 80 is fair.
func Score(pct float64) lipgloss.Style {
	switch {
	case pct < 60:
		return Incorrect
	case pct < 80:
		return Warning
	default:
		return Correct
	}
}

// Status colors a session status name.
func Status(status string) lipgloss.Style {
	switch status {
	case "completed":
		return Correct
	case "abandoned":
		return Incorrect
	case "paused":
		return Warning
	default:
		return Selected
	}
}
