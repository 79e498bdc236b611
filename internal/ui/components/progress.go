package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdrill/internal/ui/theme"
)

// Bar is a horizontal accuracy bar. Percent is 0..100.
type Bar struct {
	Label      string
	LabelWidth int
	Percent    float64
	Width      int
}

// Render draws the bar, colored by theme.Score, followed by the percentage.
// With LabelWidth set the output is LabelWidth+Width+9 cells wide.
func (b Bar) Render() string {
	var sb strings.Builder
	if b.Label != "" || b.LabelWidth > 0 {
		label := b.Label
		if b.LabelWidth > 0 {
			label = truncate(label, b.LabelWidth)
			label += strings.Repeat(" ", b.LabelWidth-lipgloss.Width(label))
		}
		sb.WriteString(label + "  ")
	}

	width := max(b.Width, 4)
	pct := min(max(b.Percent, 0), 100)
	filled := int(float64(width) * pct / 100)

	style := theme.Score(pct)
	sb.WriteString(style.Render(strings.Repeat("█", filled)))
	sb.WriteString(theme.Rule.Render(strings.Repeat("░", width-filled)))
	sb.WriteString(theme.Label.Render(fmt.Sprintf(" %5.1f%%", pct)))
	return sb.String()
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
