package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdrill/internal/ui/theme"
)

// Table renders rows in aligned columns under a styled header. Cells may
// already contain styled text; widths are measured without escape codes.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render returns the table, one line per row, without a trailing newline.
func (t Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * max(len(widths)-1, 0)

	lines := make([]string, 0, len(t.Rows)+2)
	lines = append(lines, line(t.Headers, widths, theme.Heading))
	lines = append(lines, theme.Rule.Render(strings.Repeat("─", total)))
	for _, row := range t.Rows {
		lines = append(lines, line(row, widths, lipgloss.NewStyle()))
	}
	return strings.Join(lines, "\n")
}

func line(cells []string, widths []int, style lipgloss.Style) string {
	var sb strings.Builder
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(style.Render(cell))
		if i < len(widths)-1 {
			sb.WriteString(strings.Repeat(" ", w-lipgloss.Width(cell)))
		}
	}
	return sb.String()
}

// Field is one label/value line of a detail view.
type Field struct {
	Label string
	Value string
}

// Fields renders labels in a dim, aligned column.
func Fields(fields ...Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	lines := make([]string, len(fields))
	for i, f := range fields {
		pad := strings.Repeat(" ", width-lipgloss.Width(f.Label))
		lines[i] = theme.Label.Render(f.Label+":") + pad + " " + f.Value
	}
	return strings.Join(lines, "\n")
}
