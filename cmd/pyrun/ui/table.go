package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// RenderTable renders rows under headers as a static bubbles table, sized
// to fit its content. Cells must be plain text; styling is applied by the
// table after column widths are measured.
func RenderTable(headers []string, rows [][]string, styles Styles) string {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: lipgloss.Width(h)}
	}
	trows := make([]table.Row, len(rows))
	for r, row := range rows {
		for i, cell := range row {
			if i < len(cols) && lipgloss.Width(cell) > cols[i].Width {
				cols[i].Width = lipgloss.Width(cell)
			}
		}
		trows[r] = table.Row(row)
	}

	ts := table.Styles{
		Header:   lipgloss.NewStyle().Padding(0, 1),
		Cell:     lipgloss.NewStyle().Padding(0, 1),
		Selected: lipgloss.NewStyle(),
	}
	if !styles.Plain {
		ts.Header = ts.Header.Bold(true).Foreground(styles.Theme.Primary)
	}

	width := 0
	for _, c := range cols {
		width += c.Width + 2
	}

	// Columns first: the height option subtracts the header.
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithHeight(len(trows)+1),
		table.WithWidth(width),
		table.WithFocused(false),
		table.WithStyles(ts),
	)
	return t.View()
}
