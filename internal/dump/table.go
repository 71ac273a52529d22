package dump

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Options controls table rendering.
type Options struct {
	Color bool
	// MaxCell truncates cells wider than this; 0 disables truncation.
	MaxCell int
}

type styles struct {
	title, header, dim, warn lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, header: plain, dim: plain, warn: plain}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Bold(true),
		header: r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// table is a left-aligned text grid. Cell widths are measured in
// terminal columns so wide type names line up.
type table struct {
	header []string
	rows   [][]string
	// flagged rows are highlighted with the warn style.
	flagged map[int]bool
}

func (t *table) add(cells ...string) int {
	t.rows = append(t.rows, cells)
	return len(t.rows) - 1
}

func (t *table) flag(row int) {
	if t.flagged == nil {
		t.flagged = make(map[int]bool)
	}
	t.flagged[row] = true
}

func (t *table) render(b *strings.Builder, st styles, indent string, maxCell int) {
	widths := make([]int, len(t.header))
	measure := func(cells []string) {
		for i, c := range cells {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(truncate(c, maxCell)))
			}
		}
	}
	measure(t.header)
	for _, r := range t.rows {
		measure(r)
	}

	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(indent)
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			cell := truncate(c, maxCell)
			if i < len(cells)-1 {
				cell = runewidth.FillRight(cell, widths[i]+2)
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteByte('\n')
	}
	line(t.header, st.header)
	for i, r := range t.rows {
		style := lipgloss.NewStyle()
		if t.flagged[i] {
			style = st.warn
		}
		line(r, style)
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
