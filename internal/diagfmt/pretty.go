package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"meridian/internal/diag"
	"meridian/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, code, gutter, caret, path *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		code:   color.New(color.Faint),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		path:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.gutter, p.caret, p.path} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes every diagnostic in bag as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with the span underlined and, when
// opts.ShowNotes is set, each note in the same format. Callers sort the
// bag first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sev := p.severity(d.Severity)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprint(position(fs, d.Primary, opts.PathMode, opts.BaseDir)),
			sev.Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message)
		excerpt(w, p, fs, d.Primary, int(opts.Context))

		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n",
				p.note.Sprint("note:"),
				position(fs, n.Span, opts.PathMode, opts.BaseDir),
				n.Msg)
			excerpt(w, p, fs, n.Span, 0)
		}
	}
}

func known(fs *source.FileSet, span source.Span) bool {
	return fs != nil && int(span.File) < fs.Len()
}

func position(fs *source.FileSet, span source.Span, mode PathMode, baseDir string) string {
	if !known(fs, span) {
		return span.String()
	}
	f := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, mode, baseDir), start.Line, start.Col)
}

// excerpt prints the line holding span.Start with up to context lines
// above it, then a caret line under the span. Spans running past the end
// of their first line are underlined to the end of that line.
func excerpt(w io.Writer, p palette, fs *source.FileSet, span source.Span, context int) {
	if !known(fs, span) {
		return
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	line := f.GetLine(start.Line)
	if line == "" && start.Line > 1 {
		return
	}

	first := start.Line
	for context > 0 && first > 1 {
		first--
		context--
	}
	gw := len(fmt.Sprint(start.Line))
	blank := strings.Repeat(" ", gw)
	for n := first; n <= start.Line; n++ {
		fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprintf("%*d", gw, n), p.gutter.Sprint("|"), expandTabs(f.GetLine(n)))
	}

	col := clamp(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = clamp(int(end.Col)-1, len(line))
	}
	pad := runewidth.StringWidth(expandTabs(line[:col]))
	width := max(runewidth.StringWidth(expandTabs(line[col:stop])), 1)
	marks := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s %s %s%s\n", blank, p.gutter.Sprint("|"), strings.Repeat(" ", pad), p.caret.Sprint(marks))
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
