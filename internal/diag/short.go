package diag

import (
	"fmt"
	"strings"

	"meridian/internal/source"
)

// FormatShort renders one line per diagnostic (and per note when
// includeNotes is set): "error LAY2001 path:line:col message".
func FormatShort(items []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	var b strings.Builder
	for i := range items {
		d := &items[i]
		writeShortLine(&b, severityLabel(d.Severity), d.Code, fs, d.Primary, d.Message)
		if !includeNotes {
			continue
		}
		for _, note := range d.Notes {
			writeShortLine(&b, "note", d.Code, fs, note.Span, note.Msg)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeShortLine(b *strings.Builder, label string, code Code, fs *source.FileSet, span source.Span, msg string) {
	loc := span.String()
	if fs != nil {
		loc = fs.Position(span)
	}
	fmt.Fprintf(b, "%s %s %s %s\n", label, code.ID(), loc, sanitizeMessage(msg))
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
