package main

import (
	"encoding/json"
	"fmt"
	"io"

	"meridian/internal/diag"
	"meridian/internal/diagfmt"
	"meridian/internal/driver"
	"meridian/internal/source"
)

// printDiagnostics writes the diagnostics of every result in format and
// reports whether any of them is an error.
func printDiagnostics(out io.Writer, fs *source.FileSet, results []*driver.Result, format string, g globalOptions) (bool, error) {
	failed := false
	for _, r := range results {
		r.Bag.Sort()
		failed = failed || r.HasErrors()
	}

	switch format {
	case "pretty":
		opts := diagfmt.PrettyOpts{Color: g.color, Context: 1, PathMode: g.pathMode, ShowNotes: true}
		first := true
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			if !first {
				fmt.Fprintln(out)
			}
			first = false
			diagfmt.Pretty(out, r.Bag, fs, opts)
		}
	case "short":
		var all []diag.Diagnostic
		for _, r := range results {
			all = append(all, r.Bag.Items()...)
		}
		if text := diag.FormatShort(all, fs, true); text != "" {
			fmt.Fprintln(out, text)
		}
	case "json":
		opts := diagfmt.JSONOpts{IncludePositions: true, PathMode: g.pathMode, IncludeNotes: true}
		doc := make(map[string]diagfmt.DiagnosticsOutput, len(results))
		for _, r := range results {
			doc[r.Path] = diagfmt.BuildDiagnosticsOutput(r.Bag, fs, opts)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return failed, fmt.Errorf("failed to encode diagnostics: %w", err)
		}
	default:
		return failed, fmt.Errorf("unknown format %q (must be pretty, short or json)", format)
	}
	return failed, nil
}
