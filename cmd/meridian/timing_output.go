package main

import (
	"io"

	"meridian/internal/observ"
)

func printTimings(out io.Writer, t *observ.Timer) {
	if out == nil || t == nil {
		return
	}
	if _, err := io.WriteString(out, t.Summary()); err != nil {
		panic(err)
	}
}
