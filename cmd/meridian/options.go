package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meridian/internal/artifact"
	"meridian/internal/diagfmt"
	"meridian/internal/driver"
	"meridian/internal/observ"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
	jobs           int
	target         string
	interop        *bool
	pathMode       diagfmt.PathMode
	logger         *zap.Logger
}

func readGlobals(cmd *cobra.Command) (globalOptions, error) {
	var g globalOptions
	pf := cmd.Root().PersistentFlags()

	colorMode, err := pf.GetString("color")
	if err != nil {
		return g, fmt.Errorf("failed to get color flag: %w", err)
	}
	if g.color, err = resolveColor(colorMode, os.Stdout); err != nil {
		return g, err
	}
	if g.quiet, err = pf.GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.timings, err = pf.GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if g.maxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return g, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if g.jobs, err = pf.GetInt("jobs"); err != nil {
		return g, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if g.target, err = pf.GetString("target"); err != nil {
		return g, fmt.Errorf("failed to get target flag: %w", err)
	}

	interop, err := pf.GetString("interop")
	if err != nil {
		return g, fmt.Errorf("failed to get interop flag: %w", err)
	}
	if g.interop, err = parseSwitch(interop); err != nil {
		return g, fmt.Errorf("--interop: %w", err)
	}

	paths, err := pf.GetString("paths")
	if err != nil {
		return g, fmt.Errorf("failed to get paths flag: %w", err)
	}
	var ok bool
	if g.pathMode, ok = diagfmt.ParsePathMode(paths); !ok {
		return g, fmt.Errorf("unknown path mode %q", paths)
	}

	level, err := pf.GetString("log-level")
	if err != nil {
		return g, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if g.logger, err = newLogger(level, cmd.ErrOrStderr()); err != nil {
		return g, err
	}
	return g, nil
}

func resolveColor(mode string, out *os.File) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		return isTerminal(out) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("unknown color mode %q (must be auto, on or off)", mode)
}

// parseSwitch maps on/off flag values; "" leaves the setting alone.
func parseSwitch(s string) (*bool, error) {
	var v bool
	switch strings.ToLower(s) {
	case "":
		return nil, nil
	case "on", "true", "yes":
		v = true
	case "off", "false", "no":
		v = false
	default:
		return nil, fmt.Errorf("expected on or off, got %q", s)
	}
	return &v, nil
}

func (g globalOptions) driverOptions(mode driver.Mode) driver.Options {
	opts := driver.Options{
		Mode:           mode,
		Target:         g.target,
		Interop:        g.interop,
		MaxDiagnostics: g.maxDiagnostics,
		Jobs:           g.jobs,
		Logger:         g.logger,
	}
	if g.timings {
		opts.Timer = observ.NewTimer()
	}
	return opts
}

func openCache(dir string) (*artifact.DiskCache, error) {
	if dir != "" {
		return artifact.OpenDiskCacheAt(dir)
	}
	return artifact.OpenDiskCache("meridian")
}
