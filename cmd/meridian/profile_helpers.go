package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meridian/internal/prof"
)

var profiler *prof.Session

// startProfiling starts the profilers requested by the persistent flags.
func startProfiling(cmd *cobra.Command) error {
	pf := cmd.Root().PersistentFlags()
	var cfg prof.Config
	var err error
	if cfg.CPU, err = pf.GetString("cpu-profile"); err != nil {
		return fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if cfg.Mem, err = pf.GetString("mem-profile"); err != nil {
		return fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if cfg.Trace, err = pf.GetString("runtime-trace"); err != nil {
		return fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !cfg.Enabled() {
		return nil
	}
	if profiler, err = prof.Start(cfg); err != nil {
		return fmt.Errorf("start profiling: %w", err)
	}
	return nil
}

// stopProfiling is idempotent; commands that fail skip PersistentPostRunE,
// so main calls it again after Execute.
func stopProfiling() error {
	p := profiler
	profiler = nil
	return p.Stop()
}
