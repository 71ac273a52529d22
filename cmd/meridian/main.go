package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"meridian/internal/version"
)

// errDiagnostics is returned by commands whose diagnostics were already
// printed; main exits non-zero without printing it again.
var errDiagnostics = errors.New("compilation failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meridian",
		Short:         "Type layout and runtime metadata generator",
		Long:          `meridian lays out the types declared in unit manifests and emits their runtime metadata records`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics kept per unit")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.Int("jobs", 0, "max units compiled in parallel (0=auto)")
	pf.String("target", "", "override the manifest target (x86_64|arm64|i386|wasm32)")
	pf.String("interop", "", "override foreign interop (on|off)")
	pf.String("paths", "auto", "path display in diagnostics (auto|absolute|relative|basename)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file")
	pf.String("runtime-trace", "", "write a runtime trace to this file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return startProfiling(cmd)
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return stopProfiling()
	}

	root.AddCommand(newEmitCmd(), newLayoutCmd(), newVTableCmd(), newInspectCmd(), newCacheCmd(), newVersionCmd())
	return root
}

func main() {
	root := newRootCmd()
	err := root.Execute()
	if perr := stopProfiling(); perr != nil {
		fmt.Fprintln(os.Stderr, "profiling:", perr)
	}
	if err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
