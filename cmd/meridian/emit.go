package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meridian/internal/driver"
	"meridian/internal/project"
)

func newEmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit [flags] <manifest|dir>...",
		Short: "Emit metadata artifacts for one or more units",
		Long: `Compile each unit manifest and write <unit>.mdp, plus <unit>.ll with --llvm.
A directory argument is searched upwards for meridian.toml.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEmit,
	}
	cmd.Flags().StringP("out", "o", ".", "output directory")
	cmd.Flags().Bool("llvm", false, "also write textual LLVM IR")
	cmd.Flags().Bool("cache", false, "reuse artifacts from the disk cache")
	cmd.Flags().String("cache-dir", "", "disk cache location (default: user cache dir)")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().Bool("check", false, "report diagnostics without writing outputs")
	return cmd
}

func runEmit(cmd *cobra.Command, args []string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = g.logger.Sync() }()

	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	llvm, err := cmd.Flags().GetBool("llvm")
	if err != nil {
		return fmt.Errorf("failed to get llvm flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return fmt.Errorf("failed to get check flag: %w", err)
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		p, err := project.ResolveManifest(arg)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}

	opts := g.driverOptions(driver.ModeEmit)
	opts.LLVM = llvm
	if useCache {
		if opts.Cache, err = openCache(cacheDir); err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
	}
	session := driver.NewSession(opts)
	results, err := session.CompileAll(cmd.Context(), paths)
	if err != nil {
		return err
	}

	failed, err := printDiagnostics(cmd.OutOrStdout(), session.Files, results, format, g)
	if err != nil {
		return err
	}
	if g.timings {
		printTimings(cmd.ErrOrStderr(), opts.Timer)
	}
	if failed {
		return errDiagnostics
	}
	if check {
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	for _, r := range results {
		written, err := r.WriteOutputs(outDir)
		if err != nil {
			return err
		}
		if g.quiet {
			continue
		}
		note := ""
		if r.Cached {
			note = " (cached)"
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s%s\n", path, note)
		}
	}
	return nil
}
