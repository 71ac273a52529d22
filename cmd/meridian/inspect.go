package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"meridian/internal/driver"
	"meridian/internal/dump"
	"meridian/internal/project"
	"meridian/internal/types"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [flags] <manifest|dir> [type...]",
		Short: "Print the computed layout of a unit's types",
		Long: `Print the layout of each named type, or of every type the unit declares.
Types may be written as expressions, e.g. "Box<Int64>" or "[Point; 4]".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, func(w io.Writer, res *driver.Result, t types.TypeID, opts dump.Options) error {
				return dump.Layout(w, res.Layout(), t, opts)
			}, func(*types.NominalDecl) bool { return true })
		},
	}
	cmd.Flags().Int("max-cell", 32, "truncate table cells wider than this (0=off)")
	return cmd
}

func newVTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vtable [flags] <manifest|dir> [class...]",
		Short: "Print the dispatch tables of a unit's classes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, func(w io.Writer, res *driver.Result, t types.TypeID, opts dump.Options) error {
				return dump.VTable(w, res.Emitter.VTables, t, opts)
			}, func(d *types.NominalDecl) bool { return d.Kind == types.DeclClass })
		},
	}
	cmd.Flags().Int("max-cell", 32, "truncate table cells wider than this (0=off)")
	return cmd
}

type inspectFunc func(w io.Writer, res *driver.Result, t types.TypeID, opts dump.Options) error

// runInspect loads one unit without emitting and renders each requested
// type, or every declared type accepted by all.
func runInspect(cmd *cobra.Command, args []string, render inspectFunc, all func(*types.NominalDecl) bool) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = g.logger.Sync() }()
	maxCell, err := cmd.Flags().GetInt("max-cell")
	if err != nil {
		return fmt.Errorf("failed to get max-cell flag: %w", err)
	}

	path, err := project.ResolveManifest(args[0])
	if err != nil {
		return err
	}
	dopts := g.driverOptions(driver.ModeAnalyze)
	session := driver.NewSession(dopts)
	res, err := session.CompileUnit(cmd.Context(), path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed, err := printDiagnostics(cmd.ErrOrStderr(), session.Files, []*driver.Result{res}, "pretty", g)
	if err != nil {
		return err
	}
	if failed {
		return errDiagnostics
	}

	var targets []types.TypeID
	if len(args) > 1 {
		for _, text := range args[1:] {
			t, err := res.Unit.ResolveType(text)
			if err != nil {
				return err
			}
			targets = append(targets, t)
		}
	} else {
		for _, d := range res.Unit.Decls {
			if all(d) {
				targets = append(targets, d.ID)
			}
		}
	}

	opts := dump.Options{Color: g.color, MaxCell: maxCell}
	for i, t := range targets {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := render(out, res, t, opts); err != nil {
			return fmt.Errorf("%s: %w", res.Unit.Types.TypeString(t), err)
		}
	}
	if g.timings {
		printTimings(cmd.ErrOrStderr(), dopts.Timer)
	}
	return nil
}
