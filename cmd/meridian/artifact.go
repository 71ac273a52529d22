package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"meridian/internal/artifact"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [flags] <file.mdp>",
		Short: "Summarize an emitted artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := cmd.Flags().GetBool("words")
			if err != nil {
				return fmt.Errorf("failed to get words flag: %w", err)
			}
			a, err := artifact.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "unit %s (module %s) for %s\n", a.Unit, a.Module, a.Triple)
			fmt.Fprintf(out, "hash %s  schema %d\n", a.Hash, a.Schema)
			fmt.Fprintf(out, "%d blobs, %d templates, %d records\n", len(a.Blobs), len(a.Templates), len(a.Records))
			for _, r := range a.Records {
				var tags []string
				if r.Generic {
					tags = append(tags, "generic")
				}
				if r.InPlaceInit {
					tags = append(tags, "in-place")
				}
				if r.Foreign != "" {
					tags = append(tags, "foreign "+r.Foreign)
				}
				if r.Super != nil && r.Super.Pattern != "" {
					tags = append(tags, "super "+r.Super.Pattern)
				}
				line := fmt.Sprintf("  %s %s  %s  %d words", r.Kind, r.Name, r.Symbol, len(r.Words))
				if len(tags) > 0 {
					line += "  [" + strings.Join(tags, ", ") + "]"
				}
				fmt.Fprintln(out, line)
				if words {
					for i, w := range r.Words {
						fmt.Fprintf(out, "    %3d  %s\n", i, w)
					}
				}
			}
			if len(a.Undefined) > 0 {
				fmt.Fprintf(out, "undefined: %s\n", strings.Join(a.Undefined, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("words", false, "list each record's words")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact disk cache",
	}
	cmd.PersistentFlags().String("cache-dir", "", "disk cache location (default: user cache dir)")

	cmd.AddCommand(&cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cacheFromFlags(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Dir())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Drop every cached artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cacheFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := c.DropAll(); err != nil {
				return fmt.Errorf("clean %s: %w", c.Dir(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", c.Dir())
			return nil
		},
	})
	return cmd
}

func cacheFromFlags(cmd *cobra.Command) (*artifact.DiskCache, error) {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	return openCache(dir)
}
