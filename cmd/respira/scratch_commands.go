package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"respira/internal/api"
	"respira/internal/scratch"
)

func newScratchCommand(ctx *commandContext) *cobra.Command {
	scratchCmd := &cobra.Command{
		Use:   "scratch",
		Short: "Inspect and prune per-request upload directories",
	}

	scratchCmd.AddCommand(newScratchListCommand(ctx))
	scratchCmd.AddCommand(newScratchCleanCommand(ctx))

	return scratchCmd
}

func newScratchListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List request directories left in the scratch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			scratchDir := strings.TrimSpace(cfg.Paths.ScratchDir)

			dirs, err := api.ListScratchDirectories(scratchDir)
			if err != nil {
				return fmt.Errorf("list scratch directories: %w", err)
			}
			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"scratch_dir":      scratchDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No request directories found")
				return nil
			}
			fmt.Fprintf(out, "Scratch directory: %s\n\n", scratchDir)

			now := time.Now()
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := "-"
				if modTime, ok := api.ParseTime(dir.ModTime); ok {
					age = humanize.RelTime(modTime, now, "ago", "from now")
				}
				rows = append(rows, []string{
					shortID(dir.Name),
					age,
					humanize.Comma(int64(dir.Files)),
					humanize.Bytes(uint64(max(dir.Size, 0))),
				})
			}
			fmt.Fprint(out, renderTable([]column{
				{header: "Request"},
				{header: "Modified"},
				{header: "Files", numeric: true},
				{header: "Size", numeric: true},
			}, rows))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanize.Bytes(uint64(max(totalSize, 0))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print directories as JSON")
	return cmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var jsonOutput bool
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale request directories",
		Long: `Remove request directories from the scratch directory.

By default, removes directories older than scratch.max_age_hours. Use --max-age
to pick a different cutoff, or --all to remove every request directory. Run
--all only while the daemon is idle; it also removes in-flight uploads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := cfg.ScratchMaxAge()
			if cmd.Flags().Changed("max-age") {
				age = maxAge
			}
			if !cleanAll && age <= 0 {
				return errors.New("max age must be positive (set --max-age or scratch.max_age_hours, or pass --all)")
			}

			result, err := api.CleanScratchDirectories(cmd.Context(), api.CleanScratchRequest{
				ScratchDir: cfg.Paths.ScratchDir,
				MaxAge:     age,
				CleanAll:   cleanAll,
			})
			if err != nil {
				return err
			}
			if !result.Configured {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"removed": 0, "errors": []any{}})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scratch directory not configured")
				return nil
			}
			if jsonOutput {
				return writeScratchCleanJSON(cmd, result.Cleanup)
			}
			printScratchCleanResult(cmd, result.Cleanup, result.Scope)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every request directory regardless of age")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove directories older than this (default scratch.max_age_hours)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func printScratchCleanResult(cmd *cobra.Command, result scratch.CleanStaleResult, scope string) {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "Nothing to clean (%s)\n", scope)
		return
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s, %d errors\n", len(result.Removed), scope, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return
	}
	fmt.Fprintf(out, "Removed %d %s\n", len(result.Removed), scope)
}

func writeScratchCleanJSON(cmd *cobra.Command, result scratch.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"errors":  errs,
	})
}
