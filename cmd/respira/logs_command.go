package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"respira/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var requestID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the daemon log",
		Example: `  respira logs -n 100
  respira logs --request 3f0c2a4e-8c1b-4d7e-9a55-0b4f2c1d9e77
  respira logs -f`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.CurrentLogPath()
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.Options{
				Offset: -1,
				Limit:  max(lines, 0),
				Match:  requestID,
			})
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}

			offset := result.Offset
			for {
				result, err := logs.Tail(cmd.Context(), path, logs.Options{
					Offset: offset,
					Match:  requestID,
					Wait:   time.Second,
				})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("follow %s: %w", path, err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&requestID, "request", "", "Only show lines mentioning this request ID")
	return cmd
}
