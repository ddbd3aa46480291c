package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"respira/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent prediction requests from the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records, stats, err := api.ListHistory(cmd.Context(), api.ListHistoryRequest{Config: cfg, Limit: limit})
			if errors.Is(err, api.ErrHistoryDisabled) {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"enabled": false, "records": []any{}})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled (set [history] enabled = true)")
				return nil
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"enabled": true,
					"records": records,
					"stats":   stats,
				})
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No predictions recorded yet")
				return nil
			}
			fmt.Fprint(out, renderHistoryTable(records, time.Now()))
			fmt.Fprintf(out, "\nShowing %d of %d requests (%s)\n", len(records), stats.Total, formatOutcomeCounts(stats.ByOutcome))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of records to show (default history.default_limit)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}

func renderHistoryTable(records []api.HistoryRecord, now time.Time) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		age := "-"
		if received, ok := api.ParseTime(rec.ReceivedAt); ok {
			age = humanize.RelTime(received, now, "ago", "from now")
		}
		rows = append(rows, []string{
			shortID(rec.RequestID),
			age,
			rec.Outcome,
			strconv.Itoa(rec.HTTPStatus),
			formatDiagnosis(rec.Audio),
			formatDiagnosis(rec.Image),
			formatMillis(rec.DurationMS),
		})
	}
	return renderTable([]column{
		{header: "Request"},
		{header: "Received"},
		{header: "Outcome"},
		{header: "Status", numeric: true},
		{header: "Audio"},
		{header: "Image"},
		{header: "Model Time", numeric: true},
	}, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDiagnosis(d *api.Diagnosis) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%.1f%%)", d.PredictedDisease, d.Confidence)
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatOutcomeCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no outcomes"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(counts[key])), key))
	}
	return strings.Join(parts, ", ")
}
