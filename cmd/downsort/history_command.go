package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"downsort/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently journaled moves, skips, and failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := history.Filter{Limit: limit}
			if strings.TrimSpace(statusFlag) != "" {
				status, err := history.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				filter.Status = status
			}

			out := cmd.OutOrStdout()
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}

			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No matching history entries")
				return nil
			}
			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable(historyColumns, historyRows(entries), historySummary(counts)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of entries to show")
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only show entries with this status (moved, skipped, failed, timed_out)")
	return cmd
}

var summaryOrder = []history.Status{
	history.StatusMoved,
	history.StatusSkipped,
	history.StatusTimedOut,
	history.StatusFailed,
}

// historySummary totals the whole journal by status, e.g.
// "journal: 4 entries (moved 2, skipped 0, timed_out 1, failed 1)".
func historySummary(counts map[history.Status]int) string {
	total := 0
	parts := make([]string, 0, len(summaryOrder))
	for _, status := range summaryOrder {
		total += counts[status]
		parts = append(parts, fmt.Sprintf("%s %d", status, counts[status]))
	}
	return fmt.Sprintf("journal: %d entries (%s)", total, strings.Join(parts, ", "))
}

func historyRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Destination
		if detail == "" {
			detail = entry.Reason
			if entry.Error != "" {
				detail = strings.TrimSpace(detail + ": " + entry.Error)
			}
		}
		rows = append(rows, []string{
			entry.RecordedAt.Local().Format(time.DateTime),
			string(entry.Status),
			entry.Category,
			entry.Source,
			detail,
			humanize.IBytes(uint64(max(entry.Size, 0))),
		})
	}
	return rows
}
