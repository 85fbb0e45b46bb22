package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pyrun/cmd/pyrun/ui"
	"pyrun/internal/store"
)

var (
	historyLimit int
	historyKind  string
	historyStats bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Args:  cobra.NoArgs,
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Number of runs to show (default: history.limit)")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Only show selection or function runs")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show totals instead of runs")
}

func showHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !cfg.History.Enabled {
		fmt.Fprintln(out, styles.Muted.Render("History is disabled (history.enabled: false)."))
		return nil
	}

	hs, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer hs.Close()

	if historyStats {
		stats, err := hs.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d\n", styles.Label.Render("Total runs:"), stats.TotalRuns)
		fmt.Fprintf(out, "%s %d\n", styles.Label.Render("Failed:"), stats.FailedRuns)
		kinds := make([]string, 0, len(stats.KindBreakdown))
		for k := range stats.KindBreakdown {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-10s %d\n", k, stats.KindBreakdown[k])
		}
		return nil
	}

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.History.Limit
	}
	var runs []store.RunRecord
	if historyKind != "" {
		runs, err = hs.RecentByKind(historyKind, limit)
	} else {
		runs, err = hs.Recent(limit)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No runs recorded."))
		return nil
	}

	headers := []string{"TIME", "KIND", "EXIT", "DURATION", "TARGET"}
	rows := make([][]string, 0, len(runs))
	failed := 0
	for _, r := range runs {
		if !r.Succeeded() {
			failed++
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			strconv.Itoa(r.ExitCode),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			r.Target,
		})
	}
	fmt.Fprintln(out, ui.RenderTable(headers, rows, styles))

	summary := fmt.Sprintf("%d shown, %d failed", len(runs), failed)
	if failed > 0 {
		fmt.Fprintln(out, styles.Error.Render(summary))
	} else {
		fmt.Fprintln(out, styles.Success.Render(summary))
	}
	return nil
}
