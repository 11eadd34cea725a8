package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show completed sessions",
	Long:  `Show completed focus sessions and aggregate totals.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	entries := e.store.History()
	if len(entries) == 0 {
		fmt.Println("No completed sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tPLANNED\tACTUAL\tCOMPLETED")

	// Newest first
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		started := time.UnixMilli(entry.StartTime).Format("2006-01-02 15:04")
		completed := "ended early"
		if entry.CompletedNaturally {
			completed = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d min\t%d min\t%s\n",
			started,
			entry.DurationMinutes,
			entry.ActualMinutes,
			completed,
		)
	}

	_ = w.Flush()

	stats := e.store.Stats()
	fmt.Printf("\n%d sessions, %d completed, %d focus minutes total\n",
		stats.TotalSessions,
		stats.CompletedSessions,
		stats.TotalFocusMinutes,
	)
	return nil
}
