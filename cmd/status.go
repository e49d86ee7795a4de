package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current timer status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := time.Now()
	out := cmd.OutOrStdout()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	active, err := store.FindActiveEntry(now)
	if err != nil {
		fail(2, err)
	}

	if active != nil {
		fmt.Fprintln(out, "Running:")
		fmt.Fprintf(out, "  Project: %s\n", active.Project)
		if active.Task != nil {
			fmt.Fprintf(out, "  Task: %s\n", *active.Task)
		}
		fmt.Fprintf(out, "  Since: %s\n", active.Start.Format("15:04"))
		fmt.Fprintf(out, "  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(int64(active.Duration(now).Seconds())))
		return nil
	}

	// Idle: show today's total.
	entries, err := store.LoadRange(now, now)
	if err != nil {
		fail(2, err)
	}
	var total time.Duration
	for _, e := range entries {
		total += e.Duration(now)
	}

	fmt.Fprintln(out, "No active timer.")
	fmt.Fprintf(out, "Today: %s logged.\n", formatDuration(total))
	return nil
}
