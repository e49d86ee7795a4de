package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var stopNote string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the currently running timer",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopNote, "description", "", "Append to the entry's description")
}

func runStop(cmd *cobra.Command, args []string) error {
	now := time.Now()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	active, err := store.FindActiveEntry(now)
	if err != nil {
		fail(2, err)
	}
	if active == nil {
		fmt.Fprintln(os.Stderr, "No active timer to stop.")
		os.Exit(1)
	}

	if _, err := stopEntry(store, *active, now, stopNote); err != nil {
		fail(2, err)
	}

	elapsed := int64(now.Sub(active.Start).Seconds())
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped timer for project %q. Elapsed: %s\n",
		active.Project, formatElapsed(elapsed))
	return nil
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
