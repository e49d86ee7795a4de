package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

var (
	listToday bool
	listWeek  bool
	listGroup bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries by day",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show today's entries")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's entries")
	listCmd.Flags().BoolVar(&listGroup, "group", false, "Merge same-day entries of the same task and project (default from view.grouping)")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	var from, to time.Time
	switch {
	case listWeek:
		from, to = timecalc.WeekRange(now)
	default:
		// Default to today (covers --today and the bare command).
		from = timecalc.StartOfDay(now)
		to = timecalc.EndOfDay(now)
	}

	entries, err := store.LoadRange(from, to)
	if err != nil {
		fail(2, err)
	}

	grouping := cfg.View.Grouping
	if cmd.Flags().Changed("group") {
		grouping = listGroup
	}
	printView(cmd.OutOrStdout(), view.Materialize(holdersOf(entries, grouping)), now)
	return nil
}
