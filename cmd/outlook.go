package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/msgraph"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

var (
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncToday   bool
	outlookSyncDryRun  bool
	outlookSyncProject string
	outlookSyncTZ      string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Outlook calendar events into ttt entries",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncToday, "today", false, "Sync only today (default)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned operations without writing")
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project name for imported events (default from outlook.default_project)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (default from outlook.timezone)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

// syncRange resolves the --date, --from and --to flags to a day range.
func syncRange(now time.Time) (time.Time, time.Time, error) {
	switch {
	case outlookSyncDate != "":
		d, err := time.ParseInLocation("2006-01-02", outlookSyncDate, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --date value %q: %w", outlookSyncDate, err)
		}
		return timecalc.StartOfDay(d), timecalc.EndOfDay(d), nil

	case outlookSyncFrom != "" || outlookSyncTo != "":
		if outlookSyncFrom == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--from is required when --to is specified")
		}
		from, err := time.ParseInLocation("2006-01-02", outlookSyncFrom, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from value %q: %w", outlookSyncFrom, err)
		}
		to := now
		if outlookSyncTo != "" {
			if to, err = time.ParseInLocation("2006-01-02", outlookSyncTo, time.Local); err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --to value %q: %w", outlookSyncTo, err)
			}
		}
		return timecalc.StartOfDay(from), timecalc.EndOfDay(to), nil
	}
	return timecalc.StartOfDay(now), timecalc.EndOfDay(now), nil
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	now := time.Now()
	out := cmd.OutOrStdout()

	from, to, err := syncRange(now)
	if err != nil {
		fail(1, err)
	}

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	project := cfg.Outlook.DefaultProject
	if outlookSyncProject != "" {
		project = outlookSyncProject
	}
	timezone := cfg.Outlook.Timezone
	if outlookSyncTZ != "" {
		timezone = outlookSyncTZ
	}

	dryTag := ""
	if outlookSyncDryRun {
		dryTag = " [dry-run]"
	}
	fmt.Fprintf(out, "Syncing Outlook events (%s → %s)%s...\n\n",
		timecalc.DayKey(from), timecalc.DayKey(to), dryTag)

	ctx := cmd.Context()
	cache := msgraph.DefaultTokenCache(dir)
	tok, oauthCfg, err := msgraph.Authenticate(ctx, cache, cfg.Outlook.TenantID, cfg.Outlook.ClientID, out)
	if err != nil {
		fail(1, fmt.Errorf("authentication failed: %w", err))
	}

	client := msgraph.NewClient(ctx, tok, oauthCfg, cache)
	events, err := client.GetCalendarView(ctx, from, to, timezone)
	if err != nil {
		fail(1, fmt.Errorf("failed to fetch calendar events: %w", err))
	}

	result := msgraph.Sync(store, events, msgraph.SyncOptions{
		DryRun:   outlookSyncDryRun,
		Project:  project,
		Timezone: timezone,
		Out:      out,
	})

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d imported\n", result.Imported)
	fmt.Fprintf(out, "  %d skipped\n", result.Skipped)
	fmt.Fprintf(out, "  %d updated\n", result.Updated)
	if result.Errors > 0 {
		fmt.Fprintf(out, "  %d errors\n", result.Errors)
	}

	if len(result.Changes) > 0 {
		changed := make([]model.Entry, len(result.Changes))
		for i, m := range result.Changes {
			changed[i] = m.Entry
		}
		fmt.Fprintln(out)
		printView(out, view.Materialize(holdersOf(changed, cfg.View.Grouping)), now)
	}

	if result.Errors > 0 {
		os.Exit(2)
	}
	return nil
}
