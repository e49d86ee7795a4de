package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

var (
	startTask        string
	startDescription string
	startTags        string
)

var startCmd = &cobra.Command{
	Use:   "start <project>",
	Short: "Start a new time entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startTask, "task", "", "Task name")
	startCmd.Flags().StringVar(&startDescription, "description", "", "Optional description")
	startCmd.Flags().StringVar(&startTags, "tags", "", "Comma-separated tags")
}

func runStart(cmd *cobra.Command, args []string) error {
	project := args[0]
	now := time.Now()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	// Check for an existing active timer and auto-stop it.
	active, err := store.FindActiveEntry(now)
	if err != nil {
		fail(2, err)
	}
	if active != nil {
		fmt.Fprintf(os.Stderr, "Warning: auto-stopping active timer for project %q\n", active.Project)
		if _, err := stopEntry(store, *active, now, ""); err != nil {
			fail(2, err)
		}
	}

	entry := model.Entry{
		ID:      timecalc.GenerateID(now),
		Project: project,
		Tags:    []string{},
		Start:   now,
		State:   model.StateRunning,
		Source:  "manual",
	}
	if startTask != "" {
		entry.Task = &startTask
	}
	if startDescription != "" {
		entry.Description = &startDescription
	}
	if startTags != "" {
		parts := strings.Split(startTags, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		entry.Tags = parts
	}

	if err := store.UpdateEntry(entry); err != nil {
		fail(2, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Started timer for project %q at %s (id %s)\n", project, now.Format("15:04:05"), entry.ID)
	return nil
}

// stopEntry closes an entry at stopTime, appending note to its description.
// An entry that ran past midnight is split in two: the first part ends at the
// end of its start day, the second starts at midnight of the stop day. It
// returns the last entry stored.
func stopEntry(store storage.Store, entry model.Entry, stopTime time.Time, note string) (model.Entry, error) {
	if note != "" {
		if entry.Description != nil {
			merged := *entry.Description + "\n" + note
			entry.Description = &merged
		} else {
			entry.Description = &note
		}
	}

	if !timecalc.SameDay(entry.Start, stopTime) {
		return splitAcrossMidnight(store, entry, stopTime)
	}

	stopped := entry.Stopped(stopTime)
	return stopped, store.UpdateEntry(stopped)
}

// splitAcrossMidnight splits a cross-midnight entry into two entries.
func splitAcrossMidnight(store storage.Store, entry model.Entry, stopTime time.Time) (model.Entry, error) {
	first := entry.Stopped(timecalc.EndOfDay(entry.Start))
	if err := store.UpdateEntry(first); err != nil {
		return model.Entry{}, err
	}

	startOfSecond := timecalc.StartOfDay(stopTime)
	second := model.Entry{
		ID:          timecalc.GenerateID(startOfSecond),
		Project:     entry.Project,
		Task:        entry.Task,
		Description: entry.Description,
		Tags:        entry.Tags,
		Start:       startOfSecond,
		Source:      entry.Source,
	}.Stopped(stopTime)
	return second, store.UpdateEntry(second)
}
