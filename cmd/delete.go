package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timeline/internal/collection"
	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

var deleteDays int

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry; press Ctrl-C during the grace period to undo",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().IntVar(&deleteDays, "days", 7, "Number of days, ending today, to search for the entry")
}

// deleteWatcher reports the permanent deletion of one entry.
type deleteWatcher struct {
	storage.Store
	id   string
	done chan error
}

func (w *deleteWatcher) DeleteEntry(e model.Entry) error {
	err := w.Store.DeleteEntry(e)
	if e.ID == w.id {
		select {
		case w.done <- err:
		default:
		}
	}
	return err
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	now := time.Now()
	out := cmd.OutOrStdout()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	from := timecalc.StartOfDay(now).AddDate(0, 0, -(max(deleteDays, 1) - 1))
	entries, err := store.LoadRange(from, timecalc.EndOfDay(now))
	if err != nil {
		fail(2, err)
	}
	holders := holdersOf(entries, false)
	i := slices.IndexFunc(holders, func(h holder.Holder) bool { return h.Contains(id) })
	if i < 0 {
		fmt.Fprintf(os.Stderr, "No entry %q in the last %d days.\n", id, deleteDays)
		os.Exit(1)
	}
	target := holders[i]

	watcher := &deleteWatcher{Store: store, id: id, done: make(chan error, 1)}
	grace := cfg.View.UndoGracePeriod.Std()
	coll := collection.New(collection.Options{
		UndoGracePeriod: grace,
		Store:           watcher,
		Initial:         holders,
	})

	interrupted, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	feed := make(chan model.Message)
	ran := make(chan error, 1)
	go func() { ran <- coll.Run(context.Background(), feed) }()

	coll.RemoveWithUndo(target)
	if _, deadline, ok := coll.Pending(); ok {
		fmt.Fprintf(out, "Deleted %s. Press Ctrl-C before %s to undo.\n", formatItem(view.HolderItem(target), now), deadline.Format("15:04:05"))
	}

	var deleteErr error
	select {
	case deleteErr = <-watcher.done:
		if deleteErr == nil {
			fmt.Fprintln(out, "Entry deleted.")
		}
	case <-interrupted.Done():
		if coll.RestoreFromUndo() {
			fmt.Fprintln(out, "Restored.")
		} else {
			deleteErr = <-watcher.done
			fmt.Fprintln(out, "Too late, entry already deleted.")
		}
	}

	close(feed)
	if err := <-ran; err != nil {
		fail(2, err)
	}
	if deleteErr != nil {
		fail(2, deleteErr)
	}
	return nil
}
