package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/ttt-timeline/internal/collection"
	"github.com/Tiliavir/ttt-timeline/internal/emitter"
	"github.com/Tiliavir/ttt-timeline/internal/feed"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

var (
	watchGroup bool
	watchDays  int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the entry list and print every change until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchGroup, "group", false, "Merge same-day entries of the same task and project (default from view.grouping)")
	watchCmd.Flags().IntVar(&watchDays, "days", 0, "Number of days to follow, ending today (default from view.days)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	grouping := cfg.View.Grouping
	if cmd.Flags().Changed("group") {
		grouping = watchGroup
	}
	days := cfg.View.Days
	if watchDays > 0 {
		days = watchDays
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := feed.NewPoller(store, feed.Options{
		Interval: cfg.View.PollInterval.Std(),
		Days:     days,
	})
	coll := collection.New(collection.Options{
		Grouping:        grouping,
		BufferWindow:    cfg.View.BufferWindow.Std(),
		UndoGracePeriod: cfg.View.UndoGracePeriod.Std(),
		Store:           store,
	})

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	coll.Subscribe(func(ev emitter.Event) {
		switch {
		case ev.Op != nil:
			fmt.Fprintf(out, "%-12s %s\n", ev.Op, formatItem(ev.Op.Item, time.Now()))
		case !ev.Settled.OK():
			fmt.Fprintf(errOut, "! %s\n", ev.Settled.Reason())
		}
	})

	msgs := make(chan model.Message)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx, msgs) })
	g.Go(func() error { return coll.Run(gctx, msgs) })
	return g.Wait()
}
