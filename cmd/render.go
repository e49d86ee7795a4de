package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/reconcile"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

// holdersOf folds entries into holders as a feed of puts would.
func holdersOf(entries []model.Entry, grouping bool) []holder.Holder {
	msgs := make([]model.Message, len(entries))
	for i, e := range entries {
		msgs[i] = model.Put(e)
	}
	return reconcile.Apply(nil, msgs, grouping)
}

// printView prints the materialized list: each day header with its total,
// followed by the day's entries, newest first.
func printView(w io.Writer, items []view.Item, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}
	for _, item := range items {
		fmt.Fprintln(w, formatItem(item, now))
	}
}

func formatItem(item view.Item, now time.Time) string {
	if item.IsHeader() {
		h := item.Header()
		running := ""
		if h.Running {
			running = ", running"
		}
		return fmt.Sprintf("%s  (%s%s)", timecalc.DayKey(h.Date), formatDuration(h.Duration(now)), running)
	}

	h := item.Holder()
	e := h.Entry()
	endStr := "ongoing"
	if e.End != nil {
		endStr = e.End.Format("15:04")
	}
	task := ""
	if e.Task != nil {
		task = "  " + *e.Task
	}
	count := ""
	if h.Kind() == holder.KindGroup && h.Len() > 1 {
		count = fmt.Sprintf(" ×%d", h.Len())
	}
	return fmt.Sprintf("%s–%s  %s%s%s (%s)", e.Start.Format("15:04"), endStr, e.Project, task, count, formatDuration(h.Duration(now)))
}

func formatDuration(d time.Duration) string {
	return timecalc.FormatDuration(int64(d.Seconds()))
}
