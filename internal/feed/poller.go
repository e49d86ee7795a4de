// Package feed turns store snapshots into a stream of put and delete
// messages.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

// Source loads entries by day range.
type Source interface {
	LoadRange(from, to time.Time) ([]model.Entry, error)
}

// Options configures a Poller.
type Options struct {
	// Interval between polls.
	Interval time.Duration
	// Days is the number of days, ending today, to watch.
	Days   int
	Clock  clock.Clock
	Logger *slog.Logger
}

// Poller reports the changes between successive snapshots of a store range.
type Poller struct {
	source   Source
	interval time.Duration
	days     int
	clock    clock.Clock
	log      *slog.Logger

	known map[string]model.Entry
}

// NewPoller returns a Poller over src.
func NewPoller(src Source, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		source:   src,
		interval: opts.Interval,
		days:     opts.Days,
		clock:    opts.Clock,
		log:      opts.Logger,
		known:    make(map[string]model.Entry),
	}
}

// Poll loads the window ending at now and returns a put for every new or
// changed entry, in store order, followed by a delete for every entry that
// is gone, ordered by id.
func (p *Poller) Poll(now time.Time) ([]model.Message, error) {
	from := timecalc.StartOfDay(now).AddDate(0, 0, -(p.days - 1))
	entries, err := p.source.LoadRange(from, timecalc.EndOfDay(now))
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	seen := make(map[string]model.Entry, len(entries))
	for _, e := range entries {
		seen[e.ID] = e
		if old, ok := p.known[e.ID]; ok && old.Equal(e) {
			continue
		}
		msgs = append(msgs, model.Put(e))
	}

	var gone []string
	for id := range p.known {
		if _, ok := seen[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		msgs = append(msgs, model.Delete(p.known[id]))
	}

	p.known = seen
	return msgs, nil
}

// Run polls immediately and then on every tick, sending messages to out. A
// failed poll is sent as a message carrying the error. out is closed when
// Run returns.
func (p *Poller) Run(ctx context.Context, out chan<- model.Message) error {
	defer close(out)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		msgs, err := p.Poll(p.clock.Now())
		if err != nil {
			p.log.Warn("poll failed", "error", err)
			msgs = []model.Message{{Err: err}}
		}
		for _, m := range msgs {
			select {
			case out <- m:
			case <-ctx.Done():
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
