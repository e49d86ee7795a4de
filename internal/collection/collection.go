// Package collection runs the entry list pipeline: feed messages are
// buffered, merged into holders, materialized and diffed, and the resulting
// operations are emitted to subscribers.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/ttt-timeline/internal/buffer"
	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/diff"
	"github.com/Tiliavir/ttt-timeline/internal/emitter"
	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/reconcile"
	"github.com/Tiliavir/ttt-timeline/internal/undo"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

// Store receives the side effects of undo: stopping a running entry and
// deleting entries for good.
type Store interface {
	UpdateEntry(e model.Entry) error
	DeleteEntry(e model.Entry) error
}

// Options configures a Collection.
type Options struct {
	Grouping        bool
	BufferWindow    time.Duration
	UndoGracePeriod time.Duration
	Clock           clock.Clock
	Logger          *slog.Logger
	// Store may be nil; undo then only affects the view.
	Store Store
	// Initial seeds the holder set.
	Initial []holder.Holder
	// Materialize replaces view.Materialize.
	Materialize func([]holder.Holder) []view.Item
}

// Collection owns the holder set and the last materialized list. Only the
// pipeline goroutine started by Run touches them.
type Collection struct {
	grouping    bool
	log         *slog.Logger
	store       Store
	materialize func([]holder.Holder) []view.Item

	buffer  *buffer.Stage
	emitter *emitter.Emitter
	undo    *undo.Manager

	holders []holder.Holder
	items   []view.Item
	hidden  map[string]bool
	// replay holds undo messages of a failed pass; they lead the next one.
	replay []model.Message

	// batchMu keeps the effects of one undo call in one pass.
	batchMu sync.Mutex
	outMu   sync.Mutex
	outbox  []effect
	wake    chan struct{}
}

// New returns a Collection. Call Run to start it.
func New(opts Options) *Collection {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Materialize == nil {
		opts.Materialize = view.Materialize
	}

	c := &Collection{
		grouping:    opts.Grouping,
		log:         opts.Logger,
		store:       opts.Store,
		materialize: opts.Materialize,
		buffer:      buffer.New(opts.BufferWindow, opts.Clock),
		holders:     append([]holder.Holder(nil), opts.Initial...),
		hidden:      make(map[string]bool),
		wake:        make(chan struct{}, 1),
	}
	c.items = c.materialize(c.holders)
	c.emitter = emitter.New(c.items, opts.Logger)
	c.undo = undo.New(effects{c}, opts.Clock, opts.UndoGracePeriod)
	return c
}

// Run processes feed until it is closed or ctx is done. A pending undo is
// finalized before Run returns.
func (c *Collection) Run(ctx context.Context, feed <-chan model.Message) error {
	batches := make(chan []model.Message)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.buffer.Run(gctx, feed, batches) })
	g.Go(func() error { return c.loop(gctx, batches) })
	g.Go(c.emitter.Run)
	return g.Wait()
}

// Subscribe registers fn for operations and settle signals. fn runs on the
// dispatch goroutine and must not block.
func (c *Collection) Subscribe(fn emitter.Handler) (cancel func()) {
	return c.emitter.Subscribe(fn)
}

// Items returns a copy of the observable list.
func (c *Collection) Items() []view.Item {
	return c.emitter.Snapshot()
}

// RemoveWithUndo hides h from the list. Its entries are deleted from the
// store once the grace period ends, unless RestoreFromUndo is called first.
func (c *Collection) RemoveWithUndo(h holder.Holder) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	c.undo.RemoveWithUndo(h)
}

// RestoreFromUndo brings back the pending removal. It reports false when
// nothing was pending.
func (c *Collection) RestoreFromUndo() bool {
	return c.undo.RestoreFromUndo()
}

// Pending returns the entries awaiting permanent deletion and when that
// happens.
func (c *Collection) Pending() ([]model.Entry, time.Time, bool) {
	return c.undo.Pending()
}

func (c *Collection) loop(ctx context.Context, batches <-chan []model.Message) error {
	defer c.emitter.Close()

	for {
		if msgs, err := c.drainEffects(); len(msgs) > 0 {
			c.pass(msgs, err, true)
			continue
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.wake:
		case batch, ok := <-batches:
			if !ok {
				c.shutdown()
				return nil
			}
			c.pass(c.visible(batch), nil, false)
		}
	}
}

func (c *Collection) shutdown() {
	c.undo.Flush()
	if msgs, err := c.drainEffects(); len(msgs) > 0 || len(c.replay) > 0 {
		c.pass(msgs, err, true)
	}
}

// visible drops feed puts for entries that are pending undo. The dropped
// snapshot replaces the pending one so the final delete sees the entry as
// it is stored now.
func (c *Collection) visible(batch []model.Message) []model.Message {
	if len(c.hidden) == 0 {
		return batch
	}
	out := batch[:0:0]
	for _, m := range batch {
		if m.Err == nil && m.Action == model.ActionPut && c.hidden[m.Entry.ID] {
			c.log.Debug("dropping put for entry pending undo", "entry_id", m.Entry.ID)
			c.undo.Refresh(m.Entry)
			continue
		}
		out = append(out, m)
	}
	return out
}

// pass runs one reconciliation pass and publishes its operations. carried is
// a store error raised while preparing msgs. fromUndo marks msgs as undo
// effects, which are kept for the next pass if this one fails.
func (c *Collection) pass(msgs []model.Message, carried error, fromUndo bool) {
	undoMsgs := c.replay
	if fromUndo {
		undoMsgs = append(slices.Clip(undoMsgs), msgs...)
	}
	if len(c.replay) > 0 {
		msgs = append(slices.Clip(c.replay), msgs...)
	}
	c.replay = nil

	var feedErr error
	valid := 0
	for _, m := range msgs {
		if m.Err != nil {
			feedErr = m.Err
			continue
		}
		valid++
	}
	if valid == 0 && feedErr != nil {
		c.log.Error("feed error", "error", feedErr)
		c.emitter.Publish(nil, errors.Join(carried, feedErr))
		return
	}

	holders := reconcile.Apply(c.holders, msgs, c.grouping)
	items, ops, err := c.render(holders)
	if err != nil {
		c.log.Error("reconciliation pass failed", "batch", len(msgs), "replay", len(undoMsgs), "error", err)
		c.replay = undoMsgs
		c.emitter.Publish(nil, errors.Join(carried, err))
		return
	}

	c.holders = holders
	c.items = items
	c.log.Debug("pass settled", "batch", len(msgs), "ops", len(ops))
	c.emitter.Publish(ops, errors.Join(carried, feedErr))
}

func (c *Collection) render(holders []holder.Holder) (items []view.Item, ops []diff.Op[view.Item], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: %v", r)
		}
	}()

	items = c.materialize(holders)
	ops, err = diff.Calculate(c.items, items)
	if err != nil {
		return nil, nil, fmt.Errorf("diff: %w", err)
	}
	return items, ops, nil
}
