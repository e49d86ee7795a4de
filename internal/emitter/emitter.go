// Package emitter delivers edit scripts to subscribers in order while keeping
// an observable copy of the list they describe.
package emitter

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/Tiliavir/ttt-timeline/internal/diff"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

// Settled ends a reconciliation pass. Err is nil when the pass succeeded.
type Settled struct {
	Err error
}

// OK reports whether the pass succeeded.
func (s Settled) OK() bool { return s.Err == nil }

// Reason is the failure message, or "" on success.
func (s Settled) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Event is exactly one of an operation or the settle signal of a pass.
type Event struct {
	Op      *diff.Op[view.Item]
	Settled *Settled
}

// Handler receives events on the dispatch goroutine. It must not block.
type Handler func(Event)

type subscriber struct {
	id int
	fn Handler
}

// Emitter owns the observable list. Published passes are queued and
// dispatched one operation at a time by Run: each operation is applied to
// the list and then handed to every subscriber in subscription order.
type Emitter struct {
	log *slog.Logger

	mu     sync.Mutex
	queue  [][]Event
	closed bool
	wake   chan struct{}

	subMu  sync.Mutex
	subs   []subscriber
	nextID int

	listMu sync.RWMutex
	list   []view.Item
}

// New returns an Emitter whose list starts as initial.
func New(initial []view.Item, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		log:  logger,
		wake: make(chan struct{}, 1),
		list: slices.Clone(initial),
	}
}

// Subscribe registers fn. The returned func removes it again.
func (e *Emitter) Subscribe(fn Handler) (cancel func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscriber{id: id, fn: fn})

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		e.subs = slices.DeleteFunc(e.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Publish queues one pass: ops followed by a settle signal carrying err.
func (e *Emitter) Publish(ops []diff.Op[view.Item], err error) {
	pass := make([]Event, 0, len(ops)+1)
	for i := range ops {
		pass = append(pass, Event{Op: &ops[i]})
	}
	pass = append(pass, Event{Settled: &Settled{Err: err}})

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Warn("pass published after close", "ops", len(ops))
		return
	}
	e.queue = append(e.queue, pass)
	e.mu.Unlock()
	e.signal()
}

// Close makes Run return once the queue is drained.
func (e *Emitter) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.signal()
}

func (e *Emitter) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Run dispatches queued passes until Close.
func (e *Emitter) Run() error {
	for {
		e.mu.Lock()
		var pass []Event
		if len(e.queue) > 0 {
			pass = e.queue[0]
			e.queue = e.queue[1:]
		}
		closed := e.closed
		e.mu.Unlock()

		if pass == nil {
			if closed {
				return nil
			}
			<-e.wake
			continue
		}
		e.dispatch(pass)
	}
}

func (e *Emitter) dispatch(pass []Event) {
	for _, ev := range pass {
		if ev.Op != nil {
			e.listMu.Lock()
			next, err := diff.Apply(e.list, []diff.Op[view.Item]{*ev.Op})
			if err == nil {
				e.list = next
			}
			e.listMu.Unlock()
			if err != nil {
				e.log.Error("apply operation", "op", ev.Op.String(), "error", err)
			}
		}

		e.subMu.Lock()
		subs := slices.Clone(e.subs)
		e.subMu.Unlock()
		for _, s := range subs {
			s.fn(ev)
		}
	}
}

// Snapshot returns a copy of the list.
func (e *Emitter) Snapshot() []view.Item {
	e.listMu.RLock()
	defer e.listMu.RUnlock()
	return slices.Clone(e.list)
}
