// Package undo implements soft deletion with a grace period during which the
// removal can be reverted.
package undo

import (
	"slices"
	"sync"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

// DefaultGracePeriod is how long a removal can be undone.
const DefaultGracePeriod = 6 * time.Second

// Effects receives the side effects of the manager. Methods are called with
// the manager locked and must not block or call back into the manager.
type Effects interface {
	// StopEntry persists a running entry stopped at removal time.
	StopEntry(e model.Entry)
	// RemoveFromView hides entries without deleting them.
	RemoveFromView(entries []model.Entry)
	// RemovePermanently deletes entries from the store.
	RemovePermanently(entries []model.Entry)
	// Restore puts hidden entries back.
	Restore(entries []model.Entry)
}

// Manager tracks at most one pending removal.
type Manager struct {
	effects Effects
	clock   clock.Clock
	grace   time.Duration

	mu       sync.Mutex
	pending  []model.Entry
	deadline time.Time
	timer    *clock.Timer
	gen      uint64
}

// New returns an idle Manager. A non-positive grace finalizes removals
// immediately.
func New(effects Effects, c clock.Clock, grace time.Duration) *Manager {
	if c == nil {
		c = clock.Real()
	}
	return &Manager{effects: effects, clock: c, grace: grace}
}

// RemoveWithUndo hides h and arms the finalize timer. A removal that is
// still pending is finalized first.
func (m *Manager) RemoveWithUndo(h holder.Holder) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finalizeLocked()

	now := m.clock.Now()
	entries := h.Entries()
	for i, e := range entries {
		if e.IsRunning() {
			entries[i] = e.Stopped(now)
			m.effects.StopEntry(entries[i])
		}
	}
	m.effects.RemoveFromView(entries)

	if m.grace <= 0 {
		m.effects.RemovePermanently(entries)
		return
	}

	m.gen++
	gen := m.gen
	m.pending = entries
	m.deadline = now.Add(m.grace)
	m.timer = m.clock.AfterFunc(m.grace, func() { m.expire(gen) })
}

// RestoreFromUndo puts the pending entries back and cancels the timer. It
// reports false when nothing was pending.
func (m *Manager) RestoreFromUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return false
	}
	entries := m.pending
	m.resetLocked()
	m.effects.Restore(entries)
	return true
}

// Pending returns the entries awaiting permanent deletion and the deadline.
func (m *Manager) Pending() ([]model.Entry, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return nil, time.Time{}, false
	}
	out := make([]model.Entry, len(m.pending))
	copy(out, m.pending)
	return out, m.deadline, true
}

// Refresh replaces the pending snapshot of e, matched by id, so a restore
// or the final delete uses the latest content. It reports whether e was
// pending.
func (m *Manager) Refresh(e model.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.pending, func(p model.Entry) bool { return p.ID == e.ID })
	if i < 0 {
		return false
	}
	// The old slice may still be queued with the hide effect.
	m.pending = slices.Clone(m.pending)
	m.pending[i] = e
	return true
}

// Flush finalizes a pending removal now.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizeLocked()
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Restored, flushed or superseded since the timer was armed.
	if gen != m.gen || m.pending == nil {
		return
	}
	m.finalizeLocked()
}

func (m *Manager) finalizeLocked() {
	if m.pending == nil {
		return
	}
	entries := m.pending
	m.resetLocked()
	m.effects.RemovePermanently(entries)
}

func (m *Manager) resetLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	m.pending = nil
	m.timer = nil
	m.deadline = time.Time{}
}
