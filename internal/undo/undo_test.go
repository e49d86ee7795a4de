package undo_test

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/undo"
)

var epoch = time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)

// recorder logs effects as "kind:id,id".
type recorder struct {
	log     []string
	stopped []model.Entry
}

func ids(entries []model.Entry) string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return strings.Join(out, ",")
}

func (r *recorder) StopEntry(e model.Entry) {
	r.log = append(r.log, "stop:"+e.ID)
	r.stopped = append(r.stopped, e)
}

func (r *recorder) RemoveFromView(entries []model.Entry) {
	r.log = append(r.log, "hide:"+ids(entries))
}

func (r *recorder) RemovePermanently(entries []model.Entry) {
	r.log = append(r.log, "delete:"+ids(entries))
}

func (r *recorder) Restore(entries []model.Entry) {
	r.log = append(r.log, "restore:"+ids(entries))
}

func finished(id string) holder.Holder {
	end := epoch.Add(-time.Minute)
	return holder.Single(model.Entry{ID: id, Start: epoch.Add(-time.Hour), End: &end, State: model.StateFinished})
}

func TestGraceExpires(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	m.RemoveWithUndo(finished("a"))
	assert.Equal(t, rec.log, []string{"hide:a"})

	_, deadline, ok := m.Pending()
	assert.Equal(t, ok, true)
	assert.Equal(t, deadline, epoch.Add(6*time.Second))

	fake.Advance(5 * time.Second)
	assert.Equal(t, rec.log, []string{"hide:a"})

	fake.Advance(time.Second)
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a"})

	_, _, ok = m.Pending()
	assert.Equal(t, ok, false)
}

func TestRestoreCancelsTimer(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	m.RemoveWithUndo(finished("a"))
	assert.Equal(t, m.RestoreFromUndo(), true)
	assert.Equal(t, m.RestoreFromUndo(), false)

	fake.Advance(time.Minute)
	assert.Equal(t, rec.log, []string{"hide:a", "restore:a"})
	assert.Equal(t, fake.Pending(), 0)
}

func TestSupersede(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	m.RemoveWithUndo(finished("a"))
	fake.Advance(3 * time.Second)
	m.RemoveWithUndo(finished("b"))
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a", "hide:b"})

	// Only b's timer is live, armed at the second removal.
	fake.Advance(3 * time.Second)
	assert.Equal(t, len(rec.log), 3)
	fake.Advance(3 * time.Second)
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a", "hide:b", "delete:b"})
}

func TestRunningEntryIsStopped(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	running := model.Entry{ID: "r", Start: epoch.Add(-30 * time.Minute), State: model.StateRunning}
	m.RemoveWithUndo(holder.Single(running))

	assert.Equal(t, rec.log, []string{"stop:r", "hide:r"})
	assert.Equal(t, rec.stopped[0].IsRunning(), false)
	assert.Equal(t, *rec.stopped[0].End, epoch)

	pending, _, _ := m.Pending()
	assert.Equal(t, pending[0].IsRunning(), false)
}

func TestFlush(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	m.Flush()
	assert.Equal(t, len(rec.log), 0)

	m.RemoveWithUndo(finished("a"))
	m.Flush()
	fake.Advance(time.Minute)
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a"})
}

func TestStaleTimerIsNoop(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, time.Second)

	m.RemoveWithUndo(finished("a"))
	m.RestoreFromUndo()
	m.RemoveWithUndo(finished("a"))
	fake.Advance(time.Second)

	assert.Equal(t, rec.log, []string{"hide:a", "restore:a", "hide:a", "delete:a"})
}

func TestZeroGrace(t *testing.T) {
	rec := &recorder{}
	m := undo.New(rec, clock.Fake(epoch), 0)

	m.RemoveWithUndo(finished("a"))
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a"})
	assert.Equal(t, m.RestoreFromUndo(), false)
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	fake := clock.Fake(epoch)
	rec := &recorder{}
	m := undo.New(rec, fake, undo.DefaultGracePeriod)

	h := finished("a")
	m.RemoveWithUndo(h)

	moved := h.Entry()
	moved.Start = moved.Start.AddDate(0, 0, -1)
	assert.Equal(t, m.Refresh(moved), true)
	assert.Equal(t, m.Refresh(model.Entry{ID: "other"}), false)

	pending, _, _ := m.Pending()
	assert.Equal(t, pending[0].Start, moved.Start)

	m.Flush()
	assert.Equal(t, rec.log, []string{"hide:a", "delete:a"})
	assert.Equal(t, m.Refresh(moved), false)
}
