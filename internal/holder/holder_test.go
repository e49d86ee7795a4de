package holder_test

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

func entry(id string, start time.Time, task, project string) model.Entry {
	end := start.Add(time.Minute)
	return model.Entry{
		ID:      id,
		Project: project,
		Task:    &task,
		Start:   start,
		End:     &end,
		State:   model.StateFinished,
	}
}

var dt = time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)

func TestNewUngrouped(t *testing.T) {
	e := entry("e1", dt, "A", "P")
	h := holder.New(false, e, nil)

	assert.Equal(t, h.Kind(), holder.KindSingle)
	assert.Equal(t, h.ID(), "e1")
	assert.Equal(t, h.Duration(dt), time.Minute)
	assert.Equal(t, h.AffectedByPut(entry("e1", dt.AddDate(0, 0, -1), "B", "Q")), true)
	assert.Equal(t, h.AffectedByPut(entry("e2", dt, "A", "P")), false)
}

func TestNewGroupedMerges(t *testing.T) {
	e1 := entry("e1", dt, "A", "P")
	e2 := entry("e2", dt.Add(2*time.Hour), "A", "P")

	g := holder.New(true, e1, nil)
	assert.Equal(t, g.Kind(), holder.KindGroup)

	g = holder.New(true, e2, &g)
	assert.Equal(t, g.IDs(), []string{"e2", "e1"})
	assert.Equal(t, g.Start(), e2.Start)
	assert.Equal(t, g.Duration(dt), 2*time.Minute)

	// Replacing a member keeps the group size.
	moved := e1
	moved.Start = dt.Add(3 * time.Hour)
	g = holder.New(true, moved, &g)
	assert.Equal(t, g.IDs(), []string{"e1", "e2"})
}

func TestGroupAffectedByKey(t *testing.T) {
	g := holder.Group(entry("e1", dt, "A", "P"))

	tests := []struct {
		name  string
		entry model.Entry
		want  bool
	}{
		{"same key", entry("e2", dt.Add(time.Hour), "A", "P"), true},
		{"other task", entry("e2", dt, "B", "P"), false},
		{"other project", entry("e2", dt, "A", "Q"), false},
		{"other day", entry("e2", dt.AddDate(0, 0, 1), "A", "P"), false},
	}
	for _, tt := range tests {
		if got := g.AffectedByPut(tt.entry); got != tt.want {
			t.Errorf("%s: AffectedByPut = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWithoutKeepsSizeOneGroup(t *testing.T) {
	e1 := entry("e1", dt, "A", "P")
	e2 := entry("e2", dt.Add(time.Hour), "A", "P")
	g := holder.Group(e1, e2)

	rest, ok := g.Without("e2")
	assert.Equal(t, ok, true)
	assert.Equal(t, rest.Kind(), holder.KindGroup)
	assert.Equal(t, rest.Duration(dt), e1.Duration(dt))
	assert.Equal(t, rest.Start(), e1.Start)

	_, ok = rest.Without("e1")
	assert.Equal(t, ok, false)

	_, ok = holder.Single(e1).Without("e1")
	assert.Equal(t, ok, false)
}

func TestRunning(t *testing.T) {
	running := model.Entry{ID: "r", Start: dt, State: model.StateRunning}
	g := holder.Group(entry("e1", dt.Add(-time.Hour), "", ""), running)

	assert.Equal(t, g.Running(), true)
	assert.Equal(t, g.Duration(dt.Add(30*time.Minute)), 31*time.Minute)
	assert.Equal(t, holder.Single(entry("e1", dt, "", "")).Running(), false)
}

func TestEqual(t *testing.T) {
	a := holder.Group(entry("e1", dt, "A", "P"))
	b := holder.Group(entry("e1", dt, "A", "P"))
	assert.Equal(t, a.Equal(b), true)

	c := holder.Single(entry("e1", dt, "A", "P"))
	assert.Equal(t, a.Equal(c), false)

	d := holder.Group(entry("e1", dt.Add(time.Minute), "A", "P"))
	assert.Equal(t, a.Equal(d), false)
}
