package view_test

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

var dt = time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)

func finished(id string, start time.Time, d time.Duration) model.Entry {
	end := start.Add(d)
	return model.Entry{ID: id, Start: start, End: &end, State: model.StateFinished}
}

func labels(items []view.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.String()
	}
	return out
}

func TestMaterializeOrder(t *testing.T) {
	holders := []holder.Holder{
		holder.Single(finished("a", dt, time.Hour)),
		holder.Single(finished("b", dt.AddDate(0, 0, -1), time.Hour)),
		holder.Single(finished("c", dt.Add(time.Hour), 30*time.Minute)),
		holder.Single(finished("d", dt.AddDate(0, 0, 1), time.Minute)),
	}

	got := labels(view.Materialize(holders))
	want := []string{
		"header(2015-12-15 1m0s)",
		"single(d)",
		"header(2015-12-14 1h30m0s)",
		"single(c)",
		"single(a)",
		"header(2015-12-13 1h0m0s)",
		"single(b)",
	}
	assert.Equal(t, got, want)
}

func TestMaterializeStableTies(t *testing.T) {
	holders := []holder.Holder{
		holder.Single(finished("first", dt, time.Minute)),
		holder.Single(finished("second", dt, time.Minute)),
	}
	got := labels(view.Materialize(holders))
	assert.Equal(t, got, []string{"header(2015-12-14 2m0s)", "single(first)", "single(second)"})
}

func TestHeaderAggregates(t *testing.T) {
	running := model.Entry{ID: "r", Start: dt.Add(2 * time.Hour), State: model.StateRunning}
	holders := []holder.Holder{
		holder.Group(finished("a", dt, time.Hour), finished("b", dt.Add(time.Hour), 15*time.Minute)),
		holder.Single(running),
	}
	now := dt.Add(2*time.Hour + 10*time.Minute)

	items := view.Materialize(holders)
	assert.Equal(t, len(items), 3)

	header := items[0].Header()
	assert.Equal(t, items[0].IsHeader(), true)
	assert.Equal(t, header.Running, true)
	assert.Equal(t, header.Finished, time.Hour+15*time.Minute)
	assert.Equal(t, header.RunningSince, []time.Time{running.Start})

	var sum time.Duration
	for _, it := range items[1:] {
		sum += it.Holder().Duration(now)
	}
	assert.Equal(t, header.Duration(now), sum)
	assert.Equal(t, header.Duration(now), time.Hour+25*time.Minute)
	assert.Equal(t, header.Duration(dt), time.Hour+15*time.Minute)
}

func TestRunningHeaderIsStable(t *testing.T) {
	running := model.Entry{ID: "r", Start: dt, State: model.StateRunning}
	first := view.Materialize([]holder.Holder{holder.Single(running)})
	second := view.Materialize([]holder.Holder{holder.Single(running)})
	assert.Equal(t, first[0].Equal(second[0]), true)
	assert.Equal(t, first[0].String(), "header(2015-12-14 0s running)")

	moved := running
	moved.Start = dt.Add(time.Minute)
	third := view.Materialize([]holder.Holder{holder.Single(moved)})
	assert.Equal(t, first[0].Equal(third[0]), false)
}

func TestMaterializeIsPure(t *testing.T) {
	holders := []holder.Holder{
		holder.Single(finished("a", dt, time.Hour)),
		holder.Single(finished("b", dt.Add(time.Hour), time.Hour)),
	}
	first := view.Materialize(holders)
	second := view.Materialize(holders)

	assert.Equal(t, len(first), len(second))
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("item %d differs: %v vs %v", i, first[i], second[i])
		}
	}
	assert.Equal(t, holders[0].ID(), "a")
}

func TestKeys(t *testing.T) {
	g := holder.Group(finished("a", dt, time.Hour), finished("b", dt.Add(time.Hour), time.Hour))
	items := view.Materialize([]holder.Holder{g})

	assert.Equal(t, items[0].Keys(), []string{"d:2015-12-14"})
	assert.Equal(t, items[1].Keys(), []string{"e:b", "e:a"})
}

func TestEmpty(t *testing.T) {
	assert.Equal(t, len(view.Materialize(nil)), 0)
}
