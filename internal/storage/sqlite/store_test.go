package sqlite_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/storage/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ttt.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlite.Open("  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestUpdateAndLoadRange(t *testing.T) {
	store := openStore(t)
	day := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)

	task := "review"
	end := day.Add(90 * time.Minute)
	dur := int64(5400)
	e := model.Entry{
		ID:              "e1",
		Project:         "ECM",
		Task:            &task,
		Tags:            []string{"a", "b"},
		Start:           day,
		End:             &end,
		DurationSeconds: &dur,
		State:           model.StateFinished,
		Source:          "manual",
	}
	if err := store.UpdateEntry(e); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if err := store.UpdateEntry(model.Entry{ID: "other", Start: day.AddDate(0, 0, 1)}); err != nil {
		t.Fatal(err)
	}

	entries, err := store.LoadRange(day, day)
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Equal(e), true)
	assert.Equal(t, entries[0].Description == nil, true)

	desc := "edited"
	e.Description = &desc
	if err := store.UpdateEntry(e); err != nil {
		t.Fatal(err)
	}
	got, err := store.FindEntry("e1", day, day)
	if err != nil {
		t.Fatalf("FindEntry: %v", err)
	}
	assert.Equal(t, *got.Description, "edited")
}

func TestDeleteEntry(t *testing.T) {
	store := openStore(t)
	e := model.Entry{ID: "e1", Start: time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)}
	if err := store.UpdateEntry(e); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteEntry(e); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := store.DeleteEntry(e); err != nil {
		t.Fatalf("DeleteEntry on a missing entry: %v", err)
	}

	_, err := store.FindEntry("e1", e.Start, e.Start)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindActiveEntry(t *testing.T) {
	store := openStore(t)
	now := time.Now()

	active, err := store.FindActiveEntry(now)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatal("expected no active entry")
	}

	end := now.Add(-2 * time.Hour)
	done := model.Entry{ID: "done", Start: now.Add(-3 * time.Hour), End: &end, State: model.StateFinished}
	running := model.Entry{ID: "running", Start: now.Add(-time.Hour), State: model.StateRunning}
	for _, e := range []model.Entry{done, running} {
		if err := store.UpdateEntry(e); err != nil {
			t.Fatal(err)
		}
	}

	active, err = store.FindActiveEntry(now)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != "running" {
		t.Fatalf("active = %v, want running", active)
	}
}
