package cmd

import (
	"testing"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{30, "30s"},
		{59, "59s"},
		{60, "1m 0s"},
		{90, "1m 30s"},
		{3600, "1h 0m 0s"},
		{3661, "1h 1m 1s"},
		{7322, "2h 2m 2s"},
	}
	for _, tt := range tests {
		got := formatElapsed(tt.seconds)
		if got != tt.want {
			t.Errorf("formatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestStopEntrySameDay(t *testing.T) {
	store := storage.NewFiles(t.TempDir())
	desc := "draft"
	running := model.Entry{ID: "r", Project: "ECM", Description: &desc, Start: day.Add(9 * time.Hour), State: model.StateRunning}
	if err := store.UpdateEntry(running); err != nil {
		t.Fatal(err)
	}

	stopped, err := stopEntry(store, running, day.Add(10*time.Hour), "done")
	if err != nil {
		t.Fatalf("stopEntry: %v", err)
	}
	if stopped.IsRunning() || *stopped.DurationSeconds != 3600 {
		t.Errorf("stopped = %+v, want finished after 1h", stopped)
	}
	if *stopped.Description != "draft\ndone" {
		t.Errorf("Description = %q, want note appended", *stopped.Description)
	}

	got, err := store.FindEntry("r", day, day)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(stopped) {
		t.Errorf("stored %+v, want %+v", got, stopped)
	}
}

func TestStopEntryAcrossMidnight(t *testing.T) {
	store := storage.NewFiles(t.TempDir())
	running := model.Entry{ID: "r", Project: "ECM", Start: day.Add(-2 * time.Hour), State: model.StateRunning}
	if err := store.UpdateEntry(running); err != nil {
		t.Fatal(err)
	}

	second, err := stopEntry(store, running, day.Add(90*time.Minute), "")
	if err != nil {
		t.Fatalf("stopEntry: %v", err)
	}
	if !second.Start.Equal(day) || *second.DurationSeconds != 5400 {
		t.Errorf("second part = %+v, want 00:00 for 1h30m", second)
	}

	entries, err := store.LoadRange(day.AddDate(0, 0, -1), day)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0]
	if first.ID != "r" || first.IsRunning() || first.End.Day() != 26 || first.End.Hour() != 23 {
		t.Errorf("first part = %+v, want r ending 23:59:59 on the 26th", first)
	}
}
