package model_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/model"
)

func TestEntryDuration(t *testing.T) {
	start := time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	now := start.Add(2 * time.Hour)

	tests := []struct {
		name  string
		entry model.Entry
		want  time.Duration
	}{
		{"finished", model.Entry{Start: start, End: &end, State: model.StateFinished}, 90 * time.Minute},
		{"running", model.Entry{Start: start, State: model.StateRunning}, 2 * time.Hour},
		{"legacy running", model.Entry{Start: start}, 2 * time.Hour},
		{"new", model.Entry{Start: start, State: model.StateNew}, 0},
		{"running in the future", model.Entry{Start: now.Add(time.Minute), State: model.StateRunning}, 0},
	}
	for _, tt := range tests {
		if got := tt.entry.Duration(now); got != tt.want {
			t.Errorf("%s: Duration = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEntryStopped(t *testing.T) {
	start := time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)
	running := model.Entry{ID: "e1", Start: start, State: model.StateRunning}

	stopped := running.Stopped(start.Add(time.Hour))
	if stopped.IsRunning() {
		t.Error("stopped entry still running")
	}
	if stopped.DurationSeconds == nil || *stopped.DurationSeconds != 3600 {
		t.Errorf("DurationSeconds = %v, want 3600", stopped.DurationSeconds)
	}
	if !running.IsRunning() {
		t.Error("Stopped must not modify the receiver")
	}
}

func TestEntryEqual(t *testing.T) {
	start := time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)
	task := "review"
	otherTask := "review"
	a := model.Entry{ID: "e1", Project: "P", Task: &task, Start: start, Tags: []string{"x"}}
	b := model.Entry{ID: "e1", Project: "P", Task: &otherTask, Start: start.In(time.FixedZone("CET", 3600)), Tags: []string{"x"}}

	if !a.Equal(b) {
		t.Error("expected equal content across pointers and zones")
	}

	b.Tags = []string{"y"}
	if a.Equal(b) {
		t.Error("expected tag difference to be detected")
	}

	c := a
	c.Task = nil
	if a.Equal(c) {
		t.Error("expected nil task to differ")
	}
}
