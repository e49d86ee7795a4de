package model

import "time"

// State is the lifecycle state of a time entry.
type State string

const (
	StateNew      State = "new"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

// Entry represents a single tracked time entry.
type Entry struct {
	ID              string     `json:"id" yaml:"id"`
	ExternalID      string     `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Project         string     `json:"project" yaml:"project"`
	Task            *string    `json:"task" yaml:"task"`
	Description     *string    `json:"description" yaml:"description"`
	Tags            []string   `json:"tags" yaml:"tags"`
	Start           time.Time  `json:"start" yaml:"start"`
	End             *time.Time `json:"end" yaml:"end"`
	DurationSeconds *int64     `json:"duration_seconds" yaml:"duration_seconds"`
	State           State      `json:"state" yaml:"state"`
	Source          string     `json:"source" yaml:"source"`
}

// EffectiveState returns the entry state, deriving it from End for entries
// written before the state field existed.
func (e Entry) EffectiveState() State {
	if e.State != "" {
		return e.State
	}
	if e.End == nil {
		return StateRunning
	}
	return StateFinished
}

// IsRunning reports whether the entry is still being tracked.
func (e Entry) IsRunning() bool {
	return e.EffectiveState() == StateRunning
}

// TaskName returns the task or "" when unset.
func (e Entry) TaskName() string {
	if e.Task == nil {
		return ""
	}
	return *e.Task
}

// Duration returns the tracked duration. Running entries count up to now.
func (e Entry) Duration(now time.Time) time.Duration {
	if e.End != nil {
		return e.End.Sub(e.Start)
	}
	if !e.IsRunning() {
		return 0
	}
	if d := now.Sub(e.Start); d > 0 {
		return d
	}
	return 0
}

// Stopped returns a copy of e closed at the given time.
func (e Entry) Stopped(at time.Time) Entry {
	end := at
	dur := int64(at.Sub(e.Start).Seconds())
	e.End = &end
	e.DurationSeconds = &dur
	e.State = StateFinished
	return e
}

// Equal reports whether two snapshots carry the same content.
func (e Entry) Equal(o Entry) bool {
	if e.ID != o.ID || e.ExternalID != o.ExternalID || e.Project != o.Project ||
		e.State != o.State || e.Source != o.Source {
		return false
	}
	if !equalString(e.Task, o.Task) || !equalString(e.Description, o.Description) {
		return false
	}
	if !e.Start.Equal(o.Start) || !equalTime(e.End, o.End) {
		return false
	}
	if (e.DurationSeconds == nil) != (o.DurationSeconds == nil) ||
		(e.DurationSeconds != nil && *e.DurationSeconds != *o.DurationSeconds) {
		return false
	}
	if len(e.Tags) != len(o.Tags) {
		return false
	}
	for i := range e.Tags {
		if e.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// DayFile is the top-level structure stored in each daily JSON file.
type DayFile struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}
