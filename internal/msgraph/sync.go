package msgraph

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

// SourceOutlook marks entries imported from the calendar.
const SourceOutlook = "outlook"

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Updated  int
	Errors   int
	// Changes holds a put message for every imported or updated entry, in
	// event order.
	Changes []model.Message
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	DryRun  bool
	Project string
	// Timezone is the IANA zone of zone-less Graph times. Empty = UTC.
	Timezone string
	// Out receives one progress line per event. Nil discards them.
	Out    io.Writer
	Logger *slog.Logger
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, dt); err == nil {
			return t, nil
		}
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// buildDescription combines bodyPreview and location.
func buildDescription(event CalendarEvent) *string {
	parts := []string{}
	if event.BodyPreview != "" {
		parts = append(parts, event.BodyPreview)
	}
	if event.Location.DisplayName != "" {
		parts = append(parts, event.Location.DisplayName)
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, "\n")
	return &s
}

// ShouldSkip reports whether the event is not tracked time: cancelled,
// all-day, private, shown as free, or missing a start or end.
func ShouldSkip(event CalendarEvent) bool {
	switch {
	case event.IsCancelled, event.IsAllDay:
		return true
	case event.Sensitivity == "private", event.ShowAs == "free":
		return true
	case event.Start.DateTime == "", event.End.DateTime == "":
		return true
	}
	return false
}

// MapEventToEntry converts a Graph CalendarEvent into a finished entry.
func MapEventToEntry(event CalendarEvent, timezone, project string) (model.Entry, error) {
	startTime, err := parseGraphTime(event.Start.DateTime, timezone)
	if err != nil {
		return model.Entry{}, fmt.Errorf("parsing start time: %w", err)
	}
	endTime, err := parseGraphTime(event.End.DateTime, timezone)
	if err != nil {
		return model.Entry{}, fmt.Errorf("parsing end time: %w", err)
	}

	dur := int64(endTime.Sub(startTime).Seconds())
	subject := event.Subject
	return model.Entry{
		ID:              timecalc.GenerateID(startTime),
		ExternalID:      event.ID,
		Project:         project,
		Task:            &subject,
		Description:     buildDescription(event),
		Tags:            []string{SourceOutlook},
		Start:           startTime,
		End:             &endTime,
		DurationSeconds: &dur,
		State:           model.StateFinished,
		Source:          SourceOutlook,
	}, nil
}

// Messages maps events to put messages without touching a store. Skipped
// events are left out; an event that cannot be mapped becomes a message
// carrying the error.
func Messages(events []CalendarEvent, timezone, project string) []model.Message {
	var msgs []model.Message
	for _, event := range events {
		if ShouldSkip(event) {
			continue
		}
		entry, err := MapEventToEntry(event, timezone, project)
		if err != nil {
			msgs = append(msgs, model.Message{Err: fmt.Errorf("event %q: %w", event.Subject, err)})
			continue
		}
		msgs = append(msgs, model.Put(entry))
	}
	return msgs
}

// findByExternalID searches loaded entries for one with the given external_id.
func findByExternalID(entries []model.Entry, externalID string) *model.Entry {
	for i := range entries {
		if entries[i].ExternalID == externalID {
			return &entries[i]
		}
	}
	return nil
}

// sameEvent reports whether an imported entry still matches the event. Only
// the calendar-owned fields count, so local edits to project or tags survive.
func sameEvent(stored, fresh model.Entry) bool {
	return stored.TaskName() == fresh.TaskName() &&
		stored.Start.Equal(fresh.Start) &&
		stored.End != nil && fresh.End != nil && stored.End.Equal(*fresh.End)
}

// Sync persists events to store. An event already imported, found by its
// external id on the day it starts, is updated in place and keeps its entry
// id, so repeated syncs do not duplicate entries.
func Sync(store storage.Store, events []CalendarEvent, opts SyncOptions) SyncResult {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var result SyncResult
	for _, msg := range Messages(events, opts.Timezone, opts.Project) {
		if msg.Err != nil {
			fmt.Fprintf(out, "  ! Error mapping %v\n", msg.Err)
			log.Warn("mapping event", "error", msg.Err)
			result.Errors++
			continue
		}
		entry := msg.Entry
		subject := entry.TaskName()

		existing, err := store.LoadRange(entry.Start, entry.Start)
		if err != nil {
			fmt.Fprintf(out, "  ! Error loading day for %q: %v\n", subject, err)
			log.Warn("loading day", "external_id", entry.ExternalID, "error", err)
			result.Errors++
			continue
		}

		verb := "Imported"
		if found := findByExternalID(existing, entry.ExternalID); found != nil {
			if sameEvent(*found, entry) {
				fmt.Fprintf(out, "  – Skipped:  %s (already exists)\n", subject)
				result.Skipped++
				continue
			}
			entry.ID = found.ID
			verb = "Updated"
		}

		if !opts.DryRun {
			if err := store.UpdateEntry(entry); err != nil {
				fmt.Fprintf(out, "  ! Error saving %q: %v\n", subject, err)
				log.Warn("saving entry", "entry_id", entry.ID, "error", err)
				result.Errors++
				continue
			}
		}

		dur := ""
		if entry.DurationSeconds != nil {
			dur = fmt.Sprintf(" (%s)", timecalc.FormatDuration(*entry.DurationSeconds))
		}
		if verb == "Updated" {
			fmt.Fprintf(out, "  ↑ Updated:  %s%s\n", subject, dur)
			result.Updated++
		} else {
			fmt.Fprintf(out, "  ✓ Imported: %s%s\n", subject, dur)
			result.Imported++
		}
		result.Changes = append(result.Changes, model.Put(entry))
	}
	return result
}
