// Package holder defines the rows of the entry list: a single entry, or a
// group of same-day entries that share task and project.
package holder

import (
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

// Kind tags the holder variant.
type Kind int

const (
	KindSingle Kind = iota
	KindGroup
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "single"
}

// Key is the grouping key of an entry.
type Key struct {
	Task    string
	Project string
	Day     string
}

// KeyOf returns the grouping key of e.
func KeyOf(e model.Entry) Key {
	return Key{Task: e.TaskName(), Project: e.Project, Day: timecalc.DayKey(e.Start)}
}

// Holder is an immutable snapshot of one list row. Group members are kept
// sorted by start time, latest first; ties keep insertion order.
type Holder struct {
	kind    Kind
	entries []model.Entry
}

// Single wraps one entry.
func Single(e model.Entry) Holder {
	return Holder{kind: KindSingle, entries: []model.Entry{e}}
}

// Group builds a group holder from the given members.
func Group(entries ...model.Entry) Holder {
	members := make([]model.Entry, len(entries))
	copy(members, entries)
	sortMembers(members)
	return Holder{kind: KindGroup, entries: members}
}

// New creates the holder for e. With grouping enabled, e is merged into
// previous when given: it replaces the member with the same id, or joins the
// group otherwise.
func New(grouping bool, e model.Entry, previous *Holder) Holder {
	if !grouping {
		return Single(e)
	}
	if previous == nil {
		return Group(e)
	}
	return previous.with(e)
}

func (h Holder) with(e model.Entry) Holder {
	members := make([]model.Entry, 0, len(h.entries)+1)
	replaced := false
	for _, m := range h.entries {
		if m.ID == e.ID {
			members = append(members, e)
			replaced = true
			continue
		}
		members = append(members, m)
	}
	if !replaced {
		members = append(members, e)
	}
	sortMembers(members)
	return Holder{kind: KindGroup, entries: members}
}

func sortMembers(members []model.Entry) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Start.After(members[j].Start)
	})
}

// Kind returns the variant.
func (h Holder) Kind() Kind { return h.kind }

// Len returns the number of entries held.
func (h Holder) Len() int { return len(h.entries) }

// Entries returns a copy of the held entries.
func (h Holder) Entries() []model.Entry {
	out := make([]model.Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Entry returns the representative entry: the one that started last.
func (h Holder) Entry() model.Entry {
	if len(h.entries) == 0 {
		return model.Entry{}
	}
	return h.entries[0]
}

// ID returns the id of the representative entry.
func (h Holder) ID() string { return h.Entry().ID }

// IDs returns the ids of all held entries.
func (h Holder) IDs() []string {
	ids := make([]string, len(h.entries))
	for i, e := range h.entries {
		ids[i] = e.ID
	}
	return ids
}

// Contains reports whether the entry with id is held.
func (h Holder) Contains(id string) bool {
	for _, e := range h.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Start is the latest start time among the held entries.
func (h Holder) Start() time.Time { return h.Entry().Start }

// Day is the calendar day of Start.
func (h Holder) Day() time.Time { return timecalc.StartOfDay(h.Start()) }

// Key is the grouping key of the representative entry.
func (h Holder) Key() Key { return KeyOf(h.Entry()) }

// Duration sums the durations of the held entries.
func (h Holder) Duration(now time.Time) time.Duration {
	var total time.Duration
	for _, e := range h.entries {
		total += e.Duration(now)
	}
	return total
}

// Running reports whether any held entry is running.
func (h Holder) Running() bool {
	for _, e := range h.entries {
		if e.IsRunning() {
			return true
		}
	}
	return false
}

// AffectedByPut reports whether a put of e lands in this holder: the same
// entry for a single holder, the same grouping key for a group.
func (h Holder) AffectedByPut(e model.Entry) bool {
	if len(h.entries) == 0 {
		return false
	}
	if h.kind == KindGroup {
		return h.Key() == KeyOf(e)
	}
	return h.entries[0].ID == e.ID
}

// Without returns the holder minus the entry with id. The boolean is false
// when nothing is left. A group shrunk to one member stays a group.
func (h Holder) Without(id string) (Holder, bool) {
	members := make([]model.Entry, 0, len(h.entries))
	for _, e := range h.entries {
		if e.ID != id {
			members = append(members, e)
		}
	}
	if len(members) == 0 {
		return Holder{kind: h.kind}, false
	}
	return Holder{kind: h.kind, entries: members}, true
}

// Equal reports whether two holders have the same variant and content.
func (h Holder) Equal(o Holder) bool {
	if h.kind != o.kind || len(h.entries) != len(o.entries) {
		return false
	}
	for i := range h.entries {
		if !h.entries[i].Equal(o.entries[i]) {
			return false
		}
	}
	return true
}

func (h Holder) String() string {
	return h.kind.String() + "(" + strings.Join(h.IDs(), ",") + ")"
}
