// Package view materializes a holder set into the ordered rows of the entry
// list: one date header per day, followed by that day's holders.
package view

import (
	"fmt"
	"sort"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

// DateHeader summarizes one calendar day. Its fields do not depend on the
// time of materialization; Duration adds the running part when rendered.
type DateHeader struct {
	Date time.Time
	// Finished is the total of entries with a known duration.
	Finished time.Duration
	// RunningSince holds the start of each open running entry, earliest first.
	RunningSince []time.Time
	Running      bool
}

// Duration is the day total with open entries counted up to now.
func (h DateHeader) Duration(now time.Time) time.Duration {
	total := h.Finished
	for _, s := range h.RunningSince {
		if d := now.Sub(s); d > 0 {
			total += d
		}
	}
	return total
}

func (h DateHeader) equal(o DateHeader) bool {
	if !h.Date.Equal(o.Date) || h.Finished != o.Finished || h.Running != o.Running ||
		len(h.RunningSince) != len(o.RunningSince) {
		return false
	}
	for i := range h.RunningSince {
		if !h.RunningSince[i].Equal(o.RunningSince[i]) {
			return false
		}
	}
	return true
}

// Item is either a DateHeader or a Holder.
type Item struct {
	isHeader bool
	header   DateHeader
	holder   holder.Holder
}

// HeaderItem wraps a date header.
func HeaderItem(h DateHeader) Item {
	return Item{isHeader: true, header: h}
}

// HolderItem wraps a holder.
func HolderItem(h holder.Holder) Item {
	return Item{holder: h}
}

// IsHeader reports whether i is a date header.
func (i Item) IsHeader() bool { return i.isHeader }

// Header returns the date header; it is zero for holder items.
func (i Item) Header() DateHeader { return i.header }

// Holder returns the holder; it is zero for header items.
func (i Item) Holder() holder.Holder { return i.holder }

// Keys returns the identity keys of the item. Two items have the same
// identity when their keys intersect: headers by day, holders by any shared
// member id.
func (i Item) Keys() []string {
	if i.isHeader {
		return []string{"d:" + timecalc.DayKey(i.header.Date)}
	}
	ids := i.holder.IDs()
	keys := make([]string, len(ids))
	for n, id := range ids {
		keys[n] = "e:" + id
	}
	return keys
}

// Equal compares content.
func (i Item) Equal(o Item) bool {
	if i.isHeader != o.isHeader {
		return false
	}
	if i.isHeader {
		return i.header.equal(o.header)
	}
	return i.holder.Equal(o.holder)
}

func (i Item) String() string {
	if i.isHeader {
		if i.header.Running {
			return fmt.Sprintf("header(%s %s running)", timecalc.DayKey(i.header.Date), i.header.Finished)
		}
		return fmt.Sprintf("header(%s %s)", timecalc.DayKey(i.header.Date), i.header.Finished)
	}
	return i.holder.String()
}

type day struct {
	key     string
	date    time.Time
	holders []holder.Holder
}

// Materialize returns the list rows for holders. Days are in descending
// order, each led by its header; holders within a day are sorted by start,
// latest first, keeping input order on ties.
func Materialize(holders []holder.Holder) []Item {
	byKey := make(map[string]*day)
	var days []*day
	for _, h := range holders {
		k := timecalc.DayKey(h.Start())
		d, ok := byKey[k]
		if !ok {
			d = &day{key: k, date: h.Day()}
			byKey[k] = d
			days = append(days, d)
		}
		d.holders = append(d.holders, h)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].key > days[j].key })

	items := make([]Item, 0, len(holders)+len(days))
	for _, d := range days {
		sort.SliceStable(d.holders, func(i, j int) bool {
			return d.holders[i].Start().After(d.holders[j].Start())
		})

		header := DateHeader{Date: d.date}
		for _, h := range d.holders {
			for _, e := range h.Entries() {
				if e.End == nil && e.IsRunning() {
					header.RunningSince = append(header.RunningSince, e.Start)
					continue
				}
				header.Finished += e.Duration(time.Time{})
			}
			header.Running = header.Running || h.Running()
		}
		sort.Slice(header.RunningSince, func(i, j int) bool {
			return header.RunningSince[i].Before(header.RunningSince[j])
		})

		items = append(items, HeaderItem(header))
		for _, h := range d.holders {
			items = append(items, HolderItem(h))
		}
	}
	return items
}
