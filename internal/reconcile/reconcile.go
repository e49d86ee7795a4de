// Package reconcile merges batches of feed messages into a holder set.
package reconcile

import (
	"slices"

	"github.com/Tiliavir/ttt-timeline/internal/holder"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

// Apply returns the holder set after applying msgs in order. The input slice
// is not modified. Messages carrying an error are skipped.
func Apply(holders []holder.Holder, msgs []model.Message, grouping bool) []holder.Holder {
	out := slices.Clone(holders)
	for _, m := range msgs {
		if m.Err != nil {
			continue
		}
		switch m.Action {
		case model.ActionPut:
			out = put(out, m.Entry, grouping)
		case model.ActionDelete:
			out = remove(out, m.Entry.ID)
		}
	}
	return out
}

func put(hs []holder.Holder, e model.Entry, grouping bool) []holder.Holder {
	if grouping {
		// The record changed task, project or day: it leaves its old group
		// before joining the matching one.
		for i, h := range hs {
			if h.Contains(e.ID) && !h.AffectedByPut(e) {
				hs = updateOrDelete(hs, i, e.ID)
				break
			}
		}
	}

	for i := range hs {
		if hs[i].AffectedByPut(e) {
			prev := hs[i]
			hs[i] = holder.New(grouping || prev.Kind() == holder.KindGroup, e, &prev)
			return hs
		}
	}
	return append(hs, holder.New(grouping, e, nil))
}

func remove(hs []holder.Holder, id string) []holder.Holder {
	for i, h := range hs {
		if h.Contains(id) {
			return updateOrDelete(hs, i, id)
		}
	}
	return hs
}

func updateOrDelete(hs []holder.Holder, i int, id string) []holder.Holder {
	rest, ok := hs[i].Without(id)
	if !ok {
		return slices.Delete(hs, i, i+1)
	}
	hs[i] = rest
	return hs
}
