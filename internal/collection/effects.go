package collection

import (
	"errors"
	"fmt"

	"github.com/Tiliavir/ttt-timeline/internal/model"
)

type effectKind int

const (
	effectStop effectKind = iota
	effectHide
	effectDelete
	effectRestore
)

type effect struct {
	kind    effectKind
	entries []model.Entry
}

// effects queues undo side effects for the pipeline goroutine. It never
// blocks, so it is safe to call with the undo manager locked.
type effects struct {
	c *Collection
}

func (f effects) StopEntry(e model.Entry) {
	f.c.enqueue(effect{kind: effectStop, entries: []model.Entry{e}})
}

func (f effects) RemoveFromView(entries []model.Entry) {
	f.c.enqueue(effect{kind: effectHide, entries: entries})
}

func (f effects) RemovePermanently(entries []model.Entry) {
	f.c.enqueue(effect{kind: effectDelete, entries: entries})
}

func (f effects) Restore(entries []model.Entry) {
	f.c.enqueue(effect{kind: effectRestore, entries: entries})
}

func (c *Collection) enqueue(e effect) {
	c.outMu.Lock()
	c.outbox = append(c.outbox, e)
	c.outMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// drainEffects turns queued effects into one batch of messages, running the
// store side of each effect on the way. Store failures are returned joined;
// the view messages are produced regardless.
func (c *Collection) drainEffects() ([]model.Message, error) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()

	c.outMu.Lock()
	queued := c.outbox
	c.outbox = nil
	c.outMu.Unlock()

	var (
		msgs []model.Message
		errs []error
	)
	for _, ef := range queued {
		for _, e := range ef.entries {
			switch ef.kind {
			case effectStop:
				if err := c.storeUpdate(e); err != nil {
					errs = append(errs, err)
				}
				msgs = append(msgs, model.Put(e))
			case effectHide:
				c.hidden[e.ID] = true
				msgs = append(msgs, model.Delete(e))
			case effectDelete:
				delete(c.hidden, e.ID)
				if err := c.storeDelete(e); err != nil {
					errs = append(errs, err)
				}
				msgs = append(msgs, model.Delete(e))
			case effectRestore:
				delete(c.hidden, e.ID)
				msgs = append(msgs, model.Put(e))
			}
		}
	}
	return msgs, errors.Join(errs...)
}

func (c *Collection) storeUpdate(e model.Entry) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.UpdateEntry(e); err != nil {
		c.log.Error("stop entry", "entry_id", e.ID, "error", err)
		return fmt.Errorf("stop entry %s: %w", e.ID, err)
	}
	return nil
}

func (c *Collection) storeDelete(e model.Entry) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.DeleteEntry(e); err != nil {
		c.log.Error("delete entry", "entry_id", e.ID, "error", err)
		return fmt.Errorf("delete entry %s: %w", e.ID, err)
	}
	return nil
}
