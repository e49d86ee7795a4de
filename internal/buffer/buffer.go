// Package buffer coalesces bursts of feed messages into batches.
package buffer

import (
	"context"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

// Stage collects messages arriving within a window into one batch. The window
// opens with the first message of a batch. A zero window makes every message
// its own batch.
type Stage struct {
	window time.Duration
	clock  clock.Clock
}

// New returns a Stage with the given window.
func New(window time.Duration, c clock.Clock) *Stage {
	if c == nil {
		c = clock.Real()
	}
	return &Stage{window: window, clock: c}
}

// Run forwards batches from in to out until in is closed or ctx is done.
// Messages keep their arrival order. A partial batch is flushed when in is
// closed. out is closed on return.
func (s *Stage) Run(ctx context.Context, in <-chan model.Message, out chan<- []model.Message) error {
	defer close(out)

	var (
		batch  []model.Message
		expire <-chan time.Time
	)
	send := func() bool {
		if len(batch) == 0 {
			return true
		}
		select {
		case out <- batch:
			batch, expire = nil, nil
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-in:
			if !ok {
				send()
				return nil
			}
			batch = append(batch, m)
			if s.window <= 0 {
				if !send() {
					return nil
				}
				continue
			}
			if expire == nil {
				expire = s.clock.After(s.window)
			}
		case <-expire:
			if !send() {
				return nil
			}
		}
	}
}
