package buffer_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Tiliavir/ttt-timeline/internal/buffer"
	"github.com/Tiliavir/ttt-timeline/internal/clock"
	"github.com/Tiliavir/ttt-timeline/internal/model"
)

var epoch = time.Date(2015, 12, 14, 10, 0, 0, 0, time.UTC)

func put(id string) model.Message { return model.Put(model.Entry{ID: id}) }

func batchIDs(b []model.Message) []string {
	out := make([]string, len(b))
	for i, m := range b {
		out[i] = m.Entry.ID
	}
	return out
}

func receive(t *testing.T, out <-chan []model.Message) []model.Message {
	t.Helper()
	select {
	case b, ok := <-out:
		if !ok {
			t.Fatal("out closed")
		}
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no batch")
	}
	return nil
}

func TestZeroWindow(t *testing.T) {
	in := make(chan model.Message)
	out := make(chan []model.Message)
	stage := buffer.New(0, clock.Fake(epoch))

	done := make(chan error, 1)
	go func() { done <- stage.Run(context.Background(), in, out) }()

	in <- put("a")
	assert.Equal(t, batchIDs(receive(t, out)), []string{"a"})
	in <- put("b")
	assert.Equal(t, batchIDs(receive(t, out)), []string{"b"})

	close(in)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := <-out; ok {
		t.Error("out not closed")
	}
}

func TestWindowCoalesces(t *testing.T) {
	fake := clock.Fake(epoch)
	in := make(chan model.Message)
	out := make(chan []model.Message)
	stage := buffer.New(500*time.Millisecond, fake)

	go stage.Run(context.Background(), in, out)

	in <- put("a")
	fake.WaitForTimers(1)
	in <- put("b")
	in <- put("c")

	select {
	case b := <-out:
		t.Fatalf("batch %v delivered before the window closed", batchIDs(b))
	default:
	}

	fake.Advance(500 * time.Millisecond)
	assert.Equal(t, batchIDs(receive(t, out)), []string{"a", "b", "c"})

	// The next message opens a new window.
	in <- put("d")
	fake.WaitForTimers(1)
	fake.Advance(500 * time.Millisecond)
	assert.Equal(t, batchIDs(receive(t, out)), []string{"d"})
	close(in)
}

func TestCloseFlushesPartialBatch(t *testing.T) {
	fake := clock.Fake(epoch)
	in := make(chan model.Message)
	out := make(chan []model.Message, 1)
	stage := buffer.New(time.Second, fake)

	done := make(chan error, 1)
	go func() { done <- stage.Run(context.Background(), in, out) }()

	in <- put("a")
	close(in)

	assert.Equal(t, batchIDs(receive(t, out)), []string{"a"})
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan model.Message)
	out := make(chan []model.Message)

	done := make(chan error, 1)
	go func() { done <- buffer.New(time.Second, clock.Fake(epoch)).Run(ctx, in, out) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
