// Package writer runs the background goroutine that persists new pipeline
// state entries in the order they were recorded.
package writer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/statecache/internal/parallel"
	"github.com/gogpu/statecache/state"
)

// Sink receives entries from the writer goroutine. *cachefile.Writer
// implements it.
type Sink interface {
	Append(state.Entry) error
}

// Stats is a snapshot of writer counters.
type Stats struct {
	Enqueued uint64 // accepted by Enqueue
	Written  uint64 // appended to the sink
	Failed   uint64 // rejected by the sink
	Dropped  uint64 // discarded because there is no sink
}

// Task owns one goroutine that pops entries from a FIFO queue and appends
// them to a Sink. Entries reach the sink in Enqueue order.
//
// Thread safety: Task is safe for concurrent use.
type Task struct {
	queue *parallel.Queue[state.Entry]
	sink  Sink
	log   *slog.Logger

	group     errgroup.Group
	closeOnce sync.Once

	enqueued atomic.Uint64
	written  atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// Start launches the writer goroutine. A nil sink gives a memory-only task
// that counts and drops every entry. A nil logger discards output.
func Start(sink Sink, log *slog.Logger) *Task {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	t := &Task{
		queue: parallel.NewQueue[state.Entry](),
		sink:  sink,
		log:   log,
	}
	t.group.Go(t.run)
	return t
}

func (t *Task) run() error {
	for {
		e, ok := t.queue.Pop()
		if !ok {
			return nil
		}
		if t.sink == nil {
			t.dropped.Add(1)
			continue
		}
		if err := t.sink.Append(e); err != nil {
			t.failed.Add(1)
			t.log.LogAttrs(context.Background(), slog.LevelWarn, "statecache: failed to write entry",
				slog.String("shaders", e.Shaders.String()),
				slog.Any("error", err))
			continue
		}
		t.written.Add(1)
	}
}

// Enqueue queues e for writing. It returns false after Close.
func (t *Task) Enqueue(e state.Entry) bool {
	if !t.queue.Push(e) {
		return false
	}
	t.enqueued.Add(1)
	return true
}

// Close stops intake, writes every queued entry and waits for the goroutine
// to exit. Close is safe to call multiple times.
func (t *Task) Close() {
	t.closeOnce.Do(func() {
		t.queue.Close()
		_ = t.group.Wait()
	})
}

// Pending returns the number of entries waiting to be written.
func (t *Task) Pending() int {
	return t.queue.Len()
}

// Stats returns current counters.
func (t *Task) Stats() Stats {
	return Stats{
		Enqueued: t.enqueued.Load(),
		Written:  t.written.Load(),
		Failed:   t.failed.Load(),
		Dropped:  t.dropped.Load(),
	}
}
