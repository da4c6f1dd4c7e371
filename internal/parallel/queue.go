package parallel

import "sync"

// Queue is an unbounded FIFO queue guarded by a mutex and a condition
// variable. Consumers block in Pop until an item is available or the queue
// is shut down.
//
// A queue is shut down in one of two ways:
//   - Close stops intake; Pop keeps returning queued items until the queue
//     is empty.
//   - Abort stops intake and discards queued items; Pop returns immediately.
//
// The shutdown flag is set under the queue lock and followed by a broadcast,
// so a consumer can never miss it between checking and waiting.
//
// Thread safety: Queue is safe for concurrent use.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item. It returns false if the queue is shut down.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// PushAll appends items in order under a single lock acquisition and wakes
// all consumers once. It returns false if the queue is shut down.
func (q *Queue[T]) PushAll(items []T) bool {
	if len(items) == 0 {
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, items...)
	q.cond.Broadcast()
	return true
}

// Pop removes and returns the oldest item, blocking until one is available.
// It returns false once the queue is shut down and has nothing left to hand out.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Close stops intake and lets consumers drain the remaining items.
// Close is safe to call multiple times.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Abort stops intake, discards queued items and returns how many were
// discarded. Abort is safe to call multiple times.
func (q *Queue[T]) Abort() int {
	q.mu.Lock()
	n := len(q.items)
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	q.cond.Broadcast()
	return n
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
