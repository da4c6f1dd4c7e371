package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Worker sizing bounds.
const (
	// MinWorkers is the smallest pool WorkerCount returns.
	MinWorkers = 1

	// MaxWorkers caps the pool so background compilation never takes over
	// a large machine.
	MaxWorkers = 16
)

// WorkerCount returns the number of background workers for a machine with
// cpus logical CPUs: three quarters of them above 8 CPUs, half otherwise,
// clamped to [MinWorkers, MaxWorkers].
func WorkerCount(cpus int) int {
	var n int
	if cpus > 8 {
		n = cpus * 3 / 4
	} else {
		n = cpus / 2
	}
	return min(max(n, MinWorkers), MaxWorkers)
}

// DefaultWorkerCount applies WorkerCount to the CPUs usable by this process.
func DefaultWorkerCount() int {
	return WorkerCount(runtime.GOMAXPROCS(0))
}

// Pool is a fixed set of goroutines consuming items from a shared Queue.
//
// Each worker pops one item at a time and runs it to completion before
// popping the next. Items are started in FIFO order.
//
// Thread safety: Pool is safe for concurrent use.
type Pool[T any] struct {
	// workers is the number of worker goroutines.
	workers int

	queue *Queue[T]
	run   func(T)

	// group starts and joins the workers.
	group errgroup.Group

	stopOnce sync.Once
}

// NewPool creates a pool of workers goroutines calling run for every
// submitted item. If workers is 0 or negative, DefaultWorkerCount is used.
// The pool starts immediately and workers begin waiting for work.
func NewPool[T any](workers int, run func(T)) *Pool[T] {
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}

	p := &Pool[T]{
		workers: workers,
		queue:   NewQueue[T](),
		run:     run,
	}

	for range workers {
		p.group.Go(p.worker)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool[T]) worker() error {
	for {
		item, ok := p.queue.Pop()
		if !ok {
			return nil
		}
		p.run(item)
	}
}

// Submit queues items in order. It returns false if the pool is stopped.
func (p *Pool[T]) Submit(items ...T) bool {
	return p.queue.PushAll(items)
}

// Stop discards queued items, lets every worker finish its current item and
// waits for all workers to exit. It returns the number of discarded items.
// Stop is safe to call multiple times; later calls return 0.
func (p *Pool[T]) Stop() int {
	discarded := 0
	p.stopOnce.Do(func() {
		discarded = p.queue.Abort()
		_ = p.group.Wait()
	})
	return discarded
}

// Workers returns the number of workers in the pool.
func (p *Pool[T]) Workers() int {
	return p.workers
}

// Pending returns the number of items waiting for a worker.
func (p *Pool[T]) Pending() int {
	return p.queue.Len()
}
