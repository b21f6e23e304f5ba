// Package queue implements the unbounded FIFO queue shared by every
// producer/consumer boundary in the pipeline: the multi-producer
// ingress queue and each single-producer consumer-private queue.
//
// Design:
//   - Backed by a growable slice (appended on Put, resliced on Get)
//     rather than a fixed-size, pre-allocated disruptor-style ring buffer,
//     because a writer must never block: a fixed-size ring either blocks
//     or drops on overflow, and this queue's contract is unbounded.
//   - A single mutex plus a condition variable guards the buffer; this
//     is simpler than the lock-free, CAS-based disruptor ring buffer
//     used for the matching engine's hot path, which is appropriate
//     here because the consumer side of this queue is explicitly
//     allowed to be non-blocking (TryPut) and producers are not on a
//     latency-critical hot path the way a matching engine is.
//   - There is no Close: a blocked Get is released by cancelling its
//     context, and buffered items stay retrievable through TryGet or
//     DrainAll, so a drain loop can still retrieve what is already queued.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded, goroutine-safe FIFO.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []any
	closed bool
}

// New returns an empty Queue ready for use.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends an item, waking one blocked Get caller. Put
// never blocks: the backing slice grows as needed.
func (q *Queue) Put(item any) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryPut is semantically identical to Put for this unbounded queue: it
// always succeeds and returns true. It exists so call sites that enqueue
// into a queue whose capacity policy might later change (e.g. a bounded,
// drop-oldest consumer-private queue) have a single non-blocking entry
// point to call, per the delegator's "non-blocking put" contract.
func (q *Queue) TryPut(item any) bool {
	q.Put(item)
	return true
}

// Get blocks until an item is available or ctx is done. It returns
// (nil, false) if ctx is cancelled before an item arrives.
func (q *Queue) Get(ctx context.Context) (any, bool) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-done:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if ctx.Err() != nil {
			return nil, false
		}
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// TryGet returns the next item without blocking. ok is false if the
// queue is currently empty.
func (q *Queue) TryGet() (item any, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the number of buffered items, for metrics/diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DrainAll removes and returns every currently buffered item, in FIFO
// order, without blocking. Used by the delegator and consumers when
// draining on cancellation.
func (q *Queue) DrainAll() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
