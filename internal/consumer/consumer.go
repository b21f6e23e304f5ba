// Package consumer implements the user-supplied message sink and the
// pipeline that supervises a set of them. A Consumer owns a private
// inbound queue and a Process callback; its default run loop drains
// that queue on cancellation before returning, unlike a Producer,
// which abandons any in-flight work on cancellation without draining.
package consumer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/queue"
)

// Status is a consumer's informational lifecycle state, mirroring
// producer.Status in shape but scoped to the consumer side.
type Status int

const (
	Staged Status = iota
	Running
	Draining
	Cancelled
	Errored
)

func (s Status) String() string {
	switch s {
	case Staged:
		return "STAGED"
	case Running:
		return "RUNNING"
	case Draining:
		return "DRAINING"
	case Cancelled:
		return "CANCELLED"
	case Errored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// ProcessFunc handles one envelope delivered to a consumer.
type ProcessFunc func(ctx context.Context, message map[string]any) error

// Consumer is a named sink with a private queue and a Process
// callback. The zero value is not usable; construct with New.
type Consumer struct {
	name    string
	queue   *queue.Queue
	process ProcessFunc
	log     *logrus.Entry

	status Status
	done   chan struct{}
}

// New constructs a Consumer named name, invoking process once per
// dequeued envelope.
func New(name string, process ProcessFunc, log *logrus.Entry) *Consumer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Consumer{
		name:    name,
		queue:   queue.New(),
		process: process,
		log:     log.WithField("consumer", name),
		status:  Staged,
		done:    make(chan struct{}),
	}
}

// Name returns the consumer's registration name.
func (c *Consumer) Name() string { return c.name }

// Queue returns the consumer's private inbound queue, the delegator's
// sole write target for this consumer.
func (c *Consumer) Queue() *queue.Queue { return c.queue }

// Status returns the consumer's current informational status.
func (c *Consumer) Status() Status { return c.status }

// Done returns a channel closed once Run has returned.
func (c *Consumer) Done() <-chan struct{} { return c.done }

// Run executes the consumer's default loop: repeatedly dequeue and
// invoke Process. On context cancellation it drains every item
// already buffered in the private queue — invoking Process for each —
// before returning. A Process error terminates the loop immediately
// (the remaining queued items, if any, are not drained).
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.done)
	c.status = Running

	for {
		item, ok := c.queue.Get(ctx)
		if !ok {
			c.drain(ctx)
			return
		}

		message, ok := item.(map[string]any)
		if !ok {
			c.log.Warn("dropping envelope of unexpected type")
			continue
		}
		if err := c.process(ctx, message); err != nil {
			c.log.WithError(err).Error("consumer process failed, terminating")
			c.status = Errored
			return
		}
	}
}

// drain invokes Process for every envelope still buffered in the
// private queue, in FIFO order, then marks the consumer Cancelled.
// Used on context cancellation, per the mandatory drain-on-cancel
// contract for the canonical Consumer.
func (c *Consumer) drain(ctx context.Context) {
	c.status = Draining
	for _, item := range c.queue.DrainAll() {
		message, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if err := c.process(ctx, message); err != nil {
			c.log.WithError(err).Error("consumer process failed during drain")
			c.status = Errored
			return
		}
	}
	c.status = Cancelled
}
