// Package delegator implements the sole reader of the ingress queue:
// it fans each message out to every currently registered consumer's
// private queue using a non-blocking put, so that one slow or wedged
// consumer can never backpressure the ingress queue or stall delivery
// to the others.
package delegator

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/consumer"
	"github.com/rishav/crypto-data-collector/internal/metrics"
	"github.com/rishav/crypto-data-collector/internal/queue"
)

// Delegator reads from a shared ingress queue and dispatches each
// message to every consumer registered on a consumer.Pipeline at the
// moment it is read. Consumers registered afterward do not receive
// messages already dispatched; consumers removed beforehand are
// simply absent from the snapshot taken for that message.
type Delegator struct {
	ingress   *queue.Queue
	consumers *consumer.Pipeline
	log       *logrus.Entry

	done chan struct{}
}

// New constructs a Delegator reading from ingress and dispatching to
// every consumer currently held by consumers.
func New(ingress *queue.Queue, consumers *consumer.Pipeline, log *logrus.Entry) *Delegator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Delegator{
		ingress:   ingress,
		consumers: consumers,
		log:       log.WithField("component", "delegator"),
		done:      make(chan struct{}),
	}
}

// Done returns a channel closed once Run has returned.
func (d *Delegator) Done() <-chan struct{} { return d.done }

// Run loops: dequeue from the ingress queue, dispatch to every
// registered consumer's private queue via a non-blocking put. On
// context cancellation it drains whatever remains buffered on the
// ingress queue, dispatching each using the same policy, before
// returning — mirroring the mandatory drain-on-cancel contract of the
// canonical Consumer, applied here to the shared ingress queue instead
// of a private one.
func (d *Delegator) Run(ctx context.Context) {
	defer close(d.done)

	for {
		item, ok := d.ingress.Get(ctx)
		if !ok {
			d.drain()
			return
		}
		metrics.SetQueueDepth("ingress", d.ingress.Len())
		d.dispatch(item)
	}
}

// dispatch copies item onto every currently registered consumer's
// private queue. The ingress queue holds map[string]any envelopes;
// unexpected item types are dropped with a warning rather than
// panicking a shared goroutine.
func (d *Delegator) dispatch(item any) {
	message, ok := item.(map[string]any)
	if !ok {
		d.log.Warn("dropping ingress item of unexpected type")
		return
	}
	for _, c := range d.consumers.Consumers() {
		c.Queue().TryPut(message)
		metrics.IncDelegatorDispatched(c.Name())
		metrics.SetQueueDepth(c.Name(), c.Queue().Len())
	}
}

// drain dispatches every message still buffered on the ingress queue
// at the moment of cancellation, in FIFO order, then returns.
func (d *Delegator) drain() {
	for _, item := range d.ingress.DrainAll() {
		d.dispatch(item)
	}
}
