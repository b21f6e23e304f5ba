// Package statuslog implements a batched, asynchronous append log of
// producer/consumer *state transitions* — never message payloads,
// consistent with the pipeline's no-persistence-of-messages contract.
// Transitions are queued non-blockingly and flushed in batches by a
// dedicated goroutine, the same shape as a write-heavy event log
// amortizing I/O over many events instead of paying a syscall per
// event.
package statuslog

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Transition is one producer/consumer status change.
type Transition struct {
	Component string // "producer" | "consumer" | "delegator"
	Identity  string
	Status    string
	Tries     int
	Timeout   time.Duration
	LastError string
	At        time.Time
}

// Log batches Transitions and flushes them to a logger, either when a
// batch fills or on a flush interval tick, whichever comes first.
type Log struct {
	log           *logrus.Entry
	queue         chan Transition
	batchSize     int
	flushInterval time.Duration
	droppedTotal  uint64

	shutdownCh   chan struct{}
	shutdownDone chan struct{}
}

// Config configures a Log. Zero values default to BatchSize=256,
// FlushInterval=100ms, QueueCapacity=2*BatchSize.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueCapacity int
}

// New constructs and starts a Log's batching goroutine. Call Close to
// flush remaining transitions and stop it.
func New(log *logrus.Entry, cfg Config) *Log {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 100 * time.Millisecond
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = cfg.BatchSize * 2
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	l := &Log{
		log:           log.WithField("component", "statuslog"),
		queue:         make(chan Transition, cfg.QueueCapacity),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		shutdownCh:    make(chan struct{}),
		shutdownDone:  make(chan struct{}),
	}
	go l.loop()
	return l
}

// Record queues a transition for batched flushing. Non-blocking: if
// the queue is full the transition is dropped and a counter is
// incremented, surfaced via DroppedCount — a full status-log queue
// must never backpressure a producer or consumer's run loop.
func (l *Log) Record(t Transition) {
	select {
	case l.queue <- t:
	default:
		l.droppedTotal++
	}
}

// DroppedCount reports how many transitions have been dropped due to
// a full queue since construction. Not synchronized against concurrent
// Record calls; intended for periodic diagnostics, not exact accounting.
func (l *Log) DroppedCount() uint64 { return l.droppedTotal }

// Close flushes any buffered transitions and stops the batching
// goroutine, waiting for it to fully drain before returning.
func (l *Log) Close() {
	close(l.shutdownCh)
	<-l.shutdownDone
}

func (l *Log) loop() {
	defer close(l.shutdownDone)

	batch := make([]Transition, 0, l.batchSize)
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case t := <-l.queue:
			batch = append(batch, t)
			if len(batch) >= l.batchSize {
				l.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}

		case <-l.shutdownCh:
			if len(batch) > 0 {
				l.flush(batch)
			}
			for {
				select {
				case t := <-l.queue:
					l.flush([]Transition{t})
				default:
					return
				}
			}
		}
	}
}

func (l *Log) flush(batch []Transition) {
	for _, t := range batch {
		entry := l.log.WithFields(logrus.Fields{
			"component": t.Component,
			"identity":  t.Identity,
			"status":    t.Status,
			"tries":     t.Tries,
			"at":        t.At,
		})
		if t.Timeout > 0 {
			entry = entry.WithField("timeout", t.Timeout.String())
		}
		if t.LastError != "" {
			entry = entry.WithField("last_error", t.LastError)
		}
		entry.Info("state transition")
	}
}
