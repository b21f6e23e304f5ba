// Package producer implements the Data Producer and the Producer
// Pipeline that supervises a set of them.
//
// One Producer runs per (exchange, symbol, stream) triple. Its run loop
// has a single suspension point per iteration — the resolved fetch
// callable — and is gated only by context cancellation; Status is
// observational bookkeeping kept separate from the cancellation
// signal, so backoff arithmetic and cancellation semantics never
// become entangled.
package producer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/metrics"
	"github.com/rishav/crypto-data-collector/internal/queue"
)

// DefaultMaxTries is the number of consecutive transient failures a
// producer tolerates before terminating as Errored. The backoff
// sequence for the first four failures is 1s, 2s, 4s, 8s — the fourth
// failure terminates the loop without a further sleep.
const DefaultMaxTries = 4

// InitialBackoff is the sleep duration after the first transient
// failure; it doubles after every subsequent one.
const InitialBackoff = time.Second

// Identity builds a producer identity string in the wire format
// "{exchange}|{symbol}|{stream}".
func Identity(exchangeName, symbol, streamName string) string {
	return exchangeName + "|" + symbol + "|" + streamName
}

// FetchFunc is the resolved fetch callable a Producer invokes once per
// run-loop iteration. registry.FetchFunc has the same underlying type
// and converts to it directly.
type FetchFunc func(ctx context.Context) (exchange.Payload, error)

// Config configures a Producer's behavior. Zero-value fields fall back
// to defaults in New.
type Config struct {
	MaxTries       int
	InitialBackoff time.Duration
	Classifier     exchange.ErrClassifier
	TimeNow        func() time.Time
	OnTransition   func(identity string, state State)
}

// Producer is one long-lived (exchange, symbol, stream) fetch loop.
type Producer struct {
	identity     string
	exchangeName string
	symbol       string
	streamName   string
	fetch        FetchFunc
	ingress      *queue.Queue
	log          *logrus.Entry

	maxTries       int
	initialBackoff time.Duration
	classifier     exchange.ErrClassifier
	timeNow        func() time.Time
	onTransition   func(identity string, state State)

	state atomic.Value // State
	done  chan struct{}
}

// New constructs a Producer. It does not start the run loop; use
// Pipeline.AddProducer (or Run directly in tests) to do that.
func New(exchangeName, symbol, streamName string, fetch FetchFunc, ingress *queue.Queue, log *logrus.Entry, cfg Config) *Producer {
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = DefaultMaxTries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = InitialBackoff
	}
	if cfg.Classifier == nil {
		cfg.Classifier = exchange.DefaultErrClassifier
	}
	if cfg.TimeNow == nil {
		cfg.TimeNow = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &Producer{
		identity:       Identity(exchangeName, symbol, streamName),
		exchangeName:   exchangeName,
		symbol:         symbol,
		streamName:     streamName,
		fetch:          fetch,
		ingress:        ingress,
		log:            log.WithField("producer", Identity(exchangeName, symbol, streamName)),
		maxTries:       cfg.MaxTries,
		initialBackoff: cfg.InitialBackoff,
		classifier:     cfg.Classifier,
		timeNow:        cfg.TimeNow,
		onTransition:   cfg.OnTransition,
		done:           make(chan struct{}),
	}
	p.setState(State{Status: Staged, Since: p.timeNow()})
	return p
}

// Identity returns the producer's wire identity.
func (p *Producer) Identity() string { return p.identity }

// ExchangeName returns the exchange this producer belongs to, used by
// the Pipeline for exchange-handle refcounting.
func (p *Producer) ExchangeName() string { return p.exchangeName }

// State returns a snapshot of the producer's current informational state.
func (p *Producer) State() State {
	return p.state.Load().(State)
}

// Done returns a channel closed once the run loop has returned.
func (p *Producer) Done() <-chan struct{} { return p.done }

func (p *Producer) setState(s State) {
	p.state.Store(s)
	if p.onTransition != nil {
		p.onTransition(p.identity, s)
	}
}

// Run executes the producer's run loop until ctx is cancelled or a
// fatal/exhausted-retries condition terminates it. Run closes its done
// channel exactly once, on return, regardless of outcome.
func (p *Producer) Run(ctx context.Context) {
	defer close(p.done)

	p.setState(State{Status: Running, Since: p.timeNow()})
	tries := 0
	backoff := p.initialBackoff

	for {
		payload, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("producer cancelled")
				p.setState(State{Status: Cancelled, Tries: tries, Since: p.timeNow()})
				return
			}

			switch p.classifier.Classify(err) {
			case exchange.ErrClassFatal:
				p.log.WithError(err).Error("fatal producer error, terminating")
				p.setState(State{Status: Errored, Tries: tries, LastError: err.Error(), Since: p.timeNow()})
				return
			default: // transient
				tries++
				p.log.WithError(err).WithField("tries", tries).Warn("transient producer error, backing off")
				p.setState(State{Status: Backoff, Tries: tries, Timeout: backoff, LastError: err.Error(), Since: p.timeNow()})

				if tries >= p.maxTries {
					p.log.WithField("tries", tries).Error("producer exhausted retries, terminating")
					p.setState(State{Status: Errored, Tries: tries, LastError: err.Error(), Since: p.timeNow()})
					return
				}

				timer := time.NewTimer(backoff)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					p.setState(State{Status: Cancelled, Tries: tries, Since: p.timeNow()})
					return
				}
				backoff *= 2
				continue
			}
		}

		tries = 0
		backoff = p.initialBackoff
		p.setState(State{Status: Running, Since: p.timeNow()})

		env, ok := exchange.BuildEnvelope(p.identity, payload)
		if !ok {
			p.log.WithField("payload_type", payloadTypeName(payload)).Warn("dropping payload of unrecognized type")
			continue
		}
		p.ingress.TryPut(env)
		metrics.SetQueueDepth("ingress", p.ingress.Len())
	}
}

func payloadTypeName(p exchange.Payload) string {
	switch p.(type) {
	case exchange.OtherPayload:
		return "other"
	default:
		return "unknown"
	}
}
