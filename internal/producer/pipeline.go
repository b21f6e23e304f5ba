package producer

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/metrics"
	"github.com/rishav/crypto-data-collector/internal/pipelineerr"
	"github.com/rishav/crypto-data-collector/internal/queue"
)

type entry struct {
	producer *Producer
	cancel   context.CancelFunc
}

// Pipeline supervises the set of running Producers and the exchange
// adapter handles they share. Each exchange adapter is refcounted by
// the number of producers currently bound to it; the handle is closed
// exactly once, when the last producer referencing it is removed.
type Pipeline struct {
	mu        sync.Mutex
	producers map[string]*entry
	refcounts map[string]int
	adapters  map[string]exchange.Adapter

	ingress *queue.Queue
	log     *logrus.Entry
}

// NewPipeline constructs an empty Pipeline writing fetched envelopes
// onto ingress.
func NewPipeline(ingress *queue.Queue, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		producers: make(map[string]*entry),
		refcounts: make(map[string]int),
		adapters:  make(map[string]exchange.Adapter),
		ingress:   ingress,
		log:       log,
	}
}

// AddProducer constructs and starts a producer for the given
// (exchange, symbol, stream) triple, bumping the exchange's refcount.
// A no-op if a producer with this identity is already running.
func (p *Pipeline) AddProducer(exchangeName, symbol, streamName string, fetch FetchFunc, adapter exchange.Adapter, cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity := Identity(exchangeName, symbol, streamName)
	if _, ok := p.producers[identity]; ok {
		p.log.WithField("producer", identity).Info("producer already running, skipping")
		return
	}

	prod := New(exchangeName, symbol, streamName, fetch, p.ingress, p.log, cfg)
	ctx, cancel := context.WithCancel(context.Background())

	p.producers[identity] = &entry{producer: prod, cancel: cancel}
	p.refcounts[exchangeName]++
	p.adapters[exchangeName] = adapter

	go prod.Run(ctx)
	p.log.WithField("producer", identity).Info("producer started")
}

// RemoveProducer cancels and awaits the named producer's termination,
// then decrements its exchange's refcount. When the refcount reaches
// zero the exchange adapter handle is closed. Returns only after the
// producer goroutine has fully terminated and, if applicable, the
// adapter close has been attempted. If the identity is unknown it
// changes nothing and returns *pipelineerr.UnregisteredStream.
func (p *Pipeline) RemoveProducer(ctx context.Context, exchangeName, symbol, streamName string) error {
	identity := Identity(exchangeName, symbol, streamName)

	p.mu.Lock()
	e, ok := p.producers[identity]
	if !ok {
		p.mu.Unlock()
		return &pipelineerr.UnregisteredStream{Exchange: exchangeName, Symbol: symbol, Stream: streamName}
	}
	delete(p.producers, identity)
	p.mu.Unlock()

	e.cancel()
	<-e.producer.Done()

	p.mu.Lock()
	p.refcounts[exchangeName]--
	remaining := p.refcounts[exchangeName]
	var adapter exchange.Adapter
	if remaining <= 0 {
		delete(p.refcounts, exchangeName)
		adapter = p.adapters[exchangeName]
		delete(p.adapters, exchangeName)
	}
	p.mu.Unlock()

	if adapter != nil {
		p.log.WithField("exchange", exchangeName).Info("last producer removed, closing exchange handle")
		if err := adapter.Close(ctx); err != nil {
			p.log.WithField("exchange", exchangeName).WithError(err).Warn("error closing exchange handle")
		}
		metrics.IncExchangeHandleClosed(exchangeName)
	}
	return nil
}

// StopPipeline removes every running producer, closing every exchange
// handle whose last producer is removed in the process.
func (p *Pipeline) StopPipeline(ctx context.Context) {
	p.mu.Lock()
	identities := make([]*Producer, 0, len(p.producers))
	for _, e := range p.producers {
		identities = append(identities, e.producer)
	}
	p.mu.Unlock()

	for _, prod := range identities {
		_ = p.RemoveProducer(ctx, prod.ExchangeName(), prod.symbol, prod.streamName)
	}
}

// Producers returns a snapshot of currently running producer identities.
func (p *Pipeline) Producers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.producers))
	for id := range p.producers {
		out = append(out, id)
	}
	return out
}

// Producer looks up a running producer by identity, for state inspection.
func (p *Pipeline) Producer(exchangeName, symbol, streamName string) (*Producer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.producers[Identity(exchangeName, symbol, streamName)]
	if !ok {
		return nil, false
	}
	return e.producer, true
}
