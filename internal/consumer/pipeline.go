package consumer

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/pipelineerr"
)

type pipelineEntry struct {
	consumer *Consumer
	cancel   context.CancelFunc
}

// Pipeline supervises the set of registered consumers: launching each
// one's run loop on AddConsumer and awaiting its termination on
// RemoveConsumer. It does not itself read the ingress queue — that is
// the delegator's job; Pipeline only owns the name → Consumer map.
type Pipeline struct {
	mu        sync.Mutex
	consumers map[string]*pipelineEntry
	log       *logrus.Entry
}

// NewPipeline constructs an empty consumer Pipeline.
func NewPipeline(log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		consumers: make(map[string]*pipelineEntry),
		log:       log,
	}
}

// AddConsumer registers and starts a consumer's run loop. A no-op if
// a consumer with this name is already registered.
func (p *Pipeline) AddConsumer(c *Consumer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.consumers[c.name]; ok {
		p.log.WithField("consumer", c.name).Info("consumer already registered, skipping")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.consumers[c.name] = &pipelineEntry{consumer: c, cancel: cancel}
	go c.Run(ctx)
	p.log.WithField("consumer", c.name).Info("consumer started")
}

// RemoveConsumer cancels the named consumer and awaits its
// termination (which includes its mandatory drain) before removing it
// from the map. After this returns, no further messages are delivered
// to that consumer. If the name is unknown it changes nothing and
// returns *pipelineerr.UnregisteredConsumer.
func (p *Pipeline) RemoveConsumer(name string) error {
	p.mu.Lock()
	e, ok := p.consumers[name]
	if !ok {
		p.mu.Unlock()
		return &pipelineerr.UnregisteredConsumer{Name: name}
	}
	delete(p.consumers, name)
	p.mu.Unlock()

	e.cancel()
	<-e.consumer.Done()
	return nil
}

// StopPipeline removes every registered consumer.
func (p *Pipeline) StopPipeline() {
	p.mu.Lock()
	names := make([]string, 0, len(p.consumers))
	for name := range p.consumers {
		names = append(names, name)
	}
	p.mu.Unlock()

	for _, name := range names {
		_ = p.RemoveConsumer(name)
	}
}

// Consumers returns a snapshot of registered consumer instances, used
// by the Delegator to fan out each ingress message.
func (p *Pipeline) Consumers() []*Consumer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Consumer, 0, len(p.consumers))
	for _, e := range p.consumers {
		out = append(out, e.consumer)
	}
	return out
}

// Names returns the names of currently registered consumers.
func (p *Pipeline) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.consumers))
	for name := range p.consumers {
		out = append(out, name)
	}
	return out
}
