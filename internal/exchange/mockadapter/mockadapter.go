// Package mockadapter supplies an in-memory exchange.Adapter for tests
// and the example collector binary. It never touches the network; a
// real deployment wires in a ccxt-pro-equivalent Go websocket client
// behind the same exchange.Adapter interface.
package mockadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rishav/crypto-data-collector/internal/exchange"
)

// FetchFunc produces one payload (or error) per invocation. Tests use
// this to script deterministic sequences of successes/failures.
type FetchFunc func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error)

// Adapter is a scriptable exchange.Adapter.
type Adapter struct {
	mu          sync.Mutex
	symbols     map[string]struct{}
	has         map[exchange.StreamKind]exchange.Capability
	fetch       map[exchange.StreamKind]FetchFunc
	closed      bool
	closeCalls  int
	loadErr     error
	loadMarkets bool
}

// New creates an Adapter supporting the given symbols. Capabilities and
// fetch behavior default to CapabilityUndefined until configured with
// WithStream.
func New(symbols ...string) *Adapter {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return &Adapter{
		symbols: set,
		has:     make(map[exchange.StreamKind]exchange.Capability),
		fetch:   make(map[exchange.StreamKind]FetchFunc),
	}
}

// WithStream registers a capability and fetch behavior for a stream
// kind. A nil fn records the capability only; Fetch for that kind then
// returns an error, so CapabilitySupported should be paired with a
// non-nil fn.
func (a *Adapter) WithStream(kind exchange.StreamKind, cap exchange.Capability, fn FetchFunc) *Adapter {
	a.has[kind] = cap
	if fn != nil {
		a.fetch[kind] = fn
	}
	return a
}

// WithLoadMarketsError makes LoadMarkets fail with err.
func (a *Adapter) WithLoadMarketsError(err error) *Adapter {
	a.loadErr = err
	return a
}

// LoadMarkets implements exchange.Adapter.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	if a.loadErr != nil {
		return a.loadErr
	}
	a.mu.Lock()
	a.loadMarkets = true
	a.mu.Unlock()
	return nil
}

// Close implements exchange.Adapter. Idempotent: repeated calls only
// increment an internal counter exposed via CloseCalls for assertions.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.closeCalls++
	return nil
}

// CloseCalls reports how many times Close has been invoked.
func (a *Adapter) CloseCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeCalls
}

// Symbols implements exchange.Adapter.
func (a *Adapter) Symbols() map[string]struct{} {
	return a.symbols
}

// Has implements exchange.Adapter.
func (a *Adapter) Has(kind exchange.StreamKind) exchange.Capability {
	if cap, ok := a.has[kind]; ok {
		return cap
	}
	return exchange.CapabilityUndefined
}

// Fetch implements exchange.Adapter.
func (a *Adapter) Fetch(ctx context.Context, kind exchange.StreamKind, symbol string, options map[string]any) (exchange.Payload, error) {
	fn, ok := a.fetch[kind]
	if !ok {
		return nil, fmt.Errorf("mockadapter: no fetch behavior configured for %s", kind)
	}
	return fn(ctx, symbol, options)
}
