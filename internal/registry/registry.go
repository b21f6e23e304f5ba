// Package registry implements the authoritative configuration store:
// a nested exchange → symbol → stream tree
// holding the exchange adapter handles, their initialization
// overrides, and the resolved fetch bindings producers invoke.
//
// Mutations serialize under a single mutex. Go map access is unsafe for
// concurrent read/write, so reads take the same mutex rather than
// relying on immutability, unlike a language where per-entry immutable
// values would let reads go lock-free.
package registry

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/pipelineerr"
)

// AdapterFactory constructs an exchange.Adapter from initialization
// overrides. This is the registry's sole hook into the out-of-scope
// exchange client library: RegisterExchange calls it once, then calls
// LoadMarkets on the result.
type AdapterFactory func(overrides map[string]any) (exchange.Adapter, error)

// FetchFunc is the resolved, bound fetch callable stored on a stream
// registration. Producers invoke it once per run-loop iteration.
type FetchFunc func(ctx context.Context) (exchange.Payload, error)

type streamEntry struct {
	kind            exchange.StreamKind
	fetch           FetchFunc
	options         map[string]any
	consumerOptions map[string]any
}

type symbolEntry struct {
	streams map[string]*streamEntry
}

type exchangeEntry struct {
	object    exchange.Adapter
	overrides map[string]any
	symbols   map[string]*symbolEntry
}

// Registry is the configuration store for exchanges, symbols, and
// streams. The zero value is not usable; construct with New.
type Registry struct {
	mu        sync.Mutex
	exchanges map[string]*exchangeEntry
	log       *logrus.Entry
}

// New creates an empty Registry.
func New(log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		exchanges: make(map[string]*exchangeEntry),
		log:       log,
	}
}

// RegisterExchange instantiates an exchange adapter via factory and
// loads its markets. A no-op if the exchange is already registered.
// On failure the partially constructed adapter is closed before the
// error is returned, wrapped as *pipelineerr.ExchangeInit.
func (r *Registry) RegisterExchange(ctx context.Context, name string, overrides map[string]any, factory AdapterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exchanges[name]; ok {
		r.log.WithField("exchange", name).Info("exchange already registered, skipping")
		return nil
	}

	r.log.WithField("exchange", name).Info("registering exchange")
	adapter, err := factory(overrides)
	if err != nil {
		return &pipelineerr.ExchangeInit{Exchange: name, Cause: err}
	}
	if err := adapter.LoadMarkets(ctx); err != nil {
		_ = adapter.Close(ctx)
		return &pipelineerr.ExchangeInit{Exchange: name, Cause: err}
	}

	r.exchanges[name] = &exchangeEntry{
		object:    adapter,
		overrides: overrides,
		symbols:   make(map[string]*symbolEntry),
	}
	r.log.WithField("exchange", name).Info("exchange registered")
	return nil
}

// RegisterSymbol registers a symbol under an already-registered
// exchange, validating it against the adapter's reported symbol set.
func (r *Registry) RegisterSymbol(exchangeName, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	if _, ok := ex.symbols[symbol]; ok {
		r.log.WithFields(logrus.Fields{"exchange": exchangeName, "symbol": symbol}).Info("symbol already registered, skipping")
		return nil
	}
	if _, ok := ex.object.Symbols()[symbol]; !ok {
		return &pipelineerr.InvalidSymbol{Exchange: exchangeName, Symbol: symbol}
	}

	ex.symbols[symbol] = &symbolEntry{streams: make(map[string]*streamEntry)}
	r.log.WithFields(logrus.Fields{"exchange": exchangeName, "symbol": symbol}).Info("symbol registered")
	return nil
}

// RegisterStream registers a stream for a symbol, validating the
// adapter's capability map and resolving the bound fetch callable.
func (r *Registry) RegisterStream(
	exchangeName, symbol string,
	kind exchange.StreamKind,
	options, consumerOptions map[string]any,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	sym, ok := ex.symbols[symbol]
	if !ok {
		return &pipelineerr.UnregisteredSymbol{Exchange: exchangeName, Symbol: symbol}
	}

	streamName := kind.String()
	if _, ok := sym.streams[streamName]; ok {
		r.log.WithFields(logrus.Fields{"exchange": exchangeName, "symbol": symbol, "stream": streamName}).Info("stream already registered, skipping")
		return nil
	}

	switch ex.object.Has(kind) {
	case exchange.CapabilityUndefined:
		return &pipelineerr.UndefinedStream{Exchange: exchangeName, Stream: streamName}
	case exchange.CapabilityUnimplemented:
		return &pipelineerr.StreamNotImplemented{Exchange: exchangeName, Stream: streamName}
	case exchange.CapabilityUnsupported:
		return &pipelineerr.StreamUnsupported{Exchange: exchangeName, Stream: streamName}
	}

	if options == nil {
		options = map[string]any{}
	}
	adapter := ex.object
	fetch := func(ctx context.Context) (exchange.Payload, error) {
		return adapter.Fetch(ctx, kind, symbol, options)
	}

	sym.streams[streamName] = &streamEntry{
		kind:            kind,
		fetch:           fetch,
		options:         options,
		consumerOptions: consumerOptions,
	}
	r.log.WithFields(logrus.Fields{"exchange": exchangeName, "symbol": symbol, "stream": streamName}).Info("stream registered")
	return nil
}

// UnregisterStream removes a single stream leaf. Does not stop any
// running producer; the caller must coordinate via the producer
// pipeline first.
func (r *Registry) UnregisterStream(exchangeName, symbol, streamName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sym, err := r.symbolLocked(exchangeName, symbol)
	if err != nil {
		return err
	}
	if _, ok := sym.streams[streamName]; !ok {
		return &pipelineerr.UnregisteredStream{Exchange: exchangeName, Symbol: symbol, Stream: streamName}
	}
	delete(sym.streams, streamName)
	return nil
}

// UnregisterSymbol removes a symbol and all its streams. Without
// force, fails with *pipelineerr.StillHasChildren if any stream is
// still registered beneath it.
func (r *Registry) UnregisterSymbol(exchangeName, symbol string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	sym, ok := ex.symbols[symbol]
	if !ok {
		return &pipelineerr.UnregisteredSymbol{Exchange: exchangeName, Symbol: symbol}
	}
	if !force && len(sym.streams) > 0 {
		return &pipelineerr.StillHasChildren{Kind: "symbol", Name: symbol}
	}
	delete(ex.symbols, symbol)
	return nil
}

// UnregisterExchange removes an exchange entry from the registry. It
// does NOT close the adapter — the producer pipeline owns that
// lifecycle decision (closed when the last producer referencing it is
// removed). Without force, fails with *pipelineerr.StillHasChildren if
// any symbol is still registered beneath it.
func (r *Registry) UnregisterExchange(exchangeName string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	if !force && len(ex.symbols) > 0 {
		return &pipelineerr.StillHasChildren{Kind: "exchange", Name: exchangeName}
	}
	delete(r.exchanges, exchangeName)
	return nil
}

// ExchangeRegistered reports whether an exchange is registered.
func (r *Registry) ExchangeRegistered(exchangeName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.exchanges[exchangeName]
	return ok
}

// SymbolRegistered reports whether a symbol is registered on an exchange.
func (r *Registry) SymbolRegistered(exchangeName, symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return false
	}
	_, ok = ex.symbols[symbol]
	return ok
}

// StreamRegistered reports whether a stream is registered.
func (r *Registry) StreamRegistered(exchangeName, symbol, streamName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sym, err := r.symbolLocked(exchangeName, symbol)
	if err != nil {
		return false
	}
	_, ok := sym.streams[streamName]
	return ok
}

// ExchangeObject returns the adapter handle for a registered exchange.
func (r *Registry) ExchangeObject(exchangeName string) (exchange.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return nil, &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	return ex.object, nil
}

// StreamFetch returns the resolved, bound fetch callable for a stream.
func (r *Registry) StreamFetch(exchangeName, symbol, streamName string) (FetchFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sym, err := r.symbolLocked(exchangeName, symbol)
	if err != nil {
		return nil, err
	}
	st, ok := sym.streams[streamName]
	if !ok {
		return nil, &pipelineerr.UnregisteredStream{Exchange: exchangeName, Symbol: symbol, Stream: streamName}
	}
	return st.fetch, nil
}

// StreamOptions returns the options map resolved for a stream.
func (r *Registry) StreamOptions(exchangeName, symbol, streamName string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sym, err := r.symbolLocked(exchangeName, symbol)
	if err != nil {
		return nil, err
	}
	st, ok := sym.streams[streamName]
	if !ok {
		return nil, &pipelineerr.UnregisteredStream{Exchange: exchangeName, Symbol: symbol, Stream: streamName}
	}
	return st.options, nil
}

// HasRegisteredStreams reports whether a symbol has at least one
// registered stream.
func (r *Registry) HasRegisteredStreams(exchangeName, symbol string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sym, err := r.symbolLocked(exchangeName, symbol)
	if err != nil {
		return false, err
	}
	return len(sym.streams) > 0, nil
}

// symbolLocked looks up a symbol entry. Callers must hold r.mu.
func (r *Registry) symbolLocked(exchangeName, symbol string) (*symbolEntry, error) {
	ex, ok := r.exchanges[exchangeName]
	if !ok {
		return nil, &pipelineerr.UnregisteredExchange{Exchange: exchangeName}
	}
	sym, ok := ex.symbols[symbol]
	if !ok {
		return nil, &pipelineerr.UnregisteredSymbol{Exchange: exchangeName, Symbol: symbol}
	}
	return sym, nil
}

// Exchanges returns the names of all currently registered exchanges.
func (r *Registry) Exchanges() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.exchanges))
	for name := range r.exchanges {
		names = append(names, name)
	}
	return names
}
