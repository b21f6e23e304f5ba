// Package exchange defines the contract between the producer/consumer
// supervision core and a market data venue. The core never speaks to a
// concrete exchange SDK directly; it only depends on the Adapter
// interface below, so any websocket client library can be plugged in by
// implementing it.
package exchange

import "context"

// StreamKind enumerates the category of market data update a producer
// can subscribe to. The original dynamic-dispatch-by-method-name design
// (resolve "watchTicker" as an attribute on the exchange object) is
// modeled here as an enumerated dispatch argument, per the statically
// typed reimplementation guidance: the registry stores a StreamKind
// instead of a bound method reference.
type StreamKind int

const (
	StreamUnknown StreamKind = iota
	StreamTicker
	StreamOHLCV
	StreamTrades
	StreamOrderBook
)

// String renders a StreamKind the way it would appear in a producer
// identity, e.g. "watchTicker".
func (k StreamKind) String() string {
	switch k {
	case StreamTicker:
		return "watchTicker"
	case StreamOHLCV:
		return "watchOHLCV"
	case StreamTrades:
		return "watchTrades"
	case StreamOrderBook:
		return "watchOrderBook"
	default:
		return "unknown"
	}
}

// ParseStreamKind maps a configuration-file stream name back to its
// StreamKind. Unrecognized names return StreamUnknown, false.
func ParseStreamKind(name string) (StreamKind, bool) {
	switch name {
	case "watchTicker":
		return StreamTicker, true
	case "watchOHLCV":
		return StreamOHLCV, true
	case "watchTrades":
		return StreamTrades, true
	case "watchOrderBook":
		return StreamOrderBook, true
	default:
		return StreamUnknown, false
	}
}

// Capability is the four-valued outcome of looking up a StreamKind in
// an adapter's Has map, normalizing the original's redundant
// "is None or False" check into three explicit failure outcomes plus
// CapabilitySupported.
type Capability int

const (
	// CapabilityUndefined means the adapter has no entry at all for the
	// stream (likely a typo in configuration).
	CapabilityUndefined Capability = iota
	// CapabilityUnimplemented means the adapter knows about the stream
	// but has not implemented it yet.
	CapabilityUnimplemented
	// CapabilityUnsupported means the adapter explicitly reports the
	// venue does not offer this stream.
	CapabilityUnsupported
	// CapabilitySupported means the stream can be fetched.
	CapabilitySupported
)

// Adapter is the contract an exchange websocket client must satisfy to
// be usable by the registry and data producers. Implementations own a
// single connection/session to one venue.
type Adapter interface {
	// LoadMarkets populates the adapter's symbol set. Must be called
	// once, successfully, before Symbols or Fetch are used.
	LoadMarkets(ctx context.Context) error

	// Close releases the adapter's underlying connection. Must be
	// idempotent: calling it more than once is not an error.
	Close(ctx context.Context) error

	// Symbols returns the set of symbols the venue supports, populated
	// by LoadMarkets.
	Symbols() map[string]struct{}

	// Has reports whether a given stream kind is available.
	Has(kind StreamKind) Capability

	// Fetch performs a single blocking websocket receive for the given
	// stream/symbol and returns the raw payload. It is the sole
	// suspension point in a producer's run loop.
	Fetch(ctx context.Context, kind StreamKind, symbol string, options map[string]any) (Payload, error)
}

// ErrClassifier classifies a Fetch error as transient (worth a backoff
// retry) or fatal (worth terminating the producer immediately). Callers
// supply one through producer.Config; when none is set the producer
// uses DefaultErrClassifier, which classifies every error as transient.
// Producers check their own context for cancellation before consulting
// the classifier, so a cancelled producer never reaches it.
type ErrClassifier interface {
	Classify(err error) ErrClass
}

// ErrClass is the result of classifying a producer fetch error.
type ErrClass int

const (
	// ErrClassTransient errors drive exponential backoff.
	ErrClassTransient ErrClass = iota
	// ErrClassFatal errors terminate the producer immediately, without
	// retry, as Errored.
	ErrClassFatal
)

// ErrClassifierFunc adapts a plain function to the ErrClassifier interface.
type ErrClassifierFunc func(error) ErrClass

// Classify implements ErrClassifier.
func (f ErrClassifierFunc) Classify(err error) ErrClass { return f(err) }

// DefaultErrClassifier treats every Fetch error as transient. This
// mirrors the original data_producer's behavior of sleeping and
// retrying on any exception that is not CancelledError.
var DefaultErrClassifier ErrClassifier = ErrClassifierFunc(func(error) ErrClass {
	return ErrClassTransient
})
