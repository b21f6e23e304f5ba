// Package pipelineerr defines the typed error taxonomy surfaced by the
// registry and configuration loader. Each error wraps the identifying
// context (exchange/symbol/stream names) so callers can branch on the
// concrete type with errors.As rather than parsing messages.
package pipelineerr

import "fmt"

// UnregisteredExchange is returned when an operation references an
// exchange name that has not been registered.
type UnregisteredExchange struct {
	Exchange string
}

func (e *UnregisteredExchange) Error() string {
	return fmt.Sprintf("exchange %q is not registered", e.Exchange)
}

// UnregisteredSymbol is returned when an operation references a symbol
// that has not been registered on the given exchange.
type UnregisteredSymbol struct {
	Exchange string
	Symbol   string
}

func (e *UnregisteredSymbol) Error() string {
	return fmt.Sprintf("symbol %q is not registered for exchange %q", e.Symbol, e.Exchange)
}

// UnregisteredStream is returned when an operation references a stream
// that has not been registered for the given exchange/symbol.
type UnregisteredStream struct {
	Exchange string
	Symbol   string
	Stream   string
}

func (e *UnregisteredStream) Error() string {
	return fmt.Sprintf("stream %q for symbol %q is not registered for exchange %q", e.Stream, e.Symbol, e.Exchange)
}

// InvalidSymbol is returned when a symbol is not present in the
// exchange adapter's reported symbol set.
type InvalidSymbol struct {
	Exchange string
	Symbol   string
}

func (e *InvalidSymbol) Error() string {
	return fmt.Sprintf("invalid symbol %q for exchange %q", e.Symbol, e.Exchange)
}

// UndefinedStream is returned when a stream name is absent from the
// adapter's capability map entirely (likely a typo).
type UndefinedStream struct {
	Exchange string
	Stream   string
}

func (e *UndefinedStream) Error() string {
	return fmt.Sprintf("undefined stream %q on exchange %q, check spelling", e.Stream, e.Exchange)
}

// StreamNotImplemented is returned when the adapter's capability map
// carries the stream but marks it as not-yet-implemented (nil entry).
type StreamNotImplemented struct {
	Exchange string
	Stream   string
}

func (e *StreamNotImplemented) Error() string {
	return fmt.Sprintf("stream %q is not yet implemented on exchange %q", e.Stream, e.Exchange)
}

// StreamUnsupported is returned when the adapter explicitly reports
// false for a stream's capability.
type StreamUnsupported struct {
	Exchange string
	Stream   string
}

func (e *StreamUnsupported) Error() string {
	return fmt.Sprintf("stream %q is unsupported on exchange %q", e.Stream, e.Exchange)
}

// UnregisteredConsumer is returned when an operation references a
// consumer name that is not currently registered on a Consumer Pipeline.
type UnregisteredConsumer struct {
	Name string
}

func (e *UnregisteredConsumer) Error() string {
	return fmt.Sprintf("consumer %q is not registered", e.Name)
}

// ExchangeInit wraps a failure to construct or load markets for an
// exchange adapter.
type ExchangeInit struct {
	Exchange string
	Cause    error
}

func (e *ExchangeInit) Error() string {
	return fmt.Sprintf("failed to initialize exchange %q: %v", e.Exchange, e.Cause)
}

func (e *ExchangeInit) Unwrap() error { return e.Cause }

// StillHasChildren is returned by a non-forced unregister operation
// when descendant nodes still exist beneath the target.
type StillHasChildren struct {
	Kind string // "exchange" | "symbol"
	Name string
}

func (e *StillHasChildren) Error() string {
	return fmt.Sprintf("%s %q still has registered children, pass force=true to remove anyway", e.Kind, e.Name)
}

// ConfigInvalid is returned when the top-level configuration document
// fails structural validation before any network I/O occurs.
type ConfigInvalid struct {
	Reason string
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}
