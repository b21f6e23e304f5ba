// Package config loads and validates the pipeline's YAML configuration
// document: which exchanges to register, with what initialization
// properties, which symbols on each, and which streams on each symbol.
// The consumers section is passed through uninterpreted — the core
// never inspects it, matching the original's contract that consumer
// instances are supplied by the embedding application, not derived
// from configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rishav/crypto-data-collector/internal/pipelineerr"
)

// StreamConfig is a single stream leaf: its fetch options.
type StreamConfig struct {
	Options map[string]any `yaml:"options"`
}

// SymbolConfig is a single symbol node: its registered streams.
type SymbolConfig struct {
	Streams map[string]StreamConfig `yaml:"streams"`
}

// RateLimitConfig bounds how often producers on one exchange may call
// its adapter's Fetch method, enforced by a Redis-backed token bucket
// shared across every collector process running against that exchange.
// Omitted (nil) means no rate limiting is applied.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int64   `yaml:"burst"`
}

// ExchangeConfig is a single exchange node: its adapter initialization
// properties, its optional rate limit, and its registered symbols.
type ExchangeConfig struct {
	Properties map[string]any          `yaml:"properties"`
	RateLimit  *RateLimitConfig        `yaml:"rateLimit"`
	Symbols    map[string]SymbolConfig `yaml:"symbols"`
}

// Config is the top-level configuration document.
type Config struct {
	// Consumers is opaque to the core; it is whatever the embedding
	// application wants to read to construct its own Consumer
	// instances. Never interpreted by Load beyond the type check.
	Consumers map[string]any            `yaml:"consumers"`
	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`
}

// Load reads and parses the YAML document at path, then validates its
// structure with Validate. Returns *pipelineerr.ConfigInvalid on any
// structural violation, before any network I/O occurs.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipelineerr.ConfigInvalid{Reason: err.Error()}
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &pipelineerr.ConfigInvalid{Reason: "yaml: " + err.Error()}
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural invariants of a parsed Config: both
// top-level sections must be present, every exchange must carry a
// symbols mapping, every symbol a streams mapping, and every stream
// leaf an options mapping (which may be empty). A missing exchange
// properties mapping is replaced by an empty one.
func Validate(cfg *Config) error {
	if cfg.Consumers == nil {
		return &pipelineerr.ConfigInvalid{Reason: "missing top-level \"consumers\" key"}
	}
	if cfg.Exchanges == nil {
		return &pipelineerr.ConfigInvalid{Reason: "missing top-level \"exchanges\" key"}
	}

	for exchangeName, ex := range cfg.Exchanges {
		if ex.Properties == nil {
			cfg.Exchanges[exchangeName] = ExchangeConfig{
				Properties: map[string]any{},
				RateLimit:  ex.RateLimit,
				Symbols:    ex.Symbols,
			}
			ex = cfg.Exchanges[exchangeName]
		}
		if ex.Symbols == nil {
			return &pipelineerr.ConfigInvalid{Reason: "exchange \"" + exchangeName + "\" is missing a \"symbols\" mapping"}
		}
		for symbol, sym := range ex.Symbols {
			if sym.Streams == nil {
				return &pipelineerr.ConfigInvalid{Reason: "exchange \"" + exchangeName + "\" symbol \"" + symbol + "\" is missing a \"streams\" mapping"}
			}
			for streamName, stream := range sym.Streams {
				if stream.Options == nil {
					return &pipelineerr.ConfigInvalid{Reason: "exchange \"" + exchangeName + "\" symbol \"" + symbol + "\" stream \"" + streamName + "\" is missing an \"options\" mapping"}
				}
			}
		}
	}
	return nil
}

// Default returns a small, valid default configuration for demo/test
// use, mirroring the original ConfigHandler.generate_config default.
func Default() *Config {
	emptyOptions := func() map[string]any { return map[string]any{} }
	streams := func() map[string]StreamConfig {
		return map[string]StreamConfig{
			"watchTicker":    {Options: emptyOptions()},
			"watchOHLCV":     {Options: emptyOptions()},
			"watchTrades":    {Options: emptyOptions()},
			"watchOrderBook": {Options: emptyOptions()},
		}
	}
	return &Config{
		Consumers: map[string]any{},
		Exchanges: map[string]ExchangeConfig{
			"binance": {
				Properties: map[string]any{
					"enableRateLimit": true,
					"timeout":         10000,
				},
				Symbols: map[string]SymbolConfig{
					"BTC/USDT:USDT": {Streams: streams()},
				},
			},
		},
	}
}
