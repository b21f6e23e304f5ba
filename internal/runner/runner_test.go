package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/crypto-data-collector/internal/config"
	"github.com/rishav/crypto-data-collector/internal/consumer"
	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/exchange/mockadapter"
	"github.com/rishav/crypto-data-collector/internal/producer"
)

func tickerFetch(symbol string) mockadapter.FetchFunc {
	return func(ctx context.Context, sym string, options map[string]any) (exchange.Payload, error) {
		return exchange.MapPayload{"symbol": symbol, "price": 1.0}, nil
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Consumers: map[string]any{},
		Exchanges: map[string]config.ExchangeConfig{
			"mock": {
				Properties: map[string]any{},
				Symbols: map[string]config.SymbolConfig{
					"BTC/USDT": {
						Streams: map[string]config.StreamConfig{
							"watchTicker": {Options: map[string]any{}},
						},
					},
				},
			},
		},
	}
}

func TestBuild_RegistersAndStartsOneProducer(t *testing.T) {
	cfg := testConfig()
	factories := AdapterFactories{
		"mock": func(overrides map[string]any) (exchange.Adapter, error) {
			return mockadapter.New("BTC/USDT").
				WithStream(exchange.StreamTicker, exchange.CapabilitySupported, tickerFetch("BTC/USDT")), nil
		},
	}

	r, err := Build(context.Background(), cfg, factories, producer.Config{}, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mock|BTC/USDT|watchTicker"}, r.Producers.Producers())

	r.Producers.StopPipeline(context.Background())
}

func TestBuild_UnknownExchangeFactoryFails(t *testing.T) {
	cfg := testConfig()
	_, err := Build(context.Background(), cfg, AdapterFactories{}, producer.Config{}, nil, nil)
	require.Error(t, err)
}

func TestBuild_RateLimitWithoutRedisClientFails(t *testing.T) {
	cfg := testConfig()
	exCfg := cfg.Exchanges["mock"]
	exCfg.RateLimit = &config.RateLimitConfig{RequestsPerSecond: 5, Burst: 10}
	cfg.Exchanges["mock"] = exCfg

	factories := AdapterFactories{
		"mock": func(overrides map[string]any) (exchange.Adapter, error) {
			return mockadapter.New("BTC/USDT").
				WithStream(exchange.StreamTicker, exchange.CapabilitySupported, tickerFetch("BTC/USDT")), nil
		},
	}

	_, err := Build(context.Background(), cfg, factories, producer.Config{}, nil, nil)
	require.Error(t, err)
}

func TestRunner_FullLifecycleDeliversToConsumer(t *testing.T) {
	cfg := testConfig()
	factories := AdapterFactories{
		"mock": func(overrides map[string]any) (exchange.Adapter, error) {
			return mockadapter.New("BTC/USDT").
				WithStream(exchange.StreamTicker, exchange.CapabilitySupported, tickerFetch("BTC/USDT")), nil
		},
	}

	r, err := Build(context.Background(), cfg, factories, producer.Config{}, nil, nil)
	require.NoError(t, err)

	received := make(chan map[string]any, 16)
	c := consumer.New("sink", func(ctx context.Context, message map[string]any) error {
		received <- message
		return nil
	}, nil)
	r.AddConsumer(c)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case msg := <-received:
		assert.Equal(t, "BTC/USDT", msg["symbol"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected at least one delivered message")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not shut down in time")
	}
}
