package producer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/exchange/mockadapter"
	"github.com/rishav/crypto-data-collector/internal/queue"
)

func tickerFetch(a *mockadapter.Adapter, symbol string) FetchFunc {
	return func(ctx context.Context) (exchange.Payload, error) {
		return a.Fetch(ctx, exchange.StreamTicker, symbol, nil)
	}
}

func TestPipeline_AddRemoveProducer(t *testing.T) {
	q := queue.New()
	a := mockadapter.New("BTC/USDT:USDT").WithStream(exchange.StreamTicker, exchange.CapabilitySupported,
		func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error) {
			return exchange.MapPayload{"bid": 1}, nil
		})

	p := NewPipeline(q, nil)
	p.AddProducer("binance", "BTC/USDT:USDT", "watchTicker", tickerFetch(a, "BTC/USDT:USDT"), a, Config{})

	require.Eventually(t, func() bool {
		_, ok := q.TryGet()
		return ok
	}, time.Second, time.Millisecond, "expected at least one enqueued envelope")

	err := p.RemoveProducer(context.Background(), "binance", "BTC/USDT:USDT", "watchTicker")
	require.NoError(t, err)
	assert.Equal(t, 1, a.CloseCalls())
}

func TestPipeline_ExchangeHandleRefcounting(t *testing.T) {
	q := queue.New()
	a := mockadapter.New("BTC/USDT:USDT", "ETH/USDT:USDT").WithStream(exchange.StreamTicker, exchange.CapabilitySupported,
		func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error) {
			return exchange.MapPayload{"symbol": symbol}, nil
		})

	p := NewPipeline(q, nil)
	p.AddProducer("binance", "BTC/USDT:USDT", "watchTicker", tickerFetch(a, "BTC/USDT:USDT"), a, Config{})
	p.AddProducer("binance", "ETH/USDT:USDT", "watchTicker", tickerFetch(a, "ETH/USDT:USDT"), a, Config{})

	ctx := context.Background()
	require.NoError(t, p.RemoveProducer(ctx, "binance", "BTC/USDT:USDT", "watchTicker"))
	assert.Equal(t, 0, a.CloseCalls(), "handle must stay open while a producer still references it")

	require.NoError(t, p.RemoveProducer(ctx, "binance", "ETH/USDT:USDT", "watchTicker"))
	assert.Equal(t, 1, a.CloseCalls(), "handle must close exactly once the last producer is removed")
}

func TestPipeline_StopPipelineClosesAllHandles(t *testing.T) {
	q := queue.New()
	a1 := mockadapter.New("BTC/USDT:USDT").WithStream(exchange.StreamTicker, exchange.CapabilitySupported,
		func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error) {
			return exchange.MapPayload{}, nil
		})
	a2 := mockadapter.New("ETH/USDT:USDT").WithStream(exchange.StreamTicker, exchange.CapabilitySupported,
		func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error) {
			return exchange.MapPayload{}, nil
		})

	p := NewPipeline(q, nil)
	p.AddProducer("binance", "BTC/USDT:USDT", "watchTicker", tickerFetch(a1, "BTC/USDT:USDT"), a1, Config{})
	p.AddProducer("kraken", "ETH/USDT:USDT", "watchTicker", tickerFetch(a2, "ETH/USDT:USDT"), a2, Config{})

	p.StopPipeline(context.Background())

	assert.Equal(t, 1, a1.CloseCalls())
	assert.Equal(t, 1, a2.CloseCalls())
	assert.Empty(t, p.Producers())
}

func TestPipeline_AddProducerIdempotent(t *testing.T) {
	q := queue.New()
	a := mockadapter.New("BTC/USDT:USDT").WithStream(exchange.StreamTicker, exchange.CapabilitySupported,
		func(ctx context.Context, symbol string, options map[string]any) (exchange.Payload, error) {
			return exchange.MapPayload{}, nil
		})

	p := NewPipeline(q, nil)
	p.AddProducer("binance", "BTC/USDT:USDT", "watchTicker", tickerFetch(a, "BTC/USDT:USDT"), a, Config{})
	p.AddProducer("binance", "BTC/USDT:USDT", "watchTicker", tickerFetch(a, "BTC/USDT:USDT"), a, Config{})

	assert.Len(t, p.Producers(), 1)
	require.NoError(t, p.RemoveProducer(context.Background(), "binance", "BTC/USDT:USDT", "watchTicker"))
}
