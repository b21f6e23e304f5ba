package delegator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/crypto-data-collector/internal/consumer"
	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/queue"
)

func recordingConsumer(name string) (*consumer.Consumer, func() []map[string]any) {
	var mu sync.Mutex
	var received []map[string]any
	c := consumer.New(name, func(ctx context.Context, message map[string]any) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, message)
		return nil
	}, nil)
	get := func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		out := make([]map[string]any, len(received))
		copy(out, received)
		return out
	}
	return c, get
}

// S1 — metadata injection, dict payload.
func TestDelegator_S1_DictPayloadEnvelope(t *testing.T) {
	ingress := queue.New()
	env, ok := exchange.BuildEnvelope("binance|BTC/USDT:USDT|watchTicker", exchange.MapPayload{"bid": 100, "ask": 101})
	require.True(t, ok)
	ingress.Put(env)

	cp := consumer.NewPipeline(nil)
	c, get := recordingConsumer("a")
	cp.AddConsumer(c)

	d := New(ingress, cp, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	require.Eventually(t, func() bool { return len(get()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, map[string]any{"bid": 100, "ask": 101, "producer": "binance|BTC/USDT:USDT|watchTicker"}, get()[0])
}

// S2 — metadata injection, list payload.
func TestDelegator_S2_SeqPayloadEnvelope(t *testing.T) {
	ingress := queue.New()
	env, ok := exchange.BuildEnvelope("binance|BTC/USDT:USDT|watchTicker", exchange.SeqPayload{[]any{1, 2, 3, 4}})
	require.True(t, ok)
	ingress.Put(env)

	cp := consumer.NewPipeline(nil)
	c, get := recordingConsumer("a")
	cp.AddConsumer(c)

	d := New(ingress, cp, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	require.Eventually(t, func() bool { return len(get()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, map[string]any{
		"data":     exchange.SeqPayload{[]any{1, 2, 3, 4}},
		"producer": "binance|BTC/USDT:USDT|watchTicker",
	}, get()[0])
}

// S3 — fan-out to two consumers.
func TestDelegator_S3_FanOut(t *testing.T) {
	ingress := queue.New()
	cp := consumer.NewPipeline(nil)
	a, getA := recordingConsumer("a")
	b, getB := recordingConsumer("b")
	cp.AddConsumer(a)
	cp.AddConsumer(b)

	d := New(ingress, cp, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < 3; i++ {
		ingress.Put(map[string]any{"n": i})
	}

	require.Eventually(t, func() bool { return len(getA()) == 3 && len(getB()) == 3 }, time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, getA()[i]["n"])
		assert.Equal(t, i, getB()[i]["n"])
	}
}

// S6 — cancellation drain: messages already queued must still be
// delivered to every currently registered consumer before exit.
func TestDelegator_S6_CancellationDrain(t *testing.T) {
	ingress := queue.New()
	cp := consumer.NewPipeline(nil)
	a, getA := recordingConsumer("a")
	cp.AddConsumer(a)

	ingress.Put(map[string]any{"n": 1})
	ingress.Put(map[string]any{"n": 2})
	ingress.Put(map[string]any{"n": 3})

	d := New(ingress, cp, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel before Run even starts its first Get

	d.Run(ctx)

	require.Eventually(t, func() bool { return len(getA()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []map[string]any{{"n": 1}, {"n": 2}, {"n": 3}}, getA())
}

func TestDelegator_UnknownItemTypeDropped(t *testing.T) {
	ingress := queue.New()
	ingress.Put("not-an-envelope")
	cp := consumer.NewPipeline(nil)
	a, getA := recordingConsumer("a")
	cp.AddConsumer(a)

	d := New(ingress, cp, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	assert.Empty(t, getA())
}
