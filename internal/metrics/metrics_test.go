package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProducerState_UpdatesGauges(t *testing.T) {
	RecordProducerState("binance|BTC/USDT:USDT|watchTicker", "BACKOFF", 2, 2.0, "transient")

	assert.Equal(t, float64(2), testutil.ToFloat64(producerTries.WithLabelValues("binance|BTC/USDT:USDT|watchTicker")))
	assert.Equal(t, float64(2), testutil.ToFloat64(producerBackoffSeconds.WithLabelValues("binance|BTC/USDT:USDT|watchTicker")))
	assert.Equal(t, float64(1), testutil.ToFloat64(producerErrorsTotal.WithLabelValues("binance|BTC/USDT:USDT|watchTicker", "transient")))
}

func TestIncDelegatorDispatched_Counts(t *testing.T) {
	IncDelegatorDispatched("archival_storage")
	IncDelegatorDispatched("archival_storage")
	assert.Equal(t, float64(2), testutil.ToFloat64(delegatorDispatchedTotal.WithLabelValues("archival_storage")))
}

func TestIncExchangeHandleClosed_Counts(t *testing.T) {
	IncExchangeHandleClosed("kraken-test-exchange")
	assert.Equal(t, float64(1), testutil.ToFloat64(exchangeHandlesClosedTotal.WithLabelValues("kraken-test-exchange")))
}

func TestSetQueueDepth_Reports(t *testing.T) {
	SetQueueDepth("ingress-test-queue", 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(queueDepth.WithLabelValues("ingress-test-queue")))
}
