// Package metrics exposes Prometheus instrumentation for the
// producer/consumer supervision core: status gauges per producer,
// backoff/error counters, ingress/consumer queue depth gauges, and a
// delegator dispatch counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crypto_collector_producer_status",
		Help: "current producer status, one-hot per (producer, status) label pair",
	}, []string{"producer", "status"})

	producerTries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crypto_collector_producer_consecutive_failures",
		Help: "current consecutive transient-failure count for a producer",
	}, []string{"producer"})

	producerBackoffSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crypto_collector_producer_backoff_seconds",
		Help: "current backoff interval in seconds for a producer in BACKOFF state",
	}, []string{"producer"})

	producerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crypto_collector_producer_errors_total",
		Help: "counter of producer errors observed, by producer and terminal/transient classification",
	}, []string{"producer", "class"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crypto_collector_queue_depth",
		Help: "number of buffered items on a named queue (ingress or a consumer's private queue)",
	}, []string{"queue"})

	delegatorDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crypto_collector_delegator_dispatched_total",
		Help: "counter of envelopes the delegator has dispatched to a consumer's private queue",
	}, []string{"consumer"})

	exchangeHandlesClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crypto_collector_exchange_handles_closed_total",
		Help: "counter of exchange adapter handles closed after their last producer was removed",
	}, []string{"exchange"})
)

// RecordProducerState updates the per-producer status/tries/backoff
// gauges and, for BACKOFF/ERRORED transitions, the error counter. It
// is wired as a producer.Config.OnTransition hook.
func RecordProducerState(identity, status string, tries int, backoffSeconds float64, class string) {
	producerStatus.WithLabelValues(identity, status).Set(1)
	producerTries.WithLabelValues(identity).Set(float64(tries))
	producerBackoffSeconds.WithLabelValues(identity).Set(backoffSeconds)
	if class != "" {
		producerErrorsTotal.WithLabelValues(identity, class).Inc()
	}
}

// SetQueueDepth records the current buffered length of a named queue.
func SetQueueDepth(queueName string, depth int) {
	queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// IncDelegatorDispatched increments the dispatch counter for a
// consumer by one.
func IncDelegatorDispatched(consumerName string) {
	delegatorDispatchedTotal.WithLabelValues(consumerName).Inc()
}

// IncExchangeHandleClosed increments the exchange-handle-closed
// counter for an exchange by one.
func IncExchangeHandleClosed(exchangeName string) {
	exchangeHandlesClosedTotal.WithLabelValues(exchangeName).Inc()
}
