// Package runner implements the Pipeline Runner: the single
// orchestration entry point that builds a Registry from configuration,
// starts the Producer Pipeline and Consumer Pipeline, starts the
// Delegator, waits for external shutdown, and releases every resource
// in a guaranteed-release teardown phase.
package runner

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/config"
	"github.com/rishav/crypto-data-collector/internal/consumer"
	"github.com/rishav/crypto-data-collector/internal/delegator"
	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/pipelineerr"
	"github.com/rishav/crypto-data-collector/internal/producer"
	"github.com/rishav/crypto-data-collector/internal/queue"
	"github.com/rishav/crypto-data-collector/internal/ratelimit"
	"github.com/rishav/crypto-data-collector/internal/registry"
)

// AdapterFactories maps an exchange name (as it appears in
// configuration) to the constructor the runner uses to build its
// exchange.Adapter. The runner has no built-in knowledge of any real
// exchange client library — every exchange named in configuration must
// have an entry here, or Build fails with *pipelineerr.ConfigInvalid.
type AdapterFactories map[string]registry.AdapterFactory

// Runner orchestrates one pipeline run: registry, producer pipeline,
// consumer pipeline, and delegator, all sharing one ingress queue.
type Runner struct {
	Registry    *registry.Registry
	Producers   *producer.Pipeline
	Consumers   *consumer.Pipeline
	Delegator   *delegator.Delegator
	Ingress     *queue.Queue
	ProducerCfg producer.Config

	delegatorCancel context.CancelFunc
	log             *logrus.Entry
}

// Build performs steps 1–4 of the Pipeline Runner sequence: constructs
// the ingress queue, builds the Registry by walking cfg, constructs and
// populates the Producer Pipeline, then constructs the Consumer
// Pipeline (without yet starting consumers — callers add their own via
// AddConsumer before calling Start).
// redisClient may be nil; it is only consulted for exchanges whose
// configuration carries a RateLimit block, so a deployment with no
// rate-limited exchanges need not stand up a Redis instance at all.
func Build(ctx context.Context, cfg *config.Config, factories AdapterFactories, producerCfg producer.Config, redisClient redis.Cmdable, log *logrus.Entry) (*Runner, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ingress := queue.New()
	reg := registry.New(log)
	producers := producer.NewPipeline(ingress, log)

	for exchangeName, exCfg := range cfg.Exchanges {
		factory, ok := factories[exchangeName]
		if !ok {
			return nil, &pipelineerr.ConfigInvalid{Reason: "no adapter factory registered for exchange \"" + exchangeName + "\""}
		}
		if err := reg.RegisterExchange(ctx, exchangeName, exCfg.Properties, factory); err != nil {
			return nil, err
		}
		adapter, err := reg.ExchangeObject(exchangeName)
		if err != nil {
			return nil, err
		}

		var limiter *ratelimit.Limiter
		if exCfg.RateLimit != nil {
			if redisClient == nil {
				return nil, &pipelineerr.ConfigInvalid{Reason: "exchange \"" + exchangeName + "\" requests rate limiting but no Redis client was configured"}
			}
			limiter = ratelimit.NewLimiter(redisClient, exCfg.RateLimit.Burst, exCfg.RateLimit.RequestsPerSecond)
		}

		for symbol, symCfg := range exCfg.Symbols {
			if err := reg.RegisterSymbol(exchangeName, symbol); err != nil {
				return nil, err
			}

			for streamName, streamCfg := range symCfg.Streams {
				kind, ok := exchange.ParseStreamKind(streamName)
				if !ok {
					return nil, &pipelineerr.UndefinedStream{Exchange: exchangeName, Stream: streamName}
				}
				if err := reg.RegisterStream(exchangeName, symbol, kind, streamCfg.Options, nil); err != nil {
					return nil, err
				}

				fetch, err := reg.StreamFetch(exchangeName, symbol, streamName)
				if err != nil {
					return nil, err
				}
				bound := producer.FetchFunc(fetch)
				if limiter != nil {
					bound = producer.FetchFunc(ratelimit.Gate(limiter, exchangeName, func(ctx context.Context) (exchange.Payload, error) {
						return fetch(ctx)
					}))
				}
				producers.AddProducer(exchangeName, symbol, streamName, bound, adapter, producerCfg)
			}
		}
	}

	consumers := consumer.NewPipeline(log)

	return &Runner{
		Registry:    reg,
		Producers:   producers,
		Consumers:   consumers,
		Ingress:     ingress,
		ProducerCfg: producerCfg,
		log:         log,
	}, nil
}

// AddConsumer registers and starts a consumer on the runner's Consumer
// Pipeline. Must be called before Start.
func (r *Runner) AddConsumer(c *consumer.Consumer) {
	r.Consumers.AddConsumer(c)
}

// Start performs step 4's remainder: starts the Delegator fanning the
// ingress queue out to every consumer added so far. The Delegator runs
// on its own context, independent of ctx, so that Run can cancel it
// itself once producer teardown has fully completed — see Run.
func (r *Runner) Start(ctx context.Context) {
	delegatorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.delegatorCancel = cancel
	r.Delegator = delegator.New(r.Ingress, r.Consumers, r.log)
	go r.Delegator.Run(delegatorCtx)
}

// Run blocks until ctx is done, then performs the guaranteed-release
// teardown phase in the order step 6 requires: stop all producers
// (closing exchange handles), only then stop the delegator, then stop
// all consumers. The delegator is cancelled after StopPipeline returns
// rather than alongside ctx, so its final drain observes every message
// a producer enqueues while teardown is in flight — cancelling it
// earlier could let it exit before a producer completing an in-flight
// fetch gets the chance to enqueue. Errors during teardown are logged,
// never propagated — matching the runner's contract that teardown
// always completes.
func (r *Runner) Run(ctx context.Context) {
	<-ctx.Done()
	r.log.Info("pipeline runner shutting down")

	teardownCtx := context.Background()
	r.Producers.StopPipeline(teardownCtx)

	if r.delegatorCancel != nil {
		r.delegatorCancel()
	}
	if r.Delegator != nil {
		<-r.Delegator.Done()
	}

	r.Consumers.StopPipeline()
	r.log.Info("pipeline runner shutdown complete")
}
