// Command collector runs the market-data ingestion pipeline as a
// standalone process: it loads configuration, builds the registry and
// producer/consumer pipelines, starts a health/metrics HTTP endpoint,
// and shuts everything down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rishav/crypto-data-collector/internal/config"
	"github.com/rishav/crypto-data-collector/internal/consumer"
	"github.com/rishav/crypto-data-collector/internal/exchange"
	"github.com/rishav/crypto-data-collector/internal/exchange/mockadapter"
	"github.com/rishav/crypto-data-collector/internal/logging"
	"github.com/rishav/crypto-data-collector/internal/metrics"
	"github.com/rishav/crypto-data-collector/internal/producer"
	"github.com/rishav/crypto-data-collector/internal/runner"
	"github.com/rishav/crypto-data-collector/internal/statuslog"
)

type options struct {
	Config       string        `long:"config" description:"path to the pipeline YAML configuration file" default:""`
	Addr         string        `long:"addr" description:"address the health/metrics HTTP server listens on" default:":9090"`
	LogLevel     string        `long:"log-level" description:"logrus level name (debug, info, warn, error)" default:"info"`
	LogFile      string        `long:"log-file" description:"optional file path to additionally log to"`
	ShutdownWait time.Duration `long:"shutdown-timeout" description:"maximum time to wait for teardown on shutdown" default:"10s"`
	RedisAddr    string        `long:"redis-addr" description:"address of the Redis instance backing per-exchange rate limiting, required only if the configuration sets a rateLimit block"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", opts.LogLevel, err)
		os.Exit(1)
	}
	logger, err := logging.Setup(logging.Options{Level: &level, Console: true, FilePath: opts.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	instanceID := uuid.NewString()
	log := logger.WithField("instance", instanceID)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	statusLog := statuslog.New(log, statuslog.Config{})
	defer statusLog.Close()

	onTransition := func(identity string, state producer.State) {
		class := ""
		if state.Status == producer.Errored {
			class = "fatal"
		} else if state.Status == producer.Backoff {
			class = "transient"
		}
		metrics.RecordProducerState(identity, state.Status.String(), state.Tries, state.Timeout.Seconds(), class)
		statusLog.Record(statuslog.Transition{
			Component: "producer",
			Identity:  identity,
			Status:    state.Status.String(),
			Tries:     state.Tries,
			Timeout:   state.Timeout,
			LastError: state.LastError,
			At:        state.Since,
		})
	}

	factories := runner.AdapterFactories{}
	for exchangeName := range cfg.Exchanges {
		factories[exchangeName] = demoAdapterFactory(cfg, exchangeName)
	}

	var redisClient redis.Cmdable
	if opts.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	}

	ctx, cancel := context.WithCancel(context.Background())

	r, err := runner.Build(ctx, cfg, factories, producer.Config{OnTransition: onTransition}, redisClient, log)
	if err != nil {
		cancel()
		log.WithError(err).Fatal("failed to build pipeline")
	}

	r.AddConsumer(consumer.New("stdout-sink", func(ctx context.Context, message map[string]any) error {
		log.WithField("message", message).Info("dispatched message")
		return nil
	}, log))

	r.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: opts.Addr, Handler: mux}

	go func() {
		log.WithField("addr", opts.Addr).Info("health/metrics server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health/metrics server stopped unexpectedly")
		}
	}()

	runDone := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(runDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opts.ShutdownWait)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	select {
	case <-runDone:
		log.Info("pipeline teardown complete")
	case <-shutdownCtx.Done():
		log.Warn("pipeline teardown did not complete within the shutdown timeout")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// demoAdapterFactory builds a mockadapter.Adapter supporting every
// symbol/stream named for exchangeName in cfg. There is no real
// exchange websocket client library wired into this module; a
// production deployment supplies its own runner.AdapterFactories
// implementing exchange.Adapter against an actual venue.
func demoAdapterFactory(cfg *config.Config, exchangeName string) func(overrides map[string]any) (exchange.Adapter, error) {
	return func(overrides map[string]any) (exchange.Adapter, error) {
		exCfg := cfg.Exchanges[exchangeName]
		symbols := make([]string, 0, len(exCfg.Symbols))
		for symbol := range exCfg.Symbols {
			symbols = append(symbols, symbol)
		}
		adapter := mockadapter.New(symbols...)
		for symbol, symCfg := range exCfg.Symbols {
			for streamName := range symCfg.Streams {
				kind, ok := exchange.ParseStreamKind(streamName)
				if !ok {
					continue
				}
				adapter.WithStream(kind, exchange.CapabilitySupported, demoFetch(symbol))
			}
		}
		return adapter, nil
	}
}

func demoFetch(symbol string) mockadapter.FetchFunc {
	return func(ctx context.Context, sym string, options map[string]any) (exchange.Payload, error) {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return exchange.MapPayload{"symbol": symbol, "ts": time.Now().UTC().Format(time.RFC3339)}, nil
	}
}
