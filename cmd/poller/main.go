package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"example.com/matchwatch/internal/config"
	"example.com/matchwatch/internal/observability"
	"example.com/matchwatch/internal/persistence"
	"example.com/matchwatch/internal/poller"
	"example.com/matchwatch/internal/sink"
	httptransport "example.com/matchwatch/internal/transport/http"
	"example.com/matchwatch/internal/upstream/halo"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := persistence.Open(ctx, cfg.RosterDSN)
	if err != nil {
		logger.Fatal("failed to open roster store", zap.Error(err))
	}
	defer closeStore()

	client := halo.NewClient(cfg.HaloAPIURL, cfg.HaloAPIToken, cfg.HaloHTTPTimeout)

	p := poller.New(store, client,
		poller.WithInterval(cfg.PollInterval),
		poller.WithMaxConcurrency(cfg.PollMaxConcurrency),
		poller.WithFetchTimeout(cfg.PollFetchTimeout),
		poller.WithBuffer(cfg.PollBuffer),
		poller.WithLogger(logger.Named("poller")),
	)

	var out sink.Sink = sink.NewLogSink(logger.Named("sink"))
	if len(cfg.KafkaBrokers) > 0 {
		producer := sink.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		var registry *sink.SchemaRegistryClient
		if cfg.SchemaRegistryURL != "" {
			registry = sink.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		}
		out = newKafkaSink(producer, registry, cfg.MatchTopic)
	}

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), httptransport.MetricsMux())
	go func() {
		logger.Info("poller metrics listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Deliveries use a fresh context so records already emitted are flushed on shutdown.
		sink.Drain(context.Background(), p.Records(), out, logger.Named("sink"))
	}()

	logger.Info("poller started",
		zap.Duration("interval", cfg.PollInterval),
		zap.Int("max_concurrency", cfg.PollMaxConcurrency),
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0))

	go p.Start(ctx)

	<-ctx.Done()
	logger.Info("poller shutdown requested")

	p.Wait()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}
}

// newKafkaSink avoids handing a typed nil registry to the sink.
func newKafkaSink(producer *sink.KafkaProducer, registry *sink.SchemaRegistryClient, topic string) *sink.KafkaSink {
	if registry == nil {
		return sink.NewKafkaSink(producer, nil, topic)
	}
	return sink.NewKafkaSink(producer, registry, topic)
}
