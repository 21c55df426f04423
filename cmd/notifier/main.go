package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/matchwatch/internal/config"
	"example.com/matchwatch/internal/consumer"
	"example.com/matchwatch/internal/notice"
	"example.com/matchwatch/internal/observability"
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

	if len(cfg.KafkaBrokers) == 0 || cfg.WebhookURL == "" {
		logger.Fatal("notifier requires KAFKA_BROKERS and WEBHOOK_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), httptransport.MetricsMux())
	go func() {
		logger.Info("notifier metrics listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.MatchTopic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	client := halo.NewClient(cfg.HaloAPIURL, cfg.HaloAPIToken, cfg.HaloHTTPTimeout)
	handler := notice.NewHandler(client, notice.NewWebhookNotifier(cfg.WebhookURL), logger.Named("notice"))
	proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger.Named("consumer")))

	logger.Info("notifier started", zap.String("topic", cfg.MatchTopic), zap.String("group", cfg.ConsumerGroupID))
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}
}
