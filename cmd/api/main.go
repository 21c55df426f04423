package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/matchwatch/internal/api"
	"example.com/matchwatch/internal/auth"
	"example.com/matchwatch/internal/config"
	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/observability"
	"example.com/matchwatch/internal/persistence"
	httptransport "example.com/matchwatch/internal/transport/http"
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

	handler := api.NewHandler(domain.NewService(store), logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.SkipHealth)

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", authMiddleware.Wrap(mux))

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.RequestLogger(logger.Named("http"), root))

	go func() {
		logger.Info("roster api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
