package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bankinsight/churn-insights/internal/api"
	"github.com/bankinsight/churn-insights/internal/cache"
	"github.com/bankinsight/churn-insights/internal/config"
	"github.com/bankinsight/churn-insights/internal/dataset"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/httpapi"
	"github.com/bankinsight/churn-insights/internal/metrics"
	"github.com/bankinsight/churn-insights/internal/services"
	"github.com/bankinsight/churn-insights/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting churn-insights", slog.String("grpc", cfg.Server.Address), slog.String("http", cfg.Server.HTTPAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := newCacheProvider(cfg.Cache, logger)
	defer cacheProvider.Close()

	eng, err := engine.NewEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, _, err := dataset.Load(ctx, cfg.Dataset, logger)
	if err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}

	service := services.NewInsightService(logger, eng, table, services.Options{
		Cache:        cacheProvider,
		CacheTTL:     cfg.Cache.ResultTTL,
		MinGroupSize: cfg.Dataset.MinGroupSize,
	})

	server, err := api.NewServer(cfg.Server, api.NewHandler(service, logger))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      httpapi.Handler(service, logger, cfg.Server.CORSOrigins),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	for name, srv := range map[string]*http.Server{"http": httpServer, "metrics": metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("server shutdown", slog.String("server", name), slog.Any("error", err))
		}
	}

	logger.Info("churn-insights stopped", slog.Duration("p95_latency", service.LatencyP95()))
}

func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Backend {
	case config.CacheMemory:
		return cache.NewMemoryProvider()
	case config.CacheRedis:
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, results will not be cached", slog.Any("error", err))
			return cache.NoopProvider{}
		}
		return provider
	default:
		return cache.NoopProvider{}
	}
}
