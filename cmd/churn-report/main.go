package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bankinsight/churn-insights/internal/config"
	"github.com/bankinsight/churn-insights/internal/dataset"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/report"
	"github.com/bankinsight/churn-insights/internal/services"
	"github.com/bankinsight/churn-insights/internal/utils"
)

func main() {
	var (
		configPath string
		dataPath   string
		title      string
		order      string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&dataPath, "data", "", "CSV dataset overriding the configured source")
	flag.StringVar(&title, "title", "", "Report title")
	flag.StringVar(&order, "order", string(models.OrderNatural), "Group order: natural or ranked")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger := utils.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)

	groupOrder, ok := engine.ParseOrder(order)
	if !ok {
		logger.Error("unknown group order", slog.String("order", order))
		os.Exit(2)
	}
	if dataPath != "" {
		cfg.Dataset.Path = dataPath
		cfg.Dataset.URL = ""
		cfg.Dataset.PostgresDSN = ""
	}

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

	service := services.NewInsightService(logger, eng, table, services.Options{MinGroupSize: cfg.Dataset.MinGroupSize})
	if err := report.Write(ctx, os.Stdout, service, report.Options{Title: title, Order: groupOrder}); err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
		os.Exit(1)
	}
}
