package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bankinsight/churn-insights/internal/config"
	"github.com/bankinsight/churn-insights/internal/metrics"
	"github.com/bankinsight/churn-insights/internal/repo"
	"github.com/bankinsight/churn-insights/internal/store"
)

// openPostgres is replaced in tests.
var openPostgres = repo.OpenPostgres

// Load builds the customer table from the configured source: a local CSV
// path, an HTTP export, or a Postgres query, in that order of preference.
func Load(ctx context.Context, cfg config.DatasetConfig, logger *slog.Logger) (*store.Table, store.LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := store.ParsePolicy(cfg.InvalidRows)
	if err != nil {
		return nil, store.LoadReport{}, err
	}
	opts := store.Options{Policy: policy, Logger: logger}

	var (
		table  *store.Table
		report store.LoadReport
		origin string
	)
	switch {
	case cfg.Path != "":
		origin = cfg.Path
		table, report, err = loadFile(ctx, cfg.Path, opts)
	case cfg.URL != "":
		origin = cfg.URL
		table, report, err = loadURL(ctx, cfg, opts)
	case cfg.PostgresDSN != "":
		origin = "postgres"
		table, report, err = loadPostgres(ctx, cfg, opts)
	default:
		return nil, store.LoadReport{}, errors.New("no dataset source configured")
	}

	metrics.ObserveDropped(reasonCounts(report))
	if err != nil {
		return nil, report, fmt.Errorf("load %s: %w", origin, err)
	}
	metrics.SetDatasetRows(table.Size())
	logger.Info("dataset loaded",
		slog.String("source", origin),
		slog.String("snapshot_id", table.SnapshotID()),
		slog.Int("rows", report.Rows),
		slog.Int("accepted", report.Accepted),
		slog.Int("dropped", report.Dropped),
		slog.Duration("duration", report.Duration),
	)
	return table, report, nil
}

func loadFile(ctx context.Context, path string, opts store.Options) (*store.Table, store.LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, store.LoadReport{}, err
	}
	defer f.Close()
	return store.Load(ctx, store.NewCSVSource(f), opts)
}

func loadURL(ctx context.Context, cfg config.DatasetConfig, opts store.Options) (*store.Table, store.LoadReport, error) {
	src, err := repo.NewDatasetClient(cfg.URL, cfg.FetchTimeout).Fetch(ctx)
	if err != nil {
		return nil, store.LoadReport{}, err
	}
	return store.Load(ctx, src, opts)
}

func loadPostgres(ctx context.Context, cfg config.DatasetConfig, opts store.Options) (*store.Table, store.LoadReport, error) {
	db, err := openPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, store.LoadReport{}, err
	}
	defer db.Close()
	return loadQuery(ctx, db, cfg.PostgresQuery, opts)
}

func loadQuery(ctx context.Context, db *sql.DB, query string, opts store.Options) (*store.Table, store.LoadReport, error) {
	src, err := repo.NewPostgresSource(ctx, db, query)
	if err != nil {
		return nil, store.LoadReport{}, err
	}
	defer src.Close()
	return store.Load(ctx, src, opts)
}

func reasonCounts(report store.LoadReport) map[string]int {
	out := make(map[string]int, len(report.DroppedByReason))
	for reason, n := range report.DroppedByReason {
		out[string(reason)] = n
	}
	return out
}
