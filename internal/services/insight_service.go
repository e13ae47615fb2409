package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bankinsight/churn-insights/internal/cache"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/insights"
	"github.com/bankinsight/churn-insights/internal/metrics"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
	"github.com/bankinsight/churn-insights/internal/utils"
)

const (
	// DefaultPageSize applies when a records request leaves the page size unset.
	DefaultPageSize = 50
	// MaxPageSize caps a single records page.
	MaxPageSize = 1000
)

var (
	// ErrInvalidRequest marks malformed requests such as bad page tokens.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotReady is returned while no dataset is loaded.
	ErrNotReady = errors.New("dataset not loaded")
)

// Operation names, used for metrics and cache keys.
const (
	OpRecords       = "records"
	OpBreakdown     = "breakdown"
	OpSegments      = "segments"
	OpSummary       = "summary"
	OpInsights      = "insights"
	OpFilterOptions = "filter_options"
)

// Options tunes an InsightService.
type Options struct {
	Cache        cache.Provider
	CacheTTL     time.Duration
	MinGroupSize int
}

// InsightService is the query boundary shared by the gRPC and HTTP surfaces.
// Every result is recomputed over the filtered subset of an immutable
// snapshot; the cache only memoises those recomputations per snapshot.
type InsightService struct {
	logger    *slog.Logger
	engine    *engine.Engine
	analyzer  *insights.Analyzer
	table     *store.Table
	baseline  models.ChurnStats
	cache     cache.Provider
	cacheTTL  time.Duration
	latencies *utils.LatencyTracker
}

// NewInsightService constructs the service facade. A nil table leaves the
// service answering ErrNotReady.
func NewInsightService(logger *slog.Logger, eng *engine.Engine, table *store.Table, opts Options) *InsightService {
	if logger == nil {
		logger = slog.Default()
	}
	if eng == nil {
		eng = engine.New(nil, logger)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	s := &InsightService{
		logger:    logger,
		engine:    eng,
		analyzer:  insights.NewAnalyzer(eng, logger, opts.MinGroupSize),
		table:     table,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
	if table != nil {
		s.baseline = engine.Baseline(table.View())
	}
	return s
}

// Engine exposes the engine backing the service.
func (s *InsightService) Engine() *engine.Engine { return s.engine }

// Records returns one page of the filtered records.
func (s *InsightService) Records(ctx context.Context, req models.RecordsRequest) (resp models.RecordsResponse, err error) {
	defer s.observe(OpRecords, time.Now(), nil, &err)

	view, err := s.filtered(OpRecords, req.Filters)
	if err != nil {
		return models.RecordsResponse{}, err
	}
	size := req.PageSize
	switch {
	case size < 0:
		return models.RecordsResponse{}, utils.NewAppError(OpRecords, "page size must not be negative", ErrInvalidRequest)
	case size == 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	offset, err := s.decodePageToken(req.PageToken)
	if err != nil {
		return models.RecordsResponse{}, utils.NewAppError(OpRecords, "bad page token", err)
	}

	resp = models.RecordsResponse{Records: view.Page(offset, size), Total: view.Len()}
	if next := offset + size; next < view.Len() {
		resp.NextPageToken = s.encodePageToken(next)
	}
	if req.IncludeSummary {
		summary := engine.Summarize(view, &s.baseline)
		resp.Summary = &summary
	}
	if view.Len() == 0 {
		resp.Warning = models.NoData()
	}
	return resp, nil
}

// Breakdown groups the filtered subset by the requested dimensions.
func (s *InsightService) Breakdown(ctx context.Context, req models.BreakdownRequest) (resp models.BreakdownResponse, err error) {
	var hit bool
	defer s.observe(OpBreakdown, time.Now(), &hit, &err)

	order, ok := engine.ParseOrder(string(req.Order))
	if !ok {
		return models.BreakdownResponse{}, utils.NewAppError(OpBreakdown, fmt.Sprintf("unknown order %q", req.Order), ErrInvalidRequest)
	}
	req.Order = order
	return cached(ctx, s, OpBreakdown, req, &hit, func() (models.BreakdownResponse, error) {
		view, err := s.filtered(OpBreakdown, req.Filters)
		if err != nil {
			return models.BreakdownResponse{}, err
		}
		groups, err := s.engine.ChurnRateBy(view, req.Dimensions, order)
		if err != nil {
			return models.BreakdownResponse{}, utils.NewAppError(OpBreakdown, "cannot group", err)
		}
		rate, _ := s.baseline.Rate()
		resp := models.BreakdownResponse{
			Dimensions:        req.Dimensions,
			Order:             order,
			Groups:            groups,
			Total:             view.Len(),
			BaselineChurnRate: rate,
		}
		if view.Len() == 0 {
			resp.Warning = models.NoData()
		}
		return resp, nil
	})
}

// Segments partitions the filtered subset into risk tiers.
func (s *InsightService) Segments(ctx context.Context, req models.SegmentsRequest) (resp models.SegmentReport, err error) {
	var hit bool
	defer s.observe(OpSegments, time.Now(), &hit, &err)

	return cached(ctx, s, OpSegments, req, &hit, func() (models.SegmentReport, error) {
		view, err := s.filtered(OpSegments, req.Filters)
		if err != nil {
			return models.SegmentReport{}, err
		}
		return s.engine.Segments(view), nil
	})
}

// Summary computes the key metrics of the filtered subset against the full-table baseline.
func (s *InsightService) Summary(ctx context.Context, filters models.PredicateSet) (resp models.Summary, err error) {
	var hit bool
	defer s.observe(OpSummary, time.Now(), &hit, &err)

	return cached(ctx, s, OpSummary, filters, &hit, func() (models.Summary, error) {
		view, err := s.filtered(OpSummary, filters)
		if err != nil {
			return models.Summary{}, err
		}
		return engine.Summarize(view, &s.baseline), nil
	})
}

// Insights derives cohort comparisons and the predictor ranking of the filtered subset.
func (s *InsightService) Insights(ctx context.Context, filters models.PredicateSet) (resp models.Findings, err error) {
	var hit bool
	defer s.observe(OpInsights, time.Now(), &hit, &err)

	return cached(ctx, s, OpInsights, filters, &hit, func() (models.Findings, error) {
		view, err := s.filtered(OpInsights, filters)
		if err != nil {
			return models.Findings{}, err
		}
		findings, err := s.analyzer.Analyze(ctx, view)
		if err != nil {
			return models.Findings{}, utils.NewAppError(OpInsights, "analysis failed", err)
		}
		return findings, nil
	})
}

// FilterOptions describes the full table for building filter controls.
func (s *InsightService) FilterOptions(ctx context.Context) (resp models.FilterOptions, err error) {
	defer s.observe(OpFilterOptions, time.Now(), nil, &err)

	if s.table == nil {
		return models.FilterOptions{}, utils.NewAppError(OpFilterOptions, "no dataset", ErrNotReady)
	}
	return s.engine.FilterOptions(s.table.View()), nil
}

// SnapshotID identifies the loaded table, or "" when none is loaded.
func (s *InsightService) SnapshotID() string {
	if s.table == nil {
		return ""
	}
	return s.table.SnapshotID()
}

// LatencyP95 returns the current p95 query latency.
func (s *InsightService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *InsightService) filtered(op string, filters models.PredicateSet) (store.View, error) {
	if s.table == nil {
		return store.View{}, utils.NewAppError(op, "no dataset", ErrNotReady)
	}
	view, err := s.engine.Filter(s.table.View(), filters)
	if err != nil {
		return store.View{}, utils.NewAppError(op, "bad filter", err)
	}
	return view, nil
}

// cached memoises compute under a key derived from the snapshot, operation
// and request. Cache failures are logged and never fail the query.
func cached[T any](ctx context.Context, s *InsightService, op string, req any, hit *bool, compute func() (T, error)) (T, error) {
	var zero T
	if s.table == nil {
		return compute()
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return zero, utils.NewAppError(op, "encode request", err)
	}
	key := cache.Key(s.table.SnapshotID(), op, payload)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var result T
		if err := json.Unmarshal(data, &result); err == nil {
			*hit = true
			return result, nil
		}
		s.logger.Warn("discarding undecodable cache entry", slog.String("operation", op))
		if err := s.cache.Del(ctx, key); err != nil {
			s.logger.Warn("cache evict failed", slog.String("operation", op), slog.Any("error", err))
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache lookup failed", slog.String("operation", op), slog.Any("error", err))
	}

	result, err := compute()
	if err != nil {
		return zero, err
	}
	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("cache store failed", slog.String("operation", op), slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *InsightService) observe(op string, start time.Time, hit *bool, errp *error) {
	duration := time.Since(start)
	outcome := metrics.OutcomeSuccess
	if hit != nil && *hit {
		outcome = metrics.OutcomeCached
	}
	if err := *errp; err != nil {
		outcome = metrics.OutcomeError
		if IsInvalid(err) {
			outcome = metrics.OutcomeInvalid
			s.logger.Debug("query rejected", slog.String("operation", op), slog.Any("error", err))
		} else {
			s.logger.Error("query failed", slog.String("operation", op), slog.Any("error", err))
		}
	}
	metrics.ObserveQuery(op, duration, outcome)
	if *errp != nil {
		return
	}
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("query latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
}

// IsInvalid reports whether err stems from caller input rather than a fault.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, engine.ErrInvalidPredicate) ||
		errors.Is(err, engine.ErrUnknownDimension)
}

func (s *InsightService) encodePageToken(offset int) string {
	raw := s.table.SnapshotID() + ":" + strconv.Itoa(offset)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (s *InsightService) decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: page token is not valid base64", ErrInvalidRequest)
	}
	snapshot, offsetText, ok := strings.Cut(string(raw), ":")
	if !ok || snapshot != s.table.SnapshotID() {
		return 0, fmt.Errorf("%w: page token belongs to another snapshot", ErrInvalidRequest)
	}
	offset, err := strconv.Atoi(offsetText)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: page token offset is malformed", ErrInvalidRequest)
	}
	return offset, nil
}
