package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/bankinsight/churn-insights/internal/cache"
	"github.com/bankinsight/churn-insights/internal/datagen"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
	"github.com/bankinsight/churn-insights/internal/utils"
)

func newTestService(t *testing.T, opts Options) *InsightService {
	t.Helper()
	table, err := store.FromRecords(datagen.New(datagen.DefaultConfig()).Generate())
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return NewInsightService(nil, engine.New(nil, nil), table, opts)
}

func ptr(v float64) *float64 { return &v }

func TestRecordsPaging(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()
	filters := models.PredicateSet{{Field: "geography", In: []string{"Germany"}}}

	first, err := service.Records(ctx, models.RecordsRequest{Filters: filters, PageSize: 400, IncludeSummary: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Records) != 400 || first.NextPageToken == "" {
		t.Fatalf("expected a full first page with a token, got %d records", len(first.Records))
	}
	if first.Summary == nil || first.Summary.Count != first.Total {
		t.Fatalf("expected summary over the filtered subset, got %+v", first.Summary)
	}

	seen := 0
	token := ""
	ids := make(map[string]struct{})
	for {
		page, err := service.Records(ctx, models.RecordsRequest{Filters: filters, PageSize: 400, PageToken: token})
		if err != nil {
			t.Fatalf("page at %d: %v", seen, err)
		}
		for _, r := range page.Records {
			if r.Geography != "Germany" {
				t.Fatalf("record %s escaped the filter", r.CustomerID)
			}
			ids[r.CustomerID] = struct{}{}
		}
		seen += len(page.Records)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	if seen != first.Total || len(ids) != first.Total {
		t.Fatalf("paged %d records (%d unique), total %d", seen, len(ids), first.Total)
	}
}

func TestRecordsRejectsBadInput(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()

	cases := map[string]models.RecordsRequest{
		"negative page size": {PageSize: -1},
		"garbage token":      {PageToken: "!!!"},
		"foreign snapshot":   {PageToken: "c25hcC0xOjEw"},
		"bad predicate":      {Filters: models.PredicateSet{{Field: "age", Min: ptr(50), Max: ptr(20)}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := service.Records(ctx, req)
			if !IsInvalid(err) {
				t.Fatalf("expected invalid request error, got %v", err)
			}
			var appErr *utils.AppError
			if !errors.As(err, &appErr) || appErr.Op != OpRecords {
				t.Fatalf("expected AppError for %s, got %v", OpRecords, err)
			}
		})
	}
}

func TestRecordsEmptySubset(t *testing.T) {
	service := newTestService(t, Options{})
	resp, err := service.Records(context.Background(), models.RecordsRequest{
		Filters:        models.PredicateSet{{Field: "age", Min: ptr(110)}},
		IncludeSummary: true,
	})
	if err != nil {
		t.Fatalf("empty subset is not an error: %v", err)
	}
	if resp.Total != 0 || resp.Warning == nil || resp.NextPageToken != "" {
		t.Fatalf("expected empty page with warning, got %+v", resp)
	}
	if resp.Summary.ChurnRate != nil {
		t.Fatalf("expected undefined churn rate, got %v", *resp.Summary.ChurnRate)
	}
}

func TestBreakdownRecomputesOverSubset(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()

	full, err := service.Breakdown(ctx, models.BreakdownRequest{Dimensions: []string{engine.DimComplain}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full.Total != 10000 || full.Order != models.OrderNatural {
		t.Fatalf("unexpected breakdown header %+v", full)
	}

	subset, err := service.Breakdown(ctx, models.BreakdownRequest{
		Filters:    models.PredicateSet{{Field: "satisfaction_score", In: []string{"5"}}},
		Dimensions: []string{engine.DimComplain},
		Order:      models.OrderRanked,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subset.Total != 2000 {
		t.Fatalf("expected 2000 satisfied customers, got %d", subset.Total)
	}
	if len(subset.Groups) != 1 || subset.Groups[0].Keys[0] != "0" {
		t.Fatalf("expected only non-complainers among satisfied customers, got %+v", subset.Groups)
	}
	if subset.Groups[0].ChurnRate != 0.08 {
		t.Fatalf("expected 8%% churn, got %v", subset.Groups[0].ChurnRate)
	}
	if subset.BaselineChurnRate != full.BaselineChurnRate {
		t.Fatalf("baseline must come from the full table")
	}
}

func TestBreakdownRejectsBadInput(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()
	cases := map[string]models.BreakdownRequest{
		"unknown dimension": {Dimensions: []string{"zodiac"}},
		"no dimensions":     {},
		"unknown order":     {Dimensions: []string{engine.DimGeography}, Order: "sideways"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := service.Breakdown(ctx, req); !IsInvalid(err) {
				t.Fatalf("expected invalid request error, got %v", err)
			}
		})
	}
}

func TestSegmentsAndSummary(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()

	report, err := service.Segments(ctx, models.SegmentsRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != 10000 || report.Tiers[0].Count != 1000 {
		t.Fatalf("unexpected segment report %+v", report)
	}

	summary, err := service.Summary(ctx, models.PredicateSet{{Field: "complain", In: []string{"yes"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Count != 1250 || *summary.ChurnRate != 0.9 {
		t.Fatalf("unexpected complainer summary %+v", summary)
	}
	if d := *summary.DeltaFromBaseline; d < 0.65 || d > 0.66 {
		t.Fatalf("expected delta of about 65.6 points, got %v", d)
	}
}

func TestInsightsAndFilterOptions(t *testing.T) {
	service := newTestService(t, Options{})
	ctx := context.Background()

	findings, err := service.Insights(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings.Predictors) == 0 || findings.Predictors[0].Dimension != engine.DimComplain {
		t.Fatalf("expected complaints to lead the predictors, got %+v", findings.Predictors)
	}

	opts, err := service.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.TotalRecords != 10000 {
		t.Fatalf("expected options over the full table, got %d", opts.TotalRecords)
	}
}

func TestCacheHitReturnsIdenticalPayload(t *testing.T) {
	provider := cache.NewMemoryProvider()
	service := newTestService(t, Options{Cache: provider})
	ctx := context.Background()
	req := models.BreakdownRequest{Dimensions: []string{engine.DimSatisfaction, engine.DimBalanceTier}, Order: models.OrderRanked}

	first, err := service.Breakdown(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.Breakdown(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached payload differs from computed one")
	}

	payload, _ := json.Marshal(models.SegmentsRequest{})
	key := cache.Key(service.SnapshotID(), OpSegments, payload)
	planted, _ := json.Marshal(models.SegmentReport{Total: -1})
	if err := provider.Set(ctx, key, planted, 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	report, err := service.Segments(ctx, models.SegmentsRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != -1 {
		t.Fatalf("expected segments to be served from the cache")
	}
}

func TestUndecodableCacheEntryIsRecomputed(t *testing.T) {
	provider := cache.NewMemoryProvider()
	service := newTestService(t, Options{Cache: provider})
	ctx := context.Background()

	payload, _ := json.Marshal(models.PredicateSet(nil))
	key := cache.Key(service.SnapshotID(), OpSummary, payload)
	if err := provider.Set(ctx, key, []byte("{not json"), 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	summary, err := service.Summary(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Count != 10000 {
		t.Fatalf("expected a recomputed summary, got %d rows", summary.Count)
	}
	data, err := provider.Get(ctx, key)
	if err != nil {
		t.Fatalf("expected the recomputed summary to be cached: %v", err)
	}
	var stored models.Summary
	if err := json.Unmarshal(data, &stored); err != nil || stored.Count != 10000 {
		t.Fatalf("expected a decodable entry, got %q", data)
	}
}

func TestServiceWithoutDataset(t *testing.T) {
	service := NewInsightService(nil, nil, nil, Options{})
	ctx := context.Background()

	if _, err := service.Segments(ctx, models.SegmentsRequest{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if _, err := service.FilterOptions(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if service.SnapshotID() != "" {
		t.Fatalf("expected no snapshot id")
	}
}
