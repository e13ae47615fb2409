package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankinsight/churn-insights/internal/datagen"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/services"
	"github.com/bankinsight/churn-insights/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	table, err := store.FromRecords(datagen.New(datagen.DefaultConfig()).Generate())
	require.NoError(t, err)
	service := services.NewInsightService(nil, engine.New(nil, nil), table, services.Options{})
	return Handler(service, nil, nil)
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(t), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot_id")

	loading := Handler(services.NewInsightService(nil, nil, nil, services.Options{}), nil, nil)
	rec = get(t, loading, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBreakdownRoute(t *testing.T) {
	var resp models.BreakdownResponse
	rec := get(t, newTestRouter(t), "/api/v1/breakdown/satisfaction_score?order=ranked", &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, models.OrderRanked, resp.Order)
	require.Len(t, resp.Groups, 5)
	assert.Equal(t, "2", resp.Groups[0].Keys[0])
	assert.InDelta(t, 0.55, resp.Groups[0].ChurnRate, 0.02)
	assert.InDelta(t, 0.244, resp.BaselineChurnRate, 0.001)
}

func TestBreakdownMultipleDimensionsWithFilter(t *testing.T) {
	var resp models.BreakdownResponse
	rec := get(t, newTestRouter(t), "/api/v1/breakdown/complain,balance_tier?credit_score=..600", &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, g := range resp.Groups {
		assert.Len(t, g.Keys, 2)
		assert.Positive(t, g.Count)
	}
	assert.Less(t, resp.Total, 10000)
}

func TestRecordsRoute(t *testing.T) {
	var resp models.RecordsResponse
	rec := get(t, newTestRouter(t), "/api/v1/records?geography=Spain&age=30..40&page_size=10&summary=true", &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Len(t, resp.Records, 10)
	assert.NotEmpty(t, resp.NextPageToken)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, resp.Total, resp.Summary.Count)
	for _, c := range resp.Records {
		assert.Equal(t, "Spain", c.Geography)
		assert.GreaterOrEqual(t, c.Age, 30)
		assert.LessOrEqual(t, c.Age, 40)
	}

	var next models.RecordsResponse
	rec = get(t, newTestRouter(t), "/api/v1/records?page_token="+url.QueryEscape(resp.NextPageToken), &next)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "tokens are bound to the snapshot that issued them")
}

func TestSegmentsSummaryInsightsFilters(t *testing.T) {
	router := newTestRouter(t)

	var segments models.SegmentReport
	require.Equal(t, http.StatusOK, get(t, router, "/api/v1/segments", &segments).Code)
	assert.Equal(t, 10000, segments.Total)
	require.Len(t, segments.Tiers, 3)
	assert.Equal(t, 1000, segments.Tiers[0].Count)

	var summary models.Summary
	require.Equal(t, http.StatusOK, get(t, router, "/api/v1/summary?complain=1", &summary).Code)
	require.NotNil(t, summary.ChurnRate)
	assert.InDelta(t, 0.9, *summary.ChurnRate, 0.001)

	var findings models.Findings
	require.Equal(t, http.StatusOK, get(t, router, "/api/v1/insights", &findings).Code)
	require.NotEmpty(t, findings.Predictors)
	assert.Equal(t, engine.DimComplain, findings.Predictors[0].Dimension)

	var opts models.FilterOptions
	require.Equal(t, http.StatusOK, get(t, router, "/api/v1/filters", &opts).Code)
	assert.Equal(t, []string{"France", "Germany", "Spain"}, opts.Geographies)
}

func TestEmptySubsetIsNotAnError(t *testing.T) {
	var resp models.SegmentReport
	rec := get(t, newTestRouter(t), "/api/v1/segments?age=100..", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Warning)
	assert.Equal(t, "no data", resp.Warning.Reason)
}

func TestErrorStatuses(t *testing.T) {
	router := newTestRouter(t)
	cases := map[string]int{
		"/api/v1/breakdown/zodiac":                   http.StatusNotFound,
		"/api/v1/breakdown/complain?order=sideways":  http.StatusBadRequest,
		"/api/v1/summary?shoe_size=9":                http.StatusBadRequest,
		"/api/v1/summary?age=sixty..":                http.StatusBadRequest,
		"/api/v1/segments?credit_score=800..300":     http.StatusBadRequest,
		"/api/v1/records?page_size=lots":             http.StatusBadRequest,
		"/api/v1/records?page_token=bm90LWEtdG9rZW4": http.StatusBadRequest,
	}
	for target, want := range cases {
		rec := get(t, router, target, nil)
		assert.Equal(t, want, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "error", target)
	}
}

func TestCORSPreflight(t *testing.T) {
	table, err := store.FromRecords(datagen.New(datagen.DefaultConfig()).Generate())
	require.NoError(t, err)
	router := Handler(services.NewInsightService(nil, nil, table, services.Options{}), nil, []string{"https://dashboard.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/segments", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParsePredicates(t *testing.T) {
	set, err := parsePredicates(url.Values{
		"age":       {"30..40"},
		"balance":   {"..1000"},
		"geography": {"France, Spain"},
		"order":     {"ranked"},
	})
	require.NoError(t, err)
	require.Len(t, set, 3)

	assert.Equal(t, "age", set[0].Field)
	assert.Equal(t, 30.0, *set[0].Min)
	assert.Equal(t, 40.0, *set[0].Max)
	assert.Nil(t, set[1].Min)
	assert.Equal(t, 1000.0, *set[1].Max)
	assert.Equal(t, []string{"France", "Spain"}, set[2].In)
}
