package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bankinsight/churn-insights/internal/datagen"
	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/services"
	"github.com/bankinsight/churn-insights/internal/store"
)

func fixtureService(t *testing.T) *services.InsightService {
	t.Helper()
	table, err := store.FromRecords(datagen.New(datagen.DefaultConfig()).Generate())
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return services.NewInsightService(nil, engine.New(nil, nil), table, services.Options{})
}

func fixedClock() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

func TestWriteFullReport(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(context.Background(), &buf, fixtureService(t), Options{Now: fixedClock}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Customer Churn Report",
		"Generated 2024-05-01T09:00:00Z",
		"| Churn rate | 24.4% |",
		"| Average products per customer | ",
		"### Complaints",
		"| Filed Complaints | 1250 | 1125 | 90.0% |",
		"### Satisfaction Score",
		"| 2 | 1000 | 550 | 55.0% |",
		"| Low | 1000 | 347 | 34.7% |",
		"| Critical | 1000 | 10.0% |",
		"## Findings",
		"Filed Complaints churn at 90.0%",
		"### Strongest predictors",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report misses %q:\n%s", want, out)
		}
	}
}

func TestWriteEmptySubset(t *testing.T) {
	floor := 119.0
	var buf bytes.Buffer
	err := Write(context.Background(), &buf, fixtureService(t), Options{
		Title:   "Centenarians",
		Filters: models.PredicateSet{{Field: "age", Min: &floor}},
		Now:     fixedClock,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# Centenarians") || !strings.Contains(out, "No customers match") {
		t.Fatalf("expected empty-subset notice:\n%s", out)
	}
	if strings.Contains(out, "## Churn by dimension") {
		t.Fatalf("empty report must not render breakdowns")
	}
}

func TestWriteRejectsBadFilters(t *testing.T) {
	err := Write(context.Background(), &bytes.Buffer{}, fixtureService(t), Options{
		Filters: models.PredicateSet{{Field: "zodiac", In: []string{"leo"}}},
	})
	if !services.IsInvalid(err) {
		t.Fatalf("expected invalid filter error, got %v", err)
	}
}
