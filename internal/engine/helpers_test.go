package engine

import (
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bankinsight/churn-insights/internal/datagen"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

var (
	fixtureOnce  sync.Once
	fixtureTable *store.Table
	fixtureErr   error
)

// referenceTable is the calibrated 10,000-row table, built once per test binary.
func referenceTable(t *testing.T) *store.Table {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureTable, fixtureErr = store.FromRecords(datagen.New(datagen.DefaultConfig()).Generate())
	})
	if fixtureErr != nil {
		t.Fatalf("build fixture: %v", fixtureErr)
	}
	return fixtureTable
}

func testEngine() *Engine {
	return New(nil, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

func customer(id string, mutate func(*models.Customer)) models.Customer {
	c := models.Customer{
		CustomerID:        id,
		CreditScore:       650,
		Geography:         "France",
		Gender:            "Female",
		Age:               40,
		Tenure:            3,
		Balance:           decimal.NewFromInt(120000),
		NumOfProducts:     1,
		IsActiveMember:    true,
		EstimatedSalary:   decimal.NewFromInt(50000),
		SatisfactionScore: 3,
	}
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func tableOf(t *testing.T, customers ...models.Customer) *store.Table {
	t.Helper()
	table, err := store.FromRecords(customers)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func within(got, want, tolerance float64) bool {
	return math.Abs(got-want) <= tolerance
}

func rateFor(t *testing.T, stats []models.GroupStat, key string) float64 {
	t.Helper()
	for _, s := range stats {
		if len(s.Keys) == 1 && s.Keys[0] == key {
			return s.ChurnRate
		}
	}
	t.Fatalf("group %q not found in %+v", key, stats)
	return 0
}
