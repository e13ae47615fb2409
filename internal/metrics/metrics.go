package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels queries that produced a result, empty ones included.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels queries rejected for bad input.
	OutcomeInvalid = "invalid"
	// OutcomeError labels failed queries.
	OutcomeError = "error"
	// OutcomeCached labels queries answered from the result cache.
	OutcomeCached = "cached"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_insights",
			Name:      "queries_total",
			Help:      "Total number of queries handled, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churn_insights",
			Name:      "query_seconds",
			Help:      "Query latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	datasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "churn_insights",
			Name:      "dataset_rows",
			Help:      "Number of customer records in the loaded snapshot.",
		},
	)

	rowsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_insights",
			Name:      "rows_dropped_total",
			Help:      "Rows rejected during dataset load, partitioned by reason.",
		},
		[]string{"reason"},
	)
)

// Register attaches churn-insights collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		queriesTotal,
		queryDurationSeconds,
		datasetRows,
		rowsDroppedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveQuery records a query duration and outcome label.
func ObserveQuery(operation string, duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeInvalid, OutcomeError, OutcomeCached:
	default:
		outcome = OutcomeSuccess
	}
	queriesTotal.WithLabelValues(operation, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	queryDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDropped counts rows discarded by a load, whether or not it succeeded.
func ObserveDropped(dropped map[string]int) {
	for reason, n := range dropped {
		rowsDroppedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// SetDatasetRows records the size of the snapshot now being served.
func SetDatasetRows(rows int) {
	datasetRows.Set(float64(rows))
}
