package insights

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

// DefaultMinGroupSize keeps tiny groups from dominating the predictor ranking.
const DefaultMinGroupSize = 30

// cohortPair names two complementary filters whose churn rates are compared.
type cohortPair struct {
	name      string
	cohort    string
	filter    models.PredicateSet
	reference string
	refFilter models.PredicateSet
}

func rng(min, max float64) (*float64, *float64) { return &min, &max }

func comparisons() []cohortPair {
	lowMin, lowMax := rng(1, 2)
	highMin, highMax := rng(4, 5)
	return []cohortPair{
		{
			name:      "complaint_impact",
			cohort:    "Filed Complaints",
			filter:    models.PredicateSet{{Field: "complain", In: []string{"1"}}},
			reference: "No Complaints",
			refFilter: models.PredicateSet{{Field: "complain", In: []string{"0"}}},
		},
		{
			name:      "satisfaction_impact",
			cohort:    "Low Satisfaction (1-2)",
			filter:    models.PredicateSet{{Field: "satisfaction_score", Min: lowMin, Max: lowMax}},
			reference: "High Satisfaction (4-5)",
			refFilter: models.PredicateSet{{Field: "satisfaction_score", Min: highMin, Max: highMax}},
		},
		{
			name:      "activity_impact",
			cohort:    "Inactive",
			filter:    models.PredicateSet{{Field: "is_active_member", In: []string{"0"}}},
			reference: "Active",
			refFilter: models.PredicateSet{{Field: "is_active_member", In: []string{"1"}}},
		},
	}
}

// Analyzer derives business findings from a filtered view: cohort comparisons
// and a ranking of dimensions by how far apart their churn rates sit.
type Analyzer struct {
	engine       *engine.Engine
	logger       *slog.Logger
	minGroupSize int
}

// NewAnalyzer constructs an Analyzer; minGroupSize <= 0 uses DefaultMinGroupSize.
func NewAnalyzer(e *engine.Engine, logger *slog.Logger, minGroupSize int) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if minGroupSize <= 0 {
		minGroupSize = DefaultMinGroupSize
	}
	return &Analyzer{engine: e, logger: logger, minGroupSize: minGroupSize}
}

// Analyze computes findings for view. An empty view yields a warning and no findings.
func (a *Analyzer) Analyze(ctx context.Context, view store.View) (models.Findings, error) {
	findings := models.Findings{Total: view.Len()}
	if view.Len() == 0 {
		findings.Warning = models.NoData()
		return findings, nil
	}

	for _, pair := range comparisons() {
		cmp, ok, err := a.compare(view, pair)
		if err != nil {
			return models.Findings{}, err
		}
		if !ok {
			a.logger.Debug("comparison skipped, cohort empty", slog.String("comparison", pair.name))
			continue
		}
		findings.Comparisons = append(findings.Comparisons, cmp)
	}

	predictors, err := a.rankPredictors(ctx, view)
	if err != nil {
		return models.Findings{}, err
	}
	findings.Predictors = predictors
	return findings, nil
}

func (a *Analyzer) compare(view store.View, pair cohortPair) (models.Comparison, bool, error) {
	cohort, err := a.engine.Filter(view, pair.filter)
	if err != nil {
		return models.Comparison{}, false, err
	}
	reference, err := a.engine.Filter(view, pair.refFilter)
	if err != nil {
		return models.Comparison{}, false, err
	}
	rate, ok := engine.Baseline(cohort).Rate()
	if !ok {
		return models.Comparison{}, false, nil
	}
	refRate, ok := engine.Baseline(reference).Rate()
	if !ok {
		return models.Comparison{}, false, nil
	}

	cmp := models.Comparison{
		Name:      pair.name,
		Cohort:    pair.cohort,
		Rate:      rate,
		Reference: pair.reference,
		RefRate:   refRate,
	}
	if refRate > 0 {
		cmp.Lift = rate / refRate
	}
	return cmp, true, nil
}

// rankPredictors scores every catalogue dimension except the risk segment,
// which is itself derived from other dimensions.
func (a *Analyzer) rankPredictors(ctx context.Context, view store.View) ([]models.PredictorRank, error) {
	ranks := make([]models.PredictorRank, 0)
	for _, dim := range a.engine.Dimensions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dim == engine.DimRiskSegment {
			continue
		}
		groups, err := a.engine.ChurnRateBy(view, []string{dim}, models.OrderRanked)
		if err != nil {
			return nil, err
		}
		eligible := groups[:0]
		for _, g := range groups {
			if g.Count >= a.minGroupSize {
				eligible = append(eligible, g)
			}
		}
		if len(eligible) < 2 {
			continue
		}
		high, low := eligible[0], eligible[len(eligible)-1]
		ranks = append(ranks, models.PredictorRank{
			Dimension: dim,
			Spread:    high.ChurnRate - low.ChurnRate,
			Highest:   high.Label,
			HighRate:  high.ChurnRate,
			Lowest:    low.Label,
			LowRate:   low.ChurnRate,
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Spread > ranks[j].Spread
	})
	return ranks, nil
}
