package engine

import (
	"github.com/shopspring/decimal"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

// Summarize computes the key metrics of view. baseline is the churn of the
// full table; when it is known the delta from it is reported as well.
func Summarize(view store.View, baseline *models.ChurnStats) models.Summary {
	var (
		balance      = decimal.Zero
		complaints   int
		satisfaction int
		credit       int
		products     int
		churned      int
	)
	view.Each(func(c models.Customer) bool {
		balance = balance.Add(c.Balance)
		if c.Complain {
			complaints++
		}
		if c.Exited {
			churned++
		}
		satisfaction += c.SatisfactionScore
		credit += c.CreditScore
		products += c.NumOfProducts
		return true
	})

	n := view.Len()
	summary := models.Summary{Count: n, Churned: churned}
	if baseline != nil {
		if rate, ok := baseline.Rate(); ok {
			summary.BaselineChurnRate = models.Float(rate)
		}
	}
	if n == 0 {
		summary.Warning = models.NoData()
		return summary
	}

	count := float64(n)
	rate := float64(churned) / count
	summary.ChurnRate = models.Float(rate)
	if summary.BaselineChurnRate != nil {
		summary.DeltaFromBaseline = models.Float(rate - *summary.BaselineChurnRate)
	}
	summary.AvgBalance = models.Float(balance.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64())
	summary.ComplaintRate = models.Float(float64(complaints) / count)
	summary.AvgSatisfaction = models.Float(float64(satisfaction) / count)
	summary.AvgCreditScore = models.Float(float64(credit) / count)
	summary.AvgProducts = models.Float(float64(products) / count)
	return summary
}

// FilterOptions describes the value ranges of view for dashboard controls.
func (e *Engine) FilterOptions(view store.View) models.FilterOptions {
	opts := models.FilterOptions{
		Dimensions:   e.Dimensions(),
		TotalRecords: view.Len(),
		Categoricals: map[string][]string{
			DimBalanceTier: e.pack.Tiers.Balance.Labels(),
			DimCreditTier:  e.pack.Tiers.Credit.Labels(),
			DimAgeGroup:    e.pack.Tiers.Age.Labels(),
			DimTenureBand:  e.pack.Tiers.Tenure.Labels(),
			DimRiskSegment: {string(models.SegmentCritical), string(models.SegmentMedium), string(models.SegmentLow)},
		},
	}
	if rate, ok := Baseline(view).Rate(); ok {
		opts.BaselineChurn = rate
	}
	if view.Len() == 0 {
		return opts
	}

	first := view.At(0)
	opts.CreditScore = models.Range{Min: float64(first.CreditScore), Max: float64(first.CreditScore)}
	opts.Age = models.Range{Min: float64(first.Age), Max: float64(first.Age)}
	opts.Tenure = models.Range{Min: float64(first.Tenure), Max: float64(first.Tenure)}
	minBalance, maxBalance := first.Balance, first.Balance

	geographies := make(map[string]struct{})
	genders := make(map[string]struct{})
	view.Each(func(c models.Customer) bool {
		widen(&opts.CreditScore, float64(c.CreditScore))
		widen(&opts.Age, float64(c.Age))
		widen(&opts.Tenure, float64(c.Tenure))
		minBalance = decimal.Min(minBalance, c.Balance)
		maxBalance = decimal.Max(maxBalance, c.Balance)
		geographies[c.Geography] = struct{}{}
		genders[genderKey(c)] = struct{}{}
		return true
	})
	opts.Balance = models.Range{Min: minBalance.InexactFloat64(), Max: maxBalance.InexactFloat64()}
	opts.Geographies = sortedKeys(geographies)
	opts.Genders = sortedKeys(genders)
	opts.Categoricals[DimGeography] = opts.Geographies
	opts.Categoricals[DimGender] = opts.Genders
	return opts
}

func widen(r *models.Range, v float64) {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}
