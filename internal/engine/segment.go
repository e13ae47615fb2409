package engine

import (
	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

// classifier applies the risk rules in precedence order. It looks at one
// record only; nothing population-relative happens here.
type classifier struct {
	balance       TierScale
	credit        TierScale
	maxSat        int
	mediumBalance map[string]struct{}
	mediumCredit  map[string]struct{}
}

func newClassifier(pack *RulePack) classifier {
	k := classifier{
		balance:       pack.Tiers.Balance,
		credit:        pack.Tiers.Credit,
		maxSat:        pack.Segments.Critical.MaxSatisfaction,
		mediumBalance: make(map[string]struct{}),
		mediumCredit:  make(map[string]struct{}),
	}
	for _, label := range pack.Segments.Medium.BalanceTiers {
		k.mediumBalance[label] = struct{}{}
	}
	for _, label := range pack.Segments.Medium.CreditTiers {
		k.mediumCredit[label] = struct{}{}
	}
	return k
}

func (k classifier) classify(c models.Customer) models.RiskSegment {
	if c.Complain && c.SatisfactionScore <= k.maxSat {
		return models.SegmentCritical
	}
	if _, balanceTier := k.balance.Lookup(c.Balance); contains(k.mediumBalance, balanceTier) {
		return models.SegmentMedium
	}
	if _, creditTier := k.credit.LookupInt(c.CreditScore); contains(k.mediumCredit, creditTier) {
		return models.SegmentMedium
	}
	return models.SegmentLow
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// Classify assigns c to exactly one risk tier.
func (e *Engine) Classify(c models.Customer) models.RiskSegment {
	return e.seg.classify(c)
}

// Segments partitions view into risk tiers. Every tier is reported, and the
// tier counts always sum to view.Len().
func (e *Engine) Segments(view store.View) models.SegmentReport {
	counts := make(map[models.RiskSegment]*models.ChurnStats, len(models.RiskSegments))
	for _, seg := range models.RiskSegments {
		counts[seg] = &models.ChurnStats{}
	}
	view.Each(func(c models.Customer) bool {
		stats := counts[e.seg.classify(c)]
		stats.Count++
		if c.Exited {
			stats.Churned++
		}
		return true
	})

	report := models.SegmentReport{Total: view.Len(), Tiers: make([]models.SegmentShare, 0, len(models.RiskSegments))}
	for _, seg := range models.RiskSegments {
		stats := counts[seg]
		share := models.SegmentShare{Segment: seg, Count: stats.Count, Churned: stats.Churned}
		if report.Total > 0 {
			share.Proportion = float64(stats.Count) / float64(report.Total)
		}
		if rate, ok := stats.Rate(); ok {
			share.ChurnRate = models.Float(rate)
		}
		report.Tiers = append(report.Tiers, share)
	}
	if report.Total == 0 {
		report.Warning = models.NoData()
	}
	return report
}
