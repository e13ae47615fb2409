package models

// EmptyResultWarning marks a result computed over zero rows. It is not an error.
type EmptyResultWarning struct {
	Reason string `json:"reason"`
}

// NoData is the warning attached to every empty-subset result.
func NoData() *EmptyResultWarning {
	return &EmptyResultWarning{Reason: "no data"}
}

// GroupStat is the churn breakdown of one observed key combination.
type GroupStat struct {
	Keys      []string `json:"keys"`
	Labels    []string `json:"labels"`
	Label     string   `json:"label"`
	Count     int      `json:"count"`
	Churned   int      `json:"churned"`
	ChurnRate float64  `json:"churn_rate"`
}

// ChurnStats holds the raw counts behind a churn rate.
type ChurnStats struct {
	Count   int `json:"count"`
	Churned int `json:"churned"`
}

// Rate returns churned/count, or false when there is nothing to divide by.
func (s ChurnStats) Rate() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}
	return float64(s.Churned) / float64(s.Count), true
}

// Summary carries the key dashboard metrics for a subset of customers.
// Averages and rates are nil when the subset is empty.
type Summary struct {
	Count             int                 `json:"count"`
	Churned           int                 `json:"churned"`
	ChurnRate         *float64            `json:"churn_rate"`
	BaselineChurnRate *float64            `json:"baseline_churn_rate"`
	DeltaFromBaseline *float64            `json:"delta_from_baseline"`
	AvgBalance        *float64            `json:"avg_balance"`
	ComplaintRate     *float64            `json:"complaint_rate"`
	AvgSatisfaction   *float64            `json:"avg_satisfaction"`
	AvgCreditScore    *float64            `json:"avg_credit_score"`
	AvgProducts       *float64            `json:"avg_products"`
	Warning           *EmptyResultWarning `json:"warning,omitempty"`
}

// SegmentShare is one risk tier's slice of a subset.
type SegmentShare struct {
	Segment    RiskSegment `json:"segment"`
	Count      int         `json:"count"`
	Proportion float64     `json:"proportion"`
	Churned    int         `json:"churned"`
	ChurnRate  *float64    `json:"churn_rate"`
}

// SegmentReport partitions a subset into risk tiers. Tiers always appear in
// severity order, including tiers with zero members.
type SegmentReport struct {
	Total   int                 `json:"total"`
	Tiers   []SegmentShare      `json:"tiers"`
	Warning *EmptyResultWarning `json:"warning,omitempty"`
}

// Float returns a pointer to v, used for optional metrics.
func Float(v float64) *float64 {
	return &v
}
