package models

// Predicate constrains one field. Numeric fields use Min/Max (inclusive);
// categorical and boolean fields use In.
type Predicate struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	In    []string `json:"in,omitempty"`
}

// PredicateSet is a conjunction of predicates. Empty means no restriction.
type PredicateSet []Predicate

// Order selects how breakdown groups are sorted.
type Order string

const (
	OrderNatural Order = "natural"
	OrderRanked  Order = "ranked"
)

// RecordsRequest asks for a page of filtered records.
type RecordsRequest struct {
	Filters        PredicateSet `json:"filters"`
	PageSize       int          `json:"page_size"`
	PageToken      string       `json:"page_token"`
	IncludeSummary bool         `json:"include_summary"`
}

// RecordsResponse is one page of the filtered view.
type RecordsResponse struct {
	Records       []Customer          `json:"records"`
	Total         int                 `json:"total"`
	NextPageToken string              `json:"next_page_token,omitempty"`
	Summary       *Summary            `json:"summary,omitempty"`
	Warning       *EmptyResultWarning `json:"warning,omitempty"`
}

// BreakdownRequest asks for churn rates grouped by one or more dimensions.
type BreakdownRequest struct {
	Filters    PredicateSet `json:"filters"`
	Dimensions []string     `json:"dimensions"`
	Order      Order        `json:"order"`
}

// BreakdownResponse is the grouped churn view of a filtered subset.
type BreakdownResponse struct {
	Dimensions        []string            `json:"dimensions"`
	Order             Order               `json:"order"`
	Groups            []GroupStat         `json:"groups"`
	Total             int                 `json:"total"`
	BaselineChurnRate float64             `json:"baseline_churn_rate"`
	Warning           *EmptyResultWarning `json:"warning,omitempty"`
}

// SegmentsRequest asks for the risk-tier split of a filtered subset.
type SegmentsRequest struct {
	Filters PredicateSet `json:"filters"`
}

// FilterOptions describes the value ranges a dashboard offers as controls.
type FilterOptions struct {
	CreditScore   Range               `json:"credit_score"`
	Age           Range               `json:"age"`
	Tenure        Range               `json:"tenure"`
	Balance       Range               `json:"balance"`
	Geographies   []string            `json:"geographies"`
	Genders       []string            `json:"genders,omitempty"`
	Dimensions    []string            `json:"dimensions"`
	Categoricals  map[string][]string `json:"categoricals"`
	TotalRecords  int                 `json:"total_records"`
	BaselineChurn float64             `json:"baseline_churn_rate"`
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
