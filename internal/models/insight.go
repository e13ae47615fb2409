package models

// PredictorRank scores how strongly a dimension separates churners.
type PredictorRank struct {
	Dimension string  `json:"dimension"`
	Spread    float64 `json:"spread"`
	Highest   string  `json:"highest"`
	HighRate  float64 `json:"high_rate"`
	Lowest    string  `json:"lowest"`
	LowRate   float64 `json:"low_rate"`
}

// Comparison contrasts the churn rate of two complementary cohorts.
type Comparison struct {
	Name      string  `json:"name"`
	Cohort    string  `json:"cohort"`
	Rate      float64 `json:"rate"`
	Reference string  `json:"reference"`
	RefRate   float64 `json:"reference_rate"`
	Lift      float64 `json:"lift"`
}

// Findings is the business-insight view of a subset.
type Findings struct {
	Total       int                 `json:"total"`
	Comparisons []Comparison        `json:"comparisons"`
	Predictors  []PredictorRank     `json:"predictors"`
	Warning     *EmptyResultWarning `json:"warning,omitempty"`
}
