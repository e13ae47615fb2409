package models

import "github.com/shopspring/decimal"

// Customer is one validated row of the bank customer table.
type Customer struct {
	CustomerID        string          `json:"customer_id"`
	Surname           string          `json:"surname,omitempty"`
	CreditScore       int             `json:"credit_score"`
	Geography         string          `json:"geography"`
	Gender            string          `json:"gender,omitempty"`
	Age               int             `json:"age"`
	Tenure            int             `json:"tenure"`
	Balance           decimal.Decimal `json:"balance"`
	NumOfProducts     int             `json:"num_of_products"`
	HasCrCard         bool            `json:"has_cr_card"`
	IsActiveMember    bool            `json:"is_active_member"`
	EstimatedSalary   decimal.Decimal `json:"estimated_salary"`
	SatisfactionScore int             `json:"satisfaction_score"`
	Complain          bool            `json:"complain"`
	Exited            bool            `json:"exited"`
}

// RiskSegment is the rule-based churn risk tier of a customer.
type RiskSegment string

const (
	SegmentCritical RiskSegment = "Critical"
	SegmentMedium   RiskSegment = "Medium"
	SegmentLow      RiskSegment = "Low"
)

// RiskSegments lists the tiers from most to least severe.
var RiskSegments = []RiskSegment{SegmentCritical, SegmentMedium, SegmentLow}

// Rank orders segments by severity; unknown segments sort last.
func (s RiskSegment) Rank() int {
	for i, seg := range RiskSegments {
		if seg == s {
			return i
		}
	}
	return len(RiskSegments)
}
