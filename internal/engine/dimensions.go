package engine

import (
	"fmt"
	"strconv"

	"github.com/bankinsight/churn-insights/internal/models"
)

// Dimension names accepted by ChurnRateBy.
const (
	DimComplain      = "complain"
	DimSatisfaction  = "satisfaction_score"
	DimBalanceTier   = "balance_tier"
	DimCreditTier    = "credit_tier"
	DimGeography     = "geography"
	DimActivity      = "is_active_member"
	DimProducts      = "num_of_products"
	DimAgeGroup      = "age_group"
	DimTenureBand    = "tenure_band"
	DimGender        = "gender"
	DimHasCreditCard = "has_cr_card"
	DimRiskSegment   = "risk_segment"
)

// UnknownGender groups customers whose gender was not recorded.
const UnknownGender = "Unknown"

// Dimension extracts a grouping key from a customer. Rank carries the natural
// order of the key's domain; keys with equal rank fall back to string order.
type Dimension struct {
	Name  string
	Title string
	key   func(c models.Customer) (key string, rank int)
	label func(key string) string
}

func (d Dimension) labelFor(key string) string {
	if d.label == nil {
		return key
	}
	return d.label(key)
}

func catalogue(pack *RulePack, segments classifier) (map[string]Dimension, []string) {
	tiered := func(name, title string, s TierScale, value func(models.Customer) int) Dimension {
		return Dimension{Name: name, Title: title, key: func(c models.Customer) (string, int) {
			idx, label := s.LookupInt(value(c))
			return label, idx
		}}
	}
	balance := pack.Tiers.Balance

	dims := []Dimension{
		{Name: DimComplain, Title: "Complaints", key: boolKey(func(c models.Customer) bool { return c.Complain }),
			label: boolLabel("No Complaints", "Filed Complaints")},
		{Name: DimSatisfaction, Title: "Satisfaction Score", key: intKey(func(c models.Customer) int { return c.SatisfactionScore })},
		{Name: DimBalanceTier, Title: "Balance", key: func(c models.Customer) (string, int) {
			idx, label := balance.Lookup(c.Balance)
			return label, idx
		}},
		tiered(DimCreditTier, "Credit Score", pack.Tiers.Credit, func(c models.Customer) int { return c.CreditScore }),
		{Name: DimGeography, Title: "Geography", key: func(c models.Customer) (string, int) { return c.Geography, 0 }},
		{Name: DimActivity, Title: "Activity Status", key: boolKey(func(c models.Customer) bool { return c.IsActiveMember }),
			label: boolLabel("Inactive", "Active")},
		{Name: DimProducts, Title: "Number of Products", key: intKey(func(c models.Customer) int { return c.NumOfProducts })},
		tiered(DimAgeGroup, "Age", pack.Tiers.Age, func(c models.Customer) int { return c.Age }),
		tiered(DimTenureBand, "Tenure", pack.Tiers.Tenure, func(c models.Customer) int { return c.Tenure }),
		{Name: DimGender, Title: "Gender", key: func(c models.Customer) (string, int) {
			if c.Gender == "" {
				return genderKey(c), 1
			}
			return c.Gender, 0
		}},
		{Name: DimHasCreditCard, Title: "Credit Card", key: boolKey(func(c models.Customer) bool { return c.HasCrCard }),
			label: boolLabel("No Card", "Has Card")},
		{Name: DimRiskSegment, Title: "Risk Segment", key: func(c models.Customer) (string, int) {
			seg := segments.classify(c)
			return string(seg), seg.Rank()
		}},
	}

	byName := make(map[string]Dimension, len(dims))
	order := make([]string, 0, len(dims))
	for _, d := range dims {
		byName[d.Name] = d
		order = append(order, d.Name)
	}
	return byName, order
}

// genderKey is shared by the gender dimension and filter so every breakdown
// group can be selected again. Gender is optional in the source table.
func genderKey(c models.Customer) string {
	if c.Gender == "" {
		return UnknownGender
	}
	return c.Gender
}

func boolKey(get func(models.Customer) bool) func(models.Customer) (string, int) {
	return func(c models.Customer) (string, int) {
		if get(c) {
			return "1", 1
		}
		return "0", 0
	}
}

func boolLabel(off, on string) func(string) string {
	return func(key string) string {
		if key == "1" {
			return on
		}
		return off
	}
}

func intKey(get func(models.Customer) int) func(models.Customer) (string, int) {
	return func(c models.Customer) (string, int) {
		v := get(c)
		return strconv.Itoa(v), v
	}
}

// Dimensions lists the catalogue names in presentation order.
func (e *Engine) Dimensions() []string {
	return append([]string(nil), e.order...)
}

// Dimension resolves a catalogue entry.
func (e *Engine) Dimension(name string) (Dimension, error) {
	d, ok := e.dims[name]
	if !ok {
		return Dimension{}, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}
	return d, nil
}
