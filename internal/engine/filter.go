package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

type fieldKind int

const (
	kindNumeric fieldKind = iota
	kindCategorical
	kindBoolean
)

type field struct {
	kind    fieldKind
	number  func(models.Customer) float64
	text    func(models.Customer) string
	boolean func(models.Customer) bool
}

func (e *Engine) fields() map[string]field {
	num := func(get func(models.Customer) float64) field { return field{kind: kindNumeric, number: get} }
	cat := func(get func(models.Customer) string) field { return field{kind: kindCategorical, text: get} }
	flag := func(get func(models.Customer) bool) field { return field{kind: kindBoolean, boolean: get} }
	band := func(s TierScale, get func(models.Customer) int) field {
		return cat(func(c models.Customer) string {
			_, label := s.LookupInt(get(c))
			return label
		})
	}

	return map[string]field{
		"credit_score":       num(func(c models.Customer) float64 { return float64(c.CreditScore) }),
		"age":                num(func(c models.Customer) float64 { return float64(c.Age) }),
		"tenure":             num(func(c models.Customer) float64 { return float64(c.Tenure) }),
		"balance":            num(func(c models.Customer) float64 { return c.Balance.InexactFloat64() }),
		"num_of_products":    num(func(c models.Customer) float64 { return float64(c.NumOfProducts) }),
		"estimated_salary":   num(func(c models.Customer) float64 { return c.EstimatedSalary.InexactFloat64() }),
		"satisfaction_score": num(func(c models.Customer) float64 { return float64(c.SatisfactionScore) }),
		"geography":          cat(func(c models.Customer) string { return c.Geography }),
		"gender":             cat(genderKey),
		"balance_tier":       cat(e.BalanceTier),
		"credit_tier":        cat(e.CreditTier),
		"age_group":          band(e.pack.Tiers.Age, func(c models.Customer) int { return c.Age }),
		"tenure_band":        band(e.pack.Tiers.Tenure, func(c models.Customer) int { return c.Tenure }),
		"risk_segment":       cat(func(c models.Customer) string { return string(e.seg.classify(c)) }),
		"complain":           flag(func(c models.Customer) bool { return c.Complain }),
		"is_active_member":   flag(func(c models.Customer) bool { return c.IsActiveMember }),
		"has_cr_card":        flag(func(c models.Customer) bool { return c.HasCrCard }),
		"exited":             flag(func(c models.Customer) bool { return c.Exited }),
	}
}

// IsFilterField reports whether name can appear in a predicate.
func (e *Engine) IsFilterField(name string) bool {
	_, ok := e.fields()[name]
	return ok
}

// matcher is a compiled predicate.
type matcher func(models.Customer) bool

// compile validates set and turns each predicate into a matcher.
func (e *Engine) compile(set models.PredicateSet) ([]matcher, error) {
	fields := e.fields()
	matchers := make([]matcher, 0, len(set))
	for _, p := range set {
		f, ok := fields[p.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidPredicate, p.Field)
		}
		if p.Min == nil && p.Max == nil && len(p.In) == 0 {
			return nil, fmt.Errorf("%w: %s has no constraint", ErrInvalidPredicate, p.Field)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return nil, fmt.Errorf("%w: %s min %g exceeds max %g", ErrInvalidPredicate, p.Field, *p.Min, *p.Max)
		}

		var m matcher
		var err error
		switch f.kind {
		case kindNumeric:
			m, err = numericMatcher(p, f.number)
		case kindCategorical:
			m, err = categoricalMatcher(p, f.text)
		case kindBoolean:
			m, err = booleanMatcher(p, f.boolean)
		}
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

func numericMatcher(p models.Predicate, get func(models.Customer) float64) (matcher, error) {
	var set map[float64]struct{}
	if len(p.In) > 0 {
		set = make(map[float64]struct{}, len(p.In))
		for _, raw := range p.In {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q is not numeric", ErrInvalidPredicate, p.Field, raw)
			}
			set[v] = struct{}{}
		}
	}
	return func(c models.Customer) bool {
		v := get(c)
		if p.Min != nil && v < *p.Min {
			return false
		}
		if p.Max != nil && v > *p.Max {
			return false
		}
		if set != nil {
			if _, ok := set[v]; !ok {
				return false
			}
		}
		return true
	}, nil
}

func categoricalMatcher(p models.Predicate, get func(models.Customer) string) (matcher, error) {
	if p.Min != nil || p.Max != nil {
		return nil, fmt.Errorf("%w: %s is categorical and takes no range", ErrInvalidPredicate, p.Field)
	}
	set := make(map[string]struct{}, len(p.In))
	for _, v := range p.In {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return func(c models.Customer) bool {
		_, ok := set[strings.ToLower(get(c))]
		return ok
	}, nil
}

func booleanMatcher(p models.Predicate, get func(models.Customer) bool) (matcher, error) {
	if p.Min != nil || p.Max != nil {
		return nil, fmt.Errorf("%w: %s is boolean and takes no range", ErrInvalidPredicate, p.Field)
	}
	var wantTrue, wantFalse bool
	for _, raw := range p.In {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes":
			wantTrue = true
		case "0", "false", "no":
			wantFalse = true
		default:
			return nil, fmt.Errorf("%w: %s value %q is not boolean", ErrInvalidPredicate, p.Field, raw)
		}
	}
	return func(c models.Customer) bool {
		if get(c) {
			return wantTrue
		}
		return wantFalse
	}, nil
}

// ValidatePredicates checks set without applying it.
func (e *Engine) ValidatePredicates(set models.PredicateSet) error {
	_, err := e.compile(set)
	return err
}

// Filter returns the sub-view of records that satisfy every predicate.
// Filtering is idempotent: Filter(Filter(v, s), s) has the same rows as Filter(v, s).
func (e *Engine) Filter(view store.View, set models.PredicateSet) (store.View, error) {
	matchers, err := e.compile(set)
	if err != nil {
		return store.View{}, err
	}
	if len(matchers) == 0 {
		return view, nil
	}
	return view.Select(func(c models.Customer) bool {
		for _, m := range matchers {
			if !m(c) {
				return false
			}
		}
		return true
	}), nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
