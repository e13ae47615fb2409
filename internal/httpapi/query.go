package httpapi

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/bankinsight/churn-insights/internal/engine"
	"github.com/bankinsight/churn-insights/internal/models"
)

// Query parameters that are not predicates.
const (
	paramPageSize  = "page_size"
	paramPageToken = "page_token"
	paramSummary   = "summary"
	paramOrder     = "order"
)

var reserved = map[string]struct{}{
	paramPageSize:  {},
	paramPageToken: {},
	paramSummary:   {},
	paramOrder:     {},
}

// parsePredicates turns the remaining query parameters into predicates.
// "field=a..b" is an inclusive range with optional open ends and
// "field=x,y" is a set. Repeated keys are combined as a conjunction.
func parsePredicates(values url.Values) (models.PredicateSet, error) {
	fields := make([]string, 0, len(values))
	for field := range values {
		if _, skip := reserved[field]; !skip {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	set := make(models.PredicateSet, 0, len(fields))
	for _, field := range fields {
		for _, raw := range values[field] {
			p, err := parsePredicate(field, raw)
			if err != nil {
				return nil, err
			}
			set = append(set, p)
		}
	}
	return set, nil
}

func parsePredicate(field, raw string) (models.Predicate, error) {
	raw = strings.TrimSpace(raw)
	p := models.Predicate{Field: field}
	if lo, hi, ok := strings.Cut(raw, ".."); ok {
		var err error
		if p.Min, err = bound(field, lo); err != nil {
			return p, err
		}
		if p.Max, err = bound(field, hi); err != nil {
			return p, err
		}
		return p, nil
	}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			p.In = append(p.In, v)
		}
	}
	return p, nil
}

func bound(field, text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s bound %q is not numeric", engine.ErrInvalidPredicate, field, text)
	}
	return &v, nil
}
