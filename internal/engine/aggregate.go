package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

// groupAggregate accumulates one observed key combination.
type groupAggregate struct {
	keys    []string
	ranks   []int
	count   int
	churned int
}

// ChurnRateBy groups view by the Cartesian product of the observed values of
// dims and returns churn statistics per group. Only combinations that occur
// in the data are returned, so no group ever has a zero count.
func (e *Engine) ChurnRateBy(view store.View, dims []string, order models.Order) ([]models.GroupStat, error) {
	resolved, err := e.resolve(dims)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*groupAggregate)
	keys := make([]string, len(resolved))
	ranks := make([]int, len(resolved))
	view.Each(func(c models.Customer) bool {
		for i, d := range resolved {
			keys[i], ranks[i] = d.key(c)
		}
		id := strings.Join(keys, "\x1f")
		agg, ok := groups[id]
		if !ok {
			agg = &groupAggregate{
				keys:  append([]string(nil), keys...),
				ranks: append([]int(nil), ranks...),
			}
			groups[id] = agg
		}
		agg.count++
		if c.Exited {
			agg.churned++
		}
		return true
	})

	aggs := make([]*groupAggregate, 0, len(groups))
	for _, agg := range groups {
		if agg.count == 0 {
			continue
		}
		aggs = append(aggs, agg)
	}
	sortAggregates(aggs, order)

	stats := make([]models.GroupStat, 0, len(aggs))
	for _, agg := range aggs {
		labels := make([]string, len(resolved))
		for i, d := range resolved {
			labels[i] = d.labelFor(agg.keys[i])
		}
		stats = append(stats, models.GroupStat{
			Keys:      agg.keys,
			Labels:    labels,
			Label:     strings.Join(labels, " × "),
			Count:     agg.count,
			Churned:   agg.churned,
			ChurnRate: float64(agg.churned) / float64(agg.count),
		})
	}
	return stats, nil
}

func (e *Engine) resolve(dims []string) ([]Dimension, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions requested", ErrUnknownDimension)
	}
	resolved := make([]Dimension, 0, len(dims))
	for _, name := range dims {
		d, err := e.Dimension(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, d)
	}
	return resolved, nil
}

func sortAggregates(aggs []*groupAggregate, order models.Order) {
	natural := func(a, b *groupAggregate) bool {
		for i := range a.ranks {
			if a.ranks[i] != b.ranks[i] {
				return a.ranks[i] < b.ranks[i]
			}
			if a.keys[i] != b.keys[i] {
				return a.keys[i] < b.keys[i]
			}
		}
		return false
	}
	if order == models.OrderRanked {
		sort.SliceStable(aggs, func(i, j int) bool {
			// Cross-multiplied to compare churned/count exactly.
			left := aggs[i].churned * aggs[j].count
			right := aggs[j].churned * aggs[i].count
			if left != right {
				return left > right
			}
			return natural(aggs[i], aggs[j])
		})
		return
	}
	sort.SliceStable(aggs, func(i, j int) bool { return natural(aggs[i], aggs[j]) })
}

// ParseOrder maps a request value to an Order, defaulting to natural.
func ParseOrder(value string) (models.Order, bool) {
	switch models.Order(strings.ToLower(value)) {
	case "", models.OrderNatural:
		return models.OrderNatural, true
	case models.OrderRanked:
		return models.OrderRanked, true
	}
	return "", false
}
