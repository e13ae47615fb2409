package store

import "github.com/bankinsight/churn-insights/internal/models"

// View is a read-only window onto a Table: either every record or an index
// list into it. Views hand out copies, so callers cannot mutate the table.
type View struct {
	table *Table
	idx   []int
	all   bool
}

// Len returns the number of records visible through the view.
func (v View) Len() int {
	if v.table == nil {
		return 0
	}
	if v.all {
		return len(v.table.records)
	}
	return len(v.idx)
}

// At returns the i-th record of the view.
func (v View) At(i int) models.Customer {
	return v.table.records[v.position(i)]
}

func (v View) position(i int) int {
	if v.all {
		return i
	}
	return v.idx[i]
}

// Each calls fn for each record in order until fn returns false.
func (v View) Each(fn func(models.Customer) bool) {
	for i := 0; i < v.Len(); i++ {
		if !fn(v.At(i)) {
			return
		}
	}
}

// Select returns the sub-view of records for which keep returns true.
func (v View) Select(keep func(models.Customer) bool) View {
	n := v.Len()
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(v.table.records[v.position(i)]) {
			idx = append(idx, v.position(i))
		}
	}
	return View{table: v.table, idx: idx}
}

// Page copies at most limit records starting at offset.
func (v View) Page(offset, limit int) []models.Customer {
	n := v.Len()
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return []models.Customer{}
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	out := make([]models.Customer, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, v.At(i))
	}
	return out
}

// Records copies every visible record.
func (v View) Records() []models.Customer {
	return v.Page(0, 0)
}

// SameRows reports whether two views expose the same records in the same order.
func (v View) SameRows(other View) bool {
	if v.table != other.table || v.Len() != other.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if v.position(i) != other.position(i) {
			return false
		}
	}
	return true
}
