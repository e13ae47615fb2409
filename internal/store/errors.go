package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyTable is returned when a load yields no usable rows.
var ErrEmptyTable = errors.New("no valid rows loaded")

// SchemaError reports required columns absent from the source header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Reason classifies why a row failed validation.
type Reason string

const (
	ReasonMissingValue Reason = "missing_value"
	ReasonMissingLabel Reason = "missing_label"
	ReasonInvalidType  Reason = "invalid_type"
	ReasonOutOfDomain  Reason = "out_of_domain"
	ReasonDuplicateID  Reason = "duplicate_id"
	ReasonShortRow     Reason = "short_row"
)

// RowValidationError describes the first constraint a row violated.
// Row is the 1-based data row number, excluding the header.
type RowValidationError struct {
	Row    int
	Column string
	Reason Reason
	Value  string
}

func (e RowValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: column %s: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("row %d: column %s: %s (%q)", e.Row, e.Column, e.Reason, e.Value)
}

// ValidationFailure aborts a load under the reject policy. It unwraps to the
// sampled row errors so callers can errors.As into RowValidationError.
type ValidationFailure struct {
	Invalid  int
	ByReason map[Reason]int
	Issues   []RowValidationError
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("load rejected: %d invalid rows (%s)", e.Invalid, formatReasons(e.ByReason))
}

func (e *ValidationFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		errs = append(errs, issue)
	}
	return errs
}

func formatReasons(byReason map[Reason]int) string {
	parts := make([]string, 0, len(byReason))
	for _, reason := range sortedReasons(byReason) {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, byReason[reason]))
	}
	return strings.Join(parts, ", ")
}

func sortedReasons(byReason map[Reason]int) []Reason {
	reasons := make([]Reason, 0, len(byReason))
	for reason := range byReason {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}
