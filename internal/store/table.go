package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bankinsight/churn-insights/internal/models"
)

// Policy decides what happens to rows that fail validation.
type Policy string

const (
	// PolicyDrop discards invalid rows and reports per-reason counts.
	PolicyDrop Policy = "drop"
	// PolicyReject aborts the load when any row is invalid.
	PolicyReject Policy = "reject"
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown invalid-row policy %q", value)
}

// Options tune a load.
type Options struct {
	Policy Policy
	// MaxIssues caps how many row errors are kept as samples. Counts are always exact.
	MaxIssues int
	Logger    *slog.Logger
}

// LoadReport describes the outcome of a load.
type LoadReport struct {
	Policy          Policy
	Rows            int
	Accepted        int
	Dropped         int
	DroppedByReason map[Reason]int
	Issues          []RowValidationError
	Duration        time.Duration
}

// DropSummaries renders one "N rows dropped for reason X" line per reason.
func (r LoadReport) DropSummaries() []string {
	if r.Dropped == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.DroppedByReason))
	for _, reason := range sortedReasons(r.DroppedByReason) {
		lines = append(lines, fmt.Sprintf("%d rows dropped for reason %s", r.DroppedByReason[reason], reason))
	}
	return lines
}

// Table is the immutable customer snapshot. It is safe to share between
// goroutines because nothing writes to it after construction.
type Table struct {
	snapshotID string
	records    []models.Customer
	report     LoadReport
	loadedAt   time.Time
}

// Load reads every row of src, validates it and builds a Table.
func Load(ctx context.Context, src Source, opts Options) (*Table, LoadReport, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyDrop
	}
	if opts.MaxIssues <= 0 {
		opts.MaxIssues = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	report := LoadReport{Policy: opts.Policy, DroppedByReason: make(map[Reason]int)}

	header, err := src.Header()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, &SchemaError{Missing: append([]string{colCustomerID}, requiredColumns...)}
		}
		return nil, report, fmt.Errorf("read header: %w", err)
	}
	l, err := resolveLayout(header)
	if err != nil {
		return nil, report, err
	}

	records := make([]models.Customer, 0, 1024)
	seen := make(map[string]int)
	record := func(issue RowValidationError) {
		report.Dropped++
		report.DroppedByReason[issue.Reason]++
		if len(report.Issues) < opts.MaxIssues {
			report.Issues = append(report.Issues, issue)
		}
	}

	for rowNum := 1; ; rowNum++ {
		if rowNum%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			report.Rows++
			record(RowValidationError{Row: rowNum, Column: "*", Reason: ReasonInvalidType, Value: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, report, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		report.Rows++

		customer, issue := l.parse(row, rowNum)
		if issue != nil {
			record(*issue)
			continue
		}
		if first, dup := seen[customer.CustomerID]; dup {
			record(RowValidationError{Row: rowNum, Column: l.idCol, Reason: ReasonDuplicateID, Value: customer.CustomerID + " (first seen at row " + strconv.Itoa(first) + ")"})
			continue
		}
		seen[customer.CustomerID] = rowNum
		records = append(records, customer)
	}

	report.Accepted = len(records)
	report.Duration = time.Since(start)

	if report.Dropped > 0 && opts.Policy == PolicyReject {
		return nil, report, &ValidationFailure{
			Invalid:  report.Dropped,
			ByReason: report.DroppedByReason,
			Issues:   report.Issues,
		}
	}
	for _, line := range report.DropSummaries() {
		logger.Warn(line)
	}
	if len(records) == 0 {
		return nil, report, ErrEmptyTable
	}

	table := &Table{
		snapshotID: uuid.NewString(),
		records:    records,
		report:     report,
		loadedAt:   time.Now().UTC(),
	}
	return table, report, nil
}

// FromRecords builds a Table from typed records, applying the same domain
// and uniqueness checks as Load. Any invalid record fails the call.
func FromRecords(records []models.Customer) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	seen := make(map[string]struct{}, len(records))
	copied := make([]models.Customer, len(records))
	for i, c := range records {
		if issue := validateCustomer(c); issue != nil {
			issue.Row = i + 1
			return nil, *issue
		}
		if _, dup := seen[c.CustomerID]; dup {
			return nil, RowValidationError{Row: i + 1, Column: colCustomerID, Reason: ReasonDuplicateID, Value: c.CustomerID}
		}
		seen[c.CustomerID] = struct{}{}
		copied[i] = c
	}
	return &Table{
		snapshotID: uuid.NewString(),
		records:    copied,
		report:     LoadReport{Policy: PolicyReject, Rows: len(copied), Accepted: len(copied), DroppedByReason: map[Reason]int{}},
		loadedAt:   time.Now().UTC(),
	}, nil
}

// Size returns the number of loaded customers.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// SnapshotID identifies this load; a reload gets a new id.
func (t *Table) SnapshotID() string { return t.snapshotID }

// Report returns the load report.
func (t *Table) Report() LoadReport { return t.report }

// LoadedAt returns the UTC time the snapshot was built.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// View returns a read-only view over every record.
func (t *Table) View() View {
	if t == nil {
		return View{}
	}
	return View{table: t, all: true}
}

// WriteCSV writes records in canonical column order.
func WriteCSV(w io.Writer, records []models.Customer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, c := range records {
		if err := writer.Write(EncodeRow(c)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
