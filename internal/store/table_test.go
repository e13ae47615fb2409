package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bankinsight/churn-insights/internal/models"
)

const sampleCSV = `RowNumber,CustomerId,Surname,CreditScore,Geography,Gender,Age,Tenure,Balance,NumOfProducts,HasCrCard,IsActiveMember,EstimatedSalary,Exited,Complain,Satisfaction Score
1,15634602,Hargrave,619,France,Female,42,2,0,1,1,1,101348.88,1,1,2
2,15647311,Hill,608,Spain,Female,41,1,83807.86,1,0,1,112542.58,0,1,3
3,15619304,Onio,502,France,Female,42,8,159660.8,3,1,0,113931.57,1,1,3
4,15701354,Boni,699,France,Female,39,1,0,2,0,0,93826.63,0,0,5
`

func loadCSV(t *testing.T, data string, policy Policy) (*Table, LoadReport, error) {
	t.Helper()
	return Load(context.Background(), NewCSVSource(strings.NewReader(data)), Options{Policy: policy})
}

func TestLoadValidCSV(t *testing.T) {
	table, report, err := loadCSV(t, sampleCSV, PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Size() != 4 {
		t.Fatalf("expected 4 rows, got %d", table.Size())
	}
	if report.Dropped != 0 || report.Accepted != 4 {
		t.Fatalf("unexpected report: %+v", report)
	}
	first := table.View().At(0)
	if first.CustomerID != "15634602" || first.SatisfactionScore != 2 || !first.Complain || !first.Exited {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if table.View().At(1).Balance.String() != "83807.86" {
		t.Fatalf("unexpected balance %s", table.View().At(1).Balance)
	}
	if table.SnapshotID() == "" {
		t.Fatalf("expected snapshot id")
	}
}

func TestLoadMissingColumn(t *testing.T) {
	data := "CustomerId,CreditScore,Geography,Age,Tenure,Balance,NumOfProducts,IsActiveMember,EstimatedSalary,Satisfaction Score,Complain\n1,600,France,30,1,0,1,1,100,3,0\n"
	_, _, err := loadCSV(t, data, PolicyDrop)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "Exited" {
		t.Fatalf("unexpected missing columns: %v", schemaErr.Missing)
	}
}

func TestLoadRowNumberFallback(t *testing.T) {
	data := "row_number,credit_score,geography,age,tenure,balance,num_of_products,is_active_member,estimated_salary,satisfaction_score,complain,exited\n7,600,France,30,1,0,1,1,100,3,0,1\n"
	table, _, err := loadCSV(t, data, PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.View().At(0).CustomerID; got != "7" {
		t.Fatalf("expected row number as id, got %q", got)
	}
}

func TestLoadMissingLabelDropped(t *testing.T) {
	data := sampleCSV + "5,15737888,Mitchell,850,Spain,Female,43,2,125510.82,1,1,1,79084.1,,0,4\n"
	table, report, err := loadCSV(t, data, PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Size() != 4 {
		t.Fatalf("row with missing label must not be kept, size=%d", table.Size())
	}
	if report.DroppedByReason[ReasonMissingLabel] != 1 {
		t.Fatalf("expected missing label drop, got %+v", report.DroppedByReason)
	}
	lines := report.DropSummaries()
	if len(lines) != 1 || lines[0] != "1 rows dropped for reason missing_label" {
		t.Fatalf("unexpected summaries: %v", lines)
	}
}

func TestLoadMissingLabelRejected(t *testing.T) {
	data := sampleCSV + "5,15737888,Mitchell,850,Spain,Female,43,2,125510.82,1,1,1,79084.1,,0,4\n"
	_, _, err := loadCSV(t, data, PolicyReject)
	var failure *ValidationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ValidationFailure, got %v", err)
	}
	var rowErr RowValidationError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected to unwrap a RowValidationError")
	}
	if rowErr.Row != 5 || rowErr.Column != "Exited" || rowErr.Reason != ReasonMissingLabel {
		t.Fatalf("unexpected row error: %+v", rowErr)
	}
}

func TestLoadDomainViolations(t *testing.T) {
	rows := []string{
		"5,1001,A,200,France,Male,30,1,0,1,1,1,100,0,0,3",     // credit below domain
		"6,1002,B,600,France,Male,30,1,-5,1,1,1,100,0,0,3",    // negative balance
		"7,1003,C,600,France,Male,30,1,0,1,1,1,100,0,0,9",     // satisfaction outside 1..5
		"8,1004,D,600,France,Male,abc,1,0,1,1,1,100,0,0,3",    // bad type
		"9,15634602,E,600,France,Male,30,1,0,1,1,1,100,0,0,3", // duplicate id
		"10,1005,F,600",                                       // short row
	}
	table, report, err := loadCSV(t, sampleCSV+strings.Join(rows, "\n")+"\n", PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Size() != 4 || report.Dropped != len(rows) {
		t.Fatalf("expected %d drops, got size=%d report=%+v", len(rows), table.Size(), report)
	}
	want := map[Reason]int{
		ReasonOutOfDomain: 3,
		ReasonInvalidType: 1,
		ReasonDuplicateID: 1,
		ReasonShortRow:    1,
	}
	for reason, count := range want {
		if report.DroppedByReason[reason] != count {
			t.Fatalf("reason %s: expected %d, got %d", reason, count, report.DroppedByReason[reason])
		}
	}
}

func TestLoadAllRowsInvalid(t *testing.T) {
	data := "CustomerId,CreditScore,Geography,Age,Tenure,Balance,NumOfProducts,IsActiveMember,EstimatedSalary,Satisfaction Score,Complain,Exited\n1,600,France,30,1,0,1,1,100,3,0,\n"
	_, report, err := loadCSV(t, data, PolicyDrop)
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if report.Dropped != 1 {
		t.Fatalf("expected the dropped row to be reported")
	}
}

func TestViewSelectAndPage(t *testing.T) {
	table, _, err := loadCSV(t, sampleCSV, PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	french := table.View().Select(func(c models.Customer) bool { return c.Geography == "France" })
	if french.Len() != 3 {
		t.Fatalf("expected 3 French customers, got %d", french.Len())
	}
	page := french.Page(1, 1)
	if len(page) != 1 || page[0].CustomerID != "15619304" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if got := french.Page(10, 5); len(got) != 0 {
		t.Fatalf("expected empty page past the end")
	}

	records := table.View().Records()
	records[0].Geography = "Mutated"
	if table.View().At(0).Geography != "France" {
		t.Fatalf("view copies must not alias the table")
	}
}

func TestFromRecordsRejectsDuplicates(t *testing.T) {
	table, _, err := loadCSV(t, sampleCSV, PolicyDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := table.View().Records()
	records = append(records, records[0])
	if _, err := FromRecords(records); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
