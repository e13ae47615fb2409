package store

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankinsight/churn-insights/internal/models"
)

// Domain bounds enforced at load.
const (
	MinCreditScore  = 300
	MaxCreditScore  = 850
	MinAge          = 18
	MaxAge          = 120
	MinSatisfaction = 1
	MaxSatisfaction = 5
	MinProducts     = 1
)

const (
	colCustomerID      = "CustomerId"
	colRowNumber       = "RowNumber"
	colSurname         = "Surname"
	colCreditScore     = "CreditScore"
	colGeography       = "Geography"
	colGender          = "Gender"
	colAge             = "Age"
	colTenure          = "Tenure"
	colBalance         = "Balance"
	colNumOfProducts   = "NumOfProducts"
	colHasCrCard       = "HasCrCard"
	colIsActiveMember  = "IsActiveMember"
	colEstimatedSalary = "EstimatedSalary"
	colSatisfaction    = "Satisfaction Score"
	colComplain        = "Complain"
	colExited          = "Exited"
)

var requiredColumns = []string{
	colCreditScore, colGeography, colAge, colTenure, colBalance, colNumOfProducts,
	colIsActiveMember, colEstimatedSalary, colSatisfaction, colComplain, colExited,
}

var optionalColumns = []string{colSurname, colGender, colHasCrCard}

// Header lists the canonical column order used when writing the table back out.
var Header = []string{
	colCustomerID, colSurname, colCreditScore, colGeography, colGender, colAge, colTenure,
	colBalance, colNumOfProducts, colHasCrCard, colIsActiveMember, colEstimatedSalary,
	colSatisfaction, colComplain, colExited,
}

// normalizeColumn folds case and drops separators so "Satisfaction Score",
// "satisfaction_score" and "SatisfactionScore" resolve to the same column.
func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "_", "", "-", "", "\ufeff", "").Replace(name)
}

// layout maps canonical column names to positions in a source row.
type layout struct {
	idx   map[string]int
	idCol string
	width int
}

func resolveLayout(header []string) (layout, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeColumn(h)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	l := layout{idx: make(map[string]int), width: len(header)}
	var missing []string

	switch {
	case has(positions, colCustomerID):
		l.idCol = colCustomerID
	case has(positions, colRowNumber):
		l.idCol = colRowNumber
	default:
		missing = append(missing, colCustomerID)
	}
	if l.idCol != "" {
		l.idx[l.idCol] = positions[normalizeColumn(l.idCol)]
	}

	for _, col := range requiredColumns {
		pos, ok := positions[normalizeColumn(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		l.idx[col] = pos
	}
	if len(missing) > 0 {
		return layout{}, &SchemaError{Missing: missing}
	}

	for _, col := range optionalColumns {
		if pos, ok := positions[normalizeColumn(col)]; ok {
			l.idx[col] = pos
		}
	}
	return l, nil
}

func has(positions map[string]int, col string) bool {
	_, ok := positions[normalizeColumn(col)]
	return ok
}

// rowParser accumulates the first failure of a row.
type rowParser struct {
	l   layout
	row []string
	num int
	err *RowValidationError
}

func (p *rowParser) fail(col string, reason Reason, value string) {
	if p.err == nil {
		p.err = &RowValidationError{Row: p.num, Column: col, Reason: reason, Value: value}
	}
}

func (p *rowParser) raw(col string) (string, bool) {
	pos, ok := p.l.idx[col]
	if !ok || pos >= len(p.row) {
		return "", false
	}
	value := strings.TrimSpace(p.row[pos])
	if value == "" || strings.EqualFold(value, "nan") || strings.EqualFold(value, "null") {
		return "", false
	}
	return value, true
}

func (p *rowParser) required(col string) (string, bool) {
	value, ok := p.raw(col)
	if !ok {
		reason := ReasonMissingValue
		if col == colExited {
			reason = ReasonMissingLabel
		}
		p.fail(col, reason, "")
	}
	return value, ok
}

func (p *rowParser) integer(col string, min, max int) int {
	value, ok := p.required(col)
	if !ok {
		return 0
	}
	n, err := parseInt(value)
	if err != nil {
		p.fail(col, ReasonInvalidType, value)
		return 0
	}
	if n < min || (max > 0 && n > max) {
		p.fail(col, ReasonOutOfDomain, value)
	}
	return n
}

func (p *rowParser) money(col string) decimal.Decimal {
	value, ok := p.required(col)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.fail(col, ReasonInvalidType, value)
		return decimal.Zero
	}
	if d.IsNegative() {
		p.fail(col, ReasonOutOfDomain, value)
	}
	return d
}

func (p *rowParser) flag(col string, required bool) bool {
	var (
		value string
		ok    bool
	)
	if required {
		value, ok = p.required(col)
	} else {
		value, ok = p.raw(col)
	}
	if !ok {
		return false
	}
	b, err := parseBool(value)
	if err != nil {
		p.fail(col, ReasonInvalidType, value)
	}
	return b
}

func (l layout) parse(row []string, num int) (models.Customer, *RowValidationError) {
	p := &rowParser{l: l, row: row, num: num}
	if len(row) < l.width {
		p.fail("*", ReasonShortRow, strconv.Itoa(len(row)))
		return models.Customer{}, p.err
	}

	var c models.Customer
	c.CustomerID, _ = p.required(l.idCol)
	c.Surname, _ = p.raw(colSurname)
	c.CreditScore = p.integer(colCreditScore, MinCreditScore, MaxCreditScore)
	c.Geography, _ = p.required(colGeography)
	c.Gender, _ = p.raw(colGender)
	c.Age = p.integer(colAge, MinAge, MaxAge)
	c.Tenure = p.integer(colTenure, 0, 0)
	c.Balance = p.money(colBalance)
	c.NumOfProducts = p.integer(colNumOfProducts, MinProducts, 0)
	c.HasCrCard = p.flag(colHasCrCard, false)
	c.IsActiveMember = p.flag(colIsActiveMember, true)
	c.EstimatedSalary = p.money(colEstimatedSalary)
	c.SatisfactionScore = p.integer(colSatisfaction, MinSatisfaction, MaxSatisfaction)
	c.Complain = p.flag(colComplain, true)
	c.Exited = p.flag(colExited, true)

	if p.err != nil {
		return models.Customer{}, p.err
	}
	return c, nil
}

// validateCustomer applies the load-time domain checks to an already typed record.
func validateCustomer(c models.Customer) *RowValidationError {
	switch {
	case strings.TrimSpace(c.CustomerID) == "":
		return &RowValidationError{Column: colCustomerID, Reason: ReasonMissingValue}
	case c.CreditScore < MinCreditScore || c.CreditScore > MaxCreditScore:
		return &RowValidationError{Column: colCreditScore, Reason: ReasonOutOfDomain, Value: strconv.Itoa(c.CreditScore)}
	case strings.TrimSpace(c.Geography) == "":
		return &RowValidationError{Column: colGeography, Reason: ReasonMissingValue}
	case c.Age < MinAge || c.Age > MaxAge:
		return &RowValidationError{Column: colAge, Reason: ReasonOutOfDomain, Value: strconv.Itoa(c.Age)}
	case c.Tenure < 0:
		return &RowValidationError{Column: colTenure, Reason: ReasonOutOfDomain, Value: strconv.Itoa(c.Tenure)}
	case c.Balance.IsNegative():
		return &RowValidationError{Column: colBalance, Reason: ReasonOutOfDomain, Value: c.Balance.String()}
	case c.NumOfProducts < MinProducts:
		return &RowValidationError{Column: colNumOfProducts, Reason: ReasonOutOfDomain, Value: strconv.Itoa(c.NumOfProducts)}
	case c.EstimatedSalary.IsNegative():
		return &RowValidationError{Column: colEstimatedSalary, Reason: ReasonOutOfDomain, Value: c.EstimatedSalary.String()}
	case c.SatisfactionScore < MinSatisfaction || c.SatisfactionScore > MaxSatisfaction:
		return &RowValidationError{Column: colSatisfaction, Reason: ReasonOutOfDomain, Value: strconv.Itoa(c.SatisfactionScore)}
	}
	return nil
}

// parseInt accepts plain integers and integral floats such as "42.0".
func parseInt(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true, nil
	case "0", "0.0", "false", "f", "no", "n":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// EncodeRow renders a customer in Header order.
func EncodeRow(c models.Customer) []string {
	return []string{
		c.CustomerID,
		c.Surname,
		strconv.Itoa(c.CreditScore),
		c.Geography,
		c.Gender,
		strconv.Itoa(c.Age),
		strconv.Itoa(c.Tenure),
		c.Balance.StringFixed(2),
		strconv.Itoa(c.NumOfProducts),
		encodeBool(c.HasCrCard),
		encodeBool(c.IsActiveMember),
		c.EstimatedSalary.StringFixed(2),
		strconv.Itoa(c.SatisfactionScore),
		encodeBool(c.Complain),
		encodeBool(c.Exited),
	}
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
