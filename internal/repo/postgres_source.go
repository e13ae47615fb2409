package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/lib/pq"
)

// DefaultCustomerQuery selects the customer table with the column names the
// store expects. Extra columns are ignored by the loader.
const DefaultCustomerQuery = `SELECT * FROM customers`

// OpenPostgres opens a pooled connection and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresSource streams query results as text rows. NULL columns become
// empty strings, which the loader treats as missing values.
type PostgresSource struct {
	rows    *sql.Rows
	columns []string
	values  []sql.NullString
	dest    []any
}

// NewPostgresSource runs query and prepares to stream its rows. The caller
// must Close the source.
func NewPostgresSource(ctx context.Context, db *sql.DB, query string) (*PostgresSource, error) {
	if query == "" {
		query = DefaultCustomerQuery
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	s := &PostgresSource{
		rows:    rows,
		columns: columns,
		values:  make([]sql.NullString, len(columns)),
		dest:    make([]any, len(columns)),
	}
	for i := range s.values {
		s.dest[i] = &s.values[i]
	}
	return s, nil
}

// Header returns the result column names.
func (s *PostgresSource) Header() ([]string, error) {
	return append([]string(nil), s.columns...), nil
}

// Next returns the next row or io.EOF.
func (s *PostgresSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate customers: %w", err)
		}
		return nil, io.EOF
	}
	if err := s.rows.Scan(s.dest...); err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	row := make([]string, len(s.values))
	for i, v := range s.values {
		if v.Valid {
			row[i] = v.String
		}
	}
	return row, nil
}

// Close releases the result set.
func (s *PostgresSource) Close() error {
	return s.rows.Close()
}
