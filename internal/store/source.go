package store

import (
	"encoding/csv"
	"io"
)

// Source yields a header followed by data rows. Next returns io.EOF once
// the rows are exhausted.
type Source interface {
	Header() ([]string, error)
	Next() ([]string, error)
}

// CSVSource reads comma-separated rows with a header line.
type CSVSource struct {
	reader *csv.Reader
}

// NewCSVSource wraps r. Ragged rows are surfaced to validation instead of
// failing the whole read.
func NewCSVSource(r io.Reader) *CSVSource {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false
	return &CSVSource{reader: reader}
}

// Header implements Source.
func (s *CSVSource) Header() ([]string, error) {
	return s.reader.Read()
}

// Next implements Source.
func (s *CSVSource) Next() ([]string, error) {
	return s.reader.Read()
}

// SliceSource serves rows held in memory.
type SliceSource struct {
	header []string
	rows   [][]string
	pos    int
}

// NewSliceSource builds a Source over an in-memory table.
func NewSliceSource(header []string, rows [][]string) *SliceSource {
	return &SliceSource{header: header, rows: rows}
}

// Header implements Source.
func (s *SliceSource) Header() ([]string, error) {
	return s.header, nil
}

// Next implements Source.
func (s *SliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
