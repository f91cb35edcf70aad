// Package parsers implements the file ingestion layer: it turns CSV and
// Excel bank statement exports into a row-oriented in-memory table and
// enforces the container format and schema contracts before any downstream
// stage runs.
//
// The ingestor has no side effects beyond reading its input. Row-level
// problems are collected into ParseStats; only container-level problems
// (unsupported format, missing required columns, unreadable content) abort
// the parse.
package parsers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"spending-pattern-service/pkg/errors"
	"spending-pattern-service/pkg/logger"
)

// RowError records a problem with a single table row
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("row error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseStats holds statistics about one ingestion
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	ErrorCount    int
	Errors        []*RowError
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		Errors: make([]*RowError, 0),
	}
}

// AddError adds a row error to the parsing statistics
func (ps *ParseStats) AddError(err *RowError) {
	ps.Errors = append(ps.Errors, err)
	ps.ErrorCount++
}

// HasErrors returns true if there were any row-level errors
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records, %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.ErrorCount)
}

// SampleErrors returns up to maxSamples row errors for logging
func (ps *ParseStats) SampleErrors(maxSamples int) []string {
	limit := len(ps.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	var samples []string
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}

// RawTable is the row-oriented result of ingesting one statement file.
// Cell values are untyped strings keyed by canonical column name; typing
// happens later in the normalizer.
type RawTable struct {
	Columns []string
	Rows    []RawRecord
}

// RawRecord is one untyped table row
type RawRecord map[string]string

// Get returns the cell value for a canonical column name, tolerating a
// case-insensitive match the way real exports vary header casing.
func (r RawRecord) Get(column string) string {
	if v, exists := r[column]; exists {
		return v
	}

	lower := strings.ToLower(column)
	for k, v := range r {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	return ""
}

// headerIndex builds a canonical-name -> column-index map and reports which
// required columns are missing.
type headerIndex struct {
	columns []string
	byName  map[string]int
}

func newHeaderIndex(rawHeaders []string, config *StatementConfig) *headerIndex {
	idx := &headerIndex{
		columns: make([]string, len(rawHeaders)),
		byName:  make(map[string]int, len(rawHeaders)),
	}

	for i, h := range rawHeaders {
		canonical := config.CanonicalColumn(h)
		idx.columns[i] = canonical
		if _, dup := idx.byName[canonical]; !dup {
			idx.byName[canonical] = i
		}
	}

	return idx
}

// lookup returns the index of a canonical column, or -1 if absent.
func (hi *headerIndex) lookup(name string) int {
	if i, exists := hi.byName[name]; exists {
		return i
	}

	lower := strings.ToLower(name)
	for col, i := range hi.byName {
		if strings.ToLower(col) == lower {
			return i
		}
	}
	return -1
}

// missingColumns returns the required columns absent from the header row.
func (hi *headerIndex) missingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if hi.lookup(col) == -1 {
			missing = append(missing, col)
		}
	}
	return missing
}

// assembleTable converts a header row plus raw cell rows into a RawTable,
// applying the schema check. Used by both the CSV and Excel paths so the
// two container formats converge on identical output.
func assembleTable(name string, rawHeaders []string, rows [][]string, config *StatementConfig, stats *ParseStats, log logger.Logger) (*RawTable, error) {
	idx := newHeaderIndex(rawHeaders, config)

	if missing := idx.missingColumns(config.RequiredColumns()); len(missing) > 0 {
		log.WithFields(logger.Fields{
			"missing_columns":   missing,
			"available_columns": idx.columns,
		}).Error("Required columns are missing")

		return nil, errors.ParseError(
			errors.CodeMissingColumn,
			name,
			strings.Join(missing, ", "),
			nil,
		).WithContext("available_columns", idx.columns)
	}

	table := &RawTable{
		Columns: idx.columns,
		Rows:    make([]RawRecord, 0, len(rows)),
	}

	for _, cells := range rows {
		stats.TotalLines++

		if isEmptyRow(cells) {
			continue
		}

		record := make(RawRecord, len(idx.columns))
		for i, col := range idx.columns {
			if i < len(cells) {
				record[col] = strings.TrimSpace(cells[i])
			} else {
				record[col] = ""
			}
		}

		table.Rows = append(table.Rows, record)
		stats.RecordsParsed++
	}

	return table, nil
}

// isEmptyRow checks if all cells in a row are empty or whitespace
func isEmptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// validateUTF8 checks the head of a text payload for valid UTF-8
func validateUTF8(name string, data []byte) error {
	head := data
	if len(head) > 64*1024 {
		head = head[:64*1024]
		// Back off a possibly split trailing rune at the cut point
		for i := 0; i < 3 && len(head) > 0 && !utf8.Valid(head); i++ {
			head = head[:len(head)-1]
		}
	}

	if !utf8.Valid(head) {
		return errors.ParseError(
			errors.CodeEncodingError,
			name,
			"invalid UTF-8 content",
			nil,
		)
	}

	return nil
}
