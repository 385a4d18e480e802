package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/planexec/query"
)

// CSVFormatter outputs rows as CSV format
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes a header row in schema order followed by one record per row.
// NULL is written as an empty field.
func (c *CSVFormatter) Format(it query.RowIterator) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(headers(it.Schema())); err != nil {
		return err
	}

	var record []string
	err := forEach(it, func(row query.Row) error {
		record = record[:0]
		for _, v := range row {
			record = append(record, formatValue(v))
		}
		return csvWriter.Write(record)
	})
	if err != nil {
		return err
	}

	// Flush and check for errors
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a value to string for CSV output
func formatValue(v query.Value) string {
	switch v.Type() {
	case query.TypeNull:
		return ""
	case query.TypeText:
		return sanitize(v.Text())
	default:
		return v.String()
	}
}

// sanitize guards against CSV injection by quoting text that a spreadsheet
// application would treat as a formula
func sanitize(val string) string {
	if len(val) == 0 {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
