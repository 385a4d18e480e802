package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/planexec/query"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to write the rows of an iterator in the target
// format and SetOutput to change the output destination.
type Formatter interface {
	// Format writes every row of it, in iterator order. It does not close it.
	Format(it query.RowIterator) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Format names accepted by New
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatTable = "table"
)

// New returns the formatter for a format name. maxWidth bounds table cells (0 for no limit).
func New(format string, w io.Writer, maxWidth int) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "jsonl", "":
		return NewJSONFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w, maxWidth), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json, csv or table)", format)
	}
}

// WriteRelation formats a materialized relation
func WriteRelation(f Formatter, rel *query.Relation) error {
	it := query.NewRelationIterator(rel)
	defer func() { _ = it.Close() }()
	return f.Format(it)
}

// headers returns display names for the columns of a schema.
// A name shared by several columns is qualified with its table when one is known.
func headers(schema query.Schema) []string {
	counts := make(map[string]int, schema.Len())
	for _, col := range schema.Columns {
		counts[strings.ToLower(col.Name)]++
	}
	names := make([]string, schema.Len())
	for i, col := range schema.Columns {
		if counts[strings.ToLower(col.Name)] > 1 {
			names[i] = col.QualifiedName()
		} else {
			names[i] = col.Name
		}
	}
	return names
}

// forEach calls fn for every row of it
func forEach(it query.RowIterator, fn func(query.Row) error) error {
	for {
		row, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}
