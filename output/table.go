package output

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/planexec/query"
)

// nullText is how the table format shows NULL
const nullText = "NULL"

// TableFormatter outputs rows as an aligned text table followed by a row count.
// All rows are buffered before rendering.
type TableFormatter struct {
	writer   io.Writer
	maxWidth int
}

// NewTableFormatter creates a table formatter. Cells wider than maxWidth display
// columns are truncated with an ellipsis; 0 disables truncation.
func NewTableFormatter(w io.Writer, maxWidth int) *TableFormatter {
	return &TableFormatter{writer: w, maxWidth: maxWidth}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders every row as a table
func (t *TableFormatter) Format(it query.RowIterator) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(headers(it.Schema()))

	n := 0
	err := forEach(it, func(row query.Row) error {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = t.cell(v)
		}
		table.Append(cells)
		n++
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	suffix := "s"
	if n == 1 {
		suffix = ""
	}
	_, err = fmt.Fprintf(t.writer, "(%d row%s)\n", n, suffix)
	return err
}

func (t *TableFormatter) cell(v query.Value) string {
	if v.IsNull() {
		return nullText
	}
	s := v.String()
	if t.maxWidth > 0 && runewidth.StringWidth(s) > t.maxWidth {
		s = runewidth.Truncate(s, t.maxWidth, "…")
	}
	return s
}
