package output

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/segmentio/encoding/json"

	"github.com/vegasq/planexec/query"
)

// JSONFormatter outputs rows as JSON Lines format
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rows as JSON Lines (one JSON object per line).
// Keys follow the column order of the schema; NULL is null, decimals are strings.
func (j *JSONFormatter) Format(it query.RowIterator) error {
	bw := bufio.NewWriter(j.writer)

	names := headers(it.Schema())
	keys := make([][]byte, len(names))
	for i, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("failed to encode column name %q: %w", name, err)
		}
		keys[i] = k
	}

	var line []byte
	err := forEach(it, func(row query.Row) error {
		line = append(line[:0], '{')
		for i, v := range row {
			if i > 0 {
				line = append(line, ',')
			}
			line = append(line, keys[i]...)
			line = append(line, ':')
			b, err := json.Marshal(jsonValue(v))
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", names[i], err)
			}
			line = append(line, b...)
		}
		line = append(line, '}', '\n')
		_, err := bw.Write(line)
		return err
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// jsonValue maps a value onto what the encoder should emit
func jsonValue(v query.Value) interface{} {
	switch v.Type() {
	case query.TypeFloat:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return v.String()
		}
		return f
	case query.TypeDecimal:
		return v.Decimal().String()
	default:
		return v.Interface()
	}
}
