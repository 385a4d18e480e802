package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a parquet file and the engine column it is read as.
type SchemaInfo struct {
	Name         string `json:"name"`
	Column       string `json:"column"`
	EngineType   string `json:"engine_type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type,omitempty"`
	Nullable     bool   `json:"nullable"`
	Repeated     bool   `json:"repeated"`
}

// ExtractSchemaInfo extracts schema information from a parquet file.
//
// Name uses dot notation for nested fields (e.g. "address.street"); Column is the
// flattened engine column name (e.g. "address_street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	schema := r.ParquetSchema()
	infos := make([]SchemaInfo, 0, len(r.leaves))
	for _, path := range schema.Columns() {
		lc, ok := schema.Lookup(path...)
		if !ok || lc.ColumnIndex >= len(r.leaves) {
			continue
		}
		l := r.leaves[lc.ColumnIndex]
		col := l.column()
		infos = append(infos, SchemaInfo{
			Name:         strings.Join(path, "."),
			Column:       col.Name,
			EngineType:   col.Type.String(),
			PhysicalType: physicalType(l.kind),
			LogicalType:  logicalType(lc.Node),
			Nullable:     col.Nullable,
			Repeated:     l.repeated,
		})
	}
	return infos, nil
}

// physicalType returns the parquet physical type name
func physicalType(kind parquet.Kind) string {
	switch kind {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

func logicalType(node parquet.Node) string {
	lt := node.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}
