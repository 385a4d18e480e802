package reader

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/vegasq/planexec/query"
)

// timeUnit is the resolution of an INT64 timestamp column
type timeUnit int

const (
	unitNone timeUnit = iota
	unitMillis
	unitMicros
	unitNanos
)

// leaf describes how one parquet leaf column maps onto an engine column
type leaf struct {
	name     string
	kind     parquet.Kind
	typ      query.ValueType // element type; repeated leaves surface as TEXT
	nullable bool
	repeated bool
	date     bool
	unit     timeUnit
	scale    int32
}

// column returns the engine column for the leaf
func (l leaf) column() query.Column {
	typ := l.typ
	if l.repeated {
		typ = query.TypeText
	}
	return query.Column{Name: l.name, Type: typ, Nullable: l.nullable || l.repeated}
}

// leavesOf maps every leaf column of a parquet schema, in column index order.
// Nested fields are flattened with "_" so that dotted names stay free for table qualifiers.
func leavesOf(schema *parquet.Schema) ([]leaf, error) {
	paths := schema.Columns()
	leaves := make([]leaf, len(paths))
	for _, path := range paths {
		lc, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("failed to look up column %s", strings.Join(path, "."))
		}
		if lc.ColumnIndex < 0 || lc.ColumnIndex >= len(leaves) {
			return nil, fmt.Errorf("column %s has index %d out of range", strings.Join(path, "."), lc.ColumnIndex)
		}
		leaves[lc.ColumnIndex] = mapLeaf(strings.Join(path, "_"), lc.Node, lc.MaxRepetitionLevel > 0, lc.MaxDefinitionLevel > 0)
	}
	return leaves, nil
}

// mapLeaf picks the engine type for a leaf from its logical type, falling back to the physical type
func mapLeaf(name string, node parquet.Node, repeated, nullable bool) leaf {
	l := leaf{name: name, repeated: repeated, nullable: nullable}
	t := node.Type()
	l.kind = t.Kind()

	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Decimal != nil:
			l.typ = query.TypeDecimal
			l.scale = lt.Decimal.Scale
			return l
		case lt.Date != nil:
			l.typ = query.TypeTimestamp
			l.date = true
			return l
		case lt.Timestamp != nil:
			l.typ = query.TypeTimestamp
			switch {
			case lt.Timestamp.Unit.Millis != nil:
				l.unit = unitMillis
			case lt.Timestamp.Unit.Micros != nil:
				l.unit = unitMicros
			default:
				l.unit = unitNanos
			}
			return l
		}
	}

	switch l.kind {
	case parquet.Boolean:
		l.typ = query.TypeBool
	case parquet.Int32, parquet.Int64:
		l.typ = query.TypeInt
	case parquet.Float, parquet.Double:
		l.typ = query.TypeFloat
	default:
		// BYTE_ARRAY, FIXED_LEN_BYTE_ARRAY and legacy INT96 are read as text
		l.typ = query.TypeText
	}
	return l
}

// convert turns one parquet value into an engine value
func (l leaf) convert(v parquet.Value) (query.Value, error) {
	if v.IsNull() {
		return query.Null(), nil
	}

	switch l.typ {
	case query.TypeDecimal:
		unscaled, err := unscaledInt(v)
		if err != nil {
			return query.Null(), fmt.Errorf("column %s: %w", l.name, err)
		}
		return query.NewDecimal(decimal.NewFromBigInt(unscaled, -l.scale)), nil
	case query.TypeTimestamp:
		if l.date {
			return query.NewTimestamp(time.Unix(int64(v.Int32())*86400, 0)), nil
		}
		n := v.Int64()
		switch l.unit {
		case unitMillis:
			return query.NewTimestamp(time.UnixMilli(n)), nil
		case unitMicros:
			return query.NewTimestamp(time.UnixMicro(n)), nil
		default:
			return query.NewTimestamp(time.Unix(0, n)), nil
		}
	}

	switch v.Kind() {
	case parquet.Boolean:
		return query.NewBool(v.Boolean()), nil
	case parquet.Int32:
		return query.NewInt(int64(v.Int32())), nil
	case parquet.Int64:
		return query.NewInt(v.Int64()), nil
	case parquet.Float:
		return query.NewFloat(float64(v.Float())), nil
	case parquet.Double:
		return query.NewFloat(v.Double()), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return query.NewText(string(v.ByteArray())), nil
	default:
		return query.NewText(fmt.Sprint(v)), nil
	}
}

// unscaledInt reads the unscaled integer of a DECIMAL value stored as INT32, INT64 or big-endian bytes
func unscaledInt(v parquet.Value) (*big.Int, error) {
	switch v.Kind() {
	case parquet.Int32:
		return big.NewInt(int64(v.Int32())), nil
	case parquet.Int64:
		return big.NewInt(v.Int64()), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		b := v.ByteArray()
		n := new(big.Int).SetBytes(b)
		// Two's complement sign
		if len(b) > 0 && b[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported decimal encoding %s", v.Kind())
	}
}

// convertRow converts one parquet row into out, which has at least len(leaves) positions.
// Repeated leaves are rendered as a bracketed list of their elements.
func convertRow(leaves []leaf, row parquet.Row, out query.Row) error {
	var lists map[int][]string
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(leaves) {
			continue
		}
		l := leaves[c]
		if l.repeated {
			if v.IsNull() {
				continue
			}
			elem, err := l.convert(v)
			if err != nil {
				return err
			}
			if lists == nil {
				lists = make(map[int][]string)
			}
			lists[c] = append(lists[c], elem.String())
			continue
		}
		val, err := l.convert(v)
		if err != nil {
			return err
		}
		out[c] = val
	}
	for c, items := range lists {
		out[c] = query.NewText("[" + strings.Join(items, ", ") + "]")
	}
	return nil
}
