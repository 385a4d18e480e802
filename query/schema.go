package query

import (
	"strconv"
	"strings"
)

// Column describes one position of a schema
type Column struct {
	Name     string    // Column name
	Table    string    // Qualifier (table name or alias), may be empty
	Type     ValueType // TypeNull when only NULLs are known
	Nullable bool
}

// QualifiedName returns "table.name" or just the name when unqualified
func (c Column) QualifiedName() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Schema is an ordered list of columns. Names need not be unique.
type Schema struct {
	Columns []Column
}

// NewSchema builds a schema from columns
func NewSchema(columns ...Column) Schema {
	return Schema{Columns: columns}
}

// Len returns the number of columns
func (s Schema) Len() int {
	return len(s.Columns)
}

// Names returns the column names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index resolves a column reference to a position.
//
// A reference is either "name" or "qualifier.name"; matching is case-insensitive.
// A bare name that matches more than one column is ambiguous.
func (s Schema) Index(ref string) (int, error) {
	qualifier, name := splitQualified(ref)

	found := -1
	for i, c := range s.Columns {
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if qualifier != "" && !strings.EqualFold(c.Table, qualifier) {
			continue
		}
		if found >= 0 {
			return -1, newError(ErrSchema, "resolve column", "column reference %q is ambiguous", ref)
		}
		found = i
	}

	// Columns named "a.b" (for example produced by a projection alias) match the full reference
	if found < 0 && qualifier != "" {
		for i, c := range s.Columns {
			if strings.EqualFold(c.Name, ref) {
				return i, nil
			}
		}
	}

	if found < 0 {
		return -1, newError(ErrNotFound, "resolve column", "column %q not found", ref)
	}
	return found, nil
}

// Concat returns the schema of a join output
func (s Schema) Concat(other Schema) Schema {
	cols := make([]Column, 0, len(s.Columns)+len(other.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, other.Columns...)
	return Schema{Columns: cols}
}

// Qualify returns a copy of the schema with every column qualified by alias
func (s Schema) Qualify(alias string) Schema {
	if alias == "" {
		return s
	}
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		c.Table = alias
		cols[i] = c
	}
	return Schema{Columns: cols}
}

// nullable returns a copy with every column marked nullable (the padded side of an outer join)
func (s Schema) nullable() Schema {
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		c.Nullable = true
		cols[i] = c
	}
	return Schema{Columns: cols}
}

// String renders the schema as "name TYPE, ..."
func (s Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.QualifiedName() + " " + c.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// splitQualified splits "t.col" into ("t", "col")
func splitQualified(ref string) (string, string) {
	if idx := strings.LastIndex(ref, "."); idx > 0 && idx < len(ref)-1 {
		return ref[:idx], ref[idx+1:]
	}
	return "", ref
}

// Row is a fixed-length tuple conforming to a schema. Rows are never mutated once produced.
type Row []Value

// concatRows builds a new row from a left and right row
func concatRows(left, right Row) Row {
	out := make(Row, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...)
}

// nullRow returns a row of n NULLs
func nullRow(n int) Row {
	return make(Row, n)
}

// Relation is a schema plus a multiset of rows.
// Rows are ordered only when Ordered is set by an ORDER BY stage.
type Relation struct {
	Schema  Schema
	Rows    []Row
	Ordered bool
}

// NewRelation builds a relation from a schema and rows
func NewRelation(schema Schema, rows []Row) *Relation {
	return &Relation{Schema: schema, Rows: rows}
}

// Len returns the number of rows
func (r *Relation) Len() int {
	return len(r.Rows)
}

// Column returns all values of the named column
func (r *Relation) Column(ref string) ([]Value, error) {
	idx, err := r.Schema.Index(ref)
	if err != nil {
		return nil, err
	}
	values := make([]Value, len(r.Rows))
	for i, row := range r.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Maps returns the rows as maps keyed by column name, for formatters
func (r *Relation) Maps() []map[string]interface{} {
	out := make([]map[string]interface{}, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]interface{}, len(row))
		for j, v := range row {
			m[r.Schema.Columns[j].Name] = v.Interface()
		}
		out[i] = m
	}
	return out
}

// keyBuilder encodes value tuples into strings where NULL equals NULL and numerically
// equal int, float and decimal values produce the same bytes.
type keyBuilder struct {
	sb strings.Builder
}

func (k *keyBuilder) reset() {
	k.sb.Reset()
}

func (k *keyBuilder) add(v Value) {
	switch v.typ {
	case TypeNull:
		k.sb.WriteString("z;")
	case TypeInt:
		k.sb.WriteString("n")
		k.sb.WriteString(strconv.FormatInt(v.i, 10))
		k.sb.WriteByte(';')
	case TypeFloat, TypeDecimal:
		k.sb.WriteString("n")
		if d, ok := exactDecimal(v); ok {
			k.sb.WriteString(d.String())
		} else {
			k.sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		k.sb.WriteByte(';')
	case TypeText:
		k.sb.WriteString("s")
		k.sb.WriteString(strconv.Itoa(len(v.s)))
		k.sb.WriteByte(':')
		k.sb.WriteString(v.s)
	case TypeBool:
		if v.b {
			k.sb.WriteString("b1;")
		} else {
			k.sb.WriteString("b0;")
		}
	case TypeTimestamp:
		k.sb.WriteString("t")
		k.sb.WriteString(strconv.FormatInt(v.t.UnixNano(), 10))
		k.sb.WriteByte(';')
	}
}

func (k *keyBuilder) String() string {
	return k.sb.String()
}

// rowKey encodes a whole row with NULL-equal semantics
func rowKey(row Row) string {
	var kb keyBuilder
	for _, v := range row {
		kb.add(v)
	}
	return kb.String()
}

// valuesKey encodes a tuple of values with NULL-equal semantics
func valuesKey(values []Value) string {
	return rowKey(values)
}
