package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueType identifies the tag of a Value
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeDecimal
	TypeText
	TypeBool
	TypeTimestamp
)

// String returns the SQL-ish name of the type
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeDecimal:
		return "DECIMAL"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// IsNumeric reports whether the type belongs to the numeric family
func (t ValueType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeDecimal
}

// ParseValueType parses a type name as used in plan files and CAST
func ParseValueType(name string) (ValueType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NULL":
		return TypeNull, nil
	case "INT", "INTEGER", "BIGINT", "INT64", "INT32", "SMALLINT":
		return TypeInt, nil
	case "FLOAT", "DOUBLE", "REAL", "FLOAT64", "FLOAT32":
		return TypeFloat, nil
	case "DECIMAL", "NUMERIC":
		return TypeDecimal, nil
	case "TEXT", "STRING", "VARCHAR", "CHAR":
		return TypeText, nil
	case "BOOL", "BOOLEAN":
		return TypeBool, nil
	case "TIMESTAMP", "DATE", "DATETIME":
		return TypeTimestamp, nil
	default:
		return TypeNull, newError(ErrType, "parse type", "unknown type name %q", name)
	}
}

// Value is a tagged scalar. The zero Value is NULL.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	d   decimal.Decimal
	s   string
	b   bool
	t   time.Time
}

// Null returns the NULL value
func Null() Value { return Value{} }

// NewInt returns an integer value
func NewInt(i int64) Value { return Value{typ: TypeInt, i: i} }

// NewFloat returns a floating point value
func NewFloat(f float64) Value { return Value{typ: TypeFloat, f: f} }

// NewDecimal returns an exact decimal value
func NewDecimal(d decimal.Decimal) Value { return Value{typ: TypeDecimal, d: d} }

// NewText returns a text value
func NewText(s string) Value { return Value{typ: TypeText, s: s} }

// NewBool returns a boolean value
func NewBool(b bool) Value { return Value{typ: TypeBool, b: b} }

// NewTimestamp returns a timestamp value normalized to UTC
func NewTimestamp(t time.Time) Value { return Value{typ: TypeTimestamp, t: t.UTC()} }

// NewDate returns a timestamp value at midnight UTC of the given day
func NewDate(year int, month time.Month, day int) Value {
	return NewTimestamp(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func (v Value) Type() ValueType          { return v.typ }
func (v Value) IsNull() bool             { return v.typ == TypeNull }
func (v Value) Int() int64               { return v.i }
func (v Value) Float() float64           { return v.f }
func (v Value) Decimal() decimal.Decimal { return v.d }
func (v Value) Text() string             { return v.s }
func (v Value) Bool() bool               { return v.b }
func (v Value) Timestamp() time.Time     { return v.t }

// AsFloat returns the value as float64 when it is numeric
func (v Value) AsFloat() (float64, bool) {
	switch v.typ {
	case TypeInt:
		return float64(v.i), true
	case TypeFloat:
		return v.f, true
	case TypeDecimal:
		f, _ := v.d.Float64()
		return f, true
	default:
		return 0, false
	}
}

// AsDecimal returns the value as an exact decimal when it is numeric
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.typ {
	case TypeInt:
		return decimal.NewFromInt(v.i), true
	case TypeFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v.f), true
	case TypeDecimal:
		return v.d, true
	default:
		return decimal.Zero, false
	}
}

// AsInt returns the value as int64 when it is an integer or an integral number
func (v Value) AsInt() (int64, bool) {
	switch v.typ {
	case TypeInt:
		return v.i, true
	case TypeFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), true
		}
	case TypeDecimal:
		if v.d.Equal(v.d.Truncate(0)) {
			return v.d.IntPart(), true
		}
	}
	return 0, false
}

// String renders the value for display; NULL renders as "NULL"
func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeDecimal:
		return v.d.String()
	case TypeText:
		return v.s
	case TypeBool:
		if v.b {
			return "true"
		}
		return "false"
	case TypeTimestamp:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339Nano)
	default:
		return "?"
	}
}

// Interface returns the native Go representation (nil for NULL)
func (v Value) Interface() interface{} {
	switch v.typ {
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeDecimal:
		return v.d
	case TypeText:
		return v.s
	case TypeBool:
		return v.b
	case TypeTimestamp:
		return v.t
	default:
		return nil
	}
}

// ValueFromInterface converts a native Go value into a Value
func ValueFromInterface(x interface{}) (Value, error) {
	switch val := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return val, nil
	case int:
		return NewInt(int64(val)), nil
	case int8:
		return NewInt(int64(val)), nil
	case int16:
		return NewInt(int64(val)), nil
	case int32:
		return NewInt(int64(val)), nil
	case int64:
		return NewInt(val), nil
	case uint8:
		return NewInt(int64(val)), nil
	case uint16:
		return NewInt(int64(val)), nil
	case uint32:
		return NewInt(int64(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return NewDecimal(decimal.RequireFromString(strconv.FormatUint(val, 10))), nil
		}
		return NewInt(int64(val)), nil
	case uint:
		return ValueFromInterface(uint64(val))
	case float32:
		return NewFloat(float64(val)), nil
	case float64:
		return NewFloat(val), nil
	case decimal.Decimal:
		return NewDecimal(val), nil
	case string:
		return NewText(val), nil
	case []byte:
		return NewText(string(val)), nil
	case bool:
		return NewBool(val), nil
	case time.Time:
		return NewTimestamp(val), nil
	case *int64:
		if val == nil {
			return Null(), nil
		}
		return NewInt(*val), nil
	case *float64:
		if val == nil {
			return Null(), nil
		}
		return NewFloat(*val), nil
	case *string:
		if val == nil {
			return Null(), nil
		}
		return NewText(*val), nil
	case *bool:
		if val == nil {
			return Null(), nil
		}
		return NewBool(*val), nil
	default:
		return Null(), newError(ErrType, "convert value", "unsupported Go type %T", x)
	}
}

// compareValues orders two non-NULL values.
// Numeric types compare across int, float and decimal; other types only compare with themselves.
func compareValues(a, b Value) (int, error) {
	if a.typ.IsNumeric() && b.typ.IsNumeric() {
		return compareNumeric(a, b), nil
	}
	if a.typ != b.typ {
		return 0, newError(ErrType, "compare", "cannot compare %s with %s", a.typ, b.typ)
	}
	switch a.typ {
	case TypeText:
		return strings.Compare(a.s, b.s), nil
	case TypeBool:
		switch {
		case a.b == b.b:
			return 0, nil
		case !a.b:
			return -1, nil
		default:
			return 1, nil
		}
	case TypeTimestamp:
		return a.t.Compare(b.t), nil
	default:
		return 0, newError(ErrType, "compare", "cannot compare %s values", a.typ)
	}
}

// compareNumeric compares two numeric values. Mixed comparisons go through exactDecimal,
// so an int and a float are equal only when they denote the same number.
func compareNumeric(a, b Value) int {
	if a.typ == TypeInt && b.typ == TypeInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	}
	if a.typ != TypeFloat || b.typ != TypeFloat {
		da, okA := exactDecimal(a)
		db, okB := exactDecimal(b)
		if okA && okB {
			return da.Cmp(db)
		}
	}
	// Two floats, or NaN and infinities
	fa, _ := a.AsFloat()
	fb, _ := b.AsFloat()
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// exactDecimal converts a numeric value to a decimal for mixed comparisons and hash keys.
// Integral floats in int64 range convert through int64 to keep every digit.
func exactDecimal(v Value) (decimal.Decimal, bool) {
	if v.typ == TypeFloat && v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
		return decimal.NewFromInt(int64(v.f)), true
	}
	return v.AsDecimal()
}

// compareForSort orders values for ORDER BY and window ordering.
// NULL placement is decided by the caller; here NULLs only compare equal to each other.
func compareForSort(a, b Value, nullsFirst bool) (int, error) {
	switch {
	case a.IsNull() && b.IsNull():
		return 0, nil
	case a.IsNull():
		if nullsFirst {
			return -1, nil
		}
		return 1, nil
	case b.IsNull():
		if nullsFirst {
			return 1, nil
		}
		return -1, nil
	}
	return compareValues(a, b)
}

// commonNumericType returns the result type of arithmetic between two numeric types
func commonNumericType(a, b ValueType) ValueType {
	switch {
	case a == TypeFloat || b == TypeFloat:
		return TypeFloat
	case a == TypeDecimal || b == TypeDecimal:
		return TypeDecimal
	default:
		return TypeInt
	}
}

// typesCompatible reports whether two column types can be unified by a set operator
func typesCompatible(a, b ValueType) bool {
	if a == b || a == TypeNull || b == TypeNull {
		return true
	}
	return a.IsNumeric() && b.IsNumeric()
}

// unifyTypes returns the type of a column that holds values of both types
func unifyTypes(a, b ValueType) ValueType {
	switch {
	case a == TypeNull:
		return b
	case b == TypeNull || a == b:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return commonNumericType(a, b)
	default:
		return a
	}
}
