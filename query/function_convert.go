package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Type Conversion Functions

// CastFunc converts a value to the type named by its second argument, e.g. CAST(x, 'INTEGER')
type CastFunc struct{}

func (f *CastFunc) Name() string                     { return "CAST" }
func (f *CastFunc) MinArity() int                    { return 2 }
func (f *CastFunc) MaxArity() int                    { return 2 }
func (f *CastFunc) ReturnType([]ValueType) ValueType { return TypeNull }
func (f *CastFunc) Evaluate(args []Value) (Value, error) {
	typeName, err := textArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	target, err := ParseValueType(typeName)
	if err != nil {
		return Null(), err
	}
	return castValue(args[0], target)
}

// TryCastFunc is CAST that yields NULL when the value cannot be converted.
// An unknown type name is still an error.
type TryCastFunc struct{}

func (f *TryCastFunc) Name() string                     { return "TRY_CAST" }
func (f *TryCastFunc) MinArity() int                    { return 2 }
func (f *TryCastFunc) MaxArity() int                    { return 2 }
func (f *TryCastFunc) ReturnType([]ValueType) ValueType { return TypeNull }
func (f *TryCastFunc) Evaluate(args []Value) (Value, error) {
	typeName, err := textArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	target, err := ParseValueType(typeName)
	if err != nil {
		return Null(), err
	}
	v, err := castValue(args[0], target)
	if err != nil {
		return Null(), nil
	}
	return v, nil
}

// ToStringFunc renders any value as TEXT
type ToStringFunc struct{}

func (f *ToStringFunc) Name() string                     { return "TO_STRING" }
func (f *ToStringFunc) MinArity() int                    { return 1 }
func (f *ToStringFunc) MaxArity() int                    { return 1 }
func (f *ToStringFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *ToStringFunc) Evaluate(args []Value) (Value, error) {
	return castValue(args[0], TypeText)
}

// ToNumberFunc passes numbers through and parses TEXT as an exact DECIMAL
type ToNumberFunc struct{}

func (f *ToNumberFunc) Name() string  { return "TO_NUMBER" }
func (f *ToNumberFunc) MinArity() int { return 1 }
func (f *ToNumberFunc) MaxArity() int { return 1 }
func (f *ToNumberFunc) ReturnType(args []ValueType) ValueType {
	if args[0].IsNumeric() {
		return args[0]
	}
	return TypeDecimal
}
func (f *ToNumberFunc) Evaluate(args []Value) (Value, error) {
	v := args[0]
	if v.IsNull() || v.typ.IsNumeric() {
		return v, nil
	}
	if v.typ == TypeBool {
		i, _ := castValue(v, TypeInt)
		return castValue(i, TypeDecimal)
	}
	return castValue(v, TypeDecimal)
}

// ToDateFunc converts a TIMESTAMP or TEXT date to midnight UTC of its day
type ToDateFunc struct{}

func (f *ToDateFunc) Name() string                     { return "TO_DATE" }
func (f *ToDateFunc) MinArity() int                    { return 1 }
func (f *ToDateFunc) MaxArity() int                    { return 1 }
func (f *ToDateFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *ToDateFunc) Evaluate(args []Value) (Value, error) {
	if args[0].IsNull() {
		return Null(), nil
	}
	t, err := timestampArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// Cast converts v to target with the rules of CAST. NULL casts to NULL.
func Cast(v Value, target ValueType) (Value, error) {
	return castValue(v, target)
}

// castValue converts v to target; NULL casts to NULL
func castValue(v Value, target ValueType) (Value, error) {
	if v.IsNull() || v.typ == target || target == TypeNull {
		return v, nil
	}
	fail := func() (Value, error) {
		return Null(), newError(ErrType, "CAST", "cannot cast %s %q to %s", v.typ, v.String(), target)
	}

	switch target {
	case TypeText:
		return NewText(v.String()), nil
	case TypeInt:
		switch v.typ {
		case TypeFloat:
			if math.IsNaN(v.f) || v.f > math.MaxInt64 || v.f < math.MinInt64 {
				return fail()
			}
			return NewInt(int64(math.Round(v.f))), nil
		case TypeDecimal:
			return NewInt(v.d.Round(0).IntPart()), nil
		case TypeBool:
			if v.b {
				return NewInt(1), nil
			}
			return NewInt(0), nil
		case TypeText:
			i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return fail()
			}
			return NewInt(i), nil
		}
	case TypeFloat:
		switch v.typ {
		case TypeInt, TypeDecimal:
			f, _ := v.AsFloat()
			return NewFloat(f), nil
		case TypeText:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return fail()
			}
			return NewFloat(f), nil
		}
	case TypeDecimal:
		switch v.typ {
		case TypeInt, TypeFloat:
			d, ok := v.AsDecimal()
			if !ok {
				return fail()
			}
			return NewDecimal(d), nil
		case TypeText:
			d, err := decimal.NewFromString(strings.TrimSpace(v.s))
			if err != nil {
				return fail()
			}
			return NewDecimal(d), nil
		}
	case TypeBool:
		switch v.typ {
		case TypeInt:
			return NewBool(v.i != 0), nil
		case TypeText:
			b, err := strconv.ParseBool(strings.TrimSpace(v.s))
			if err != nil {
				return fail()
			}
			return NewBool(b), nil
		}
	case TypeTimestamp:
		if v.typ == TypeText {
			t, err := parseTimestamp(v.s)
			if err != nil {
				return fail()
			}
			return NewTimestamp(t), nil
		}
	}
	return fail()
}
