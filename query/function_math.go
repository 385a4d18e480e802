package query

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
)

// Math Functions

// AbsFunc returns the absolute value of a number
type AbsFunc struct{}

func (f *AbsFunc) Name() string                          { return "ABS" }
func (f *AbsFunc) MinArity() int                         { return 1 }
func (f *AbsFunc) MaxArity() int                         { return 1 }
func (f *AbsFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *AbsFunc) Evaluate(args []Value) (Value, error) {
	v := args[0]
	switch v.typ {
	case TypeNull:
		return v, nil
	case TypeInt:
		if v.i < 0 {
			return negate(v)
		}
		return v, nil
	case TypeFloat:
		return NewFloat(math.Abs(v.f)), nil
	case TypeDecimal:
		return NewDecimal(v.d.Abs()), nil
	default:
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{}

func (f *RoundFunc) Name() string                          { return "ROUND" }
func (f *RoundFunc) MinArity() int                         { return 1 }
func (f *RoundFunc) MaxArity() int                         { return 2 }
func (f *RoundFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *RoundFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}

	// Default to 0 decimal places
	var places int64
	if len(args) == 2 {
		p, err := intArg(f.Name(), args[1])
		if err != nil {
			return Null(), err
		}
		places = p
	}

	v := args[0]
	switch v.typ {
	case TypeInt:
		if places >= 0 {
			return v, nil
		}
		d, _ := v.AsDecimal()
		return NewInt(d.Round(int32(places)).IntPart()), nil
	case TypeDecimal:
		return NewDecimal(v.d.Round(int32(places))), nil
	case TypeFloat:
		multiplier := math.Pow(10, float64(places))
		return NewFloat(math.Round(v.f*multiplier) / multiplier), nil
	default:
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string                          { return "FLOOR" }
func (f *FloorFunc) MinArity() int                         { return 1 }
func (f *FloorFunc) MaxArity() int                         { return 1 }
func (f *FloorFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *FloorFunc) Evaluate(args []Value) (Value, error) {
	v := args[0]
	switch v.typ {
	case TypeNull, TypeInt:
		return v, nil
	case TypeFloat:
		return NewFloat(math.Floor(v.f)), nil
	case TypeDecimal:
		return NewDecimal(v.d.Floor()), nil
	default:
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
}

// CeilFunc returns the smallest integer greater than or equal to a number
type CeilFunc struct{}

func (f *CeilFunc) Name() string                          { return "CEIL" }
func (f *CeilFunc) MinArity() int                         { return 1 }
func (f *CeilFunc) MaxArity() int                         { return 1 }
func (f *CeilFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *CeilFunc) Evaluate(args []Value) (Value, error) {
	v := args[0]
	switch v.typ {
	case TypeNull, TypeInt:
		return v, nil
	case TypeFloat:
		return NewFloat(math.Ceil(v.f)), nil
	case TypeDecimal:
		return NewDecimal(v.d.Ceil()), nil
	default:
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
}

// ModFunc returns the remainder of division; a zero divisor is an error
type ModFunc struct{}

func (f *ModFunc) Name() string  { return "MOD" }
func (f *ModFunc) MinArity() int { return 2 }
func (f *ModFunc) MaxArity() int { return 2 }
func (f *ModFunc) ReturnType(args []ValueType) ValueType {
	if args[0].IsNumeric() && args[1].IsNumeric() {
		return commonNumericType(args[0], args[1])
	}
	return TypeNull
}
func (f *ModFunc) Evaluate(args []Value) (Value, error) {
	return arithmetic(OpMod, args[0], args[1])
}

// SqrtFunc returns the square root
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string                     { return "SQRT" }
func (f *SqrtFunc) MinArity() int                    { return 1 }
func (f *SqrtFunc) MaxArity() int                    { return 1 }
func (f *SqrtFunc) ReturnType([]ValueType) ValueType { return TypeFloat }
func (f *SqrtFunc) Evaluate(args []Value) (Value, error) {
	if args[0].IsNull() {
		return Null(), nil
	}
	num, err := floatArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	if num < 0 {
		return Null(), newError(ErrType, f.Name(), "negative argument %v", num)
	}
	return NewFloat(math.Sqrt(num)), nil
}

// PowerFunc returns x raised to the power of y
type PowerFunc struct{}

func (f *PowerFunc) Name() string                     { return "POWER" }
func (f *PowerFunc) MinArity() int                    { return 2 }
func (f *PowerFunc) MaxArity() int                    { return 2 }
func (f *PowerFunc) ReturnType([]ValueType) ValueType { return TypeFloat }
func (f *PowerFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	x, err := floatArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	y, err := floatArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	return NewFloat(math.Pow(x, y)), nil
}

// SignFunc returns the sign of a number (-1, 0, or 1)
type SignFunc struct{}

func (f *SignFunc) Name() string                     { return "SIGN" }
func (f *SignFunc) MinArity() int                    { return 1 }
func (f *SignFunc) MaxArity() int                    { return 1 }
func (f *SignFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *SignFunc) Evaluate(args []Value) (Value, error) {
	v := args[0]
	if v.IsNull() {
		return v, nil
	}
	if !v.typ.IsNumeric() {
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
	return NewInt(int64(compareNumeric(v, NewInt(0)))), nil
}

// TruncFunc truncates a number toward zero, optionally keeping some decimal places
type TruncFunc struct{}

func (f *TruncFunc) Name() string                          { return "TRUNC" }
func (f *TruncFunc) MinArity() int                         { return 1 }
func (f *TruncFunc) MaxArity() int                         { return 2 }
func (f *TruncFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *TruncFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}

	var places int64
	if len(args) == 2 {
		p, err := intArg(f.Name(), args[1])
		if err != nil {
			return Null(), err
		}
		places = p
	}

	v := args[0]
	switch v.typ {
	case TypeInt:
		if places >= 0 {
			return v, nil
		}
		d, _ := v.AsDecimal()
		return NewInt(truncDecimal(d, places).IntPart()), nil
	case TypeDecimal:
		return NewDecimal(truncDecimal(v.d, places)), nil
	case TypeFloat:
		multiplier := math.Pow(10, float64(places))
		return NewFloat(math.Trunc(v.f*multiplier) / multiplier), nil
	default:
		return Null(), newError(ErrType, f.Name(), "expected numeric argument, got %s", v.typ)
	}
}

// truncDecimal drops digits past places; negative places zero out integer digits
func truncDecimal(d decimal.Decimal, places int64) decimal.Decimal {
	if places >= 0 {
		return d.Truncate(int32(places))
	}
	shift := decimal.New(1, int32(-places))
	return d.Div(shift).Truncate(0).Mul(shift)
}

// RandomFunc returns a uniformly distributed FLOAT in [0, 1).
// It is evaluated per row, so two calls in one query give different values.
type RandomFunc struct{}

func (f *RandomFunc) Name() string                     { return "RANDOM" }
func (f *RandomFunc) MinArity() int                    { return 0 }
func (f *RandomFunc) MaxArity() int                    { return 0 }
func (f *RandomFunc) ReturnType([]ValueType) ValueType { return TypeFloat }
func (f *RandomFunc) Evaluate([]Value) (Value, error) {
	return NewFloat(rand.Float64()), nil
}

// MinFunc is the scalar MIN of its arguments. The aggregate of the same name is a
// separate expression and never reaches the registry.
type MinFunc struct{}

func (f *MinFunc) Name() string                          { return "MIN" }
func (f *MinFunc) MinArity() int                         { return 2 }
func (f *MinFunc) MaxArity() int                         { return -1 }
func (f *MinFunc) ReturnType(args []ValueType) ValueType { return unifyAll(args) }
func (f *MinFunc) Evaluate(args []Value) (Value, error) {
	return extreme(args, -1)
}

// MaxFunc is the scalar MAX of its arguments
type MaxFunc struct{}

func (f *MaxFunc) Name() string                          { return "MAX" }
func (f *MaxFunc) MinArity() int                         { return 2 }
func (f *MaxFunc) MaxArity() int                         { return -1 }
func (f *MaxFunc) ReturnType(args []ValueType) ValueType { return unifyAll(args) }
func (f *MaxFunc) Evaluate(args []Value) (Value, error) {
	return extreme(args, 1)
}

func unifyAll(types []ValueType) ValueType {
	t := TypeNull
	for _, a := range types {
		t = unifyTypes(t, a)
	}
	return t
}

// extreme picks the argument whose comparison against the others has sign dir.
// Any NULL gives NULL. Mixed numeric arguments are widened to their common type.
func extreme(args []Value, dir int) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	best := args[0]
	types := []ValueType{best.typ}
	for _, a := range args[1:] {
		c, err := compareValues(a, best)
		if err != nil {
			return Null(), err
		}
		if c*dir > 0 {
			best = a
		}
		types = append(types, a.typ)
	}
	return castValue(best, unifyAll(types))
}
