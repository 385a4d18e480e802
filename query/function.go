package query

import (
	"strings"
	"sync"
)

// Function represents a scalar function that can be evaluated
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// ReturnType infers the result type from the argument types (TypeNull if unknown)
	ReturnType(args []ValueType) ValueType
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []Value) (Value, error)
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates a new function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register registers a function, replacing any function with the same name
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToUpper(f.Name())] = f
}

// Get retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToUpper(name)]
	return f, exists
}

func (r *FunctionRegistry) lookup(name string) (Function, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, newError(ErrNotFound, "function", "unknown function %s", strings.ToUpper(name))
	}
	return f, nil
}

// globalRegistry is the default function registry
var globalRegistry *FunctionRegistry

func init() {
	globalRegistry = NewFunctionRegistry()

	// String functions
	globalRegistry.Register(&UpperFunc{})
	globalRegistry.Register(&LowerFunc{})
	globalRegistry.Register(&ConcatFunc{})
	globalRegistry.Register(&LengthFunc{})
	globalRegistry.Register(&TrimFunc{})
	globalRegistry.Register(&LTrimFunc{})
	globalRegistry.Register(&RTrimFunc{})
	globalRegistry.Register(&SubstringFunc{})
	globalRegistry.Register(&ReplaceFunc{})
	globalRegistry.Register(&SplitFunc{})
	globalRegistry.Register(&ReverseFunc{})
	globalRegistry.Register(&ContainsFunc{})
	globalRegistry.Register(&StartsWithFunc{})
	globalRegistry.Register(&EndsWithFunc{})
	globalRegistry.Register(&RepeatFunc{})

	// Math functions
	globalRegistry.Register(&AbsFunc{})
	globalRegistry.Register(&RoundFunc{})
	globalRegistry.Register(&FloorFunc{})
	globalRegistry.Register(&CeilFunc{})
	globalRegistry.Register(&ModFunc{})
	globalRegistry.Register(&SqrtFunc{})
	globalRegistry.Register(&PowerFunc{})
	globalRegistry.Register(&SignFunc{})
	globalRegistry.Register(&TruncFunc{})
	globalRegistry.Register(&RandomFunc{})
	globalRegistry.Register(&MinFunc{})
	globalRegistry.Register(&MaxFunc{})

	// Date/time functions
	globalRegistry.Register(&YearFunc{})
	globalRegistry.Register(&MonthFunc{})
	globalRegistry.Register(&DayFunc{})
	globalRegistry.Register(&DateTruncFunc{})
	globalRegistry.Register(&DatePartFunc{})
	globalRegistry.Register(&DateAddFunc{})
	globalRegistry.Register(&DateSubFunc{})
	globalRegistry.Register(&DateDiffFunc{})
	globalRegistry.Register(&NowFunc{})
	globalRegistry.Register(&CurrentDateFunc{})
	globalRegistry.Register(&CurrentTimeFunc{})

	// Conversion and conditional functions
	globalRegistry.Register(&CastFunc{})
	globalRegistry.Register(&TryCastFunc{})
	globalRegistry.Register(&ToStringFunc{})
	globalRegistry.Register(&ToNumberFunc{})
	globalRegistry.Register(&ToDateFunc{})
	globalRegistry.Register(&CoalesceFunc{})
	globalRegistry.Register(&NullIfFunc{})
}

// GetGlobalRegistry returns the global function registry
func GetGlobalRegistry() *FunctionRegistry {
	return globalRegistry
}

// hasNull reports whether any argument is NULL; most functions return NULL in that case
func hasNull(args []Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

// textArg requires a TEXT argument
func textArg(fn string, v Value) (string, error) {
	if v.typ != TypeText {
		return "", newError(ErrType, fn, "expected TEXT argument, got %s", v.typ)
	}
	return v.s, nil
}

// intArg requires an integral numeric argument
func intArg(fn string, v Value) (int64, error) {
	i, ok := v.AsInt()
	if !ok {
		return 0, newError(ErrType, fn, "expected INTEGER argument, got %s %s", v.typ, v)
	}
	return i, nil
}

// floatArg requires a numeric argument
func floatArg(fn string, v Value) (float64, error) {
	f, ok := v.AsFloat()
	if !ok {
		return 0, newError(ErrType, fn, "expected numeric argument, got %s", v.typ)
	}
	return f, nil
}

// Conditional Functions

// CoalesceFunc returns the first non-NULL argument
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "COALESCE" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) ReturnType(args []ValueType) ValueType {
	t := TypeNull
	for _, a := range args {
		t = unifyTypes(t, a)
	}
	return t
}
func (f *CoalesceFunc) Evaluate(args []Value) (Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return Null(), nil
}

// NullIfFunc returns NULL when both arguments are equal, otherwise the first
type NullIfFunc struct{}

func (f *NullIfFunc) Name() string                          { return "NULLIF" }
func (f *NullIfFunc) MinArity() int                         { return 2 }
func (f *NullIfFunc) MaxArity() int                         { return 2 }
func (f *NullIfFunc) ReturnType(args []ValueType) ValueType { return args[0] }
func (f *NullIfFunc) Evaluate(args []Value) (Value, error) {
	eq, err := compareTri(OpEq, args[0], args[1])
	if err != nil {
		return Null(), err
	}
	if eq == True {
		return Null(), nil
	}
	return args[0], nil
}
