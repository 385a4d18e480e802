package query

import (
	"strings"
	"unicode/utf8"
)

// String Functions

// UpperFunc converts a string to uppercase
type UpperFunc struct{}

func (f *UpperFunc) Name() string                     { return "UPPER" }
func (f *UpperFunc) MinArity() int                    { return 1 }
func (f *UpperFunc) MaxArity() int                    { return 1 }
func (f *UpperFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *UpperFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], strings.ToUpper)
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{}

func (f *LowerFunc) Name() string                     { return "LOWER" }
func (f *LowerFunc) MinArity() int                    { return 1 }
func (f *LowerFunc) MaxArity() int                    { return 1 }
func (f *LowerFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *LowerFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], strings.ToLower)
}

// ConcatFunc concatenates its arguments, skipping NULLs
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string                     { return "CONCAT" }
func (f *ConcatFunc) MinArity() int                    { return 1 }
func (f *ConcatFunc) MaxArity() int                    { return -1 } // variadic
func (f *ConcatFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *ConcatFunc) Evaluate(args []Value) (Value, error) {
	var builder strings.Builder
	for _, arg := range args {
		if arg.IsNull() {
			continue
		}
		builder.WriteString(arg.String())
	}
	return NewText(builder.String()), nil
}

// LengthFunc returns the number of characters in a string
type LengthFunc struct{}

func (f *LengthFunc) Name() string                     { return "LENGTH" }
func (f *LengthFunc) MinArity() int                    { return 1 }
func (f *LengthFunc) MaxArity() int                    { return 1 }
func (f *LengthFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *LengthFunc) Evaluate(args []Value) (Value, error) {
	if args[0].IsNull() {
		return Null(), nil
	}
	str, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	return NewInt(int64(utf8.RuneCountInString(str))), nil
}

// TrimFunc trims whitespace from both ends of a string
type TrimFunc struct{}

func (f *TrimFunc) Name() string                     { return "TRIM" }
func (f *TrimFunc) MinArity() int                    { return 1 }
func (f *TrimFunc) MaxArity() int                    { return 1 }
func (f *TrimFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *TrimFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], strings.TrimSpace)
}

// LTrimFunc trims leading whitespace
type LTrimFunc struct{}

func (f *LTrimFunc) Name() string                     { return "LTRIM" }
func (f *LTrimFunc) MinArity() int                    { return 1 }
func (f *LTrimFunc) MaxArity() int                    { return 1 }
func (f *LTrimFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *LTrimFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], func(s string) string { return strings.TrimLeft(s, " \t\n\r") })
}

// RTrimFunc trims trailing whitespace
type RTrimFunc struct{}

func (f *RTrimFunc) Name() string                     { return "RTRIM" }
func (f *RTrimFunc) MinArity() int                    { return 1 }
func (f *RTrimFunc) MaxArity() int                    { return 1 }
func (f *RTrimFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *RTrimFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], func(s string) string { return strings.TrimRight(s, " \t\n\r") })
}

// SubstringFunc extracts a substring (1-indexed, SQL style)
type SubstringFunc struct{}

func (f *SubstringFunc) Name() string                     { return "SUBSTRING" }
func (f *SubstringFunc) MinArity() int                    { return 2 }
func (f *SubstringFunc) MaxArity() int                    { return 3 }
func (f *SubstringFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *SubstringFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	str, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	start, err := intArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}

	runes := []rune(str)
	// Positions before 1 still consume length, as in SQL
	end := int64(len(runes))
	if len(args) == 3 {
		length, err := intArg(f.Name(), args[2])
		if err != nil {
			return Null(), err
		}
		if length < 0 {
			return Null(), newError(ErrType, f.Name(), "negative length %d", length)
		}
		end = start - 1 + length
	}
	startIdx := start - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	if startIdx >= end {
		return NewText(""), nil
	}
	return NewText(string(runes[startIdx:end])), nil
}

// ReplaceFunc replaces every occurrence of a substring
type ReplaceFunc struct{}

func (f *ReplaceFunc) Name() string                     { return "REPLACE" }
func (f *ReplaceFunc) MinArity() int                    { return 3 }
func (f *ReplaceFunc) MaxArity() int                    { return 3 }
func (f *ReplaceFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *ReplaceFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	parts := make([]string, 3)
	for i, a := range args {
		s, err := textArg(f.Name(), a)
		if err != nil {
			return Null(), err
		}
		parts[i] = s
	}
	return NewText(strings.ReplaceAll(parts[0], parts[1], parts[2])), nil
}

// SplitFunc splits a string on a delimiter and returns the n-th field (1-based).
// A negative n counts from the end; a field past either end is NULL.
type SplitFunc struct{}

func (f *SplitFunc) Name() string                     { return "SPLIT" }
func (f *SplitFunc) MinArity() int                    { return 3 }
func (f *SplitFunc) MaxArity() int                    { return 3 }
func (f *SplitFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *SplitFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	str, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	delim, err := textArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	n, err := intArg(f.Name(), args[2])
	if err != nil {
		return Null(), err
	}
	if n == 0 {
		return Null(), newError(ErrType, f.Name(), "field position must not be 0")
	}

	fields := strings.Split(str, delim)
	if n < 0 {
		n += int64(len(fields)) + 1
	}
	if n < 1 || n > int64(len(fields)) {
		return Null(), nil
	}
	return NewText(fields[n-1]), nil
}

// ReverseFunc reverses a string
type ReverseFunc struct{}

func (f *ReverseFunc) Name() string                     { return "REVERSE" }
func (f *ReverseFunc) MinArity() int                    { return 1 }
func (f *ReverseFunc) MaxArity() int                    { return 1 }
func (f *ReverseFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *ReverseFunc) Evaluate(args []Value) (Value, error) {
	return mapText(f.Name(), args[0], func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})
}

// ContainsFunc checks if a string contains a substring
type ContainsFunc struct{}

func (f *ContainsFunc) Name() string                     { return "CONTAINS" }
func (f *ContainsFunc) MinArity() int                    { return 2 }
func (f *ContainsFunc) MaxArity() int                    { return 2 }
func (f *ContainsFunc) ReturnType([]ValueType) ValueType { return TypeBool }
func (f *ContainsFunc) Evaluate(args []Value) (Value, error) {
	return matchText(f.Name(), args, strings.Contains)
}

// StartsWithFunc checks if a string starts with a prefix
type StartsWithFunc struct{}

func (f *StartsWithFunc) Name() string                     { return "STARTS_WITH" }
func (f *StartsWithFunc) MinArity() int                    { return 2 }
func (f *StartsWithFunc) MaxArity() int                    { return 2 }
func (f *StartsWithFunc) ReturnType([]ValueType) ValueType { return TypeBool }
func (f *StartsWithFunc) Evaluate(args []Value) (Value, error) {
	return matchText(f.Name(), args, strings.HasPrefix)
}

// EndsWithFunc checks if a string ends with a suffix
type EndsWithFunc struct{}

func (f *EndsWithFunc) Name() string                     { return "ENDS_WITH" }
func (f *EndsWithFunc) MinArity() int                    { return 2 }
func (f *EndsWithFunc) MaxArity() int                    { return 2 }
func (f *EndsWithFunc) ReturnType([]ValueType) ValueType { return TypeBool }
func (f *EndsWithFunc) Evaluate(args []Value) (Value, error) {
	return matchText(f.Name(), args, strings.HasSuffix)
}

// maxRepeatBytes caps the result of REPEAT
const maxRepeatBytes = 10 * 1024 * 1024

// RepeatFunc repeats a string n times
type RepeatFunc struct{}

func (f *RepeatFunc) Name() string                     { return "REPEAT" }
func (f *RepeatFunc) MinArity() int                    { return 2 }
func (f *RepeatFunc) MaxArity() int                    { return 2 }
func (f *RepeatFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *RepeatFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	str, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	count, err := intArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	if count < 0 {
		return Null(), newError(ErrType, f.Name(), "count must be non-negative, got %d", count)
	}
	// Checked by division so the product cannot overflow
	if len(str) > 0 && count > int64(maxRepeatBytes/len(str)) {
		return Null(), newError(ErrType, f.Name(), "result would exceed %d bytes", maxRepeatBytes)
	}
	return NewText(strings.Repeat(str, int(count))), nil
}

// matchText applies a two-string predicate, passing NULL through
func matchText(name string, args []Value, match func(s, sub string) bool) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	str, err := textArg(name, args[0])
	if err != nil {
		return Null(), err
	}
	sub, err := textArg(name, args[1])
	if err != nil {
		return Null(), err
	}
	return NewBool(match(str, sub)), nil
}

// mapText applies fn to a TEXT argument, passing NULL through
func mapText(name string, v Value, fn func(string) string) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	str, err := textArg(name, v)
	if err != nil {
		return Null(), err
	}
	return NewText(fn(str)), nil
}
