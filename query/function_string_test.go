package query

import "testing"

func TestUpperLowerFunc(t *testing.T) {
	runFuncCases(t, &UpperFunc{}, []funcCase{
		{"lowercase", vals(NewText("hello")), NewText("HELLO"), nil},
		{"mixed", vals(NewText("HeLLo wOrld")), NewText("HELLO WORLD"), nil},
		{"null", vals(Null()), Null(), nil},
		{"non-text", vals(NewInt(1)), Null(), ErrType},
	})
	runFuncCases(t, &LowerFunc{}, []funcCase{
		{"uppercase", vals(NewText("HELLO")), NewText("hello"), nil},
		{"empty", vals(NewText("")), NewText(""), nil},
	})
}

func TestConcatFunc(t *testing.T) {
	runFuncCases(t, &ConcatFunc{}, []funcCase{
		{"two strings", vals(NewText("foo"), NewText("bar")), NewText("foobar"), nil},
		{"skips nulls", vals(NewText("a"), Null(), NewText("b")), NewText("ab"), nil},
		{"renders numbers", vals(NewText("n="), NewInt(42)), NewText("n=42"), nil},
		{"only nulls", vals(Null()), NewText(""), nil},
	})
}

func TestLengthFunc(t *testing.T) {
	runFuncCases(t, &LengthFunc{}, []funcCase{
		{"ascii", vals(NewText("hello")), NewInt(5), nil},
		{"multibyte counts runes", vals(NewText("héllo")), NewInt(5), nil},
		{"empty", vals(NewText("")), NewInt(0), nil},
		{"null", vals(Null()), Null(), nil},
	})
}

func TestTrimFuncs(t *testing.T) {
	runFuncCases(t, &TrimFunc{}, []funcCase{
		{"both ends", vals(NewText("  x y  ")), NewText("x y"), nil},
	})
	runFuncCases(t, &LTrimFunc{}, []funcCase{
		{"leading only", vals(NewText("\t x ")), NewText("x "), nil},
	})
	runFuncCases(t, &RTrimFunc{}, []funcCase{
		{"trailing only", vals(NewText(" x \n")), NewText(" x"), nil},
	})
}

func TestSubstringFunc(t *testing.T) {
	runFuncCases(t, &SubstringFunc{}, []funcCase{
		{"middle", vals(NewText("hello"), NewInt(2), NewInt(3)), NewText("ell"), nil},
		{"to end", vals(NewText("hello"), NewInt(3)), NewText("llo"), nil},
		{"start before one consumes length", vals(NewText("hello"), NewInt(0), NewInt(3)), NewText("he"), nil},
		{"past end", vals(NewText("hello"), NewInt(10)), NewText(""), nil},
		{"length past end", vals(NewText("hello"), NewInt(4), NewInt(10)), NewText("lo"), nil},
		{"runes", vals(NewText("héllo"), NewInt(2), NewInt(1)), NewText("é"), nil},
		{"null start", vals(NewText("hello"), Null()), Null(), nil},
		{"negative length", vals(NewText("hello"), NewInt(1), NewInt(-1)), Null(), ErrType},
		{"text start", vals(NewText("hello"), NewText("1")), Null(), ErrType},
	})
}

func TestReplaceFunc(t *testing.T) {
	runFuncCases(t, &ReplaceFunc{}, []funcCase{
		{"all occurrences", vals(NewText("a-b-c"), NewText("-"), NewText("+")), NewText("a+b+c"), nil},
		{"no match", vals(NewText("abc"), NewText("x"), NewText("y")), NewText("abc"), nil},
		{"delete", vals(NewText("banana"), NewText("an"), NewText("")), NewText("ba"), nil},
		{"null", vals(NewText("abc"), Null(), NewText("y")), Null(), nil},
	})
}

func TestSplitFunc(t *testing.T) {
	runFuncCases(t, &SplitFunc{}, []funcCase{
		{"middle field", vals(NewText("a,b,c"), NewText(","), NewInt(2)), NewText("b"), nil},
		{"from the end", vals(NewText("a,b,c"), NewText(","), NewInt(-1)), NewText("c"), nil},
		{"past the end", vals(NewText("a,b,c"), NewText(","), NewInt(4)), Null(), nil},
		{"empty delimiter splits runes", vals(NewText("abc"), NewText(""), NewInt(1)), NewText("a"), nil},
		{"null", vals(Null(), NewText(","), NewInt(1)), Null(), nil},
		{"position zero", vals(NewText("a"), NewText(","), NewInt(0)), Null(), ErrType},
	})
}

func TestReverseFunc(t *testing.T) {
	runFuncCases(t, &ReverseFunc{}, []funcCase{
		{"ascii", vals(NewText("abc")), NewText("cba"), nil},
		{"multibyte", vals(NewText("héllo")), NewText("olléh"), nil},
		{"null", vals(Null()), Null(), nil},
	})
}

func TestTextMatchFuncs(t *testing.T) {
	runFuncCases(t, &ContainsFunc{}, []funcCase{
		{"found", vals(NewText("engineering"), NewText("gin")), NewBool(true), nil},
		{"missing", vals(NewText("sales"), NewText("gin")), NewBool(false), nil},
		{"null", vals(NewText("sales"), Null()), Null(), nil},
		{"non-text", vals(NewInt(1), NewText("1")), Null(), ErrType},
	})
	runFuncCases(t, &StartsWithFunc{}, []funcCase{
		{"prefix", vals(NewText("alice"), NewText("al")), NewBool(true), nil},
		{"not prefix", vals(NewText("alice"), NewText("ce")), NewBool(false), nil},
	})
	runFuncCases(t, &EndsWithFunc{}, []funcCase{
		{"suffix", vals(NewText("alice"), NewText("ce")), NewBool(true), nil},
		{"empty suffix", vals(NewText("alice"), NewText("")), NewBool(true), nil},
	})
}

func TestRepeatFunc(t *testing.T) {
	runFuncCases(t, &RepeatFunc{}, []funcCase{
		{"three times", vals(NewText("ab"), NewInt(3)), NewText("ababab"), nil},
		{"zero times", vals(NewText("ab"), NewInt(0)), NewText(""), nil},
		{"null count", vals(NewText("ab"), Null()), Null(), nil},
		{"negative count", vals(NewText("ab"), NewInt(-1)), Null(), ErrType},
		{"too large", vals(NewText("ab"), NewInt(1<<40)), Null(), ErrType},
	})
}
