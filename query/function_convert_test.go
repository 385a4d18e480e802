package query

import (
	"testing"
	"time"
)

func TestCastFunc(t *testing.T) {
	runFuncCases(t, &CastFunc{}, []funcCase{
		{"text to int", vals(NewText(" 42 "), NewText("INTEGER")), NewInt(42), nil},
		{"float to int rounds", vals(NewFloat(3.6), NewText("INT")), NewInt(4), nil},
		{"decimal to int", vals(dec("2.5"), NewText("BIGINT")), NewInt(3), nil},
		{"bool to int", vals(NewBool(true), NewText("INT")), NewInt(1), nil},
		{"int to text", vals(NewInt(7), NewText("TEXT")), NewText("7"), nil},
		{"int to float", vals(NewInt(7), NewText("DOUBLE")), NewFloat(7), nil},
		{"text to decimal", vals(NewText("1.25"), NewText("DECIMAL")), dec("1.25"), nil},
		{"text to bool", vals(NewText("true"), NewText("BOOLEAN")), NewBool(true), nil},
		{"text to date", vals(NewText("2024-01-02"), NewText("DATE")), NewDate(2024, time.January, 2), nil},
		{"null", vals(Null(), NewText("INT")), Null(), nil},
		{"same type", vals(NewText("x"), NewText("VARCHAR")), NewText("x"), nil},
		{"unparseable int", vals(NewText("abc"), NewText("INT")), Null(), ErrType},
		{"bool to timestamp", vals(NewBool(false), NewText("TIMESTAMP")), Null(), ErrType},
		{"unknown type", vals(NewInt(1), NewText("BLOB")), Null(), ErrType},
	})
}

func TestTryCastFunc(t *testing.T) {
	runFuncCases(t, &TryCastFunc{}, []funcCase{
		{"text to int", vals(NewText("42"), NewText("INT")), NewInt(42), nil},
		{"unparseable int", vals(NewText("abc"), NewText("INT")), Null(), nil},
		{"bool to timestamp", vals(NewBool(false), NewText("TIMESTAMP")), Null(), nil},
		{"null", vals(Null(), NewText("INT")), Null(), nil},
		{"unknown type", vals(NewInt(1), NewText("BLOB")), Null(), ErrType},
	})
}

func TestToConversionFuncs(t *testing.T) {
	runFuncCases(t, &ToStringFunc{}, []funcCase{
		{"int", vals(NewInt(7)), NewText("7"), nil},
		{"decimal", vals(dec("1.25")), NewText("1.25"), nil},
		{"date", vals(NewDate(2024, time.January, 2)), NewText("2024-01-02"), nil},
		{"null", vals(Null()), Null(), nil},
	})
	runFuncCases(t, &ToNumberFunc{}, []funcCase{
		{"text", vals(NewText(" 12.50 ")), dec("12.5"), nil},
		{"int passes through", vals(NewInt(3)), NewInt(3), nil},
		{"bool", vals(NewBool(true)), dec("1"), nil},
		{"null", vals(Null()), Null(), nil},
		{"unparseable", vals(NewText("x")), Null(), ErrType},
	})
	runFuncCases(t, &ToDateFunc{}, []funcCase{
		{"timestamp", vals(NewTimestamp(time.Date(2024, time.August, 15, 10, 30, 0, 0, time.UTC))), NewDate(2024, time.August, 15), nil},
		{"text", vals(NewText("2024-08-15T10:30:00Z")), NewDate(2024, time.August, 15), nil},
		{"null", vals(Null()), Null(), nil},
		{"int", vals(NewInt(20240815)), Null(), ErrType},
	})
}
