package reader

import (
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/planexec/query"
)

func TestLeafConvert(t *testing.T) {
	tests := []struct {
		name  string
		leaf  leaf
		value parquet.Value
		want  query.Value
	}{
		{"null", leaf{typ: query.TypeInt}, parquet.NullValue(), query.Null()},
		{"int32 widens", leaf{typ: query.TypeInt}, parquet.Int32Value(-7), query.NewInt(-7)},
		{"float widens", leaf{typ: query.TypeFloat}, parquet.FloatValue(1.5), query.NewFloat(1.5)},
		{"byte array", leaf{typ: query.TypeText}, parquet.ByteArrayValue([]byte("hi")), query.NewText("hi")},
		{"boolean", leaf{typ: query.TypeBool}, parquet.BooleanValue(true), query.NewBool(true)},
		{
			"int64 decimal",
			leaf{typ: query.TypeDecimal, scale: 2},
			parquet.Int64Value(12345),
			query.NewText("123.45"),
		},
		{
			"negative fixed decimal",
			leaf{typ: query.TypeDecimal, scale: 1},
			parquet.FixedLenByteArrayValue([]byte{0xFF, 0x85}),
			query.NewText("-12.3"),
		},
		{
			"date",
			leaf{typ: query.TypeTimestamp, date: true},
			parquet.Int32Value(19723),
			query.NewDate(2024, time.January, 1),
		},
		{
			"millisecond timestamp",
			leaf{typ: query.TypeTimestamp, unit: unitMillis},
			parquet.Int64Value(1704067200123),
			query.NewTimestamp(time.Date(2024, time.January, 1, 0, 0, 0, 123e6, time.UTC)),
		},
		{
			"microsecond timestamp",
			leaf{typ: query.TypeTimestamp, unit: unitMicros},
			parquet.Int64Value(1704067200000001),
			query.NewTimestamp(time.Date(2024, time.January, 1, 0, 0, 0, 1000, time.UTC)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.leaf.convert(tt.value)
			if err != nil {
				t.Fatalf("convert() error = %v", err)
			}
			// Decimals are compared by rendering
			if got.String() != tt.want.String() {
				t.Errorf("convert() = %v, want %v", got, tt.want)
			}
			if tt.leaf.typ == query.TypeDecimal && got.Type() != query.TypeDecimal {
				t.Errorf("convert() type = %s, want DECIMAL", got.Type())
			}
		})
	}
}

func TestLeafColumn(t *testing.T) {
	col := leaf{name: "tags", typ: query.TypeInt, repeated: true}.column()
	if col.Type != query.TypeText || !col.Nullable {
		t.Errorf("repeated leaf column = %+v, want nullable TEXT", col)
	}
	col = leaf{name: "id", typ: query.TypeInt}.column()
	if col.Type != query.TypeInt || col.Nullable {
		t.Errorf("required leaf column = %+v, want INTEGER", col)
	}
}
