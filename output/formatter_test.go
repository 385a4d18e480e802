package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vegasq/planexec/query"
)

func sampleRelation() *query.Relation {
	schema := query.NewSchema(
		query.Column{Name: "id", Type: query.TypeInt},
		query.Column{Name: "name", Type: query.TypeText, Nullable: true},
		query.Column{Name: "price", Type: query.TypeDecimal},
		query.Column{Name: "active", Type: query.TypeBool},
	)
	return query.NewRelation(schema, []query.Row{
		{query.NewInt(1), query.NewText("alice"), query.NewDecimal(decimal.RequireFromString("9.99")), query.NewBool(true)},
		{query.NewInt(2), query.Null(), query.NewDecimal(decimal.RequireFromString("0.10")), query.NewBool(false)},
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"json", "*output.JSONFormatter", false},
		{"", "*output.JSONFormatter", false},
		{"CSV", "*output.CSVFormatter", false},
		{"table", "*output.TableFormatter", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		f, err := New(tt.format, &bytes.Buffer{}, 0)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			continue
		}
		if !tt.wantErr {
			if got := typeName(f); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
			}
		}
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *JSONFormatter:
		return "*output.JSONFormatter"
	case *CSVFormatter:
		return "*output.CSVFormatter"
	case *TableFormatter:
		return "*output.TableFormatter"
	default:
		return "unknown"
	}
}

func TestHeadersQualifyDuplicates(t *testing.T) {
	schema := query.NewSchema(
		query.Column{Name: "dept", Table: "e"},
		query.Column{Name: "name", Table: "e"},
		query.Column{Name: "dept", Table: "d"},
	)
	got := strings.Join(headers(schema), ",")
	if want := "e.dept,name,d.dept"; got != want {
		t.Errorf("headers() = %s, want %s", got, want)
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	for _, f := range []Formatter{NewJSONFormatter(&first), NewCSVFormatter(&first), NewTableFormatter(&first, 0)} {
		f.SetOutput(&second)
		if err := WriteRelation(f, sampleRelation()); err != nil {
			t.Fatalf("WriteRelation() error = %v", err)
		}
	}
	if first.Len() != 0 {
		t.Errorf("original writer received %d bytes", first.Len())
	}
	if second.Len() == 0 {
		t.Error("new writer received nothing")
	}
}
