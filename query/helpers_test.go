package query

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func intCol(name string) Column   { return Column{Name: name, Type: TypeInt, Nullable: true} }
func textCol(name string) Column  { return Column{Name: name, Type: TypeText, Nullable: true} }
func floatCol(name string) Column { return Column{Name: name, Type: TypeFloat, Nullable: true} }

// relation builds a relation from Go values; nil is NULL
func relation(t *testing.T, cols []Column, rows ...[]interface{}) *Relation {
	t.Helper()
	out := make([]Row, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			t.Fatalf("row %d has %d values for %d columns", i, len(r), len(cols))
		}
		row := make(Row, len(r))
		for j, x := range r {
			v, err := ValueFromInterface(x)
			if err != nil {
				t.Fatalf("row %d column %d: %v", i, j, err)
			}
			row[j] = v
		}
		out[i] = row
	}
	return NewRelation(NewSchema(cols...), out)
}

// employeesRelation is a small table with a NULL salary and a NULL manager
func employeesRelation(t *testing.T) *Relation {
	return relation(t,
		[]Column{intCol("id"), textCol("name"), textCol("dept"), intCol("salary"), intCol("manager_id")},
		[]interface{}{1, "alice", "eng", 100000, nil},
		[]interface{}{2, "bob", "eng", 80000, 1},
		[]interface{}{3, "carol", "eng", 80000, 1},
		[]interface{}{4, "dave", "sales", 60000, 1},
		[]interface{}{5, "erin", "sales", nil, 4},
		[]interface{}{6, "frank", "ops", 50000, 4},
	)
}

func departmentsRelation(t *testing.T) *Relation {
	return relation(t,
		[]Column{textCol("dept"), textCol("floor")},
		[]interface{}{"eng", "3"},
		[]interface{}{"sales", "1"},
		[]interface{}{"legal", "2"},
	)
}

func testCatalog(t *testing.T) *MemoryCatalog {
	c := NewMemoryCatalog()
	c.Add("employees", employeesRelation(t))
	c.Add("departments", departmentsRelation(t))
	return c
}

func testOptions() Options {
	return Options{NullOrdering: NullsLast}
}

func execute(t *testing.T, catalog Catalog, opts Options, plan Node) (*Relation, error) {
	t.Helper()
	exec, err := NewExecutor(catalog, opts)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return exec.Execute(context.Background(), plan)
}

// mustExecute runs plan against the test catalog
func mustExecute(t *testing.T, plan Node) *Relation {
	t.Helper()
	rel, err := execute(t, testCatalog(t), testOptions(), plan)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return rel
}

// column returns the values of one result column as Go values
func column(t *testing.T, rel *Relation, name string) []interface{} {
	t.Helper()
	values, err := rel.Column(name)
	if err != nil {
		t.Fatalf("Column(%q) error = %v", name, err)
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = normalize(v.Interface())
	}
	return out
}

// normalize turns decimals into strings so results compare with ==
func normalize(x interface{}) interface{} {
	if d, ok := x.(decimal.Decimal); ok {
		return d.String()
	}
	return x
}

func assertColumn(t *testing.T, rel *Relation, name string, want ...interface{}) {
	t.Helper()
	got := column(t, rel, name)
	if len(got) != len(want) {
		t.Fatalf("column %s = %v, want %v", name, got, want)
	}
	for i := range want {
		if w, ok := want[i].(int); ok {
			want[i] = int64(w)
		}
		if got[i] != want[i] {
			t.Fatalf("column %s = %v, want %v", name, got, want)
		}
	}
}

func assertErrorIs(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func scan(table string) *Scan { return &Scan{Table: table} }

func items(names ...string) []SelectItem {
	out := make([]SelectItem, len(names))
	for i, n := range names {
		out[i] = SelectItem{Expr: Col(n)}
	}
	return out
}

func asc(e Expr) SortKey  { return SortKey{Expr: e} }
func desc(e Expr) SortKey { return SortKey{Expr: e, Desc: true} }

func intLit(i int64) *Literal   { return Lit(NewInt(i)) }
func textLit(s string) *Literal { return Lit(NewText(s)) }
