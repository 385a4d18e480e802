package query

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestExecuteFilterAndOrder(t *testing.T) {
	plan := &Select{
		From:       scan("employees"),
		Where:      Binary(OpGt, Col("salary"), intLit(70000)),
		Projection: items("name"),
		OrderBy:    []SortKey{asc(Col("name"))},
	}
	rel := mustExecute(t, plan)
	assertColumn(t, rel, "name", "alice", "bob", "carol")
	if !rel.Ordered {
		t.Errorf("Ordered = false, want true for a plan with ORDER BY")
	}
}

func TestExecuteUnknownPredicateDropsRow(t *testing.T) {
	// erin has a NULL salary: both the predicate and its negation are UNKNOWN
	gt := Binary(OpGt, Col("salary"), intLit(55000))
	for _, where := range []Expr{gt, &UnaryExpr{Op: OpNot, Operand: gt}} {
		rel := mustExecute(t, &Select{From: scan("employees"), Where: where, Projection: items("name")})
		for _, name := range column(t, rel, "name") {
			if name == "erin" {
				t.Errorf("WHERE %s returned erin", where)
			}
		}
	}
}

func TestSecondHighestDistinctSalary(t *testing.T) {
	plan := &Select{
		From:       scan("employees"),
		Where:      &IsNullExpr{Operand: Col("salary"), Negate: true},
		Projection: items("salary"),
		Distinct:   true,
		OrderBy:    []SortKey{desc(Col("salary"))},
		Limit:      Int64(1),
		Offset:     Int64(1),
	}
	rel := mustExecute(t, plan)
	assertColumn(t, rel, "salary", 80000)
}

// staffCatalog has a duplicated maximum salary
func staffCatalog(t *testing.T) *MemoryCatalog {
	c := NewMemoryCatalog()
	c.Add("staff", relation(t, []Column{textCol("name"), intCol("salary")},
		[]interface{}{"Alice", 80000},
		[]interface{}{"Bob", 90000},
		[]interface{}{"Carol", 90000},
	))
	return c
}

func TestSecondHighestSalary(t *testing.T) {
	overallMax := &Select{
		From:       scan("staff"),
		Projection: []SelectItem{{Expr: Agg("MAX", Col("salary")), Alias: "top"}},
	}
	second := []SelectItem{{Expr: Agg("MAX", Col("salary")), Alias: "second"}}

	tests := []struct {
		name string
		plan Node
	}{
		{
			"scalar subquery",
			&Select{
				From:       scan("staff"),
				Where:      Binary(OpLt, Col("salary"), &ScalarSubquery{Query: overallMax}),
				Projection: second,
			},
		},
		{
			"cross join with aggregate",
			&Select{
				From:       &Join{Kind: CrossJoin, Left: scan("staff"), Right: overallMax},
				Where:      Binary(OpLt, Col("salary"), Col("top")),
				Projection: second,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := execute(t, staffCatalog(t), testOptions(), tt.plan)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			assertColumn(t, rel, "second", 80000)
		})
	}
}

func TestLimitOffset(t *testing.T) {
	tests := []struct {
		name   string
		limit  *int64
		offset *int64
		want   []interface{}
	}{
		{"limit only", Int64(2), nil, []interface{}{1, 2}},
		{"offset only", nil, Int64(4), []interface{}{5, 6}},
		{"limit and offset", Int64(2), Int64(1), []interface{}{2, 3}},
		{"offset past the end", Int64(5), Int64(100), []interface{}{}},
		{"zero limit", Int64(0), nil, []interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := mustExecute(t, &Select{
				From:       scan("employees"),
				Projection: items("id"),
				OrderBy:    []SortKey{asc(Col("id"))},
				Limit:      tt.limit,
				Offset:     tt.offset,
			})
			assertColumn(t, rel, "id", tt.want...)
		})
	}
}

func TestNegativeLimitIsValidationError(t *testing.T) {
	for _, plan := range []*Select{
		{From: scan("employees"), Limit: Int64(-1)},
		{From: scan("employees"), Offset: Int64(-3)},
	} {
		_, err := execute(t, testCatalog(t), testOptions(), plan)
		assertErrorIs(t, err, ErrValidation)
	}
}

func TestNullOrdering(t *testing.T) {
	tests := []struct {
		name  string
		opts  NullOrdering
		key   SortKey
		first string
		last  string
	}{
		{"engine nulls last", NullsLast, asc(Col("salary")), "frank", "erin"},
		{"engine nulls first", NullsFirst, asc(Col("salary")), "erin", "alice"},
		{"desc keeps nulls last", NullsLast, desc(Col("salary")), "alice", "erin"},
		{"key overrides engine", NullsLast, SortKey{Expr: Col("salary"), Nulls: NullsFirst}, "erin", "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := execute(t, testCatalog(t), Options{NullOrdering: tt.opts}, &Select{
				From:       scan("employees"),
				Projection: items("name"),
				OrderBy:    []SortKey{tt.key},
			})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			names := column(t, rel, "name")
			if names[0] != tt.first || names[len(names)-1] != tt.last {
				t.Errorf("order = %v, want %s first and %s last", names, tt.first, tt.last)
			}
		})
	}
}

func TestOrderByHiddenColumn(t *testing.T) {
	rel := mustExecute(t, &Select{
		From:       scan("employees"),
		Projection: items("name"),
		OrderBy:    []SortKey{desc(Col("salary")), asc(Col("id"))},
	})
	if rel.Schema.Len() != 1 {
		t.Fatalf("schema = %s, want only name", rel.Schema)
	}
	assertColumn(t, rel, "name", "alice", "bob", "carol", "dave", "frank", "erin")
}

func TestOrderByAliasAndOrdinal(t *testing.T) {
	rel := mustExecute(t, &Select{
		From: scan("employees"),
		Projection: []SelectItem{
			{Expr: Col("name"), Alias: "who"},
			{Expr: Col("id")},
		},
		OrderBy: []SortKey{desc(intLit(2))},
		Limit:   Int64(2),
	})
	assertColumn(t, rel, "who", "frank", "erin")

	rel = mustExecute(t, &Select{
		From:       scan("employees"),
		Projection: []SelectItem{{Expr: Col("name"), Alias: "who"}},
		OrderBy:    []SortKey{asc(Col("who"))},
		Limit:      Int64(1),
	})
	assertColumn(t, rel, "who", "alice")
}

func TestDistinctOrderByMustBeProjected(t *testing.T) {
	_, err := execute(t, testCatalog(t), testOptions(), &Select{
		From:       scan("employees"),
		Projection: items("dept"),
		Distinct:   true,
		OrderBy:    []SortKey{asc(Col("salary"))},
	})
	assertErrorIs(t, err, ErrSchema)
}

func TestDistinctTreatsNullsAsEqual(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add("t", relation(t, []Column{intCol("x")},
		[]interface{}{nil}, []interface{}{1}, []interface{}{nil}, []interface{}{1}))
	rel, err := execute(t, catalog, testOptions(), &Select{From: scan("t"), Projection: items("x"), Distinct: true})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	assertColumn(t, rel, "x", nil, 1)
}

func TestSelectWithoutFrom(t *testing.T) {
	rel := mustExecute(t, &Select{
		Projection: []SelectItem{{Expr: Binary(OpAdd, intLit(1), intLit(2)), Alias: "x"}},
	})
	assertColumn(t, rel, "x", 3)
}

func TestSelectStar(t *testing.T) {
	rel := mustExecute(t, &Select{From: &Scan{Table: "departments", Alias: "d"}})
	if got := strings.Join(rel.Schema.Names(), ","); got != "dept,floor" {
		t.Errorf("columns = %s, want dept,floor", got)
	}
	if rel.Len() != 3 {
		t.Errorf("rows = %d, want 3", rel.Len())
	}
}

func TestUnknownTableAndColumn(t *testing.T) {
	_, err := execute(t, testCatalog(t), testOptions(), &Select{From: scan("missing")})
	assertErrorIs(t, err, ErrNotFound)

	_, err = execute(t, testCatalog(t), testOptions(), &Select{From: scan("employees"), Projection: items("nope")})
	assertErrorIs(t, err, ErrNotFound)
}

func TestWhereMustBeBoolean(t *testing.T) {
	_, err := execute(t, testCatalog(t), testOptions(), &Select{From: scan("employees"), Where: Col("name")})
	assertErrorIs(t, err, ErrType)
}

func TestDivisionByZeroSurfaces(t *testing.T) {
	for _, e := range []Expr{
		Binary(OpDiv, Col("salary"), intLit(0)),
		Binary(OpMod, Col("salary"), intLit(0)),
		Call("MOD", Col("salary"), intLit(0)),
	} {
		_, err := execute(t, testCatalog(t), testOptions(), &Select{
			From:       scan("employees"),
			Projection: []SelectItem{{Expr: e}},
		})
		assertErrorIs(t, err, ErrDivisionByZero)
	}

	// NULLIF guards the divisor
	rel := mustExecute(t, &Select{
		From:       scan("employees"),
		Where:      Eq(Col("id"), intLit(1)),
		Projection: []SelectItem{{Expr: Binary(OpDiv, Col("salary"), Call("NULLIF", intLit(0), intLit(0))), Alias: "q"}},
	})
	assertColumn(t, rel, "q", nil)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"nulls last", Options{NullOrdering: NullsLast}, false},
		{"missing null ordering", Options{}, true},
		{"negative bound", Options{NullOrdering: NullsFirst, MaxMaterializedRows: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewExecutor(nil, testOptions()); err == nil {
		t.Error("NewExecutor(nil) succeeded, want error")
	}
}

func TestCancellationBeforeExecution(t *testing.T) {
	exec, err := NewExecutor(testCatalog(t), testOptions())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.Execute(ctx, &Select{From: scan("employees")})
	assertErrorIs(t, err, ErrCancelled)
	if !IsCancelled(err) {
		t.Errorf("IsCancelled(%v) = false", err)
	}
}

func TestCancellationDuringCrossJoin(t *testing.T) {
	rows := make([][]interface{}, 200)
	for i := range rows {
		rows[i] = []interface{}{i}
	}
	catalog := NewMemoryCatalog()
	catalog.Add("n", relation(t, []Column{intCol("i")}, rows...))

	opts := testOptions()
	opts.BatchSize = 16
	exec, err := NewExecutor(catalog, opts)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	it, err := exec.Stream(ctx, &Select{From: &Join{
		Kind:  CrossJoin,
		Left:  &Scan{Table: "n", Alias: "a"},
		Right: &Scan{Table: "n", Alias: "b"},
	}})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer it.Close()

	pulled := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			assertErrorIs(t, err, ErrCancelled)
			break
		}
		if !ok {
			t.Fatal("cross join completed despite cancellation")
		}
		pulled++
		if pulled == 100 {
			cancel()
		}
	}
	if pulled >= 200*200 {
		t.Errorf("pulled %d rows after cancellation", pulled)
	}
}

func TestMaterializationBound(t *testing.T) {
	opts := testOptions()
	opts.MaxMaterializedRows = 3
	_, err := execute(t, testCatalog(t), opts, &Select{
		From:    scan("employees"),
		OrderBy: []SortKey{asc(Col("id"))},
	})
	assertErrorIs(t, err, ErrResourceExhausted)

	// Streaming stages are not bounded
	rel, err := execute(t, testCatalog(t), opts, &Select{From: scan("employees"), Projection: items("id")})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rel.Len() != 6 {
		t.Errorf("rows = %d, want 6", rel.Len())
	}
}

func TestExecuteLogsQueryID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	opts := testOptions()
	opts.Logger = zap.New(core)

	if _, err := execute(t, testCatalog(t), opts, &Select{From: scan("employees")}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	entries := logs.FilterMessage("plan executed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d 'plan executed' entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if id, _ := fields["query_id"].(string); id == "" {
		t.Errorf("query_id missing from %v", fields)
	}
	if rows, _ := fields["rows"].(int64); rows != 6 {
		t.Errorf("rows = %v, want 6", fields["rows"])
	}
}

func TestStreamMatchesExecute(t *testing.T) {
	plan := &Select{From: scan("employees"), Projection: items("name"), OrderBy: []SortKey{asc(Col("name"))}}
	want := mustExecute(t, plan)

	exec, err := NewExecutor(testCatalog(t), testOptions())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	it, err := exec.Stream(context.Background(), plan)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer it.Close()

	i := 0
	for {
		row, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if !ok {
			break
		}
		if row[0] != want.Rows[i][0] {
			t.Errorf("row %d = %v, want %v", i, row[0], want.Rows[i][0])
		}
		i++
	}
	if i != want.Len() {
		t.Errorf("streamed %d rows, want %d", i, want.Len())
	}
}
