package query

import (
	"sort"
	"testing"
)

func deptJoin(kind JoinKind, cond Expr) *Select {
	return &Select{From: &Join{
		Kind:      kind,
		Left:      &Scan{Table: "employees", Alias: "e"},
		Right:     &Scan{Table: "departments", Alias: "d"},
		Condition: cond,
	}}
}

func deptEq() Expr { return Eq(Col("e.dept"), Col("d.dept")) }

// sortedKeys returns the NULL-equal encodings of all rows, sorted, for multiset comparison
func sortedKeys(rel *Relation) []string {
	keys := make([]string, len(rel.Rows))
	for i, row := range rel.Rows {
		keys[i] = rowKey(row)
	}
	sort.Strings(keys)
	return keys
}

func sameMultiset(a, b *Relation) bool {
	ka, kb := sortedKeys(a), sortedKeys(b)
	if len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func TestJoinCardinality(t *testing.T) {
	tests := []struct {
		kind JoinKind
		cond Expr
		want int
	}{
		{InnerJoin, deptEq(), 5},
		{LeftJoin, deptEq(), 6},
		{RightJoin, deptEq(), 6},
		{FullJoin, deptEq(), 7},
		{CrossJoin, nil, 18},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			rel := mustExecute(t, deptJoin(tt.kind, tt.cond))
			if rel.Len() != tt.want {
				t.Errorf("%s JOIN returned %d rows, want %d", tt.kind, rel.Len(), tt.want)
			}
			if rel.Schema.Len() != 7 {
				t.Errorf("schema = %s, want 7 columns", rel.Schema)
			}
		})
	}
}

func TestOuterJoinPadsWithNulls(t *testing.T) {
	rel := mustExecute(t, &Select{
		From: &Join{
			Kind:      LeftJoin,
			Left:      &Scan{Table: "employees", Alias: "e"},
			Right:     &Scan{Table: "departments", Alias: "d"},
			Condition: deptEq(),
		},
		Projection: items("e.name", "d.floor"),
		OrderBy:    []SortKey{asc(Col("e.id"))},
	})
	assertColumn(t, rel, "name", "alice", "bob", "carol", "dave", "erin", "frank")
	assertColumn(t, rel, "floor", "3", "3", "3", "1", "1", nil)

	rel = mustExecute(t, &Select{
		From: &Join{
			Kind:      RightJoin,
			Left:      &Scan{Table: "employees", Alias: "e"},
			Right:     &Scan{Table: "departments", Alias: "d"},
			Condition: deptEq(),
		},
		Where:      &IsNullExpr{Operand: Col("e.id")},
		Projection: items("d.dept"),
	})
	assertColumn(t, rel, "dept", "legal")
}

func TestJoinResidualPredicate(t *testing.T) {
	rel := mustExecute(t, &Select{
		From: &Join{
			Kind:      LeftJoin,
			Left:      &Scan{Table: "employees", Alias: "e"},
			Right:     &Scan{Table: "departments", Alias: "d"},
			Condition: And(deptEq(), Binary(OpGt, Col("e.salary"), intLit(70000))),
		},
		Projection: items("e.name", "d.floor"),
		OrderBy:    []SortKey{asc(Col("e.id"))},
	})
	assertColumn(t, rel, "floor", "3", "3", "3", nil, nil, nil)
}

func TestJoinNullKeysNeverMatch(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add("l", relation(t, []Column{intCol("k")}, []interface{}{1}, []interface{}{nil}))
	catalog.Add("r", relation(t, []Column{intCol("k")}, []interface{}{nil}, []interface{}{1}))

	cond := Eq(Col("l.k"), Col("r.k"))
	for _, tt := range []struct {
		kind JoinKind
		want int
	}{
		{InnerJoin, 1},
		{FullJoin, 3},
	} {
		rel, err := execute(t, catalog, testOptions(), &Select{From: &Join{Kind: tt.kind, Left: scan("l"), Right: scan("r"), Condition: cond}})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if rel.Len() != tt.want {
			t.Errorf("%s JOIN on NULL keys returned %d rows, want %d", tt.kind, rel.Len(), tt.want)
		}
	}
}

func TestHashJoinMatchesNestedLoop(t *testing.T) {
	// OR FALSE hides the equi-join from key extraction and forces a nested loop
	loopCond := Binary(OpOr, deptEq(), Lit(NewBool(false)))
	for _, kind := range []JoinKind{InnerJoin, LeftJoin, RightJoin, FullJoin} {
		t.Run(kind.String(), func(t *testing.T) {
			hash := mustExecute(t, deptJoin(kind, deptEq()))
			loop := mustExecute(t, deptJoin(kind, loopCond))
			if !sameMultiset(hash, loop) {
				t.Errorf("hash join rows %v differ from nested loop rows %v", sortedKeys(hash), sortedKeys(loop))
			}
		})
	}
}

func TestHashJoinMixedNumericKeys(t *testing.T) {
	// Keys past 2^53 are not all representable as float64
	const exact = int64(1) << 53
	catalog := NewMemoryCatalog()
	catalog.Add("a", relation(t, []Column{intCol("x")},
		[]interface{}{exact + 1},
		[]interface{}{exact},
		[]interface{}{int64(1) << 60},
		[]interface{}{int64(3)},
	))
	catalog.Add("b", relation(t, []Column{floatCol("y")},
		[]interface{}{float64(exact)},
		[]interface{}{float64(int64(1) << 60)},
		[]interface{}{3.0},
		[]interface{}{3.5},
	))
	join := func(cond Expr) *Select {
		return &Select{From: &Join{Kind: InnerJoin, Left: &Scan{Table: "a"}, Right: &Scan{Table: "b"}, Condition: cond}}
	}
	eq := Eq(Col("x"), Col("y"))

	sorted := join(eq)
	sorted.OrderBy = []SortKey{asc(Col("x"))}
	hash, err := execute(t, catalog, testOptions(), sorted)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	loop, err := execute(t, catalog, testOptions(), join(Binary(OpOr, eq, Lit(NewBool(false)))))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if hash.Len() != 3 {
		t.Errorf("hash join returned %d rows, want 3", hash.Len())
	}
	if !sameMultiset(hash, loop) {
		t.Errorf("hash join rows %v differ from nested loop rows %v", sortedKeys(hash), sortedKeys(loop))
	}
	assertColumn(t, hash, "x", int64(3), exact, int64(1)<<60)
}

func TestLeftJoinIsAtLeastInner(t *testing.T) {
	conds := []Expr{
		deptEq(),
		Binary(OpLt, Col("e.id"), Lit(NewInt(3))),
		And(deptEq(), Eq(Col("d.floor"), textLit("9"))),
	}
	for _, cond := range conds {
		inner := mustExecute(t, deptJoin(InnerJoin, cond))
		left := mustExecute(t, deptJoin(LeftJoin, cond))
		full := mustExecute(t, deptJoin(FullJoin, cond))
		if left.Len() < inner.Len() || full.Len() < left.Len() {
			t.Errorf("ON %s: inner=%d left=%d full=%d", cond, inner.Len(), left.Len(), full.Len())
		}
	}
}

func TestParallelHashJoin(t *testing.T) {
	opts := testOptions()
	opts.Parallel = true
	for _, kind := range []JoinKind{InnerJoin, FullJoin} {
		par, err := execute(t, testCatalog(t), opts, deptJoin(kind, deptEq()))
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		seq := mustExecute(t, deptJoin(kind, deptEq()))
		if !sameMultiset(par, seq) {
			t.Errorf("%s JOIN: parallel result differs from sequential", kind)
		}
	}
}

func TestJoinErrors(t *testing.T) {
	tests := []struct {
		name string
		plan *Select
		kind error
	}{
		{"inner join without condition", deptJoin(InnerJoin, nil), ErrValidation},
		{"cross join with condition", deptJoin(CrossJoin, deptEq()), ErrValidation},
		{"incompatible key types", deptJoin(InnerJoin, Eq(Col("e.id"), Col("d.dept"))), ErrType},
		{"ambiguous column", deptJoin(InnerJoin, Eq(Col("dept"), Col("d.dept"))), ErrSchema},
		{"aggregate in condition", deptJoin(InnerJoin, Eq(Agg("MAX", Col("e.id")), intLit(1))), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, testCatalog(t), testOptions(), tt.plan)
			assertErrorIs(t, err, tt.kind)
		})
	}
}

func TestExtractEquiKeys(t *testing.T) {
	left := NewSchema(Column{Name: "a", Table: "l", Type: TypeInt}, Column{Name: "b", Table: "l", Type: TypeInt})
	right := NewSchema(Column{Name: "a", Table: "r", Type: TypeInt})

	cond := And(
		Eq(Col("r.a"), Col("l.a")),
		Binary(OpGt, Col("l.b"), intLit(0)),
		Eq(Col("l.a"), Col("l.b")),
	)
	keys, residual := extractEquiKeys(cond, left, right)
	if len(keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(keys))
	}
	if keys[0].left.String() != "l.a" || keys[0].right.String() != "r.a" {
		t.Errorf("key = %s = %s, want l.a = r.a", keys[0].left, keys[0].right)
	}
	if want := "((l.b > 0) AND (l.a = l.b))"; residual.String() != want {
		t.Errorf("residual = %s, want %s", residual, want)
	}
}
