package query

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func graphCatalog(t *testing.T) *MemoryCatalog {
	c := testCatalog(t)
	// A four-level chain: 1 <- 2 <- 3 <- 4
	c.Add("org", relation(t, []Column{intCol("id"), intCol("parent")},
		[]interface{}{1, nil},
		[]interface{}{2, 1},
		[]interface{}{3, 2},
		[]interface{}{4, 3},
	))
	// A cycle: 1 -> 2 -> 3 -> 1
	c.Add("edges", relation(t, []Column{intCol("src"), intCol("dst")},
		[]interface{}{1, 2},
		[]interface{}{2, 3},
		[]interface{}{3, 1},
	))
	return c
}

func chainCTE() CTE {
	return CTE{
		Name: "chain",
		Query: &Select{
			From:  scan("org"),
			Where: &IsNullExpr{Operand: Col("parent")},
			Projection: []SelectItem{
				{Expr: Col("id")},
				{Expr: intLit(1), Alias: "depth"},
			},
		},
		Step: &Select{
			From: &Join{
				Kind:      InnerJoin,
				Left:      &Scan{Table: "org", Alias: "o"},
				Right:     &CTERef{Name: "chain", Alias: "c"},
				Condition: Eq(Col("o.parent"), Col("c.id")),
			},
			Projection: []SelectItem{
				{Expr: Col("o.id")},
				{Expr: Binary(OpAdd, Col("c.depth"), intLit(1))},
			},
		},
		UnionAll: true,
	}
}

func walkCTE(unionAll bool, maxIter int) CTE {
	return CTE{
		Name:    "walk",
		Columns: []string{"node"},
		Query:   &Select{Projection: []SelectItem{{Expr: intLit(1)}}},
		Step: &Select{
			From: &Join{
				Kind:      InnerJoin,
				Left:      &Scan{Table: "edges", Alias: "e"},
				Right:     &Scan{Table: "walk", Alias: "w"},
				Condition: Eq(Col("e.src"), Col("w.node")),
			},
			Projection: items("e.dst"),
		},
		UnionAll:      unionAll,
		MaxIterations: maxIter,
	}
}

func TestRecursiveHierarchyGenerations(t *testing.T) {
	ec := NewExecutionContext(context.Background(), graphCatalog(t), testOptions())
	fp, err := ec.fixpoint(chainCTE())
	if err != nil {
		t.Fatalf("fixpoint() error = %v", err)
	}
	if len(fp.generations) != 4 {
		t.Errorf("generations = %d, want 4", len(fp.generations))
	}
	for i, g := range fp.generations {
		if len(g) != 1 {
			t.Errorf("generation %d has %d rows, want 1", i, len(g))
		}
	}

	rel, err := execute(t, graphCatalog(t), testOptions(), &With{
		CTEs: []CTE{chainCTE()},
		Body: &Select{From: scan("chain"), OrderBy: []SortKey{asc(Col("depth"))}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	assertColumn(t, rel, "id", 1, 2, 3, 4)
	assertColumn(t, rel, "depth", 1, 2, 3, 4)
}

func TestRecursiveCycleHitsBound(t *testing.T) {
	_, err := execute(t, graphCatalog(t), testOptions(), &With{
		CTEs: []CTE{walkCTE(true, 50)},
		Body: &Select{From: scan("walk")},
	})
	assertErrorIs(t, err, ErrRecursionLimit)

	// The engine-wide bound applies without a per-CTE override
	opts := testOptions()
	opts.MaxRecursion = 10
	_, err = execute(t, graphCatalog(t), opts, &With{
		CTEs: []CTE{walkCTE(true, 0)},
		Body: &Select{From: scan("walk")},
	})
	assertErrorIs(t, err, ErrRecursionLimit)
}

func TestRecursiveDepthEqualToBound(t *testing.T) {
	tests := []struct {
		maxIter int
		wantErr bool
	}{
		{maxIter: 4},
		{maxIter: 3},
		{maxIter: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("max %d", tt.maxIter), func(t *testing.T) {
			cte := chainCTE()
			cte.MaxIterations = tt.maxIter
			rel, err := execute(t, graphCatalog(t), testOptions(), &With{
				CTEs: []CTE{cte},
				Body: &Select{From: scan("chain"), OrderBy: []SortKey{asc(Col("depth"))}},
			})
			if tt.wantErr {
				assertErrorIs(t, err, ErrRecursionLimit)
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			assertColumn(t, rel, "depth", 1, 2, 3, 4)
		})
	}
}

func TestRecursiveRowBound(t *testing.T) {
	opts := testOptions()
	opts.MaxRecursiveRows = 10
	_, err := execute(t, graphCatalog(t), opts, &With{
		CTEs: []CTE{walkCTE(true, 1000)},
		Body: &Select{From: scan("walk")},
	})
	assertErrorIs(t, err, ErrRecursionLimit)
}

func TestRecursiveUnionReachesFixedPoint(t *testing.T) {
	rel, err := execute(t, graphCatalog(t), testOptions(), &With{
		CTEs: []CTE{walkCTE(false, 50)},
		Body: &Select{From: scan("walk")},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// Generations in production order
	assertColumn(t, rel, "node", 1, 2, 3)
}

func TestRecursiveStepSchemaMismatch(t *testing.T) {
	cte := walkCTE(true, 10)
	cte.Step = &Select{From: scan("edges"), Projection: items("src", "dst")}
	_, err := execute(t, graphCatalog(t), testOptions(), &With{CTEs: []CTE{cte}, Body: &Select{From: scan("walk")}})
	assertErrorIs(t, err, ErrSchema)
}

func TestRecursiveLogsGenerations(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	opts := testOptions()
	opts.Logger = zap.New(core)

	_, err := execute(t, graphCatalog(t), opts, &With{CTEs: []CTE{chainCTE()}, Body: &Select{From: scan("chain")}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if n := logs.FilterMessage("recursive generation").Len(); n != 4 {
		t.Errorf("logged %d generations, want 4", n)
	}
}

func TestCTEScoping(t *testing.T) {
	// A CTE shadows the catalog table of the same name
	rel := mustExecute(t, &With{
		CTEs: []CTE{{
			Name:  "employees",
			Query: &Select{From: scan("employees"), Where: Eq(Col("dept"), textLit("ops"))},
		}},
		Body: &Select{From: scan("employees"), Projection: items("name")},
	})
	assertColumn(t, rel, "name", "frank")

	// An inner WITH shadows an outer CTE only inside its body
	inner := &With{
		CTEs: []CTE{{Name: "x", Query: &Select{Projection: []SelectItem{{Expr: intLit(2), Alias: "v"}}}}},
		Body: &Select{From: &CTERef{Name: "x"}},
	}
	rel = mustExecute(t, &With{
		CTEs: []CTE{{Name: "x", Query: &Select{Projection: []SelectItem{{Expr: intLit(1), Alias: "v"}}}}},
		Body: &SetOp{Kind: Union, All: true, Left: &Select{From: &CTERef{Name: "x"}}, Right: inner},
	})
	assertColumn(t, rel, "v", 1, 2)
}

func TestCTEColumnList(t *testing.T) {
	rel := mustExecute(t, &With{
		CTEs: []CTE{{
			Name:    "d",
			Columns: []string{"name", "level"},
			Query:   &Select{From: scan("departments")},
		}},
		Body: &Select{From: scan("d"), Projection: items("level"), OrderBy: []SortKey{asc(Col("name"))}},
	})
	assertColumn(t, rel, "level", "3", "2", "1")

	_, err := execute(t, testCatalog(t), testOptions(), &With{
		CTEs: []CTE{{Name: "d", Columns: []string{"only"}, Query: &Select{From: scan("departments")}}},
		Body: &Select{From: scan("d")},
	})
	assertErrorIs(t, err, ErrSchema)
}

func TestUndefinedCTE(t *testing.T) {
	_, err := execute(t, testCatalog(t), testOptions(), &Select{From: &CTERef{Name: "nope"}})
	assertErrorIs(t, err, ErrNotFound)
}
