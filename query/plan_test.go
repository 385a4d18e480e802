package query

import (
	"strings"
	"testing"
)

func TestExplain(t *testing.T) {
	plan := &Select{
		From:       scan("t"),
		Where:      Eq(Col("a"), intLit(1)),
		Projection: items("a"),
		OrderBy:    []SortKey{desc(Col("a"))},
		Limit:      Int64(5),
	}
	want := strings.Join([]string{
		"Limit limit=5",
		"  Sort a DESC",
		"    Project a",
		"      Filter (a = 1)",
		"        Scan t",
		"",
	}, "\n")
	if got := Explain(plan); got != want {
		t.Errorf("Explain() =\n%s\nwant\n%s", got, want)
	}
}

func TestExplainComposite(t *testing.T) {
	cte := chainCTE()
	plan := &With{
		CTEs: []CTE{cte},
		Body: &SetOp{
			Kind: Union,
			All:  true,
			Left: &Select{
				From:       &Join{Kind: LeftJoin, Left: scan("a"), Right: &Scan{Table: "b", Alias: "x"}, Condition: Eq(Col("a.k"), Col("x.k"))},
				GroupBy:    []Expr{Col("a.k")},
				Projection: []SelectItem{{Expr: Col("a.k")}, {Expr: Agg("COUNT", nil), Alias: "n"}},
			},
			Right: &Select{From: &CTERef{Name: "chain"}, Distinct: true},
		},
	}
	got := Explain(plan)
	for _, want := range []string{
		"With",
		"Recursive chain UNION ALL",
		"Base",
		"Step",
		"UNION ALL",
		"Join LEFT ON (a.k = x.k)",
		"Scan b AS x",
		"Aggregate group=[a.k] aggregates=[COUNT(*)]",
		"Distinct",
		"CTE chain",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Explain() missing %q in\n%s", want, got)
		}
	}
}

func TestParseJoinKind(t *testing.T) {
	tests := []struct {
		in      string
		want    JoinKind
		wantErr bool
	}{
		{"inner", InnerJoin, false},
		{"", InnerJoin, false},
		{"LEFT OUTER JOIN", LeftJoin, false},
		{"left", LeftJoin, false},
		{"Right Outer", RightJoin, false},
		{"full outer", FullJoin, false},
		{"cross join", CrossJoin, false},
		{"sideways", InnerJoin, true},
	}
	for _, tt := range tests {
		got, err := ParseJoinKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseJoinKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseJoinKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseSetOpKind(t *testing.T) {
	for in, want := range map[string]SetOpKind{"union": Union, "INTERSECT": Intersect, "except": Except, "minus": Except} {
		got, err := ParseSetOpKind(in)
		if err != nil || got != want {
			t.Errorf("ParseSetOpKind(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseSetOpKind("merge"); err == nil {
		t.Error("ParseSetOpKind(merge) should fail")
	}
}

func TestParseNullOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    NullOrdering
		wantErr bool
	}{
		{"first", NullsFirst, false},
		{"NULLS LAST", NullsLast, false},
		{" Last ", NullsLast, false},
		{"", NullsDefault, false},
		{"middle", NullsDefault, true},
	}
	for _, tt := range tests {
		got, err := ParseNullOrdering(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseNullOrdering(%q) = %v, %v; want %v (error %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
