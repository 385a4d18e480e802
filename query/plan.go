package query

import (
	"fmt"
	"strings"
)

// Node is a logical plan node. The set of implementations is closed.
type Node interface {
	planNode()
}

// Scan reads a base relation from the catalog, or a CTE visible in scope
type Scan struct {
	Table string
	Alias string
}

// Values is an inline relation
type Values struct {
	Schema Schema
	Rows   []Row
	Alias  string
}

// JoinKind is the kind of a join
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case CrossJoin:
		return "CROSS"
	default:
		return fmt.Sprintf("JoinKind(%d)", int(k))
	}
}

// ParseJoinKind parses INNER, LEFT [OUTER], RIGHT [OUTER], FULL [OUTER] or CROSS
func ParseJoinKind(s string) (JoinKind, error) {
	kind := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), " JOIN")
	switch strings.TrimSpace(strings.TrimSuffix(kind, "OUTER")) {
	case "", "INNER":
		return InnerJoin, nil
	case "LEFT":
		return LeftJoin, nil
	case "RIGHT":
		return RightJoin, nil
	case "FULL":
		return FullJoin, nil
	case "CROSS":
		return CrossJoin, nil
	default:
		return InnerJoin, newError(ErrValidation, "join kind", "unknown join kind %q", s)
	}
}

// Join combines two inputs. Condition is ignored (and must be nil) for CROSS joins.
type Join struct {
	Kind      JoinKind
	Left      Node
	Right     Node
	Condition Expr
}

// SelectItem is one projected expression. A ColumnRef named "*" or "t.*" expands to columns.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// Select is one query block. Its clauses always run in the order
// FROM, WHERE, GROUP BY, HAVING, WINDOW, SELECT, DISTINCT, ORDER BY, LIMIT/OFFSET.
// A nil From reads a single row with no columns; an empty Projection selects every column.
type Select struct {
	From       Node
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Projection []SelectItem
	Distinct   bool
	OrderBy    []SortKey
	Limit      *int64
	Offset     *int64
}

// SetOpKind is UNION, INTERSECT or EXCEPT
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case Union:
		return "UNION"
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return fmt.Sprintf("SetOpKind(%d)", int(k))
	}
}

// ParseSetOpKind parses UNION, INTERSECT or EXCEPT
func ParseSetOpKind(s string) (SetOpKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNION":
		return Union, nil
	case "INTERSECT":
		return Intersect, nil
	case "EXCEPT", "MINUS":
		return Except, nil
	default:
		return Union, newError(ErrValidation, "set operation", "unknown set operation %q", s)
	}
}

// SetOp combines two inputs with set semantics, or multiset semantics when All is set
type SetOp struct {
	Kind  SetOpKind
	All   bool
	Left  Node
	Right Node
}

// CTE is one common table expression.
// For a recursive CTE, Query is the base term and Step the recursive term, which reads
// the previous generation through a CTERef (or Scan) of Name.
type CTE struct {
	Name     string
	Columns  []string
	Query    Node
	Step     Node
	UnionAll bool
	// MaxIterations overrides Options.MaxRecursion when positive
	MaxIterations int
}

// IsRecursive reports whether the CTE has a recursive term
func (c CTE) IsRecursive() bool {
	return c.Step != nil
}

// With binds CTEs, in order, for the evaluation of Body.
// Each CTE sees the ones defined before it; an inner With shadows outer names.
type With struct {
	CTEs []CTE
	Body Node
}

// CTERef reads a CTE bound by an enclosing With
type CTERef struct {
	Name  string
	Alias string
}

func (*Scan) planNode()   {}
func (*Values) planNode() {}
func (*Join) planNode()   {}
func (*Select) planNode() {}
func (*SetOp) planNode()  {}
func (*With) planNode()   {}
func (*CTERef) planNode() {}

// Int64 returns a pointer to n, for Select.Limit and Select.Offset
func Int64(n int64) *int64 {
	return &n
}

// Explain renders the plan as an indented tree
func Explain(node Node) string {
	var sb strings.Builder
	explainNode(&sb, node, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, node Node, depth int) {
	line := func(d int, format string, args ...interface{}) {
		sb.WriteString(strings.Repeat("  ", d))
		fmt.Fprintf(sb, format, args...)
		sb.WriteByte('\n')
	}

	switch n := node.(type) {
	case nil:
		line(depth, "Empty")
	case *Scan:
		if n.Alias != "" {
			line(depth, "Scan %s AS %s", n.Table, n.Alias)
		} else {
			line(depth, "Scan %s", n.Table)
		}
	case *Values:
		line(depth, "Values %s rows=%d", n.Schema, len(n.Rows))
	case *CTERef:
		if n.Alias != "" {
			line(depth, "CTE %s AS %s", n.Name, n.Alias)
		} else {
			line(depth, "CTE %s", n.Name)
		}
	case *Join:
		if n.Condition != nil {
			line(depth, "Join %s ON %s", n.Kind, n.Condition)
		} else {
			line(depth, "Join %s", n.Kind)
		}
		explainNode(sb, n.Left, depth+1)
		explainNode(sb, n.Right, depth+1)
	case *SetOp:
		if n.All {
			line(depth, "%s ALL", n.Kind)
		} else {
			line(depth, "%s", n.Kind)
		}
		explainNode(sb, n.Left, depth+1)
		explainNode(sb, n.Right, depth+1)
	case *With:
		line(depth, "With")
		for _, cte := range n.CTEs {
			cols := ""
			if len(cte.Columns) > 0 {
				cols = "(" + strings.Join(cte.Columns, ", ") + ")"
			}
			if cte.IsRecursive() {
				mode := "UNION"
				if cte.UnionAll {
					mode = "UNION ALL"
				}
				line(depth+1, "Recursive %s%s %s", cte.Name, cols, mode)
				line(depth+2, "Base")
				explainNode(sb, cte.Query, depth+3)
				line(depth+2, "Step")
				explainNode(sb, cte.Step, depth+3)
			} else {
				line(depth+1, "CTE %s%s", cte.Name, cols)
				explainNode(sb, cte.Query, depth+2)
			}
		}
		explainNode(sb, n.Body, depth+1)
	case *Select:
		explainSelect(sb, n, depth, line)
	default:
		line(depth, "%T", node)
	}
}

func explainSelect(sb *strings.Builder, n *Select, depth int, line func(int, string, ...interface{})) {
	// Stages are listed top-down in reverse execution order, like the operator tree
	d := depth
	if n.Limit != nil || n.Offset != nil {
		var limit, offset string
		if n.Limit != nil {
			limit = fmt.Sprintf(" limit=%d", *n.Limit)
		}
		if n.Offset != nil {
			offset = fmt.Sprintf(" offset=%d", *n.Offset)
		}
		line(d, "Limit%s%s", limit, offset)
		d++
	}
	if len(n.OrderBy) > 0 {
		keys := make([]string, len(n.OrderBy))
		for i, k := range n.OrderBy {
			keys[i] = k.String()
		}
		line(d, "Sort %s", strings.Join(keys, ", "))
		d++
	}
	if n.Distinct {
		line(d, "Distinct")
		d++
	}
	line(d, "Project %s", projectionString(n.Projection))
	d++

	var exprs []Expr
	for _, item := range n.Projection {
		exprs = append(exprs, item.Expr)
	}
	for _, k := range n.OrderBy {
		exprs = append(exprs, k.Expr)
	}
	if windows := collectWindows(exprs...); len(windows) > 0 {
		names := make([]string, len(windows))
		for i, w := range windows {
			names[i] = w.String()
		}
		line(d, "Window %s", strings.Join(names, ", "))
		d++
	}
	if n.Having != nil {
		line(d, "Having %s", n.Having)
		d++
	}
	aggs := collectAggregates(append(exprs, n.Having)...)
	if len(n.GroupBy) > 0 || len(aggs) > 0 {
		names := make([]string, len(aggs))
		for i, a := range aggs {
			names[i] = a.String()
		}
		line(d, "Aggregate group=[%s] aggregates=[%s]", joinExprs(n.GroupBy), strings.Join(names, ", "))
		d++
	}
	if n.Where != nil {
		line(d, "Filter %s", n.Where)
		d++
	}
	explainNode(sb, n.From, d)
}

func projectionString(items []SelectItem) string {
	if len(items) == 0 {
		return "*"
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Expr.String()
		if item.Alias != "" {
			parts[i] += " AS " + item.Alias
		}
	}
	return strings.Join(parts, ", ")
}
