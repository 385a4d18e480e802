package query

import (
	"fmt"
	"strings"
	"sync"
)

// ExistsExpr is "[NOT] EXISTS (query)". It is TRUE or FALSE, never UNKNOWN.
type ExistsExpr struct {
	Query  Node
	Negate bool
}

// InSubqueryExpr is "x [NOT] IN (query)" over a single-column query
type InSubqueryExpr struct {
	Operand Expr
	Query   Node
	Negate  bool
}

// ScalarSubquery is a single-column query used as a value.
// No rows gives NULL; more than one row is an error.
type ScalarSubquery struct {
	Query Node
}

func (*ExistsExpr) exprNode()     {}
func (*InSubqueryExpr) exprNode() {}
func (*ScalarSubquery) exprNode() {}

func (e *ExistsExpr) String() string {
	if e.Negate {
		return "(NOT EXISTS " + inlinePlan(e.Query) + ")"
	}
	return "(EXISTS " + inlinePlan(e.Query) + ")"
}

func (e *InSubqueryExpr) String() string {
	op := " IN "
	if e.Negate {
		op = " NOT IN "
	}
	return "(" + e.Operand.String() + op + inlinePlan(e.Query) + ")"
}

func (e *ScalarSubquery) String() string { return inlinePlan(e.Query) }

// inlinePlan renders a plan on one line, innermost operator last
func inlinePlan(node Node) string {
	lines := strings.Split(strings.TrimSpace(Explain(node)), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return "(" + strings.Join(lines, " <- ") + ")"
}

// subqueryCache holds the results of the subqueries run in one CTE scope.
// Subqueries are uncorrelated, so each one runs at most once per scope.
type subqueryCache struct {
	mu   sync.Mutex
	rels map[Node]*Relation
}

func newSubqueryCache() *subqueryCache {
	return &subqueryCache{rels: make(map[Node]*Relation)}
}

// subquery materializes node in a child scope, reusing an earlier result
func (ec *ExecutionContext) subquery(node Node) (*Relation, error) {
	c := ec.subqueries
	c.mu.Lock()
	defer c.mu.Unlock()
	if rel, ok := c.rels[node]; ok {
		return rel, nil
	}
	rel, err := ec.NewChildContext().materialize(node, "subquery")
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate subquery: %w", err)
	}
	c.rels[node] = rel
	return rel, nil
}

// subquery runs node through the execution context the evaluator was created by
func (ev *evaluator) subquery(node Node) (*Relation, error) {
	if ev.ec == nil {
		return nil, newError(ErrValidation, "subquery", "subqueries are not allowed here")
	}
	return ev.ec.subquery(node)
}

func (ev *evaluator) exists(n *ExistsExpr) (Tri, error) {
	rel, err := ev.subquery(n.Query)
	if err != nil {
		return Unknown, err
	}
	return triOf((rel.Len() > 0) != n.Negate), nil
}

// inSubquery follows the rules of IN over a list: TRUE on a match, UNKNOWN when nothing
// matched but a NULL was involved, else FALSE. An empty query gives FALSE even for NULL.
func (ev *evaluator) inSubquery(n *InSubqueryExpr, row Row) (Tri, error) {
	rel, err := ev.subquery(n.Query)
	if err != nil {
		return Unknown, err
	}
	if rel.Schema.Len() != 1 {
		return Unknown, newError(ErrSchema, "in subquery", "subquery must return one column, got %d", rel.Schema.Len())
	}
	v, err := ev.eval(n.Operand, row)
	if err != nil {
		return Unknown, err
	}

	result := False
	for _, r := range rel.Rows {
		if v.IsNull() || r[0].IsNull() {
			result = Unknown
			continue
		}
		c, err := compareValues(v, r[0])
		if err != nil {
			return Unknown, err
		}
		if c == 0 {
			result = True
			break
		}
	}
	if n.Negate {
		return result.Not(), nil
	}
	return result, nil
}

func (ev *evaluator) scalarSubquery(n *ScalarSubquery) (Value, error) {
	rel, err := ev.subquery(n.Query)
	if err != nil {
		return Null(), err
	}
	if rel.Schema.Len() != 1 {
		return Null(), newError(ErrSchema, "scalar subquery", "subquery must return one column, got %d", rel.Schema.Len())
	}
	switch rel.Len() {
	case 0:
		return Null(), nil
	case 1:
		return rel.Rows[0][0], nil
	default:
		return Null(), newError(ErrSchema, "scalar subquery", "subquery returned %d rows, want at most one", rel.Len())
	}
}

// scalarSubqueryType reads the column type of a scalar subquery, running it if needed.
// Failures report TypeNull here and surface again on evaluation.
func (ev *evaluator) scalarSubqueryType(n *ScalarSubquery) ValueType {
	rel, err := ev.subquery(n.Query)
	if err != nil || rel.Schema.Len() != 1 {
		return TypeNull
	}
	return rel.Schema.Columns[0].Type
}
