package query

import (
	"strings"
)

// ValidatePlan checks the structure of a plan before any row is read.
// Name resolution happens later, when each operator binds its input schema.
func ValidatePlan(node Node) error {
	return validateNode(node)
}

func validateNode(node Node) error {
	switch n := node.(type) {
	case nil:
		return newError(ErrValidation, "validate", "missing plan node")
	case *Scan:
		if n.Table == "" {
			return newError(ErrValidation, "scan", "table name is required")
		}
	case *CTERef:
		if n.Name == "" {
			return newError(ErrValidation, "cte", "CTE name is required")
		}
	case *Values:
		for i, row := range n.Rows {
			if len(row) != n.Schema.Len() {
				return newError(ErrSchema, "values", "row %d has %d values for %d columns", i, len(row), n.Schema.Len())
			}
		}
	case *Join:
		if n.Kind == CrossJoin && n.Condition != nil {
			return newError(ErrValidation, "join", "CROSS JOIN takes no condition")
		}
		if n.Kind != CrossJoin && n.Condition == nil {
			return newError(ErrValidation, "join", "%s requires a condition", n.Kind)
		}
		if err := validateScalar("join condition", n.Condition); err != nil {
			return err
		}
		if err := validateNode(n.Left); err != nil {
			return err
		}
		return validateNode(n.Right)
	case *Select:
		return validateSelect(n)
	case *SetOp:
		if err := validateNode(n.Left); err != nil {
			return err
		}
		return validateNode(n.Right)
	case *With:
		for _, cte := range n.CTEs {
			if strings.TrimSpace(cte.Name) == "" {
				return newError(ErrValidation, "with", "CTE name is required")
			}
			if cte.MaxIterations < 0 {
				return newError(ErrValidation, "with", "CTE %s has a negative iteration bound", cte.Name)
			}
			if err := validateNode(cte.Query); err != nil {
				return err
			}
			if cte.Step != nil {
				if err := validateNode(cte.Step); err != nil {
					return err
				}
			}
		}
		return validateNode(n.Body)
	default:
		return newError(ErrValidation, "validate", "unsupported plan node %T", node)
	}
	return nil
}

func validateSelect(s *Select) error {
	if s.Limit != nil && *s.Limit < 0 {
		return newError(ErrValidation, "limit", "LIMIT must not be negative, got %d", *s.Limit)
	}
	if s.Offset != nil && *s.Offset < 0 {
		return newError(ErrValidation, "offset", "OFFSET must not be negative, got %d", *s.Offset)
	}
	if s.From != nil {
		if err := validateNode(s.From); err != nil {
			return err
		}
	}

	if err := validateScalar("WHERE", s.Where); err != nil {
		return err
	}
	for _, g := range s.GroupBy {
		if err := validateScalar("GROUP BY", g); err != nil {
			return err
		}
	}
	if s.Having != nil {
		if containsWindow(s.Having) {
			return newError(ErrValidation, "HAVING", "window functions are not allowed in HAVING")
		}
		if err := validateCalls(s.Having); err != nil {
			return err
		}
	}
	for _, item := range s.Projection {
		if item.Expr == nil {
			return newError(ErrValidation, "projection", "select item has no expression")
		}
		if err := validateCalls(item.Expr); err != nil {
			return err
		}
	}
	for _, key := range s.OrderBy {
		if key.Expr == nil {
			return newError(ErrValidation, "order by", "sort key has no expression")
		}
		if err := validateCalls(key.Expr); err != nil {
			return err
		}
	}
	return nil
}

// validateScalar rejects aggregate and window calls where only row-level expressions are allowed
func validateScalar(clause string, e Expr) error {
	if e == nil {
		return nil
	}
	if containsAggregate(e) {
		return newError(ErrValidation, clause, "aggregate functions are not allowed in %s", clause)
	}
	if containsWindow(e) {
		return newError(ErrValidation, clause, "window functions are not allowed in %s", clause)
	}
	return validateSubqueries(e)
}

// validateSubqueries validates the plans nested in subquery expressions
func validateSubqueries(e Expr) error {
	var err error
	walkExpr(e, func(n Expr) bool {
		if err != nil {
			return false
		}
		switch x := n.(type) {
		case *ExistsExpr:
			err = validateNode(x.Query)
		case *InSubqueryExpr:
			err = validateNode(x.Query)
		case *ScalarSubquery:
			err = validateNode(x.Query)
		}
		return err == nil
	})
	return err
}

// validateCalls checks every aggregate and window call inside e
func validateCalls(e Expr) error {
	var err error
	walkExpr(e, func(n Expr) bool {
		if err != nil {
			return false
		}
		switch c := n.(type) {
		case *AggregateCall:
			err = validateAggregate(c)
		case *WindowCall:
			err = validateWindow(c)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return validateSubqueries(e)
}

func validateAggregate(c *AggregateCall) error {
	name, ok := canonicalAggregate(c.Name)
	if !ok {
		return newError(ErrNotFound, "aggregate", "unknown aggregate %s", c.Name)
	}
	if c.Arg == nil && name != "COUNT" {
		return newError(ErrValidation, "aggregate", "%s requires an argument", name)
	}
	if c.Arg == nil && c.Distinct {
		return newError(ErrValidation, "aggregate", "COUNT(DISTINCT *) is not allowed")
	}
	if name == "STRING_AGG" && len(c.OrderBy) == 0 {
		return newError(ErrValidation, "aggregate", "%s requires an ORDER BY for a deterministic result", c)
	}
	if name != "STRING_AGG" && (len(c.OrderBy) > 0 || c.Separator != nil) {
		return newError(ErrValidation, "aggregate", "%s takes no ORDER BY or separator", name)
	}
	inner := []Expr{c.Arg, c.Separator}
	for _, k := range c.OrderBy {
		inner = append(inner, k.Expr)
	}
	for _, e := range inner {
		if e == nil {
			continue
		}
		if containsAggregate(e) || containsWindow(e) {
			return newError(ErrValidation, "aggregate", "aggregate %s cannot contain aggregate or window calls", c)
		}
	}
	return nil
}

func validateWindow(c *WindowCall) error {
	if err := checkWindowCall(c); err != nil {
		return err
	}
	inner := append([]Expr{}, c.Args...)
	inner = append(inner, c.Window.PartitionBy...)
	for _, k := range c.Window.OrderBy {
		inner = append(inner, k.Expr)
	}
	for _, e := range inner {
		if containsWindow(e) {
			return newError(ErrValidation, "window", "window call %s cannot contain another window call", c)
		}
	}
	return nil
}
