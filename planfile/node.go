package planfile

import (
	"fmt"

	"github.com/vegasq/planexec/query"
)

func decodeNode(d *nodeDoc, path string) (query.Node, error) {
	if d == nil {
		return nil, invalid(path, "missing plan node")
	}
	set := 0
	for _, ok := range []bool{d.Scan != nil, d.Values != nil, d.Join != nil, d.Select != nil, d.SetOp != nil, d.With != nil, d.CTERef != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, invalid(path, "a plan node needs exactly one of scan, values, join, select, setop, with or cte_ref (found %d)", set)
	}

	switch {
	case d.Scan != nil:
		if d.Scan.Table == "" {
			return nil, invalid(path+".scan", "table is required")
		}
		return &query.Scan{Table: d.Scan.Table, Alias: d.Scan.Alias}, nil
	case d.Values != nil:
		return decodeValues(d.Values, path+".values")
	case d.Join != nil:
		return decodeJoin(d.Join, path+".join")
	case d.Select != nil:
		return decodeSelect(d.Select, path+".select")
	case d.SetOp != nil:
		return decodeSetOp(d.SetOp, path+".setop")
	case d.With != nil:
		return decodeWith(d.With, path+".with")
	default:
		if d.CTERef.Name == "" {
			return nil, invalid(path+".cte_ref", "name is required")
		}
		return &query.CTERef{Name: d.CTERef.Name, Alias: d.CTERef.Alias}, nil
	}
}

// decodeValues builds an inline relation. A column without a type takes the type of its
// first non-NULL value; typed columns cast every value.
func decodeValues(d *valuesDoc, path string) (query.Node, error) {
	if len(d.Columns) == 0 {
		return nil, invalid(path, "columns are required")
	}

	cols := make([]query.Column, len(d.Columns))
	typed := make([]bool, len(d.Columns))
	for i, c := range d.Columns {
		if c.Name == "" {
			return nil, invalid(fmt.Sprintf("%s.columns[%d]", path, i), "name is required")
		}
		cols[i] = query.Column{Name: c.Name, Nullable: c.Nullable}
		if c.Type != "" {
			typ, err := query.ParseValueType(c.Type)
			if err != nil {
				return nil, at(fmt.Sprintf("%s.columns[%d]", path, i), err)
			}
			cols[i].Type = typ
			typed[i] = true
		}
	}

	rows := make([]query.Row, len(d.Rows))
	for r, raw := range d.Rows {
		rowPath := fmt.Sprintf("%s.rows[%d]", path, r)
		if len(raw) != len(cols) {
			return nil, query.NewError(query.ErrSchema, "plan file", "%s: has %d values for %d columns", rowPath, len(raw), len(cols))
		}
		row := make(query.Row, len(cols))
		for i, x := range raw {
			v, err := scalar(x)
			if err != nil {
				return nil, at(fmt.Sprintf("%s[%d]", rowPath, i), err)
			}
			if v.IsNull() {
				cols[i].Nullable = true
			} else if typed[i] {
				if v, err = query.Cast(v, cols[i].Type); err != nil {
					return nil, at(fmt.Sprintf("%s[%d]", rowPath, i), err)
				}
			} else if cols[i].Type == query.TypeNull {
				cols[i].Type = v.Type()
			}
			row[i] = v
		}
		rows[r] = row
	}
	return &query.Values{Schema: query.NewSchema(cols...), Rows: rows, Alias: d.Alias}, nil
}

func decodeJoin(d *joinDoc, path string) (query.Node, error) {
	kind, err := query.ParseJoinKind(d.Kind)
	if err != nil {
		return nil, at(path+".kind", err)
	}
	left, err := decodeNode(d.Left, path+".left")
	if err != nil {
		return nil, err
	}
	right, err := decodeNode(d.Right, path+".right")
	if err != nil {
		return nil, err
	}
	var cond query.Expr
	if d.On != nil {
		if cond, err = decodeExpr(d.On, path+".on"); err != nil {
			return nil, err
		}
	}
	return &query.Join{Kind: kind, Left: left, Right: right, Condition: cond}, nil
}

func decodeSelect(d *selectDoc, path string) (query.Node, error) {
	sel := &query.Select{Distinct: d.Distinct, Limit: d.Limit, Offset: d.Offset}

	var err error
	if d.From != nil {
		if sel.From, err = decodeNode(d.From, path+".from"); err != nil {
			return nil, err
		}
	}
	if sel.Where, err = optionalExpr(d.Where, path+".where"); err != nil {
		return nil, err
	}
	if sel.GroupBy, err = decodeExprs(d.GroupBy, path+".group_by"); err != nil {
		return nil, err
	}
	if sel.Having, err = optionalExpr(d.Having, path+".having"); err != nil {
		return nil, err
	}

	// No projection selects every input column
	sel.Projection = make([]query.SelectItem, len(d.Projection))
	for i, item := range d.Projection {
		e, err := decodeExpr(item.Expr, fmt.Sprintf("%s.projection[%d].expr", path, i))
		if err != nil {
			return nil, err
		}
		sel.Projection[i] = query.SelectItem{Expr: e, Alias: item.Alias}
	}

	if sel.OrderBy, err = decodeSortKeys(d.OrderBy, path+".order_by"); err != nil {
		return nil, err
	}
	return sel, nil
}

func decodeSetOp(d *setOpDoc, path string) (query.Node, error) {
	kind, err := query.ParseSetOpKind(d.Op)
	if err != nil {
		return nil, at(path+".op", err)
	}
	left, err := decodeNode(d.Left, path+".left")
	if err != nil {
		return nil, err
	}
	right, err := decodeNode(d.Right, path+".right")
	if err != nil {
		return nil, err
	}
	return &query.SetOp{Kind: kind, All: d.All, Left: left, Right: right}, nil
}

func decodeWith(d *withDoc, path string) (query.Node, error) {
	if len(d.CTEs) == 0 {
		return nil, invalid(path, "ctes are required")
	}
	with := &query.With{CTEs: make([]query.CTE, len(d.CTEs))}
	for i, c := range d.CTEs {
		ctePath := fmt.Sprintf("%s.ctes[%d]", path, i)
		if c.Name == "" {
			return nil, invalid(ctePath, "name is required")
		}
		q, err := decodeNode(c.Query, ctePath+".query")
		if err != nil {
			return nil, err
		}
		cte := query.CTE{
			Name:          c.Name,
			Columns:       c.Columns,
			Query:         q,
			UnionAll:      c.UnionAll,
			MaxIterations: c.MaxIterations,
		}
		if c.Recursive != nil {
			if cte.Step, err = decodeNode(c.Recursive, ctePath+".recursive"); err != nil {
				return nil, err
			}
		}
		with.CTEs[i] = cte
	}
	body, err := decodeNode(d.Body, path+".body")
	if err != nil {
		return nil, err
	}
	with.Body = body
	return with, nil
}
