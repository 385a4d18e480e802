package query

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// sortSpec is an ORDER BY key resolved to a column position
type sortSpec struct {
	col        int
	desc       bool
	nullsFirst bool
}

// projection is the result of planning the SELECT list
type projection struct {
	iter RowIterator
	// visible is the schema without hidden sort columns
	visible Schema
	hidden  int
	keys    []sortSpec
}

// project evaluates the SELECT list. ORDER BY keys that are not output columns are appended
// as hidden columns, which is only allowed without DISTINCT.
// starWidth limits "*" to the leading input columns, excluding computed aggregate and window columns.
func (ec *ExecutionContext) project(input RowIterator, ev *evaluator, items []SelectItem, orderBy []SortKey, distinct bool, starWidth int) (*projection, error) {
	in := input.Schema()
	exprs, cols, err := expandProjection(in, ev, items, starWidth)
	if err != nil {
		input.Close()
		return nil, err
	}
	visible := Schema{Columns: cols}

	p := &projection{visible: visible}
	for i, key := range orderBy {
		idx, err := resolveSortKey(key.Expr, visible, exprs)
		if err != nil {
			input.Close()
			return nil, err
		}
		if idx < 0 {
			if distinct {
				input.Close()
				return nil, newError(ErrSchema, "order by", "for SELECT DISTINCT, ORDER BY expression %s must appear in the select list", key.Expr)
			}
			idx = len(exprs)
			exprs = append(exprs, key.Expr)
			cols = append(cols, Column{Name: "#sort" + strconv.Itoa(i), Type: ev.typeOf(key.Expr), Nullable: true})
			p.hidden++
		}
		p.keys = append(p.keys, sortSpec{col: idx, desc: key.Desc, nullsFirst: ec.nullsFirst(key.Nulls)})
	}

	if err := ev.prepare(exprs...); err != nil {
		input.Close()
		return nil, err
	}
	p.iter = &projectIterator{
		input:  input,
		schema: Schema{Columns: cols},
		exprs:  exprs,
		ev:     ev,
		tick:   newTicker(ec.ctx, "project", ec.opts.BatchSize),
	}
	return p, nil
}

// expandProjection expands "*" and "t.*" and names every output column
func expandProjection(in Schema, ev *evaluator, items []SelectItem, starWidth int) ([]Expr, []Column, error) {
	if starWidth > in.Len() {
		starWidth = in.Len()
	}
	if len(items) == 0 {
		items = []SelectItem{{Expr: Col("*")}}
	}

	var (
		exprs []Expr
		cols  []Column
	)
	for _, item := range items {
		if ref, ok := item.Expr.(*ColumnRef); ok && (ref.Name == "*" || strings.HasSuffix(ref.Name, ".*")) {
			table := strings.TrimSuffix(strings.TrimSuffix(ref.Name, "*"), ".")
			matched := false
			for i := 0; i < starWidth; i++ {
				c := in.Columns[i]
				if table != "" && !strings.EqualFold(c.Table, table) {
					continue
				}
				matched = true
				star := &ColumnRef{Name: c.QualifiedName()}
				ev.cols[star] = i
				exprs = append(exprs, star)
				cols = append(cols, c)
			}
			if table != "" && !matched {
				return nil, nil, newError(ErrNotFound, "projection", "no columns for %s", ref.Name)
			}
			continue
		}

		col := Column{Name: item.Alias, Type: ev.typeOf(item.Expr), Nullable: true}
		if ref, ok := item.Expr.(*ColumnRef); ok {
			idx, err := ev.column(ref)
			if err != nil {
				if _, bound := ev.boundIndex(ref); !bound {
					return nil, nil, err
				}
			} else {
				col = in.Columns[idx]
				if item.Alias != "" {
					col.Name = item.Alias
					col.Table = ""
				}
			}
		}
		if col.Name == "" {
			col.Name = exprName(item.Expr)
		}
		exprs = append(exprs, item.Expr)
		cols = append(cols, col)
	}
	return exprs, cols, nil
}

// resolveSortKey maps an ORDER BY expression to an output column:
// a 1-based ordinal, an output name or alias, or a projected expression.
// It returns -1 when the key must be computed as a hidden column.
func resolveSortKey(key Expr, out Schema, exprs []Expr) (int, error) {
	if lit, ok := key.(*Literal); ok && lit.Value.typ == TypeInt {
		pos := lit.Value.i
		if pos < 1 || pos > int64(out.Len()) {
			return -1, newError(ErrValidation, "order by", "position %d is not in the select list", pos)
		}
		return int(pos - 1), nil
	}
	if ref, ok := key.(*ColumnRef); ok {
		idx, err := out.Index(ref.Name)
		if err == nil {
			return idx, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return -1, err
		}
	}
	s := key.String()
	for i := 0; i < out.Len() && i < len(exprs); i++ {
		if exprs[i].String() == s {
			return i, nil
		}
	}
	return -1, nil
}

// distinct keeps the first occurrence of every row, NULLs comparing equal
func (ec *ExecutionContext) distinct(input RowIterator) (RowIterator, error) {
	rows, err := drain(ec.ctx, input, "distinct", ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return newSliceIterator(input.Schema(), out), nil
}

// orderBy sorts all rows; ties keep their input order
func (ec *ExecutionContext) orderBy(input RowIterator, keys []sortSpec) (RowIterator, error) {
	rows, err := drain(ec.ctx, input, "sort", ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
	if err != nil {
		return nil, err
	}
	if err := ec.sortRows(rows, keys); err != nil {
		return nil, err
	}
	return newSliceIterator(input.Schema(), rows), nil
}

// sortRows stably sorts rows in place. The first comparison error or observed
// cancellation is returned once the sort finishes.
func (ec *ExecutionContext) sortRows(rows []Row, keys []sortSpec) error {
	var firstErr error
	tick := newTicker(ec.ctx, "sort", ec.opts.BatchSize)
	sort.SliceStable(rows, func(i, j int) bool {
		if firstErr != nil {
			return false
		}
		if err := tick.tick(); err != nil {
			firstErr = err
			return false
		}
		c, err := compareRows(rows[i], rows[j], keys)
		if err != nil {
			firstErr = err
			return false
		}
		return c < 0
	})
	return firstErr
}

// compareRows compares two rows on the sort keys
func compareRows(a, b Row, keys []sortSpec) (int, error) {
	for _, k := range keys {
		c, err := compareSortValues(a[k.col], b[k.col], k.desc, k.nullsFirst)
		if err != nil || c != 0 {
			return c, err
		}
	}
	return 0, nil
}

// compareSortValues orders one key. NULL placement does not flip with DESC.
func compareSortValues(a, b Value, desc, nullsFirst bool) (int, error) {
	if a.IsNull() || b.IsNull() {
		return compareForSort(a, b, nullsFirst)
	}
	c, err := compareValues(a, b)
	if desc {
		c = -c
	}
	return c, err
}

// trimIterator drops hidden trailing columns
type trimIterator struct {
	input  RowIterator
	schema Schema
}

func (it *trimIterator) Schema() Schema { return it.schema }

func (it *trimIterator) Next() (Row, bool, error) {
	row, ok, err := it.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	n := it.schema.Len()
	return row[:n:n], true, nil
}

func (it *trimIterator) Close() error { return it.input.Close() }
