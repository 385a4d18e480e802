package query

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// canonicalAggregate maps aggregate names and aliases to their canonical name
func canonicalAggregate(name string) (string, bool) {
	switch n := strings.ToUpper(name); n {
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return n, true
	case "STRING_AGG", "GROUP_CONCAT", "LISTAGG":
		return "STRING_AGG", true
	default:
		return n, false
	}
}

// aggregateType infers the result type of an aggregate
func aggregateType(name string, arg ValueType) ValueType {
	switch name {
	case "COUNT":
		return TypeInt
	case "AVG":
		if arg == TypeFloat {
			return TypeFloat
		}
		return TypeDecimal
	case "STRING_AGG":
		return TypeText
	default:
		return arg
	}
}

// accumulator folds non-NULL values into one result
type accumulator interface {
	add(v Value) error
	result() Value
}

func newAccumulator(name string) accumulator {
	switch name {
	case "COUNT":
		return &countAcc{}
	case "SUM":
		return &sumAcc{}
	case "AVG":
		return &avgAcc{}
	case "MIN":
		return &extremeAcc{want: -1}
	case "MAX":
		return &extremeAcc{want: 1}
	default:
		return nil
	}
}

type countAcc struct {
	n int64
}

func (a *countAcc) add(Value) error { a.n++; return nil }
func (a *countAcc) result() Value   { return NewInt(a.n) }

// sumAcc keeps the sum in the widest numeric type seen; integer overflow is a type error
type sumAcc struct {
	sum Value
}

func (a *sumAcc) add(v Value) error {
	if !v.typ.IsNumeric() {
		return newError(ErrType, "SUM", "cannot sum %s values", v.typ)
	}
	if a.sum.IsNull() {
		a.sum = v
		return nil
	}
	sum, err := arithmetic(OpAdd, a.sum, v)
	if err != nil {
		return err
	}
	a.sum = sum
	return nil
}

func (a *sumAcc) result() Value { return a.sum }

// avgAcc averages exactly unless a float is involved
type avgAcc struct {
	n       int64
	dsum    decimal.Decimal
	fsum    float64
	isFloat bool
}

func (a *avgAcc) add(v Value) error {
	switch v.typ {
	case TypeInt, TypeDecimal:
		d, _ := v.AsDecimal()
		a.dsum = a.dsum.Add(d)
		f, _ := v.AsFloat()
		a.fsum += f
	case TypeFloat:
		a.isFloat = true
		a.fsum += v.f
	default:
		return newError(ErrType, "AVG", "cannot average %s values", v.typ)
	}
	a.n++
	return nil
}

func (a *avgAcc) result() Value {
	switch {
	case a.n == 0:
		return Null()
	case a.isFloat:
		return NewFloat(a.fsum / float64(a.n))
	default:
		return NewDecimal(a.dsum.Div(decimal.NewFromInt(a.n)))
	}
}

// extremeAcc tracks MIN (want -1) or MAX (want 1)
type extremeAcc struct {
	want int
	best Value
}

func (a *extremeAcc) add(v Value) error {
	if a.best.IsNull() {
		a.best = v
		return nil
	}
	c, err := compareValues(v, a.best)
	if err != nil {
		return err
	}
	if c == a.want {
		a.best = v
	}
	return nil
}

func (a *extremeAcc) result() Value { return a.best }

// aggSpec is an aggregate call compiled against the input schema
type aggSpec struct {
	call *AggregateCall
	name string
	keys []sortSpec
}

// aggState is the running state of one aggregate in one group
type aggState struct {
	spec  *aggSpec
	acc   accumulator
	seen  map[string]struct{}
	items []aggItem
	sep   *Value
}

// aggItem is one buffered STRING_AGG input with its ordering keys
type aggItem struct {
	value Value
	keys  Row
}

func newAggState(spec *aggSpec) *aggState {
	st := &aggState{spec: spec, acc: newAccumulator(spec.name)}
	if spec.call.Distinct {
		st.seen = make(map[string]struct{})
	}
	return st
}

// add feeds one input row; it reports how many rows were buffered
func (st *aggState) add(ev *evaluator, row Row) (int, error) {
	call := st.spec.call
	if call.Arg == nil {
		return 0, st.acc.add(Null())
	}
	v, err := ev.eval(call.Arg, row)
	if err != nil {
		return 0, err
	}
	if v.IsNull() {
		return 0, nil
	}
	if st.seen != nil {
		key := valuesKey([]Value{v})
		if _, dup := st.seen[key]; dup {
			return 0, nil
		}
		st.seen[key] = struct{}{}
	}

	if st.spec.name != "STRING_AGG" {
		return 0, st.acc.add(v)
	}
	if st.sep == nil {
		sep := NewText(",")
		if call.Separator != nil {
			if sep, err = ev.eval(call.Separator, row); err != nil {
				return 0, err
			}
			if !sep.IsNull() && sep.typ != TypeText {
				return 0, newError(ErrType, "STRING_AGG", "separator must be TEXT, got %s", sep.typ)
			}
		}
		st.sep = &sep
	}
	keys := make(Row, len(call.OrderBy))
	for i, k := range call.OrderBy {
		if keys[i], err = ev.eval(k.Expr, row); err != nil {
			return 0, err
		}
	}
	st.items = append(st.items, aggItem{value: v, keys: keys})
	return 1, nil
}

func (st *aggState) result() (Value, error) {
	if st.spec.name != "STRING_AGG" {
		return st.acc.result(), nil
	}
	if len(st.items) == 0 {
		return Null(), nil
	}

	var sortErr error
	keys := make([]sortSpec, len(st.spec.keys))
	for i, k := range st.spec.keys {
		keys[i] = sortSpec{col: i, desc: k.desc, nullsFirst: k.nullsFirst}
	}
	sort.SliceStable(st.items, func(i, j int) bool {
		c, err := compareRows(st.items[i].keys, st.items[j].keys, keys)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return Null(), sortErr
	}

	sep := ""
	if st.sep != nil && !st.sep.IsNull() {
		sep = st.sep.s
	}
	var sb strings.Builder
	for i, item := range st.items {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(item.value.String())
	}
	return NewText(sb.String()), nil
}

// group is one output group in first-seen order
type group struct {
	values Row
	states []*aggState
}

// aggregate groups the input and computes every aggregate call.
// The result has the group-by values followed by one column per aggregate; binds maps
// the canonical string of each computed expression to its column.
// Without GROUP BY exactly one row is produced, even for empty input.
func (ec *ExecutionContext) aggregate(input RowIterator, groupBy []Expr, calls []*AggregateCall) (*Relation, map[string]int, error) {
	defer input.Close()

	in := input.Schema()
	ev := ec.evaluatorFor(in)
	if err := ev.prepare(groupBy...); err != nil {
		return nil, nil, err
	}

	specs := make([]*aggSpec, len(calls))
	for i, call := range calls {
		name, ok := canonicalAggregate(call.Name)
		if !ok {
			return nil, nil, newError(ErrNotFound, "aggregate", "unknown aggregate %s", call.Name)
		}
		spec := &aggSpec{call: call, name: name}
		for _, k := range call.OrderBy {
			spec.keys = append(spec.keys, sortSpec{desc: k.Desc, nullsFirst: ec.nullsFirst(k.Nulls)})
		}
		args := []Expr{call.Arg, call.Separator}
		for _, k := range call.OrderBy {
			args = append(args, k.Expr)
		}
		if err := ev.prepare(args...); err != nil {
			return nil, nil, err
		}
		specs[i] = spec
	}

	// Output schema and bindings
	cols := make([]Column, 0, len(groupBy)+len(calls))
	binds := make(map[string]int)
	for i, g := range groupBy {
		col := Column{Name: g.String(), Type: ev.typeOf(g), Nullable: true}
		if ref, ok := g.(*ColumnRef); ok {
			idx, _ := ev.column(ref)
			col = in.Columns[idx]
		}
		cols = append(cols, col)
		binds[g.String()] = i
	}
	for i, spec := range specs {
		argType := TypeNull
		if spec.call.Arg != nil {
			argType = ev.typeOf(spec.call.Arg)
		}
		cols = append(cols, Column{
			Name:     spec.call.String(),
			Type:     aggregateType(spec.name, argType),
			Nullable: spec.name != "COUNT",
		})
		binds[spec.call.String()] = len(groupBy) + i
	}

	newGroup := func(values Row) *group {
		g := &group{values: values, states: make([]*aggState, len(specs))}
		for i, spec := range specs {
			g.states[i] = newAggState(spec)
		}
		return g
	}

	var groups []*group
	index := make(map[string]int)
	if len(groupBy) == 0 {
		groups = append(groups, newGroup(Row{}))
	}

	tick := newTicker(ec.ctx, "aggregate", ec.opts.BatchSize)
	buf := newRowLimit("aggregate", ec.opts.MaxMaterializedRows)
	var kb keyBuilder
	for {
		row, ok, err := input.Next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		if err := tick.tick(); err != nil {
			return nil, nil, err
		}

		var target *group
		if len(groupBy) == 0 {
			target = groups[0]
		} else {
			values := make(Row, len(groupBy))
			kb.reset()
			for i, e := range groupBy {
				if values[i], err = ev.eval(e, row); err != nil {
					return nil, nil, err
				}
				kb.add(values[i])
			}
			key := kb.String()
			idx, exists := index[key]
			if !exists {
				if err := buf.add(1); err != nil {
					return nil, nil, err
				}
				idx = len(groups)
				index[key] = idx
				groups = append(groups, newGroup(values))
			}
			target = groups[idx]
		}

		for _, st := range target.states {
			n, err := st.add(ev, row)
			if err != nil {
				return nil, nil, err
			}
			if err := buf.add(n); err != nil {
				return nil, nil, err
			}
		}
	}

	rows := make([]Row, len(groups))
	for i, g := range groups {
		out := make(Row, 0, len(cols))
		out = append(out, g.values...)
		for _, st := range g.states {
			v, err := st.result()
			if err != nil {
				return nil, nil, err
			}
			out = append(out, v)
		}
		rows[i] = out
	}
	return &Relation{Schema: Schema{Columns: cols}, Rows: rows}, binds, nil
}
