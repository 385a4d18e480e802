package query

import (
	"sort"
	"strings"
)

// windowArity lists the accepted argument counts of each window function
var windowArity = map[string][2]int{
	"ROW_NUMBER":   {0, 0},
	"RANK":         {0, 0},
	"DENSE_RANK":   {0, 0},
	"PERCENT_RANK": {0, 0},
	"CUME_DIST":    {0, 0},
	"NTILE":        {1, 1},
	"LAG":          {1, 3},
	"LEAD":         {1, 3},
	"FIRST_VALUE":  {1, 1},
	"LAST_VALUE":   {1, 1},
	"NTH_VALUE":    {2, 2},
	"SUM":          {1, 1},
	"AVG":          {1, 1},
	"MIN":          {1, 1},
	"MAX":          {1, 1},
	"COUNT":        {0, 1},
}

// checkWindowCall validates the function name, arity and frame of a window call
func checkWindowCall(call *WindowCall) error {
	name := strings.ToUpper(call.Name)
	arity, ok := windowArity[name]
	if !ok {
		return newError(ErrNotFound, "window", "unknown window function %s", call.Name)
	}
	if len(call.Args) < arity[0] || len(call.Args) > arity[1] {
		return newError(ErrValidation, "window", "%s called with %d arguments", name, len(call.Args))
	}
	return validateFrame(effectiveFrame(call.Window), len(call.Window.OrderBy))
}

// applyWindows computes each window call over the materialized input and appends one
// column per call. The returned evaluator reads those columns wherever a call reappears.
func (ec *ExecutionContext) applyWindows(input RowIterator, ev *evaluator, calls []*WindowCall) (RowIterator, *evaluator, error) {
	in := input.Schema()
	rows, err := drain(ec.ctx, input, "window", ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
	if err != nil {
		return nil, nil, err
	}

	cols := make([]Column, 0, in.Len()+len(calls))
	cols = append(cols, in.Columns...)
	results := make([][]Value, len(calls))
	for i, call := range calls {
		values, typ, err := ec.computeWindow(rows, ev, call)
		if err != nil {
			return nil, nil, err
		}
		results[i] = values
		cols = append(cols, Column{Name: call.String(), Type: typ, Nullable: true})
	}

	out := make([]Row, len(rows))
	for r, row := range rows {
		extended := make(Row, 0, len(cols))
		extended = append(extended, row...)
		for i := range calls {
			extended = append(extended, results[i][r])
		}
		out[r] = extended
	}

	schema := Schema{Columns: cols}
	next := ev.extend(schema)
	for i, call := range calls {
		next.bind(call.String(), in.Len()+i)
	}
	return newSliceIterator(schema, out), next, nil
}

// extend returns an evaluator over a wider schema that keeps the existing bindings
func (ev *evaluator) extend(schema Schema) *evaluator {
	next := newEvaluator(schema)
	next.ec = ev.ec
	for key, idx := range ev.bound {
		next.bound[key] = idx
	}
	return next
}

// windowPartition is one partition sorted by the window ORDER BY
type windowPartition struct {
	rows      []int // input row indices in window order
	peerStart []int
	peerEnd   []int
}

// computeWindow evaluates one window call for every input row
func (ec *ExecutionContext) computeWindow(rows []Row, ev *evaluator, call *WindowCall) ([]Value, ValueType, error) {
	if err := checkWindowCall(call); err != nil {
		return nil, TypeNull, err
	}
	name := strings.ToUpper(call.Name)
	spec := call.Window

	exprs := append([]Expr{}, call.Args...)
	exprs = append(exprs, spec.PartitionBy...)
	for _, k := range spec.OrderBy {
		exprs = append(exprs, k.Expr)
	}
	if err := ev.prepare(exprs...); err != nil {
		return nil, TypeNull, err
	}

	parts, orderVals, err := ec.partition(rows, ev, spec)
	if err != nil {
		return nil, TypeNull, err
	}

	// First argument values, evaluated once per row
	var argVals []Value
	if len(call.Args) > 0 {
		argVals = make([]Value, len(rows))
		for i, row := range rows {
			if argVals[i], err = ev.eval(call.Args[0], row); err != nil {
				return nil, TypeNull, err
			}
		}
	}

	typ := windowType(name, call, ev)
	out := make([]Value, len(rows))
	frame := effectiveFrame(spec)
	tick := newTicker(ec.ctx, "window", ec.opts.BatchSize)

	for _, p := range parts {
		n := len(p.rows)
		frames := &partitionFrames{frame: frame, n: n, peerStart: p.peerStart, peerEnd: p.peerEnd}
		if len(spec.OrderBy) == 1 {
			frames.desc = spec.OrderBy[0].Desc
			frames.keys = make([]Value, n)
			for pos, r := range p.rows {
				frames.keys[pos] = orderVals[r][0]
			}
		}

		switch name {
		case "ROW_NUMBER":
			for pos, r := range p.rows {
				out[r] = NewInt(int64(pos + 1))
			}
		case "RANK":
			for pos, r := range p.rows {
				out[r] = NewInt(int64(p.peerStart[pos] + 1))
			}
		case "DENSE_RANK":
			rank := int64(0)
			for pos, r := range p.rows {
				if pos == p.peerStart[pos] {
					rank++
				}
				out[r] = NewInt(rank)
			}
		case "PERCENT_RANK":
			for pos, r := range p.rows {
				if n == 1 {
					out[r] = NewFloat(0)
					continue
				}
				out[r] = NewFloat(float64(p.peerStart[pos]) / float64(n-1))
			}
		case "CUME_DIST":
			for pos, r := range p.rows {
				out[r] = NewFloat(float64(p.peerEnd[pos]) / float64(n))
			}
		case "NTILE":
			buckets, err := positiveIntArg(name, ev, call.Args[0], rows[p.rows[0]])
			if err != nil {
				return nil, TypeNull, err
			}
			for pos, r := range p.rows {
				out[r] = NewInt(ntile(int64(pos), int64(n), buckets))
			}
		case "LAG", "LEAD":
			for pos, r := range p.rows {
				v, err := lagLead(name, ev, call, rows[r], p.rows, pos, argVals)
				if err != nil {
					return nil, TypeNull, err
				}
				out[r] = v
			}
		case "FIRST_VALUE", "LAST_VALUE", "NTH_VALUE":
			for pos, r := range p.rows {
				if err := tick.tick(); err != nil {
					return nil, TypeNull, err
				}
				lo, hi, err := frames.bounds(pos)
				if err != nil {
					return nil, TypeNull, err
				}
				target := -1
				switch name {
				case "FIRST_VALUE":
					target = lo
				case "LAST_VALUE":
					target = hi - 1
				default:
					nth, err := positiveIntArg(name, ev, call.Args[1], rows[r])
					if err != nil {
						return nil, TypeNull, err
					}
					target = lo + int(min64(nth, int64(n))) - 1
				}
				if lo < hi && target >= lo && target < hi {
					out[r] = argVals[p.rows[target]]
				} else {
					out[r] = Null()
				}
			}
		default:
			if err := frameAggregate(name, p, frames, argVals, out, tick); err != nil {
				return nil, TypeNull, err
			}
		}
	}
	return out, typ, nil
}

// partition groups row indices by the PARTITION BY values in first-seen order and sorts
// each partition stably by the ORDER BY keys. It returns the ORDER BY values per row.
func (ec *ExecutionContext) partition(rows []Row, ev *evaluator, spec WindowSpec) ([]*windowPartition, []Row, error) {
	var (
		parts []*windowPartition
		kb    keyBuilder
	)
	index := make(map[string]int)
	orderVals := make([]Row, len(rows))
	tick := newTicker(ec.ctx, "window", ec.opts.BatchSize)

	for r, row := range rows {
		if err := tick.tick(); err != nil {
			return nil, nil, err
		}
		kb.reset()
		for _, e := range spec.PartitionBy {
			v, err := ev.eval(e, row)
			if err != nil {
				return nil, nil, err
			}
			kb.add(v)
		}
		key := kb.String()
		idx, ok := index[key]
		if !ok {
			idx = len(parts)
			index[key] = idx
			parts = append(parts, &windowPartition{})
		}
		parts[idx].rows = append(parts[idx].rows, r)

		keys := make(Row, len(spec.OrderBy))
		for i, k := range spec.OrderBy {
			v, err := ev.eval(k.Expr, row)
			if err != nil {
				return nil, nil, err
			}
			keys[i] = v
		}
		orderVals[r] = keys
	}

	specs := make([]sortSpec, len(spec.OrderBy))
	for i, k := range spec.OrderBy {
		specs[i] = sortSpec{col: i, desc: k.Desc, nullsFirst: ec.nullsFirst(k.Nulls)}
	}

	for _, p := range parts {
		var sortErr error
		sort.SliceStable(p.rows, func(i, j int) bool {
			c, err := compareRows(orderVals[p.rows[i]], orderVals[p.rows[j]], specs)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c < 0
		})
		if sortErr != nil {
			return nil, nil, sortErr
		}

		// Peer groups: runs of rows equal on every ORDER BY key
		n := len(p.rows)
		p.peerStart = make([]int, n)
		p.peerEnd = make([]int, n)
		start := 0
		for pos := 1; pos <= n; pos++ {
			if pos < n {
				c, err := compareRows(orderVals[p.rows[pos-1]], orderVals[p.rows[pos]], specs)
				if err != nil {
					return nil, nil, err
				}
				if c == 0 {
					continue
				}
			}
			for k := start; k < pos; k++ {
				p.peerStart[k] = start
				p.peerEnd[k] = pos
			}
			start = pos
		}
	}
	return parts, orderVals, nil
}

// ntile returns the 1-based bucket of position pos among n rows split into b buckets.
// The first n%b buckets hold one extra row.
func ntile(pos, n, b int64) int64 {
	q, r := n/b, n%b
	if pos < r*(q+1) {
		return pos/(q+1) + 1
	}
	return r + (pos-r*(q+1))/q + 1
}

// lagLead reads the value offset rows before (LAG) or after (LEAD) the current position.
// Outside the partition it returns the default argument, evaluated on the current row.
func lagLead(name string, ev *evaluator, call *WindowCall, row Row, order []int, pos int, argVals []Value) (Value, error) {
	offset := int64(1)
	if len(call.Args) > 1 {
		v, err := ev.eval(call.Args[1], row)
		if err != nil {
			return Null(), err
		}
		if v.IsNull() {
			return Null(), nil
		}
		o, ok := v.AsInt()
		if !ok || o < 0 {
			return Null(), newError(ErrType, name, "offset must be a non-negative integer, got %s", v)
		}
		offset = o
	}

	target := int64(pos) + offset
	if name == "LAG" {
		target = int64(pos) - offset
	}
	if target >= 0 && target < int64(len(order)) {
		return argVals[order[target]], nil
	}
	if len(call.Args) > 2 {
		return ev.eval(call.Args[2], row)
	}
	return Null(), nil
}

// frameAggregate computes SUM, AVG, MIN, MAX or COUNT over each row's frame.
// Frames that only grow at the end reuse the running accumulator.
func frameAggregate(name string, p *windowPartition, frames *partitionFrames, argVals []Value, out []Value, tick *ticker) error {
	var (
		acc            accumulator
		prevLo, prevHi = -1, -1
	)
	for pos, r := range p.rows {
		if err := tick.tick(); err != nil {
			return err
		}
		lo, hi, err := frames.bounds(pos)
		if err != nil {
			return err
		}
		from := lo
		if acc != nil && lo == prevLo && hi >= prevHi {
			from = prevHi
		} else {
			acc = newAccumulator(name)
		}
		for k := from; k < hi; k++ {
			if argVals == nil {
				if err := acc.add(Null()); err != nil {
					return err
				}
				continue
			}
			v := argVals[p.rows[k]]
			if v.IsNull() {
				continue
			}
			if err := acc.add(v); err != nil {
				return err
			}
		}
		prevLo, prevHi = lo, hi
		out[r] = acc.result()
	}
	return nil
}

// positiveIntArg evaluates an argument that must be a positive integer
func positiveIntArg(name string, ev *evaluator, e Expr, row Row) (int64, error) {
	v, err := ev.eval(e, row)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	if !ok || i <= 0 {
		return 0, newError(ErrType, name, "argument must be a positive integer, got %s", v)
	}
	return i, nil
}

// windowType infers the result type of a window function
func windowType(name string, call *WindowCall, ev *evaluator) ValueType {
	switch name {
	case "ROW_NUMBER", "RANK", "DENSE_RANK", "NTILE", "COUNT":
		return TypeInt
	case "PERCENT_RANK", "CUME_DIST":
		return TypeFloat
	case "SUM", "AVG", "MIN", "MAX":
		return aggregateType(name, ev.typeOf(call.Args[0]))
	default:
		return ev.typeOf(call.Args[0])
	}
}
