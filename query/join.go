package query

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// joinSchema returns the output schema; columns of a padded side become nullable
func joinSchema(kind JoinKind, left, right Schema) Schema {
	if kind == RightJoin || kind == FullJoin {
		left = left.nullable()
	}
	if kind == LeftJoin || kind == FullJoin {
		right = right.nullable()
	}
	return left.Concat(right)
}

func preservesLeft(kind JoinKind) bool  { return kind == LeftJoin || kind == FullJoin }
func preservesRight(kind JoinKind) bool { return kind == RightJoin || kind == FullJoin }

// equiKey is one "left = right" conjunct of a join condition
type equiKey struct {
	left  Expr
	right Expr
}

// splitConjuncts flattens a tree of ANDs
func splitConjuncts(e Expr) []Expr {
	if b, ok := e.(*BinaryExpr); ok && b.Op == OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	if e == nil {
		return nil
	}
	return []Expr{e}
}

const (
	sideNone = 0
	sideLeft = 1 << iota
	sideRight
)

// sides reports which inputs the columns of e come from.
// An unresolvable reference marks both sides so the conjunct stays in the residual.
func sides(e Expr, combined Schema, leftWidth int) int {
	s := sideNone
	walkExpr(e, func(n Expr) bool {
		ref, ok := n.(*ColumnRef)
		if !ok {
			return true
		}
		idx, err := combined.Index(ref.Name)
		switch {
		case err != nil:
			s |= sideLeft | sideRight
		case idx < leftWidth:
			s |= sideLeft
		default:
			s |= sideRight
		}
		return true
	})
	return s
}

// extractEquiKeys splits the condition into hash keys and a residual predicate
func extractEquiKeys(cond Expr, left, right Schema) ([]equiKey, Expr) {
	combined := left.Concat(right)
	var (
		keys     []equiKey
		residual []Expr
	)
	for _, c := range splitConjuncts(cond) {
		b, ok := c.(*BinaryExpr)
		if !ok || b.Op != OpEq {
			residual = append(residual, c)
			continue
		}
		ls, rs := sides(b.Left, combined, left.Len()), sides(b.Right, combined, left.Len())
		switch {
		case ls == sideLeft && rs == sideRight:
			keys = append(keys, equiKey{left: b.Left, right: b.Right})
		case ls == sideRight && rs == sideLeft:
			keys = append(keys, equiKey{left: b.Right, right: b.Left})
		default:
			residual = append(residual, c)
		}
	}
	return keys, And(residual...)
}

// join builds a join operator: a hash join for equi-joins, otherwise a nested loop that
// streams the left input over the materialized right input
func (ec *ExecutionContext) join(n *Join) (RowIterator, error) {
	left, err := ec.build(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ec.build(n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}

	schema := joinSchema(n.Kind, left.Schema(), right.Schema())
	ev := ec.evaluatorFor(left.Schema().Concat(right.Schema()))
	if n.Kind != CrossJoin {
		if err := ev.prepare(n.Condition); err != nil {
			left.Close()
			right.Close()
			return nil, fmt.Errorf("failed to apply join condition: %w", err)
		}
		if keys, residual := extractEquiKeys(n.Condition, left.Schema(), right.Schema()); len(keys) > 0 {
			return ec.hashJoin(n.Kind, left, right, schema, keys, residual)
		}
	}

	rows, err := drain(ec.ctx, right, "join", ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &nestedLoopIterator{
		kind:         n.Kind,
		left:         left,
		right:        rows,
		rightMatched: make([]bool, len(rows)),
		leftWidth:    left.Schema().Len(),
		rightWidth:   right.Schema().Len(),
		schema:       schema,
		cond:         n.Condition,
		ev:           ev,
		tick:         newTicker(ec.ctx, "join", ec.opts.BatchSize),
	}, nil
}

// drainBoth materializes two inputs, concurrently when Parallel is set
func (ec *ExecutionContext) drainBoth(op string, left, right RowIterator) ([]Row, []Row, error) {
	var l, r []Row
	if !ec.opts.Parallel {
		var err error
		if l, err = drain(ec.ctx, left, op, ec.opts.BatchSize, ec.opts.MaxMaterializedRows); err != nil {
			right.Close()
			return nil, nil, err
		}
		if r, err = drain(ec.ctx, right, op, ec.opts.BatchSize, ec.opts.MaxMaterializedRows); err != nil {
			return nil, nil, err
		}
		return l, r, nil
	}

	g, gctx := errgroup.WithContext(ec.ctx)
	g.Go(func() (err error) {
		l, err = drain(gctx, left, op, ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
		return err
	})
	g.Go(func() (err error) {
		r, err = drain(gctx, right, op, ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, preferRootCause(ec.ctx, err)
	}
	return l, r, nil
}

// preferRootCause keeps a sibling's cancellation (caused by errgroup) from masking the
// caller's own cancellation state
func preferRootCause(ctx context.Context, err error) error {
	if ctx.Err() != nil && !IsCancelled(err) {
		return cancelled("parallel", ctx.Err())
	}
	return err
}

// hashJoin builds a hash table over the smaller input keyed by the equi-join values and
// looks up each row of the other in it. NULL keys are never inserted and never looked up.
func (ec *ExecutionContext) hashJoin(kind JoinKind, left, right RowIterator, schema Schema, keys []equiKey, residual Expr) (RowIterator, error) {
	ls, rs := left.Schema(), right.Schema()
	lrows, rrows, err := ec.drainBoth("hash join", left, right)
	if err != nil {
		return nil, err
	}

	lev, rev := ec.evaluatorFor(ls), ec.evaluatorFor(rs)
	lkeys := make([]Expr, len(keys))
	rkeys := make([]Expr, len(keys))
	for i, k := range keys {
		lkeys[i], rkeys[i] = k.left, k.right
		lt, rt := lev.typeOf(k.left), rev.typeOf(k.right)
		if !typesCompatible(lt, rt) {
			return nil, newError(ErrType, "hash join", "cannot compare %s with %s in %s = %s", lt, rt, k.left, k.right)
		}
	}

	// Build over the smaller side
	buildLeft := len(lrows) < len(rrows)
	build, lookup := rrows, lrows
	bev, pev, bkeys, pkeys := rev, lev, rkeys, lkeys
	if buildLeft {
		build, lookup = lrows, rrows
		bev, pev, bkeys, pkeys = lev, rev, lkeys, rkeys
	}

	buf := newRowLimit("hash join", ec.opts.MaxMaterializedRows)
	tick := newTicker(ec.ctx, "hash join", ec.opts.BatchSize)
	table := make(map[string][]int, len(build))
	var kb keyBuilder
	for i, row := range build {
		if err := tick.tick(); err != nil {
			return nil, err
		}
		key, ok, err := joinKey(&kb, bev, bkeys, row)
		if err != nil {
			return nil, err
		}
		if ok {
			table[key] = append(table[key], i)
		}
	}

	var rev2 *evaluator
	if residual != nil {
		rev2 = ec.evaluatorFor(ls.Concat(rs))
	}
	lw, rw := ls.Len(), rs.Len()
	pair := func(b, p Row) Row {
		if buildLeft {
			return concatRows(b, p)
		}
		return concatRows(p, b)
	}
	padLookup := func(p Row) Row {
		if buildLeft {
			return concatRows(nullRow(lw), p)
		}
		return concatRows(p, nullRow(rw))
	}
	padBuild := func(b Row) Row {
		if buildLeft {
			return concatRows(b, nullRow(rw))
		}
		return concatRows(nullRow(lw), b)
	}
	lookupPreserved := preservesLeft(kind)
	buildPreserved := preservesRight(kind)
	if buildLeft {
		lookupPreserved, buildPreserved = preservesRight(kind), preservesLeft(kind)
	}

	var out []Row
	emit := func(row Row) error {
		out = append(out, row)
		return buf.add(1)
	}
	buildMatched := make([]bool, len(build))
	for _, p := range lookup {
		if err := tick.tick(); err != nil {
			return nil, err
		}
		key, ok, err := joinKey(&kb, pev, pkeys, p)
		if err != nil {
			return nil, err
		}
		matched := false
		if ok {
			for _, bi := range table[key] {
				combined := pair(build[bi], p)
				if rev2 != nil {
					t, err := rev2.predicate(residual, combined)
					if err != nil {
						return nil, err
					}
					if t != True {
						continue
					}
				}
				matched = true
				buildMatched[bi] = true
				if err := emit(combined); err != nil {
					return nil, err
				}
			}
		}
		if !matched && lookupPreserved {
			if err := emit(padLookup(p)); err != nil {
				return nil, err
			}
		}
	}
	if buildPreserved {
		for i, b := range build {
			if !buildMatched[i] {
				if err := emit(padBuild(b)); err != nil {
					return nil, err
				}
			}
		}
	}
	return newSliceIterator(schema, out), nil
}

// joinKey encodes the key values of row; ok is false when any key is NULL
func joinKey(kb *keyBuilder, ev *evaluator, exprs []Expr, row Row) (string, bool, error) {
	kb.reset()
	for _, e := range exprs {
		v, err := ev.eval(e, row)
		if err != nil {
			return "", false, err
		}
		if v.IsNull() {
			return "", false, nil
		}
		kb.add(v)
	}
	return kb.String(), true, nil
}

// nestedLoopIterator streams the left input; for each left row it scans the materialized
// right rows. Unmatched right rows of RIGHT and FULL joins are emitted after the left input ends.
type nestedLoopIterator struct {
	kind         JoinKind
	left         RowIterator
	right        []Row
	rightMatched []bool
	leftWidth    int
	rightWidth   int
	schema       Schema
	cond         Expr
	ev           *evaluator
	tick         *ticker

	cur        Row
	curMatched bool
	ri         int
	leftDone   bool
}

func (it *nestedLoopIterator) Schema() Schema { return it.schema }

func (it *nestedLoopIterator) Next() (Row, bool, error) {
	for {
		if it.leftDone {
			if !preservesRight(it.kind) {
				return nil, false, nil
			}
			for it.ri < len(it.right) {
				i := it.ri
				it.ri++
				if !it.rightMatched[i] {
					return concatRows(nullRow(it.leftWidth), it.right[i]), true, nil
				}
			}
			return nil, false, nil
		}

		if it.cur == nil {
			row, ok, err := it.left.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				it.leftDone = true
				it.ri = 0
				continue
			}
			it.cur, it.curMatched, it.ri = row, false, 0
		}

		for it.ri < len(it.right) {
			i := it.ri
			it.ri++
			if err := it.tick.tick(); err != nil {
				return nil, false, err
			}
			combined := concatRows(it.cur, it.right[i])
			if it.kind == CrossJoin {
				return combined, true, nil
			}
			t, err := it.ev.predicate(it.cond, combined)
			if err != nil {
				return nil, false, err
			}
			if t == True {
				it.curMatched = true
				it.rightMatched[i] = true
				return combined, true, nil
			}
		}

		cur, matched := it.cur, it.curMatched
		it.cur = nil
		if !matched && preservesLeft(it.kind) {
			return concatRows(cur, nullRow(it.rightWidth)), true, nil
		}
	}
}

func (it *nestedLoopIterator) Close() error {
	it.right = nil
	return it.left.Close()
}
