package query

import (
	"fmt"
)

// filter applies a WHERE or HAVING predicate. Only rows for which it is TRUE pass;
// FALSE and UNKNOWN both drop the row.
func (ec *ExecutionContext) filter(input RowIterator, ev *evaluator, cond Expr, clause string) (RowIterator, error) {
	if err := ev.prepare(cond); err != nil {
		input.Close()
		return nil, fmt.Errorf("failed to apply %s: %w", clause, err)
	}
	if t := ev.typeOf(cond); t != TypeBool && t != TypeNull {
		input.Close()
		return nil, newError(ErrType, clause, "predicate %s is %s, not BOOL", cond, t)
	}
	return &filterIterator{
		input: input,
		cond:  cond,
		ev:    ev,
		tick:  newTicker(ec.ctx, clause, ec.opts.BatchSize),
	}, nil
}

// filterIterator passes rows for which the predicate is TRUE
type filterIterator struct {
	input RowIterator
	cond  Expr
	ev    *evaluator
	tick  *ticker
}

func (it *filterIterator) Schema() Schema { return it.input.Schema() }

func (it *filterIterator) Next() (Row, bool, error) {
	for {
		row, ok, err := it.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		if err := it.tick.tick(); err != nil {
			return nil, false, err
		}
		t, err := it.ev.predicate(it.cond, row)
		if err != nil {
			return nil, false, err
		}
		if t == True {
			return row, true, nil
		}
	}
}

func (it *filterIterator) Close() error { return it.input.Close() }
