package query

import (
	"context"
)

// RowIterator is a pull-based stream of rows.
// Next returns ok=false once exhausted; Close releases resources and is safe to call twice.
type RowIterator interface {
	Schema() Schema
	Next() (Row, bool, error)
	Close() error
}

// sliceIterator streams a materialized slice of rows
type sliceIterator struct {
	schema Schema
	rows   []Row
	pos    int
}

func newSliceIterator(schema Schema, rows []Row) *sliceIterator {
	return &sliceIterator{schema: schema, rows: rows}
}

// NewRelationIterator streams the rows of a relation
func NewRelationIterator(rel *Relation) RowIterator {
	return newSliceIterator(rel.Schema, rel.Rows)
}

func (it *sliceIterator) Schema() Schema { return it.schema }

func (it *sliceIterator) Next() (Row, bool, error) {
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}

func (it *sliceIterator) Close() error {
	it.rows = nil
	return nil
}

// ticker checks for cancellation once every n calls
type ticker struct {
	ctx   context.Context
	op    string
	every int
	n     int
}

func newTicker(ctx context.Context, op string, every int) *ticker {
	if every <= 0 {
		every = 1
	}
	return &ticker{ctx: ctx, op: op, every: every}
}

func (t *ticker) tick() error {
	t.n++
	if t.n < t.every {
		return nil
	}
	t.n = 0
	return checkCtx(t.ctx, t.op)
}

// rowLimit enforces the materialization bound of one blocking operator
type rowLimit struct {
	op    string
	limit int
	n     int
}

func newRowLimit(op string, limit int) *rowLimit {
	return &rowLimit{op: op, limit: limit}
}

// add accounts for n more buffered rows
func (b *rowLimit) add(n int) error {
	b.n += n
	if b.limit > 0 && b.n > b.limit {
		return newError(ErrResourceExhausted, b.op, "buffered more than %d rows", b.limit)
	}
	return nil
}

// drain materializes an iterator, closing it. Cancellation is checked every batch rows and
// the number of buffered rows is bounded by limit (0 for unbounded).
func drain(ctx context.Context, it RowIterator, op string, batch, limit int) (rows []Row, err error) {
	defer func() {
		if cerr := it.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	tick := newTicker(ctx, op, batch)
	buf := newRowLimit(op, limit)
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		if err := tick.tick(); err != nil {
			return nil, err
		}
		if err := buf.add(1); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// projectIterator computes one output row per input row
type projectIterator struct {
	input  RowIterator
	schema Schema
	exprs  []Expr
	ev     *evaluator
	tick   *ticker
}

func (it *projectIterator) Schema() Schema { return it.schema }

func (it *projectIterator) Next() (Row, bool, error) {
	row, ok, err := it.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	if err := it.tick.tick(); err != nil {
		return nil, false, err
	}
	out := make(Row, len(it.exprs))
	for i, e := range it.exprs {
		if out[i], err = it.ev.eval(e, row); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

func (it *projectIterator) Close() error { return it.input.Close() }

// limitIterator skips offset rows and then yields at most limit rows (limit < 0: no limit).
// It stops pulling from its input once the limit is reached.
type limitIterator struct {
	input  RowIterator
	offset int64
	limit  int64
	seen   int64
}

func (it *limitIterator) Schema() Schema { return it.input.Schema() }

func (it *limitIterator) Next() (Row, bool, error) {
	for it.offset > 0 {
		_, ok, err := it.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		it.offset--
	}
	if it.limit >= 0 && it.seen >= it.limit {
		return nil, false, nil
	}
	row, ok, err := it.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	it.seen++
	return row, true, nil
}

func (it *limitIterator) Close() error { return it.input.Close() }

// schemaIterator relabels the schema of its input without touching rows
type schemaIterator struct {
	input  RowIterator
	schema Schema
}

func (it *schemaIterator) Schema() Schema           { return it.schema }
func (it *schemaIterator) Next() (Row, bool, error) { return it.input.Next() }
func (it *schemaIterator) Close() error             { return it.input.Close() }
