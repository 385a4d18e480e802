package query

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// fixpoint is the generation arena of one recursive CTE evaluation.
// generations[0] is the base term; generations[k+1] was produced from generations[k] alone.
type fixpoint struct {
	schema      Schema
	generations [][]Row
	total       int
}

// rows concatenates the generations in production order
func (f *fixpoint) rows() []Row {
	out := make([]Row, 0, f.total)
	for _, g := range f.generations {
		out = append(out, g...)
	}
	return out
}

// recursive evaluates a recursive CTE to its fixed point
func (ec *ExecutionContext) recursive(cte CTE) (*Relation, error) {
	fp, err := ec.fixpoint(cte)
	if err != nil {
		return nil, err
	}
	return &Relation{Schema: fp.schema, Rows: fp.rows()}, nil
}

func (ec *ExecutionContext) fixpoint(cte CTE) (*fixpoint, error) {
	op := "recursive cte " + cte.Name
	start := time.Now()
	maxIter := ec.opts.MaxRecursion
	if cte.MaxIterations > 0 {
		maxIter = cte.MaxIterations
	}

	base, err := ec.materialize(cte.Query, op)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate base term: %w", err)
	}
	schema, err := cteSchema(cte, base.Schema)
	if err != nil {
		return nil, err
	}

	var seen map[string]struct{}
	if !cte.UnionAll {
		seen = make(map[string]struct{})
	}
	tick := newTicker(ec.ctx, op, ec.opts.BatchSize)
	fp := &fixpoint{schema: schema}

	// accept appends the rows of a new generation not yet seen under UNION
	accept := func(rows []Row) ([]Row, error) {
		if seen == nil {
			return rows, nil
		}
		fresh := rows[:0:0]
		for _, row := range rows {
			if err := tick.tick(); err != nil {
				return nil, err
			}
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			fresh = append(fresh, row)
		}
		return fresh, nil
	}
	push := func(rows []Row) error {
		if len(rows) == 0 {
			return nil
		}
		fp.total += len(rows)
		if fp.total > ec.opts.MaxRecursiveRows {
			return newError(ErrRecursionLimit, op, "accumulated %d rows, limit is %d", fp.total, ec.opts.MaxRecursiveRows)
		}
		fp.generations = append(fp.generations, rows)
		ec.log.Debug("recursive generation",
			zap.String("cte", cte.Name),
			zap.Int("generation", len(fp.generations)-1),
			zap.Int("rows", len(rows)),
		)
		return nil
	}

	work, err := accept(base.Rows)
	if err != nil {
		return nil, err
	}
	if err := push(work); err != nil {
		return nil, err
	}

	// Iteration maxIter+1 only confirms that the recursion has ended
	for iter := 1; len(work) > 0; iter++ {
		if err := checkCtx(ec.ctx, op); err != nil {
			return nil, err
		}

		// The recursive term sees only the previous generation
		step := ec.NewChildContext()
		step.bindCTE(cte.Name, &Relation{Schema: schema, Rows: work})
		next, err := step.materialize(cte.Step, op)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate recursive term at iteration %d: %w", iter, err)
		}
		unified, err := unionSchema(op, schema, next.Schema)
		if err != nil {
			return nil, err
		}
		for i := range schema.Columns {
			schema.Columns[i].Type = unified.Columns[i].Type
			schema.Columns[i].Nullable = unified.Columns[i].Nullable
		}

		if work, err = accept(next.Rows); err != nil {
			return nil, err
		}
		if iter > maxIter && len(work) > 0 {
			return nil, newError(ErrRecursionLimit, op, "still producing rows after %d iterations", maxIter)
		}
		if err := push(work); err != nil {
			return nil, err
		}
	}

	fp.schema = schema
	ec.log.Debug("recursive cte reached fixed point",
		zap.String("cte", cte.Name),
		zap.Int("generations", len(fp.generations)),
		zap.Int("rows", fp.total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return fp, nil
}
