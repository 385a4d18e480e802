package query

import (
	"fmt"

	"go.uber.org/zap"
)

// unionSchema checks that both arms have the same width and compatible column types.
// Names come from the left arm.
func unionSchema(op string, left, right Schema) (Schema, error) {
	if left.Len() != right.Len() {
		return Schema{}, newError(ErrSchema, op, "each side must have the same number of columns: %d vs %d", left.Len(), right.Len())
	}
	cols := make([]Column, left.Len())
	for i, l := range left.Columns {
		r := right.Columns[i]
		if !typesCompatible(l.Type, r.Type) {
			return Schema{}, newError(ErrSchema, op, "column %d has incompatible types %s and %s", i+1, l.Type, r.Type)
		}
		l.Type = unifyTypes(l.Type, r.Type)
		l.Nullable = l.Nullable || r.Nullable
		cols[i] = l
	}
	return Schema{Columns: cols}, nil
}

// setOp evaluates UNION, INTERSECT and EXCEPT. Set variants treat NULLs as equal and
// keep the first occurrence of each row; ALL variants keep multiplicities.
func (ec *ExecutionContext) setOp(n *SetOp) (RowIterator, error) {
	op := n.Kind.String()
	if n.All {
		op += " ALL"
	}

	left, err := ec.build(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ec.build(n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	schema, err := unionSchema(op, left.Schema(), right.Schema())
	if err != nil {
		left.Close()
		right.Close()
		return nil, err
	}

	lrows, rrows, err := ec.drainBoth(op, left, right)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", op, err)
	}
	ec.log.Debug("set operation inputs ready", zap.String("op", op), zap.Int("left_rows", len(lrows)), zap.Int("right_rows", len(rrows)))

	tick := newTicker(ec.ctx, op, ec.opts.BatchSize)
	var out []Row
	switch n.Kind {
	case Union:
		out, err = union(tick, lrows, rrows, n.All)
	case Intersect:
		out, err = intersect(tick, lrows, rrows, n.All)
	case Except:
		out, err = except(tick, lrows, rrows, n.All)
	default:
		err = newError(ErrValidation, op, "unknown set operation")
	}
	if err != nil {
		return nil, err
	}
	if err := newRowLimit(op, ec.opts.MaxMaterializedRows).add(len(out)); err != nil {
		return nil, err
	}
	return newSliceIterator(schema, out), nil
}

func union(tick *ticker, left, right []Row, all bool) ([]Row, error) {
	if all {
		out := make([]Row, 0, len(left)+len(right))
		return append(append(out, left...), right...), nil
	}
	seen := make(map[string]struct{}, len(left))
	var out []Row
	for _, rows := range [][]Row{left, right} {
		for _, row := range rows {
			if err := tick.tick(); err != nil {
				return nil, err
			}
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, row)
		}
	}
	return out, nil
}

// countRows counts the occurrences of each distinct row
func countRows(tick *ticker, rows []Row) (map[string]int, error) {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		if err := tick.tick(); err != nil {
			return nil, err
		}
		counts[rowKey(row)]++
	}
	return counts, nil
}

// intersect keeps left rows also present on the right: min(m, n) copies under ALL
func intersect(tick *ticker, left, right []Row, all bool) ([]Row, error) {
	counts, err := countRows(tick, right)
	if err != nil {
		return nil, err
	}
	var out []Row
	emitted := make(map[string]struct{})
	for _, row := range left {
		if err := tick.tick(); err != nil {
			return nil, err
		}
		key := rowKey(row)
		if counts[key] == 0 {
			continue
		}
		if all {
			counts[key]--
			out = append(out, row)
			continue
		}
		if _, dup := emitted[key]; !dup {
			emitted[key] = struct{}{}
			out = append(out, row)
		}
	}
	return out, nil
}

// except keeps left rows absent from the right: max(m - n, 0) copies under ALL
func except(tick *ticker, left, right []Row, all bool) ([]Row, error) {
	counts, err := countRows(tick, right)
	if err != nil {
		return nil, err
	}
	var out []Row
	emitted := make(map[string]struct{})
	for _, row := range left {
		if err := tick.tick(); err != nil {
			return nil, err
		}
		key := rowKey(row)
		if all {
			if counts[key] > 0 {
				counts[key]--
				continue
			}
			out = append(out, row)
			continue
		}
		if counts[key] > 0 {
			continue
		}
		if _, dup := emitted[key]; !dup {
			emitted[key] = struct{}{}
			out = append(out, row)
		}
	}
	return out, nil
}
