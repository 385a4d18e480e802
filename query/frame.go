package query

import (
	"sort"

	"github.com/shopspring/decimal"
)

// effectiveFrame returns the frame of a window, applying the SQL default:
// with ORDER BY, RANGE BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW (peers included);
// without ORDER BY, the whole partition.
func effectiveFrame(spec WindowSpec) Frame {
	if spec.Frame != nil {
		return *spec.Frame
	}
	if len(spec.OrderBy) > 0 {
		return Frame{Mode: FrameRange, Start: FrameBound{Kind: UnboundedPreceding}, End: FrameBound{Kind: CurrentRow}}
	}
	return Frame{Mode: FrameRows, Start: FrameBound{Kind: UnboundedPreceding}, End: FrameBound{Kind: UnboundedFollowing}}
}

// validateFrame rejects frames that cannot be evaluated
func validateFrame(f Frame, orderKeys int) error {
	if f.Start.Kind == UnboundedFollowing {
		return newError(ErrValidation, "window frame", "frame cannot start at UNBOUNDED FOLLOWING")
	}
	if f.End.Kind == UnboundedPreceding {
		return newError(ErrValidation, "window frame", "frame cannot end at UNBOUNDED PRECEDING")
	}
	if f.Start.Kind > f.End.Kind {
		return newError(ErrValidation, "window frame", "frame start %s is after frame end %s", f.Start, f.End)
	}
	for _, b := range []FrameBound{f.Start, f.End} {
		if (b.Kind == Preceding || b.Kind == Following) && b.Offset < 0 {
			return newError(ErrValidation, "window frame", "frame offset must not be negative")
		}
		if f.Mode == FrameRange && (b.Kind == Preceding || b.Kind == Following) && orderKeys != 1 {
			return newError(ErrValidation, "window frame", "RANGE with an offset requires exactly one ORDER BY key")
		}
	}
	return nil
}

// partitionFrames computes the frame [lo, hi) of each position in a sorted partition.
// peerStart/peerEnd delimit each position's peer group; keys holds the single ORDER BY
// key per position, used only by RANGE offsets.
type partitionFrames struct {
	frame     Frame
	n         int
	peerStart []int
	peerEnd   []int
	keys      []Value
	desc      bool

	// [nnLo, nnHi) holds the non-NULL keys; NULLs sort to one end
	nnLo, nnHi int
	spanned    bool
}

// nonNullSpan returns the positions of the non-NULL keys, computed on first use
func (p *partitionFrames) nonNullSpan() (int, int) {
	if !p.spanned {
		lo, hi := 0, p.n
		for lo < hi && p.keys[lo].IsNull() {
			lo++
		}
		for hi > lo && p.keys[hi-1].IsNull() {
			hi--
		}
		p.nnLo, p.nnHi, p.spanned = lo, hi, true
	}
	return p.nnLo, p.nnHi
}

func (p *partitionFrames) bounds(pos int) (int, int, error) {
	if p.frame.Mode == FrameRows {
		lo := rowsBound(p.frame.Start, pos, p.n, false)
		hi := rowsBound(p.frame.End, pos, p.n, true)
		return clampFrame(lo, hi, p.n)
	}

	lo, err := p.rangeBound(p.frame.Start, pos, false)
	if err != nil {
		return 0, 0, err
	}
	hi, err := p.rangeBound(p.frame.End, pos, true)
	if err != nil {
		return 0, 0, err
	}
	return clampFrame(lo, hi, p.n)
}

// rowsBound converts a ROWS bound to an index; end bounds are exclusive
func rowsBound(b FrameBound, pos, n int, end bool) int {
	extra := 0
	if end {
		extra = 1
	}
	switch b.Kind {
	case UnboundedPreceding:
		return 0
	case Preceding:
		return pos - int(min64(b.Offset, int64(n))) + extra
	case CurrentRow:
		return pos + extra
	case Following:
		return pos + int(min64(b.Offset, int64(n))) + extra
	default:
		return n
	}
}

// rangeBound converts a RANGE bound to an index; end bounds are exclusive
func (p *partitionFrames) rangeBound(b FrameBound, pos int, end bool) (int, error) {
	switch b.Kind {
	case UnboundedPreceding:
		return 0, nil
	case UnboundedFollowing:
		return p.n, nil
	case CurrentRow:
		if end {
			return p.peerEnd[pos], nil
		}
		return p.peerStart[pos], nil
	}

	cur := p.keys[pos]
	if cur.IsNull() {
		// NULL keys are only peers of each other
		if end {
			return p.peerEnd[pos], nil
		}
		return p.peerStart[pos], nil
	}
	base, ok := cur.AsDecimal()
	if !ok {
		return 0, newError(ErrType, "window frame", "RANGE offset requires a numeric ORDER BY key, got %s", cur.typ)
	}

	// PRECEDING moves against the sort direction, FOLLOWING with it
	offset := decimal.NewFromInt(b.Offset)
	if (b.Kind == Preceding) != p.desc {
		offset = offset.Neg()
	}
	bound := NewDecimal(base.Add(offset))

	// Keys are sorted, so the frame edge is found by binary search over the non-NULL run
	lo, hi := p.nonNullSpan()
	past := func(i int) int {
		c := compareNumeric(p.keys[lo+i], bound)
		if p.desc {
			c = -c
		}
		return c
	}
	if end {
		return lo + sort.Search(hi-lo, func(i int) bool { return past(i) > 0 }), nil
	}
	return lo + sort.Search(hi-lo, func(i int) bool { return past(i) >= 0 }), nil
}

func clampFrame(lo, hi, n int) (int, int, error) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
