package query

import (
	"strconv"
	"strings"
)

// Expr is a scalar, aggregate or window expression.
// The set of implementations is closed; the evaluator switches over them.
type Expr interface {
	exprNode()
	// String returns the canonical rendering used to bind computed results to later stages
	String() string
}

// Literal is a constant value
type Literal struct {
	Value Value
}

// ColumnRef references a column by "name" or "qualifier.name"
type ColumnRef struct {
	Name string
}

// BinaryOp is an infix operator
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
)

var binaryOpNames = map[BinaryOp]string{
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "AND",
	OpOr:     "OR",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpConcat: "||",
}

func (op BinaryOp) String() string {
	if name, ok := binaryOpNames[op]; ok {
		return name
	}
	return "BinaryOp(" + strconv.Itoa(int(op)) + ")"
}

// ParseBinaryOp maps an operator symbol or keyword to a BinaryOp
func ParseBinaryOp(s string) (BinaryOp, bool) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "!=" {
		return OpNe, true
	}
	for op, name := range binaryOpNames {
		if name == sym {
			return op, true
		}
	}
	return 0, false
}

func (op BinaryOp) isComparison() bool {
	return op >= OpEq && op <= OpGe
}

// BinaryExpr applies an infix operator
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp is a prefix operator
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// UnaryExpr applies NOT or arithmetic negation
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

// IsNullExpr is "x IS [NOT] NULL". It never yields UNKNOWN.
type IsNullExpr struct {
	Operand Expr
	Negate  bool
}

// InExpr is "x [NOT] IN (list)"
type InExpr struct {
	Operand Expr
	List    []Expr
	Negate  bool
}

// BetweenExpr is "x [NOT] BETWEEN lower AND upper", both ends inclusive
type BetweenExpr struct {
	Operand Expr
	Lower   Expr
	Upper   Expr
	Negate  bool
}

// LikeExpr is "x [NOT] LIKE pattern" where % matches any run and _ one character
type LikeExpr struct {
	Operand Expr
	Pattern Expr
	Negate  bool
}

// WhenClause is one WHEN ... THEN ... arm
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CaseExpr is a searched CASE, or a simple CASE when Operand is set
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// FuncCall calls a scalar function from the registry
type FuncCall struct {
	Name string
	Args []Expr
}

// AggregateCall is an aggregate over a group. A nil Arg means COUNT(*).
type AggregateCall struct {
	Name     string
	Arg      Expr
	Distinct bool
	// OrderBy orders the inputs of STRING_AGG
	OrderBy []SortKey
	// Separator is the STRING_AGG delimiter, "," when nil
	Separator Expr
}

// WindowCall is a function evaluated over a window
type WindowCall struct {
	Name   string
	Args   []Expr
	Window WindowSpec
}

// NullOrdering places NULLs in a sort
type NullOrdering int

const (
	// NullsDefault defers to the engine-wide setting
	NullsDefault NullOrdering = iota
	NullsFirst
	NullsLast
)

func (n NullOrdering) String() string {
	switch n {
	case NullsFirst:
		return "NULLS FIRST"
	case NullsLast:
		return "NULLS LAST"
	default:
		return ""
	}
}

// ParseNullOrdering accepts "first" or "last"
func ParseNullOrdering(s string) (NullOrdering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "nulls first":
		return NullsFirst, nil
	case "last", "nulls last":
		return NullsLast, nil
	case "":
		return NullsDefault, nil
	default:
		return NullsDefault, newError(ErrValidation, "null ordering", "expected first or last, got %q", s)
	}
}

// SortKey is one ORDER BY item
type SortKey struct {
	Expr  Expr
	Desc  bool
	Nulls NullOrdering
}

func (k SortKey) String() string {
	s := k.Expr.String()
	if k.Desc {
		s += " DESC"
	}
	if k.Nulls != NullsDefault {
		s += " " + k.Nulls.String()
	}
	return s
}

// FrameMode selects ROWS or RANGE framing
type FrameMode int

const (
	FrameRows FrameMode = iota
	FrameRange
)

// BoundKind is the kind of one frame bound
type BoundKind int

const (
	UnboundedPreceding BoundKind = iota
	Preceding
	CurrentRow
	Following
	UnboundedFollowing
)

// FrameBound is one end of a frame; Offset applies to Preceding and Following
type FrameBound struct {
	Kind   BoundKind
	Offset int64
}

func (b FrameBound) String() string {
	switch b.Kind {
	case UnboundedPreceding:
		return "UNBOUNDED PRECEDING"
	case Preceding:
		return strconv.FormatInt(b.Offset, 10) + " PRECEDING"
	case CurrentRow:
		return "CURRENT ROW"
	case Following:
		return strconv.FormatInt(b.Offset, 10) + " FOLLOWING"
	default:
		return "UNBOUNDED FOLLOWING"
	}
}

// Frame is a window frame clause
type Frame struct {
	Mode  FrameMode
	Start FrameBound
	End   FrameBound
}

func (f Frame) String() string {
	mode := "ROWS"
	if f.Mode == FrameRange {
		mode = "RANGE"
	}
	return mode + " BETWEEN " + f.Start.String() + " AND " + f.End.String()
}

// WindowSpec is the OVER clause. A nil Frame means the default frame.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []SortKey
	Frame       *Frame
}

func (w WindowSpec) String() string {
	var parts []string
	if len(w.PartitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+joinExprs(w.PartitionBy))
	}
	if len(w.OrderBy) > 0 {
		keys := make([]string, len(w.OrderBy))
		for i, k := range w.OrderBy {
			keys[i] = k.String()
		}
		parts = append(parts, "ORDER BY "+strings.Join(keys, ", "))
	}
	if w.Frame != nil {
		parts = append(parts, w.Frame.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (*Literal) exprNode()       {}
func (*ColumnRef) exprNode()     {}
func (*BinaryExpr) exprNode()    {}
func (*UnaryExpr) exprNode()     {}
func (*IsNullExpr) exprNode()    {}
func (*InExpr) exprNode()        {}
func (*BetweenExpr) exprNode()   {}
func (*LikeExpr) exprNode()      {}
func (*CaseExpr) exprNode()      {}
func (*FuncCall) exprNode()      {}
func (*AggregateCall) exprNode() {}
func (*WindowCall) exprNode()    {}

func (e *Literal) String() string {
	switch e.Value.typ {
	case TypeText:
		return "'" + strings.ReplaceAll(e.Value.s, "'", "''") + "'"
	case TypeTimestamp:
		return "TIMESTAMP '" + e.Value.String() + "'"
	default:
		return e.Value.String()
	}
}

func (e *ColumnRef) String() string { return e.Name }

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *UnaryExpr) String() string {
	if e.Op == OpNot {
		return "(NOT " + e.Operand.String() + ")"
	}
	return "(-" + e.Operand.String() + ")"
}

func (e *IsNullExpr) String() string {
	if e.Negate {
		return "(" + e.Operand.String() + " IS NOT NULL)"
	}
	return "(" + e.Operand.String() + " IS NULL)"
}

func (e *InExpr) String() string {
	op := " IN ("
	if e.Negate {
		op = " NOT IN ("
	}
	return "(" + e.Operand.String() + op + joinExprs(e.List) + "))"
}

func (e *BetweenExpr) String() string {
	op := " BETWEEN "
	if e.Negate {
		op = " NOT BETWEEN "
	}
	return "(" + e.Operand.String() + op + e.Lower.String() + " AND " + e.Upper.String() + ")"
}

func (e *LikeExpr) String() string {
	op := " LIKE "
	if e.Negate {
		op = " NOT LIKE "
	}
	return "(" + e.Operand.String() + op + e.Pattern.String() + ")"
}

func (e *CaseExpr) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	if e.Operand != nil {
		sb.WriteString(" " + e.Operand.String())
	}
	for _, w := range e.Whens {
		sb.WriteString(" WHEN " + w.Condition.String() + " THEN " + w.Result.String())
	}
	if e.Else != nil {
		sb.WriteString(" ELSE " + e.Else.String())
	}
	sb.WriteString(" END")
	return sb.String()
}

func (e *FuncCall) String() string {
	return strings.ToUpper(e.Name) + "(" + joinExprs(e.Args) + ")"
}

func (e *AggregateCall) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(e.Name))
	sb.WriteByte('(')
	if e.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if e.Arg == nil {
		sb.WriteByte('*')
	} else {
		sb.WriteString(e.Arg.String())
	}
	if e.Separator != nil {
		sb.WriteString(", " + e.Separator.String())
	}
	if len(e.OrderBy) > 0 {
		keys := make([]string, len(e.OrderBy))
		for i, k := range e.OrderBy {
			keys[i] = k.String()
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	sb.WriteByte(')')
	return sb.String()
}

func (e *WindowCall) String() string {
	return strings.ToUpper(e.Name) + "(" + joinExprs(e.Args) + ") OVER " + e.Window.String()
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// walkExpr visits e and its children depth-first. Returning false from fn skips the children.
// The arguments of aggregate and window calls are visited; their window specs are too.
// Plans nested in subqueries are not.
func walkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *UnaryExpr:
		walkExpr(n.Operand, fn)
	case *IsNullExpr:
		walkExpr(n.Operand, fn)
	case *InExpr:
		walkExpr(n.Operand, fn)
		for _, item := range n.List {
			walkExpr(item, fn)
		}
	case *BetweenExpr:
		walkExpr(n.Operand, fn)
		walkExpr(n.Lower, fn)
		walkExpr(n.Upper, fn)
	case *LikeExpr:
		walkExpr(n.Operand, fn)
		walkExpr(n.Pattern, fn)
	case *CaseExpr:
		walkExpr(n.Operand, fn)
		for _, w := range n.Whens {
			walkExpr(w.Condition, fn)
			walkExpr(w.Result, fn)
		}
		walkExpr(n.Else, fn)
	case *FuncCall:
		for _, arg := range n.Args {
			walkExpr(arg, fn)
		}
	case *InSubqueryExpr:
		walkExpr(n.Operand, fn)
	case *AggregateCall:
		walkExpr(n.Arg, fn)
		walkExpr(n.Separator, fn)
		for _, k := range n.OrderBy {
			walkExpr(k.Expr, fn)
		}
	case *WindowCall:
		for _, arg := range n.Args {
			walkExpr(arg, fn)
		}
		for _, p := range n.Window.PartitionBy {
			walkExpr(p, fn)
		}
		for _, k := range n.Window.OrderBy {
			walkExpr(k.Expr, fn)
		}
	}
}

// collectAggregates returns the distinct aggregate calls in exprs, in first-seen order.
// Aggregates nested inside window calls (for example SUM(SUM(x)) OVER ()) are included.
func collectAggregates(exprs ...Expr) []*AggregateCall {
	var out []*AggregateCall
	seen := make(map[string]bool)
	for _, e := range exprs {
		walkExpr(e, func(n Expr) bool {
			agg, ok := n.(*AggregateCall)
			if !ok {
				return true
			}
			if key := agg.String(); !seen[key] {
				seen[key] = true
				out = append(out, agg)
			}
			return false
		})
	}
	return out
}

// collectWindows returns the distinct window calls in exprs, in first-seen order
func collectWindows(exprs ...Expr) []*WindowCall {
	var out []*WindowCall
	seen := make(map[string]bool)
	for _, e := range exprs {
		walkExpr(e, func(n Expr) bool {
			win, ok := n.(*WindowCall)
			if !ok {
				return true
			}
			if key := win.String(); !seen[key] {
				seen[key] = true
				out = append(out, win)
			}
			return false
		})
	}
	return out
}

// containsAggregate reports whether e has an aggregate call outside any window call
func containsAggregate(e Expr) bool {
	found := false
	walkExpr(e, func(n Expr) bool {
		switch n.(type) {
		case *AggregateCall:
			found = true
			return false
		case *WindowCall:
			return false
		}
		return !found
	})
	return found
}

// containsWindow reports whether e has a window call
func containsWindow(e Expr) bool {
	found := false
	walkExpr(e, func(n Expr) bool {
		if _, ok := n.(*WindowCall); ok {
			found = true
		}
		return !found
	})
	return found
}

// Col returns a column reference
func Col(name string) *ColumnRef { return &ColumnRef{Name: name} }

// Lit returns a literal
func Lit(v Value) *Literal { return &Literal{Value: v} }

// Binary returns a binary expression
func Binary(op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

// Eq returns left = right
func Eq(left, right Expr) *BinaryExpr { return Binary(OpEq, left, right) }

// And folds the expressions into a left-deep conjunction. It returns nil for no expressions.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = Binary(OpAnd, out, e)
	}
	return out
}

// Call returns a scalar function call
func Call(name string, args ...Expr) *FuncCall { return &FuncCall{Name: name, Args: args} }

// Agg returns an aggregate call; a nil arg is COUNT(*)
func Agg(name string, arg Expr) *AggregateCall { return &AggregateCall{Name: name, Arg: arg} }
