package query

import (
	"math"
	"strings"
)

// evaluator evaluates expressions against rows of one schema.
//
// Aggregate and window results computed by earlier stages are appended to rows as extra
// columns; bind maps the canonical string of the computed expression to that column so
// later stages read the stored value instead of evaluating the call again.
// An evaluator caches column positions and is not safe for concurrent use.
type evaluator struct {
	schema Schema
	funcs  *FunctionRegistry
	cols   map[*ColumnRef]int
	fns    map[*FuncCall]Function
	bound  map[string]int
	memo   map[Expr]int
	// ec runs subqueries; nil where subqueries are not allowed
	ec *ExecutionContext
}

func newEvaluator(schema Schema) *evaluator {
	return &evaluator{
		schema: schema,
		funcs:  GetGlobalRegistry(),
		cols:   make(map[*ColumnRef]int),
		fns:    make(map[*FuncCall]Function),
		bound:  make(map[string]int),
		memo:   make(map[Expr]int),
	}
}

// evaluatorFor returns an evaluator whose subqueries run in ec's scope
func (ec *ExecutionContext) evaluatorFor(schema Schema) *evaluator {
	ev := newEvaluator(schema)
	ev.ec = ec
	return ev
}

// bind makes every expression whose canonical string is key read column idx
func (ev *evaluator) bind(key string, idx int) {
	ev.bound[key] = idx
	ev.memo = make(map[Expr]int)
}

func (ev *evaluator) boundIndex(e Expr) (int, bool) {
	if len(ev.bound) == 0 || e == nil {
		return -1, false
	}
	if idx, ok := ev.memo[e]; ok {
		return idx, idx >= 0
	}
	idx, ok := ev.bound[e.String()]
	if !ok {
		idx = -1
	}
	ev.memo[e] = idx
	return idx, ok
}

// column resolves a column reference, caching the position
func (ev *evaluator) column(ref *ColumnRef) (int, error) {
	if idx, ok := ev.cols[ref]; ok {
		return idx, nil
	}
	idx, err := ev.schema.Index(ref.Name)
	if err != nil {
		return -1, err
	}
	ev.cols[ref] = idx
	return idx, nil
}

func (ev *evaluator) function(call *FuncCall) (Function, error) {
	if fn, ok := ev.fns[call]; ok {
		return fn, nil
	}
	fn, err := ev.funcs.lookup(call.Name)
	if err != nil {
		return nil, err
	}
	if len(call.Args) < fn.MinArity() || (fn.MaxArity() >= 0 && len(call.Args) > fn.MaxArity()) {
		return nil, newError(ErrValidation, "function", "%s called with %d arguments", fn.Name(), len(call.Args))
	}
	ev.fns[call] = fn
	return fn, nil
}

// prepare resolves every column and function referenced by exprs so that schema errors
// surface before any row is read
func (ev *evaluator) prepare(exprs ...Expr) error {
	var firstErr error
	for _, e := range exprs {
		walkExpr(e, func(n Expr) bool {
			if firstErr != nil {
				return false
			}
			if _, ok := ev.boundIndex(n); ok {
				return false
			}
			switch x := n.(type) {
			case *ColumnRef:
				_, firstErr = ev.column(x)
			case *FuncCall:
				_, firstErr = ev.function(x)
			case *AggregateCall:
				firstErr = newError(ErrValidation, "prepare", "aggregate %s is not allowed here", x)
			case *WindowCall:
				firstErr = newError(ErrValidation, "prepare", "window function %s is not allowed here", x)
			}
			return firstErr == nil
		})
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

// eval computes the value of e for row
func (ev *evaluator) eval(e Expr, row Row) (Value, error) {
	if idx, ok := ev.boundIndex(e); ok {
		return row[idx], nil
	}

	switch n := e.(type) {
	case *Literal:
		return n.Value, nil
	case *ColumnRef:
		idx, err := ev.column(n)
		if err != nil {
			return Null(), err
		}
		return row[idx], nil
	case *BinaryExpr:
		switch {
		case n.Op == OpAnd || n.Op == OpOr:
			t, err := ev.logical(n, row)
			return t.Value(), err
		case n.Op.isComparison():
			t, err := ev.comparison(n, row)
			return t.Value(), err
		}
		left, err := ev.eval(n.Left, row)
		if err != nil {
			return Null(), err
		}
		right, err := ev.eval(n.Right, row)
		if err != nil {
			return Null(), err
		}
		return arithmetic(n.Op, left, right)
	case *UnaryExpr:
		if n.Op == OpNot {
			t, err := ev.predicate(n.Operand, row)
			return t.Not().Value(), err
		}
		v, err := ev.eval(n.Operand, row)
		if err != nil {
			return Null(), err
		}
		return negate(v)
	case *IsNullExpr:
		v, err := ev.eval(n.Operand, row)
		if err != nil {
			return Null(), err
		}
		return NewBool(v.IsNull() != n.Negate), nil
	case *InExpr:
		t, err := ev.in(n, row)
		return t.Value(), err
	case *BetweenExpr:
		t, err := ev.between(n, row)
		return t.Value(), err
	case *LikeExpr:
		t, err := ev.like(n, row)
		return t.Value(), err
	case *CaseExpr:
		return ev.caseExpr(n, row)
	case *ExistsExpr:
		t, err := ev.exists(n)
		return t.Value(), err
	case *InSubqueryExpr:
		t, err := ev.inSubquery(n, row)
		return t.Value(), err
	case *ScalarSubquery:
		return ev.scalarSubquery(n)
	case *FuncCall:
		fn, err := ev.function(n)
		if err != nil {
			return Null(), err
		}
		args := make([]Value, len(n.Args))
		for i, arg := range n.Args {
			if args[i], err = ev.eval(arg, row); err != nil {
				return Null(), err
			}
		}
		return fn.Evaluate(args)
	case *AggregateCall:
		return Null(), newError(ErrValidation, "evaluate", "aggregate %s is not allowed here", n)
	case *WindowCall:
		return Null(), newError(ErrValidation, "evaluate", "window function %s is not allowed here", n)
	case nil:
		return Null(), newError(ErrValidation, "evaluate", "missing expression")
	default:
		return Null(), newError(ErrValidation, "evaluate", "unsupported expression %T", e)
	}
}

// predicate evaluates e as a three-valued condition
func (ev *evaluator) predicate(e Expr, row Row) (Tri, error) {
	if _, ok := ev.boundIndex(e); !ok {
		switch n := e.(type) {
		case *BinaryExpr:
			if n.Op == OpAnd || n.Op == OpOr {
				return ev.logical(n, row)
			}
			if n.Op.isComparison() {
				return ev.comparison(n, row)
			}
		case *UnaryExpr:
			if n.Op == OpNot {
				t, err := ev.predicate(n.Operand, row)
				return t.Not(), err
			}
		case *InExpr:
			return ev.in(n, row)
		case *BetweenExpr:
			return ev.between(n, row)
		case *LikeExpr:
			return ev.like(n, row)
		case *ExistsExpr:
			return ev.exists(n)
		case *InSubqueryExpr:
			return ev.inSubquery(n, row)
		}
	}
	v, err := ev.eval(e, row)
	if err != nil {
		return Unknown, err
	}
	return truth(v)
}

// logical evaluates AND / OR. FALSE on the left of AND (TRUE on the left of OR) decides
// the result without evaluating the right operand.
func (ev *evaluator) logical(n *BinaryExpr, row Row) (Tri, error) {
	left, err := ev.predicate(n.Left, row)
	if err != nil {
		return Unknown, err
	}
	if n.Op == OpAnd && left == False {
		return False, nil
	}
	if n.Op == OpOr && left == True {
		return True, nil
	}
	right, err := ev.predicate(n.Right, row)
	if err != nil {
		return Unknown, err
	}
	if n.Op == OpAnd {
		return left.And(right), nil
	}
	return left.Or(right), nil
}

func (ev *evaluator) comparison(n *BinaryExpr, row Row) (Tri, error) {
	left, err := ev.eval(n.Left, row)
	if err != nil {
		return Unknown, err
	}
	right, err := ev.eval(n.Right, row)
	if err != nil {
		return Unknown, err
	}
	return compareTri(n.Op, left, right)
}

// compareTri applies a comparison operator; a NULL operand gives UNKNOWN
func compareTri(op BinaryOp, left, right Value) (Tri, error) {
	if left.IsNull() || right.IsNull() {
		return Unknown, nil
	}
	c, err := compareValues(left, right)
	if err != nil {
		return Unknown, err
	}
	switch op {
	case OpEq:
		return triOf(c == 0), nil
	case OpNe:
		return triOf(c != 0), nil
	case OpLt:
		return triOf(c < 0), nil
	case OpLe:
		return triOf(c <= 0), nil
	case OpGt:
		return triOf(c > 0), nil
	case OpGe:
		return triOf(c >= 0), nil
	default:
		return Unknown, newError(ErrValidation, "compare", "%s is not a comparison", op)
	}
}

// in is TRUE on a match, UNKNOWN when nothing matched but a NULL was involved, else FALSE
func (ev *evaluator) in(n *InExpr, row Row) (Tri, error) {
	v, err := ev.eval(n.Operand, row)
	if err != nil {
		return Unknown, err
	}
	if v.IsNull() {
		return Unknown, nil
	}

	result := False
	for _, item := range n.List {
		iv, err := ev.eval(item, row)
		if err != nil {
			return Unknown, err
		}
		if iv.IsNull() {
			result = Unknown
			continue
		}
		c, err := compareValues(v, iv)
		if err != nil {
			return Unknown, err
		}
		if c == 0 {
			result = True
			break
		}
	}
	if n.Negate {
		return result.Not(), nil
	}
	return result, nil
}

func (ev *evaluator) between(n *BetweenExpr, row Row) (Tri, error) {
	v, err := ev.eval(n.Operand, row)
	if err != nil {
		return Unknown, err
	}
	lower, err := ev.eval(n.Lower, row)
	if err != nil {
		return Unknown, err
	}
	upper, err := ev.eval(n.Upper, row)
	if err != nil {
		return Unknown, err
	}
	ge, err := compareTri(OpGe, v, lower)
	if err != nil {
		return Unknown, err
	}
	le, err := compareTri(OpLe, v, upper)
	if err != nil {
		return Unknown, err
	}
	result := ge.And(le)
	if n.Negate {
		return result.Not(), nil
	}
	return result, nil
}

func (ev *evaluator) like(n *LikeExpr, row Row) (Tri, error) {
	v, err := ev.eval(n.Operand, row)
	if err != nil {
		return Unknown, err
	}
	pattern, err := ev.eval(n.Pattern, row)
	if err != nil {
		return Unknown, err
	}
	if v.IsNull() || pattern.IsNull() {
		return Unknown, nil
	}
	if v.typ != TypeText || pattern.typ != TypeText {
		return Unknown, newError(ErrType, "like", "LIKE requires TEXT operands, got %s and %s", v.typ, pattern.typ)
	}
	result := triOf(matchLike(v.s, pattern.s))
	if n.Negate {
		return result.Not(), nil
	}
	return result, nil
}

// matchLike matches s against a LIKE pattern with backtracking on the last %
func matchLike(s, pattern string) bool {
	str := []rune(s)
	pat := []rune(pattern)
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '_' || (pat[pi] != '%' && pat[pi] == str[si])):
			si++
			pi++
		case pi < len(pat) && pat[pi] == '%':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}
	return pi == len(pat)
}

func (ev *evaluator) caseExpr(n *CaseExpr, row Row) (Value, error) {
	var operand Value
	if n.Operand != nil {
		v, err := ev.eval(n.Operand, row)
		if err != nil {
			return Null(), err
		}
		operand = v
	}

	for _, w := range n.Whens {
		var t Tri
		if n.Operand != nil {
			cv, err := ev.eval(w.Condition, row)
			if err != nil {
				return Null(), err
			}
			if t, err = compareTri(OpEq, operand, cv); err != nil {
				return Null(), err
			}
		} else {
			var err error
			if t, err = ev.predicate(w.Condition, row); err != nil {
				return Null(), err
			}
		}
		if t == True {
			return ev.eval(w.Result, row)
		}
	}
	if n.Else != nil {
		return ev.eval(n.Else, row)
	}
	return Null(), nil
}

// arithmetic applies + - * / % and ||.
// Integer results are checked for overflow; a zero divisor raises ErrDivisionByZero.
func arithmetic(op BinaryOp, left, right Value) (Value, error) {
	if op == OpConcat {
		if left.IsNull() || right.IsNull() {
			return Null(), nil
		}
		return NewText(left.String() + right.String()), nil
	}
	if left.IsNull() || right.IsNull() {
		return Null(), nil
	}
	if !left.typ.IsNumeric() || !right.typ.IsNumeric() {
		return Null(), newError(ErrType, "arithmetic", "operator %s not supported for %s and %s", op, left.typ, right.typ)
	}
	if (op == OpDiv || op == OpMod) && isZero(right) {
		return Null(), newError(ErrDivisionByZero, "arithmetic", "%s %s %s", left, op, right)
	}

	switch commonNumericType(left.typ, right.typ) {
	case TypeInt:
		return intArithmetic(op, left.i, right.i)
	case TypeDecimal:
		a, _ := left.AsDecimal()
		b, _ := right.AsDecimal()
		switch op {
		case OpAdd:
			return NewDecimal(a.Add(b)), nil
		case OpSub:
			return NewDecimal(a.Sub(b)), nil
		case OpMul:
			return NewDecimal(a.Mul(b)), nil
		case OpDiv:
			return NewDecimal(a.Div(b)), nil
		case OpMod:
			return NewDecimal(a.Mod(b)), nil
		}
	default:
		a, _ := left.AsFloat()
		b, _ := right.AsFloat()
		switch op {
		case OpAdd:
			return NewFloat(a + b), nil
		case OpSub:
			return NewFloat(a - b), nil
		case OpMul:
			return NewFloat(a * b), nil
		case OpDiv:
			return NewFloat(a / b), nil
		case OpMod:
			return NewFloat(math.Mod(a, b)), nil
		}
	}
	return Null(), newError(ErrValidation, "arithmetic", "%s is not an arithmetic operator", op)
}

func intArithmetic(op BinaryOp, a, b int64) (Value, error) {
	overflow := func() (Value, error) {
		return Null(), newError(ErrType, "arithmetic", "integer overflow in %d %s %d", a, op, b)
	}
	switch op {
	case OpAdd:
		s := a + b
		if (b > 0 && s < a) || (b < 0 && s > a) {
			return overflow()
		}
		return NewInt(s), nil
	case OpSub:
		d := a - b
		if (b > 0 && d > a) || (b < 0 && d < a) {
			return overflow()
		}
		return NewInt(d), nil
	case OpMul:
		if a == 0 || b == 0 {
			return NewInt(0), nil
		}
		p := a * b
		if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return overflow()
		}
		return NewInt(p), nil
	case OpDiv:
		if a == math.MinInt64 && b == -1 {
			return overflow()
		}
		return NewInt(a / b), nil
	case OpMod:
		if b == -1 {
			return NewInt(0), nil
		}
		return NewInt(a % b), nil
	}
	return Null(), newError(ErrValidation, "arithmetic", "%s is not an arithmetic operator", op)
}

func isZero(v Value) bool {
	switch v.typ {
	case TypeInt:
		return v.i == 0
	case TypeFloat:
		return v.f == 0
	case TypeDecimal:
		return v.d.IsZero()
	default:
		return false
	}
}

func negate(v Value) (Value, error) {
	switch v.typ {
	case TypeNull:
		return v, nil
	case TypeInt:
		if v.i == math.MinInt64 {
			return Null(), newError(ErrType, "negate", "integer overflow negating %d", v.i)
		}
		return NewInt(-v.i), nil
	case TypeFloat:
		return NewFloat(-v.f), nil
	case TypeDecimal:
		return NewDecimal(v.d.Neg()), nil
	default:
		return Null(), newError(ErrType, "negate", "cannot negate %s", v.typ)
	}
}

// typeOf infers the static result type of e; TypeNull means unknown
func (ev *evaluator) typeOf(e Expr) ValueType {
	if idx, ok := ev.boundIndex(e); ok {
		return ev.schema.Columns[idx].Type
	}
	switch n := e.(type) {
	case *Literal:
		return n.Value.typ
	case *ColumnRef:
		idx, err := ev.column(n)
		if err != nil {
			return TypeNull
		}
		return ev.schema.Columns[idx].Type
	case *BinaryExpr:
		switch {
		case n.Op == OpAnd || n.Op == OpOr || n.Op.isComparison():
			return TypeBool
		case n.Op == OpConcat:
			return TypeText
		}
		l, r := ev.typeOf(n.Left), ev.typeOf(n.Right)
		if l.IsNumeric() && r.IsNumeric() {
			return commonNumericType(l, r)
		}
		return TypeNull
	case *UnaryExpr:
		if n.Op == OpNot {
			return TypeBool
		}
		return ev.typeOf(n.Operand)
	case *IsNullExpr, *InExpr, *BetweenExpr, *LikeExpr, *ExistsExpr, *InSubqueryExpr:
		return TypeBool
	case *ScalarSubquery:
		return ev.scalarSubqueryType(n)
	case *CaseExpr:
		t := TypeNull
		for _, w := range n.Whens {
			t = unifyTypes(t, ev.typeOf(w.Result))
		}
		if n.Else != nil {
			t = unifyTypes(t, ev.typeOf(n.Else))
		}
		return t
	case *FuncCall:
		fn, err := ev.function(n)
		if err != nil {
			return TypeNull
		}
		if strings.EqualFold(fn.Name(), "CAST") && len(n.Args) == 2 {
			if lit, ok := n.Args[1].(*Literal); ok && lit.Value.typ == TypeText {
				if t, err := ParseValueType(lit.Value.s); err == nil {
					return t
				}
			}
		}
		args := make([]ValueType, len(n.Args))
		for i, arg := range n.Args {
			args[i] = ev.typeOf(arg)
		}
		return fn.ReturnType(args)
	default:
		return TypeNull
	}
}

// exprName returns the output column name of an unaliased expression
func exprName(e Expr) string {
	if ref, ok := e.(*ColumnRef); ok {
		_, name := splitQualified(ref.Name)
		return name
	}
	return e.String()
}
