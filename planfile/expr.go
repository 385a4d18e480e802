package planfile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegasq/planexec/query"
)

// number is a JSON number decoded with UseNumber
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func decodeExpr(d *exprDoc, path string) (query.Expr, error) {
	if d == nil {
		return nil, invalid(path, "missing expression")
	}
	set := 0
	for _, ok := range []bool{
		d.Col != "", d.Lit != nil || d.Type != "", d.Op != "",
		d.And != nil, d.Or != nil, d.Not != nil, d.Neg != nil, d.IsNull != nil, d.IsNotNull != nil,
		d.In != nil, d.Between != nil, d.Like != nil, d.Case != nil,
		d.Call != nil, d.Agg != nil, d.Window != nil,
		d.Exists != nil, d.InQuery != nil, d.Subquery != nil,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, invalid(path, "an expression needs exactly one kind key (found %d); write NULL as {lit: null, type: <type>}", set)
	}
	if d.Op == "" && (d.Left != nil || d.Right != nil) {
		return nil, invalid(path, "left and right require op")
	}

	switch {
	case d.Col != "":
		return query.Col(d.Col), nil
	case d.Lit != nil || d.Type != "":
		v, err := literal(d.Lit, d.Type)
		if err != nil {
			return nil, at(path, err)
		}
		return query.Lit(v), nil
	case d.Op != "":
		op, ok := query.ParseBinaryOp(d.Op)
		if !ok {
			return nil, invalid(path, "unknown operator %q", d.Op)
		}
		left, err := decodeExpr(d.Left, path+".left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(d.Right, path+".right")
		if err != nil {
			return nil, err
		}
		return query.Binary(op, left, right), nil
	case d.And != nil:
		return decodeChain(query.OpAnd, d.And, path+".and")
	case d.Or != nil:
		return decodeChain(query.OpOr, d.Or, path+".or")
	case d.Not != nil:
		operand, err := decodeExpr(d.Not, path+".not")
		if err != nil {
			return nil, err
		}
		return &query.UnaryExpr{Op: query.OpNot, Operand: operand}, nil
	case d.Neg != nil:
		operand, err := decodeExpr(d.Neg, path+".neg")
		if err != nil {
			return nil, err
		}
		return &query.UnaryExpr{Op: query.OpNeg, Operand: operand}, nil
	case d.IsNull != nil:
		operand, err := decodeExpr(d.IsNull, path+".is_null")
		if err != nil {
			return nil, err
		}
		return &query.IsNullExpr{Operand: operand}, nil
	case d.IsNotNull != nil:
		operand, err := decodeExpr(d.IsNotNull, path+".is_not_null")
		if err != nil {
			return nil, err
		}
		return &query.IsNullExpr{Operand: operand, Negate: true}, nil
	case d.In != nil:
		return decodeIn(d.In, path+".in")
	case d.Between != nil:
		return decodeBetween(d.Between, path+".between")
	case d.Like != nil:
		operand, err := decodeExpr(d.Like.Expr, path+".like.expr")
		if err != nil {
			return nil, err
		}
		pattern, err := decodeExpr(d.Like.Pattern, path+".like.pattern")
		if err != nil {
			return nil, err
		}
		return &query.LikeExpr{Operand: operand, Pattern: pattern, Negate: d.Like.Negate}, nil
	case d.Case != nil:
		return decodeCase(d.Case, path+".case")
	case d.Call != nil:
		if d.Call.Name == "" {
			return nil, invalid(path+".call", "name is required")
		}
		args, err := decodeExprs(d.Call.Args, path+".call.args")
		if err != nil {
			return nil, err
		}
		return query.Call(d.Call.Name, args...), nil
	case d.Agg != nil:
		return decodeAgg(d.Agg, path+".agg")
	case d.Exists != nil:
		q, err := decodeNode(d.Exists.Query, path+".exists.query")
		if err != nil {
			return nil, err
		}
		return &query.ExistsExpr{Query: q, Negate: d.Exists.Negate}, nil
	case d.InQuery != nil:
		operand, err := decodeExpr(d.InQuery.Expr, path+".in_query.expr")
		if err != nil {
			return nil, err
		}
		q, err := decodeNode(d.InQuery.Query, path+".in_query.query")
		if err != nil {
			return nil, err
		}
		return &query.InSubqueryExpr{Operand: operand, Query: q, Negate: d.InQuery.Negate}, nil
	case d.Subquery != nil:
		q, err := decodeNode(d.Subquery, path+".subquery")
		if err != nil {
			return nil, err
		}
		return &query.ScalarSubquery{Query: q}, nil
	default:
		return decodeWindow(d.Window, path+".window")
	}
}

func optionalExpr(d *exprDoc, path string) (query.Expr, error) {
	if d == nil {
		return nil, nil
	}
	return decodeExpr(d, path)
}

func decodeExprs(docs []*exprDoc, path string) ([]query.Expr, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	exprs := make([]query.Expr, len(docs))
	for i, d := range docs {
		e, err := decodeExpr(d, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

// decodeChain folds operands into a left-deep AND or OR
func decodeChain(op query.BinaryOp, docs []*exprDoc, path string) (query.Expr, error) {
	if len(docs) == 0 {
		return nil, invalid(path, "at least one operand is required")
	}
	exprs, err := decodeExprs(docs, path)
	if err != nil {
		return nil, err
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = query.Binary(op, out, e)
	}
	return out, nil
}

func decodeIn(d *inDoc, path string) (query.Expr, error) {
	operand, err := decodeExpr(d.Expr, path+".expr")
	if err != nil {
		return nil, err
	}
	if len(d.List) == 0 {
		return nil, invalid(path, "list must not be empty")
	}
	list, err := decodeExprs(d.List, path+".list")
	if err != nil {
		return nil, err
	}
	return &query.InExpr{Operand: operand, List: list, Negate: d.Negate}, nil
}

func decodeBetween(d *betweenDoc, path string) (query.Expr, error) {
	operand, err := decodeExpr(d.Expr, path+".expr")
	if err != nil {
		return nil, err
	}
	low, err := decodeExpr(d.Low, path+".low")
	if err != nil {
		return nil, err
	}
	high, err := decodeExpr(d.High, path+".high")
	if err != nil {
		return nil, err
	}
	return &query.BetweenExpr{Operand: operand, Lower: low, Upper: high, Negate: d.Negate}, nil
}

func decodeCase(d *caseDoc, path string) (query.Expr, error) {
	if len(d.Whens) == 0 {
		return nil, invalid(path, "whens must not be empty")
	}
	c := &query.CaseExpr{Whens: make([]query.WhenClause, len(d.Whens))}
	var err error
	if c.Operand, err = optionalExpr(d.Operand, path+".operand"); err != nil {
		return nil, err
	}
	for i, w := range d.Whens {
		wPath := fmt.Sprintf("%s.whens[%d]", path, i)
		cond, err := decodeExpr(w.When, wPath+".when")
		if err != nil {
			return nil, err
		}
		result, err := decodeExpr(w.Then, wPath+".then")
		if err != nil {
			return nil, err
		}
		c.Whens[i] = query.WhenClause{Condition: cond, Result: result}
	}
	if c.Else, err = optionalExpr(d.Else, path+".else"); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeAgg(d *aggDoc, path string) (query.Expr, error) {
	if d.Name == "" {
		return nil, invalid(path, "name is required")
	}
	call := &query.AggregateCall{Name: d.Name, Distinct: d.Distinct}
	var err error
	if call.Arg, err = optionalExpr(d.Arg, path+".arg"); err != nil {
		return nil, err
	}
	if call.Separator, err = optionalExpr(d.Separator, path+".separator"); err != nil {
		return nil, err
	}
	if call.OrderBy, err = decodeSortKeys(d.OrderBy, path+".order_by"); err != nil {
		return nil, err
	}
	return call, nil
}

func decodeWindow(d *windowDoc, path string) (query.Expr, error) {
	if d.Name == "" {
		return nil, invalid(path, "name is required")
	}
	args, err := decodeExprs(d.Args, path+".args")
	if err != nil {
		return nil, err
	}
	call := &query.WindowCall{Name: d.Name, Args: args}
	if call.Window.PartitionBy, err = decodeExprs(d.PartitionBy, path+".partition_by"); err != nil {
		return nil, err
	}
	if call.Window.OrderBy, err = decodeSortKeys(d.OrderBy, path+".order_by"); err != nil {
		return nil, err
	}
	if d.Frame != nil {
		frame, err := decodeFrame(d.Frame, path+".frame")
		if err != nil {
			return nil, err
		}
		call.Window.Frame = frame
	}
	return call, nil
}

func decodeFrame(d *frameDoc, path string) (*query.Frame, error) {
	frame := &query.Frame{}
	switch strings.ToLower(strings.TrimSpace(d.Mode)) {
	case "rows", "":
		frame.Mode = query.FrameRows
	case "range":
		frame.Mode = query.FrameRange
	default:
		return nil, invalid(path+".mode", "expected rows or range, got %q", d.Mode)
	}
	var err error
	if frame.Start, err = decodeBound(d.Start, path+".start"); err != nil {
		return nil, err
	}
	if frame.End, err = decodeBound(d.End, path+".end"); err != nil {
		return nil, err
	}
	return frame, nil
}

func decodeBound(d boundDoc, path string) (query.FrameBound, error) {
	kind := strings.Join(strings.FieldsFunc(strings.ToLower(d.Kind), func(r rune) bool {
		return r == ' ' || r == '_'
	}), " ")
	b := query.FrameBound{Offset: d.Offset}
	switch kind {
	case "unbounded preceding":
		b.Kind = query.UnboundedPreceding
	case "preceding":
		b.Kind = query.Preceding
	case "current row":
		b.Kind = query.CurrentRow
	case "following":
		b.Kind = query.Following
	case "unbounded following":
		b.Kind = query.UnboundedFollowing
	default:
		return b, invalid(path+".kind", "unknown frame bound %q", d.Kind)
	}
	if d.Offset < 0 {
		return b, invalid(path+".offset", "must not be negative")
	}
	return b, nil
}

func decodeSortKeys(docs []sortDoc, path string) ([]query.SortKey, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	keys := make([]query.SortKey, len(docs))
	for i, d := range docs {
		keyPath := fmt.Sprintf("%s[%d]", path, i)
		e, err := decodeExpr(d.Expr, keyPath+".expr")
		if err != nil {
			return nil, err
		}
		nulls, err := query.ParseNullOrdering(d.Nulls)
		if err != nil {
			return nil, at(keyPath+".nulls", err)
		}
		keys[i] = query.SortKey{Expr: e, Desc: d.Desc, Nulls: nulls}
	}
	return keys, nil
}

// literal converts a decoded scalar, casting it when a type is named.
// A type with no value is a NULL literal.
func literal(raw interface{}, typeName string) (query.Value, error) {
	if typeName == "" {
		return scalar(raw)
	}
	typ, err := query.ParseValueType(typeName)
	if err != nil {
		return query.Null(), err
	}
	if raw == nil {
		return query.Null(), nil
	}
	if n, ok := raw.(number); ok && typ == query.TypeDecimal {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return query.Null(), query.NewError(query.ErrType, "plan file", "invalid decimal %s", n.String())
		}
		return query.NewDecimal(d), nil
	}
	v, err := scalar(raw)
	if err != nil {
		return query.Null(), err
	}
	return query.Cast(v, typ)
}

// scalar maps a decoded YAML or JSON scalar onto a value
func scalar(raw interface{}) (query.Value, error) {
	switch x := raw.(type) {
	case number:
		if i, err := x.Int64(); err == nil {
			return query.NewInt(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return query.Null(), query.NewError(query.ErrType, "plan file", "invalid number %s", x.String())
		}
		return query.NewFloat(f), nil
	case map[string]interface{}, []interface{}:
		return query.Null(), query.NewError(query.ErrType, "plan file", "literal must be a scalar, got %T", raw)
	default:
		return query.ValueFromInterface(raw)
	}
}
