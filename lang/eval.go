package lang

import (
	"context"
	"math"
	"unicode/utf8"
)

// eval evaluates an expression to a normalized value.
func (st *renderState) eval(ctx context.Context, e Expr, scope *Scope) (any, error) {
	switch e := e.(type) {
	case *LiteralExpr:
		return e.Value, nil

	case *IdentExpr:
		v, ok := scope.Var(e.Name)
		if !ok {
			return nil, undefinedError(UndefinedVariable, e.Name, e.span)
		}

		return v, nil

	case *GroupExpr:
		return st.eval(ctx, e.Inner, scope)

	case *MemberExpr:
		base, err := st.eval(ctx, e.Base, scope)
		if err != nil {
			return nil, err
		}

		obj, ok := base.(map[string]any)
		if !ok {
			return nil, typeError("object", base, e.Base.Span())
		}

		return obj[e.Field], nil

	case *IndexExpr:
		return st.index(ctx, e, scope)

	case *CallExpr:
		f, ok := scope.Func(e.Name)
		if !ok {
			return nil, undefinedError(NotCallable, e.Name, e.span)
		}

		args, err := st.evalList(ctx, e.Args, scope)
		if err != nil {
			return nil, err
		}

		v, err := f.Invoke(ctx, args)
		if err != nil {
			return nil, callError(e.Name, err, e.span)
		}

		return ToValue(v), nil

	case *MethodCallExpr:
		recv, err := st.eval(ctx, e.Receiver, scope)
		if err != nil {
			return nil, err
		}

		args, err := st.evalList(ctx, e.Args, scope)
		if err != nil {
			return nil, err
		}

		return callMethod(recv, e.Name, args, e.span)

	case *PipeExpr:
		input, err := st.eval(ctx, e.Input, scope)
		if err != nil {
			return nil, err
		}

		p, ok := scope.Pipe(e.Name)
		if !ok {
			return nil, undefinedError(UndefinedPipe, e.Name, e.span)
		}

		args, err := st.evalList(ctx, e.Args, scope)
		if err != nil {
			return nil, err
		}

		v, err := p.Invoke(ctx, input, args)
		if err != nil {
			return nil, callError(e.Name, err, e.span)
		}

		return ToValue(v), nil

	case *UnaryExpr:
		v, err := st.eval(ctx, e.Operand, scope)
		if err != nil {
			return nil, err
		}

		return unary(e.Op, v, e.span)

	case *BinaryExpr:
		return st.binary(ctx, e, scope)

	case *ArrayExpr:
		return st.evalList(ctx, e.Elems, scope)

	case *ObjectExpr:
		obj := make(map[string]any, len(e.Entries))

		for _, ent := range e.Entries {
			v, err := st.eval(ctx, ent.Value, scope)
			if err != nil {
				return nil, err
			}

			obj[ent.Key] = v
		}

		return obj, nil

	default:
		return nil, nil
	}
}

// evalList evaluates exprs in order. The result is never nil.
func (st *renderState) evalList(ctx context.Context, exprs []Expr, scope *Scope) ([]any, error) {
	out := make([]any, len(exprs))

	for i, e := range exprs {
		v, err := st.eval(ctx, e, scope)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (st *renderState) index(ctx context.Context, e *IndexExpr, scope *Scope) (any, error) {
	base, err := st.eval(ctx, e.Base, scope)
	if err != nil {
		return nil, err
	}

	idx, err := st.eval(ctx, e.Index, scope)
	if err != nil {
		return nil, err
	}

	switch b := base.(type) {
	case []any:
		i, ok := toInt(idx)
		if !ok {
			return nil, typeError("int", idx, e.Index.Span())
		}

		if i < 0 || i >= int64(len(b)) {
			return nil, outOfBounds(i, len(b), e.Index.Span())
		}

		return b[i], nil

	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, typeError("string", idx, e.Index.Span())
		}

		return b[key], nil

	case string:
		i, ok := toInt(idx)
		if !ok {
			return nil, typeError("int", idx, e.Index.Span())
		}

		n := utf8.RuneCountInString(b)
		if i < 0 || i >= int64(n) {
			return nil, outOfBounds(i, n, e.Index.Span())
		}

		return string([]rune(b)[i]), nil

	default:
		return nil, typeError("array, object or string", base, e.Base.Span())
	}
}

func outOfBounds(i int64, n int, span Span) *EvalError {
	return &EvalError{Kind: IndexOutOfBounds, Index: int(i), Len: n, Span: span}
}

func unary(op UnaryOp, v any, span Span) (any, error) {
	if op == OpNot {
		return !Truthy(v), nil
	}

	switch x := v.(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	default:
		return nil, typeError("number", v, span)
	}
}

func (st *renderState) binary(ctx context.Context, e *BinaryExpr, scope *Scope) (any, error) {
	left, err := st.eval(ctx, e.Left, scope)
	if err != nil {
		return nil, err
	}

	// The deciding operand is the result.
	switch e.Op {
	case OpAnd:
		if !Truthy(left) {
			return left, nil
		}

		return st.eval(ctx, e.Right, scope)

	case OpOr:
		if Truthy(left) {
			return left, nil
		}

		return st.eval(ctx, e.Right, scope)
	}

	right, err := st.eval(ctx, e.Right, scope)
	if err != nil {
		return nil, err
	}

	return binaryOp(e.Op, left, right, e)
}

func binaryOp(op BinaryOp, left, right any, e *BinaryExpr) (any, error) {
	switch op {
	case OpEq:
		return Equal(left, right), nil

	case OpNe:
		return !Equal(left, right), nil

	case OpLt, OpLe, OpGt, OpGe:
		c, ok := compare(left, right)
		if !ok {
			return nil, comparisonError(left, right, e)
		}

		switch op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}

	if op == OpAdd {
		_, ls := left.(string)
		_, rs := right.(string)

		if ls || rs {
			return Stringify(left) + Stringify(right), nil
		}
	}

	if !KindOf(left).IsNumber() {
		return nil, typeError("number", left, e.Left.Span())
	}

	if !KindOf(right).IsNumber() {
		return nil, typeError("number", right, e.Right.Span())
	}

	li, lok := left.(int64)
	ri, rok := right.(int64)

	if lok && rok {
		return intArith(op, li, ri, e.span)
	}

	lf, _ := toFloat(left)
	rf, _ := toFloat(right)

	return floatArith(op, lf, rf, e.span)
}

// comparisonError reports the operand that cannot be ordered against the
// other: a non-orderable kind, or the right side when both kinds are
// orderable but differ.
func comparisonError(left, right any, e *BinaryExpr) error {
	lk := KindOf(left)

	switch {
	case lk == KindString:
		return typeError("string", right, e.Right.Span())
	case lk.IsNumber():
		return typeError("number", right, e.Right.Span())
	default:
		return typeError("number or string", left, e.Left.Span())
	}
}

// intArith applies op with wrapping two's complement semantics.
func intArith(op BinaryOp, l, r int64, span Span) (any, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return nil, newEvalError(DivisionByZero, span)
		}

		return l / r, nil
	default:
		if r == 0 {
			return nil, newEvalError(DivisionByZero, span)
		}

		return l % r, nil
	}
}

func floatArith(op BinaryOp, l, r float64, span Span) (any, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return nil, newEvalError(DivisionByZero, span)
		}

		return l / r, nil
	default:
		if r == 0 {
			return nil, newEvalError(DivisionByZero, span)
		}

		return math.Mod(l, r), nil
	}
}
