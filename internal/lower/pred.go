package lower

import (
	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

var relOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

// lowerPred lowers the boolean sub-language used at the top of every
// annotation clause and every predicate body (spec.md §4.C): relational
// comparisons bottom out into terms, logical connectives compose
// sub-predicates, and a predicate body may call other predicates but
// never a function.
func (l *Lowerer) lowerPred(e ast.Expr, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	switch n := e.(type) {
	case *ast.BoolLit:
		if n.Value {
			return &ir.PTrue{}, nil
		}
		return &ir.PFalse{}, nil

	case *ast.Paren:
		return l.lowerPred(n.X, env, c, fn)

	case *ast.OldExpr:
		if !allowsOld(c) {
			return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\old is only allowed in a postcondition or loop invariant")
		}
		x, err := l.lowerPred(n.X, env, c, fn)
		if err != nil {
			return nil, err
		}
		return &ir.POld{X: x}, nil

	case *ast.Unary:
		if n.Op != "!" {
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q is not a predicate operator", n.Op)
		}
		x, err := l.lowerPred(n.X, env, c, fn)
		if err != nil {
			return nil, err
		}
		return &ir.PNeg{X: x}, nil

	case *ast.Binary:
		return l.lowerPredBinary(n, env, c, fn)

	case *ast.ChainCompare:
		return l.lowerPredChain(n, env, c, fn)

	case *ast.Quant:
		return l.lowerQuant(n, env, c, fn)

	case *ast.Call:
		kind, ok := l.Globals.Lookup(n.Callee)
		if !ok {
			return nil, verrors.New(verrors.UnknownName, n.Position, "unknown name %q", n.Callee)
		}
		if kind == symbols.KindPredicate {
			return l.lowerPApp(n, env, c, fn)
		}
		return l.liftBoolTerm(n, env, c, fn)

	case *ast.Ident, *ast.Member:
		return l.liftBoolTerm(n, env, c, fn)

	default:
		// Anything else (arithmetic, \result, \length, a functional
		// update) denotes a term, not a predicate, unless it happens to
		// have type bool — in which case it is lifted via comparison.
		return l.liftBoolTerm(n, env, c, fn)
	}
}

// liftBoolTerm lowers e as a term and, if it is boolean-typed, lifts it
// into a predicate via equality with true — the bridge a bare boolean
// variable, member, or function call needs to appear where the grammar
// expects a predicate (e.g. a predicate body that is just `b`).
func (l *Lowerer) liftBoolTerm(e ast.Expr, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	t, err := l.lowerTerm(e, env, fn, c)
	if err != nil {
		return nil, err
	}
	if t.Type() != types.Bool {
		return nil, verrors.TypeMismatchErr(e.Pos(), "bool", t.Type().String())
	}
	return &ir.PCmp{Op: "==", L: t, R: &ir.TConstBool{Value: true}}, nil
}

func (l *Lowerer) lowerPredBinary(n *ast.Binary, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	switch n.Op {
	case "&&", "||", "==>", "<==>", "^":
		lp, err := l.lowerPred(n.L, env, c, fn)
		if err != nil {
			return nil, err
		}
		rp, err := l.lowerPred(n.R, env, c, fn)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "&&":
			return &ir.PConj{L: lp, R: rp}, nil
		case "||":
			return &ir.PDisj{L: lp, R: rp}, nil
		case "==>":
			return &ir.PImpl{L: lp, R: rp}, nil
		case "<==>":
			return &ir.PIff{L: lp, R: rp}, nil
		default: // "^"
			return &ir.PXor{L: lp, R: rp}, nil
		}
	case "<", "<=", ">", ">=", "==", "!=":
		lt, err := l.lowerTerm(n.L, env, fn, c)
		if err != nil {
			return nil, err
		}
		rt, err := l.lowerTerm(n.R, env, fn, c)
		if err != nil {
			return nil, err
		}
		if n.Op == "<" || n.Op == "<=" || n.Op == ">" || n.Op == ">=" {
			if !isNumeric(lt.Type()) || lt.Type() != rt.Type() {
				return nil, verrors.TypeMismatchErr(n.Position, "matching int or float operands", lt.Type().String()+" and "+rt.Type().String())
			}
		} else if !types.Equal(lt.Type(), rt.Type()) {
			return nil, verrors.TypeMismatchErr(n.Position, lt.Type().String(), rt.Type().String())
		}
		return &ir.PCmp{Op: n.Op, L: lt, R: rt}, nil
	default:
		// Arithmetic operator at the top of a predicate clause: build
		// the term and lift it, matching liftBoolTerm's bridge.
		return l.liftBoolTerm(n, env, c, fn)
	}
}

// lowerPredChain desugars a ⊙1 b ⊙2 c ... into PConj chains sharing
// each interior term (spec.md §4.C).
func (l *Lowerer) lowerPredChain(n *ast.ChainCompare, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	terms := make([]ir.Term, len(n.Terms))
	for i, t := range n.Terms {
		lt, err := l.lowerTerm(t, env, fn, c)
		if err != nil {
			return nil, err
		}
		terms[i] = lt
	}
	var preds []ir.Pred
	for i, op := range n.Ops {
		if !relOps[op] {
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "unsupported comparison operator %q", op)
		}
		if (op == "<" || op == "<=" || op == ">" || op == ">=") && (!isNumeric(terms[i].Type()) || terms[i].Type() != terms[i+1].Type()) {
			return nil, verrors.TypeMismatchErr(n.Position, "matching int or float operands", terms[i].Type().String()+" and "+terms[i+1].Type().String())
		}
		preds = append(preds, &ir.PCmp{Op: op, L: terms[i], R: terms[i+1]})
	}
	return ir.Conj(preds...), nil
}

func (l *Lowerer) lowerPApp(n *ast.Call, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	callee, ok := l.Predicates[n.Callee]
	if !ok {
		return nil, verrors.New(verrors.UnknownName, n.Position, "unknown predicate %q", n.Callee)
	}
	if len(n.Args) != len(callee.Params) {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "predicate %q expects %d arguments, got %d", n.Callee, len(callee.Params), len(n.Args))
	}
	args := make([]ir.Term, len(n.Args))
	for i, a := range n.Args {
		t, err := l.lowerTerm(a, env, fn, c)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t.Type(), callee.Params[i].VarType()) {
			return nil, verrors.TypeMismatchErr(a.Pos(), callee.Params[i].VarType().String(), t.Type().String())
		}
		args[i] = t
	}
	return &ir.PApp{Pred: callee, Args: args}, nil
}

func (l *Lowerer) lowerQuant(n *ast.Quant, env *symbols.Env, c clauseCtx, fn *ir.Function) (ir.Pred, *verrors.Error) {
	env.Push()
	defer env.Pop()
	var binders []*symbols.QuantifiedVariable
	for _, b := range n.Binders {
		qv := &symbols.QuantifiedVariable{Name: b.Name, Sort: b.Sort}
		if !env.Declare(b.Name, qv) {
			return nil, verrors.New(verrors.DuplicateName, n.Position, "duplicate quantifier binder %q", b.Name)
		}
		binders = append(binders, qv)
	}
	body, err := l.lowerPred(n.Body, env, c, fn)
	if err != nil {
		return nil, err
	}
	// Multiple binders desugar into nested quantifiers of the same kind,
	// innermost binder first so Binders[0] ends up outermost.
	result := body
	for i := len(binders) - 1; i >= 0; i-- {
		result = &ir.PQuant{Kind: n.Kind, Binder: binders[i], Body: result}
	}
	return result, nil
}
