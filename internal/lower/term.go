package lower

import (
	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// lowerTerm lowers the logical-term sub-language used inside
// annotation clauses (spec.md §4.C): it extends executable expressions
// with \result, \old, \length, and functional array update, and may
// call functions but never predicates.
func (l *Lowerer) lowerTerm(e ast.Expr, env *symbols.Env, fn *ir.Function, c clauseCtx) (ir.Term, *verrors.Error) {
	switch n := e.(type) {
	case *ast.Ident:
		v, ok := env.Resolve(n.Name)
		if !ok {
			return nil, verrors.New(verrors.UnknownName, n.Position, "unknown name %q", n.Name)
		}
		if _, isStruct := v.(*symbols.StructVariable); isStruct {
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q names a struct; use a member access", n.Name)
		}
		return &ir.TVar{V: v}, nil

	case *ast.IntLit:
		return &ir.TConstInt{Value: n.Value}, nil
	case *ast.FloatLit:
		return &ir.TConstFloat{Value: n.Value}, nil
	case *ast.BoolLit:
		return &ir.TConstBool{Value: n.Value}, nil

	case *ast.Paren:
		return l.lowerTerm(n.X, env, fn, c)

	case *ast.ResultExpr:
		return l.lowerResult(n, "", fn, c)

	case *ast.OldExpr:
		if !allowsOld(c) {
			return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\old is only allowed in a postcondition or loop invariant")
		}
		x, err := l.lowerTerm(n.X, env, fn, c)
		if err != nil {
			return nil, err
		}
		return &ir.TOld{X: x}, nil

	case *ast.LengthExpr:
		return l.lowerLength(n, env, fn, c)

	case *ast.UpdateExpr:
		return l.lowerUpdate(n, env, fn, c)

	case *ast.Unary:
		x, err := l.lowerTerm(n.X, env, fn, c)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "-":
			if !isNumeric(x.Type()) {
				return nil, verrors.TypeMismatchErr(n.Position, "int or float", x.Type().String())
			}
			return &ir.TUnary{Op: n.Op, X: x, Typ: x.Type()}, nil
		default:
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q is not a term-level operator", n.Op)
		}

	case *ast.Binary:
		switch n.Op {
		case "&&", "||", "==>", "<==>", "^":
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q is a predicate connective, not a term operator", n.Op)
		}
		l1, err := l.lowerTerm(n.L, env, fn, c)
		if err != nil {
			return nil, err
		}
		r1, err := l.lowerTerm(n.R, env, fn, c)
		if err != nil {
			return nil, err
		}
		return combineTermBinary(n.Position, n.Op, l1, r1)

	case *ast.Index:
		x, err := l.lowerExprIndex(n, env)
		if err != nil {
			return nil, err
		}
		return exprToTerm(x), nil

	case *ast.Member:
		switch base := n.Base.(type) {
		case *ast.ResultExpr:
			return l.lowerResult(base, n.Field, fn, c)
		case *ast.OldExpr:
			// \old(s).f reads the same snapshot as \old(s.f).
			return l.lowerTerm(&ast.OldExpr{Position: base.Position, X: &ast.Member{Position: n.Position, Base: base.X, Field: n.Field}}, env, fn, c)
		}
		return l.lowerTermMember(n, env)

	case *ast.Call:
		return l.lowerTermCall(n, env, fn, c)

	case *ast.ChainCompare, *ast.Quant:
		return nil, verrors.New(verrors.TypeMismatch, e.Pos(), "this form produces a predicate, not a term")

	default:
		return nil, verrors.New(verrors.TypeMismatch, e.Pos(), "unsupported term form")
	}
}

func combineTermBinary(pos ast.Position, op string, lhs, rhs ir.Term) (ir.Term, *verrors.Error) {
	switch op {
	case "+", "-", "*", "/":
		if lhs.Type() != rhs.Type() || !isNumeric(lhs.Type()) {
			return nil, verrors.TypeMismatchErr(pos, "matching int or float operands", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.TBinary{Op: op, L: lhs, R: rhs, Typ: lhs.Type()}, nil
	case "%":
		if lhs.Type() != types.Int || rhs.Type() != types.Int {
			return nil, verrors.TypeMismatchErr(pos, "int", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.TBinary{Op: op, L: lhs, R: rhs, Typ: types.Int}, nil
	default:
		return nil, verrors.New(verrors.TypeMismatch, pos, "unsupported term operator %q", op)
	}
}

// lowerResult implements \result and \result.field resolution
// (spec.md §4.C/§4.E): bare \result requires exactly one non-struct
// return slot; \result.field requires exactly one struct-typed return
// slot and a valid member of it. Every other shape is AmbiguousResult.
func (l *Lowerer) lowerResult(n *ast.ResultExpr, field string, fn *ir.Function, c clauseCtx) (ir.Term, *verrors.Error) {
	if !allowsResult(c) {
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\result is only allowed in a postcondition")
	}
	if fn == nil || len(fn.Returns) != 1 {
		return nil, verrors.New(verrors.AmbiguousResult, n.Position, "\\result requires a function with exactly one return value")
	}
	slot := fn.Returns[0].Var
	if field == "" {
		if _, isStruct := slot.(*symbols.StructVariable); isStruct {
			return nil, verrors.New(verrors.AmbiguousResult, n.Position, "\\result names a struct; use \\result.field")
		}
		return &ir.TResult{V: slot}, nil
	}
	sv, ok := slot.(*symbols.StructVariable)
	if !ok {
		return nil, verrors.New(verrors.AmbiguousResult, n.Position, "\\result is not struct-typed")
	}
	member, ok := sv.Members[field]
	if !ok {
		return nil, verrors.New(verrors.UnknownName, n.Position, "struct %q has no field %q", sv.Struct.Name, field)
	}
	return &ir.TResult{V: member}, nil
}

func (l *Lowerer) lowerLength(n *ast.LengthExpr, env *symbols.Env, fn *ir.Function, c clauseCtx) (ir.Term, *verrors.Error) {
	ident, ok := n.X.(*ast.Ident)
	if !ok {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "\\length expects a plain array variable")
	}
	v, ok := env.Resolve(ident.Name)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
	}
	arr, ok := v.VarType().(*types.ArrayType)
	if !ok {
		return nil, verrors.TypeMismatchErr(n.Position, "array", v.VarType().String())
	}
	if arr.Length != nil {
		return &ir.TLength{Arr: v, Length: arr.Length}, nil
	}
	// An unknown declared length is carried symbolically rather than
	// rejected outright (SPEC_FULL.md's supplemented \length handling).
	return &ir.TLength{Arr: v, Sym: &ir.TVar{V: v}}, nil
}

func (l *Lowerer) lowerUpdate(n *ast.UpdateExpr, env *symbols.Env, fn *ir.Function, c clauseCtx) (ir.Term, *verrors.Error) {
	ident, ok := n.Base.(*ast.Ident)
	if !ok {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "a functional update's base must be a plain array variable")
	}
	v, ok := env.Resolve(ident.Name)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
	}
	arr, ok := v.VarType().(*types.ArrayType)
	if !ok {
		return nil, verrors.TypeMismatchErr(n.Position, "array", v.VarType().String())
	}
	idx, err := l.lowerTerm(n.Idx, env, fn, c)
	if err != nil {
		return nil, err
	}
	if idx.Type() != types.Int {
		return nil, verrors.TypeMismatchErr(n.Idx.Pos(), "int", idx.Type().String())
	}
	val, err := l.lowerTerm(n.Value, env, fn, c)
	if err != nil {
		return nil, err
	}
	if !types.Equal(val.Type(), arr.Elem) {
		return nil, verrors.TypeMismatchErr(n.Value.Pos(), arr.Elem.String(), val.Type().String())
	}
	return &ir.TUpdate{Base: v, Idx: idx, Value: val, Typ: arr}, nil
}

func (l *Lowerer) lowerTermMember(n *ast.Member, env *symbols.Env) (ir.Term, *verrors.Error) {
	ident, ok := n.Base.(*ast.Ident)
	if !ok {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "only a struct variable may have a member access")
	}
	v, ok := env.Resolve(ident.Name)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
	}
	sv, ok := v.(*symbols.StructVariable)
	if !ok {
		return nil, verrors.TypeMismatchErr(n.Position, "struct", v.VarType().String())
	}
	member, ok := sv.Members[n.Field]
	if !ok {
		return nil, verrors.New(verrors.UnknownName, n.Position, "struct %q has no field %q", sv.Struct.Name, n.Field)
	}
	return &ir.TMember{Struct: sv, Field: n.Field, Typ: member.Type.(*types.Atomic)}, nil
}

func (l *Lowerer) lowerTermCall(n *ast.Call, env *symbols.Env, fn *ir.Function, c clauseCtx) (ir.Term, *verrors.Error) {
	kind, ok := l.Globals.Lookup(n.Callee)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, n.Position, "unknown function %q", n.Callee)
	}
	if kind != symbols.KindFunction {
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "a term may only call a function, not a predicate")
	}
	callee := l.Functions[n.Callee]
	if len(callee.Returns) != 1 {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q must return exactly one value to be used as a term", n.Callee)
	}
	args := make([]ir.Term, 0, len(n.Args))
	ai := 0
	for _, p := range callee.Params {
		if sv, ok := p.(*symbols.StructVariable); ok {
			if ai >= len(n.Args) {
				return nil, verrors.New(verrors.TypeMismatch, n.Position, "too few arguments")
			}
			ident, ok := n.Args[ai].(*ast.Ident)
			if !ok {
				return nil, verrors.New(verrors.TypeMismatch, n.Args[ai].Pos(), "expected a struct-typed variable")
			}
			v, ok := env.Resolve(ident.Name)
			if !ok {
				return nil, verrors.New(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
			}
			asv, ok := v.(*symbols.StructVariable)
			if !ok || asv.Struct.Name != sv.Struct.Name {
				return nil, verrors.TypeMismatchErr(ident.Position, sv.Struct.Name, v.VarType().String())
			}
			for _, field := range asv.Order {
				args = append(args, &ir.TVar{V: asv.Members[field]})
			}
			ai++
			continue
		}
		if ai >= len(n.Args) {
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "too few arguments")
		}
		t, err := l.lowerTerm(n.Args[ai], env, fn, c)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t.Type(), p.VarType()) {
			return nil, verrors.TypeMismatchErr(n.Args[ai].Pos(), p.VarType().String(), t.Type().String())
		}
		args = append(args, t)
		ai++
	}
	if ai != len(n.Args) {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "too many arguments")
	}
	return &ir.TCall{Fun: callee, Args: args}, nil
}
