package lower

import (
	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// lowerExpr lowers an executable expression (spec.md §4.C): it may
// call user functions, read variables, subscript arrays, and read
// struct members, but may never mention \result, \old, \length, or a
// quantifier — those belong only to the term/predicate sub-languages.
func (l *Lowerer) lowerExpr(e ast.Expr, env *symbols.Env) (ir.Expr, *verrors.Error) {
	switch n := e.(type) {
	case *ast.Ident:
		v, ok := env.Resolve(n.Name)
		if !ok {
			return nil, verrors.New(verrors.UnknownName, n.Position, "unknown name %q", n.Name)
		}
		if _, isStruct := v.(*symbols.StructVariable); isStruct {
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q names a struct; use a member access", n.Name)
		}
		return &ir.EVar{V: v}, nil

	case *ast.IntLit:
		return &ir.EConstInt{Value: n.Value}, nil
	case *ast.FloatLit:
		return &ir.EConstFloat{Value: n.Value}, nil
	case *ast.BoolLit:
		return &ir.EConstBool{Value: n.Value}, nil

	case *ast.Paren:
		return l.lowerExpr(n.X, env)

	case *ast.Unary:
		x, err := l.lowerExpr(n.X, env)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "-":
			if !isNumeric(x.Type()) {
				return nil, verrors.TypeMismatchErr(n.Position, "int or float", x.Type().String())
			}
			return &ir.EUnary{Op: n.Op, X: x, Typ: x.Type()}, nil
		case "!":
			if x.Type() != types.Type(types.Bool) {
				return nil, verrors.TypeMismatchErr(n.Position, "bool", x.Type().String())
			}
			return &ir.EUnary{Op: n.Op, X: x, Typ: types.Bool}, nil
		default:
			return nil, verrors.New(verrors.TypeMismatch, n.Position, "unknown unary operator %q", n.Op)
		}

	case *ast.Binary:
		return l.lowerExprBinary(n, env)

	case *ast.ChainCompare:
		return l.lowerExprChain(n, env)

	case *ast.Call:
		return l.lowerExprCall(n, env)

	case *ast.Index:
		return l.lowerExprIndex(n, env)

	case *ast.Member:
		return l.lowerExprMember(n, env)

	case *ast.ResultExpr:
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\result is not allowed in executable code")
	case *ast.OldExpr:
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\old is not allowed in executable code")
	case *ast.LengthExpr:
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "\\length is not allowed in executable code")
	case *ast.UpdateExpr:
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "functional update is not allowed in executable code")
	case *ast.Quant:
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "quantifiers are not allowed in executable code")
	default:
		return nil, verrors.New(verrors.TypeMismatch, e.Pos(), "unsupported expression form")
	}
}

func isNumeric(t types.Type) bool {
	return t == types.Type(types.Int) || t == types.Type(types.Float)
}

func (l *Lowerer) lowerExprBinary(n *ast.Binary, env *symbols.Env) (ir.Expr, *verrors.Error) {
	switch n.Op {
	case "==>", "<==>", "^":
		return nil, verrors.New(verrors.IllegalAnnotation, n.Position, "%q is only allowed in predicates", n.Op)
	}
	l1, err := l.lowerExpr(n.L, env)
	if err != nil {
		return nil, err
	}
	r1, err := l.lowerExpr(n.R, env)
	if err != nil {
		return nil, err
	}
	return combineExprBinary(n.Position, n.Op, l1, r1)
}

func combineExprBinary(pos ast.Position, op string, lhs, rhs ir.Expr) (ir.Expr, *verrors.Error) {
	switch op {
	case "+", "-", "*":
		if lhs.Type() != rhs.Type() || !isNumeric(lhs.Type()) {
			return nil, verrors.TypeMismatchErr(pos, "matching int or float operands", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: lhs.Type()}, nil
	case "/":
		if lhs.Type() != rhs.Type() || !isNumeric(lhs.Type()) {
			return nil, verrors.TypeMismatchErr(pos, "matching int or float operands", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: lhs.Type()}, nil
	case "%":
		if lhs.Type() != types.Type(types.Int) || rhs.Type() != types.Type(types.Int) {
			return nil, verrors.TypeMismatchErr(pos, "int", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: types.Int}, nil
	case "<", "<=", ">", ">=":
		if lhs.Type() != rhs.Type() || !isNumeric(lhs.Type()) {
			return nil, verrors.TypeMismatchErr(pos, "matching int or float operands", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: types.Bool}, nil
	case "==", "!=":
		if lhs.Type() != rhs.Type() {
			return nil, verrors.TypeMismatchErr(pos, lhs.Type().String(), rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: types.Bool}, nil
	case "&&", "||":
		if lhs.Type() != types.Type(types.Bool) || rhs.Type() != types.Type(types.Bool) {
			return nil, verrors.TypeMismatchErr(pos, "bool", lhs.Type().String()+" and "+rhs.Type().String())
		}
		return &ir.EBinary{Op: op, L: lhs, R: rhs, Typ: types.Bool}, nil
	default:
		return nil, verrors.New(verrors.TypeMismatch, pos, "unsupported operator %q", op)
	}
}

// lowerExprChain desugars a ⊙1 b ⊙2 c ... into (a⊙1 b) && (b⊙2 c) && ...,
// sharing the lowered form of each interior term (spec.md §4.C).
func (l *Lowerer) lowerExprChain(n *ast.ChainCompare, env *symbols.Env) (ir.Expr, *verrors.Error) {
	terms := make([]ir.Expr, len(n.Terms))
	for i, t := range n.Terms {
		lt, err := l.lowerExpr(t, env)
		if err != nil {
			return nil, err
		}
		terms[i] = lt
	}
	var result ir.Expr
	for i, op := range n.Ops {
		cmp, err := combineExprBinary(n.Position, op, terms[i], terms[i+1])
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = cmp
		} else {
			and, err := combineExprBinary(n.Position, "&&", result, cmp)
			if err != nil {
				return nil, err
			}
			result = and
		}
	}
	return result, nil
}

func (l *Lowerer) lowerExprIndex(n *ast.Index, env *symbols.Env) (ir.Expr, *verrors.Error) {
	ident, ok := n.Base.(*ast.Ident)
	if !ok {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "only a variable may be subscripted")
	}
	v, ok := env.Resolve(ident.Name)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
	}
	arr, ok := v.VarType().(*types.ArrayType)
	if !ok {
		return nil, verrors.TypeMismatchErr(n.Position, "array", v.VarType().String())
	}
	idx, err := l.lowerExpr(n.Idx, env)
	if err != nil {
		return nil, err
	}
	if idx.Type() != types.Type(types.Int) {
		return nil, verrors.TypeMismatchErr(n.Idx.Pos(), "int", idx.Type().String())
	}
	return &ir.ESubscript{Arr: v, Idx: idx, Elem: arr.Elem}, nil
}

func (l *Lowerer) lowerExprMember(n *ast.Member, env *symbols.Env) (ir.Expr, *verrors.Error) {
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
	return &ir.EMember{Struct: sv, Field: n.Field, Typ: member.Type.(*types.Atomic)}, nil
}

func (l *Lowerer) lowerExprCall(n *ast.Call, env *symbols.Env) (ir.Expr, *verrors.Error) {
	fn, err := l.resolveCallableFunction(n.Callee, n.Position)
	if err != nil {
		return nil, err
	}
	if len(fn.Returns) == 0 {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q returns no value and cannot be used in an expression", n.Callee)
	}
	if len(fn.Returns) > 1 {
		return nil, verrors.New(verrors.TypeMismatch, n.Position, "%q returns multiple values and cannot be used as a single expression", n.Callee)
	}
	args, err := l.lowerCallArgs(fn.Params, n.Args, env, n.Position)
	if err != nil {
		return nil, err
	}
	return &ir.ECall{Fun: fn, Args: args}, nil
}

func (l *Lowerer) resolveCallableFunction(callee string, pos ast.Position) (*ir.Function, *verrors.Error) {
	kind, ok := l.Globals.Lookup(callee)
	if !ok {
		return nil, verrors.New(verrors.UnknownName, pos, "unknown function %q", callee)
	}
	switch kind {
	case symbols.KindFunction:
		return l.Functions[callee], nil
	case symbols.KindPredicate:
		return nil, verrors.New(verrors.IllegalAnnotation, pos, "predicate %q cannot be called from executable code", callee)
	default:
		return nil, verrors.TypeMismatchErr(pos, "function", "struct")
	}
}

// lowerCallArgs lowers a call's actual arguments against the callee's
// (already resolved) formal parameters, expanding a bare struct-variable
// argument into its member list in place — the only shape a whole
// struct value can take in source, since structs never result from an
// arbitrary sub-expression (spec.md §6).
func (l *Lowerer) lowerCallArgs(params []symbols.Variable, args []ast.Expr, env *symbols.Env, pos ast.Position) ([]ir.Expr, *verrors.Error) {
	var out []ir.Expr
	ai := 0
	for _, p := range params {
		if sv, ok := p.(*symbols.StructVariable); ok {
			if ai >= len(args) {
				return nil, verrors.New(verrors.TypeMismatch, pos, "too few arguments")
			}
			ident, ok := args[ai].(*ast.Ident)
			if !ok {
				return nil, verrors.New(verrors.TypeMismatch, args[ai].Pos(), "expected a struct-typed variable")
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
				m := asv.Members[field]
				out = append(out, &ir.EVar{V: m})
			}
			ai++
			continue
		}
		if ai >= len(args) {
			return nil, verrors.New(verrors.TypeMismatch, pos, "too few arguments")
		}
		lowered, err := l.lowerExpr(args[ai], env)
		if err != nil {
			return nil, err
		}
		if !types.Equal(lowered.Type(), p.VarType()) {
			return nil, verrors.TypeMismatchErr(args[ai].Pos(), p.VarType().String(), lowered.Type().String())
		}
		out = append(out, lowered)
		ai++
	}
	if ai != len(args) {
		return nil, verrors.New(verrors.TypeMismatch, pos, "too many arguments")
	}
	return out, nil
}
