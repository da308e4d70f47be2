package lower

import (
	"verifier/internal/ir"
)

// exprToTerm structurally mirrors an executable expression into the
// term language. This is sound without any ANF-style temporaries
// because the expression language has no side effects (spec.md §6):
// every Expr node has a direct Term counterpart.
func exprToTerm(e ir.Expr) ir.Term {
	switch n := e.(type) {
	case *ir.EVar:
		return &ir.TVar{V: n.V}
	case *ir.EConstInt:
		return &ir.TConstInt{Value: n.Value}
	case *ir.EConstFloat:
		return &ir.TConstFloat{Value: n.Value}
	case *ir.EConstBool:
		return &ir.TConstBool{Value: n.Value}
	case *ir.ECall:
		args := make([]ir.Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprToTerm(a)
		}
		return &ir.TCall{Fun: n.Fun, Args: args}
	case *ir.ESubscript:
		return &ir.TSubscript{Arr: n.Arr, Idx: exprToTerm(n.Idx), Elem: n.Elem}
	case *ir.EMember:
		return &ir.TMember{Struct: n.Struct, Field: n.Field, Typ: n.Typ}
	case *ir.EUnary:
		return &ir.TUnary{Op: n.Op, X: exprToTerm(n.X), Typ: n.Typ}
	case *ir.EBinary:
		return &ir.TBinary{Op: n.Op, L: exprToTerm(n.L), R: exprToTerm(n.R), Typ: n.Typ}
	default:
		panic("lower: exprToTerm: unhandled expression node")
	}
}

var exprCmpOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

// exprToPred lifts a boolean-typed executable expression — an if,
// while, do-while, or for condition — into the predicate carried by
// the assume statement on the branch it produces (spec.md §4.D).
func exprToPred(e ir.Expr) ir.Pred {
	switch n := e.(type) {
	case *ir.EConstBool:
		if n.Value {
			return &ir.PTrue{}
		}
		return &ir.PFalse{}
	case *ir.EUnary:
		if n.Op == "!" {
			return &ir.PNeg{X: exprToPred(n.X)}
		}
	case *ir.EBinary:
		if exprCmpOps[n.Op] {
			return &ir.PCmp{Op: n.Op, L: exprToTerm(n.L), R: exprToTerm(n.R)}
		}
		switch n.Op {
		case "&&":
			return &ir.PConj{L: exprToPred(n.L), R: exprToPred(n.R)}
		case "||":
			return &ir.PDisj{L: exprToPred(n.L), R: exprToPred(n.R)}
		}
	}
	return &ir.PCmp{Op: "==", L: exprToTerm(e), R: &ir.TConstBool{Value: true}}
}

func negatePred(p ir.Pred) ir.Pred {
	if n, ok := p.(*ir.PNeg); ok {
		return n.X
	}
	return &ir.PNeg{X: p}
}
