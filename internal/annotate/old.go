package annotate

import "verifier/internal/ir"

// resolveOldPred walks a predicate looking for \old occurrences and
// replaces only those subtrees; everything outside an \old still
// refers to the live (post-state) variable, exactly as written.
func resolveOldPred(b *binder, p ir.Pred) ir.Pred {
	switch n := p.(type) {
	case *ir.POld:
		return ghostPred(b, n.X)
	case *ir.PCmp:
		return &ir.PCmp{Op: n.Op, L: resolveOldTerm(b, n.L), R: resolveOldTerm(b, n.R)}
	case *ir.PApp:
		args := make([]ir.Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = resolveOldTerm(b, a)
		}
		return &ir.PApp{Pred: n.Pred, Args: args}
	case *ir.PConj:
		return &ir.PConj{L: resolveOldPred(b, n.L), R: resolveOldPred(b, n.R)}
	case *ir.PDisj:
		return &ir.PDisj{L: resolveOldPred(b, n.L), R: resolveOldPred(b, n.R)}
	case *ir.PImpl:
		return &ir.PImpl{L: resolveOldPred(b, n.L), R: resolveOldPred(b, n.R)}
	case *ir.PIff:
		return &ir.PIff{L: resolveOldPred(b, n.L), R: resolveOldPred(b, n.R)}
	case *ir.PXor:
		return &ir.PXor{L: resolveOldPred(b, n.L), R: resolveOldPred(b, n.R)}
	case *ir.PNeg:
		return &ir.PNeg{X: resolveOldPred(b, n.X)}
	case *ir.PQuant:
		return &ir.PQuant{Kind: n.Kind, Binder: n.Binder, Body: resolveOldPred(b, n.Body)}
	default: // PTrue, PFalse
		return p
	}
}

// resolveOldTerm is resolveOldPred's term-level counterpart.
func resolveOldTerm(b *binder, t ir.Term) ir.Term {
	switch n := t.(type) {
	case *ir.TOld:
		return ghostTerm(b, n.X)
	case *ir.TUnary:
		return &ir.TUnary{Op: n.Op, X: resolveOldTerm(b, n.X), Typ: n.Typ}
	case *ir.TBinary:
		return &ir.TBinary{Op: n.Op, L: resolveOldTerm(b, n.L), R: resolveOldTerm(b, n.R), Typ: n.Typ}
	case *ir.TCall:
		args := make([]ir.Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = resolveOldTerm(b, a)
		}
		return &ir.TCall{Fun: n.Fun, Args: args}
	case *ir.TUpdate:
		return &ir.TUpdate{Base: n.Base, Idx: resolveOldTerm(b, n.Idx), Value: resolveOldTerm(b, n.Value), Typ: n.Typ}
	case *ir.TSubscript:
		return &ir.TSubscript{Arr: n.Arr, Idx: resolveOldTerm(b, n.Idx), Elem: n.Elem}
	case *ir.TLength:
		if n.Sym != nil {
			return &ir.TLength{Arr: n.Arr, Length: n.Length, Sym: resolveOldTerm(b, n.Sym)}
		}
		return n
	default: // TVar, TConstInt, TConstFloat, TConstBool, TResult, TMember
		return t
	}
}

// ghostPred unconditionally substitutes every free variable beneath p
// with its entry-snapshot ghost; it implements the body of an \old,
// once we're already inside one.
func ghostPred(b *binder, p ir.Pred) ir.Pred {
	switch n := p.(type) {
	case *ir.PCmp:
		return &ir.PCmp{Op: n.Op, L: ghostTerm(b, n.L), R: ghostTerm(b, n.R)}
	case *ir.PApp:
		args := make([]ir.Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = ghostTerm(b, a)
		}
		return &ir.PApp{Pred: n.Pred, Args: args}
	case *ir.PConj:
		return &ir.PConj{L: ghostPred(b, n.L), R: ghostPred(b, n.R)}
	case *ir.PDisj:
		return &ir.PDisj{L: ghostPred(b, n.L), R: ghostPred(b, n.R)}
	case *ir.PImpl:
		return &ir.PImpl{L: ghostPred(b, n.L), R: ghostPred(b, n.R)}
	case *ir.PIff:
		return &ir.PIff{L: ghostPred(b, n.L), R: ghostPred(b, n.R)}
	case *ir.PXor:
		return &ir.PXor{L: ghostPred(b, n.L), R: ghostPred(b, n.R)}
	case *ir.PNeg:
		return &ir.PNeg{X: ghostPred(b, n.X)}
	case *ir.POld:
		return ghostPred(b, n.X) // nested \old collapses to one snapshot
	case *ir.PQuant:
		return &ir.PQuant{Kind: n.Kind, Binder: n.Binder, Body: ghostPred(b, n.Body)}
	default: // PTrue, PFalse
		return p
	}
}

func ghostTerm(b *binder, t ir.Term) ir.Term {
	switch n := t.(type) {
	case *ir.TVar:
		return &ir.TVar{V: b.ghostFor(n.V)}
	case *ir.TMember:
		return &ir.TVar{V: b.ghostFor(n.Struct.Members[n.Field])}
	case *ir.TSubscript:
		return &ir.TSubscript{Arr: b.ghostFor(n.Arr), Idx: ghostTerm(b, n.Idx), Elem: n.Elem}
	case *ir.TUpdate:
		return &ir.TUpdate{Base: b.ghostFor(n.Base), Idx: ghostTerm(b, n.Idx), Value: ghostTerm(b, n.Value), Typ: n.Typ}
	case *ir.TUnary:
		return &ir.TUnary{Op: n.Op, X: ghostTerm(b, n.X), Typ: n.Typ}
	case *ir.TBinary:
		return &ir.TBinary{Op: n.Op, L: ghostTerm(b, n.L), R: ghostTerm(b, n.R), Typ: n.Typ}
	case *ir.TCall:
		args := make([]ir.Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = ghostTerm(b, a)
		}
		return &ir.TCall{Fun: n.Fun, Args: args}
	case *ir.TOld:
		return ghostTerm(b, n.X) // nested \old collapses to one snapshot
	case *ir.TLength:
		if n.Sym != nil {
			return &ir.TLength{Arr: b.ghostFor(n.Arr), Length: n.Length, Sym: ghostTerm(b, n.Sym)}
		}
		return &ir.TLength{Arr: b.ghostFor(n.Arr), Length: n.Length}
	default: // TConstInt, TConstFloat, TConstBool, TResult
		return t
	}
}
