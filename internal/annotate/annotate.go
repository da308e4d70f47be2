// Package annotate implements spec.md §4.E: it takes the lowered, but
// not yet attached, contract/invariant/ranking clauses produced by
// internal/lower and (1) attaches them to the right blocks — Entry's
// requires/decreases, Exit's ensures, each loop head's invariant/
// variant — and (2) rewrites every \old node into a reference to a
// ghost variable snapshotting its operand at function entry, since
// \old is otherwise meaningless once a term has been detached from the
// syntax tree it was parsed from.
//
// Grounded the same way kanso's internal/ir/builder.go attaches a
// function's require/ensure statements during IR construction
// (buildRequireStatement and its ensure/invariant counterparts) and
// kanso/internal/semantic/context.go threads binding state through a
// single pass — adapted here into a pass that runs strictly after
// internal/lower, once every clause already has its final Pred/Term
// form, because \old's snapshot set cannot be known until the whole
// clause has been typed.
package annotate

import (
	"fmt"

	"verifier/internal/ir"
	"verifier/internal/lower"
	"verifier/internal/symbols"
)

// binder accumulates the ghost variables a function's \old usages
// need and the statements that materialize them, so every \old(x)
// anywhere in the function shares the same x_old regardless of which
// clause mentioned it first.
type binder struct {
	ghosts  map[symbols.Variable]symbols.Variable
	assigns []ir.Stmt
	counter int
}

func newBinder() *binder {
	return &binder{ghosts: map[symbols.Variable]symbols.Variable{}}
}

func (b *binder) ghostFor(v symbols.Variable) symbols.Variable {
	if g, ok := b.ghosts[v]; ok {
		return g
	}
	g := &symbols.LocalVariable{
		Name:    fmt.Sprintf("%s_old~%d", v.VarName(), b.counter),
		Display: displayOf(v) + "_old",
		Type:    v.VarType(),
	}
	b.counter++
	b.ghosts[v] = g
	b.assigns = append(b.assigns, &ir.SAssign{LHS: g, RHS: &ir.EVar{V: v}})
	return g
}

func displayOf(v symbols.Variable) string {
	if lv, ok := v.(*symbols.LocalVariable); ok {
		return lv.Display
	}
	return v.VarName()
}

// Bind attaches one function's contract to its blocks and resolves
// every \old it contains. It must run once per FuncBundle that
// lower.LowerProgram leaves in Lowerer.Bundles, before internal/flatten
// and internal/check.
func Bind(bundle *lower.FuncBundle) {
	fn := bundle.Fn
	b := newBinder()

	ensures := make([]ir.Pred, len(bundle.Ensures))
	for i, p := range bundle.Ensures {
		ensures[i] = resolveOldPred(b, p)
	}

	invariants := make(map[*ir.Block][]ir.Pred, len(bundle.LoopInvariants))
	for head, preds := range bundle.LoopInvariants {
		out := make([]ir.Pred, len(preds))
		for i, p := range preds {
			out[i] = resolveOldPred(b, p)
		}
		invariants[head] = out
	}

	// Requires, Decreases, and loop variants can never contain \old —
	// internal/lower's clause-context gating rejects it before this
	// pass ever sees such a clause — so they pass through untouched.
	fn.Entry.Stmts = append(append([]ir.Stmt{}, b.assigns...), fn.Entry.Stmts...)
	fn.Entry.Assertions = bundle.Requires
	fn.Entry.Rankings = bundle.Decreases
	if len(bundle.Decreases) > 0 {
		fn.RankingArity = len(bundle.Decreases)
	} else {
		fn.RankingArity = -1
	}

	fn.Exit.Assertions = ensures

	for head, preds := range invariants {
		head.Assertions = preds
	}
	for head, terms := range bundle.LoopVariants {
		head.Rankings = terms
	}
}
