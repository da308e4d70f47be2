package lower

import "verifier/internal/ir"

// FuncBundle carries one function's annotation clauses in lowered
// form, keyed to the blocks they belong on, but not yet attached:
// attaching them to fn.Entry/fn.Exit/each loop head, and rewriting
// every TOld/POld node into entry-snapshot references, is
// internal/annotate's job (spec.md §4.E).
type FuncBundle struct {
	Fn             *ir.Function
	Requires       []ir.Pred
	Decreases      []ir.Term
	Ensures        []ir.Pred
	LoopInvariants map[*ir.Block][]ir.Pred
	LoopVariants   map[*ir.Block][]ir.Term
}
