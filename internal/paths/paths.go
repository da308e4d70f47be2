// Package paths implements spec.md §4.G: given a flattened, annotated
// CFG it enumerates the basic paths between cut points — the
// loop-free straight-line segments the SMT backend turns into
// individual verification conditions.
//
// The spec calls the result "a lazy, finite sequence"; this is the one
// place in the front end where the standard library, not a pack
// dependency, is the idiomatic choice — no example repo's dependency
// set offers a generic pull-based sequence type, and Go 1.23's
// range-over-func iter.Seq is exactly that language feature, not a
// concern any third-party library exists to serve. See DESIGN.md.
package paths

import (
	"iter"

	"verifier/internal/ir"
)

// BasicPath is one loop-free route between two cut blocks of the same
// function, reducible to a single verification condition (spec.md
// §4.G). Head and Tail name the cut blocks the route connects; when
// they are the same loop head (a back edge), the consumer is expected
// to emit a termination check TailRanking ≺ HeadRanking.
type BasicPath struct {
	Head          *ir.Block
	Tail          *ir.Block
	HeadCondition ir.Pred
	HeadRanking   []ir.Term
	Statements    []ir.Stmt
	TailCondition ir.Pred
	TailRanking   []ir.Term
}

// Of enumerates every basic path of fn. Enumeration terminates because
// the subgraph with incoming edges at cut blocks deleted is acyclic by
// construction (loops only ever close a back edge onto a LoopHead,
// which is itself a cut block) — spec.md §4.G's "DFS with explicit
// backtracking" needs no visited set to avoid infinite recursion.
func Of(fn *ir.Function) iter.Seq[BasicPath] {
	return func(yield func(BasicPath) bool) {
		for _, h := range fn.Blocks {
			if !h.IsCutPoint() {
				continue
			}
			// A cut block's own statements are only ever the \old
			// ghost snapshots internal/annotate materializes there;
			// they run before any interior statement on every path
			// that starts at h, so they seed every such path's setup.
			var setup []ir.Stmt
			setup = append(setup, h.Stmts...)
			if !walk(h, h.Successors, setup, yield) {
				return
			}
		}
	}
}

func walk(h *ir.Block, frontier []*ir.Block, acc []ir.Stmt, yield func(BasicPath) bool) bool {
	for _, next := range frontier {
		if next.IsCutPoint() {
			path := BasicPath{
				Head:          h,
				Tail:          next,
				HeadCondition: ir.Conj(h.Assertions...),
				HeadRanking:   h.Rankings,
				Statements:    append([]ir.Stmt{}, acc...),
				TailCondition: ir.Conj(next.Assertions...),
				TailRanking:   next.Rankings,
			}
			if !yield(path) {
				return false
			}
			continue
		}
		nextAcc := append(append([]ir.Stmt{}, acc...), next.Stmts...)
		if !walk(h, next.Successors, nextAcc, yield) {
			return false
		}
	}
	return true
}

// Collect drains Of(fn) into a slice, for callers (tests, a
// non-streaming CLI report) that don't need lazy pull.
func Collect(fn *ir.Function) []BasicPath {
	var out []BasicPath
	for p := range Of(fn) {
		out = append(out, p)
	}
	return out
}
