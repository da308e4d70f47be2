// Package check implements spec.md §4.H, the one global consistency
// gate the pipeline runs after struct flattening and before basic-path
// extraction: a function's ranking functions must be present, with the
// same cardinality, on every cut point that needs one, or absent from
// all of them. Predicate self/mutual recursion is already impossible
// by construction — internal/lower only registers a predicate in the
// global table once its own body has been lowered (spec.md §3
// lifecycle) — so there is nothing left for this package to re-check
// there.
package check

import (
	"verifier/internal/ir"
	"verifier/internal/verrors"
)

// Function validates one function's ranking-function cardinality
// (spec.md §4.H): ranking_cardinality(fn) must equal |lh.Rankings| for
// every loop head lh of fn. RankingArity of -1 (no `decreases` clause
// at all) is treated as an expected count of zero.
func Function(fn *ir.Function) *verrors.Error {
	expected := fn.RankingArity
	if expected < 0 {
		expected = 0
	}
	for _, b := range fn.Blocks {
		if b.Kind != ir.LoopHead {
			continue
		}
		if len(b.Rankings) != expected {
			return verrors.New(verrors.InconsistentRanking, b.Pos,
				"function %q declares %d ranking term(s) but a loop has %d",
				fn.Name, expected, len(b.Rankings))
		}
	}
	return nil
}

// Program runs Function over every function in prog, collecting every
// violation rather than stopping at the first (spec.md §7: the caller
// sees as many errors as possible per run).
func Program(prog *ir.Program) verrors.List {
	var errs verrors.List
	for _, fn := range prog.Functions {
		if err := Function(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
