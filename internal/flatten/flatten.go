// Package flatten implements spec.md §4.F: struct-typed parameters and
// return values are erased in favor of one flattened entry per member,
// since the basic-path extractor and SMT backend only ever deal in
// atomics. Struct VALUES inside a function body are already gone by
// the time this package runs — internal/lower expands a struct-valued
// call argument at the call site (lowerCallArgs) and decomposes every
// whole-struct assignment into member-wise assignments (emitStructCopy)
// as it builds the CFG — so flatten's only remaining job is the
// signature lists, plus a validation walk confirming that invariant
// actually held.
//
// Grounded on kanso/internal/ir's lowering of struct locals into
// per-field SSA values (the same "a struct is only ever a bag of
// scalars once it reaches the backend" idea), adapted here into a
// dedicated pass because this front end keeps StructVariable alive
// through CFG construction for the sake of clean member-access
// lowering.
package flatten

import (
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/verrors"
)

// Program flattens every function and predicate signature in prog.
// It must run after internal/annotate (so the clauses it validates
// include requires/ensures/invariants) and before internal/check.
func Program(prog *ir.Program) {
	for _, fn := range prog.Functions {
		Function(fn)
	}
	for _, p := range prog.Predicates {
		PredicateParams(p)
	}
}

// PredicateParams flattens one predicate's parameter list in place and
// returns it, for callers (internal/pipeline) that want a per-
// definition recovery boundary around it like Function gets.
func PredicateParams(p *ir.Predicate) []symbols.Variable {
	p.Params = flattenVars(p.Params)
	return p.Params
}

// Function rewrites fn.Params and fn.Returns in place, expanding any
// *symbols.StructVariable into its ordered members, then validates
// that no whole-struct variable reference survived anywhere else in
// the function.
func Function(fn *ir.Function) {
	fn.Params = flattenVars(fn.Params)
	fn.Returns = flattenReturns(fn.Returns)
	validateFunction(fn)
}

func flattenVars(vars []symbols.Variable) []symbols.Variable {
	out := make([]symbols.Variable, 0, len(vars))
	for _, v := range vars {
		if sv, ok := v.(*symbols.StructVariable); ok {
			for _, field := range sv.Order {
				out = append(out, sv.Members[field])
			}
			continue
		}
		out = append(out, v)
	}
	return out
}

func flattenReturns(returns []ir.ReturnSlot) []ir.ReturnSlot {
	out := make([]ir.ReturnSlot, 0, len(returns))
	for _, r := range returns {
		if sv, ok := r.Var.(*symbols.StructVariable); ok {
			for _, field := range sv.Order {
				out = append(out, ir.ReturnSlot{Var: sv.Members[field]})
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// validateFunction walks every statement, assertion, and ranking term
// reachable from fn's blocks and raises InternalInvariant (spec.md
// §4.F.4) if a whole-struct variable appears anywhere outside a
// Param/Return/Member/EMember/TMember/SMemberAssign context. This
// should never trigger given internal/lower's eager decomposition; it
// exists to catch a future regression in that invariant, not a case
// this front end is expected to hit on well-formed input.
func validateFunction(fn *ir.Function) {
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			checkStmt(fn, s)
		}
		for _, p := range b.Assertions {
			checkPred(fn, p)
		}
		for _, t := range b.Rankings {
			checkTerm(fn, t)
		}
	}
}

func checkStmt(fn *ir.Function, s ir.Stmt) {
	switch n := s.(type) {
	case *ir.SAssign:
		checkVar(fn, n.LHS)
		checkExpr(fn, n.RHS)
	case *ir.SArrayAssign:
		checkVar(fn, n.Arr)
		checkExpr(fn, n.Idx)
		checkExpr(fn, n.RHS)
	case *ir.SMemberAssign:
		// n.Struct names the struct being updated through, which is
		// exactly the legal context for a *StructVariable to appear in.
		checkExpr(fn, n.RHS)
	case *ir.SAssume:
		checkPred(fn, n.P)
	case *ir.SAssert:
		checkPred(fn, n.P)
	case *ir.SCall:
		for _, a := range n.Args {
			checkExpr(fn, a)
		}
		for _, v := range n.Binds {
			checkVar(fn, v)
		}
	}
}

func checkExpr(fn *ir.Function, e ir.Expr) {
	switch n := e.(type) {
	case *ir.EVar:
		checkVar(fn, n.V)
	case *ir.ECall:
		for _, a := range n.Args {
			checkExpr(fn, a)
		}
	case *ir.ESubscript:
		checkVar(fn, n.Arr)
		checkExpr(fn, n.Idx)
	case *ir.EMember:
		// legal: a struct variable named only to select one field from it
	case *ir.EUnary:
		checkExpr(fn, n.X)
	case *ir.EBinary:
		checkExpr(fn, n.L)
		checkExpr(fn, n.R)
	}
}

func checkTerm(fn *ir.Function, t ir.Term) {
	switch n := t.(type) {
	case *ir.TVar:
		checkVar(fn, n.V)
	case *ir.TCall:
		for _, a := range n.Args {
			checkTerm(fn, a)
		}
	case *ir.TSubscript:
		checkVar(fn, n.Arr)
		checkTerm(fn, n.Idx)
	case *ir.TMember:
		// legal, see checkExpr's EMember case
	case *ir.TUnary:
		checkTerm(fn, n.X)
	case *ir.TBinary:
		checkTerm(fn, n.L)
		checkTerm(fn, n.R)
	case *ir.TUpdate:
		checkVar(fn, n.Base)
		checkTerm(fn, n.Idx)
		checkTerm(fn, n.Value)
	case *ir.TLength:
		checkVar(fn, n.Arr)
		if n.Sym != nil {
			checkTerm(fn, n.Sym)
		}
	case *ir.TOld:
		checkTerm(fn, n.X)
	}
}

func checkPred(fn *ir.Function, p ir.Pred) {
	switch n := p.(type) {
	case *ir.PCmp:
		checkTerm(fn, n.L)
		checkTerm(fn, n.R)
	case *ir.PApp:
		for _, a := range n.Args {
			checkTerm(fn, a)
		}
	case *ir.POld:
		checkPred(fn, n.X)
	case *ir.PConj:
		checkPred(fn, n.L)
		checkPred(fn, n.R)
	case *ir.PDisj:
		checkPred(fn, n.L)
		checkPred(fn, n.R)
	case *ir.PImpl:
		checkPred(fn, n.L)
		checkPred(fn, n.R)
	case *ir.PIff:
		checkPred(fn, n.L)
		checkPred(fn, n.R)
	case *ir.PXor:
		checkPred(fn, n.L)
		checkPred(fn, n.R)
	case *ir.PNeg:
		checkPred(fn, n.X)
	case *ir.PQuant:
		checkPred(fn, n.Body)
	}
}

func checkVar(fn *ir.Function, v symbols.Variable) {
	if _, ok := v.(*symbols.StructVariable); ok {
		verrors.Internal(fn.Pos, "whole-struct variable %q escaped flattening in function %q", v.VarName(), fn.Name)
	}
}
