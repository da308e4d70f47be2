// Package ir is the typed, struct-free (after flattening), control-flow-
// graph intermediate representation handed to the basic-path extractor
// and, eventually, the SMT backend (spec.md §3, §6).
//
// Three parallel, disjoint expression trees are defined here — Expr
// (executable), Term (logical term), and Pred (predicate) — sharing no
// node kinds, per spec.md §9's design note: "a predicate appeared
// where an expression was required" is a construction-time
// impossibility rather than a runtime-tag check.
package ir

import (
	"verifier/internal/symbols"
	"verifier/internal/types"
)

// ---- Executable expressions ----

type Expr interface {
	Type() types.Type
	exprNode()
}

type EVar struct {
	V symbols.Variable
}

func (e *EVar) Type() types.Type { return e.V.VarType() }
func (*EVar) exprNode()          {}

type EConstInt struct{ Value int64 }

func (e *EConstInt) Type() types.Type { return types.Int }
func (*EConstInt) exprNode()          {}

type EConstFloat struct{ Value float64 }

func (e *EConstFloat) Type() types.Type { return types.Float }
func (*EConstFloat) exprNode()          {}

type EConstBool struct{ Value bool }

func (e *EConstBool) Type() types.Type { return types.Bool }
func (*EConstBool) exprNode()          {}

// ECall is a call to a user function in expression position; the
// callee must have exactly one return value (spec.md §4.C).
type ECall struct {
	Fun  *Function
	Args []Expr
}

func (e *ECall) Type() types.Type { return e.Fun.Returns[0].Var.VarType() }
func (*ECall) exprNode()          {}

type ESubscript struct {
	Arr  symbols.Variable // always a plain array variable
	Idx  Expr
	Elem *types.Atomic
}

func (e *ESubscript) Type() types.Type { return e.Elem }
func (*ESubscript) exprNode()          {}

// EMember is a read of a struct variable's field, decomposed at
// lowering time (spec.md §4.C) rather than left as a whole-struct
// value; the struct flattener validates that no whole-struct EVar
// escapes outside this wrapper, a Param, or a Return (spec.md §4.F.4).
type EMember struct {
	Struct *symbols.StructVariable
	Field  string
	Typ    *types.Atomic
}

func (e *EMember) Type() types.Type { return e.Typ }
func (*EMember) exprNode()          {}

type EUnary struct {
	Op  string // "-", "!"
	X   Expr
	Typ types.Type
}

func (e *EUnary) Type() types.Type { return e.Typ }
func (*EUnary) exprNode()          {}

type EBinary struct {
	Op   string
	L, R Expr
	Typ  types.Type
}

func (e *EBinary) Type() types.Type { return e.Typ }
func (*EBinary) exprNode()          {}

// ---- Logical terms ----

type Term interface {
	Type() types.Type
	termNode()
}

type TVar struct{ V symbols.Variable }

func (t *TVar) Type() types.Type { return t.V.VarType() }
func (*TVar) termNode()          {}

type TConstInt struct{ Value int64 }

func (t *TConstInt) Type() types.Type { return types.Int }
func (*TConstInt) termNode()          {}

type TConstFloat struct{ Value float64 }

func (t *TConstFloat) Type() types.Type { return types.Float }
func (*TConstFloat) termNode()          {}

// TConstBool lets a bare boolean-valued term (a bool variable, a bool
// member, or a call returning bool) be compared for equality so it can
// be lifted into a predicate with PCmp; Pred's own PTrue/PFalse cover
// the predicate-position literal instead.
type TConstBool struct{ Value bool }

func (t *TConstBool) Type() types.Type { return types.Bool }
func (*TConstBool) termNode()          {}

// TResult is \result, only legal inside a postcondition's terms.
// For a single struct return, \result.field sets V to that member's
// variable; a bare \result of a struct return, or any \result of a
// function with more than one return value, is rejected by
// internal/lower with AmbiguousResult before this node is built.
type TResult struct{ V symbols.Variable }

func (t *TResult) Type() types.Type { return t.V.VarType() }
func (*TResult) termNode()          {}

// TLength is \length(a); a's element type doesn't matter, the result
// is always Int. When a's declared length is Unknown the length is a
// symbolic quantity carried by Sym rather than a literal (see
// SPEC_FULL.md's "supplemented features").
type TLength struct {
	Arr    symbols.Variable
	Length *int // nil when symbolic (Unknown declared length)
	Sym    Term // non-nil iff Length is nil: a symbolic length term
}

func (t *TLength) Type() types.Type { return types.Int }
func (*TLength) termNode()          {}

// TOld is \old(t). It is only ever constructed transiently during
// lowering; the annotation binder (internal/annotate) rewrites every
// TOld node into direct references to entry-snapshot variables before
// the term is attached to a block (spec.md §4.E).
type TOld struct{ X Term }

func (t *TOld) Type() types.Type { return t.X.Type() }
func (*TOld) termNode()          {}

// TUpdate is the functional array update {Base \with [Idx] = Value}.
type TUpdate struct {
	Base  symbols.Variable
	Idx   Term
	Value Term
	Typ   types.Type
}

func (t *TUpdate) Type() types.Type { return t.Typ }
func (*TUpdate) termNode()          {}

// TSubscript mirrors ESubscript: an array element read lifted into the
// term language so a branch condition that reads an array can be
// carried into the Pred attached to the edge it produced.
type TSubscript struct {
	Arr  symbols.Variable
	Idx  Term
	Elem *types.Atomic
}

func (t *TSubscript) Type() types.Type { return t.Elem }
func (*TSubscript) termNode()          {}

type TMember struct {
	Struct *symbols.StructVariable
	Field  string
	Typ    *types.Atomic
}

func (t *TMember) Type() types.Type { return t.Typ }
func (*TMember) termNode()          {}

type TUnary struct {
	Op  string
	X   Term
	Typ types.Type
}

func (t *TUnary) Type() types.Type { return t.Typ }
func (*TUnary) termNode()          {}

type TBinary struct {
	Op   string
	L, R Term
	Typ  types.Type
}

func (t *TBinary) Type() types.Type { return t.Typ }
func (*TBinary) termNode()          {}

// TCall is a call to a pure user function from within a term.
type TCall struct {
	Fun  *Function
	Args []Term
}

func (t *TCall) Type() types.Type { return t.Fun.Returns[0].Var.VarType() }
func (*TCall) termNode()          {}

// ---- Predicates ----

type Pred interface {
	predNode()
}

type PTrue struct{}

func (*PTrue) predNode() {}

type PFalse struct{}

func (*PFalse) predNode() {}

// PCmp is a single relational comparison; a chained comparison
// a < b < c desugars (in internal/lower) into PConj(PCmp(a<b), PCmp(b<c))
// sharing the Term for b (spec.md §4.C).
type PCmp struct {
	Op   string // "<", "<=", ">", ">=", "==", "!="
	L, R Term
}

func (*PCmp) predNode() {}

// PApp is a call to another predicate; predicates may not recurse,
// self or mutually (spec.md §3 lifecycle, enforced by registration
// order in internal/lower).
type PApp struct {
	Pred *Predicate
	Args []Term
}

func (*PApp) predNode() {}

// POld mirrors TOld for whole sub-predicates containing \old terms; it
// is rewritten away by internal/annotate the same way TOld is.
type POld struct{ X Pred }

func (*POld) predNode() {}

type PConj struct{ L, R Pred }

func (*PConj) predNode() {}

type PDisj struct{ L, R Pred }

func (*PDisj) predNode() {}

type PImpl struct{ L, R Pred }

func (*PImpl) predNode() {}

type PIff struct{ L, R Pred }

func (*PIff) predNode() {}

type PNeg struct{ X Pred }

func (*PNeg) predNode() {}

type PXor struct{ L, R Pred }

func (*PXor) predNode() {}

type PQuant struct {
	Kind   string // "forall" or "exists"
	Binder *symbols.QuantifiedVariable
	Body   Pred
}

func (*PQuant) predNode() {}

// Conj folds a list of predicates into a right-associated conjunction,
// returning PTrue for an empty list.
func Conj(preds ...Pred) Pred {
	if len(preds) == 0 {
		return &PTrue{}
	}
	result := preds[len(preds)-1]
	for i := len(preds) - 2; i >= 0; i-- {
		result = &PConj{L: preds[i], R: result}
	}
	return result
}
