package ir

import (
	"verifier/internal/ast"
	"verifier/internal/symbols"
	"verifier/internal/types"
)

// ReturnSlot names one flattened return value; pre-flattening a struct
// return occupies a single ReturnSlot whose Var is a *StructVariable,
// which internal/flatten expands into one ReturnSlot per member.
type ReturnSlot struct {
	Var symbols.Variable
}

// Function is a lowered, annotated (and, after internal/flatten, also
// flattened) function, exposing exactly what spec.md §6 says the SMT
// backend needs: name, flattened parameters, flattened returns, the
// precondition/postcondition blocks, and the block DAG.
type Function struct {
	Name    string
	Params  []symbols.Variable // LocalVariable post-flatten, may hold *StructVariable pre-flatten
	Returns []ReturnSlot        // \result storage, post-flatten always atomic
	Entry   *Block              // the unique precondition block
	Exit    *Block              // the unique postcondition block
	Blocks  []*Block            // every block created for the function, in creation order; blocks no path from Entry reaches are not removed
	Pos     ast.Position

	// RankingArity caches |Entry.Rankings| once the annotation binder
	// has run, used by internal/check (spec.md §4.H). -1 = not a
	// termination-checked function (no `decreases` clause at all).
	RankingArity int
}

func (f *Function) ParamTypes() []types.Type {
	ts := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		ts[i] = p.VarType()
	}
	return ts
}

func (f *Function) ReturnTypes() []types.Type {
	ts := make([]types.Type, len(f.Returns))
	for i, r := range f.Returns {
		ts[i] = r.Var.VarType()
	}
	return ts
}

// Predicate is a lowered (and flattened) predicate definition.
type Predicate struct {
	Name   string
	Params []symbols.Variable
	Body   Pred
	Pos    ast.Position
}

func (p *Predicate) ParamTypes() []types.Type {
	ts := make([]types.Type, len(p.Params))
	for i, v := range p.Params {
		ts[i] = v.VarType()
	}
	return ts
}

// Program is the full IR handed to the basic-path extractor and, from
// there, the SMT backend (spec.md §6).
type Program struct {
	Functions  []*Function
	Predicates []*Predicate
	Structs    map[string]*types.StructType
}

func (p *Program) FindFunction(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (p *Program) FindPredicate(name string) *Predicate {
	for _, pr := range p.Predicates {
		if pr.Name == name {
			return pr
		}
	}
	return nil
}
