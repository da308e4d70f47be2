// Package lower implements spec components C (expression/term/predicate
// lowering) and D (the cursor-based CFG builder), which run interleaved
// as the parser's concrete syntax tree is walked: lowering a statement's
// sub-expressions (C) happens as part of appending that statement to the
// block under construction (D). Grounded on kanso/internal/ir/builder.go's
// cursor fields (currentBlock, breakTarget, continueTarget) and
// kanso/internal/semantic's type-checking visitor shape, adapted from a
// single executable-expression universe to the three disjoint universes
// (Expr/Term/Pred) this language's annotation sub-language requires.
package lower

import (
	"fmt"

	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// Lowerer carries the state shared across an entire program lowering
// pass: the interned type registry, the flat top-level namespace, and
// the running error list. One Lowerer lowers exactly one ast.Program.
type Lowerer struct {
	Registry   *types.Registry
	Globals    *symbols.GlobalTable
	Functions  map[string]*ir.Function
	Predicates map[string]*ir.Predicate
	Errors     verrors.List

	// Bundles holds one FuncBundle per successfully lowered function,
	// in declaration order; internal/annotate consumes these to attach
	// clauses to blocks and rewrite \old (spec.md §4.E).
	Bundles []*FuncBundle

	fresh     map[*ir.Function]int
	freshPred map[*ir.Predicate]int
	block     map[*ir.Function]int
}

func New() *Lowerer {
	return &Lowerer{
		Registry:   types.NewRegistry(),
		Globals:    symbols.NewGlobalTable(),
		Functions:  map[string]*ir.Function{},
		Predicates: map[string]*ir.Predicate{},
		fresh:      map[*ir.Function]int{},
		freshPred:  map[*ir.Predicate]int{},
		block:      map[*ir.Function]int{},
	}
}

// freshName produces the next α-renamed name for fn, monotonically
// increasing per function (spec.md §3, §9 "α-renaming").
func (l *Lowerer) freshName(fn *ir.Function, base string) string {
	n := l.fresh[fn]
	l.fresh[fn] = n + 1
	return fmt.Sprintf("%s~%d", base, n)
}

// freshPredName is freshName's counterpart for a predicate's parameter
// names; predicates have no block graph, only a flat parameter scope.
func (l *Lowerer) freshPredName(p *ir.Predicate, base string) string {
	n := l.freshPred[p]
	l.freshPred[p] = n + 1
	return fmt.Sprintf("%s~%d", base, n)
}

func (l *Lowerer) newBlock(fn *ir.Function, kind ir.BlockKind, pos ast.Position) *ir.Block {
	id := l.block[fn]
	l.block[fn] = id + 1
	b := &ir.Block{ID: id, Kind: kind, Pos: pos}
	fn.Blocks = append(fn.Blocks, b)
	return b
}

func addEdge(from, to *ir.Block) {
	from.Successors = append(from.Successors, to)
	to.Predecessors = append(to.Predecessors, from)
}

// LowerProgram lowers an entire parsed source file. Structs are
// interned first (member access needs the registry populated);
// predicates are lowered next, each registered only once its own body
// has been fully lowered so a predicate can never see itself in the
// global table (spec.md §3 lifecycle — this is what turns a
// self-referencing predicate into an UnknownName error rather than
// infinite recursion). Functions are pre-declared as a batch — so
// mutually recursive functions can call each other regardless of
// textual order — and only then have their bodies lowered.
func (l *Lowerer) LowerProgram(prog *ast.Program) (*ir.Program, verrors.List) {
	out := &ir.Program{Structs: map[string]*types.StructType{}}

	for _, sd := range prog.Structs {
		if st := l.lowerStruct(sd); st != nil {
			out.Structs[st.Name] = st
		}
	}

	for _, pd := range prog.Predicates {
		if p := l.lowerPredicateDecl(pd); p != nil {
			l.Predicates[p.Name] = p
			out.Predicates = append(out.Predicates, p)
		}
	}

	fns := make([]*ir.Function, len(prog.Functions))
	for i, fd := range prog.Functions {
		fns[i] = l.predeclareFunction(fd)
	}
	for i, fd := range prog.Functions {
		fn := fns[i]
		if fn == nil {
			continue
		}
		if l.lowerFunctionBody(fd, fn) {
			out.Functions = append(out.Functions, fn)
		}
	}

	return out, l.Errors
}

func (l *Lowerer) errf(kind verrors.Kind, pos ast.Position, format string, args ...interface{}) {
	l.Errors = append(l.Errors, verrors.New(kind, pos, format, args...))
}

func (l *Lowerer) lowerStruct(sd *ast.StructDecl) *types.StructType {
	if existing, ok := l.Globals.Lookup(sd.Name); ok {
		l.errf(verrors.DuplicateName, sd.Position, "%q already declared as a %s", sd.Name, existing)
		return nil
	}
	var members []types.Member
	seen := map[string]bool{}
	ok := true
	for _, f := range sd.Fields {
		if seen[f.Name] {
			l.errf(verrors.DuplicateName, f.Position, "duplicate field %q in struct %q", f.Name, sd.Name)
			ok = false
			continue
		}
		seen[f.Name] = true
		ft, err := l.resolveType(f.Type)
		if err != nil {
			l.Errors = append(l.Errors, err)
			ok = false
			continue
		}
		atomic, isAtomic := ft.(*types.Atomic)
		if !isAtomic {
			l.errf(verrors.TypeMismatch, f.Position, "struct field %q must be atomic, got %s", f.Name, ft)
			ok = false
			continue
		}
		members = append(members, types.Member{Name: f.Name, Type: atomic})
	}
	if !ok {
		return nil
	}
	st, err := l.Registry.DeclareStruct(sd.Name, members)
	if err != nil {
		l.errf(verrors.DuplicateName, sd.Position, "%s", err)
		return nil
	}
	if err := l.Globals.Declare(sd.Name, symbols.KindStruct); err != nil {
		l.errf(verrors.DuplicateName, sd.Position, "%s", err)
	}
	return st
}
