package lower

import (
	"fmt"

	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// declareVar builds the Variable for one parameter or return slot,
// decomposing a struct-typed one into a StructVariable whose members
// already carry their final α-renamed names (spec.md §4.F's flattener
// only needs to move these into place, not invent new ones).
func (l *Lowerer) declareVar(srcName string, t types.Type, rename func(field string) string) symbols.Variable {
	if st, ok := t.(*types.StructType); ok {
		return symbols.NewStructVariable(srcName, st, rename)
	}
	return &symbols.LocalVariable{Name: rename(""), Display: srcName, Type: t}
}

// predeclareFunction resolves and registers a function's signature —
// without touching its body — so that mutually recursive functions can
// reference each other's return types regardless of declaration order
// (spec.md §3: "functions may [recurse]; their body sees the entry in
// the table the moment the signature is fixed").
func (l *Lowerer) predeclareFunction(fd *ast.FunctionDecl) *ir.Function {
	if existing, ok := l.Globals.Lookup(fd.Name); ok {
		l.errf(verrors.DuplicateName, fd.Position, "%q already declared as a %s", fd.Name, existing)
		return nil
	}

	fn := &ir.Function{Name: fd.Name, Pos: fd.Position, RankingArity: -1}
	ok := true

	seen := map[string]bool{}
	for _, p := range fd.Params {
		if seen[p.Name] {
			l.errf(verrors.DuplicateName, p.Position, "duplicate parameter %q", p.Name)
			ok = false
			continue
		}
		seen[p.Name] = true
		t, err := l.resolveType(p.Type)
		if err != nil {
			l.Errors = append(l.Errors, err)
			ok = false
			continue
		}
		pname := p.Name
		v := l.declareVar(pname, t, func(field string) string {
			if field == "" {
				return l.freshName(fn, pname)
			}
			return l.freshName(fn, pname+"."+field)
		})
		fn.Params = append(fn.Params, v)
	}

	switch len(fd.ReturnTypes) {
	case 0:
		// void
	case 1:
		rt, err := l.resolveType(fd.ReturnTypes[0])
		if err != nil {
			l.Errors = append(l.Errors, err)
			ok = false
		} else {
			v := l.declareVar("result", rt, func(field string) string {
				if field == "" {
					return l.freshName(fn, "result")
				}
				return l.freshName(fn, "result."+field)
			})
			fn.Returns = []ir.ReturnSlot{{Var: v}}
		}
	default:
		for i, rte := range fd.ReturnTypes {
			rt, err := l.resolveType(rte)
			if err != nil {
				l.Errors = append(l.Errors, err)
				ok = false
				continue
			}
			if _, isStruct := rt.(*types.StructType); isStruct {
				l.errf(verrors.TypeMismatch, rte.Position, "a multi-value return cannot include a struct type")
				ok = false
				continue
			}
			base := fmt.Sprintf("result%d", i)
			v := l.declareVar(base, rt, func(field string) string { return l.freshName(fn, base) })
			fn.Returns = append(fn.Returns, ir.ReturnSlot{Var: v})
		}
	}

	if !ok {
		return nil
	}
	if err := l.Globals.Declare(fd.Name, symbols.KindFunction); err != nil {
		l.errf(verrors.DuplicateName, fd.Position, "%s", err)
		return nil
	}
	l.Functions[fd.Name] = fn
	return fn
}

// lowerPredicateDecl fully lowers a predicate's body and only then
// registers it in the global table, so a predicate can never resolve
// its own name: a direct or mutual self-reference surfaces as
// UnknownName at the point of use (spec.md §8 scenario 5).
func (l *Lowerer) lowerPredicateDecl(pd *ast.PredicateDecl) *ir.Predicate {
	if existing, ok := l.Globals.Lookup(pd.Name); ok {
		l.errf(verrors.DuplicateName, pd.Position, "%q already declared as a %s", pd.Name, existing)
		return nil
	}

	pred := &ir.Predicate{Name: pd.Name, Pos: pd.Position}
	env := symbols.NewEnv()
	ok := true
	seen := map[string]bool{}
	for _, p := range pd.Params {
		if seen[p.Name] {
			l.errf(verrors.DuplicateName, p.Position, "duplicate parameter %q", p.Name)
			ok = false
			continue
		}
		seen[p.Name] = true
		t, err := l.resolveType(p.Type)
		if err != nil {
			l.Errors = append(l.Errors, err)
			ok = false
			continue
		}
		pname := p.Name
		v := l.declareVar(pname, t, func(field string) string {
			if field == "" {
				return l.freshPredName(pred, pname)
			}
			return l.freshPredName(pred, pname+"."+field)
		})
		env.Declare(pname, v)
		pred.Params = append(pred.Params, v)
	}
	if !ok {
		return nil
	}

	body, berr := l.lowerPred(pd.Body, env, ctxPredicateBody, nil)
	if berr != nil {
		l.Errors = append(l.Errors, berr)
		return nil
	}
	pred.Body = body

	if err := l.Globals.Declare(pd.Name, symbols.KindPredicate); err != nil {
		l.errf(verrors.DuplicateName, pd.Position, "%s", err)
		return nil
	}
	return pred
}
