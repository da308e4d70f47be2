package lower

import (
	"verifier/internal/ast"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// resolveType implements spec.md §4.A's type resolution for a written
// TypeExpr: an atomic name, a struct name, or either made into an
// array of atomic element type.
func (l *Lowerer) resolveType(te *ast.TypeExpr) (types.Type, *verrors.Error) {
	var base types.Type
	if atomic := types.AtomicByName(te.Name); atomic != nil {
		base = atomic
	} else if st, ok := l.Registry.GetStruct(te.Name); ok {
		base = st
	} else {
		return nil, verrors.New(verrors.UnknownName, te.Position, "unknown type %q", te.Name)
	}
	if !te.IsArray {
		return base, nil
	}
	atomicBase, ok := base.(*types.Atomic)
	if !ok {
		return nil, verrors.New(verrors.TypeMismatch, te.Position, "array element type must be atomic, got %s", base)
	}
	return l.Registry.GetArray(atomicBase, te.Length), nil
}
