// Package symbols implements the nested scope stack of local variables
// and the flat top-level tables for functions, structs, and predicates
// described in spec.md §4.B.
package symbols

import (
	"fmt"

	"verifier/internal/types"
)

// Variable is the disjoint sum of spec.md §3: LocalVariable,
// StructVariable (transient, erased by the flattener), MemberVariable,
// and QuantifiedVariable.
type Variable interface {
	VarName() string
	VarType() types.Type
	variable()
}

// Display is the user-visible source name, kept separate from the
// α-renamed Name used internally so diagnostics can still point at
// what the programmer wrote (spec.md §3: "user-visible names are
// preserved separately for diagnostics").
type LocalVariable struct {
	Name    string
	Display string
	Type    types.Type
}

func (v *LocalVariable) VarName() string     { return v.Name }
func (v *LocalVariable) VarType() types.Type { return v.Type }
func (v *LocalVariable) variable()           {}

// StructVariable exists only between parsing and the struct flattener
// (spec.md §4.F); it is never seen by the basic-path extractor.
type StructVariable struct {
	Name    string
	Struct  *types.StructType
	Members map[string]*LocalVariable // keyed by field name
	Order   []string                  // declaration order, matches Struct.Members
}

func (v *StructVariable) VarName() string    { return v.Name }
func (v *StructVariable) VarType() types.Type { return v.Struct }
func (v *StructVariable) variable()          {}

// NewStructVariable builds the member decomposition of a struct-typed
// variable eagerly, so 4.C's lowering of `s.field` can resolve directly
// to a LocalVariable member without touching the struct registry again.
func NewStructVariable(name string, st *types.StructType, rename func(field string) string) *StructVariable {
	sv := &StructVariable{Name: name, Struct: st, Members: map[string]*LocalVariable{}}
	for _, m := range st.Members {
		sv.Members[m.Name] = &LocalVariable{Name: rename(m.Name), Type: m.Type}
		sv.Order = append(sv.Order, m.Name)
	}
	return sv
}

type MemberVariable struct {
	Owner *StructVariable
	Name  string
	Type  types.Type
}

func (v *MemberVariable) VarName() string    { return v.Owner.Name + "." + v.Name }
func (v *MemberVariable) VarType() types.Type { return v.Type }
func (v *MemberVariable) variable()          {}

// QuantifiedVariable only ever appears bound inside a Quant predicate body.
type QuantifiedVariable struct {
	Name string
	Sort string // "bool", "int", or "real"
}

func (v *QuantifiedVariable) VarName() string { return v.Name }
func (v *QuantifiedVariable) VarType() types.Type {
	switch v.Sort {
	case "int":
		return types.Int
	case "real":
		return types.Float
	default:
		return types.Bool
	}
}
func (v *QuantifiedVariable) variable() {}

// Scope is one frame of the scope stack.
type Scope struct {
	vars   map[string]Variable
	parent *Scope
}

// Env is the scope stack plus \result/quantifier binding used while
// lowering a single function body or annotation.
type Env struct {
	top *Scope
}

func NewEnv() *Env {
	return &Env{top: &Scope{vars: map[string]Variable{}}}
}

func (e *Env) Push() {
	e.top = &Scope{vars: map[string]Variable{}, parent: e.top}
}

func (e *Env) Pop() {
	if e.top.parent == nil {
		panic("symbols: popped the outermost scope")
	}
	e.top = e.top.parent
}

// Declare adds v to the current (innermost) frame. It returns false if
// the name already exists in that same frame — callers turn that into
// a DuplicateName error.
func (e *Env) Declare(name string, v Variable) bool {
	if _, exists := e.top.vars[name]; exists {
		return false
	}
	e.top.vars[name] = v
	return true
}

// Resolve searches from the innermost frame outward.
func (e *Env) Resolve(name string) (Variable, bool) {
	for s := e.top; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// ResolveLocal looks only in the innermost frame (used to detect
// same-scope shadowing at declaration time).
func (e *Env) ResolveLocal(name string) (Variable, bool) {
	v, ok := e.top.vars[name]
	return v, ok
}

// NameKind distinguishes the three top-level namespaces that may not
// collide with each other (spec.md §4.B).
type NameKind int

const (
	KindFunction NameKind = iota
	KindStruct
	KindPredicate
)

func (k NameKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindStruct:
		return "struct"
	case KindPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// GlobalTable tracks the flat function/struct/predicate namespaces and
// rejects cross-kind collisions: a name used for a function cannot
// also name a struct or predicate.
type GlobalTable struct {
	names map[string]NameKind
}

func NewGlobalTable() *GlobalTable {
	return &GlobalTable{names: map[string]NameKind{}}
}

// Declare registers name under kind. It returns an error if the name
// is already taken by any kind, including the same one.
func (t *GlobalTable) Declare(name string, kind NameKind) error {
	if existing, ok := t.names[name]; ok {
		return fmt.Errorf("name %q already declared as a %s", name, existing)
	}
	t.names[name] = kind
	return nil
}

func (t *GlobalTable) Lookup(name string) (NameKind, bool) {
	k, ok := t.names[name]
	return k, ok
}
