// Package types implements the canonical, interned type system of
// spec.md §3/§4.A: atomic types are singletons; array, function, and
// predicate types are interned so that equality is pointer identity;
// struct types are interned nominally, by name, in the registry.
package types

import (
	"fmt"
	"strings"
)

type Type interface {
	String() string
	// Atomic reports whether this is one of Int/Float/Bool.
	Atomic() bool
}

// Atomic types are process-wide singletons.
type Atomic struct{ name string }

func (a *Atomic) String() string { return a.name }
func (a *Atomic) Atomic() bool   { return true }

var (
	Int   = &Atomic{"int"}
	Float = &Atomic{"float"}
	Bool  = &Atomic{"bool"}
)

// ArrayType is Array(elem, length). Length is nil for an unspecified
// (parameter) length, matching spec.md §3's `int | Unknown`.
type ArrayType struct {
	Elem   *Atomic
	Length *int
}

func (a *ArrayType) String() string {
	if a.Length == nil {
		return fmt.Sprintf("%s[]", a.Elem)
	}
	return fmt.Sprintf("%s[%d]", a.Elem, *a.Length)
}
func (a *ArrayType) Atomic() bool { return false }

// StructType is interned nominally: two StructTypes are the same type
// iff they came from the same Registry.GetStruct call for the same name.
type StructType struct {
	Name    string
	Members []Member // ordered, declaration order
}

type Member struct {
	Name string
	Type *Atomic
}

func (s *StructType) String() string { return s.Name }
func (s *StructType) Atomic() bool   { return false }

func (s *StructType) MemberType(name string) (*Atomic, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m.Type, true
		}
	}
	return nil, false
}

// FunType is Fun(returns, params).
type FunType struct {
	Returns []Type
	Params  []Type
}

func (f *FunType) String() string {
	return fmt.Sprintf("fun(%s) -> (%s)", joinTypes(f.Params), joinTypes(f.Returns))
}
func (f *FunType) Atomic() bool { return false }

// PredType is Pred(params).
type PredType struct {
	Params []Type
}

func (p *PredType) String() string {
	return fmt.Sprintf("pred(%s)", joinTypes(p.Params))
}
func (p *PredType) Atomic() bool { return false }

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Equal reports structural equality for atomic/array/fun/pred types,
// and nominal (by-name) equality for struct types.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	switch at := a.(type) {
	case *Atomic:
		bt, ok := b.(*Atomic)
		return ok && at == bt
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		if !ok || at.Elem != bt.Elem {
			return false
		}
		if (at.Length == nil) != (bt.Length == nil) {
			return false
		}
		return at.Length == nil || *at.Length == *bt.Length
	case *StructType:
		bt, ok := b.(*StructType)
		return ok && at.Name == bt.Name
	case *FunType:
		bt, ok := b.(*FunType)
		return ok && sameTypeList(at.Params, bt.Params) && sameTypeList(at.Returns, bt.Returns)
	case *PredType:
		bt, ok := b.(*PredType)
		return ok && sameTypeList(at.Params, bt.Params)
	}
	return false
}

func sameTypeList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Registry interns array, function, predicate, and struct types.
type Registry struct {
	arrays  map[string]*ArrayType
	funs    map[string]*FunType
	preds   map[string]*PredType
	structs map[string]*StructType
}

func NewRegistry() *Registry {
	return &Registry{
		arrays:  make(map[string]*ArrayType),
		funs:    make(map[string]*FunType),
		preds:   make(map[string]*PredType),
		structs: make(map[string]*StructType),
	}
}

func arrayKey(elem *Atomic, length *int) string {
	if length == nil {
		return elem.name + "[]"
	}
	return fmt.Sprintf("%s[%d]", elem.name, *length)
}

func (r *Registry) GetArray(elem *Atomic, length *int) *ArrayType {
	key := arrayKey(elem, length)
	if t, ok := r.arrays[key]; ok {
		return t
	}
	t := &ArrayType{Elem: elem, Length: length}
	r.arrays[key] = t
	return t
}

func (r *Registry) GetFun(returns, params []Type) *FunType {
	key := "fun:" + joinTypes(returns) + "|" + joinTypes(params)
	if t, ok := r.funs[key]; ok {
		return t
	}
	t := &FunType{Returns: returns, Params: params}
	r.funs[key] = t
	return t
}

func (r *Registry) GetPred(params []Type) *PredType {
	key := "pred:" + joinTypes(params)
	if t, ok := r.preds[key]; ok {
		return t
	}
	t := &PredType{Params: params}
	r.preds[key] = t
	return t
}

// DeclareStruct interns a new struct type. It returns an error string
// (rather than a verrors.Error, to avoid a dependency cycle) if the
// name is already declared; callers translate that into DuplicateName.
func (r *Registry) DeclareStruct(name string, members []Member) (*StructType, error) {
	if _, exists := r.structs[name]; exists {
		return nil, fmt.Errorf("struct %q already declared", name)
	}
	t := &StructType{Name: name, Members: members}
	r.structs[name] = t
	return t, nil
}

func (r *Registry) GetStruct(name string) (*StructType, bool) {
	t, ok := r.structs[name]
	return t, ok
}

// AtomicByName resolves a source type name to an atomic singleton, or
// nil if the name does not denote a built-in atomic type.
func AtomicByName(name string) *Atomic {
	switch name {
	case "int":
		return Int
	case "float":
		return Float
	case "bool":
		return Bool
	default:
		return nil
	}
}
