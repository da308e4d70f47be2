package annotate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/ir"
	"verifier/internal/lower"
	"verifier/internal/parser"
)

func bundleFor(t *testing.T, src, fnName string) *lower.FuncBundle {
	t.Helper()
	prog, scanErrs, parseErrs := parser.ParseSource("test.v", src)
	require.Empty(t, scanErrs)
	require.Empty(t, parseErrs)
	l := lower.New()
	_, errs := l.LowerProgram(prog)
	require.False(t, errs.HasErrors(), "lower errors: %v", errs)
	for _, b := range l.Bundles {
		if b.Fn.Name == fnName {
			return b
		}
	}
	t.Fatalf("no bundle for function %q", fnName)
	return nil
}

func TestBindAttachesRequiresAndEnsures(t *testing.T) {
	bundle := bundleFor(t, `
		requires x >= 0;
		ensures \result >= x;
		int inc(int x) {
			return x + 1;
		}
	`, "inc")
	Bind(bundle)
	fn := bundle.Fn
	assert.Len(t, fn.Entry.Assertions, 1)
	assert.Len(t, fn.Exit.Assertions, 1)
	assert.Equal(t, -1, fn.RankingArity)
}

func TestBindSetsRankingArity(t *testing.T) {
	bundle := bundleFor(t, `
		decreases n;
		int f(int n) {
			return n;
		}
	`, "f")
	Bind(bundle)
	assert.Equal(t, 1, bundle.Fn.RankingArity)
	assert.Len(t, bundle.Fn.Entry.Rankings, 1)
}

func TestBindRewritesOldIntoGhostSnapshot(t *testing.T) {
	bundle := bundleFor(t, `
		ensures \result == \old(n) + 1;
		int bump(int n) {
			n = n + 1;
			return n;
		}
	`, "bump")
	Bind(bundle)
	fn := bundle.Fn

	// the \old(n) reference must have been rewritten away: no POld/TOld
	// node should remain reachable from the exit assertions.
	for _, p := range fn.Exit.Assertions {
		assert.NotContains(t, predString(p), "TOld")
	}

	// a ghost snapshot assignment for n must have been placed in the
	// entry block, which holds no body statements of its own.
	require.NotEmpty(t, fn.Entry.Stmts)
	snap, ok := fn.Entry.Stmts[0].(*ir.SAssign)
	require.True(t, ok)
	assert.Contains(t, snap.LHS.VarName(), "_old")
}

// predString lists the type names of every ir node reachable from p
// (not descending into functions, predicates, or blocks): good enough
// to assert the absence of a node kind by name.
func predString(p ir.Pred) string {
	var b strings.Builder
	var walk func(v reflect.Value)
	walk = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Interface:
			if !v.IsNil() {
				walk(v.Elem())
			}
		case reflect.Ptr:
			elem := v.Type().Elem()
			if v.IsNil() || elem.PkgPath() != "verifier/internal/ir" || elem.Name() == "Function" || elem.Name() == "Predicate" || elem.Name() == "Block" {
				return
			}
			b.WriteString(elem.Name() + " ")
			walk(v.Elem())
		case reflect.Struct:
			for i := 0; i < v.NumField(); i++ {
				walk(v.Field(i))
			}
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i))
			}
		}
	}
	walk(reflect.ValueOf(p))
	return b.String()
}
