package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, scanErrs, parseErrs := ParseSource("test.v", src)
	require.Empty(t, scanErrs, "scan errors: %v", scanErrs)
	require.Empty(t, parseErrs, "parse errors: %v", parseErrs)
	return prog
}

func TestParseSimpleFunction(t *testing.T) {
	prog := parseOK(t, `
		requires x >= 0;
		ensures \result >= 0;
		int abs(int x) {
			if (x < 0) {
				return -x;
			}
			return x;
		}
	`)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "abs", fn.Name)
	assert.Len(t, fn.Contract.Requires, 1)
	assert.Len(t, fn.Contract.Ensures, 1)
	assert.Len(t, fn.Params, 1)
	assert.Len(t, fn.Body.Stmts, 2)
}

func TestParseVoidFunction(t *testing.T) {
	prog := parseOK(t, `void touch(int x) { assert x == x; }`)
	require.Len(t, prog.Functions, 1)
	assert.Nil(t, prog.Functions[0].ReturnTypes)
}

func TestParseStructAndMember(t *testing.T) {
	prog := parseOK(t, `
		struct Point {
			int x;
			int y;
		}
		int sum(Point p) {
			return p.x + p.y;
		}
	`)
	require.Len(t, prog.Structs, 1)
	require.Len(t, prog.Structs[0].Fields, 2)
	fn := prog.Functions[0]
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	bin, ok := ret.Values[0].(*ast.Binary)
	require.True(t, ok)
	_, ok = bin.L.(*ast.Member)
	assert.True(t, ok)
}

func TestParseWhileWithInvariant(t *testing.T) {
	prog := parseOK(t, `
		int count(int n) {
			int i = 0;
			loop invariant i >= 0;
			loop variant n - i;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`)
	fn := prog.Functions[0]
	while, ok := fn.Body.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok)
	require.Len(t, while.Annot.Invariants, 1)
	require.Len(t, while.Annot.Variant, 1)
}

func TestParseForLoop(t *testing.T) {
	prog := parseOK(t, `
		int sum(int n) {
			int total = 0;
			for (int i = 0; i < n; i = i + 1) {
				total = total + i;
			}
			return total;
		}
	`)
	fn := prog.Functions[0]
	forStmt, ok := fn.Body.Stmts[1].(*ast.ForStmt)
	require.True(t, ok)
	assert.NotNil(t, forStmt.Init)
	assert.NotNil(t, forStmt.Cond)
	assert.NotNil(t, forStmt.Step)
}

func TestParseDoWhile(t *testing.T) {
	prog := parseOK(t, `
		int f(int n) {
			int i = 0;
			do {
				i = i + 1;
			} while (i < n);
			return i;
		}
	`)
	fn := prog.Functions[0]
	_, ok := fn.Body.Stmts[1].(*ast.DoWhileStmt)
	assert.True(t, ok)
}

func TestParsePredicate(t *testing.T) {
	prog := parseOK(t, `predicate sorted(int a, int b) = a <= b;`)
	require.Len(t, prog.Predicates, 1)
	assert.Equal(t, "sorted", prog.Predicates[0].Name)
}

func TestParseAnnotationCommentForms(t *testing.T) {
	prog := parseOK(t, `
		/*@ requires x > 0; */
		//@ ensures \result > 0;
		int inc(int x) {
			return x + 1;
		}
	`)
	fn := prog.Functions[0]
	require.Len(t, fn.Contract.Requires, 1)
	require.Len(t, fn.Contract.Ensures, 1)
}

func TestParseOldAndLength(t *testing.T) {
	prog := parseOK(t, `
		requires n >= 0;
		ensures \result == \old(n) + \length(a);
		int bump(int n, int a[]) {
			return n + 1;
		}
	`)
	fn := prog.Functions[0]
	bin := fn.Contract.Ensures[0].(*ast.Binary)
	rhs := bin.R.(*ast.Binary)
	_, ok := rhs.L.(*ast.OldExpr)
	assert.True(t, ok)
	_, ok = rhs.R.(*ast.LengthExpr)
	assert.True(t, ok)
}

func TestParseChainedComparison(t *testing.T) {
	prog := parseOK(t, `
		requires 0 <= i < n;
		int f(int i, int n) { return i; }
	`)
	fn := prog.Functions[0]
	chain, ok := fn.Contract.Requires[0].(*ast.ChainCompare)
	require.True(t, ok)
	assert.Equal(t, []string{"<=", "<"}, chain.Ops)
	assert.Len(t, chain.Terms, 3)
}

func TestParseQuantifier(t *testing.T) {
	prog := parseOK(t, `
		ensures forall int i :: 0 <= i && i < n ==> a[i] >= 0;
		void check(int n, int a[]) {}
	`)
	fn := prog.Functions[0]
	q, ok := fn.Contract.Ensures[0].(*ast.Quant)
	require.True(t, ok)
	assert.Equal(t, "forall", q.Kind)
	require.Len(t, q.Binders, 1)
	assert.Equal(t, "int", q.Binders[0].Sort)
}

func TestParseUpdateExpr(t *testing.T) {
	prog := parseOK(t, `
		ensures \result == {a \with [0] = 1};
		int[] f(int a[]) { return a; }
	`)
	fn := prog.Functions[0]
	bin := fn.Contract.Ensures[0].(*ast.Binary)
	_, ok := bin.R.(*ast.UpdateExpr)
	assert.True(t, ok)
}

func TestParseMalformedDefinitionReportsErrors(t *testing.T) {
	_, _, parseErrs := ParseSource("test.v", `
		int broken( {
		int ok(int x) { return x; }
	`)
	assert.NotEmpty(t, parseErrs)
}

func TestParseMultiReturnFunction(t *testing.T) {
	prog := parseOK(t, `
		(int, int) divmod(int a, int b) {
			return a / b, a - (a / b) * b;
		}
	`)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	require.Len(t, fn.ReturnTypes, 2)
	assert.Equal(t, "int", fn.ReturnTypes[0].Name)
	assert.Equal(t, "int", fn.ReturnTypes[1].Name)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	assert.Len(t, ret.Values, 2)
}

func TestParseMultiAssignStmt(t *testing.T) {
	prog := parseOK(t, `
		(int, int) divmod(int a, int b) { return a / b, a - (a / b) * b; }
		void caller(int a, int b) {
			int q = 0;
			int r = 0;
			q, r = divmod(a, b);
		}
	`)
	require.Len(t, prog.Functions, 2)
	caller := prog.Functions[1]
	stmt := caller.Body.Stmts[2]
	m, ok := stmt.(*ast.MultiAssignStmt)
	require.True(t, ok)
	require.Len(t, m.Targets, 2)
	assert.Equal(t, "q", m.Targets[0].(*ast.Ident).Name)
	assert.Equal(t, "r", m.Targets[1].(*ast.Ident).Name)
	assert.Equal(t, "divmod", m.Call.Callee)
}

func TestParseMultiAssignRejectsNonCallRHS(t *testing.T) {
	_, _, parseErrs := ParseSource("test.v", `
		void caller(int a, int b) {
			int q = 0;
			int r = 0;
			q, r = a + b;
		}
	`)
	assert.NotEmpty(t, parseErrs)
}
