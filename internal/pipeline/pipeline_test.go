package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/paths"
)

func TestCompileAbsHasTwoBasicPaths(t *testing.T) {
	prog, errs := Compile("abs.v", `
		requires true;
		ensures \result >= 0;
		int abs(int x) {
			if (x < 0) {
				return -x;
			}
			return x;
		}
	`)
	require.False(t, errs.HasErrors(), "errors: %v", errs)
	fn := prog.FindFunction("abs")
	require.NotNil(t, fn)
	assert.Len(t, paths.Collect(fn), 2)
}

func TestCompileLoopHasMultipleBasicPaths(t *testing.T) {
	prog, errs := Compile("search.v", `
		requires n >= 0;
		decreases n;
		ensures \result >= 0;
		int linearSearch(int a[], int n, int target) {
			int i = 0;
			loop invariant 0 <= i && i <= n;
			loop variant n - i;
			while (i < n) {
				if (a[i] == target) {
					return i;
				}
				i = i + 1;
			}
			return -1;
		}
	`)
	require.False(t, errs.HasErrors(), "errors: %v", errs)
	fn := prog.FindFunction("linearSearch")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, len(paths.Collect(fn)), 3)
}

func TestCompileInconsistentRankingArity(t *testing.T) {
	_, errs := Compile("rank.v", `
		decreases n;
		int count(int n) {
			int i = 0;
			loop invariant i <= n;
			loop variant n - i, i;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`)
	require.True(t, errs.HasErrors())
}

func TestCompileMultiReturnEndToEnd(t *testing.T) {
	prog, errs := Compile("divmod.v", `
		requires b != 0;
		(int, int) divmod(int a, int b) {
			return a / b, a - (a / b) * b;
		}
		void caller(int a, int b) {
			int q = 0;
			int r = 0;
			q, r = divmod(a, b);
			assert q * b + r == a;
		}
	`)
	require.False(t, errs.HasErrors(), "errors: %v", errs)
	fn := prog.FindFunction("caller")
	require.NotNil(t, fn)
	assert.NotEmpty(t, paths.Collect(fn))
}

func TestCompileStructParameterFlattening(t *testing.T) {
	prog, errs := Compile("point.v", `
		struct Point {
			int x;
			int y;
		}
		ensures \result == \old(p).x + \old(p).y;
		int sum(Point p) {
			return p.x + p.y;
		}
	`)
	require.False(t, errs.HasErrors(), "errors: %v", errs)
	fn := prog.FindFunction("sum")
	require.NotNil(t, fn)
	for _, v := range fn.Params {
		assert.NotRegexp(t, `^Point$`, v.VarType().String())
	}
}

func TestCompileRecoversFromOneBadFunction(t *testing.T) {
	prog, errs := Compile("mixed.v", `
		int ok(int x) { return x; }
		int bad(int x) { return x + ; }
	`)
	require.True(t, errs.HasErrors())
	if prog != nil {
		assert.NotNil(t, prog.FindFunction("ok"))
	}
}
