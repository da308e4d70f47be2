package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/annotate"
	"verifier/internal/lower"
	"verifier/internal/parser"
)

func lowerAndBind(t *testing.T, src, fnName string) *lower.FuncBundle {
	t.Helper()
	prog, scanErrs, parseErrs := parser.ParseSource("test.v", src)
	require.Empty(t, scanErrs)
	require.Empty(t, parseErrs)
	l := lower.New()
	_, errs := l.LowerProgram(prog)
	require.False(t, errs.HasErrors(), "lower errors: %v", errs)
	for _, b := range l.Bundles {
		annotate.Bind(b)
		if b.Fn.Name == fnName {
			return b
		}
	}
	t.Fatalf("no bundle for function %q", fnName)
	return nil
}

func TestAbsHasExactlyTwoBasicPaths(t *testing.T) {
	bundle := lowerAndBind(t, `
		ensures \result >= 0;
		int abs(int x) {
			if (x < 0) {
				return -x;
			}
			return x;
		}
	`, "abs")
	ps := Collect(bundle.Fn)
	require.Len(t, ps, 2)
	for _, p := range ps {
		assert.Same(t, bundle.Fn.Entry, p.Head)
		assert.Same(t, bundle.Fn.Exit, p.Tail)
	}
}

func TestLinearSearchHasAtLeastThreeBasicPaths(t *testing.T) {
	bundle := lowerAndBind(t, `
		ensures \result >= -1;
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
	`, "linearSearch")
	ps := Collect(bundle.Fn)
	assert.GreaterOrEqual(t, len(ps), 3)

	var sawBackEdge bool
	for _, p := range ps {
		if p.Head == p.Tail {
			sawBackEdge = true
			assert.NotEmpty(t, p.TailRanking)
		}
	}
	assert.True(t, sawBackEdge, "expected at least one loop-head-to-loop-head basic path")
}

func TestOfStopsWhenConsumerStopsIterating(t *testing.T) {
	bundle := lowerAndBind(t, `
		ensures \result >= 0;
		int abs(int x) {
			if (x < 0) {
				return -x;
			}
			return x;
		}
	`, "abs")
	n := 0
	for range Of(bundle.Fn) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
