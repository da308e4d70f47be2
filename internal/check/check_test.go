package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/annotate"
	"verifier/internal/lower"
	"verifier/internal/parser"
	"verifier/internal/verrors"
)

func compileAndBind(t *testing.T, src, fnName string) *lower.FuncBundle {
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

func TestFunctionAcceptsMatchingRankingArity(t *testing.T) {
	bundle := compileAndBind(t, `
		decreases n;
		int count(int n) {
			int i = 0;
			loop invariant i <= n;
			loop variant n - i;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`, "count")
	assert.Nil(t, Function(bundle.Fn))
}

func TestFunctionRejectsMismatchedRankingArity(t *testing.T) {
	bundle := compileAndBind(t, `
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
	`, "count")
	err := Function(bundle.Fn)
	require.NotNil(t, err)
	assert.Equal(t, verrors.InconsistentRanking, err.Kind)
}

func TestFunctionTreatsNoDecreasesAsZeroArity(t *testing.T) {
	bundle := compileAndBind(t, `
		int count(int n) {
			int i = 0;
			loop invariant i <= n;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`, "count")
	assert.Nil(t, Function(bundle.Fn))
}
