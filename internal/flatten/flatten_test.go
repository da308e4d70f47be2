package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifier/internal/lower"
	"verifier/internal/parser"
	"verifier/internal/symbols"
)

func TestFunctionFlattensStructParamsAndReturns(t *testing.T) {
	prog, scanErrs, parseErrs := parser.ParseSource("test.v", `
		struct Point {
			int x;
			int y;
		}
		Point shift(Point p) {
			p.x = p.x + 1;
			return p;
		}
	`)
	require.Empty(t, scanErrs)
	require.Empty(t, parseErrs)
	l := lower.New()
	irProg, errs := l.LowerProgram(prog)
	require.False(t, errs.HasErrors(), "lower errors: %v", errs)
	fn := irProg.FindFunction("shift")
	require.NotNil(t, fn)

	require.Len(t, fn.Params, 1)
	_, stillStruct := fn.Params[0].(*symbols.StructVariable)
	require.True(t, stillStruct, "struct param should still be whole before Function runs")

	Function(fn)

	assert.Len(t, fn.Params, 2)
	assert.Len(t, fn.Returns, 2)
	for _, v := range fn.Params {
		_, isStruct := v.(*symbols.StructVariable)
		assert.False(t, isStruct)
	}
}

func TestPredicateParamsFlattensStruct(t *testing.T) {
	prog, scanErrs, parseErrs := parser.ParseSource("test.v", `
		struct Point {
			int x;
			int y;
		}
		predicate onAxis(Point p) = p.x == 0 || p.y == 0;
	`)
	require.Empty(t, scanErrs)
	require.Empty(t, parseErrs)
	l := lower.New()
	irProg, errs := l.LowerProgram(prog)
	require.False(t, errs.HasErrors(), "lower errors: %v", errs)
	pred := irProg.FindPredicate("onAxis")
	require.NotNil(t, pred)

	params := PredicateParams(pred)
	require.Len(t, params, 2)
	for _, v := range params {
		_, isStruct := v.(*symbols.StructVariable)
		assert.False(t, isStruct)
	}
}
