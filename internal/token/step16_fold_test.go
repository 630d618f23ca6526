package token

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/stretchr/testify/require"
)

// TestFoldScenario1AdditionAndMultiplication exercises spec.md §8's first
// end-to-end scenario: "2 + 3*4" must fold to the single constant 14,
// with "*" binding tighter than "+" per step 15's precedence table.
func TestFoldScenario1AdditionAndMultiplication(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	list := TokenList{Nodes: []Index{
		newIntConst(arena, 1, 2),
		newOp(arena, g.strs, 1, "+"),
		newIntConst(arena, 1, 3),
		newOp(arena, g.strs, 1, "*"),
		newIntConst(arena, 1, 4),
	}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())

	n := arena.Get(root)
	require.Equal(t, KindConstant, n.Kind)
	require.Equal(t, uint64(14), n.ConstValue)
}

// TestFoldDivisionByZeroYieldsZero covers the documented /0 -> 0 constant
// folding rule (step16_fold.go's tryFoldBinary), rather than a runtime
// division fault or a Go panic.
func TestFoldDivisionByZeroYieldsZero(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	list := TokenList{Nodes: []Index{
		newIntConst(arena, 1, 5),
		newOp(arena, g.strs, 1, "/"),
		newIntConst(arena, 1, 0),
	}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())

	n := arena.Get(root)
	require.Equal(t, KindConstant, n.Kind)
	require.Equal(t, uint64(0), n.ConstValue)
}

// TestModuloByZeroYieldsZero mirrors the division case for "%".
func TestModuloByZeroYieldsZero(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	list := TokenList{Nodes: []Index{
		newIntConst(arena, 1, 7),
		newOp(arena, g.strs, 1, "%"),
		newIntConst(arena, 1, 0),
	}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())
	require.Equal(t, uint64(0), arena.Get(root).ConstValue)
}

// TestIsConstNodeRefusesStringConstants is the direct regression test for
// the fold-as-integer bug: a string-typed constant (whose ConstValue holds
// a strtab.Handle, not an integer) must never be treated as foldable.
func TestIsConstNodeRefusesStringConstants(t *testing.T) {
	arena := NewArena()
	p := &processor{arena: arena, g: newFakeGlobals()}
	idx := newStringConst(arena, p.g.Strings(), 1, "ab")

	_, ok := p.isConstNode(idx)
	require.False(t, ok)
}

// TestIsConstNodeAcceptsUntypedAndIntegerConstants checks the two cases
// isConstNode must still accept: a not-yet-typed literal (folding runs
// before step 17 assigns types) and an already-typed integer constant.
func TestIsConstNodeAcceptsUntypedAndIntegerConstants(t *testing.T) {
	arena := NewArena()
	p := &processor{arena: arena, g: newFakeGlobals()}

	untyped := newIntConst(arena, 1, 9)
	v, ok := p.isConstNode(untyped)
	require.True(t, ok)
	require.Equal(t, int64(9), v)

	typed := newTypedIntConst(arena, 1, 3, datatype.IDInt32)
	v, ok = p.isConstNode(typed)
	require.True(t, ok)
	require.Equal(t, int64(3), v)
}

// TestStringConcatenationDoesNotFoldAsIntegerAddition is the end-to-end
// regression test: "ab" + "cd" must never reduce to a KindConstant holding
// the sum of the two strings' handles.
func TestStringConcatenationDoesNotFoldAsIntegerAddition(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	g.hasConcat = true
	g.concat = FunctionSig{
		Name:       g.strs.Intern("STRING_OPERATOR_PLUS"),
		ReturnType: datatype.IDString,
		ParamTypes: []datatype.ID{datatype.IDString, datatype.IDString},
		SigHash:    1,
		IsNative:   true,
	}

	list := TokenList{Nodes: []Index{
		newStringConst(arena, g.strs, 1, "ab"),
		newOp(arena, g.strs, 1, "+"),
		newStringConst(arena, g.strs, 1, "cd"),
	}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())

	n := arena.Get(root)
	require.NotEqual(t, KindConstant, n.Kind)
	require.Equal(t, KindFunctionCall, n.Kind)
}
