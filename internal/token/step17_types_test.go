package token

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/stretchr/testify/require"
)

func concatSig(g *fakeGlobals) FunctionSig {
	return FunctionSig{
		Name:       g.strs.Intern("STRING_OPERATOR_PLUS"),
		ReturnType: datatype.IDString,
		ParamTypes: []datatype.ID{datatype.IDString, datatype.IDString},
		SigHash:    1,
		IsNative:   true,
	}
}

// TestStringPlusStringBindsBoundNative covers spec.md §4.1 step 17's
// "String + String yields a bound built-in" and §8 scenario 4: the binary
// op node is rewritten into a call to the bound STRING_OPERATOR_PLUS
// native with both original string operands as arguments, unchanged.
func TestStringPlusStringBindsBoundNative(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	g.hasConcat = true
	g.concat = concatSig(g)

	left := newStringConst(arena, g.strs, 1, "ab")
	right := newStringConst(arena, g.strs, 1, "cd")
	list := TokenList{Nodes: []Index{left, newOp(arena, g.strs, 1, "+"), right}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())

	n := arena.Get(root)
	require.Equal(t, KindFunctionCall, n.Kind)
	require.Equal(t, g.concat.Name, n.FuncName)
	require.Equal(t, datatype.IDString, n.DType)
	require.True(t, n.Typed)
	require.Len(t, n.Args, 2)
	require.Equal(t, left, n.Args[0])
	require.Equal(t, right, n.Args[1])
}

// TestIntPlusStringConvertsThenConcatenates covers "Int + String likewise":
// the non-string operand is routed through the bound __to_string
// conversion native before the concatenation call.
func TestIntPlusStringConvertsThenConcatenates(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	g.hasConcat = true
	g.concat = concatSig(g)
	g.toString[datatype.IDInt32] = FunctionSig{
		Name:       g.strs.Intern("__to_string"),
		ReturnType: datatype.IDString,
		ParamTypes: []datatype.ID{datatype.IDInt32},
		SigHash:    2,
		IsNative:   true,
	}

	left := newTypedIntConst(arena, 1, 7, datatype.IDInt32)
	right := newStringConst(arena, g.strs, 1, "!")
	list := TokenList{Nodes: []Index{left, newOp(arena, g.strs, 1, "+"), right}}

	root, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.True(t, errs.Ok())

	n := arena.Get(root)
	require.Equal(t, KindFunctionCall, n.Kind)
	require.Equal(t, g.concat.Name, n.FuncName)
	require.Len(t, n.Args, 2)

	convertedLeft := arena.Get(n.Args[0])
	require.Equal(t, KindFunctionCall, convertedLeft.Kind)
	require.Equal(t, g.toString[datatype.IDInt32].Name, convertedLeft.FuncName)
	require.Equal(t, left, convertedLeft.Args[0])

	require.Equal(t, right, n.Args[1])
}

// TestStringConcatWithoutBoundNativeRecordsError ensures a missing host
// binding is a reported compile error, not a silent miscompile or a panic.
func TestStringConcatWithoutBoundNativeRecordsError(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals() // hasConcat left false

	left := newStringConst(arena, g.strs, 1, "ab")
	right := newStringConst(arena, g.strs, 1, "cd")
	list := TokenList{Nodes: []Index{left, newOp(arena, g.strs, 1, "+"), right}}

	_, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), DefaultOptions())
	require.False(t, errs.Ok())
}

// TestCastCostWideningCheaperThanNarrowing checks castCost's ordering,
// which selectOverload's and commonType's tie-breaking both depend on.
func TestCastCostWideningCheaperThanNarrowing(t *testing.T) {
	types := datatype.NewRegistry(newFakeGlobals().strs)

	widen, ok := castCost(types, datatype.IDInt32, datatype.IDInt64)
	require.True(t, ok)

	narrow, ok := castCost(types, datatype.IDInt64, datatype.IDInt32)
	require.True(t, ok)

	require.Less(t, widen, narrow)
}

// TestCastCostRefusesStringConversion documents that castCost's generic
// bit-level casting engine never bridges to/from ClassString — that path
// is handled exclusively by bindStringConcat's bound-native conversion,
// not by inserting a KindValueCast.
func TestCastCostRefusesStringConversion(t *testing.T) {
	types := datatype.NewRegistry(newFakeGlobals().strs)

	_, ok := castCost(types, datatype.IDInt32, datatype.IDString)
	require.False(t, ok)

	_, ok = castCost(types, datatype.IDString, datatype.IDInt32)
	require.False(t, ok)
}

// TestCommonTypePicksLowerCostSide exercises step 17's usual-arithmetic-
// conversion rule directly: given int8 and int32 operands, the result type
// is int32 (widening int8 costs less than narrowing int32).
func TestCommonTypePicksLowerCostSide(t *testing.T) {
	g := newFakeGlobals()
	p := &processor{arena: NewArena(), g: g}

	common, ok := p.commonType(datatype.IDInt8, datatype.IDInt32)
	require.True(t, ok)
	require.Equal(t, datatype.IDInt32, common)
}

// TestSelectOverloadPicksLowestTotalCastCost exercises step 9's overload
// resolution (reused by step 17's casting engine): an exact-type match
// must win over a candidate that would require a widening cast, regardless
// of the order the candidates are listed in.
func TestSelectOverloadPicksLowestTotalCastCost(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()
	p := &processor{arena: arena, g: g}

	arg := newTypedIntConst(arena, 1, 5, datatype.IDInt32)
	candidates := []FunctionSig{
		{Name: g.strs.Intern("f_wide"), ParamTypes: []datatype.ID{datatype.IDInt64}},
		{Name: g.strs.Intern("f_exact"), ParamTypes: []datatype.ID{datatype.IDInt32}},
	}

	sig, ok := p.selectOverload(candidates, []Index{arg})
	require.True(t, ok)
	require.Equal(t, g.strs.Intern("f_exact"), sig.Name)
}
