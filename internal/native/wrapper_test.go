package native

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/vm"
	"github.com/stretchr/testify/require"
)

func TestWrapFunc2RAddsInt32(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)

	add := WrapFunc2R(func(a, b int32) int32 { return a + b })

	cf.PushValue(uint64(int64(int32(2))))
	cf.PushValue(uint64(int64(int32(3))))
	add.Call(cf)

	require.Equal(t, int32(5), int32(int64(cf.PeekValue(0))))
}

func TestWrapFunc1FloatRoundTrip(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)

	var seen float32
	sink := WrapFunc1(func(v float32) { seen = v })

	pushScalar(cf, float32(3.5))
	sink.Call(cf)
	require.InDelta(t, 3.5, seen, 0.0001)
}

func TestWrapFunc0RBool(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)

	always := WrapFunc0R(func() bool { return true })
	always.Call(cf)
	require.True(t, popScalar[bool](cf))
}

func TestWrapFuncStringRoundTrip(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)
	strs := strtab.New()

	var seen string
	sink := WrapFuncString1(strs, func(s string) { seen = s })
	source := WrapFuncStringR(strs, func() string { return "hello" })

	source.Call(cf)
	sink.Call(cf)
	require.Equal(t, "hello", seen)
}

func TestWrapFuncString2RConcatenatesAndReinterns(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)
	strs := strtab.New()

	concat := WrapFuncString2R(strs, func(a, b string) string { return a + b })

	pushString(cf, strs.Intern("ab"))
	pushString(cf, strs.Intern("cd"))
	concat.Call(cf)

	require.Equal(t, strs.Intern("abcd"), popString(cf))
}

func TestWrapFuncScalarToStringR(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)
	strs := strtab.New()

	toString := WrapFuncScalarToStringR(strs, func(v int32) string {
		return itoa32(uint32(v))
	})

	pushScalar(cf, int32(14))
	toString.Call(cf)
	require.Equal(t, strs.Intern("14"), popString(cf))
}

func TestWrapUserVarGetSet(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)

	var stored int32
	h := WrapUserVar(func() int32 { return stored }, func(v int32) { stored = v })

	pushScalar(cf, int32(9))
	h.Set(cf)
	require.Equal(t, int32(9), stored)

	h.Get(cf)
	require.Equal(t, int32(9), popScalar[int32](cf))
}

func TestWrapReadOnlyUserVarDiscardsWrite(t *testing.T) {
	rt := vm.NewRuntime()
	cf := vm.NewControlFlow(rt)

	h := WrapReadOnlyUserVar(func() int32 { return 42 })
	pushScalar(cf, int32(100))
	h.Set(cf) // must not panic, just discards

	h.Get(cf)
	require.Equal(t, int32(42), popScalar[int32](cf))
}

func TestWrapExternalVars(t *testing.T) {
	cell := int64(7)
	h := WrapExternalVars(map[uint32]*int64{3: &cell})

	p := h.Resolve(3)
	require.NotNil(t, p)
	require.Equal(t, int64(7), *p)
	require.Nil(t, h.Resolve(4))
}

func TestSigOfHashStable(t *testing.T) {
	strs := strtab.New()
	name := strs.Intern("clamp")

	a := SigOf(strs, name, 0, nil, 0)
	b := SigOf(strs, name, 0, nil, 0)
	require.Equal(t, a.SigHash, b.SigHash)
	require.NotZero(t, a.SigHash)
}
