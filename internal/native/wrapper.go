// Package native builds the runtime-callable adapters that bind a host Go
// function or method to a lemonscript NativeFunction (spec.md §6.1, §9
// "trait-based generic... generated wrapper pops arguments, invokes the
// bound function, pushes the result"). C++ does this with variadic
// templates specialized per base type (FunctionWrapper.h); Go generics
// cover the same closed set of base types without reflection, the same way
// gmofishsauce/wut4/lang/ygen/emit.go dispatches on a fixed small set of
// operand-kind cases rather than a general mechanism.
package native

import (
	"github.com/gmofishsauce/lemonscript/internal/anyvalue"
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
	"github.com/gmofishsauce/lemonscript/internal/vm"
)

// Scalar is the closed set of base types a generic wrapper can marshal to
// and from the value stack directly — every numeric/boolean base type
// spec.md §3.2 lists. "string" (StringRef in the original) is handled
// separately below since it marshals as a strtab.Handle, not a raw scalar;
// "array" and "any" (ArrayBaseWrapper/AnyTypeWrapper) are out of scope for
// this generic family, matching spec.md's Non-goal of reflection beyond
// serialization — a native function taking one of those types needs a
// hand-written Callable rather than a WrapFuncN instantiation.
type Scalar interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

func popScalar[T Scalar](cf *vm.ControlFlow) T {
	c := anyvalue.Value(cf.PopValue())
	var zero T
	switch any(zero).(type) {
	case bool:
		return any(anyvalue.GetBool(c)).(T)
	case float32:
		return any(anyvalue.GetFloat(c)).(T)
	case float64:
		return any(anyvalue.GetDouble(c)).(T)
	default:
		return T(anyvalue.GetU64(c))
	}
}

func pushScalar[T Scalar](cf *vm.ControlFlow, v T) {
	switch x := any(v).(type) {
	case bool:
		cf.PushValue(uint64(anyvalue.SetBool(x)))
	case float32:
		cf.PushValue(uint64(anyvalue.SetFloat(x)))
	case float64:
		cf.PushValue(uint64(anyvalue.SetDouble(x)))
	default:
		cf.PushValue(uint64(v))
	}
}

// popString/pushString marshal a script "string" argument as its interned
// strtab.Handle — the hash itself, not the bytes — exactly as the original
// pushes/pops a StringRef's hash and resolves it against the runtime's
// string table on the script side (FunctionWrapper.cpp's
// pushStackGeneric<StringRef>/popStackGeneric<StringRef>).
func popString(cf *vm.ControlFlow) strtab.Handle {
	return strtab.Handle(cf.PopValue())
}

func pushString(cf *vm.ControlFlow, h strtab.Handle) {
	cf.PushValue(uint64(h))
}

// callable adapts a closure running against a ControlFlow into a
// vm.NativeCallable; every WrapFuncN constructor below just builds one of
// these around a pop-args/invoke/push-result closure.
type callable struct {
	fn func(cf *vm.ControlFlow)
}

func (c *callable) Call(cf *vm.ControlFlow) { c.fn(cf) }

var _ vm.NativeCallable = (*callable)(nil)

// WrapFunc0 binds a zero-argument, void-returning function.
func WrapFunc0(f func()) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) { f() }}
}

// WrapFunc0R binds a zero-argument function returning a Scalar result.
func WrapFunc0R[R Scalar](f func() R) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) { pushScalar(cf, f()) }}
}

// WrapFunc1 binds a one-argument, void-returning function. Arguments are
// popped in reverse push order (spec.md §6.1), matching
// ParameterBuilder::popStackInReverseOrder's recursive-then-pop shape.
func WrapFunc1[A1 Scalar](f func(A1)) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a1 := popScalar[A1](cf)
		f(a1)
	}}
}

// WrapFunc1R binds a one-argument function returning a Scalar result.
func WrapFunc1R[A1, R Scalar](f func(A1) R) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a1 := popScalar[A1](cf)
		pushScalar(cf, f(a1))
	}}
}

// WrapFunc2 binds a two-argument, void-returning function.
func WrapFunc2[A1, A2 Scalar](f func(A1, A2)) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a2 := popScalar[A2](cf)
		a1 := popScalar[A1](cf)
		f(a1, a2)
	}}
}

// WrapFunc2R binds a two-argument function returning a Scalar result.
func WrapFunc2R[A1, A2, R Scalar](f func(A1, A2) R) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a2 := popScalar[A2](cf)
		a1 := popScalar[A1](cf)
		pushScalar(cf, f(a1, a2))
	}}
}

// WrapFunc3 binds a three-argument, void-returning function.
func WrapFunc3[A1, A2, A3 Scalar](f func(A1, A2, A3)) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a3 := popScalar[A3](cf)
		a2 := popScalar[A2](cf)
		a1 := popScalar[A1](cf)
		f(a1, a2, a3)
	}}
}

// WrapFunc3R binds a three-argument function returning a Scalar result.
func WrapFunc3R[A1, A2, A3, R Scalar](f func(A1, A2, A3) R) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a3 := popScalar[A3](cf)
		a2 := popScalar[A2](cf)
		a1 := popScalar[A1](cf)
		pushScalar(cf, f(a1, a2, a3))
	}}
}

// WrapFuncString1 binds a one-string-argument, void-returning function —
// the string marshals as its strtab.Handle, resolved against strs.
func WrapFuncString1(strs *strtab.Table, f func(s string)) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		h := popString(cf)
		s, _ := strs.Lookup(h)
		f(s)
	}}
}

// WrapFuncStringR binds a zero-argument function returning a string; the
// result is interned into strs before being pushed as a handle.
func WrapFuncStringR(strs *strtab.Table, f func() string) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		pushString(cf, strs.Intern(f()))
	}}
}

// WrapFuncString2R binds a two-string-argument function returning a
// string — the shape spec.md §4.1 step 17's bound STRING_OPERATOR_PLUS
// native takes. Interning the result through strs is what makes
// concatenating two already-interned strings produce the same handle
// Murmur2-64 would hash the concatenated bytes to, matching spec.md §8's
// scenario 4.
func WrapFuncString2R(strs *strtab.Table, f func(a, b string) string) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		h2 := popString(cf)
		h1 := popString(cf)
		s1, _ := strs.Lookup(h1)
		s2, _ := strs.Lookup(h2)
		pushString(cf, strs.Intern(f(s1, s2)))
	}}
}

// WrapFuncScalarToStringR binds a one-scalar-argument function returning a
// string — the shape of the __to_string bound native step 17's implicit
// numeric-to-string conversion resolves to, one instantiation per
// convertible source type.
func WrapFuncScalarToStringR[A1 Scalar](strs *strtab.Table, f func(A1) string) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a1 := popScalar[A1](cf)
		pushString(cf, strs.Intern(f(a1)))
	}}
}

// WrapMethod1 binds a one-argument, void-returning method on obj.
func WrapMethod1[CLASS any, A1 Scalar](obj *CLASS, f func(*CLASS, A1)) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a1 := popScalar[A1](cf)
		f(obj, a1)
	}}
}

// WrapMethod1R binds a one-argument method on obj returning a Scalar result.
func WrapMethod1R[CLASS any, A1, R Scalar](obj *CLASS, f func(*CLASS, A1) R) vm.NativeCallable {
	return &callable{fn: func(cf *vm.ControlFlow) {
		a1 := popScalar[A1](cf)
		pushScalar(cf, f(obj, a1))
	}}
}

// SigOf builds the token.FunctionSig a native binding is registered under.
// SigHash is derived from the same strtab.Hash primitive the compiler uses
// to intern names, applied to the composed name+parameter-type signature,
// so a script call site naming this function by the same signature
// resolves to the same hash without either side needing to agree on a
// separate hashing scheme.
func SigOf(strs *strtab.Table, name strtab.Handle, ret datatype.ID, params []datatype.ID, flags token.NativeFlags) token.FunctionSig {
	key := strs.MustLookup(name)
	for _, p := range params {
		key += "#" + itoa32(uint32(p))
	}
	return token.FunctionSig{
		Name:       name,
		ReturnType: ret,
		ParamTypes: params,
		SigHash:    uint32(strtab.Hash(key)),
		IsNative:   true,
		Flags:      flags,
	}
}

func itoa32(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
