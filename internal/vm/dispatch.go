package vm

import (
	"math"

	"github.com/gmofishsauce/lemonscript/internal/anyvalue"
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
)

// dispatcher implements rtbuild.Dispatcher: it builds exec_fn closures over
// a Runtime, the same way gmofishsauce/wut4/emul's executeBase/XOP/YOP/ZOP/
// VOP methods switch on an opcode's fields to pick behavior, except here the
// switch happens once at build time rather than on every execution.
type dispatcher struct {
	rt *Runtime
}

// kindOf maps a data-type ID to the anyvalue.Kind its runtime representation
// uses, so exec functions can drive anyvalue.Cast and its arithmetic without
// re-deriving this mapping inline at every call site.
func kindOf(reg *datatype.Registry, id datatype.ID) anyvalue.Kind {
	def := reg.Lookup(id)
	if def == nil {
		return anyvalue.KindI64
	}
	switch def.Base {
	case datatype.Int8:
		if def.Sem == datatype.SemanticsBoolean {
			return anyvalue.KindBool
		}
		return anyvalue.KindI8
	case datatype.UInt8:
		return anyvalue.KindU8
	case datatype.Int16:
		return anyvalue.KindI16
	case datatype.UInt16:
		return anyvalue.KindU16
	case datatype.Int32:
		return anyvalue.KindI32
	case datatype.UInt32:
		return anyvalue.KindU32
	case datatype.Int64:
		return anyvalue.KindI64
	case datatype.UInt64:
		return anyvalue.KindU64
	case datatype.Float:
		return anyvalue.KindFloat
	case datatype.Double:
		return anyvalue.KindDouble
	default:
		return anyvalue.KindI64
	}
}

// Default implements rtbuild.Dispatcher: one exec function per (opcode
// type, data type) pair, matching spec.md §4.3 step 3's generated table.
func (d *dispatcher) Default(t opcode.Type, dtype datatype.ID) rtbuild.ExecFunc {
	rt := d.rt
	kind := kindOf(rt.Types, dtype)

	switch t {
	case opcode.MoveStack:
		return func(ctx rtbuild.ExecContext) {
			n := int64(rtbuild.DecodeImmediate(ctx.Opcode().Params))
			moveStack(ctx, n)
		}
	case opcode.PushConstant:
		return func(ctx rtbuild.ExecContext) {
			ctx.PushValue(rtbuild.DecodeImmediate(ctx.Opcode().Params))
		}
	case opcode.GetVariableValue:
		return func(ctx rtbuild.ExecContext) {
			id := uint32(rtbuild.DecodeImmediate(ctx.Opcode().Params))
			ctx.PushValue(rt.variableAccess(ctx.(*ControlFlow), id))
		}
	case opcode.SetVariableValue:
		return func(ctx rtbuild.ExecContext) {
			id := uint32(rtbuild.DecodeImmediate(ctx.Opcode().Params))
			v := ctx.PeekValue(0)
			rt.setVariable(ctx.(*ControlFlow), id, v)
		}
	case opcode.ReadMemory:
		return func(ctx rtbuild.ExecContext) {
			addr := ctx.PopValue() + rtbuild.DecodeImmediate(ctx.Opcode().Params)
			ctx.PushValue(rt.readMemory(addr, dtype))
		}
	case opcode.WriteMemory:
		return func(ctx rtbuild.ExecContext) {
			addr := ctx.PopValue() + rtbuild.DecodeImmediate(ctx.Opcode().Params)
			v := ctx.PopValue()
			rt.writeMemory(addr, dtype, v)
			ctx.PushValue(v)
		}
	case opcode.Cast:
		to := kindOf(rt.Types, dtype)
		return func(ctx rtbuild.ExecContext) {
			// The source anyvalue.Kind travels in the opcode's Param since
			// Cast's own DType is the destination type; the builder stores
			// Param in Params with EncodeImmediate, like every default record.
			from := anyvalue.Kind(rtbuild.DecodeImmediate(ctx.Opcode().Params))
			v := anyvalue.Value(ctx.PopValue())
			ctx.PushValue(uint64(anyvalue.Cast(from, to, v)))
		}
	case opcode.Booleanize:
		return func(ctx rtbuild.ExecContext) {
			v := ctx.PopValue()
			if v != 0 {
				ctx.PushValue(1)
			} else {
				ctx.PushValue(0)
			}
		}
	case opcode.UnaryNegate:
		return unaryExec(kind, func(v anyvalue.Value, k anyvalue.Kind) anyvalue.Value { return negate(v, k) })
	case opcode.UnaryNot:
		return func(ctx rtbuild.ExecContext) {
			v := ctx.PopValue()
			if v == 0 {
				ctx.PushValue(1)
			} else {
				ctx.PushValue(0)
			}
		}
	case opcode.UnaryBitNot:
		return func(ctx rtbuild.ExecContext) {
			ctx.PushValue(^ctx.PopValue())
		}
	}

	if t.IsArithmetic() {
		return binaryExec(kind, arithFunc(t))
	}
	if t.IsCompare() {
		return compareExec(kind, compareFunc(t))
	}
	return nil
}

// Fused implements rtbuild.Dispatcher's fixed-shape variants (spec.md §4.3
// fusion catalogue).
func (d *dispatcher) Fused(shape rtbuild.FusedShape, t opcode.Type, dtype datatype.ID, varKind opcode.VariableKind) rtbuild.ExecFunc {
	rt := d.rt
	kind := kindOf(rt.Types, dtype)

	switch shape {
	case rtbuild.ShapeConstArith:
		if t.IsCompare() {
			f := compareFunc(t)
			return func(ctx rtbuild.ExecContext) {
				c := rtbuild.DecodeImmediate(ctx.Opcode().Params)
				a := ctx.PopValue()
				ctx.PushValue(boolWord(f(anyvalue.Value(a), anyvalue.Value(c), kind)))
			}
		}
		f := arithFunc(t)
		return func(ctx rtbuild.ExecContext) {
			c := rtbuild.DecodeImmediate(ctx.Opcode().Params)
			a := ctx.PopValue()
			ctx.PushValue(uint64(f(anyvalue.Value(a), anyvalue.Value(c), kind)))
		}
	case rtbuild.ShapeSetDiscard:
		return func(ctx rtbuild.ExecContext) {
			id := uint32(rtbuild.DecodeImmediate(ctx.Opcode().Params))
			v := ctx.PopValue()
			rt.setVariable(ctx.(*ControlFlow), id, v)
		}
	case rtbuild.ShapeWriteDiscard:
		return func(ctx rtbuild.ExecContext) {
			addr := ctx.PopValue()
			v := ctx.PopValue()
			rt.writeMemory(addr, dtype, v)
		}
	case rtbuild.ShapeReadFixedAddr:
		return func(ctx rtbuild.ExecContext) {
			params := ctx.Opcode().Params
			addr := rtbuild.DecodeImmediate(params)
			ctx.PushValue(rt.readMemory(addr, dtype))
		}
	case rtbuild.ShapeReadFixedAddrDirect:
		return func(ctx rtbuild.ExecContext) {
			params := ctx.Opcode().Params
			addr := rtbuild.DecodeImmediate(params[:len(params)-1])
			swap := params[len(params)-1] != 0
			ctx.PushValue(rt.readMemoryDirect(addr, dtype, swap))
		}
	case rtbuild.ShapeWriteFixedAddr:
		return func(ctx rtbuild.ExecContext) {
			params := ctx.Opcode().Params
			addr := rtbuild.DecodeImmediate(params)
			v := ctx.PopValue()
			rt.writeMemory(addr, dtype, v)
			ctx.PushValue(v)
		}
	case rtbuild.ShapeWriteFixedAddrDirect:
		return func(ctx rtbuild.ExecContext) {
			params := ctx.Opcode().Params
			addr := rtbuild.DecodeImmediate(params[:len(params)-1])
			swap := params[len(params)-1] != 0
			v := ctx.PopValue()
			rt.writeMemoryDirect(addr, dtype, v, swap)
			ctx.PushValue(v)
		}
	case rtbuild.ShapeExternalAddConstant:
		return func(ctx rtbuild.ExecContext) {
			params := ctx.Opcode().Params
			id := rtbuild.DecodeU32(params[:4])
			c := rtbuild.DecodeImmediate(params[4:])
			base := rt.variableAccess(ctx.(*ControlFlow), id)
			ctx.PushValue(uint64(arithFunc(opcode.ArithmAdd)(anyvalue.Value(base), anyvalue.Value(c), kind)))
		}
	}
	return nil
}

func moveStack(ctx rtbuild.ExecContext, n int64) {
	if n < 0 {
		for i := int64(0); i < -n; i++ {
			ctx.PopValue()
		}
		return
	}
	for i := int64(0); i < n; i++ {
		ctx.PushValue(0)
	}
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func unaryExec(kind anyvalue.Kind, f func(anyvalue.Value, anyvalue.Kind) anyvalue.Value) rtbuild.ExecFunc {
	return func(ctx rtbuild.ExecContext) {
		v := anyvalue.Value(ctx.PopValue())
		ctx.PushValue(uint64(f(v, kind)))
	}
}

func binaryExec(kind anyvalue.Kind, f func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value) rtbuild.ExecFunc {
	return func(ctx rtbuild.ExecContext) {
		b := anyvalue.Value(ctx.PopValue())
		a := anyvalue.Value(ctx.PopValue())
		ctx.PushValue(uint64(f(a, b, kind)))
	}
}

func compareExec(kind anyvalue.Kind, f func(a, b anyvalue.Value, k anyvalue.Kind) bool) rtbuild.ExecFunc {
	return func(ctx rtbuild.ExecContext) {
		b := anyvalue.Value(ctx.PopValue())
		a := anyvalue.Value(ctx.PopValue())
		ctx.PushValue(boolWord(f(a, b, kind)))
	}
}

func negate(v anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
	switch k {
	case anyvalue.KindFloat:
		return anyvalue.SetFloat(-anyvalue.GetFloat(v))
	case anyvalue.KindDouble:
		return anyvalue.SetDouble(-anyvalue.GetDouble(v))
	default:
		return asKind(-asI64(v, k), k)
	}
}

// asI64/asF64/asKind are the integer-class fast paths for arithmetic that
// doesn't need anyvalue.Cast's full from/to matrix — both operands already
// share the opcode's declared data type, so only one direction matters.
func asI64(v anyvalue.Value, k anyvalue.Kind) int64 {
	switch k {
	case anyvalue.KindI8:
		return int64(anyvalue.GetI8(v))
	case anyvalue.KindU8:
		return int64(anyvalue.GetU8(v))
	case anyvalue.KindI16:
		return int64(anyvalue.GetI16(v))
	case anyvalue.KindU16:
		return int64(anyvalue.GetU16(v))
	case anyvalue.KindI32:
		return int64(anyvalue.GetI32(v))
	case anyvalue.KindU32:
		return int64(anyvalue.GetU32(v))
	case anyvalue.KindU64:
		return int64(anyvalue.GetU64(v))
	case anyvalue.KindBool:
		if anyvalue.GetBool(v) {
			return 1
		}
		return 0
	default:
		return anyvalue.GetI64(v)
	}
}

func asF64(v anyvalue.Value, k anyvalue.Kind) float64 {
	switch k {
	case anyvalue.KindFloat:
		return float64(anyvalue.GetFloat(v))
	case anyvalue.KindDouble:
		return anyvalue.GetDouble(v)
	default:
		return float64(asI64(v, k))
	}
}

func asKind(n int64, k anyvalue.Kind) anyvalue.Value {
	switch k {
	case anyvalue.KindI8:
		return anyvalue.SetI8(int8(n))
	case anyvalue.KindU8:
		return anyvalue.SetU8(uint8(n))
	case anyvalue.KindI16:
		return anyvalue.SetI16(int16(n))
	case anyvalue.KindU16:
		return anyvalue.SetU16(uint16(n))
	case anyvalue.KindI32:
		return anyvalue.SetI32(int32(n))
	case anyvalue.KindU32:
		return anyvalue.SetU32(uint32(n))
	case anyvalue.KindU64:
		return anyvalue.SetU64(uint64(n))
	case anyvalue.KindBool:
		return anyvalue.SetBool(n != 0)
	default:
		return anyvalue.SetI64(n)
	}
}

func floatKind(k anyvalue.Kind) bool {
	return k == anyvalue.KindFloat || k == anyvalue.KindDouble
}

func fKindResult(k anyvalue.Kind, f float64) anyvalue.Value {
	if k == anyvalue.KindFloat {
		return anyvalue.SetFloat(float32(f))
	}
	return anyvalue.SetDouble(f)
}

// arithFunc returns the binary-operation implementation for one of the 12
// arithmetic-group opcode types (ARITHM_ADD through ARITHM_UPLUS),
// dispatching float vs. integer semantics by kind (spec.md §3.6/§4.3).
func arithFunc(t opcode.Type) func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
	switch t {
	case opcode.ArithmAdd:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			if floatKind(k) {
				return fKindResult(k, asF64(a, k)+asF64(b, k))
			}
			return asKind(asI64(a, k)+asI64(b, k), k)
		}
	case opcode.ArithmSub:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			if floatKind(k) {
				return fKindResult(k, asF64(a, k)-asF64(b, k))
			}
			return asKind(asI64(a, k)-asI64(b, k), k)
		}
	case opcode.ArithmMul:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			if floatKind(k) {
				return fKindResult(k, asF64(a, k)*asF64(b, k))
			}
			return asKind(asI64(a, k)*asI64(b, k), k)
		}
	case opcode.ArithmDiv:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			if floatKind(k) {
				bv := asF64(b, k)
				if bv == 0 {
					return fKindResult(k, math.NaN())
				}
				return fKindResult(k, asF64(a, k)/bv)
			}
			bv := asI64(b, k)
			if bv == 0 {
				return asKind(0, k)
			}
			return asKind(asI64(a, k)/bv, k)
		}
	case opcode.ArithmMod:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			bv := asI64(b, k)
			if bv == 0 {
				return asKind(0, k)
			}
			return asKind(asI64(a, k)%bv, k)
		}
	case opcode.ArithmShl:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return asKind(asI64(a, k)<<uint(asI64(b, k)&63), k)
		}
	case opcode.ArithmShr:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return asKind(asI64(a, k)>>uint(asI64(b, k)&63), k)
		}
	case opcode.ArithmAnd:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return asKind(asI64(a, k)&asI64(b, k), k)
		}
	case opcode.ArithmOr:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return asKind(asI64(a, k)|asI64(b, k), k)
		}
	case opcode.ArithmXor:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return asKind(asI64(a, k)^asI64(b, k), k)
		}
	case opcode.ArithmNeg:
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return negate(b, k)
		}
	default: // ArithmUnaryPlus
		return func(a, b anyvalue.Value, k anyvalue.Kind) anyvalue.Value {
			return b
		}
	}
}

// compareFunc returns one of the 6 COMPARE_* implementations.
func compareFunc(t opcode.Type) func(a, b anyvalue.Value, k anyvalue.Kind) bool {
	switch t {
	case opcode.CompareEQ:
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) == asF64(b, k)
			}
			return asI64(a, k) == asI64(b, k)
		}
	case opcode.CompareNEQ:
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) != asF64(b, k)
			}
			return asI64(a, k) != asI64(b, k)
		}
	case opcode.CompareLT:
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) < asF64(b, k)
			}
			return asI64(a, k) < asI64(b, k)
		}
	case opcode.CompareLE:
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) <= asF64(b, k)
			}
			return asI64(a, k) <= asI64(b, k)
		}
	case opcode.CompareGT:
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) > asF64(b, k)
			}
			return asI64(a, k) > asI64(b, k)
		}
	default: // CompareGE
		return func(a, b anyvalue.Value, k anyvalue.Kind) bool {
			if floatKind(k) {
				return asF64(a, k) >= asF64(b, k)
			}
			return asI64(a, k) >= asI64(b, k)
		}
	}
}
