// Package anyvalue implements the 64-bit "any-value" carrier used for VM
// stack cells, constants, and native-call marshalling (spec.md §3.1). Every
// stack cell is 64 bits; smaller types occupy the low bits. Conversions
// between base types always go through an explicit cast, never an implicit
// bit reinterpretation.
package anyvalue

import "math"

// Value is the 64-bit carrier. Its meaning is only recoverable together
// with an accompanying data-type reference (spec.md §3.1); Value itself
// just stores bits.
type Value uint64

// SetI8/SetU8/... store the low N bits of v, sign- or zero-extended into
// the full 64 bits so that raw equality comparisons on Value still work for
// values of the same declared type.

func SetI8(v int8) Value  { return Value(uint64(int64(v))) }
func GetI8(c Value) int8  { return int8(int64(c)) }
func SetU8(v uint8) Value { return Value(uint64(v)) }
func GetU8(c Value) uint8 { return uint8(c) }

func SetI16(v int16) Value { return Value(uint64(int64(v))) }
func GetI16(c Value) int16 { return int16(int64(c)) }
func SetU16(v uint16) Value { return Value(uint64(v)) }
func GetU16(c Value) uint16 { return uint16(c) }

func SetI32(v int32) Value { return Value(uint64(int64(v))) }
func GetI32(c Value) int32 { return int32(int64(c)) }
func SetU32(v uint32) Value { return Value(uint64(v)) }
func GetU32(c Value) uint32 { return uint32(c) }

func SetI64(v int64) Value { return Value(uint64(v)) }
func GetI64(c Value) int64 { return int64(c) }
func SetU64(v uint64) Value { return Value(v) }
func GetU64(c Value) uint64 { return uint64(c) }

func SetBool(v bool) Value {
	if v {
		return 1
	}
	return 0
}
func GetBool(c Value) bool { return c != 0 }

// SetFloat/GetFloat store a 32-bit IEEE float in the low 32 bits (matching
// the C++ source's register layout for `float`, which is narrower than the
// cell); the high bits are cleared, not left as reinterpreted garbage.
func SetFloat(v float32) Value { return Value(uint64(math.Float32bits(v))) }
func GetFloat(c Value) float32 { return math.Float32frombits(uint32(c)) }

func SetDouble(v float64) Value { return Value(math.Float64bits(v)) }
func GetDouble(c Value) float64 { return math.Float64frombits(uint64(c)) }

// CastFunc converts a Value interpreted as one base representation into a
// Value interpreted as another. Every entry does an explicit numeric
// conversion (integer truncation, sign extension, int->float
// round-to-nearest, float->int truncation toward zero); none reinterpret
// bits, per spec.md §3.1.
type CastFunc func(Value) Value

// Kind enumerates the base representations any-value casts operate over;
// this mirrors datatype.BaseType's integer/float/double split but lives
// here to avoid a dependency cycle (datatype does not need to know about
// cast mechanics).
type Kind byte

const (
	KindI8 Kind = iota
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindBool
	KindFloat
	KindDouble
)

// casts[from][to] performs an explicit numeric conversion. Built once at
// package init as a dense table indexed by Kind, the way the VM's own
// opcode dispatch tables (internal/vm) are built — a flat array beats a
// switch for a conversion matrix this dense.
var casts [11][11]CastFunc

func init() {
	toI64 := func(k Kind, c Value) int64 {
		switch k {
		case KindI8:
			return int64(GetI8(c))
		case KindU8:
			return int64(GetU8(c))
		case KindI16:
			return int64(GetI16(c))
		case KindU16:
			return int64(GetU16(c))
		case KindI32:
			return int64(GetI32(c))
		case KindU32:
			return int64(GetU32(c))
		case KindI64, KindBool:
			return GetI64(c)
		case KindU64:
			return int64(GetU64(c))
		case KindFloat:
			return int64(GetFloat(c))
		case KindDouble:
			return int64(GetDouble(c))
		}
		return 0
	}
	toF64 := func(k Kind, c Value) float64 {
		switch k {
		case KindFloat:
			return float64(GetFloat(c))
		case KindDouble:
			return GetDouble(c)
		case KindU64:
			return float64(GetU64(c))
		default:
			return float64(toI64(k, c))
		}
	}
	fromI64 := func(k Kind, v int64) Value {
		switch k {
		case KindI8:
			return SetI8(int8(v))
		case KindU8:
			return SetU8(uint8(v))
		case KindI16:
			return SetI16(int16(v))
		case KindU16:
			return SetU16(uint16(v))
		case KindI32:
			return SetI32(int32(v))
		case KindU32:
			return SetU32(uint32(v))
		case KindI64:
			return SetI64(v)
		case KindU64:
			return SetU64(uint64(v))
		case KindBool:
			return SetBool(v != 0)
		case KindFloat:
			return SetFloat(float32(v))
		case KindDouble:
			return SetDouble(float64(v))
		}
		return 0
	}

	for from := KindI8; from <= KindDouble; from++ {
		for to := KindI8; to <= KindDouble; to++ {
			from, to := from, to
			switch to {
			case KindFloat:
				casts[from][to] = func(c Value) Value { return SetFloat(float32(toF64(from, c))) }
			case KindDouble:
				casts[from][to] = func(c Value) Value { return SetDouble(toF64(from, c)) }
			default:
				casts[from][to] = func(c Value) Value { return fromI64(to, toI64(from, c)) }
			}
		}
	}
}

// Cast converts c, interpreted as Kind from, into the representation of
// Kind to.
func Cast(from, to Kind, c Value) Value {
	if from == to {
		return c
	}
	return casts[from][to](c)
}
