// Package opcode models lemonscript's bytecode instruction set: the linear,
// per-function sequence a ScriptFunction holds (spec.md §3.6). This is the
// back end's output and the runtime function builder's (internal/rtbuild)
// input; nothing in this package executes anything.
package opcode

import "github.com/gmofishsauce/lemonscript/internal/datatype"

// Type is one of the 36 bytecode opcode types spec.md §3.6 enumerates,
// represented as a flat tagged enum (not a type hierarchy), per spec.md §9.
type Type byte

const (
	MoveStack Type = iota
	PushConstant
	GetVariableValue
	SetVariableValue
	ReadMemory
	WriteMemory
	Cast
	Booleanize

	ArithmAdd
	ArithmSub
	ArithmMul
	ArithmDiv
	ArithmMod
	ArithmShl
	ArithmShr
	ArithmAnd
	ArithmOr
	ArithmXor
	ArithmNeg
	// twelfth entry of the arithmetic group (ArithmAdd..ArithmUnaryPlus),
	// which brings the opcode type count to 36.
	ArithmUnaryPlus

	CompareEQ
	CompareNEQ
	CompareLT
	CompareLE
	CompareGT
	CompareGE

	UnaryNegate
	UnaryNot
	UnaryBitNot

	JumpConditional
	Jump
	JumpSwitch

	Call
	Return

	ExternalCall
	ExternalJump
)

func (t Type) String() string {
	names := [...]string{
		"MOVE_STACK", "PUSH_CONSTANT", "GET_VARIABLE_VALUE", "SET_VARIABLE_VALUE",
		"READ_MEMORY", "WRITE_MEMORY", "CAST", "BOOLEANIZE",
		"ARITHM_ADD", "ARITHM_SUB", "ARITHM_MUL", "ARITHM_DIV", "ARITHM_MOD",
		"ARITHM_SHL", "ARITHM_SHR", "ARITHM_AND", "ARITHM_OR", "ARITHM_XOR",
		"ARITHM_NEG", "ARITHM_UPLUS",
		"COMPARE_EQ", "COMPARE_NEQ", "COMPARE_LT", "COMPARE_LE", "COMPARE_GT", "COMPARE_GE",
		"UNARY_NEGATE", "UNARY_NOT", "UNARY_BITNOT",
		"JUMP_CONDITIONAL", "JUMP", "JUMP_SWITCH",
		"CALL", "RETURN",
		"EXTERNAL_CALL", "EXTERNAL_JUMP",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "UNKNOWN_OPCODE"
}

// IsArithmetic reports whether t is one of the 12 arithmetic-group opcodes
// (ArithmAdd through ArithmUnaryPlus).
func (t Type) IsArithmetic() bool { return t >= ArithmAdd && t <= ArithmUnaryPlus }

// IsCompare reports whether t is one of the 6 comparison opcodes.
func (t Type) IsCompare() bool { return t >= CompareEQ && t <= CompareGE }

// Flags is a small bitset carried by every opcode.
type Flags uint8

const (
	// SeqBreak marks an opcode that ends a straight-line run: the runtime
	// builder's successive_count computation resets at one (spec.md §4.3).
	SeqBreak Flags = 1 << iota
	// CtrlFlow marks a control-transfer opcode (jump/call/return/external);
	// these can never be elided from next-pointer shortcutting across a
	// backward edge (spec.md §4.3 post-processing).
	CtrlFlow
)

// VariableKind tags the high nibble of a 32-bit variable ID (spec.md §3.5).
type VariableKind byte

const (
	VarGlobal VariableKind = iota
	VarLocal
	VarUser
	VarExternal
)

const variableKindShift = 28

// VariableID packs a VariableKind into the high nibble of a 32-bit id.
func VariableID(kind VariableKind, index uint32) uint32 {
	return uint32(kind)<<variableKindShift | (index & 0x0FFFFFFF)
}

// SplitVariableID recovers the kind and index from a packed variable id.
func SplitVariableID(id uint32) (VariableKind, uint32) {
	return VariableKind(id >> variableKindShift), id & 0x0FFFFFFF
}

// Opcode is one bytecode instruction: type, data type, a 64-bit parameter
// (immediate, address, variable id, signature hash, or absolute opcode
// index for jumps), source line, and flags — a flat struct per spec.md §9,
// grounded on gmofishsauce/wut4/lang/ysem/ir.go's flat instruction records.
type Opcode struct {
	Type  Type
	DType datatype.ID
	Param uint64
	Line  int
	Flags Flags
}

// New builds an Opcode, inferring SeqBreak/CtrlFlow from its Type.
func New(t Type, dtype datatype.ID, param uint64, line int) Opcode {
	op := Opcode{Type: t, DType: dtype, Param: param, Line: line}
	switch t {
	case JumpConditional, Jump, JumpSwitch, Call, Return, ExternalCall, ExternalJump:
		op.Flags |= CtrlFlow | SeqBreak
	}
	return op
}
