package rtbuild

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
)

// tryFuse matches ops[i:] against the fixed two/three-opcode catalogue
// spec.md §4.3 lists, trying the three-opcode external-add-constant pattern
// first and then the two-opcode patterns. It returns the consumed opcode
// count on a match.
func tryFuse(ops []opcode.Opcode, i int, disp Dispatcher, mem MemoryHints, registry *datatype.Registry) (*RuntimeOpcode, int, bool) {
	if rec, n, ok := matchExternalAddConstant(ops, i, disp); ok {
		return rec, n, true
	}
	if rec, n, ok := matchConstArith(ops, i, disp); ok {
		return rec, n, true
	}
	if rec, n, ok := matchSetDiscard(ops, i, disp); ok {
		return rec, n, true
	}
	if rec, n, ok := matchWriteDiscard(ops, i, disp); ok {
		return rec, n, true
	}
	if rec, n, ok := matchReadFixedAddr(ops, i, disp, mem); ok {
		return rec, n, true
	}
	if rec, n, ok := matchWriteFixedAddr(ops, i, disp, mem); ok {
		return rec, n, true
	}
	return nil, 0, false
}

func has(ops []opcode.Opcode, i, n int) bool { return i+n <= len(ops) }

// matchConstArith fuses PUSH_CONSTANT + ARITHM_*/COMPARE_* into a single
// binary-op-with-constant record, for every base type (spec.md §4.3).
func matchConstArith(ops []opcode.Opcode, i int, disp Dispatcher) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 2) {
		return nil, 0, false
	}
	push, op := ops[i], ops[i+1]
	if push.Type != opcode.PushConstant {
		return nil, 0, false
	}
	if !op.Type.IsArithmetic() && !op.Type.IsCompare() {
		return nil, 0, false
	}
	exec := disp.Fused(ShapeConstArith, op.Type, op.DType, 0)
	if exec == nil {
		return nil, 0, false
	}
	return &RuntimeOpcode{
		Exec:   exec,
		Type:   op.Type,
		DType:  op.DType,
		Flags:  op.Flags,
		Params: EncodeImmediate(push.Param),
	}, 2, true
}

// matchSetDiscard fuses SET_VARIABLE_VALUE + MOVE_STACK(-1) into
// set-and-discard, specialized per variable kind and (via DType) byte width.
func matchSetDiscard(ops []opcode.Opcode, i int, disp Dispatcher) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 2) {
		return nil, 0, false
	}
	set, pop := ops[i], ops[i+1]
	if set.Type != opcode.SetVariableValue {
		return nil, 0, false
	}
	if !isDiscardOne(pop) {
		return nil, 0, false
	}
	kind, _ := opcode.SplitVariableID(uint32(set.Param))
	exec := disp.Fused(ShapeSetDiscard, opcode.SetVariableValue, set.DType, kind)
	if exec == nil {
		return nil, 0, false
	}
	return &RuntimeOpcode{
		Exec:   exec,
		Type:   set.Type,
		DType:  set.DType,
		Flags:  set.Flags,
		Params: EncodeImmediate(set.Param),
	}, 2, true
}

// matchWriteDiscard fuses WRITE_MEMORY(param=0) + MOVE_STACK(-1) into
// write-and-discard, per base type.
func matchWriteDiscard(ops []opcode.Opcode, i int, disp Dispatcher) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 2) {
		return nil, 0, false
	}
	write, pop := ops[i], ops[i+1]
	if write.Type != opcode.WriteMemory || write.Param != 0 {
		return nil, 0, false
	}
	if !isDiscardOne(pop) {
		return nil, 0, false
	}
	exec := disp.Fused(ShapeWriteDiscard, opcode.WriteMemory, write.DType, 0)
	if exec == nil {
		return nil, 0, false
	}
	return &RuntimeOpcode{Exec: exec, Type: write.Type, DType: write.DType, Flags: write.Flags}, 2, true
}

// matchReadFixedAddr fuses PUSH_CONSTANT(addr) + READ_MEMORY(0) into a
// read-from-fixed-address record, choosing the direct-pointer variant when
// mem reports the address maps straight into host memory.
func matchReadFixedAddr(ops []opcode.Opcode, i int, disp Dispatcher, mem MemoryHints) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 2) {
		return nil, 0, false
	}
	push, read := ops[i], ops[i+1]
	if push.Type != opcode.PushConstant || read.Type != opcode.ReadMemory || read.Param != 0 {
		return nil, 0, false
	}
	shape := ShapeReadFixedAddr
	params := EncodeImmediate(push.Param)
	if mem != nil {
		if direct, swap := mem.DirectAddress(push.Param); direct {
			shape = ShapeReadFixedAddrDirect
			params = append(params, boolByte(swap))
		}
	}
	exec := disp.Fused(shape, opcode.ReadMemory, read.DType, 0)
	if exec == nil {
		return nil, 0, false
	}
	return &RuntimeOpcode{Exec: exec, Type: read.Type, DType: read.DType, Flags: read.Flags, Params: params}, 2, true
}

// matchWriteFixedAddr is the write-side analogue of matchReadFixedAddr.
func matchWriteFixedAddr(ops []opcode.Opcode, i int, disp Dispatcher, mem MemoryHints) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 2) {
		return nil, 0, false
	}
	push, write := ops[i], ops[i+1]
	if push.Type != opcode.PushConstant || write.Type != opcode.WriteMemory || write.Param != 0 {
		return nil, 0, false
	}
	shape := ShapeWriteFixedAddr
	params := EncodeImmediate(push.Param)
	if mem != nil {
		if direct, swap := mem.DirectAddress(push.Param); direct {
			shape = ShapeWriteFixedAddrDirect
			params = append(params, boolByte(swap))
		}
	}
	exec := disp.Fused(shape, opcode.WriteMemory, write.DType, 0)
	if exec == nil {
		return nil, 0, false
	}
	return &RuntimeOpcode{Exec: exec, Type: write.Type, DType: write.DType, Flags: write.Flags, Params: params}, 2, true
}

// matchExternalAddConstant fuses the three-opcode run
// GET_VARIABLE_VALUE(external) + PUSH_CONSTANT + ARITHM_ADD into
// external-add-constant, the one catalogue entry spanning more than two
// source opcodes.
func matchExternalAddConstant(ops []opcode.Opcode, i int, disp Dispatcher) (*RuntimeOpcode, int, bool) {
	if !has(ops, i, 3) {
		return nil, 0, false
	}
	get, push, add := ops[i], ops[i+1], ops[i+2]
	if get.Type != opcode.GetVariableValue || push.Type != opcode.PushConstant || add.Type != opcode.ArithmAdd {
		return nil, 0, false
	}
	kind, _ := opcode.SplitVariableID(uint32(get.Param))
	if kind != opcode.VarExternal {
		return nil, 0, false
	}
	exec := disp.Fused(ShapeExternalAddConstant, opcode.ArithmAdd, add.DType, opcode.VarExternal)
	if exec == nil {
		return nil, 0, false
	}
	params := append(EncodeU32(uint32(get.Param)), EncodeImmediate(push.Param)...)
	return &RuntimeOpcode{Exec: exec, Type: add.Type, DType: add.DType, Flags: add.Flags, Params: params}, 3, true
}

func isDiscardOne(op opcode.Opcode) bool {
	return op.Type == opcode.MoveStack && int64(op.Param) == -1
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

