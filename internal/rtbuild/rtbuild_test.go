package rtbuild

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmmodule"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records every Default/Fused request and returns a no-op
// ExecFunc, so tests can assert from the recorded calls which path the
// builder took without needing a real interpreter.
type fakeDispatcher struct {
	defaultCalls []opcode.Type
	fusedCalls   []FusedShape
}

func (d *fakeDispatcher) Default(t opcode.Type, dtype datatype.ID) ExecFunc {
	d.defaultCalls = append(d.defaultCalls, t)
	return func(ExecContext) {}
}

func (d *fakeDispatcher) Fused(shape FusedShape, t opcode.Type, dtype datatype.ID, varKind opcode.VariableKind) ExecFunc {
	d.fusedCalls = append(d.fusedCalls, shape)
	return func(ExecContext) {}
}

func newOp(t opcode.Type, dtype datatype.ID, param uint64, line int) opcode.Opcode {
	return opcode.New(t, dtype, param, line)
}

func scriptFn(ops []opcode.Opcode) *lmmodule.ScriptFunction {
	return &lmmodule.ScriptFunction{Name: 0, Opcodes: ops}
}

func TestBuildDefaultDispatch(t *testing.T) {
	ops := []opcode.Opcode{
		newOp(opcode.PushConstant, datatype.IDInt32, 5, 1),
		newOp(opcode.Return, datatype.IDVoid, 0, 1),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 2)
	require.Equal(t, []opcode.Type{opcode.PushConstant, opcode.Return}, disp.defaultCalls)
	require.Equal(t, rf.Opcodes[1], rf.Opcodes[0].Next)
	require.Nil(t, rf.Opcodes[1].Next)
}

func TestBuildFusesConstArith(t *testing.T) {
	ops := []opcode.Opcode{
		newOp(opcode.PushConstant, datatype.IDInt32, 10, 1),
		newOp(opcode.ArithmAdd, datatype.IDInt32, 0, 1),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 1)
	require.Equal(t, []FusedShape{ShapeConstArith}, disp.fusedCalls)
	require.Equal(t, uint64(10), DecodeImmediate(rf.Opcodes[0].Params))
}

func TestBuildFusesSetDiscard(t *testing.T) {
	varID := opcode.VariableID(opcode.VarLocal, 3)
	ops := []opcode.Opcode{
		newOp(opcode.SetVariableValue, datatype.IDInt32, uint64(varID), 2),
		newOp(opcode.MoveStack, datatype.IDVoid, uint64(int64(-1)), 2),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 1)
	require.Equal(t, []FusedShape{ShapeSetDiscard}, disp.fusedCalls)
}

func TestBuildFusesExternalAddConstant(t *testing.T) {
	varID := opcode.VariableID(opcode.VarExternal, 1)
	ops := []opcode.Opcode{
		newOp(opcode.GetVariableValue, datatype.IDInt32, uint64(varID), 3),
		newOp(opcode.PushConstant, datatype.IDInt32, 7, 3),
		newOp(opcode.ArithmAdd, datatype.IDInt32, 0, 3),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 1)
	require.Equal(t, []FusedShape{ShapeExternalAddConstant}, disp.fusedCalls)
}

func TestBuildRewritesJumpTargetsAndShortcutsNext(t *testing.T) {
	// 0: push 1          (straight line)
	// 1: jump_conditional -> 4
	// 2: jump -> 4         (unconditional forward jump, should be skipped by Next)
	// 3: push 9            (dead straight-line filler so index 4 exists)
	// 4: return
	ops := []opcode.Opcode{
		newOp(opcode.PushConstant, datatype.IDInt32, 1, 1),
		newOp(opcode.JumpConditional, datatype.IDVoid, 4, 1),
		newOp(opcode.Jump, datatype.IDVoid, 4, 2),
		newOp(opcode.PushConstant, datatype.IDInt32, 9, 3),
		newOp(opcode.Return, datatype.IDVoid, 0, 4),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 5)

	jc := rf.Opcodes[1]
	require.Equal(t, rf.Opcodes[4], jc.JumpTarget)

	uncond := rf.Opcodes[2]
	require.Equal(t, rf.Opcodes[4], uncond.JumpTarget)

	// The record right before the unconditional jump should have its Next
	// short-circuited straight to the jump's forward target.
	require.Equal(t, rf.Opcodes[4], rf.Opcodes[1].Next)
}

func TestBuildSuccessiveCountResetsAfterConditionalJump(t *testing.T) {
	ops := []opcode.Opcode{
		newOp(opcode.JumpConditional, datatype.IDVoid, 2, 1),
		newOp(opcode.PushConstant, datatype.IDInt32, 1, 2),
		newOp(opcode.Return, datatype.IDVoid, 0, 3),
	}
	disp := &fakeDispatcher{}
	rf, err := Build(scriptFn(ops), disp, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, byte(0), rf.Opcodes[0].SuccessiveCount) // control flow
	require.Equal(t, byte(1), rf.Opcodes[1].SuccessiveCount) // fresh block after cond jump
	require.Equal(t, byte(0), rf.Opcodes[2].SuccessiveCount) // return is control flow
}

func TestBuildRejectsOversizeParams(t *testing.T) {
	disp := &fakeDispatcher{}
	nat := oversizeNativizer{}
	ops := []opcode.Opcode{newOp(opcode.PushConstant, datatype.IDInt32, 1, 1)}
	_, err := Build(scriptFn(ops), disp, nat, nil, nil)
	require.Error(t, err)
}

type oversizeNativizer struct{}

func (oversizeNativizer) Match(ops []opcode.Opcode, i int) (ExecFunc, []byte, int, bool) {
	return func(ExecContext) {}, make([]byte, MaxParamBytes+1), 1, true
}

// fakeMemoryHints reports a single direct-mapped address, to exercise the
// direct-pointer fusion variants.
type fakeMemoryHints struct {
	addr uint64
	swap bool
}

func (m fakeMemoryHints) DirectAddress(addr uint64) (bool, bool) {
	if addr == m.addr {
		return true, m.swap
	}
	return false, false
}

func TestBuildFusesFixedAddressReadDirect(t *testing.T) {
	ops := []opcode.Opcode{
		newOp(opcode.PushConstant, datatype.IDInt32, 0x1000, 1),
		newOp(opcode.ReadMemory, datatype.IDInt32, 0, 1),
	}
	disp := &fakeDispatcher{}
	mem := fakeMemoryHints{addr: 0x1000, swap: true}
	rf, err := Build(scriptFn(ops), disp, nil, mem, nil)
	require.NoError(t, err)
	require.Len(t, rf.Opcodes, 1)
	require.Equal(t, []FusedShape{ShapeReadFixedAddrDirect}, disp.fusedCalls)
	require.Equal(t, byte(1), rf.Opcodes[0].Params[len(rf.Opcodes[0].Params)-1])
}
