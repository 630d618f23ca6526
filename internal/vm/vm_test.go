package vm

import (
	"bytes"
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmmodule"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/stretchr/testify/require"
)

type stubConnector struct {
	calls   int
	returns int
}

func (s *stubConnector) HandleCall(fn, target uint32) bool    { s.calls++; return true }
func (s *stubConnector) HandleReturn() bool                   { s.returns++; return true }
func (s *stubConnector) HandleExternalCall(addr uint64) bool  { return true }
func (s *stubConnector) HandleExternalJump(addr uint64) bool  { return true }

func newTestProgram() (*lmmodule.Program, *strtab.Table, *datatype.Registry) {
	strs := strtab.New()
	types := datatype.NewRegistry(strs)
	prog := lmmodule.NewProgram(strs, types)
	return prog, strs, types
}

func addFunc(mod *lmmodule.Module, name string, ops []opcode.Opcode, locals int) *lmmodule.ScriptFunction {
	fn := &lmmodule.ScriptFunction{
		Name:      mod.Strings.Intern(name),
		Opcodes:   ops,
		HasReturn: false,
	}
	for i := 0; i < locals; i++ {
		fn.Locals = append(fn.Locals, lmmodule.LocalVarInfo{Type: datatype.IDInt32})
	}
	mod.AddScriptFunction(fn)
	return fn
}

func TestControlFlowPushPopClamp(t *testing.T) {
	rt := NewRuntime()
	cf := NewControlFlow(rt)
	cf.PushValue(1)
	cf.PushValue(2)
	require.Equal(t, uint64(2), cf.PeekValue(0))
	require.Equal(t, uint64(2), cf.PopValue())
	require.Equal(t, uint64(1), cf.PopValue())
	require.False(t, cf.clamped)

	cf.PopValue()
	require.True(t, cf.clamped)
}

func TestExecuteStepsSimpleAddAndReturn(t *testing.T) {
	prog, _, _ := newTestProgram()
	mod := lmmodule.NewModule(prog.Strings, prog.Types)
	ops := []opcode.Opcode{
		opcode.New(opcode.PushConstant, datatype.IDInt32, 2, 1),
		opcode.New(opcode.PushConstant, datatype.IDInt32, 3, 1),
		opcode.New(opcode.ArithmAdd, datatype.IDInt32, 0, 1),
		opcode.New(opcode.Return, datatype.IDVoid, 0, 2),
	}
	fn := addFunc(mod, "add23", ops, 0)
	prog.AddModule(mod)

	rt := NewRuntime()
	rt.SetProgram(prog)
	cf := NewControlFlow(rt)
	require.NoError(t, rt.CallFunction(cf, fn.ID))

	conn := &stubConnector{}
	res := rt.ExecuteSteps(cf, conn, 1000, 0)
	require.Equal(t, ResultOkay, res.Result) // clean stop: call stack reached minCallStackSize
	require.Equal(t, 1, conn.returns)
}

func TestExecuteStepsGlobalVariableRoundTrip(t *testing.T) {
	prog, _, _ := newTestProgram()
	mod := lmmodule.NewModule(prog.Strings, prog.Types)
	gID := mod.AddGlobalVariable(mod.Strings.Intern("score"), datatype.IDInt32, 0, false)
	varID := opcode.VariableID(opcode.VarGlobal, gID)

	ops := []opcode.Opcode{
		opcode.New(opcode.PushConstant, datatype.IDInt32, 42, 1),
		opcode.New(opcode.SetVariableValue, datatype.IDInt32, uint64(varID), 1),
		opcode.New(opcode.MoveStack, datatype.IDVoid, uint64(int64(-1)), 1), // fuses to set-discard
		opcode.New(opcode.Return, datatype.IDVoid, 0, 2),
	}
	fn := addFunc(mod, "setScore", ops, 0)
	prog.AddModule(mod)

	rt := NewRuntime()
	rt.SetProgram(prog)
	cf := NewControlFlow(rt)
	require.NoError(t, rt.CallFunction(cf, fn.ID))

	conn := &stubConnector{}
	res := rt.ExecuteSteps(cf, conn, 1000, 0)
	require.Equal(t, ResultOkay, res.Result)
	require.Equal(t, uint64(42), rt.getGlobal(gID))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	prog, _, _ := newTestProgram()
	mod := lmmodule.NewModule(prog.Strings, prog.Types)
	gID := mod.AddGlobalVariable(mod.Strings.Intern("lives"), datatype.IDInt32, 3, false)
	ops := []opcode.Opcode{
		opcode.New(opcode.PushConstant, datatype.IDInt32, 7, 1),
		opcode.New(opcode.Return, datatype.IDVoid, 0, 1),
	}
	fn := addFunc(mod, "pushSeven", ops, 2)
	prog.AddModule(mod)

	rt := NewRuntime()
	rt.SetProgram(prog)
	rt.setGlobal(gID, 9)
	cf := NewControlFlow(rt)
	require.NoError(t, rt.CallFunction(cf, fn.ID))
	cf.PushValue(111)

	var buf bytes.Buffer
	require.NoError(t, rt.Save(&buf, cf))

	rt2 := NewRuntime()
	rt2.SetProgram(prog)
	cf2 := NewControlFlow(rt2)
	ok, err := rt2.Load(bytes.NewReader(buf.Bytes()), cf2)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 1, cf2.CallDepth())
	require.Equal(t, uint64(9), rt2.getGlobal(gID))
	require.Equal(t, 1, cf2.Depth())
	require.Equal(t, uint64(111), cf2.PeekValue(0))
}
