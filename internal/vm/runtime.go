package vm

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/lmmodule"
	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// NativeCallable is a host-bound native function or method's executable
// form: it pops its arguments off cf's value stack (in reverse push order,
// per spec.md §6.1) and pushes a result unless its signature is void.
// internal/native builds these; Runtime only calls through the interface
// to avoid importing internal/native (which imports internal/vm for
// ControlFlow access, so the dependency only runs one way).
type NativeCallable interface {
	Call(cf *ControlFlow)
}

// Runtime borrows a Program, lazily builds RuntimeFunctions for its script
// functions, and owns the static memory for global variables, the runtime
// string table, and every ControlFlow running against it (spec.md §3.9).
type Runtime struct {
	Program *lmmodule.Program
	Types   *datatype.Registry
	Strings *strtab.Table // runtime-allocated strings (e.g. concatenation results), distinct from the compiled module's table

	disp       *dispatcher
	nat        rtbuild.Nativizer
	memHandler MemoryAccessHandler

	runtimeFuncs map[uint32]*rtbuild.RuntimeFunction
	globals      []uint64

	userVars     map[uint32]UserVariableHandler
	externalVars ExternalVariableHandler
	natives      map[uint32]NativeCallable

	detail RuntimeDetailHandler

	encounteredBuildError bool
	stopSignal            bool
}

// RuntimeDetailHandler is the tracer hook spec.md §6.4's
// set_runtime_detail_handler wires in; nil disables tracing.
type RuntimeDetailHandler interface {
	OnOpcode(cf *ControlFlow, op *rtbuild.RuntimeOpcode)
}

// NewRuntime creates an empty Runtime; SetProgram must be called before any
// function can run.
func NewRuntime() *Runtime {
	return &Runtime{
		Strings:      strtab.New(),
		runtimeFuncs: make(map[uint32]*rtbuild.RuntimeFunction),
		userVars:     make(map[uint32]UserVariableHandler),
		natives:      make(map[uint32]NativeCallable),
	}
}

// SetProgram attaches the linked program this runtime executes against and
// sizes the global-variable block from its modules (spec.md §6.4).
func (rt *Runtime) SetProgram(p *lmmodule.Program) {
	rt.Program = p
	rt.Types = p.Types
	rt.disp = &dispatcher{rt: rt}

	maxID := uint32(0)
	for _, mod := range p.Modules {
		for _, g := range mod.Globals {
			if g.ID+1 > maxID {
				maxID = g.ID + 1
			}
		}
	}
	rt.globals = make([]uint64, maxID)
	for _, mod := range p.Modules {
		for _, g := range mod.Globals {
			if !g.IsUser {
				rt.globals[g.ID] = g.Init
			}
		}
	}

	p.ConstEval = rt.evalConstNative
}

// SetMemoryAccessHandler installs the host's general memory surface
// (spec.md §6.1/§6.4).
func (rt *Runtime) SetMemoryAccessHandler(h MemoryAccessHandler) { rt.memHandler = h }

// SetRuntimeDetailHandler installs the tracer hook.
func (rt *Runtime) SetRuntimeDetailHandler(h RuntimeDetailHandler) { rt.detail = h }

// SetNativizer installs the build-time nativized-opcode provider (spec.md
// §4.3 step 1); nil disables nativization.
func (rt *Runtime) SetNativizer(n rtbuild.Nativizer) { rt.nat = n }

// BindUserVariable registers a USER variable's getter/setter pair.
func (rt *Runtime) BindUserVariable(id uint32, h UserVariableHandler) { rt.userVars[id] = h }

// SetExternalVariableHandler installs the host's EXTERNAL-variable resolver.
func (rt *Runtime) SetExternalVariableHandler(h ExternalVariableHandler) { rt.externalVars = h }

// BindNative registers a native function or method's callable
// implementation under its module-assigned function ID.
func (rt *Runtime) BindNative(id uint32, c NativeCallable) { rt.natives[id] = c }

// buildFunction lazily builds and caches fn's RuntimeFunction.
func (rt *Runtime) buildFunction(fn *lmmodule.ScriptFunction) (*rtbuild.RuntimeFunction, error) {
	if rf, ok := rt.runtimeFuncs[fn.ID]; ok {
		return rf, nil
	}
	rf, err := rtbuild.Build(fn, rt.disp, rt.nat, memoryHintsAdapter{rt.memHandler}, rt.Types)
	if err != nil {
		rt.encounteredBuildError = true
		return nil, err
	}
	rt.runtimeFuncs[fn.ID] = rf
	return rf, nil
}

// BuildAllRuntimeFunctions eagerly compiles every script function in the
// attached program (spec.md §6.4's "build_all_runtime_functions").
func (rt *Runtime) BuildAllRuntimeFunctions() error {
	for _, mod := range rt.Program.Modules {
		for _, fn := range mod.Functions {
			if _, err := rt.buildFunction(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// CallFunction pushes a new call frame for the script function with the
// given ID onto cf, building it first if necessary.
func (rt *Runtime) CallFunction(cf *ControlFlow, funcID uint32) error {
	fn := rt.Program.FunctionByID(funcID)
	if fn == nil {
		return &lmerr.RuntimeError{Message: "call_function: unknown function id"}
	}
	return rt.enterFunction(cf, fn)
}

// CallFunctionByName resolves name against the program's unified index and
// enters it.
func (rt *Runtime) CallFunctionByName(cf *ControlFlow, name string) error {
	fn := rt.Program.FunctionByName(rt.Program.Strings.Intern(name))
	if fn == nil {
		return &lmerr.RuntimeError{Message: "call_function_by_name: unresolved name " + name}
	}
	return rt.enterFunction(cf, fn)
}

// CallFunctionAtLabel enters fn (by ID) but starts execution at one of its
// labels instead of opcode 0 — used by host code resuming a script at a
// named reentry point rather than the function's normal entry.
func (rt *Runtime) CallFunctionAtLabel(cf *ControlFlow, funcID uint32, label string) error {
	fn := rt.Program.FunctionByID(funcID)
	if fn == nil {
		return &lmerr.RuntimeError{Message: "call_function_at_label: unknown function id"}
	}
	rf, err := rt.buildFunction(fn)
	if err != nil {
		return err
	}
	offset := -1
	handle := rt.Program.Strings.Intern(label)
	for _, l := range fn.Labels {
		if l.Name == handle {
			offset = int(l.Offset)
			break
		}
	}
	if offset < 0 || offset >= len(rf.Opcodes) {
		return &lmerr.RuntimeError{Message: "call_function_at_label: unknown label " + label}
	}
	frame := cf.pushFrame(rf, fn.ID, len(fn.Locals))
	frame.PC = rf.Opcodes[offset]
	return nil
}

func (rt *Runtime) enterFunction(cf *ControlFlow, fn *lmmodule.ScriptFunction) error {
	rf, err := rt.buildFunction(fn)
	if err != nil {
		return err
	}
	cf.pushFrame(rf, fn.ID, len(fn.Locals))
	return nil
}

// evalConstNative implements lmmodule.Program.ConstEval (spec.md §4.1 step
// 16): it runs sig's native callable against a scratch ControlFlow so
// COMPILE_TIME_CONSTANT folding can invoke it during token processing.
func (rt *Runtime) evalConstNative(sig token.FunctionSig, args []uint64) (uint64, bool) {
	callable, ok := rt.natives[sig.ID]
	if !ok {
		return 0, false
	}
	scratch := NewControlFlow(rt)
	for _, a := range args {
		scratch.PushValue(a)
	}
	callable.Call(scratch)
	if sig.ReturnType == datatype.IDVoid {
		return 0, true
	}
	return scratch.PopValue(), true
}
