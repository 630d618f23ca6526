package vm

import (
	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
)

// batchSize bounds how many successive straight-line opcodes the inner loop
// dispatches before re-checking the step budget (spec.md §4.4 "batch-execute
// up to 4 successive opcodes").
const batchSize = 4

// TriggerStopSignal requests the outer loop return at its next boundary
// (spec.md §4.4 "Cancellation").
func (rt *Runtime) TriggerStopSignal() { rt.stopSignal = true }

// ExecuteSteps runs cf forward under conn's host callbacks until a stop
// condition is reached: the step limit, a host callback returning false, a
// RETURN dropping the call stack to minCallStackSize, or a halt (build
// error or clamped stack access). Grounded on gmofishsauce/wut4/emul/cpu.go's
// Run method (fetch/decode/execute loop with exception checks between
// stages) generalized to runtime-opcode batches instead of single
// instructions.
func (rt *Runtime) ExecuteSteps(cf *ControlFlow, conn ExecuteConnector, stepsLimit, minCallStackSize int) (res ExecuteResult) {
	result := ExecuteResult{Result: ResultOkay}
	rt.stopSignal = false

	if rt.encounteredBuildError {
		result.Result = ResultHalt
		return result
	}

	var haltErr error
	defer func() {
		if haltErr != nil {
			res = result
			res.Result = ResultHalt
		}
	}()
	defer lmerr.Recover(&haltErr)

	for {
		if rt.stopSignal || result.StepsExecuted >= stepsLimit {
			return result
		}
		frame := cf.topFrame()
		if frame.PC == nil {
			result.Result = ResultHalt
			return result
		}
		cf.cur = frame.PC

		halted, stop := rt.runInnerLoop(cf, conn, &result, stepsLimit, minCallStackSize)
		if halted {
			result.Result = ResultHalt
			return result
		}
		if stop {
			return result
		}
		if cf.clamped {
			result.Result = ResultHalt
			return result
		}
	}
}

// runInnerLoop batches straight-line dispatch, then handles the one
// control-flow opcode that ended the run (spec.md §4.4 "Inner loop").
// Returns (halted, stop): halted means a fatal error, stop means a clean
// early return to the host (host callback declined, or call stack reached
// its floor).
func (rt *Runtime) runInnerLoop(cf *ControlFlow, conn ExecuteConnector, result *ExecuteResult, stepsLimit, minCallStackSize int) (halted, stop bool) {
	for {
		op := cf.cur
		if op == nil {
			return true, false
		}
		if rt.detail != nil {
			rt.detail.OnOpcode(cf, op)
		}

		if op.SuccessiveCount > 0 {
			batch := int(op.SuccessiveCount)
			if batch > batchSize {
				batch = batchSize
			}
			for i := 0; i < batch; i++ {
				if op == nil {
					return true, false
				}
				op.Exec(cf)
				result.StepsExecuted++
				if cf.clamped {
					return true, false
				}
				op = op.Next
			}
			cf.cur = op
			cf.topFrame().PC = op
			if result.StepsExecuted >= stepsLimit {
				return false, true
			}
			continue
		}

		// successive_count == 0: this opcode is a control-flow boundary.
		switch op.Type {
		case opcode.JumpConditional:
			v := cf.PopValue()
			result.StepsExecuted++
			if v != 0 {
				cf.cur = op.Next
				cf.topFrame().PC = op.Next
				continue
			}
			fallthrough
		case opcode.Jump:
			target := op.JumpTarget
			if target == nil {
				return true, false
			}
			cf.cur = target
			cf.topFrame().PC = target
			result.StepsExecuted++
			if result.StepsExecuted >= stepsLimit {
				return false, true
			}
			continue

		case opcode.JumpSwitch:
			top := cf.PeekValue(0)
			if top == 0 {
				cf.PopValue()
				target := op.JumpTarget
				if target == nil {
					return true, false
				}
				cf.cur = target
				cf.topFrame().PC = target
			} else {
				cf.PopValue()
				cf.PushValue(top - 1)
				cf.cur = op.Next
				cf.topFrame().PC = op.Next
			}
			result.StepsExecuted++
			continue

		case opcode.Call:
			sigHash := uint32(rtbuild.DecodeImmediate(op.Params))
			cf.topFrame().PC = op.Next
			ok := rt.handleCall(cf, sigHash, conn)
			if !ok {
				return false, true
			}
			cf.cur = cf.topFrame().PC
			result.StepsExecuted++
			continue

		case opcode.Return:
			funcID := cf.topFrame().FuncID
			cf.popFrame()
			ok := conn == nil || conn.HandleReturn()
			result.StepsExecuted++
			_ = funcID
			if !ok || cf.CallDepth() <= minCallStackSize {
				return false, true
			}
			frame := cf.topFrame()
			cf.cur = frame.PC
			continue

		case opcode.ExternalCall:
			addr := cf.PopValue()
			cf.topFrame().PC = op.Next
			ok := conn == nil || conn.HandleExternalCall(addr)
			result.StepsExecuted++
			cf.cur = cf.topFrame().PC
			if !ok {
				return false, true
			}
			continue

		case opcode.ExternalJump:
			addr := cf.PopValue()
			cf.topFrame().PC = op.Next
			ok := conn == nil || conn.HandleExternalJump(addr)
			result.StepsExecuted++
			cf.cur = cf.topFrame().PC
			if !ok {
				return false, true
			}
			continue

		default:
			// A straight-line opcode with successive_count == 0 (the last
			// opcode of a function with no trailing control-flow op) still
			// needs to execute once.
			op.Exec(cf)
			result.StepsExecuted++
			if cf.clamped {
				return true, false
			}
			cf.cur = op.Next
			cf.topFrame().PC = op.Next
			if op.Next == nil {
				return true, false
			}
			continue
		}
	}
}

// handleCall resolves sigHash against the program (spec.md §4.4's CALL
// dispatch, simplified: Go's pointer-based RuntimeFunction cache makes the
// flags-encoded "cached pointer present" fast path unnecessary — a map
// lookup already is the cache), pushes the callee's frame, and notifies the
// host. A native target runs inline rather than pushing a frame.
func (rt *Runtime) handleCall(cf *ControlFlow, sigHash uint32, conn ExecuteConnector) bool {
	fn, native, ok := rt.Program.ResolveSigHash(sigHash)
	if !ok {
		lmerr.Halt(&lmerr.RuntimeError{Message: "call: unresolved signature hash"})
		return false
	}
	if native != nil {
		if callable := rt.natives[native.ID]; callable != nil {
			callable.Call(cf)
		}
		if conn != nil {
			return conn.HandleCall(0, native.ID)
		}
		return true
	}
	if err := rt.enterFunction(cf, fn); err != nil {
		rt.encounteredBuildError = true
		return false
	}
	if conn != nil {
		return conn.HandleCall(fn.ID, fn.ID)
	}
	return true
}
