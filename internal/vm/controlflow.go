// Package vm implements the runtime's control flow and executor (spec.md
// §3.8, §4.4): the value stack, local-variable buffer, and call stack per
// script invocation, plus the outer/inner execution loop that drives
// RuntimeOpcode chains built by internal/rtbuild.
//
// Grounded on gmofishsauce/wut4/emul/{cpu,exec,execute,trace}.go's staged
// fetch/decode/execute loop and its split between architectural state (the
// stacks here) and shared/process state (Runtime below).
package vm

import (
	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
)

// Stack sizing (spec.md §3.8): nominal capacities with a small underflow
// floor kept before the usable region so a single spurious pop doesn't
// crash before the clamp logic notices.
const (
	ValueStackCapacity = 256
	valueStackFloor    = 4
	LocalsCapacity     = 4096
)

// Frame is one call-stack entry (spec.md §3.8).
type Frame struct {
	Func          *rtbuild.RuntimeFunction
	FuncID        uint32
	BaseCallIndex int // index into the signature-hash chain for base-call resolution
	PC            *rtbuild.RuntimeOpcode
	LocalsStart   int
	LocalCount    int
}

// ControlFlow holds one script invocation's stacks and frames. It is owned
// by a Runtime and reset (not reallocated) between independent runs
// (spec.md §3.10).
type ControlFlow struct {
	rt *Runtime

	stack []uint64 // value stack, floor cells then usable region
	sp    int      // index of the next free usable-region cell (0-based within usable region)

	locals []int64

	frames []Frame

	cur *rtbuild.RuntimeOpcode // the runtime opcode currently executing, for Opcode()

	// clamped records that an over/underflow was clamped this call, so the
	// outer loop can report a runtime error once instead of looping forever.
	clamped bool
}

// NewControlFlow allocates a ControlFlow's stacks at full nominal capacity;
// Reset clears logical state without shrinking them.
func NewControlFlow(rt *Runtime) *ControlFlow {
	cf := &ControlFlow{
		rt:     rt,
		stack:  make([]uint64, valueStackFloor+ValueStackCapacity),
		locals: make([]int64, LocalsCapacity),
	}
	cf.Reset()
	return cf
}

// Reset clears stacks and frames but preserves the underlying allocations
// (spec.md §3.10).
func (cf *ControlFlow) Reset() {
	cf.sp = 0
	cf.frames = cf.frames[:0]
	cf.cur = nil
	cf.clamped = false
}

// PushValue implements rtbuild.ExecContext.
func (cf *ControlFlow) PushValue(v uint64) {
	if cf.sp >= ValueStackCapacity {
		cf.clamped = true
		cf.sp = ValueStackCapacity - 1
	}
	cf.stack[valueStackFloor+cf.sp] = v
	cf.sp++
}

// PopValue implements rtbuild.ExecContext.
func (cf *ControlFlow) PopValue() uint64 {
	if cf.sp <= 0 {
		cf.clamped = true
		return 0
	}
	cf.sp--
	return cf.stack[valueStackFloor+cf.sp]
}

// PeekValue implements rtbuild.ExecContext; depth 0 is the top of stack.
func (cf *ControlFlow) PeekValue(depth int) uint64 {
	idx := cf.sp - 1 - depth
	if idx < -valueStackFloor || idx >= ValueStackCapacity {
		cf.clamped = true
		return 0
	}
	return cf.stack[valueStackFloor+idx]
}

// Depth returns the current value-stack depth, used by tests and by the
// call/return balance checks spec.md §8 names.
func (cf *ControlFlow) Depth() int { return cf.sp }

// Opcode implements rtbuild.ExecContext.
func (cf *ControlFlow) Opcode() *rtbuild.RuntimeOpcode { return cf.cur }

var _ rtbuild.ExecContext = (*ControlFlow)(nil)

// local resolves a frame-relative local-variable index to its absolute
// slot, clamping to a safe sentinel on overflow rather than panicking
// (spec.md §7's "invalid variable id").
func (cf *ControlFlow) local(idx uint32) *int64 {
	frame := cf.topFrame()
	abs := frame.LocalsStart + int(idx)
	if abs < 0 || abs >= len(cf.locals) {
		cf.clamped = true
		abs = 0
	}
	return &cf.locals[abs]
}

func (cf *ControlFlow) topFrame() *Frame {
	if len(cf.frames) == 0 {
		return &Frame{}
	}
	return &cf.frames[len(cf.frames)-1]
}

// pushFrame appends a new call frame, allocating its locals by extending
// the locals buffer (zero-initialized, per MOVE_VAR_STACK in spec.md §3.8).
func (cf *ControlFlow) pushFrame(fn *rtbuild.RuntimeFunction, funcID uint32, localCount int) *Frame {
	start := 0
	if len(cf.frames) > 0 {
		prev := cf.frames[len(cf.frames)-1]
		start = prev.LocalsStart + prev.LocalCount
	}
	end := start + localCount
	if end > len(cf.locals) {
		cf.clamped = true
		end = len(cf.locals)
	}
	for i := start; i < end; i++ {
		cf.locals[i] = 0
	}
	cf.frames = append(cf.frames, Frame{Func: fn, FuncID: funcID, LocalsStart: start, LocalCount: localCount, PC: fn.Entry})
	return &cf.frames[len(cf.frames)-1]
}

// popFrame truncates the locals buffer to the frame's start and removes it
// from the call stack (spec.md §4.4 "RETURN").
func (cf *ControlFlow) popFrame() {
	if len(cf.frames) == 0 {
		lmerr.Halt(&lmerr.RuntimeError{Message: "return with empty call stack"})
	}
	cf.frames = cf.frames[:len(cf.frames)-1]
}

// CallDepth reports the current call-stack size.
func (cf *ControlFlow) CallDepth() int { return len(cf.frames) }
