// Package lmerr holds the error types shared across the compiler, module
// serializer, runtime builder, and VM. Errors are collected, not thrown: a
// compile pass gathers every CompileError it can find before giving up, the
// way gmofishsauce/wut4/lang/yparse accumulates into an []string.
package lmerr

import "fmt"

// CompileError is a single diagnostic produced while processing tokens or
// compiling a module. Line is the 1-based source line it applies to, or 0
// if no specific line is known.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Newf builds a CompileError with a formatted message.
func Newf(line int, format string, args ...any) *CompileError {
	return &CompileError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Collector accumulates CompileErrors across a processing pass. An errored
// token list is abandoned by its caller, but the collector keeps gathering
// so the host can see every problem at once.
type Collector struct {
	errors []*CompileError
}

// Add records a new error.
func (c *Collector) Add(line int, format string, args ...any) {
	c.errors = append(c.errors, Newf(line, format, args...))
}

// AddErr records an already-built CompileError.
func (c *Collector) AddErr(err *CompileError) {
	c.errors = append(c.errors, err)
}

// Ok reports whether no errors have been collected.
func (c *Collector) Ok() bool {
	return len(c.errors) == 0
}

// Errors returns the collected errors in the order they were added.
func (c *Collector) Errors() []*CompileError {
	return c.errors
}

// BuildError signals that the runtime function builder (internal/rtbuild)
// could not translate a function's bytecode: an unknown opcode type or
// corrupt bytecode. Per spec.md §4.3/§7, this latches the runtime's
// encountered-build-error state; it is not meant to be retried.
type BuildError struct {
	Function string
	Message  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build error in %s: %s", e.Function, e.Message)
}

// RuntimeError reports a VM fault: invalid program counter, stack
// over/underflow, an unresolved call target, or an invalid variable id.
// These are always reported; over/underflow is clamped to a safe sentinel
// by the caller before this is raised.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "runtime error: " + e.Message
}

// haltSignal is the payload of the panic/recover pair used to unwind out of
// a deeply nested ExecuteSteps call on a fatal condition, the way
// jcorbin/gothird's Core.halt() panics with a haltError that a deferred
// recover() at the top of the interpreter loop catches.
type haltSignal struct {
	err error
}

// Halt aborts the current ExecuteSteps call by panicking with a recoverable
// signal. Callers of ExecuteSteps never see a panic: Recover must be
// deferred at the entry point.
func Halt(err error) {
	panic(haltSignal{err: err})
}

// Recover must be deferred by any function that calls code which may call
// Halt. On a halt, *outErr is set and the panic is swallowed; any other
// panic is re-raised unchanged.
func Recover(outErr *error) {
	r := recover()
	if r == nil {
		return
	}
	if hs, ok := r.(haltSignal); ok {
		*outErr = hs.err
		return
	}
	panic(r)
}
