package vm

import (
	"fmt"
	"io"

	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
)

// Tracer is a RuntimeDetailHandler that prints one line each time the
// executor's inner loop reaches an opcode (the first opcode of a
// straight-line batch, or a control-flow opcode): the value-stack depth at
// that point and the depth at the previous line (sp_before), grounded on
// gmofishsauce/wut4/emul/trace.go's pre/post-instruction trace pair,
// generalized from fixed registers to the stack-machine state lemonscript
// actually has.
type Tracer struct {
	out    io.Writer
	prevSP int
	cycles uint64
}

// NewTracer creates a Tracer writing to out.
func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out}
}

var _ RuntimeDetailHandler = (*Tracer)(nil)

// OnOpcode implements RuntimeDetailHandler.
func (t *Tracer) OnOpcode(cf *ControlFlow, op *rtbuild.RuntimeOpcode) {
	t.cycles++
	fmt.Fprintf(t.out, "%08d depth=%-2d call_depth=%-2d %-20s dtype=%d succ=%d sp_before=%d\n",
		t.cycles, cf.Depth(), cf.CallDepth(), op.Type, op.DType, op.SuccessiveCount, t.prevSP)
	t.prevSP = cf.Depth()
}
