package vm

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/rtbuild"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// Save-state wire format (spec.md §6.3): magic "LMN|", 16-bit version, then
// the call stack, value stack, and global variables, all addressed by
// strtab's Murmur2-64 name hash so a save taken against one module version
// still resolves against a later one with added/removed globals.
const (
	saveMagic        = "LMN|"
	SaveFormatVersion = 0x01
	MinSaveVersion    = 0x01
)

type writer struct{ buf *bytes.Buffer }

func (x writer) u16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); x.buf.Write(b[:]) }
func (x writer) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); x.buf.Write(b[:]) }
func (x writer) u64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); x.buf.Write(b[:]) }
func (x writer) i64(v int64)  { x.u64(uint64(v)) }

// Save serializes cf's call stack, value stack, and the runtime's global
// variables to w (spec.md §6.3).
func (rt *Runtime) Save(out io.Writer, cf *ControlFlow) error {
	if _, err := io.WriteString(out, saveMagic); err != nil {
		return err
	}
	var payload bytes.Buffer
	x := writer{buf: &payload}

	x.u16(uint16(SaveFormatVersion))

	x.u32(uint32(len(cf.frames)))
	for _, f := range cf.frames {
		fn := rt.Program.FunctionByID(f.FuncID)
		var name strtab.Handle
		var sigHash uint32
		if fn != nil {
			name = fn.Name
			sigHash = fn.SigHash
		}
		x.u64(uint64(name))
		x.u32(sigHash)
		x.u32(uint32(rt.pcIndex(f.Func, f.PC)))
		x.u32(uint32(f.LocalCount))
		for i := 0; i < f.LocalCount; i++ {
			x.i64(cf.locals[f.LocalsStart+i])
		}
	}

	x.u32(uint32(cf.Depth()))
	for i := 0; i < cf.Depth(); i++ {
		x.u64(cf.stack[valueStackFloor+i])
	}

	x.u32(uint32(len(rt.globals)))
	for _, mod := range rt.Program.Modules {
		for _, g := range mod.Globals {
			x.u64(uint64(g.Name))
			x.u64(rt.getGlobal(g.ID))
		}
	}

	if _, err := out.Write(payload.Bytes()); err != nil {
		return err
	}
	return nil
}

// pcIndex finds op's position in fn's opcode chain (spec.md §6.3 "pc as
// opcode index"); rtbuild's records carry no index of their own since the
// interpreter never needs one, only save/restore does.
func (rt *Runtime) pcIndex(fn *rtbuild.RuntimeFunction, op *rtbuild.RuntimeOpcode) int {
	if fn == nil {
		return 0
	}
	for i, r := range fn.Opcodes {
		if r == op {
			return i
		}
	}
	return 0
}

type reader struct {
	buf *bytes.Reader
}

func (x reader) u16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(x.buf, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}
func (x reader) u32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(x.buf, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
func (x reader) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(x.buf, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Load reconstructs a ControlFlow from a save-state stream (spec.md §6.3).
// Reading an unknown signature or an out-of-range version returns false
// with no partial mutation of cf.
func (rt *Runtime) Load(in io.Reader, cf *ControlFlow) (bool, error) {
	var magic [4]byte
	if _, err := io.ReadFull(in, magic[:]); err != nil {
		return false, err
	}
	if string(magic[:]) != saveMagic {
		return false, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return false, err
	}
	x := reader{buf: bytes.NewReader(data)}

	version, err := x.u16()
	if err != nil {
		return false, err
	}
	if version < MinSaveVersion || version > SaveFormatVersion {
		return false, nil
	}

	type pendingFrame struct {
		fn         *rtbuild.RuntimeFunction
		funcID     uint32
		savedIndex int
		locals     []int64
	}

	frameCount, err := x.u32()
	if err != nil {
		return false, err
	}
	pending := make([]pendingFrame, 0, frameCount)
	for i := uint32(0); i < frameCount; i++ {
		nameHash, err := x.u64()
		if err != nil {
			return false, err
		}
		sigHash, err := x.u32()
		if err != nil {
			return false, err
		}
		savedIndex, err := x.u32()
		if err != nil {
			return false, err
		}
		localCount, err := x.u32()
		if err != nil {
			return false, err
		}
		locals := make([]int64, localCount)
		for j := uint32(0); j < localCount; j++ {
			v, err := x.u64()
			if err != nil {
				return false, err
			}
			locals[j] = int64(v)
		}

		fn, native, ok := rt.Program.ResolveSigHash(sigHash)
		if !ok || native != nil {
			fn = rt.Program.FunctionByName(strtab.Handle(nameHash))
			if fn == nil {
				return false, &lmerr.RuntimeError{Message: "save state: unresolved frame function"}
			}
		}
		rf, err := rt.buildFunction(fn)
		if err != nil {
			return false, err
		}
		pending = append(pending, pendingFrame{fn: rf, funcID: fn.ID, savedIndex: int(savedIndex), locals: locals})
	}

	valueCount, err := x.u32()
	if err != nil {
		return false, err
	}
	values := make([]uint64, valueCount)
	for i := range values {
		v, err := x.u64()
		if err != nil {
			return false, err
		}
		values[i] = v
	}

	globalCount, err := x.u32()
	if err != nil {
		return false, err
	}
	type namedGlobal struct {
		name strtab.Handle
		val  uint64
	}
	globals := make([]namedGlobal, globalCount)
	for i := range globals {
		nameHash, err := x.u64()
		if err != nil {
			return false, err
		}
		v, err := x.u64()
		if err != nil {
			return false, err
		}
		globals[i] = namedGlobal{name: strtab.Handle(nameHash), val: v}
	}

	// Everything decoded successfully; now mutate cf/rt.
	cf.Reset()
	for _, pf := range pending {
		frame := cf.pushFrame(pf.fn, pf.funcID, len(pf.locals))
		copy(cf.locals[frame.LocalsStart:frame.LocalsStart+frame.LocalCount], pf.locals)
		frame.PC = resolvePC(pf.fn, pf.savedIndex)
	}
	// Two-pass repair (spec.md §6.3): every frame except the topmost made a
	// call to reach the frame above it, and CALL saves the caller's pc as
	// its own Next, so that pc is the record a CALL's Next points at; if the
	// saved index no longer is (call sites moved), resume after the nearest
	// CALL opcode in that function.
	for i := 0; i < len(cf.frames)-1; i++ {
		f := &cf.frames[i]
		afterCall := false
		for _, r := range f.Func.Opcodes {
			afterCall = afterCall || (r.Type == opcode.Call && r.Next == f.PC)
		}
		if afterCall {
			continue
		}
		if c := nearestCallOpcode(f.Func, pending[i].savedIndex); c != nil && c.Type == opcode.Call {
			f.PC = c.Next
		} else {
			f.PC = c
		}
	}

	for i, v := range values {
		cf.stack[valueStackFloor+i] = v
	}
	cf.sp = len(values)

	for _, g := range globals {
		for _, mod := range rt.Program.Modules {
			for _, gv := range mod.Globals {
				if gv.Name == g.name {
					rt.setGlobal(gv.ID, g.val)
				}
			}
		}
	}

	return true, nil
}

func resolvePC(fn *rtbuild.RuntimeFunction, idx int) *rtbuild.RuntimeOpcode {
	if idx < 0 || idx >= len(fn.Opcodes) {
		return fn.Entry
	}
	return fn.Opcodes[idx]
}

func nearestCallOpcode(fn *rtbuild.RuntimeFunction, idx int) *rtbuild.RuntimeOpcode {
	best := -1
	bestDist := -1
	for i, r := range fn.Opcodes {
		if r.Type != opcode.Call {
			continue
		}
		dist := i - idx
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		return fn.Entry
	}
	return fn.Opcodes[best]
}
