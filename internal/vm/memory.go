package vm

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
)

// MemoryAccessHandler is the host's general-purpose memory surface (spec.md
// §6.1 "memory access handler"): byte/half/word/double read and write, plus
// an optional direct-pointer optimization the runtime builder consults
// through MemoryHints (rtbuild.go) when fusing PUSH_CONSTANT+READ_MEMORY /
// PUSH_CONSTANT+WRITE_MEMORY.
type MemoryAccessHandler interface {
	Read8(addr uint64) uint64
	Read16(addr uint64) uint64
	Read32(addr uint64) uint64
	Read64(addr uint64) uint64
	Write8(addr uint64, v uint64)
	Write16(addr uint64, v uint64)
	Write32(addr uint64, v uint64)
	Write64(addr uint64, v uint64)
	// DirectAddress reports whether addr maps straight into host memory the
	// generated code can touch without going back through this interface,
	// and whether the bytes there need endian-swapping.
	DirectAddress(addr uint64) (direct, swap bool)
}

// UserVariableHandler implements a USER-kind variable's getter/setter pair
// (spec.md §6.1): the host pushes/pops the value stack itself rather than
// handing back a plain value, since some user variables compute their
// value from multiple host-side fields.
type UserVariableHandler interface {
	Get(cf *ControlFlow)
	Set(cf *ControlFlow)
}

// ExternalVariableHandler resolves an EXTERNAL variable's id to a live
// int64 cell in host memory; reads and writes go through the pointer
// directly (spec.md §6.1).
type ExternalVariableHandler interface {
	Resolve(id uint32) *int64
}

// memoryHintsAdapter lets a MemoryAccessHandler satisfy rtbuild.MemoryHints
// without rtbuild importing this package.
type memoryHintsAdapter struct {
	h MemoryAccessHandler
}

func (a memoryHintsAdapter) DirectAddress(addr uint64) (bool, bool) {
	if a.h == nil {
		return false, false
	}
	return a.h.DirectAddress(addr)
}

// variableAccess is the runtime-side resolution of a packed variable id
// (spec.md §3.5's four kinds) shared by the default dispatch table and the
// fused set-discard/external-add-constant exec functions.
func (rt *Runtime) variableAccess(cf *ControlFlow, id uint32) uint64 {
	kind, idx := opcode.SplitVariableID(id)
	switch kind {
	case opcode.VarLocal:
		return uint64(*cf.local(idx))
	case opcode.VarGlobal:
		return rt.getGlobal(idx)
	case opcode.VarUser:
		if h := rt.userVars[idx]; h != nil {
			h.Get(cf)
			return cf.PopValue()
		}
		return 0
	case opcode.VarExternal:
		if h := rt.externalVars; h != nil {
			if p := h.Resolve(idx); p != nil {
				return uint64(*p)
			}
		}
		return 0
	}
	return 0
}

func (rt *Runtime) setVariable(cf *ControlFlow, id uint32, v uint64) {
	kind, idx := opcode.SplitVariableID(id)
	switch kind {
	case opcode.VarLocal:
		*cf.local(idx) = int64(v)
	case opcode.VarGlobal:
		rt.setGlobal(idx, v)
	case opcode.VarUser:
		if h := rt.userVars[idx]; h != nil {
			cf.PushValue(v)
			h.Set(cf)
		}
	case opcode.VarExternal:
		if h := rt.externalVars; h != nil {
			if p := h.Resolve(idx); p != nil {
				*p = int64(v)
			}
		}
	}
}

func (rt *Runtime) getGlobal(idx uint32) uint64 {
	if int(idx) >= len(rt.globals) {
		return 0
	}
	return rt.globals[idx]
}

func (rt *Runtime) setGlobal(idx uint32, v uint64) {
	if int(idx) >= len(rt.globals) {
		return
	}
	rt.globals[idx] = v
}

// readMemory/writeMemory dispatch to the host handler's fixed-width
// accessor matching dtype's byte width (spec.md §4.1 step 10: memory
// accesses are restricted to default-semantics integer types, so only
// 1/2/4/8-byte widths occur here).
func (rt *Runtime) readMemory(addr uint64, dtype datatype.ID) uint64 {
	if rt.memHandler == nil {
		return 0
	}
	switch byteWidth(rt.Types, dtype) {
	case 1:
		return rt.memHandler.Read8(addr)
	case 2:
		return rt.memHandler.Read16(addr)
	case 4:
		return rt.memHandler.Read32(addr)
	default:
		return rt.memHandler.Read64(addr)
	}
}

func (rt *Runtime) writeMemory(addr uint64, dtype datatype.ID, v uint64) {
	if rt.memHandler == nil {
		return
	}
	switch byteWidth(rt.Types, dtype) {
	case 1:
		rt.memHandler.Write8(addr, v)
	case 2:
		rt.memHandler.Write16(addr, v)
	case 4:
		rt.memHandler.Write32(addr, v)
	default:
		rt.memHandler.Write64(addr, v)
	}
}

// readMemoryDirect/writeMemoryDirect are the fused fixed-address variants;
// lacking an actual unsafe host pointer to follow, they still go through
// the handler but skip the DirectAddress re-check the non-fused path would
// otherwise redo on every access, and apply the swap flag the builder
// already baked into the fused opcode's parameters.
func (rt *Runtime) readMemoryDirect(addr uint64, dtype datatype.ID, swap bool) uint64 {
	v := rt.readMemory(addr, dtype)
	if swap {
		v = byteSwap(v, byteWidth(rt.Types, dtype))
	}
	return v
}

func (rt *Runtime) writeMemoryDirect(addr uint64, dtype datatype.ID, v uint64, swap bool) {
	if swap {
		v = byteSwap(v, byteWidth(rt.Types, dtype))
	}
	rt.writeMemory(addr, dtype, v)
}

func byteWidth(reg *datatype.Registry, id datatype.ID) int {
	if def := reg.Lookup(id); def != nil && def.ByteWidth > 0 {
		return def.ByteWidth
	}
	return 8
}

func byteSwap(v uint64, width int) uint64 {
	switch width {
	case 2:
		return uint64(uint16(v)>>8 | uint16(v)<<8)
	case 4:
		u := uint32(v)
		return uint64(u>>24 | (u>>8)&0xFF00 | (u<<8)&0xFF0000 | u<<24)
	case 8:
		var out uint64
		for i := 0; i < 8; i++ {
			out |= ((v >> (8 * i)) & 0xFF) << (8 * (7 - i))
		}
		return out
	default:
		return v
	}
}
