package lmmodule

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// Wire format constants (spec.md §4.2/§6.2): magic "LMD|", a 16-bit format
// version, a 32-bit dependency hash, a 32-bit app version, then a
// compress/zlib stream holding the payload below. compress/zlib is used
// because spec.md §4.2 names it explicitly as the payload codec — this is
// the one place in the module where the standard library, not a
// third-party library, is the spec-mandated choice.
const (
	moduleMagic        = "LMD|"
	FormatVersion      = 0x10
	MinFormatVersion   = 0x10
)

// function flag byte bits (spec.md §4.2 "Function serialization").
const (
	ffNative byte = 1 << iota
	ffHasAliases
	ffHasReturn
	ffHasParams
	ffHasLabels
	ffHasAddressHooks
	ffHasPragmas
)

// Serialize writes mod's payload to w per spec.md §4.2, preceded by the
// magic, format version, dependencyHash, and appVersion compatibility
// fields.
func (m *Module) Serialize(w io.Writer, dependencyHash, appVersion uint32) error {
	if _, err := io.WriteString(w, moduleMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(FormatVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dependencyHash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, appVersion); err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := m.writePayload(&payload); err != nil {
		return err
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

type writer struct {
	buf *bytes.Buffer
	m   *Module
}

func (w *writer) u8(v byte)   { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}
func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}
func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}
func (w *writer) str(h strtab.Handle) {
	s, _ := w.m.Strings.Lookup(h)
	w.u16(uint16(len(s)))
	w.buf.WriteString(s)
}
func (w *writer) rawStr(s string) {
	w.u16(uint16(len(s)))
	w.buf.WriteString(s)
}

func (m *Module) writePayload(buf *bytes.Buffer) error {
	w := &writer{buf: buf, m: m}

	// 1. First function/variable ID (the high-water marks StartCompiling
	// recorded, so a reader continuing to compile into the same program
	// resumes allocation at the right place).
	w.u32(m.nextFuncID)
	w.u32(m.nextVarID)

	// 2. Source file infos.
	w.u16(uint16(len(m.SourceFiles)))
	for _, f := range m.SourceFiles {
		w.rawStr(f)
	}

	// 3. Preprocessor definitions — lemonscript's #define-style integer
	// constants are folded into this module's Constants list at compile
	// time in this implementation, so this section is always empty; the
	// count is still written to keep the wire layout stable if a future
	// front end starts populating it.
	w.u16(0)

	// 4. Functions.
	w.u16(uint16(len(m.Functions) + len(m.NativeFunctions)))
	for _, fn := range m.Functions {
		w.writeScriptFunction(fn)
	}
	for _, fn := range m.NativeFunctions {
		w.writeNativeFunction(fn)
	}

	// 5. Global variables: user-defined count, then total count. The
	// user-defined entries are written first so a reader can tell them
	// apart from plain globals purely by position, matching spec.md
	// §4.2's "count of user-defined then count of globals" ordering.
	var userGlobals, plainGlobals []*GlobalVariable
	for _, g := range m.Globals {
		if g.IsUser {
			userGlobals = append(userGlobals, g)
		} else {
			plainGlobals = append(plainGlobals, g)
		}
	}
	w.u16(uint16(len(userGlobals)))
	w.u16(uint16(len(m.Globals)))
	for _, g := range userGlobals {
		w.str(g.Name)
		w.u16(uint16(g.Type))
		w.u64(g.Init)
	}
	for _, g := range plainGlobals {
		w.str(g.Name)
		w.u16(uint16(g.Type))
		w.u64(g.Init)
	}

	// 6. Constants.
	w.u16(uint16(len(m.Constants)))
	for _, c := range m.Constants {
		w.str(c.Name)
		w.u16(uint16(c.Type))
		w.u64(c.Value)
	}

	// 7. Constant arrays: total then global count. This implementation has
	// no concept of a "non-global" constant array distinct from a module's
	// own, so the global count always equals the total.
	w.u16(uint16(len(m.ConstArrays)))
	w.u16(uint16(len(m.ConstArrays)))
	for _, a := range m.ConstArrays {
		w.str(a.Name)
		w.u16(uint16(a.ElemType))
		w.u32(uint32(len(a.Values)))
		for _, v := range a.Values {
			w.u64(v)
		}
	}

	// 8. Defines.
	w.u16(uint16(len(m.Defines)))
	for _, d := range m.Defines {
		w.str(d.Name)
		w.u16(uint16(d.Type))
		w.writeDefineBody(d)
	}

	// 9. String literals.
	w.u16(uint16(len(m.StringLiterals)))
	for _, h := range m.StringLiterals {
		w.str(h)
	}

	// 10. Custom data types.
	w.u16(uint16(len(m.CustomTypes)))
	for _, c := range m.CustomTypes {
		w.str(c.Name)
		w.u8(byte(c.Base))
	}

	return nil
}

func (w *writer) writeScriptFunction(fn *ScriptFunction) {
	flags := byte(0)
	if len(fn.Aliases) > 0 {
		flags |= ffHasAliases
	}
	if fn.HasReturn {
		flags |= ffHasReturn
	}
	if len(fn.Params) > 0 {
		flags |= ffHasParams
	}
	if len(fn.Labels) > 0 {
		flags |= ffHasLabels
	}
	if len(fn.AddressHooks) > 0 {
		flags |= ffHasAddressHooks
	}
	if len(fn.Pragmas) > 0 {
		flags |= ffHasPragmas
	}
	w.u8(flags)
	w.str(fn.Name)
	if flags&ffHasAliases != 0 {
		w.u16(uint16(len(fn.Aliases)))
		for _, a := range fn.Aliases {
			w.str(a)
		}
	}
	if flags&ffHasReturn != 0 {
		w.u16(uint16(fn.ReturnType))
	}
	if flags&ffHasParams != 0 {
		w.u16(uint16(len(fn.Params)))
		for _, p := range fn.Params {
			w.str(p.Name)
			w.u16(uint16(p.Type))
		}
	}

	w.u16(fn.SourceFile)
	w.u32(uint32(fn.BaseLine))
	w.u16(uint16(len(fn.Opcodes)))
	lastLine := fn.BaseLine
	for _, op := range fn.Opcodes {
		w.writeOpcode(op, &lastLine)
	}

	w.u16(uint16(len(fn.Locals)))
	for _, lv := range fn.Locals {
		w.str(lv.Name)
		w.u16(uint16(lv.Type))
	}

	if flags&ffHasLabels != 0 {
		w.u16(uint16(len(fn.Labels)))
		for _, l := range fn.Labels {
			w.str(l.Name)
			w.u32(l.Offset)
		}
	}
	if flags&ffHasAddressHooks != 0 {
		w.u16(uint16(len(fn.AddressHooks)))
		for _, h := range fn.AddressHooks {
			w.str(h)
		}
	}
	if flags&ffHasPragmas != 0 {
		w.u16(uint16(len(fn.Pragmas)))
		for _, pr := range fn.Pragmas {
			w.str(pr.Name)
			w.u64(uint64(pr.Value))
		}
	}
}

func (w *writer) writeNativeFunction(fn *NativeFunction) {
	flags := ffNative
	if fn.ReturnType != datatype.IDVoid {
		flags |= ffHasReturn
	}
	if len(fn.ParamTypes) > 0 {
		flags |= ffHasParams
	}
	w.u8(flags)
	w.str(fn.Name)
	if flags&ffHasReturn != 0 {
		w.u16(uint16(fn.ReturnType))
	}
	if flags&ffHasParams != 0 {
		w.u16(uint16(len(fn.ParamTypes)))
		for _, t := range fn.ParamTypes {
			w.str(0) // native params carry no individual names in this format
			w.u16(uint16(t))
		}
	}
	w.u8(byte(fn.Flags))
	w.str(fn.Context)
}

// writeOpcode packs one bytecode instruction into a uint16 header word —
// 6 bits of opcode type, 3 bits of paramKind, 1 bit marking whether an
// explicit line-number word follows, and (when it doesn't) a 5-bit line
// delta from the previous opcode's line — followed by an explicit uint16
// line number when the delta is negative or exceeds 30, then the opcode's
// uint16 data-type ID (always written), then 0..8 parameter bytes
// (spec.md §4.2). Flags are not stored: opcode.New derives SeqBreak/
// CtrlFlow from Type alone, so the reader recomputes them rather than
// spending header bits on redundant data.
func (w *writer) writeOpcode(op opcode.Opcode, lastLine *int) {
	kind := chooseParamKind(op.Param)
	delta := op.Line - *lastLine
	explicitLine := delta < 0 || delta > 30
	header := uint16(op.Type)&0x3F | uint16(kind)<<6
	if explicitLine {
		header |= 1 << 9
	} else {
		header |= uint16(delta&0x1F) << 10
	}
	w.u16(header)
	if explicitLine {
		w.u16(uint16(op.Line))
	}
	*lastLine = op.Line
	w.u16(uint16(op.DType))
	if b := encodeParam(kind, op.Param); b != nil {
		w.buf.Write(b)
	}
}

// writeDefineBody encodes a define's raw (pre-grouping) token list: the
// lexer-level tokens a macro body holds before any use-site expansion,
// which is exactly what spec.md §4.1 step 2 splices at each usage — never
// a fully resolved expression tree, since a define can be used in many
// differently-typed contexts.
func (w *writer) writeDefineBody(d *Define) {
	w.u16(uint16(len(d.Body.Nodes)))
	for _, idx := range d.Body.Nodes {
		n := d.Arena.Get(idx)
		w.u8(byte(n.Kind))
		w.u32(uint32(n.Line))
		switch n.Kind {
		case token.KindConstant:
			w.u16(uint16(n.DType))
			w.u64(n.ConstValue)
		default:
			w.str(n.Text)
		}
	}
}
