package lmmodule

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// Deserialize reads a module previously written by Serialize, checking
// the magic, format version, dependency hash, and app version before ever
// touching the compressed payload (spec.md §4.2's invariant: a
// signature/version/hash mismatch aborts before decompression).
func Deserialize(r io.Reader, strings *strtab.Table, types *datatype.Registry, wantDependencyHash, wantAppVersion uint32) (*Module, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("lmmodule: reading magic: %w", err)
	}
	if string(magic) != moduleMagic {
		return nil, fmt.Errorf("lmmodule: bad magic %q (expected %q)", magic, moduleMagic)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version < MinFormatVersion || version > FormatVersion {
		return nil, fmt.Errorf("lmmodule: unsupported format version 0x%02X", version)
	}

	var depHash, appVersion uint32
	if err := binary.Read(r, binary.LittleEndian, &depHash); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &appVersion); err != nil {
		return nil, err
	}
	if depHash != wantDependencyHash {
		return nil, fmt.Errorf("lmmodule: dependency hash mismatch (file 0x%08X, want 0x%08X)", depHash, wantDependencyHash)
	}
	if appVersion != wantAppVersion {
		return nil, fmt.Errorf("lmmodule: app version mismatch (file %d, want %d)", appVersion, wantAppVersion)
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("lmmodule: zlib: %w", err)
	}
	defer zr.Close()
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("lmmodule: decompressing payload: %w", err)
	}

	m := NewModule(strings, types)
	rd := &reader{buf: bytes.NewReader(payload), m: m}
	if err := rd.readPayload(); err != nil {
		return nil, err
	}
	return m, nil
}

type reader struct {
	buf *bytes.Reader
	m   *Module
	err error
}

func (r *reader) u8() byte {
	b, err := r.buf.ReadByte()
	if err != nil && r.err == nil {
		r.err = err
	}
	return b
}
func (r *reader) u16() uint16 {
	var v uint16
	if err := binary.Read(r.buf, binary.LittleEndian, &v); err != nil && r.err == nil {
		r.err = err
	}
	return v
}
func (r *reader) u32() uint32 {
	var v uint32
	if err := binary.Read(r.buf, binary.LittleEndian, &v); err != nil && r.err == nil {
		r.err = err
	}
	return v
}
func (r *reader) u64() uint64 {
	var v uint64
	if err := binary.Read(r.buf, binary.LittleEndian, &v); err != nil && r.err == nil {
		r.err = err
	}
	return v
}
func (r *reader) rawStr() string {
	n := r.u16()
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil && r.err == nil {
		r.err = err
	}
	return string(b)
}
func (r *reader) str() strtab.Handle {
	return r.m.Strings.Intern(r.rawStr())
}

func (r *reader) readPayload() error {
	m := r.m
	m.nextFuncID = r.u32()
	m.nextVarID = r.u32()

	sfCount := r.u16()
	m.SourceFiles = make([]string, sfCount)
	for i := range m.SourceFiles {
		m.SourceFiles[i] = r.rawStr()
	}

	// Preprocessor definitions section (always empty; see writePayload).
	ppCount := r.u16()
	for i := uint16(0); i < ppCount; i++ {
		r.str()
		r.u64()
	}

	fnCount := r.u16()
	for i := uint16(0); i < fnCount; i++ {
		r.readFunction()
	}

	userCount := r.u16()
	totalGlobals := r.u16()
	for i := uint16(0); i < totalGlobals; i++ {
		name := r.str()
		typ := datatype.ID(r.u16())
		init := r.u64()
		gv := &GlobalVariable{ID: m.nextVarAlloc(), Name: name, Type: typ, Init: init, IsUser: i < userCount}
		m.Globals = append(m.Globals, gv)
		kind := token.VarGlobal
		if gv.IsUser {
			kind = token.VarUser
		}
		m.bind(name, token.IdentVariable, token.Identifier{VarKind: kind, VarID: gv.ID, DType: typ})
	}

	constCount := r.u16()
	for i := uint16(0); i < constCount; i++ {
		name := r.str()
		typ := datatype.ID(r.u16())
		val := r.u64()
		c := &Constant{ID: m.nextConstAlloc(), Name: name, Type: typ, Value: val}
		m.Constants = append(m.Constants, c)
		m.bind(name, token.IdentConstant, token.Identifier{DType: typ, ConstVal: val})
	}

	totalArrs := r.u16()
	_ = r.u16() // global-array count; every array is global in this implementation
	for i := uint16(0); i < totalArrs; i++ {
		name := r.str()
		elem := datatype.ID(r.u16())
		n := r.u32()
		vals := make([]uint64, n)
		for j := range vals {
			vals[j] = r.u64()
		}
		a := &ConstantArray{ID: m.nextArrAlloc(), Name: name, ElemType: elem, Values: vals}
		m.ConstArrays = append(m.ConstArrays, a)
		m.bind(name, token.IdentConstantArray, token.Identifier{ArrayID: a.ID, TypeID: elem})
	}

	defCount := r.u16()
	for i := uint16(0); i < defCount; i++ {
		name := r.str()
		typ := datatype.ID(r.u16())
		arena, body := r.readDefineBody()
		d := &Define{ID: m.nextDefAlloc(), Name: name, Type: typ, Arena: arena, Body: body}
		m.Defines = append(m.Defines, d)
		m.bind(name, token.IdentDefine, token.Identifier{Define: body, DefineArena: arena, DType: typ})
	}

	strCount := r.u16()
	m.StringLiterals = make([]strtab.Handle, strCount)
	for i := range m.StringLiterals {
		m.StringLiterals[i] = r.str()
	}

	typeCount := r.u16()
	for i := uint16(0); i < typeCount; i++ {
		name := r.str()
		base := datatype.BaseType(r.u8())
		def := m.Types.AddCustom(name, baseWidth(base))
		m.CustomTypes = append(m.CustomTypes, &CustomDataType{ID: def.ID, Name: name, Base: base})
		m.bind(name, token.IdentDataType, token.Identifier{TypeID: def.ID})
	}

	return r.err
}

func baseWidth(b datatype.BaseType) int {
	switch b {
	case datatype.Int8, datatype.UInt8:
		return 1
	case datatype.Int16, datatype.UInt16:
		return 2
	case datatype.Int32, datatype.UInt32, datatype.Float:
		return 4
	default:
		return 8
	}
}

// nextVarAlloc/nextConstAlloc/nextArrAlloc/nextDefAlloc allocate IDs the
// way the add_* methods do during compilation, so a deserialized module's
// subsequent StartCompiling call continues from the right high-water mark
// even though the objects themselves were read rather than compiled.
func (m *Module) nextVarAlloc() uint32   { id := m.nextVarID; m.nextVarID++; return id }
func (m *Module) nextConstAlloc() uint32 { id := m.nextConstID; m.nextConstID++; return id }
func (m *Module) nextArrAlloc() uint32   { id := m.nextArrID; m.nextArrID++; return id }
func (m *Module) nextDefAlloc() uint32   { id := m.nextDefID; m.nextDefID++; return id }

func (r *reader) readFunction() {
	flags := r.u8()
	name := r.str()

	if flags&ffNative != 0 {
		fn := &NativeFunction{ID: r.m.nextFuncAlloc(), Name: name}
		if flags&ffHasReturn != 0 {
			fn.ReturnType = datatype.ID(r.u16())
		}
		if flags&ffHasParams != 0 {
			n := r.u16()
			fn.ParamTypes = make([]datatype.ID, n)
			for i := range fn.ParamTypes {
				r.str() // unnamed in native params
				fn.ParamTypes[i] = datatype.ID(r.u16())
			}
		}
		fn.Flags = token.NativeFlags(r.u8())
		fn.Context = r.str()
		r.m.NativeFunctions = append(r.m.NativeFunctions, fn)
		return
	}

	fn := &ScriptFunction{ID: r.m.nextFuncAlloc(), Name: name}
	if flags&ffHasAliases != 0 {
		n := r.u16()
		fn.Aliases = make([]strtab.Handle, n)
		for i := range fn.Aliases {
			fn.Aliases[i] = r.str()
		}
	}
	if flags&ffHasReturn != 0 {
		fn.ReturnType = datatype.ID(r.u16())
		fn.HasReturn = true
	}
	if flags&ffHasParams != 0 {
		n := r.u16()
		fn.Params = make([]Param, n)
		for i := range fn.Params {
			fn.Params[i].Name = r.str()
			fn.Params[i].Type = datatype.ID(r.u16())
		}
	}

	fn.SourceFile = r.u16()
	fn.BaseLine = int(r.u32())
	opCount := r.u16()
	fn.Opcodes = make([]opcode.Opcode, opCount)
	lastLine := fn.BaseLine
	for i := range fn.Opcodes {
		fn.Opcodes[i] = r.readOpcode(&lastLine)
	}

	locCount := r.u16()
	fn.Locals = make([]LocalVarInfo, locCount)
	for i := range fn.Locals {
		fn.Locals[i].Name = r.str()
		fn.Locals[i].Type = datatype.ID(r.u16())
	}

	if flags&ffHasLabels != 0 {
		n := r.u16()
		fn.Labels = make([]Label, n)
		for i := range fn.Labels {
			fn.Labels[i].Name = r.str()
			fn.Labels[i].Offset = r.u32()
		}
	}
	if flags&ffHasAddressHooks != 0 {
		n := r.u16()
		fn.AddressHooks = make([]strtab.Handle, n)
		for i := range fn.AddressHooks {
			fn.AddressHooks[i] = r.str()
		}
	}
	if flags&ffHasPragmas != 0 {
		n := r.u16()
		fn.Pragmas = make([]Pragma, n)
		for i := range fn.Pragmas {
			fn.Pragmas[i].Name = r.str()
			fn.Pragmas[i].Value = int64(r.u64())
		}
	}

	r.m.Functions = append(r.m.Functions, fn)
}

func (m *Module) nextFuncAlloc() uint32 { id := m.nextFuncID; m.nextFuncID++; return id }

// readDefineBody mirrors writeDefineBody: a define's body is the lexer-
// level token list a macro use-site splices in, not a resolved tree, so
// only the raw-token kinds writeDefineBody emits are expected back.
func (r *reader) readDefineBody() (*token.Arena, token.TokenList) {
	arena := token.NewArena()
	n := r.u16()
	nodes := make([]token.Index, n)
	for i := uint16(0); i < n; i++ {
		kind := token.Kind(r.u8())
		line := int(r.u32())
		nd := token.NewNode(kind, line)
		switch kind {
		case token.KindConstant:
			nd.DType = datatype.ID(r.u16())
			nd.ConstValue = r.u64()
			nd.Typed = true
		default:
			nd.Text = r.str()
		}
		nodes[i] = arena.Alloc(nd)
	}
	return arena, token.TokenList{Nodes: nodes}
}

func (r *reader) readOpcode(lastLine *int) opcode.Opcode {
	header := r.u16()
	t := opcode.Type(header & 0x3F)
	kind := paramKind((header >> 6) & 0x7)
	explicitLine := header&(1<<9) != 0

	var line int
	if explicitLine {
		line = int(r.u16())
	} else {
		delta := int((header >> 10) & 0x1F) // always >= 0; see writeOpcode
		line = *lastLine + delta
	}
	*lastLine = line

	dtype := datatype.ID(r.u16())
	n := paramByteLen(kind)
	raw := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r.buf, raw); err != nil && r.err == nil {
			r.err = err
		}
	}
	param := decodeParam(kind, raw)

	return opcode.New(t, dtype, param, line)
}
