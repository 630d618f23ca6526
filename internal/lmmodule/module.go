package lmmodule

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// Module is one compilation unit's exclusive owner of every object it
// defines (spec.md §3.9). It is built either by compilation (the add_*
// methods below) or by Deserialize, added to at most one Program, and
// never structurally mutated after linking.
type Module struct {
	Strings *strtab.Table
	Types   *datatype.Registry

	SourceFiles []string

	nextFuncID  uint32
	nextVarID   uint32
	nextConstID uint32
	nextArrID   uint32
	nextDefID   uint32

	Functions       []*ScriptFunction
	NativeFunctions []*NativeFunction
	Globals         []*GlobalVariable
	Constants       []*Constant
	ConstArrays     []*ConstantArray
	Defines         []*Define
	StringLiterals  []strtab.Handle
	CustomTypes     []*CustomDataType

	byName map[strtab.Handle]*boundIdentifier
}

// boundIdentifier is the module-local resolution of one interned name,
// used both to implement token.Globals.LookupIdentifier directly (for a
// module compiling standalone) and as the per-module contribution a
// Program's unified index merges (spec.md §3.9).
type boundIdentifier struct {
	kind  token.IdentifierKind
	ident token.Identifier
}

// NewModule creates an empty module sharing strings and types with the
// program (or standalone driver) that owns it; spec.md §3.9 treats the
// string table and data-type registry as program-wide, not per-module.
func NewModule(strings *strtab.Table, types *datatype.Registry) *Module {
	return &Module{
		Strings: strings,
		Types:   types,
		byName:  make(map[strtab.Handle]*boundIdentifier),
	}
}

// StartCompiling records the next available ID of each kind so that IDs
// allocated during this compile are monotonically increasing and globally
// unique across every module eventually added to the same Program
// (spec.md §4.2 "start_compiling").
func (m *Module) StartCompiling(nextFunc, nextVar, nextConst, nextArr, nextDef uint32, nextType datatype.ID) {
	m.nextFuncID = nextFunc
	m.nextVarID = nextVar
	m.nextConstID = nextConst
	m.nextArrID = nextArr
	m.nextDefID = nextDef
	m.Types.SetNextID(nextType)
}

func (m *Module) bind(name strtab.Handle, kind token.IdentifierKind, ident token.Identifier) {
	ident.Kind = kind
	m.byName[name] = &boundIdentifier{kind: kind, ident: ident}
}

// AddScriptFunction allocates the next function ID, assigns it to fn, and
// appends fn to Functions. Calls resolve fn by its Name; its Aliases are
// stored and serialized but are not used for call resolution.
func (m *Module) AddScriptFunction(fn *ScriptFunction) uint32 {
	fn.ID = m.nextFuncID
	m.nextFuncID++
	m.Functions = append(m.Functions, fn)
	return fn.ID
}

// AddNativeFunction registers a host-supplied callable's signature (the
// callable itself is bound later, at runtime link time, by internal/native).
func (m *Module) AddNativeFunction(fn *NativeFunction) uint32 {
	fn.ID = m.nextFuncID
	m.nextFuncID++
	m.NativeFunctions = append(m.NativeFunctions, fn)
	return fn.ID
}

// AddNativeMethod registers a native method (a NativeFunction whose Context
// names the owning type); kept as a separate entry point to mirror spec.md
// §4.2's add_native_function/add_native_method split. It performs the same
// registration as AddNativeFunction and does not check fn.Context.
func (m *Module) AddNativeMethod(fn *NativeFunction) uint32 {
	return m.AddNativeFunction(fn)
}

// AddGlobalVariable allocates a GLOBAL (or, when isUser, USER) variable ID
// and records it, returning the packed variable ID a token.Identifier
// carries.
func (m *Module) AddGlobalVariable(name strtab.Handle, dtype datatype.ID, init uint64, isUser bool) uint32 {
	id := m.nextVarID
	m.nextVarID++
	gv := &GlobalVariable{ID: id, Name: name, Type: dtype, Init: init, IsUser: isUser}
	m.Globals = append(m.Globals, gv)
	kind := token.VarGlobal
	if isUser {
		kind = token.VarUser
	}
	m.bind(name, token.IdentVariable, token.Identifier{VarKind: kind, VarID: id, DType: dtype})
	return id
}

// AddUserDefinedVariable is AddGlobalVariable(..., isUser=true).
func (m *Module) AddUserDefinedVariable(name strtab.Handle, dtype datatype.ID) uint32 {
	return m.AddGlobalVariable(name, dtype, 0, true)
}

// AddExternalVariable registers a host-bound EXTERNAL variable. Unlike
// GLOBAL/USER variables it has no module-owned storage or initial value —
// the host's accessor returns a pointer to a live int64 at runtime — so
// only the name/type/id are module data.
func (m *Module) AddExternalVariable(name strtab.Handle, dtype datatype.ID) uint32 {
	id := m.nextVarID
	m.nextVarID++
	m.bind(name, token.IdentVariable, token.Identifier{VarKind: token.VarExternal, VarID: id, DType: dtype})
	return id
}

// AddConstant allocates and records a named compile-time constant.
func (m *Module) AddConstant(name strtab.Handle, dtype datatype.ID, value uint64) uint32 {
	id := m.nextConstID
	m.nextConstID++
	c := &Constant{ID: id, Name: name, Type: dtype, Value: value}
	m.Constants = append(m.Constants, c)
	m.bind(name, token.IdentConstant, token.Identifier{DType: dtype, ConstVal: value})
	return id
}

// AddConstantArray allocates and records a named fixed-size constant array.
func (m *Module) AddConstantArray(name strtab.Handle, elem datatype.ID, values []uint64) uint32 {
	id := m.nextArrID
	m.nextArrID++
	a := &ConstantArray{ID: id, Name: name, ElemType: elem, Values: values}
	m.ConstArrays = append(m.ConstArrays, a)
	m.bind(name, token.IdentConstantArray, token.Identifier{ArrayID: id, TypeID: elem})
	return id
}

// AddDefine registers a token-level macro; arena/body are owned by the
// module from this point (spec.md §3.9).
func (m *Module) AddDefine(name strtab.Handle, dtype datatype.ID, arena *token.Arena, body token.TokenList) uint32 {
	id := m.nextDefID
	m.nextDefID++
	d := &Define{ID: id, Name: name, Type: dtype, Arena: arena, Body: body}
	m.Defines = append(m.Defines, d)
	m.bind(name, token.IdentDefine, token.Identifier{Define: body, DefineArena: arena, DType: dtype})
	return id
}

// AddStringLiteral interns s (if not already interned) and records the
// handle as one of this module's owned string literals.
func (m *Module) AddStringLiteral(s string) strtab.Handle {
	h := m.Strings.Intern(s)
	m.StringLiterals = append(m.StringLiterals, strtab.Handle(h))
	return h
}

// AddCustomDataType registers a user-defined base type in the shared
// registry and records it so it round-trips through serialization.
func (m *Module) AddCustomDataType(name strtab.Handle, base datatype.BaseType, width int) datatype.ID {
	def := m.Types.AddCustom(name, width)
	m.CustomTypes = append(m.CustomTypes, &CustomDataType{ID: def.ID, Name: name, Base: base})
	m.bind(name, token.IdentDataType, token.Identifier{TypeID: def.ID})
	return def.ID
}

// BuildDependencyHash computes the cheap order-sensitive invalidation key
// spec.md §4.2 names: a running mix of each definition kind's count, in
// declaration order, so two modules with the same objects added in the
// same order hash identically and any structural change is overwhelmingly
// likely to change the hash.
func (m *Module) BuildDependencyHash() uint32 {
	h := uint32(2166136261)
	mix := func(n int) {
		h ^= uint32(n)
		h *= 16777619
	}
	mix(len(m.Functions))
	mix(len(m.NativeFunctions))
	mix(len(m.Globals))
	mix(len(m.Constants))
	mix(len(m.ConstArrays))
	mix(len(m.Defines))
	mix(len(m.StringLiterals))
	mix(len(m.CustomTypes))
	return h
}
