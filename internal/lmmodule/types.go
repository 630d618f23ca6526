// Package lmmodule implements the linkable compilation unit (spec.md
// §3.5/§3.9): Module owns one compile's functions, variables, constants,
// constant arrays, defines, string literals, source-file infos, and custom
// data types; Program links modules added to it and exposes the
// cross-module lookup the token processor needs (token.Globals).
//
// This mirrors gmofishsauce/wut4/lang/yld's split between an in-memory
// object table (types.go) and its wire encoding (reader.go/output.go),
// generalized from a single-section WOF object file to lemonscript's
// richer five-definition-kind module.
package lmmodule

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// Pragma is a (name, value) annotation attached to a script function,
// carried through from original_source/'s ScriptFunction pragma list
// (spec.md's distillation does not mention pragmas by name, but §3.5's
// "optional address-hook and pragma lists" leaves room for them).
type Pragma struct {
	Name  strtab.Handle
	Value int64
}

// Param is one (name, type) entry in a function's parameter list.
type Param struct {
	Name strtab.Handle
	Type datatype.ID
}

// Label maps a name to an absolute opcode offset within its owning
// function's bytecode.
type Label struct {
	Name   strtab.Handle
	Offset uint32
}

// LocalVarInfo is one entry of a script function's local-variable table:
// enough to reconstruct frame layout and for disassembly/debugging to
// print names.
type LocalVarInfo struct {
	Name strtab.Handle
	Type datatype.ID
}

// ScriptFunction is a compiled lemonscript function: name, optional method
// context, signature, bytecode, and the debug/linkage metadata spec.md
// §3.5 lists.
type ScriptFunction struct {
	ID         uint32
	Name       strtab.Handle
	Context    strtab.Handle // method owner type name; 0 if a free function
	Aliases    []strtab.Handle
	ReturnType datatype.ID
	HasReturn  bool
	Params     []Param
	SigHash    uint32

	Opcodes  []opcode.Opcode
	Locals   []LocalVarInfo
	Labels   []Label

	SourceFile  uint16
	BaseLine    int

	AddressHooks []strtab.Handle
	Pragmas      []Pragma
}

// NativeFunction is a host-supplied callable registered into the module's
// namespace: name, context, signature, and the flags spec.md §3.5 and
// §6.1 describe (DEPRECATED, COMPILE_TIME_CONSTANT, ALLOW_INLINE_EXECUTION).
// The callable itself (a vm.NativeCallable, usually built by internal/native)
// is attached separately at
// link time — a deserialized module has no callable until one is bound,
// since native code cannot cross the wire.
type NativeFunction struct {
	ID         uint32
	Name       strtab.Handle
	Context    strtab.Handle
	ReturnType datatype.ID
	ParamTypes []datatype.ID
	SigHash    uint32
	Flags      token.NativeFlags
}

// GlobalVariable is a module-owned GLOBAL or USER variable (spec.md §3.5's
// four variable kinds; EXTERNAL variables are host-bound at runtime and so
// are not module data — see Runtime.SetExternalVariableHandler in
// internal/vm).
type GlobalVariable struct {
	ID      uint32
	Name    strtab.Handle
	Type    datatype.ID
	Init    uint64
	IsUser  bool
}

// Constant is a (name, type, value) compile-time constant.
type Constant struct {
	ID    uint32
	Name  strtab.Handle
	Type  datatype.ID
	Value uint64
}

// ConstantArray is a named, fixed-size array of 64-bit values with a
// module-unique 32-bit ID, read at runtime through the built-in
// constant-array-reader native (spec.md §4.1 step 11a).
type ConstantArray struct {
	ID       uint32
	Name     strtab.Handle
	ElemType datatype.ID
	Values   []uint64
}

// Define is a token-level macro: its token list is deep-copied and spliced
// in place at every use site during token processing (spec.md §4.1 step 2).
type Define struct {
	ID    uint32
	Name  strtab.Handle
	Type  datatype.ID
	Arena *token.Arena
	Body  token.TokenList
}

// CustomDataType is a user-declared base type, registered into the shared
// datatype.Registry and also recorded here so it round-trips through
// serialization (spec.md §4.2 payload item 10: "name, base-type byte").
type CustomDataType struct {
	ID   datatype.ID
	Name strtab.Handle
	Base datatype.BaseType
}
