package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// IdentifierKind tags what a name hash resolves to in the globals table
// (spec.md §3.7): a tagged union over the five identifier kinds, per
// spec.md §9 ("identifier records are tagged unions").
type IdentifierKind byte

const (
	IdentNone IdentifierKind = iota
	IdentVariable
	IdentConstant
	IdentConstantArray
	IdentDefine
	IdentDataType
)

// Identifier is the resolved meaning of a name in the globals table.
type Identifier struct {
	Kind     IdentifierKind
	DType    datatype.ID
	VarKind  VarKind
	VarID    uint32
	ConstVal uint64
	ArrayID  uint32
	Define   TokenList
	DefineArena *Arena // arena owning Define's nodes; nil unless Kind == IdentDefine
	TypeID   datatype.ID
}

// NativeFlags mirrors the native function flags spec.md §3.5/§6.1 name.
type NativeFlags uint8

const (
	FlagDeprecated NativeFlags = 1 << iota
	FlagCompileTimeConstant
	FlagAllowInlineExecution
)

// FunctionSig is everything the token processor needs about a callable to
// resolve overloads, type-check arguments, and — for COMPILE_TIME_CONSTANT
// natives with constant arguments — fold the call away entirely.
type FunctionSig struct {
	Name       strtab.Handle
	Context    strtab.Handle // method owner type name; 0 if a free function
	ReturnType datatype.ID
	ParamTypes []datatype.ID
	SigHash    uint32
	IsNative   bool
	Flags      NativeFlags
	ID         uint32 // backend-opaque function id attached to the resulting token
}

// Globals is the read access the token processor needs into the linked
// program's namespace. internal/lmmodule's globalsView (returned by
// Program.Globals) implements this;
// this package does not import lmmodule, since Module itself stores
// token.TokenList values (for Defines) and importing lmmodule here would
// create a cycle.
type Globals interface {
	LookupIdentifier(name strtab.Handle) (Identifier, bool)
	FunctionCandidates(name strtab.Handle) []FunctionSig
	MethodCandidates(typeName strtab.Handle, methodName strtab.Handle) []FunctionSig
	BaseCallCandidate(currentFunc strtab.Handle, sigHash uint32) (FunctionSig, bool)
	TypeBracketOperator(typeID datatype.ID) (FunctionSig, bool)
	ConstantArrayReader(elemType datatype.ID) (FunctionSig, bool)
	StringConcatOperator() (FunctionSig, bool)
	ToStringConversion(from datatype.ID) (FunctionSig, bool)
	RegisterCallable(name strtab.Handle) (uint32, bool)
	AddressHook(funcName strtab.Handle) (uint32, bool)
	Strings() *strtab.Table
	Types() *datatype.Registry
	EvalConstNativeCall(sig FunctionSig, args []uint64) (uint64, bool)
}

// LocalVar is one entry in the current function's local-variable list, as
// mutated in place by variable-definition processing (spec.md §4.1 step 8).
type LocalVar struct {
	Name    strtab.Handle
	DType   datatype.ID
	VarID   uint32
	InScope bool
}

// LocalConst and LocalConstArray round out the local-constant and
// local-constant-array lists the Context carries, per spec.md §4.1.
type LocalConst struct {
	Name  strtab.Handle
	DType datatype.ID
	Value uint64
}

type LocalConstArray struct {
	Name    strtab.Handle
	ElemType datatype.ID
	ArrayID uint32
}

// Context is the surrounding compilation context the driver sets before
// calling ProcessTokens: the current function, and the local scope's
// variable/constant/constant-array lists. These slices are mutated
// in-place (variable definitions append to Locals), matching spec.md
// §4.1's "State and context" note.
type Context struct {
	FuncName   strtab.Handle
	FuncSig    FunctionSig
	Locals     *[]LocalVar
	Consts     *[]LocalConst
	ConstArrays *[]LocalConstArray
	NextVarID  func() uint32 // allocates the next local variable id
}

func (c *Context) findLocal(name strtab.Handle) (*LocalVar, int) {
	if c.Locals == nil {
		return nil, -1
	}
	for i := range *c.Locals {
		lv := &(*c.Locals)[i]
		if lv.Name == name && lv.InScope {
			return lv, i
		}
	}
	return nil, -1
}

// findDeclaredAnywhere finds a same-named local regardless of InScope, so a
// variable previously declared in this function but now out of scope can
// be reused rather than reallocated (spec.md §4.1 step 8).
func (c *Context) findDeclaredAnywhere(name strtab.Handle) *LocalVar {
	if c.Locals == nil {
		return nil
	}
	for i := range *c.Locals {
		if (*c.Locals)[i].Name == name {
			return &(*c.Locals)[i]
		}
	}
	return nil
}

func (c *Context) findConstArray(name strtab.Handle) (LocalConstArray, bool) {
	if c.ConstArrays == nil {
		return LocalConstArray{}, false
	}
	for _, lc := range *c.ConstArrays {
		if lc.Name == name {
			return lc, true
		}
	}
	return LocalConstArray{}, false
}

func (c *Context) findConst(name strtab.Handle) (LocalConst, bool) {
	if c.Consts == nil {
		return LocalConst{}, false
	}
	for _, lc := range *c.Consts {
		if lc.Name == name {
			return lc, true
		}
	}
	return LocalConst{}, false
}
