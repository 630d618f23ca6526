package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// fakeGlobals is a minimal, test-only Globals: no linked program, just
// whatever identifiers and bound natives a test registers directly.
type fakeGlobals struct {
	strs  *strtab.Table
	types *datatype.Registry

	idents map[strtab.Handle]Identifier

	concat    FunctionSig
	hasConcat bool
	toString  map[datatype.ID]FunctionSig
}

func newFakeGlobals() *fakeGlobals {
	strs := strtab.New()
	return &fakeGlobals{
		strs:     strs,
		types:    datatype.NewRegistry(strs),
		idents:   make(map[strtab.Handle]Identifier),
		toString: make(map[datatype.ID]FunctionSig),
	}
}

func (g *fakeGlobals) Strings() *strtab.Table    { return g.strs }
func (g *fakeGlobals) Types() *datatype.Registry { return g.types }

func (g *fakeGlobals) LookupIdentifier(name strtab.Handle) (Identifier, bool) {
	id, ok := g.idents[name]
	return id, ok
}

func (g *fakeGlobals) FunctionCandidates(name strtab.Handle) []FunctionSig { return nil }

func (g *fakeGlobals) MethodCandidates(typeName, methodName strtab.Handle) []FunctionSig {
	return nil
}

func (g *fakeGlobals) BaseCallCandidate(currentFunc strtab.Handle, sigHash uint32) (FunctionSig, bool) {
	return FunctionSig{}, false
}

func (g *fakeGlobals) TypeBracketOperator(typeID datatype.ID) (FunctionSig, bool) {
	return FunctionSig{}, false
}

func (g *fakeGlobals) ConstantArrayReader(elemType datatype.ID) (FunctionSig, bool) {
	return FunctionSig{}, false
}

func (g *fakeGlobals) StringConcatOperator() (FunctionSig, bool) { return g.concat, g.hasConcat }

func (g *fakeGlobals) ToStringConversion(from datatype.ID) (FunctionSig, bool) {
	sig, ok := g.toString[from]
	return sig, ok
}

func (g *fakeGlobals) RegisterCallable(name strtab.Handle) (uint32, bool) { return 0, false }
func (g *fakeGlobals) AddressHook(funcName strtab.Handle) (uint32, bool) { return 0, false }

func (g *fakeGlobals) EvalConstNativeCall(sig FunctionSig, args []uint64) (uint64, bool) {
	return 0, false
}

// newIntConst allocates an untyped integer-literal constant node, the shape
// a numeric literal arrives in before step17's assignTypes gives it a
// concrete type.
func newIntConst(arena *Arena, line int, v int64) Index {
	n := NewNode(KindConstant, line)
	n.ConstValue = uint64(v)
	return arena.Alloc(n)
}

// newStringConst allocates an already-typed string-literal constant node —
// string literals are never "untyped" the way integer literals are, so
// they arrive with DType/Typed already set, ConstValue holding the
// interned strtab.Handle.
func newStringConst(arena *Arena, strs *strtab.Table, line int, s string) Index {
	n := NewNode(KindConstant, line)
	n.ConstValue = uint64(strs.Intern(s))
	n.DType = datatype.IDString
	n.Typed = true
	return arena.Alloc(n)
}

// newTypedIntConst allocates an already-typed integer constant (e.g. a
// declared variable's initializer after its own type is known), distinct
// from the untyped-literal shape newIntConst produces.
func newTypedIntConst(arena *Arena, line int, v int64, dtype datatype.ID) Index {
	n := NewNode(KindConstant, line)
	n.ConstValue = uint64(v)
	n.DType = dtype
	n.Typed = true
	return arena.Alloc(n)
}

func newOp(arena *Arena, strs *strtab.Table, line int, op string) Index {
	n := NewNode(KindOperator, line)
	n.Text = strs.Intern(op)
	return arena.Alloc(n)
}

func newTestContext() *Context {
	return &Context{}
}
