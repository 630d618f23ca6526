package lmmodule

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/gmofishsauce/lemonscript/internal/token"
)

// Program links zero or more Modules: it borrows them (never takes
// ownership of their definitions) and owns the cross-module indexes
// spec.md §3.9 assigns it — a unified name/signature-hash index over every
// linked module's functions, the set of data types seen, and constant
// arrays across modules.
type Program struct {
	Strings *strtab.Table
	Types   *datatype.Registry
	Modules []*Module

	byName    map[strtab.Handle][]funcRef
	byMethod  map[methodKey][]funcRef
	bySigHash map[uint32]funcRef

	// ConstEval evaluates a COMPILE_TIME_CONSTANT native call during token
	// folding (spec.md §4.1 step 16: "invoking the native wrapper, and
	// popping the result"). It is nil until a runtime is attached (the
	// token processor and the runtime live in separate packages to avoid
	// an import cycle, so lmmodule cannot invoke internal/vm directly —
	// internal/vm calls SetConstEvaluator with a closure over itself once
	// it is constructed).
	ConstEval func(sig token.FunctionSig, args []uint64) (uint64, bool)

	constArrayReaderName strtab.Handle
	bracketOperatorName  strtab.Handle
	stringConcatName     strtab.Handle
	toStringName         strtab.Handle
}

type funcRef struct {
	mod  *Module
	sig  token.FunctionSig
}

type methodKey struct {
	typeName strtab.Handle
	method   strtab.Handle
}

// NewProgram creates an empty program over strings/types shared by every
// module it will link.
func NewProgram(strings *strtab.Table, types *datatype.Registry) *Program {
	p := &Program{
		Strings:   strings,
		Types:     types,
		byName:    make(map[strtab.Handle][]funcRef),
		byMethod:  make(map[methodKey][]funcRef),
		bySigHash: make(map[uint32]funcRef),
	}
	p.constArrayReaderName = strings.Intern("__const_array_read")
	p.bracketOperatorName = strings.Intern("operator[]")
	p.stringConcatName = strings.Intern("STRING_OPERATOR_PLUS")
	p.toStringName = strings.Intern("__to_string")
	return p
}

// AddModule links mod into the program, merging its functions into the
// unified indexes. Modules are never mutated structurally after this call
// (spec.md §3.10).
func (p *Program) AddModule(mod *Module) {
	p.Modules = append(p.Modules, mod)
	for _, fn := range mod.Functions {
		p.indexFunc(mod, token.FunctionSig{
			Name: fn.Name, Context: fn.Context, ReturnType: fn.ReturnType,
			ParamTypes: paramTypes(fn.Params), SigHash: fn.SigHash, ID: fn.ID,
		})
	}
	for _, fn := range mod.NativeFunctions {
		p.indexFunc(mod, token.FunctionSig{
			Name: fn.Name, Context: fn.Context, ReturnType: fn.ReturnType,
			ParamTypes: fn.ParamTypes, SigHash: fn.SigHash, IsNative: true,
			Flags: fn.Flags, ID: fn.ID,
		})
	}
}

func paramTypes(params []Param) []datatype.ID {
	out := make([]datatype.ID, len(params))
	for i, pr := range params {
		out[i] = pr.Type
	}
	return out
}

func (p *Program) indexFunc(mod *Module, sig token.FunctionSig) {
	ref := funcRef{mod: mod, sig: sig}
	p.byName[sig.Name] = append(p.byName[sig.Name], ref)
	if sig.Context != 0 {
		key := methodKey{typeName: sig.Context, method: sig.Name}
		p.byMethod[key] = append(p.byMethod[key], ref)
	}
	p.bySigHash[sig.SigHash] = ref
}

// ResolveSigHash looks up the function a CALL opcode's signature-hash
// parameter names (spec.md §4.4 "resolves the call target's signature hash
// against the program"). The returned ScriptFunction is nil for a resolved
// native target.
func (p *Program) ResolveSigHash(hash uint32) (fn *ScriptFunction, native *NativeFunction, ok bool) {
	ref, found := p.bySigHash[hash]
	if !found {
		return nil, nil, false
	}
	if ref.sig.IsNative {
		for _, nf := range ref.mod.NativeFunctions {
			if nf.ID == ref.sig.ID {
				return nil, nf, true
			}
		}
		return nil, nil, false
	}
	for _, sf := range ref.mod.Functions {
		if sf.ID == ref.sig.ID {
			return sf, nil, true
		}
	}
	return nil, nil, false
}

// FunctionByID resolves a ScriptFunction by its globally unique ID across
// every linked module, used by Runtime.CallFunction.
func (p *Program) FunctionByID(id uint32) *ScriptFunction {
	for _, mod := range p.Modules {
		for _, fn := range mod.Functions {
			if fn.ID == id {
				return fn
			}
		}
	}
	return nil
}

// FunctionByName resolves the first script function registered under name,
// used by Runtime.CallFunctionByName.
func (p *Program) FunctionByName(name strtab.Handle) *ScriptFunction {
	for _, ref := range p.byName[name] {
		if ref.sig.IsNative {
			continue
		}
		return p.FunctionByID(ref.sig.ID)
	}
	return nil
}

// Globals returns the token.Globals view of this program, resolved
// relative to compiling module cur (whose own not-yet-linked definitions
// must also be visible — e.g. a function calling an earlier sibling
// function in the same module being compiled).
func (p *Program) Globals(cur *Module) token.Globals {
	return &globalsView{prog: p, cur: cur}
}

// globalsView implements token.Globals over a Program plus the module
// currently being compiled, which may not be linked into the program yet.
type globalsView struct {
	prog *Program
	cur  *Module
}

func (g *globalsView) Strings() *strtab.Table       { return g.prog.Strings }
func (g *globalsView) Types() *datatype.Registry    { return g.prog.Types }

func (g *globalsView) LookupIdentifier(name strtab.Handle) (token.Identifier, bool) {
	if g.cur != nil {
		if b, ok := g.cur.byName[name]; ok {
			return b.ident, true
		}
	}
	for _, mod := range g.prog.Modules {
		if mod == g.cur {
			continue
		}
		if b, ok := mod.byName[name]; ok {
			return b.ident, true
		}
	}
	return token.Identifier{}, false
}

func (g *globalsView) FunctionCandidates(name strtab.Handle) []token.FunctionSig {
	var out []token.FunctionSig
	if g.cur != nil {
		for _, ref := range g.curFuncs(name) {
			if ref.sig.Context == 0 {
				out = append(out, ref.sig)
			}
		}
	}
	for _, ref := range g.prog.byName[name] {
		if ref.sig.Context == 0 {
			out = append(out, ref.sig)
		}
	}
	return out
}

// curFuncs returns g.cur's own functions named name, for resolving calls
// within a module being compiled but not yet linked into the program.
func (g *globalsView) curFuncs(name strtab.Handle) []funcRef {
	var out []funcRef
	for _, fn := range g.cur.Functions {
		if fn.Name == name {
			out = append(out, funcRef{mod: g.cur, sig: token.FunctionSig{
				Name: fn.Name, Context: fn.Context, ReturnType: fn.ReturnType,
				ParamTypes: paramTypes(fn.Params), SigHash: fn.SigHash, ID: fn.ID,
			}})
		}
	}
	for _, fn := range g.cur.NativeFunctions {
		if fn.Name == name {
			out = append(out, funcRef{mod: g.cur, sig: token.FunctionSig{
				Name: fn.Name, Context: fn.Context, ReturnType: fn.ReturnType,
				ParamTypes: fn.ParamTypes, SigHash: fn.SigHash, IsNative: true,
				Flags: fn.Flags, ID: fn.ID,
			}})
		}
	}
	return out
}

func (g *globalsView) MethodCandidates(typeName, methodName strtab.Handle) []token.FunctionSig {
	key := methodKey{typeName: typeName, method: methodName}
	var out []token.FunctionSig
	for _, ref := range g.prog.byMethod[key] {
		out = append(out, ref.sig)
	}
	if g.cur != nil {
		for _, ref := range g.curFuncs(methodName) {
			if ref.sig.Context == typeName {
				out = append(out, ref.sig)
			}
		}
	}
	return out
}

// BaseCallCandidate implements "base.<current-function-name>(...)", which
// must match the enclosing function's signature exactly (spec.md §4.1 step
// 9b): search every linked function sharing the current function's name
// and signature hash, excluding the compiling module itself (a base call
// always targets a previously linked definition, never the one being
// written).
func (g *globalsView) BaseCallCandidate(currentFunc strtab.Handle, sigHash uint32) (token.FunctionSig, bool) {
	for _, ref := range g.prog.byName[currentFunc] {
		if ref.mod == g.cur {
			continue
		}
		if ref.sig.SigHash == sigHash {
			return ref.sig, true
		}
	}
	return token.FunctionSig{}, false
}

func (g *globalsView) TypeBracketOperator(typeID datatype.ID) (token.FunctionSig, bool) {
	def := g.prog.Types.Lookup(typeID)
	if def == nil {
		return token.FunctionSig{}, false
	}
	cands := g.MethodCandidates(def.Name, g.prog.bracketOperatorName)
	if len(cands) == 0 {
		return token.FunctionSig{}, false
	}
	return cands[0], true
}

// StringConcatOperator returns the bound native spec.md §4.1 step 17 calls
// "String + String yields a bound built-in": a two-string-argument,
// string-returning native registered under the reserved name
// STRING_OPERATOR_PLUS, the same way TypeBracketOperator resolves a
// reserved operator name to whatever native a linked module bound it to.
func (g *globalsView) StringConcatOperator() (token.FunctionSig, bool) {
	cands := g.FunctionCandidates(g.prog.stringConcatName)
	if len(cands) == 0 {
		return token.FunctionSig{}, false
	}
	return cands[0], true
}

// ToStringConversion returns the bound native that converts a from-typed
// operand to string, for the "String + Int and Int + String likewise"
// clause of spec.md §4.1 step 17: the int (or float) operand is converted
// to string before the two strings are concatenated. Registered under the
// reserved name __to_string, one overload per convertible source type.
func (g *globalsView) ToStringConversion(from datatype.ID) (token.FunctionSig, bool) {
	for _, sig := range g.FunctionCandidates(g.prog.toStringName) {
		if len(sig.ParamTypes) == 1 && sig.ParamTypes[0] == from {
			return sig, true
		}
	}
	return token.FunctionSig{}, false
}

func (g *globalsView) ConstantArrayReader(elemType datatype.ID) (token.FunctionSig, bool) {
	for _, ref := range g.prog.byName[g.prog.constArrayReaderName] {
		if ref.sig.ReturnType == elemType {
			return ref.sig, true
		}
	}
	return token.FunctionSig{}, false
}

func (g *globalsView) RegisterCallable(name strtab.Handle) (uint32, bool) {
	cands := g.FunctionCandidates(name)
	if len(cands) == 0 {
		return 0, false
	}
	return cands[0].ID, true
}

func (g *globalsView) AddressHook(funcName strtab.Handle) (uint32, bool) {
	return g.RegisterCallable(funcName)
}

func (g *globalsView) EvalConstNativeCall(sig token.FunctionSig, args []uint64) (uint64, bool) {
	if g.prog.ConstEval == nil {
		return 0, false
	}
	return g.prog.ConstEval(sig, args)
}
