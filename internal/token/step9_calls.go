package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// processFunctionCalls implements spec.md §4.1 step 9: an identifier
// followed by a parenthesis token becomes a function-call token, a
// base.<name>(...) sequence becomes a base call, and <var>.<name>(...)
// becomes a method-like call when <var> is an in-scope variable whose data
// type registers a method by that name.
func (p *processor) processFunctionCalls(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		idx := nodes[i]
		n := p.arena.Get(idx)

		if n.Kind == KindKeyword && p.opText(n) == "base" && i+3 < len(nodes) {
			if repl, consumed, ok := p.tryBaseCall(nodes[i:]); ok {
				out = append(out, repl)
				i += consumed
				continue
			}
		}

		if n.Kind == KindIdentifier && i+3 < len(nodes) {
			if repl, consumed, ok := p.tryMethodCall(nodes[i:]); ok {
				out = append(out, repl)
				i += consumed
				continue
			}
		}

		if n.Kind == KindIdentifier && i+1 < len(nodes) {
			if paren := p.arena.Get(nodes[i+1]); paren.Kind == KindParenthesis && paren.Bracket == BracketRound {
				if repl, ok := p.resolveGlobalCall(n.Text, paren, n.Line); ok {
					out = append(out, repl)
					i += 2
					continue
				}
			}
		}

		out = append(out, idx)
		i++
	}
	list.Nodes = out
}

// tryBaseCall matches "base" "." <name> "(" ... ")" at the front of toks.
func (p *processor) tryBaseCall(toks []Index) (Index, int, bool) {
	dot := p.arena.Get(toks[1])
	name := p.arena.Get(toks[2])
	paren := p.arena.Get(toks[3])
	if dot.Kind != KindOperator || p.opText(dot) != "." || name.Kind != KindIdentifier ||
		paren.Kind != KindParenthesis || paren.Bracket != BracketRound {
		return NilIndex, 0, false
	}
	args := p.resolveCallArgs(paren)
	sigHash := signatureHash(p.ctx.FuncSig.ReturnType, p.ctx.FuncSig.ParamTypes)
	sig, ok := p.g.BaseCallCandidate(p.ctx.FuncName, sigHash)
	if !ok {
		p.errs.Add(name.Line, "no base function matching %s's signature", p.strText(p.ctx.FuncName))
		return NilIndex, 0, false
	}
	if !p.checkArgTypes(sig, args, name.Line) {
		return NilIndex, 0, false
	}
	return p.makeCallNode(sig, args, true, NilIndex, name.Line), 4, true
}

// tryMethodCall matches <var> "." <name> "(" ... ")" at the front of toks,
// where <var> is an in-scope variable whose data type registers <name> as
// a method.
func (p *processor) tryMethodCall(toks []Index) (Index, int, bool) {
	recv := p.arena.Get(toks[0])
	dot := p.arena.Get(toks[1])
	name := p.arena.Get(toks[2])
	paren := p.arena.Get(toks[3])
	if dot.Kind != KindOperator || p.opText(dot) != "." || name.Kind != KindIdentifier ||
		paren.Kind != KindParenthesis || paren.Bracket != BracketRound {
		return NilIndex, 0, false
	}
	varKind, varID, varType, ok := p.resolveVariable(recv.Text)
	if !ok {
		return NilIndex, 0, false
	}
	typeName := p.g.Types().Lookup(varType)
	if typeName == nil {
		return NilIndex, 0, false
	}
	candidates := p.g.MethodCandidates(typeName.Name, name.Text)
	if len(candidates) == 0 {
		return NilIndex, 0, false
	}
	args := p.resolveCallArgs(paren)
	sig, ok := p.selectOverload(candidates, args)
	if !ok {
		p.errs.Add(name.Line, "no overload of %s.%s matches argument types", p.strText(recv.Text), p.strText(name.Text))
		return NilIndex, 0, false
	}
	recvNode := NewNode(KindVariableRef, recv.Line)
	recvNode.VarKind = varKind
	recvNode.VarID = varID
	recvNode.Name = recv.Text
	recvNode.DType = varType
	recvNode.Typed = true
	recvIdx := p.arena.Alloc(recvNode)
	return p.makeCallNode(sig, args, false, recvIdx, name.Line), 4, true
}

func (p *processor) resolveGlobalCall(name strtab.Handle, paren *Node, line int) (Index, bool) {
	candidates := p.g.FunctionCandidates(name)
	if len(candidates) == 0 {
		return NilIndex, false
	}
	args := p.resolveCallArgs(paren)
	sig, ok := p.selectOverload(candidates, args)
	if !ok {
		p.errs.Add(line, "no overload of %s matches argument types", p.strText(name))
		return NilIndex, false
	}
	return p.makeCallNode(sig, args, false, NilIndex, line), true
}

// resolveCallArgs returns the fully processed argument value indices for a
// call's argument-list parenthesis: either its single Inner list (for a
// zero- or one-argument call) or, if comma grouping already wrapped it, the
// resolved elements of that CommaList.
func (p *processor) resolveCallArgs(paren *Node) []Index {
	if len(paren.Inner.Nodes) == 0 {
		return nil
	}
	if len(paren.Inner.Nodes) == 1 {
		if cl := p.arena.Get(paren.Inner.Nodes[0]); cl.Kind == KindCommaList {
			if cl.ResolvedElems == nil {
				resolved := make([]Index, len(cl.Elements))
				for i, e := range cl.Elements {
					resolved[i] = p.processLeaf(e, cl.Line, nil)
				}
				cl.ResolvedElems = resolved
			}
			return cl.ResolvedElems
		}
	}
	return []Index{p.processLeaf(paren.Inner, paren.Line, nil)}
}

// selectOverload picks the candidate whose parameter types match args with
// the lowest total implicit-cast cost, per spec.md §4.1 step 17's casting
// engine (reused here for call resolution, not just binary ops).
func (p *processor) selectOverload(candidates []FunctionSig, args []Index) (FunctionSig, bool) {
	best := -1
	bestCost := -1
	for ci, sig := range candidates {
		if len(sig.ParamTypes) != len(args) {
			continue
		}
		cost := 0
		ok := true
		for i, a := range sig.ParamTypes {
			argType := p.arena.Get(args[i]).DType
			c, castOK := castCost(p.g.Types(), argType, a)
			if !castOK {
				ok = false
				break
			}
			cost += c
		}
		if ok && (best == -1 || cost < bestCost) {
			best = ci
			bestCost = cost
		}
	}
	if best == -1 {
		return FunctionSig{}, false
	}
	return candidates[best], true
}

func (p *processor) checkArgTypes(sig FunctionSig, args []Index, line int) bool {
	if len(sig.ParamTypes) != len(args) {
		p.errs.Add(line, "argument count mismatch: want %d, got %d", len(sig.ParamTypes), len(args))
		return false
	}
	return true
}

func (p *processor) makeCallNode(sig FunctionSig, args []Index, isBase bool, method Index, line int) Index {
	// Insert implicit casts where the selected signature's parameter type
	// differs from the argument's own type (spec.md §4.1 step 17).
	for i, want := range sig.ParamTypes {
		args[i] = p.insertCastIfNeeded(args[i], want, line)
	}
	cn := NewNode(KindFunctionCall, line)
	cn.FuncName = sig.Name
	cn.IsBase = isBase
	cn.Method = method
	cn.Args = args
	cn.SigHash = sig.SigHash
	cn.DType = sig.ReturnType
	cn.Typed = true
	return p.arena.Alloc(cn)
}

// signatureHash derives the 32-bit signature hash spec.md's glossary
// defines from a function's return and parameter types, combined with the
// name hash elsewhere to index overload sets. The exact mixing function is
// not prescribed by spec.md beyond "a hash derived from return+parameter
// types"; this uses an FNV-1a-style fold, stable across repeated compiles
// of the same signature (which is the only externally observable
// property base-call matching relies on).
func signatureHash(ret datatype.ID, params []datatype.ID) uint32 {
	h := uint32(2166136261)
	mix := func(v uint32) {
		h ^= v
		h *= 16777619
	}
	mix(uint32(ret))
	for _, p := range params {
		mix(uint32(p))
	}
	return h
}
