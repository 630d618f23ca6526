package token

import "github.com/gmofishsauce/lemonscript/internal/datatype"

// processMemoryAccesses implements spec.md §4.1 step 10: a var-type token
// of default integer semantics, immediately followed by a square-bracket
// parenthesis, is a raw memory access at the address its bracketed
// expression evaluates to.
func (p *processor) processMemoryAccesses(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		vt := p.arena.Get(nodes[i])
		if vt.Kind == KindVarType && i+1 < len(nodes) && p.g.Types().IsDefaultInteger(vt.VarTypeID) {
			if br := p.arena.Get(nodes[i+1]); br.Kind == KindParenthesis && br.Bracket == BracketSquare {
				addr := p.processLeaf(br.Inner, br.Line, nil)
				mn := NewNode(KindMemoryAccess, vt.Line)
				mn.VarTypeID = vt.VarTypeID
				mn.DType = vt.VarTypeID
				mn.Typed = true
				mn.Index_ = addr
				out = append(out, p.arena.Alloc(mn))
				i += 2
				continue
			}
		}
		out = append(out, nodes[i])
		i++
	}
	list.Nodes = out
}

// processArrayAccesses implements spec.md §4.1 step 11: an identifier
// followed by a square-bracket parenthesis is either a read from a
// compile-time constant array (when the identifier names one) or a
// bracket-operator access on a variable whose data type registers one.
func (p *processor) processArrayAccesses(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		n := p.arena.Get(nodes[i])
		if n.Kind == KindIdentifier && i+1 < len(nodes) {
			if br := p.arena.Get(nodes[i+1]); br.Kind == KindParenthesis && br.Bracket == BracketSquare {
				if repl, ok := p.resolveArrayAccess(n, br); ok {
					out = append(out, repl)
					i += 2
					continue
				}
			}
		}
		out = append(out, nodes[i])
		i++
	}
	list.Nodes = out
}

func (p *processor) resolveArrayAccess(n, br *Node) (Index, bool) {
	idxVal := p.processLeaf(br.Inner, br.Line, nil)

	if lc, ok := p.ctx.findConstArray(n.Text); ok {
		sig, ok := p.g.ConstantArrayReader(lc.ElemType)
		if !ok {
			p.errs.Add(n.Line, "no constant-array reader registered for element type")
			return NilIndex, false
		}
		cn := NewNode(KindFunctionCall, n.Line)
		cn.FuncName = sig.Name
		cn.Args = []Index{p.constArrayIDNode(lc.ArrayID, n.Line), idxVal}
		cn.SigHash = sig.SigHash
		cn.DType = sig.ReturnType
		cn.Typed = true
		cn.Method = NilIndex
		return p.arena.Alloc(cn), true
	}

	varKind, varID, varType, ok := p.resolveVariable(n.Text)
	if !ok {
		return NilIndex, false
	}
	sig, ok := p.g.TypeBracketOperator(varType)
	if !ok {
		p.errs.Add(n.Line, "%s's type does not support [] access", p.strText(n.Text))
		return NilIndex, false
	}
	recv := NewNode(KindVariableRef, n.Line)
	recv.VarKind = varKind
	recv.VarID = varID
	recv.Name = n.Text
	recv.DType = varType
	recv.Typed = true
	recvIdx := p.arena.Alloc(recv)

	bn := NewNode(KindBracketAccess, n.Line)
	bn.Base = recvIdx
	bn.Index_ = idxVal
	bn.DType = sig.ReturnType
	bn.Typed = true
	bn.SigHash = sig.SigHash
	bn.FuncName = sig.Name
	return p.arena.Alloc(bn), true
}

func (p *processor) constArrayIDNode(arrayID uint32, line int) Index {
	cn := NewNode(KindConstant, line)
	cn.ConstValue = uint64(arrayID)
	cn.DType = datatype.IDUInt32
	cn.Typed = true
	return p.arena.Alloc(cn)
}

// processExplicitCasts implements spec.md §4.1 step 12: a var-type token
// followed by a round-bracket parenthesis is an explicit cast of its
// single operand to that type.
func (p *processor) processExplicitCasts(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		vt := p.arena.Get(nodes[i])
		if vt.Kind == KindVarType && i+1 < len(nodes) {
			if pn := p.arena.Get(nodes[i+1]); pn.Kind == KindParenthesis && pn.Bracket == BracketRound {
				operand := p.processLeaf(pn.Inner, pn.Line, nil)
				cn := NewNode(KindValueCast, vt.Line)
				cn.CastFrom = operand
				cn.DType = vt.VarTypeID
				cn.Typed = true
				out = append(out, p.arena.Alloc(cn))
				i += 2
				continue
			}
		}
		out = append(out, nodes[i])
		i++
	}
	list.Nodes = out
}
