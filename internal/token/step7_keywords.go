package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// resolveSpecialKeywords implements spec.md §4.1 step 7: addressof(name)
// and makeCallable(name) are recognized and resolved before variable
// processing (and, in this implementation, before the generic recursive
// resolution of nested parentheses — so this step inspects the raw
// argument token itself before deciding whether to fall back to full
// recursive processing for the "address of a memory access" case).
func (p *processor) resolveSpecialKeywords(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		idx := nodes[i]
		n := p.arena.Get(idx)
		if n.Kind == KindIdentifier && i+1 < len(nodes) {
			name := p.opText(n)
			if name == "addressof" || name == "makeCallable" {
				if pn := p.arena.Get(nodes[i+1]); pn.Kind == KindParenthesis && pn.Bracket == BracketRound {
					if repl, ok := p.resolveAddressOrCallable(name, pn, n.Line); ok {
						out = append(out, repl)
						i++
						continue
					}
				}
			}
		}
		out = append(out, idx)
	}
	list.Nodes = out
}

func (p *processor) resolveAddressOrCallable(keyword string, pn *Node, line int) (Index, bool) {
	if len(pn.Inner.Nodes) != 1 {
		p.errs.Add(line, "%s() takes exactly one argument", keyword)
		return NilIndex, false
	}
	argIdx := pn.Inner.Nodes[0]
	argNode := p.arena.Get(argIdx)

	if keyword == "makeCallable" {
		if argNode.Kind != KindIdentifier {
			p.errs.Add(line, "makeCallable() argument must be a function name")
			return NilIndex, false
		}
		id, ok := p.g.RegisterCallable(argNode.Text)
		if !ok {
			p.errs.Add(line, "makeCallable(): unknown function %q", p.strText(argNode.Text))
			return NilIndex, false
		}
		cn := NewNode(KindConstant, line)
		cn.ConstValue = uint64(id)
		cn.DType = datatype.IDUInt32
		cn.Typed = true
		return p.arena.Alloc(cn), true
	}

	// keyword == "addressof"
	if argNode.Kind == KindIdentifier {
		if hook, ok := p.g.AddressHook(argNode.Text); ok {
			cn := NewNode(KindConstant, line)
			cn.ConstValue = uint64(hook)
			cn.DType = datatype.IDUInt32
			cn.Typed = true
			return p.arena.Alloc(cn), true
		}
	}

	resolved := p.processLeaf(TokenList{Nodes: []Index{argIdx}}, pn.Line, nil)
	rn := p.arena.Get(resolved)
	if rn.Kind != KindMemoryAccess {
		p.errs.Add(line, "addressof() argument must be a memory access or a known function name")
		return NilIndex, false
	}
	an := NewNode(KindUnaryOp, line)
	an.Op = p.strs.Intern("addressof")
	an.Left = resolved
	an.DType = datatype.IDUInt32
	an.Typed = true
	return p.arena.Alloc(an), true
}

func (p *processor) strText(h strtab.Handle) string {
	s, _ := p.strs.Lookup(h)
	return s
}
