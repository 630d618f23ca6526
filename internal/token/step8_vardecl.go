package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// processVariableDefinitions implements spec.md §4.1 step 8: a var-type
// token immediately followed by an identifier declares a new local
// variable in the current scope, replacing the pair with a single
// KindVariableRef token carrying the freshly allocated variable id.
func (p *processor) processVariableDefinitions(list *TokenList, line int) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		vt := p.arena.Get(nodes[i])
		if vt.Kind == KindVarType && i+1 < len(nodes) {
			if id := p.arena.Get(nodes[i+1]); id.Kind == KindIdentifier {
				ref, ok := p.declareLocal(id.Text, vt.VarTypeID, id.Line)
				if ok {
					out = append(out, ref)
					i += 2
					continue
				}
				i += 2
				continue
			}
		}
		out = append(out, nodes[i])
		i++
	}
	list.Nodes = out
}

// declareLocal adds name to the current function's local scope with type
// dtype, erroring if name is already declared and in scope. A local
// previously declared in this function but currently out of scope (a
// shadowed outer-block variable re-entering a new inner block under the
// same name) is reused rather than reallocated, per spec.md §4.1 step 8.
func (p *processor) declareLocal(name strtab.Handle, dtype datatype.ID, line int) (Index, bool) {
	if lv, _ := p.ctx.findLocal(name); lv != nil {
		p.errs.Add(line, "%q is already declared in this scope", p.strText(name))
		return NilIndex, false
	}

	var varID uint32
	if existing := p.ctx.findDeclaredAnywhere(name); existing != nil {
		existing.InScope = true
		existing.DType = dtype
		varID = existing.VarID
	} else {
		varID = p.ctx.NextVarID()
		*p.ctx.Locals = append(*p.ctx.Locals, LocalVar{Name: name, DType: dtype, VarID: varID, InScope: true})
	}

	rn := NewNode(KindVariableRef, line)
	rn.VarKind = VarLocal
	rn.VarID = varID
	rn.Name = name
	rn.DType = dtype
	rn.Typed = true
	return p.arena.Alloc(rn), true
}
