package token

// resolveRemainingIdentifiers implements spec.md §4.1 step 13: every
// KindIdentifier still in the list at this point must name an in-scope
// local or global variable; it is rewritten in place to KindVariableRef.
func (p *processor) resolveRemainingIdentifiers(list *TokenList, line int) {
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind != KindIdentifier {
			continue
		}
		varKind, varID, dtype, ok := p.resolveVariable(n.Text)
		if !ok {
			p.errs.Add(n.Line, "undefined identifier %q", p.strText(n.Text))
			continue
		}
		n.Kind = KindVariableRef
		n.VarKind = varKind
		n.VarID = varID
		n.Name = n.Text
		n.DType = dtype
		n.Typed = true
	}
}
