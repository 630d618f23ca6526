package token

// resolveIdentifiers implements spec.md §4.1 step 1: for each identifier
// token, look up its name hash in the globals table; if it resolves to a
// data type, convert the token in place to a var-type token. Other
// resolutions (variable, constant, define) are left for steps 2-3 and 13,
// since define expansion and constant substitution must see identifiers
// at this stage, not variables.
func (p *processor) resolveIdentifiers(list TokenList) TokenList {
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind != KindIdentifier {
			continue
		}
		ident, ok := p.g.LookupIdentifier(n.Text)
		if !ok || ident.Kind != IdentDataType {
			continue
		}
		n.Kind = KindVarType
		n.VarTypeID = ident.TypeID
		n.DType = ident.TypeID
		n.Typed = true
	}
	return list
}
