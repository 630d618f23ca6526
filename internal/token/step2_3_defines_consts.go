package token

// expandDefines implements spec.md §4.1 step 2: for each identifier
// resolving to a define, remove it and splice in a deep copy of the
// define's token list at the same position; after any expansion, re-run
// identifier resolution (since an expanded define may itself reveal
// var-type identifiers). Recursive expansion is bounded to
// Options.MaxDefineExpansions rounds, erroring on overflow.
func (p *processor) expandDefines(list TokenList, line int) TokenList {
	for round := 0; ; round++ {
		expandedAny := false
		out := make([]Index, 0, len(list.Nodes))
		for _, idx := range list.Nodes {
			n := p.arena.Get(idx)
			if n.Kind == KindIdentifier {
				if ident, ok := p.g.LookupIdentifier(n.Text); ok && ident.Kind == IdentDefine {
					expandedAny = true
					cloned := p.arena.CloneList(ident.DefineArena, ident.Define)
					out = append(out, cloned.Nodes...)
					continue
				}
			}
			out = append(out, idx)
		}
		list = TokenList{Nodes: out}
		if !expandedAny {
			return list
		}
		list = p.resolveIdentifiers(list)
		if round+1 >= p.opt.MaxDefineExpansions {
			p.errs.Add(line, "define expansion exceeded %d iterations (recursive define?)", p.opt.MaxDefineExpansions)
			return list
		}
	}
}

// substituteConstants implements spec.md §4.1 step 3: identifiers
// resolving to a named constant become constant tokens carrying the
// constant's value and type. Function-local constants shadow module-level
// ones.
func (p *processor) substituteConstants(list TokenList) TokenList {
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind != KindIdentifier {
			continue
		}
		if lc, ok := p.ctx.findConst(n.Text); ok {
			n.Kind = KindConstant
			n.ConstValue = lc.Value
			n.DType = lc.DType
			n.Typed = true
			continue
		}
		if ident, ok := p.g.LookupIdentifier(n.Text); ok && ident.Kind == IdentConstant {
			n.Kind = KindConstant
			n.ConstValue = ident.ConstVal
			n.DType = ident.DType
			n.Typed = true
		}
	}
	return list
}
