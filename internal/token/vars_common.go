package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// resolveVariable looks name up first against the current function's local
// scope, then against the linked program's globals table. It is shared by
// step 9 (method-call receiver resolution) and step 13 (remaining
// identifiers), since both need the same local-shadows-global rule.
func (p *processor) resolveVariable(name strtab.Handle) (VarKind, uint32, datatype.ID, bool) {
	if lv, _ := p.ctx.findLocal(name); lv != nil {
		return VarLocal, lv.VarID, lv.DType, true
	}
	if ident, ok := p.g.LookupIdentifier(name); ok && ident.Kind == IdentVariable {
		return ident.VarKind, ident.VarID, ident.DType, true
	}
	return 0, 0, 0, false
}
