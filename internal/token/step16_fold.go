package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// foldConstants implements spec.md §4.1 step 16: walk the tree rooted at
// root, bottom-up, replacing any unary or binary operator whose operands
// are all integer-class constants with a single folded KindConstant node,
// and any COMPILE_TIME_CONSTANT-flagged native call whose arguments are
// all constants with the value EvalConstNativeCall returns.
func (p *processor) foldConstants(root Index) {
	if root == NilIndex {
		return
	}
	n := p.arena.Get(root)
	switch n.Kind {
	case KindUnaryOp:
		p.foldConstants(n.Left)
		p.tryFoldUnary(root)
	case KindBinaryOp:
		p.foldConstants(n.Left)
		p.foldConstants(n.Right)
		p.tryFoldBinary(root)
	case KindFunctionCall:
		for _, a := range n.Args {
			p.foldConstants(a)
		}
		p.tryFoldCall(root)
	case KindValueCast:
		p.foldConstants(n.CastFrom)
		p.tryFoldCast(root)
	case KindBracketAccess:
		p.foldConstants(n.Base)
		p.foldConstants(n.Index_)
	case KindMemoryAccess:
		p.foldConstants(n.Index_)
	case KindParenthesis:
		if n.Resolved != NilIndex {
			p.foldConstants(n.Resolved)
		}
	}
}

// isConstNode reports whether idx is a constant this pass can fold
// arithmetically, i.e. an integer-class constant. A string constant's
// ConstValue holds its strtab.Handle, not an integer — folding it as one
// would silently compute garbage (e.g. treating "ab"+"cd" as integer
// addition of the two strings' hashes), so anything outside ClassInteger
// is refused here rather than folded.
func (p *processor) isConstNode(idx Index) (int64, bool) {
	n := p.arena.Get(idx)
	if n.Kind != KindConstant {
		return 0, false
	}
	if !n.Typed {
		return int64(n.ConstValue), true
	}
	def := p.g.Types().Lookup(n.DType)
	if def != nil && def.Class != datatype.ClassInteger {
		return 0, false
	}
	return int64(n.ConstValue), true
}

func (p *processor) tryFoldUnary(idx Index) {
	n := p.arena.Get(idx)
	v, ok := p.isConstNode(n.Left)
	if !ok {
		return
	}
	var result int64
	switch p.opText2(n.Op) {
	case "-":
		result = -v
	case "!":
		if v == 0 {
			result = 1
		} else {
			result = 0
		}
	case "~":
		result = ^v
	default:
		return // ++ / -- never fold: they have a side effect
	}
	n.Kind = KindConstant
	n.ConstValue = uint64(result)
}

func (p *processor) tryFoldBinary(idx Index) {
	n := p.arena.Get(idx)
	l, lok := p.isConstNode(n.Left)
	r, rok := p.isConstNode(n.Right)
	if !lok || !rok {
		return
	}
	op := p.opText2(n.Op)
	var result int64
	switch op {
	case "+":
		result = l + r
	case "-":
		result = l - r
	case "*":
		result = l * r
	case "/":
		if r == 0 {
			result = 0
		} else {
			result = l / r
		}
	case "%":
		if r == 0 {
			result = 0
		} else {
			result = l % r
		}
	case "<<":
		result = l << uint(r)
	case ">>":
		result = l >> uint(r)
	case "&":
		result = l & r
	case "|":
		result = l | r
	case "^":
		result = l ^ r
	default:
		return // comparisons, logical ops, assignments: not folded here
	}
	n.Kind = KindConstant
	n.ConstValue = uint64(result)
}

func (p *processor) tryFoldCall(idx Index) {
	n := p.arena.Get(idx)
	candidates := p.g.FunctionCandidates(n.FuncName)
	var sig *FunctionSig
	for i := range candidates {
		if candidates[i].SigHash == n.SigHash {
			sig = &candidates[i]
			break
		}
	}
	if sig == nil || sig.Flags&FlagCompileTimeConstant == 0 {
		return
	}
	args := make([]uint64, len(n.Args))
	for i, a := range n.Args {
		v, ok := p.isConstNode(a)
		if !ok {
			return
		}
		args[i] = uint64(v)
	}
	val, ok := p.g.EvalConstNativeCall(*sig, args)
	if !ok {
		return
	}
	n.Kind = KindConstant
	n.ConstValue = val
}

func (p *processor) tryFoldCast(idx Index) {
	n := p.arena.Get(idx)
	v, ok := p.isConstNode(n.CastFrom)
	if !ok {
		return
	}
	n.Kind = KindConstant
	n.ConstValue = castConstant(v, n.DType)
}

// castConstant narrows/widens a folded constant value to fit width and
// target-class bits, so folded casts match the bit pattern the runtime
// anyvalue caster would have produced (internal/anyvalue.Cast).
func castConstant(v int64, to datatype.ID) uint64 {
	switch to {
	case datatype.IDInt8, datatype.IDUInt8:
		return uint64(uint8(v))
	case datatype.IDInt16, datatype.IDUInt16:
		return uint64(uint16(v))
	case datatype.IDInt32, datatype.IDUInt32:
		return uint64(uint32(v))
	default:
		return uint64(v)
	}
}

// opText2 resolves an Op handle the same way opText resolves a node's Text
// handle; named distinctly since Op and Text are logically separate fields
// even though both are string-table handles.
func (p *processor) opText2(h strtab.Handle) string {
	s, _ := p.strs.Lookup(h)
	return s
}
