package token

import "github.com/gmofishsauce/lemonscript/internal/datatype"

// assignTypes implements spec.md §4.1 step 17: walk the tree bottom-up
// assigning a concrete DType to every node that does not already have one
// (constants, unary/binary operator results), inserting implicit
// KindValueCast nodes wherever a binary operator's operands disagree on
// type. Calls, variable refs, memory/bracket accesses, and explicit casts
// are already typed by the steps that created them; this pass only visits
// them to recurse into their children.
func (p *processor) assignTypes(root Index, resultType *datatype.ID) {
	if root == NilIndex {
		return
	}
	n := p.arena.Get(root)
	switch n.Kind {
	case KindConstant:
		if !n.Typed {
			if resultType != nil {
				n.DType = *resultType
			} else {
				n.DType = datatype.IDConstInt
			}
			n.Typed = true
		}
	case KindUnaryOp:
		p.assignTypes(n.Left, nil)
		left := p.arena.Get(n.Left)
		n.DType = unaryResultType(p.opText2(n.Op), left.DType)
		n.Typed = true
	case KindBinaryOp:
		p.assignBinaryType(n, resultType)
	case KindValueCast:
		p.assignTypes(n.CastFrom, nil)
	case KindFunctionCall:
		for _, a := range n.Args {
			p.assignTypes(a, nil)
		}
	case KindBracketAccess:
		p.assignTypes(n.Base, nil)
		p.assignTypes(n.Index_, nil)
	case KindMemoryAccess:
		p.assignTypes(n.Index_, nil)
	case KindParenthesis:
		if n.Resolved != NilIndex {
			p.assignTypes(n.Resolved, resultType)
		}
	}
}

// assignBinaryType picks the binary operator's result type and inserts
// whatever implicit casts its two operands need to reach a common
// operating type, following the usual-arithmetic-conversion idea: the
// wider/more-general of the two operand types wins, at the lowest combined
// cast cost. Comparison operators always yield bool; assignment operators
// take the left operand's (already-declared) type and cast the right
// operand to it.
func (p *processor) assignBinaryType(n *Node, resultType *datatype.ID) {
	op := p.opText2(n.Op)

	p.assignTypes(n.Left, nil)
	if op == "=" || isCompoundAssign(op) {
		left := p.arena.Get(n.Left)
		n.Right = p.insertCastIfNeeded(n.Right, left.DType, n.Line)
		p.assignTypes(n.Right, nil)
		n.DType = left.DType
		n.Typed = true
		return
	}

	left := p.arena.Get(n.Left)
	var hint *datatype.ID
	if left.Typed {
		hint = &left.DType
	}
	p.assignTypes(n.Right, hint)
	right := p.arena.Get(n.Right)

	if isComparisonOp(op) || isLogicalOp(op) {
		n.DType = datatype.IDBool
		n.Typed = true
		return
	}

	if op == "+" && p.hasStringOperand(left.DType, right.DType) {
		p.bindStringConcat(n, left.DType, right.DType)
		return
	}

	common, ok := p.commonType(left.DType, right.DType)
	if !ok {
		p.errs.Add(n.Line, "incompatible operand types for %q", op)
		n.DType = left.DType
		n.Typed = true
		return
	}
	n.Left = p.insertCastIfNeeded(n.Left, common, n.Line)
	n.Right = p.insertCastIfNeeded(n.Right, common, n.Line)
	n.DType = common
	n.Typed = true
}

// commonType picks the operand type both a and b can reach at lowest total
// cost, per spec.md §4.1 step 17's casting engine (shared with overload
// resolution in step 9's selectOverload).
func (p *processor) commonType(a, b datatype.ID) (datatype.ID, bool) {
	if a == b {
		return a, true
	}
	costAB, okAB := castCost(p.g.Types(), a, b)
	costBA, okBA := castCost(p.g.Types(), b, a)
	switch {
	case okAB && okBA:
		if costAB <= costBA {
			return b, true
		}
		return a, true
	case okAB:
		return b, true
	case okBA:
		return a, true
	default:
		return 0, false
	}
}

// hasStringOperand reports whether either operand type is ClassString —
// the trigger for "+"'s string-concatenation rule below rather than the
// numeric commonType path.
func (p *processor) hasStringOperand(a, b datatype.ID) bool {
	da := p.g.Types().Lookup(a)
	db := p.g.Types().Lookup(b)
	return (da != nil && da.Class == datatype.ClassString) || (db != nil && db.Class == datatype.ClassString)
}

// bindStringConcat implements spec.md §4.1 step 17's "String + String
// yields a bound built-in; String + Int and Int + String likewise": it
// rewrites n from a KindBinaryOp into a KindFunctionCall targeting the
// bound STRING_OPERATOR_PLUS native, converting any non-string operand to
// string first through the bound __to_string native. n is mutated in
// place (never reallocated) so every existing reference to its Index —
// held by whatever node this binary op is a child of — keeps working
// (token.go's "rewriting the Node at idx... never invalidates any other
// node's reference to idx").
func (p *processor) bindStringConcat(n *Node, leftType, rightType datatype.ID) {
	sig, ok := p.g.StringConcatOperator()
	if !ok {
		p.errs.Add(n.Line, "no native bound for string concatenation (STRING_OPERATOR_PLUS)")
		n.DType = datatype.IDString
		n.Typed = true
		return
	}
	leftArg := p.toStringOperand(n.Left, leftType, n.Line)
	rightArg := p.toStringOperand(n.Right, rightType, n.Line)
	if leftArg == NilIndex || rightArg == NilIndex {
		n.DType = datatype.IDString
		n.Typed = true
		return
	}
	n.Kind = KindFunctionCall
	n.FuncName = sig.Name
	n.IsBase = false
	n.Method = NilIndex
	n.Args = []Index{leftArg, rightArg}
	n.SigHash = sig.SigHash
	n.DType = sig.ReturnType
	n.Typed = true
}

// toStringOperand returns operand unchanged if it is already string-typed,
// or wraps it in a call to the bound __to_string native for dtype.
// Returns NilIndex (after recording an error) if no such native is bound.
func (p *processor) toStringOperand(operand Index, dtype datatype.ID, line int) Index {
	def := p.g.Types().Lookup(dtype)
	if def != nil && def.Class == datatype.ClassString {
		return operand
	}
	sig, ok := p.g.ToStringConversion(dtype)
	if !ok {
		p.errs.Add(line, "no to-string conversion bound for this operand type")
		return NilIndex
	}
	return p.makeCallNode(sig, []Index{operand}, false, NilIndex, line)
}

func isCompoundAssign(op string) bool {
	switch op {
	case "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=":
		return true
	}
	return false
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func isLogicalOp(op string) bool {
	return op == "&&" || op == "||"
}
