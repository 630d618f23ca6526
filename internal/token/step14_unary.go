package token

import "github.com/gmofishsauce/lemonscript/internal/datatype"

var postfixOps = map[string]bool{"++": true, "--": true}
var prefixOps = map[string]bool{"++": true, "--": true, "-": true, "!": true, "~": true}

// processUnaryOps implements spec.md §4.1 step 14 in two passes: postfix
// ++/-- bind left-to-right to the operand immediately before them, then
// prefix ++/--/-/!/~ bind right-to-left to the operand immediately after
// them. An operator token is only a candidate prefix unary operator if it
// is not immediately preceded by another statement token (otherwise it is
// a binary operator, left for step 15).
func (p *processor) processUnaryOps(list *TokenList, line int) {
	p.processPostfixOps(list)
	p.processPrefixOps(list)
}

func (p *processor) processPostfixOps(list *TokenList) {
	nodes := list.Nodes
	out := make([]Index, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		if i+1 < len(nodes) {
			opN := p.arena.Get(nodes[i+1])
			if opN.Kind == KindOperator && postfixOps[p.opText(opN)] {
				operand := p.arena.Get(nodes[i])
				if operand.Kind.IsStatement() {
					un := NewNode(KindUnaryOp, opN.Line)
					un.Op = opN.Text
					un.Left = nodes[i]
					un.Postfix = true
					un.DType = operand.DType
					un.Typed = operand.Typed
					out = append(out, p.arena.Alloc(un))
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

func (p *processor) processPrefixOps(list *TokenList) {
	nodes := list.Nodes
	// Right-to-left scan so that e.g. "- - x" binds the rightmost '-' first.
	out := make([]Index, len(nodes))
	copy(out, nodes)
	for i := len(out) - 2; i >= 0; i-- {
		opN := p.arena.Get(out[i])
		if opN.Kind != KindOperator || !prefixOps[p.opText(opN)] {
			continue
		}
		if i > 0 {
			prev := p.arena.Get(out[i-1])
			if prev.Kind.IsStatement() {
				continue // binary operator, not prefix
			}
		}
		operand := p.arena.Get(out[i+1])
		if !operand.Kind.IsStatement() {
			continue
		}
		un := NewNode(KindUnaryOp, opN.Line)
		un.Op = opN.Text
		un.Left = out[i+1]
		if op := p.opText(opN); op == "-" || op == "!" || op == "~" {
			un.DType = operand.DType
			un.Typed = operand.Typed
		} else {
			un.DType = operand.DType
			un.Typed = operand.Typed
		}
		replaced := p.arena.Alloc(un)
		out[i] = replaced
		out = append(out[:i+1], out[i+2:]...)
	}
	list.Nodes = out
}

// unaryResultType returns the result type of applying op to an operand of
// type operandType, per spec.md §4.1's unary-operator typing rules: bitwise
// and arithmetic unary ops preserve the operand's type; logical ! always
// yields bool.
func unaryResultType(op string, operandType datatype.ID) datatype.ID {
	if op == "!" {
		return datatype.IDBool
	}
	return operandType
}
