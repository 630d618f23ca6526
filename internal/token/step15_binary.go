package token

// binPrec lists binary-operator precedence levels from loosest to
// tightest binding, per spec.md §4.1 step 15's "C-like precedence and
// associativity" requirement. Assignment operators sit at the loosest
// level and are right-associative; everything else is left-associative.
var binPrec = []struct {
	ops       []string
	rightAssoc bool
}{
	{[]string{"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>="}, true},
	{[]string{"||"}, false},
	{[]string{"&&"}, false},
	{[]string{"|"}, false},
	{[]string{"^"}, false},
	{[]string{"&"}, false},
	{[]string{"==", "!="}, false},
	{[]string{"<", "<=", ">", ">="}, false},
	{[]string{"<<", ">>"}, false},
	{[]string{"+", "-"}, false},
	{[]string{"*", "/", "%"}, false},
}

// processBinaryOps implements spec.md §4.1 step 15: repeatedly reduce the
// list by folding the tightest-still-unfolded precedence level present
// (ties within a level broken by associativity) until a single statement
// token remains. binPrec is declared loosest-to-tightest so its ordering
// doubles as the documentation of C precedence; the fold order here walks
// it back to front; tightest binds first, so "3*4" reduces to a single
// operand before "2+" ever sees it, and assignment — loosest — only folds
// once everything to its right is already a single value.
func (p *processor) processBinaryOps(list *TokenList, line int) {
	for i := len(binPrec) - 1; i >= 0; i-- {
		level := binPrec[i]
		for {
			idx := p.findBinOpAt(list, level.ops, level.rightAssoc)
			if idx < 0 {
				break
			}
			p.foldBinOp(list, idx)
		}
	}
}

func (p *processor) findBinOpAt(list *TokenList, ops []string, rightAssoc bool) int {
	match := func(i int) bool {
		if i <= 0 || i >= len(list.Nodes)-1 {
			return false
		}
		n := p.arena.Get(list.Nodes[i])
		if n.Kind != KindOperator {
			return false
		}
		text := p.opText(n)
		for _, op := range ops {
			if op == text {
				left := p.arena.Get(list.Nodes[i-1])
				right := p.arena.Get(list.Nodes[i+1])
				return left.Kind.IsStatement() && right.Kind.IsStatement()
			}
		}
		return false
	}
	if rightAssoc {
		for i := len(list.Nodes) - 2; i >= 1; i-- {
			if match(i) {
				return i
			}
		}
		return -1
	}
	for i := 1; i < len(list.Nodes)-1; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

func (p *processor) foldBinOp(list *TokenList, i int) {
	opN := p.arena.Get(list.Nodes[i])
	leftIdx := list.Nodes[i-1]
	rightIdx := list.Nodes[i+1]

	bn := NewNode(KindBinaryOp, opN.Line)
	bn.Op = opN.Text
	bn.Left = leftIdx
	bn.Right = rightIdx

	out := make([]Index, 0, len(list.Nodes)-2)
	out = append(out, list.Nodes[:i-1]...)
	out = append(out, p.arena.Alloc(bn))
	out = append(out, list.Nodes[i+2:]...)
	list.Nodes = out
}
