package token

// bracketFrame accumulates the tokens seen since the most recent unmatched
// open bracket, per spec.md §4.1 step 4's "stack of open brackets".
type bracketFrame struct {
	kind BracketKind
	line int
	toks []Index
}

// groupBrackets implements spec.md §4.1 step 4 in a single left-to-right
// scan: '(' pushes a round frame, '[' pushes a square frame, and a
// matching close pops the frame and packs everything accumulated in it
// into a new Parenthesis token that owns that inner token list, exactly as
// the spec describes. Nesting falls out of the stack automatically: an
// inner bracket resolves (and is appended to its parent frame as a single
// Parenthesis token) before the scan ever reaches the outer close.
func (p *processor) groupBrackets(list TokenList, line int) TokenList {
	stack := []*bracketFrame{{}}
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind == KindOperator {
			switch p.opText(n) {
			case "(":
				stack = append(stack, &bracketFrame{kind: BracketRound, line: n.Line})
				continue
			case "[":
				stack = append(stack, &bracketFrame{kind: BracketSquare, line: n.Line})
				continue
			case ")", "]":
				closeText := p.opText(n)
				if len(stack) == 1 {
					p.errs.Add(n.Line, "unmatched closing bracket %q", closeText)
					continue
				}
				frame := stack[len(stack)-1]
				wantClose := ")"
				if frame.kind == BracketSquare {
					wantClose = "]"
				}
				if closeText != wantClose {
					p.errs.Add(n.Line, "mismatched brackets: expected %q, found %q", wantClose, closeText)
				}
				stack = stack[:len(stack)-1]
				pn := NewNode(KindParenthesis, frame.line)
				pn.Bracket = frame.kind
				pn.Inner = TokenList{Nodes: frame.toks}
				pidx := p.arena.Alloc(pn)
				top := stack[len(stack)-1]
				top.toks = append(top.toks, pidx)
				continue
			}
		}
		top := stack[len(stack)-1]
		top.toks = append(top.toks, idx)
	}
	if len(stack) != 1 {
		p.errs.Add(line, "unmatched opening bracket")
		// Recover by treating every still-open frame as if it had closed
		// at end of input, so downstream steps see a well-formed (if
		// erroneous) tree rather than panicking on a dangling frame.
		for len(stack) > 1 {
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pn := NewNode(KindParenthesis, frame.line)
			pn.Bracket = frame.kind
			pn.Inner = TokenList{Nodes: frame.toks}
			pidx := p.arena.Alloc(pn)
			top := stack[len(stack)-1]
			top.toks = append(top.toks, pidx)
		}
	}
	return TokenList{Nodes: stack[0].toks}
}

// groupCommas implements spec.md §4.1 step 5, recursing into every
// Parenthesis's inner list first so nested comma groups (inside an inner
// expression) are grouped before the current level is examined.
func (p *processor) groupCommas(list TokenList, line int) TokenList {
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind == KindParenthesis {
			n.Inner = p.groupCommas(n.Inner, n.Line)
		}
	}

	var slices []TokenList
	var cur []Index
	found := false
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		if n.Kind == KindOperator && p.opText(n) == "," {
			found = true
			slices = append(slices, TokenList{Nodes: cur})
			cur = nil
			continue
		}
		cur = append(cur, idx)
	}
	if !found {
		return list
	}
	slices = append(slices, TokenList{Nodes: cur})

	cn := NewNode(KindCommaList, line)
	cn.Elements = slices
	cidx := p.arena.Alloc(cn)
	return TokenList{Nodes: []Index{cidx}}
}

// opText is a small convenience around the string table: most of the
// pipeline's structural decisions (is this token a "(", a ",", a "++") are
// easiest to express against the operator's literal spelling rather than a
// second parallel enum, so we resolve through the table at decision points.
func (p *processor) opText(n *Node) string {
	s, _ := p.strs.Lookup(n.Text)
	return s
}
