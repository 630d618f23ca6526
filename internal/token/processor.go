package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// processor carries the mutable state of one ProcessTokens call: the arena
// its output tree lives in, read access to the linked program's globals,
// the surrounding compilation Context, and the error collector. None of
// this survives past one call — a fresh processor is built per call, the
// way gmofishsauce/wut4/lang/ysem builds a fresh *Analyzer per compile.
type processor struct {
	arena *Arena
	g     Globals
	ctx   *Context
	opt   Options
	errs  *lmerr.Collector
	strs  *strtab.Table

	preprocessor bool
}

// ProcessTokens runs the full pipeline (spec.md §4.1) over list, which
// represents one line or expression, and returns the single typed root
// statement token it reduces to. resultType, if non-nil, is the expected
// result type used to give untyped integer constants a concrete type
// (spec.md §4.1 step 17).
func ProcessTokens(arena *Arena, list TokenList, line int, resultType *datatype.ID, g Globals, ctx *Context, opt Options) (Index, *lmerr.Collector) {
	p := &processor{arena: arena, g: g, ctx: ctx, opt: opt, errs: &lmerr.Collector{}, strs: g.Strings()}
	root := p.topLevel(list, line, resultType)
	return root, p.errs
}

// ProcessForPreprocessor runs the restricted subset spec.md §4.1 names for
// #if-style evaluation: parentheses and unary/binary operators only, no
// function calls, variable definitions, or memory/array accesses.
func ProcessForPreprocessor(arena *Arena, list TokenList, line int, g Globals) (Index, *lmerr.Collector) {
	p := &processor{arena: arena, g: g, ctx: &Context{}, opt: DefaultOptions(), errs: &lmerr.Collector{}, strs: g.Strings(), preprocessor: true}
	root := p.topLevel(list, line, nil)
	return root, p.errs
}

// preprocessor is set by ProcessForPreprocessor to restrict processLeaf to
// parenthesization + unary/binary ops, skipping steps 7-13.
func (p *processor) isPreprocessor() bool { return p.preprocessor }

// topLevel performs steps 1-6: identifier resolution, define expansion,
// constant substitution, parenthesization, comma grouping, and recursive
// processing of the resulting tree's child lists.
func (p *processor) topLevel(list TokenList, line int, resultType *datatype.ID) Index {
	list = p.resolveIdentifiers(list)
	list = p.expandDefines(list, line)
	list = p.substituteConstants(list)
	grouped := p.groupBrackets(list, line)
	grouped = p.groupCommas(grouped, line)
	return p.processLeaf(grouped, line, resultType)
}

// processLeaf runs steps 7-17 over list and returns the single resulting
// root index. Any Parenthesis or CommaList node encountered is first
// resolved by recursing into its own content (step 6), so a leaf list at
// this point contains only already-typed operands and not-yet-combined
// operators.
func (p *processor) processLeaf(list TokenList, line int, resultType *datatype.ID) Index {
	if !p.isPreprocessor() {
		// Steps 7-12 each consume specific raw Parenthesis patterns
		// (addressof/makeCallable argument, var-decl pair, call argument
		// list, memory/array access index, cast operand) by recursively
		// calling processLeaf themselves on exactly the nested list they
		// need. Whatever Parenthesis/CommaList tokens remain afterward are
		// plain grouping parens, resolved generically below.
		p.resolveSpecialKeywords(&list, line)
		p.processVariableDefinitions(&list, line)
		p.processFunctionCalls(&list, line)
		p.processMemoryAccesses(&list, line)
		p.processArrayAccesses(&list, line)
		p.processExplicitCasts(&list, line)
	}
	p.resolveNestedLists(&list, line)
	if !p.isPreprocessor() {
		p.resolveRemainingIdentifiers(&list, line)
	}
	p.processUnaryOps(&list, line)
	p.processBinaryOps(&list, line)

	if len(list.Nodes) == 0 {
		return NilIndex
	}
	if len(list.Nodes) > 1 {
		p.errs.Add(line, "expression did not reduce to a single value (%d tokens remain)", len(list.Nodes))
	}
	root := list.Nodes[0]
	p.foldConstants(root)
	p.assignTypes(root, resultType)
	return root
}

// resolveNestedLists handles whatever plain "grouping" Parenthesis and
// CommaList tokens remain in list once steps 7-12 have consumed the ones
// they care about (call argument lists, memory/array access indices, cast
// operands). A grouping Parenthesis is collapsed in place to the single
// typed statement its content reduces to; a bare CommaList expression is
// left in place but typed as its last element's type (C comma-operator
// semantics), since downstream steps only need a concrete DType to treat
// it as an ordinary operand.
func (p *processor) resolveNestedLists(list *TokenList, line int) {
	out := make([]Index, 0, len(list.Nodes))
	for _, idx := range list.Nodes {
		n := p.arena.Get(idx)
		switch n.Kind {
		case KindParenthesis:
			if n.Resolved == NilIndex {
				n.Resolved = p.processLeaf(n.Inner, n.Line, nil)
			}
			out = append(out, n.Resolved)
			continue
		case KindCommaList:
			if n.ResolvedElems == nil && len(n.Elements) > 0 {
				resolved := make([]Index, len(n.Elements))
				for i, e := range n.Elements {
					resolved[i] = p.processLeaf(e, n.Line, nil)
				}
				n.ResolvedElems = resolved
				last := p.arena.Get(resolved[len(resolved)-1])
				n.DType = last.DType
				n.Typed = last.Typed
			}
		}
		out = append(out, idx)
	}
	list.Nodes = out
}
