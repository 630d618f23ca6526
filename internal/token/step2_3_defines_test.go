package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExpandDefinesCapsRecursion covers spec.md §4.1 step 2's recursion
// bound: a define that expands to itself must not expand forever — it has
// to stop after Options.MaxDefineExpansions rounds and report an error,
// rather than looping until memory runs out.
func TestExpandDefinesCapsRecursion(t *testing.T) {
	arena := NewArena()
	g := newFakeGlobals()

	name := g.strs.Intern("SELF")
	idNode := NewNode(KindIdentifier, 1)
	idNode.Text = name
	selfRefIdx := arena.Alloc(idNode)

	g.idents[name] = Identifier{
		Kind:        IdentDefine,
		Define:      TokenList{Nodes: []Index{selfRefIdx}},
		DefineArena: arena,
	}

	callSite := NewNode(KindIdentifier, 1)
	callSite.Text = name
	list := TokenList{Nodes: []Index{arena.Alloc(callSite)}}

	opt := DefaultOptions()
	_, errs := ProcessTokens(arena, list, 1, nil, g, newTestContext(), opt)

	require.False(t, errs.Ok())
	found := false
	for _, e := range errs.Errors() {
		if e.Line == 1 {
			found = true
		}
	}
	require.True(t, found)
}
