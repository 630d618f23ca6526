// Package token shapes a flat stream of parser tokens into a typed
// expression/statement tree with full symbol resolution, overload
// selection, implicit casts, and compile-time folding (spec.md §3.4, §4.1).
//
// Tokens form a strict ownership tree for the lifetime of one
// ProcessTokens call (spec.md §9): rather than reference-counting nodes, we
// use a bump Arena of Node values addressed by Index, exactly as spec.md §9
// recommends for a memory-safe implementation.
package token

import (
	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// Kind is one of the 15 concrete token kinds, split into the non-statement
// and statement families spec.md §3.4 describes.
type Kind byte

const (
	// Non-statement kinds.
	KindKeyword Kind = iota
	KindVarType
	KindOperator
	KindLabel

	// Statement kinds (may appear in an expression).
	KindConstant
	KindIdentifier
	KindParenthesis
	KindCommaList
	KindUnaryOp
	KindBinaryOp
	KindVariableRef
	KindFunctionCall
	KindBracketAccess
	KindMemoryAccess
	KindValueCast
)

func (k Kind) IsStatement() bool { return k >= KindConstant }

func (k Kind) String() string {
	names := [...]string{
		"KEYWORD", "VAR_TYPE", "OPERATOR", "LABEL",
		"CONSTANT", "IDENTIFIER", "PARENTHESIS", "COMMA_LIST",
		"UNARY_OP", "BINARY_OP", "VARIABLE_REF", "FUNCTION_CALL",
		"BRACKET_ACCESS", "MEMORY_ACCESS", "VALUE_CAST",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "UNKNOWN_KIND"
}

// BracketKind distinguishes '(' groups from '[' groups while parenthesizing
// (spec.md §4.1 step 4); both end up represented as KindParenthesis /
// KindBracketAccess once resolved, but the open-bracket scan needs to tell
// them apart.
type BracketKind byte

const (
	BracketRound BracketKind = iota
	BracketSquare
)

// Index addresses a Node within an Arena. "No child" is NilIndex (-1), not
// the zero Index: slot 0 is an ordinary node (see NewNode).
type Index int32

const NilIndex Index = -1

// VarKind mirrors opcode.VariableKind; duplicated here (rather than
// imported) to keep this package free of a dependency on opcode, which
// itself is a back-end concept the token processor does not need.
type VarKind byte

const (
	VarGlobal VarKind = iota
	VarLocal
	VarUser
	VarExternal
)

// Node is one token in the tree. Not every field applies to every Kind;
// this mirrors the teacher's flat-struct style (gmofishsauce/wut4/lang/ysem/ir.go)
// rather than an inheritance hierarchy, per spec.md §9.
type Node struct {
	Kind  Kind
	DType datatype.ID
	Typed bool // DType is only meaningful once Typed is set
	Line  int

	// KindKeyword / KindOperator / KindLabel / KindIdentifier
	Text strtab.Handle

	// KindVarType
	VarTypeID datatype.ID

	// KindConstant
	ConstValue uint64

	// KindUnaryOp / KindBinaryOp
	Op       strtab.Handle
	Left     Index
	Right    Index // NilIndex for unary ops
	Postfix  bool  // true for postfix ++/--

	// KindParenthesis: owns an inner token list. Resolved is the single
	// typed statement index Inner reduces to once steps 7-17 (see package
	// doc in processor.go) have run over it; until then it is NilIndex.
	Inner    TokenList
	Bracket  BracketKind
	Resolved Index

	// KindCommaList: owns a vector of token lists, one per comma-separated
	// slice; ResolvedElems holds each slice's single reduced index, parallel
	// to Elements, filled in by the same recursive step as Resolved above.
	Elements      []TokenList
	ResolvedElems []Index

	// KindVariableRef / KindMemoryAccess
	VarKind  VarKind
	VarID    uint32
	Name     strtab.Handle

	// KindFunctionCall
	FuncName strtab.Handle
	IsBase   bool
	Method   Index // owning variable node for `<var>.<name>(...)`, or NilIndex
	Args     []Index
	SigHash  uint32

	// KindBracketAccess
	Base  Index
	Index_ Index // the bracketed expression

	// KindValueCast
	CastFrom Index
}

// TokenList is an ordered, owned sequence of node indices within one Arena.
// A TokenList never spans arenas; deep-copying one (for define expansion)
// re-allocates every node into the destination arena.
type TokenList struct {
	Nodes []Index
}

func (l TokenList) Len() int { return len(l.Nodes) }

// Arena owns every Node allocated during one compilation unit's token
// processing. Tokens never outlive the Arena that created them (spec.md §9).
type Arena struct {
	nodes []*Node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc appends n and returns its Index.
func (a *Arena) Alloc(n Node) Index {
	a.nodes = append(a.nodes, &n)
	return Index(len(a.nodes) - 1)
}

// NewNode returns a Node of the given kind with every child-index field
// pre-set to NilIndex. Index 0 is a perfectly ordinary arena slot (unlike
// many arena designs, this one reserves no sentinel slot), so every
// child-like field must be explicitly defaulted rather than relying on the
// Go zero value, which would otherwise alias slot 0.
func NewNode(kind Kind, line int) Node {
	return Node{
		Kind: kind, Line: line,
		Left: NilIndex, Right: NilIndex, Method: NilIndex,
		Base: NilIndex, Index_: NilIndex, CastFrom: NilIndex,
		Resolved: NilIndex,
	}
}

// Get returns a pointer to the node at idx for in-place mutation — this is
// how the processor "replaces nodes in place without copying their
// subtrees" (spec.md §3.4): children are addressed by Index, so rewriting
// the Node at idx (e.g. identifier -> var-type) never invalidates any
// other node's reference to idx. Each node is allocated separately, so the
// returned pointer stays valid across later Alloc calls.
func (a *Arena) Get(idx Index) *Node {
	return a.nodes[idx]
}

// CloneList deep-copies every node reachable from list into this arena
// (which may be the same arena it came from, e.g. define expansion) and
// returns the list of fresh indices.
func (a *Arena) CloneList(src *Arena, list TokenList) TokenList {
	out := make([]Index, len(list.Nodes))
	for i, idx := range list.Nodes {
		out[i] = a.cloneNode(src, idx)
	}
	return TokenList{Nodes: out}
}

func (a *Arena) cloneNode(src *Arena, idx Index) Index {
	if idx == NilIndex {
		return NilIndex
	}
	n := *src.Get(idx)
	switch n.Kind {
	case KindParenthesis:
		n.Inner = a.CloneList(src, n.Inner)
	case KindCommaList:
		elems := make([]TokenList, len(n.Elements))
		for i, e := range n.Elements {
			elems[i] = a.CloneList(src, e)
		}
		n.Elements = elems
	case KindUnaryOp:
		n.Left = a.cloneNode(src, n.Left)
	case KindBinaryOp:
		n.Left = a.cloneNode(src, n.Left)
		n.Right = a.cloneNode(src, n.Right)
	case KindFunctionCall:
		n.Method = a.cloneNode(src, n.Method)
		args := make([]Index, len(n.Args))
		for i, arg := range n.Args {
			args[i] = a.cloneNode(src, arg)
		}
		n.Args = args
	case KindBracketAccess:
		n.Base = a.cloneNode(src, n.Base)
		n.Index_ = a.cloneNode(src, n.Index_)
	case KindValueCast:
		n.CastFrom = a.cloneNode(src, n.CastFrom)
	}
	return a.Alloc(n)
}
