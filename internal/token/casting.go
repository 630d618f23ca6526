package token

import "github.com/gmofishsauce/lemonscript/internal/datatype"

// castCost scores how expensive an implicit cast from `from` to `to`
// would be, per spec.md §4.1 step 17's "select the overload with the
// lowest total cast cost" rule. 0 means no cast needed (exact match or
// untyped constant adopting its context type); higher costs model
// widening (cheap), narrowing (expensive, but still legal for an
// explicit choice the compiler makes on the caller's behalf), and
// cross-class conversions (float<->int). A false return means the cast
// is not permitted at all (e.g. string<->non-string without a native
// conversion bound elsewhere).
func castCost(types *datatype.Registry, from, to datatype.ID) (int, bool) {
	if from == to {
		return 0, true
	}
	fromDef := types.Lookup(from)
	toDef := types.Lookup(to)
	if fromDef == nil || toDef == nil {
		return 0, false
	}

	if fromDef.Class == datatype.ClassInteger && fromDef.Sem == datatype.SemanticsConstant {
		// An untyped integer constant adopts any numeric type for free.
		if toDef.Class == datatype.ClassInteger || toDef.Class == datatype.ClassFloat {
			return 0, true
		}
		return 0, false
	}

	switch {
	case fromDef.Class == datatype.ClassInteger && toDef.Class == datatype.ClassInteger:
		if toDef.ByteWidth >= fromDef.ByteWidth {
			return 1, true
		}
		return 10, true // narrowing
	case fromDef.Class == datatype.ClassInteger && toDef.Class == datatype.ClassFloat:
		return 3, true
	case fromDef.Class == datatype.ClassFloat && toDef.Class == datatype.ClassInteger:
		return 12, true
	case fromDef.Class == datatype.ClassFloat && toDef.Class == datatype.ClassFloat:
		if toDef.ByteWidth >= fromDef.ByteWidth {
			return 1, true
		}
		return 10, true
	case fromDef.Class == datatype.ClassAny || toDef.Class == datatype.ClassAny:
		return 5, true
	default:
		// ClassString (including string<->numeric) never reaches a common
		// type through this bit-level casting engine — internal/anyvalue
		// has no string row to cast through. String concatenation and its
		// implicit numeric-to-string conversion are resolved as bound
		// natives directly in assignBinaryType, not through castCost.
		return 0, false
	}
}

// insertCastIfNeeded wraps operand in a KindValueCast node targeting want
// if its current type differs, leaving it untouched (and untyped operands
// simply adopt want) otherwise. Used by call-argument binding (step 9) and
// binary-operator typing (step 17) to materialize the implicit casts
// castCost scored.
func (p *processor) insertCastIfNeeded(operand Index, want datatype.ID, line int) Index {
	n := p.arena.Get(operand)
	if n.Typed && n.DType == want {
		return operand
	}
	if !n.Typed || (n.Kind == KindConstant && p.g.Types().Lookup(n.DType) != nil && p.g.Types().Lookup(n.DType).Sem == datatype.SemanticsConstant) {
		n.DType = want
		n.Typed = true
		return operand
	}
	cn := NewNode(KindValueCast, line)
	cn.CastFrom = operand
	cn.DType = want
	cn.Typed = true
	return p.arena.Alloc(cn)
}
