// Package datatype implements lemonscript's data-type registry: the
// canonical table of primitive, string, array, and custom types, each
// identified by a stable numeric ID (spec.md §3.2).
package datatype

import "github.com/gmofishsauce/lemonscript/internal/strtab"

// BaseType tags the fundamental representation of a DataTypeDefinition.
type BaseType byte

const (
	Void BaseType = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	IntConst // untyped integer constant, adopts context type when known
	Float
	Double
	String
	ArrayBase
	Any
	customBase // first ID handed out to user-defined base types
)

func (b BaseType) String() string {
	switch b {
	case Void:
		return "void"
	case Int8:
		return "int8"
	case UInt8:
		return "uint8"
	case Int16:
		return "int16"
	case UInt16:
		return "uint16"
	case Int32:
		return "int32"
	case UInt32:
		return "uint32"
	case Int64:
		return "int64"
	case UInt64:
		return "uint64"
	case IntConst:
		return "const_int"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case ArrayBase:
		return "array"
	case Any:
		return "any"
	default:
		return "custom"
	}
}

// Class groups BaseTypes into the classes spec.md §3.2 names.
type Class byte

const (
	ClassVoid Class = iota
	ClassInteger
	ClassFloat
	ClassString
	ClassArray
	ClassAny
	ClassCustom
)

// IntSemantics distinguishes how an integer-class type should be treated by
// the token processor and folder beyond its raw width.
type IntSemantics byte

const (
	SemanticsDefault IntSemantics = iota
	SemanticsBoolean
	SemanticsConstant
)

// ID is the stable 16-bit identifier spec.md §3.2 requires for
// serialization; IDs 0..13 are the predefined types, allocated at fixed
// positions so independent compiles agree on them without coordination.
type ID uint16

// Predefined IDs, fixed at 0..13 per spec.md §3.2.
const (
	IDVoid ID = iota
	IDBool
	IDInt8
	IDUInt8
	IDInt16
	IDUInt16
	IDInt32
	IDUInt32
	IDInt64
	IDUInt64
	IDFloat
	IDDouble
	IDString
	IDConstInt
	firstDynamicID
)

// Definition is one entry in the registry.
type Definition struct {
	ID        ID
	Base      BaseType
	ByteWidth int
	Name      strtab.Handle
	Class     Class
	Sem       IntSemantics // meaningful only when Class == ClassInteger
	ElemType  ID           // meaningful only when Class == ClassArray
}

// Registry owns every DataTypeDefinition known to a module: the 14
// predefined types plus whatever custom/array types the module itself
// declares, allocated sequentially from firstDynamicID (or from whatever
// high-water mark Module.StartCompiling recorded) so that two compiles of
// the same module set produce identical IDs.
type Registry struct {
	byID   []*Definition
	byName map[strtab.Handle]*Definition
	next   ID
}

// NewRegistry builds a registry pre-populated with the 14 predefined types.
func NewRegistry(strings *strtab.Table) *Registry {
	r := &Registry{byName: make(map[strtab.Handle]*Definition), next: firstDynamicID}
	add := func(id ID, base BaseType, width int, name string, class Class, sem IntSemantics) {
		d := &Definition{ID: id, Base: base, ByteWidth: width, Name: strings.Intern(name), Class: class, Sem: sem}
		r.register(d)
	}
	add(IDVoid, Void, 0, "void", ClassVoid, SemanticsDefault)
	add(IDBool, Int8, 1, "bool", ClassInteger, SemanticsBoolean)
	add(IDInt8, Int8, 1, "int8", ClassInteger, SemanticsDefault)
	add(IDUInt8, UInt8, 1, "uint8", ClassInteger, SemanticsDefault)
	add(IDInt16, Int16, 2, "int16", ClassInteger, SemanticsDefault)
	add(IDUInt16, UInt16, 2, "uint16", ClassInteger, SemanticsDefault)
	add(IDInt32, Int32, 4, "int32", ClassInteger, SemanticsDefault)
	add(IDUInt32, UInt32, 4, "uint32", ClassInteger, SemanticsDefault)
	add(IDInt64, Int64, 8, "int64", ClassInteger, SemanticsDefault)
	add(IDUInt64, UInt64, 8, "uint64", ClassInteger, SemanticsDefault)
	add(IDFloat, Float, 4, "float", ClassFloat, SemanticsDefault)
	add(IDDouble, Double, 8, "double", ClassFloat, SemanticsDefault)
	add(IDString, String, 8, "string", ClassString, SemanticsDefault)
	add(IDConstInt, IntConst, 8, "const_int", ClassInteger, SemanticsConstant)
	return r
}

func (r *Registry) register(d *Definition) {
	for ID(len(r.byID)) <= d.ID {
		r.byID = append(r.byID, nil)
	}
	r.byID[d.ID] = d
	r.byName[d.Name] = d
}

// SetNextID overrides the next dynamic ID to allocate; used by
// Module.StartCompiling so custom/array type IDs continue monotonically
// across separately-compiled modules added to the same program.
func (r *Registry) SetNextID(next ID) {
	r.next = next
}

// NextID returns the ID that AddCustom/AddArray would allocate next.
func (r *Registry) NextID() ID {
	return r.next
}

// AddCustom registers a user-defined base type and returns its Definition.
func (r *Registry) AddCustom(name strtab.Handle, width int) *Definition {
	d := &Definition{ID: r.next, Base: customBase, ByteWidth: width, Name: name, Class: ClassCustom}
	r.next++
	r.register(d)
	return d
}

// AddArray registers a constant-array element type and returns its
// Definition; ElemType records what each element of the array holds.
func (r *Registry) AddArray(name strtab.Handle, elem ID) *Definition {
	d := &Definition{ID: r.next, Base: ArrayBase, ByteWidth: 4, Name: name, Class: ClassArray, ElemType: elem}
	r.next++
	r.register(d)
	return d
}

// Lookup resolves an ID to its Definition, or nil if unknown.
func (r *Registry) Lookup(id ID) *Definition {
	if int(id) >= len(r.byID) {
		return nil
	}
	return r.byID[id]
}

// LookupName resolves an interned name to its Definition, or nil if it is
// not a known data type.
func (r *Registry) LookupName(name strtab.Handle) *Definition {
	return r.byName[name]
}

// IsInteger reports whether id names an integer-class type.
func (r *Registry) IsInteger(id ID) bool {
	d := r.Lookup(id)
	return d != nil && d.Class == ClassInteger
}

// IsDefaultInteger reports whether id is an integer type with default
// (non-boolean, non-constant) semantics; spec.md §4.1 step 10 restricts
// memory accesses to exactly these types.
func (r *Registry) IsDefaultInteger(id ID) bool {
	d := r.Lookup(id)
	return d != nil && d.Class == ClassInteger && d.Sem == SemanticsDefault
}

// Signed reports whether id is a signed integer type.
func (r *Registry) Signed(id ID) bool {
	switch id {
	case IDInt8, IDInt16, IDInt32, IDInt64, IDConstInt:
		return true
	default:
		return false
	}
}
