package native

import "github.com/gmofishsauce/lemonscript/internal/vm"

// userVar adapts a pair of plain Go getter/setter closures into a
// vm.UserVariableHandler, the same pop-push shape WrapFunc1/WrapFunc0R use
// for a single-value native call (spec.md §6.1's USER variables are a
// script-visible value backed by an arbitrary host computation, not a
// plain memory cell — the handler is called for every read and write
// rather than resolved once to a pointer, unlike EXTERNAL).
type userVar[T Scalar] struct {
	get func() T
	set func(T)
}

func (u *userVar[T]) Get(cf *vm.ControlFlow) { pushScalar(cf, u.get()) }

func (u *userVar[T]) Set(cf *vm.ControlFlow) {
	if u.set != nil {
		u.set(popScalar[T](cf))
	} else {
		cf.PopValue()
	}
}

var _ vm.UserVariableHandler = (*userVar[int32])(nil)

// WrapUserVar builds a read/write USER variable from a getter and setter.
func WrapUserVar[T Scalar](get func() T, set func(T)) vm.UserVariableHandler {
	return &userVar[T]{get: get, set: set}
}

// WrapReadOnlyUserVar builds a USER variable that ignores script-side
// writes instead of rejecting them, matching the original's convention
// that a missing setter silently discards rather than faults.
func WrapReadOnlyUserVar[T Scalar](get func() T) vm.UserVariableHandler {
	return &userVar[T]{get: get}
}

// externalVar adapts a single plain Go int64 pointer (or a function
// returning one) into a vm.ExternalVariableHandler; EXTERNAL variables
// resolve once to a host-owned cell that the runtime then reads/writes
// directly (spec.md §6.1), unlike USER's per-access callback pair.
type externalVar struct {
	resolve func(id uint32) *int64
}

func (e *externalVar) Resolve(id uint32) *int64 { return e.resolve(id) }

var _ vm.ExternalVariableHandler = (*externalVar)(nil)

// WrapExternalVars builds an ExternalVariableHandler from a plain id->cell
// map, the common case where every EXTERNAL variable a module declares has
// a single fixed host-side backing cell known up front.
func WrapExternalVars(cells map[uint32]*int64) vm.ExternalVariableHandler {
	return &externalVar{resolve: func(id uint32) *int64 { return cells[id] }}
}

// WrapExternalVarFunc builds an ExternalVariableHandler from a resolver
// function, for hosts whose external cells are not known until resolve
// time (e.g. allocated lazily, or indexed into a growable slice).
func WrapExternalVarFunc(resolve func(id uint32) *int64) vm.ExternalVariableHandler {
	return &externalVar{resolve: resolve}
}
