package lmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectorAccumulatesInOrder(t *testing.T) {
	var c Collector
	require.True(t, c.Ok())

	c.Add(3, "unexpected token %q", "}")
	c.Add(0, "unresolved identifier")
	require.False(t, c.Ok())

	errs := c.Errors()
	require.Len(t, errs, 2)
	require.Equal(t, `line 3: unexpected token "}"`, errs[0].Error())
	require.Equal(t, "unresolved identifier", errs[1].Error())
}

func TestAddErrKeepsOriginalError(t *testing.T) {
	var c Collector
	c.AddErr(Newf(5, "boom"))
	require.Len(t, c.Errors(), 1)
	require.Equal(t, 5, c.Errors()[0].Line)
}

func TestBuildErrorAndRuntimeErrorMessages(t *testing.T) {
	be := &BuildError{Function: "update", Message: "unknown opcode"}
	require.Equal(t, "build error in update: unknown opcode", be.Error())

	re := &RuntimeError{Message: "stack underflow"}
	require.Equal(t, "runtime error: stack underflow", re.Error())
}

func TestHaltRecoverRoundTrip(t *testing.T) {
	var outErr error
	func() {
		defer Recover(&outErr)
		Halt(errors.New("fatal"))
	}()
	require.EqualError(t, outErr, "fatal")
}

func TestRecoverRepanicsOnUnrelatedPanic(t *testing.T) {
	require.Panics(t, func() {
		var outErr error
		defer Recover(&outErr)
		panic("not a halt signal")
	})
}

func TestRecoverIsNoOpWithoutPanic(t *testing.T) {
	var outErr error
	func() {
		defer Recover(&outErr)
	}()
	require.NoError(t, outErr)
}
