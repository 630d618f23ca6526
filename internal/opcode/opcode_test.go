package opcode

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/stretchr/testify/require"
)

func TestNewInfersControlFlowFlags(t *testing.T) {
	op := New(Jump, datatype.IDVoid, 12, 1)
	require.True(t, op.Flags&CtrlFlow != 0)
	require.True(t, op.Flags&SeqBreak != 0)

	add := New(ArithmAdd, datatype.IDInt32, 0, 1)
	require.False(t, add.Flags&CtrlFlow != 0)
	require.False(t, add.Flags&SeqBreak != 0)
}

func TestTypeStringCoversEveryOpcode(t *testing.T) {
	for tp := MoveStack; tp <= ExternalJump; tp++ {
		require.NotEqual(t, "UNKNOWN_OPCODE", tp.String())
	}
	require.Equal(t, "UNKNOWN_OPCODE", Type(255).String())
}

func TestIsArithmeticAndIsCompare(t *testing.T) {
	require.True(t, ArithmAdd.IsArithmetic())
	require.True(t, ArithmUnaryPlus.IsArithmetic())
	require.False(t, CompareEQ.IsArithmetic())

	require.True(t, CompareEQ.IsCompare())
	require.True(t, CompareGE.IsCompare())
	require.False(t, ArithmAdd.IsCompare())
}

func TestVariableIDPacksAndSplitsKind(t *testing.T) {
	for _, kind := range []VariableKind{VarGlobal, VarLocal, VarUser, VarExternal} {
		id := VariableID(kind, 0x0ABCDEF)
		gotKind, gotIndex := SplitVariableID(id)
		require.Equal(t, kind, gotKind)
		require.Equal(t, uint32(0x0ABCDEF), gotIndex)
	}
}

func TestVariableIDIndexIsMaskedTo28Bits(t *testing.T) {
	id := VariableID(VarLocal, 0xFFFFFFFF)
	_, index := SplitVariableID(id)
	require.Equal(t, uint32(0x0FFFFFFF), index)
}
