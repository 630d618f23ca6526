package lmmodule

import (
	"bytes"
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/stretchr/testify/require"
)

func newTestModule() *Module {
	strs := strtab.New()
	types := datatype.NewRegistry(strs)
	return NewModule(strs, types)
}

func TestModuleRoundTrip(t *testing.T) {
	m := newTestModule()
	m.AddGlobalVariable(m.Strings.Intern("health"), datatype.IDInt32, 100, false)
	m.AddUserDefinedVariable(m.Strings.Intern("volume"), datatype.IDFloat)
	m.AddConstant(m.Strings.Intern("MAX_LIVES"), datatype.IDInt32, 9)
	m.AddConstantArray(m.Strings.Intern("levelTable"), datatype.IDInt32, []uint64{1, 2, 3})
	m.AddStringLiteral("hello")

	var buf bytes.Buffer
	depHash := m.BuildDependencyHash()
	require.NoError(t, m.Serialize(&buf, depHash, 7))

	strs2 := strtab.New()
	types2 := datatype.NewRegistry(strs2)
	m2, err := Deserialize(bytes.NewReader(buf.Bytes()), strs2, types2, depHash, 7)
	require.NoError(t, err)

	require.Equal(t, len(m.Globals), len(m2.Globals))
	require.Equal(t, len(m.Constants), len(m2.Constants))
	require.Equal(t, len(m.ConstArrays), len(m2.ConstArrays))
	require.Equal(t, m2.BuildDependencyHash(), depHash)

	name, ok := strs2.Lookup(m2.Globals[0].Name)
	require.True(t, ok)
	require.Equal(t, "health", name)
	require.Equal(t, uint64(100), m2.Globals[0].Init)

	arrName, _ := strs2.Lookup(m2.ConstArrays[0].Name)
	require.Equal(t, "levelTable", arrName)
	require.Equal(t, []uint64{1, 2, 3}, m2.ConstArrays[0].Values)
}

func TestModuleRejectsWrongDependencyHash(t *testing.T) {
	m := newTestModule()
	var buf bytes.Buffer
	require.NoError(t, m.Serialize(&buf, 0x1234, 1))

	strs2 := strtab.New()
	types2 := datatype.NewRegistry(strs2)
	_, err := Deserialize(bytes.NewReader(buf.Bytes()), strs2, types2, 0xBEEF, 1)
	require.Error(t, err)
}

func TestModuleRejectsBadMagic(t *testing.T) {
	strs2 := strtab.New()
	types2 := datatype.NewRegistry(strs2)
	_, err := Deserialize(bytes.NewReader([]byte("nope")), strs2, types2, 0, 0)
	require.Error(t, err)
}
