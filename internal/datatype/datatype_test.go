package datatype

import (
	"testing"

	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/stretchr/testify/require"
)

func TestPredefinedIDsAreFixed(t *testing.T) {
	strs := strtab.New()
	r := NewRegistry(strs)

	cases := []struct {
		id       ID
		name     string
		class    Class
		width    int
		isSigned bool
	}{
		{IDVoid, "void", ClassVoid, 0, false},
		{IDBool, "bool", ClassInteger, 1, false},
		{IDInt8, "int8", ClassInteger, 1, true},
		{IDUInt8, "uint8", ClassInteger, 1, false},
		{IDInt32, "int32", ClassInteger, 4, true},
		{IDUInt64, "uint64", ClassInteger, 8, false},
		{IDFloat, "float", ClassFloat, 4, false},
		{IDDouble, "double", ClassFloat, 8, false},
		{IDString, "string", ClassString, 8, false},
	}
	for _, c := range cases {
		d := r.Lookup(c.id)
		require.NotNilf(t, d, "id %d", c.id)
		require.Equal(t, c.class, d.Class)
		require.Equal(t, c.width, d.ByteWidth)
		require.Equal(t, c.isSigned, r.Signed(c.id))

		byName := r.LookupName(strs.Intern(c.name))
		require.Same(t, d, byName)
	}
}

func TestAddCustomAndArrayAllocateSequentially(t *testing.T) {
	strs := strtab.New()
	r := NewRegistry(strs)

	start := r.NextID()
	vec := r.AddCustom(strs.Intern("Vector3"), 12)
	require.Equal(t, start, vec.ID)

	arr := r.AddArray(strs.Intern("IntArray"), IDInt32)
	require.Equal(t, start+1, arr.ID)
	require.Equal(t, IDInt32, arr.ElemType)
	require.Equal(t, ClassArray, arr.Class)

	require.Equal(t, start+2, r.NextID())
}

func TestSetNextIDContinuesAcrossModules(t *testing.T) {
	strs := strtab.New()
	r := NewRegistry(strs)
	r.SetNextID(100)
	d := r.AddCustom(strs.Intern("Widget"), 4)
	require.EqualValues(t, 100, d.ID)
}

func TestIsDefaultIntegerExcludesBoolAndConst(t *testing.T) {
	strs := strtab.New()
	r := NewRegistry(strs)

	require.True(t, r.IsDefaultInteger(IDInt32))
	require.False(t, r.IsDefaultInteger(IDBool))
	require.False(t, r.IsDefaultInteger(IDConstInt))
	require.False(t, r.IsDefaultInteger(IDFloat))
}

func TestLookupUnknownIDReturnsNil(t *testing.T) {
	strs := strtab.New()
	r := NewRegistry(strs)
	require.Nil(t, r.Lookup(ID(9999)))
}

func TestBaseTypeStringCoversEveryTag(t *testing.T) {
	for b := Void; b <= Any; b++ {
		require.NotEmpty(t, b.String())
	}
	require.Equal(t, "custom", customBase.String())
}
