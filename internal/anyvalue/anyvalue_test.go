package anyvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	require.Equal(t, int8(-5), GetI8(SetI8(-5)))
	require.Equal(t, uint8(250), GetU8(SetU8(250)))
	require.Equal(t, int16(-1000), GetI16(SetI16(-1000)))
	require.Equal(t, uint32(4000000000), GetU32(SetU32(4000000000)))
	require.Equal(t, int64(-1), GetI64(SetI64(-1)))
	require.Equal(t, uint64(1)<<63, GetU64(SetU64(1<<63)))
	require.True(t, GetBool(SetBool(true)))
	require.False(t, GetBool(SetBool(false)))
	require.InDelta(t, float32(3.25), GetFloat(SetFloat(3.25)), 0.0001)
	require.InDelta(t, 2.5, GetDouble(SetDouble(2.5)), 0.0001)
}

func TestCastIdentity(t *testing.T) {
	c := SetI32(42)
	require.Equal(t, c, Cast(KindI32, KindI32, c))
}

func TestCastIntToFloatAndBack(t *testing.T) {
	c := SetI32(7)
	f := Cast(KindI32, KindDouble, c)
	require.InDelta(t, 7.0, GetDouble(f), 0.0001)

	back := Cast(KindDouble, KindI32, f)
	require.Equal(t, int32(7), GetI32(back))
}

func TestCastTruncatesNarrowing(t *testing.T) {
	var wide int32 = 300 // doesn't fit in int8
	c := SetI32(wide)
	narrowed := Cast(KindI32, KindI8, c)
	require.Equal(t, int8(wide), GetI8(narrowed)) // matches Go's own truncation rule
}

func TestCastFloatToIntTruncatesTowardZero(t *testing.T) {
	c := SetDouble(3.9)
	i := Cast(KindDouble, KindI32, c)
	require.Equal(t, int32(3), GetI32(i))

	neg := SetDouble(-3.9)
	negI := Cast(KindDouble, KindI32, neg)
	require.Equal(t, int32(-3), GetI32(negI))
}

func TestCastBoolNormalizesToOneOrZero(t *testing.T) {
	c := SetI32(42)
	b := Cast(KindI32, KindBool, c)
	require.True(t, GetBool(b))
}
