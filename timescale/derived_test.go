package timescale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTT(t *testing.T) {
	tai := mustTAI(t, 100, 0)
	tt, err := TTFromTAI(tai)
	require.NoError(t, err)
	assert.Equal(t, int64(132), tt.Seconds())
	assert.Equal(t, int32(184_000_000), tt.Nanos())
	assert.Equal(t, "132.184000000s(TT)", tt.String())

	back, err := TAIFromTT(tt)
	require.NoError(t, err)
	assert.Equal(t, tai, back)

	_, err = TTFromTAI(mustTAI(t, math.MaxInt64, 0))
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := TTOf(1, -1)
	require.NoError(t, err)
	assert.Equal(t, "0.999999999s(TT)", v.String())
}

func TestGPS(t *testing.T) {
	r := System()
	c := NewConverter(r)

	epoch, err := c.ToTAI(mustUTC(t, r, civilDay(1980, 1, 6), 0))
	require.NoError(t, err)
	g, err := GPSFromTAI(epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.Seconds())
	assert.Equal(t, "0.000000000s(GPS)", g.String())

	// GPS does not observe leap seconds: 2017-01-01 is 18 s ahead of UTC.
	u := mustUTC(t, r, civilDay(2017, 1, 1), 0)
	tai, err := c.ToTAI(u)
	require.NoError(t, err)
	g, err = GPSFromTAI(tai)
	require.NoError(t, err)
	days := civilDay(2017, 1, 1) - civilDay(1980, 1, 6)
	assert.Equal(t, days*secondsPerDay+18, g.Seconds())

	week, sow := g.Week()
	assert.Equal(t, int64(1930), week)
	assert.Equal(t, int64(0*secondsPerDay+18), sow)

	back, err := TAIFromGPS(g)
	require.NoError(t, err)
	assert.Equal(t, tai, back)

	g, err = GPSOf(-1, 0)
	require.NoError(t, err)
	week, sow = g.Week()
	assert.Equal(t, int64(-1), week)
	assert.Equal(t, int64(7*secondsPerDay-1), sow)
}
