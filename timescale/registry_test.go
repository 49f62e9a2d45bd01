package timescale

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

const (
	mjd19721231 = 41682
	mjd19730101 = 41683
)

// newTestRegistry returns the 1972 fallback table with a leap second of
// adjustment adj at the end of 1972-12-31.
func newTestRegistry(t *testing.T, adj int) *Registry {
	t.Helper()
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	require.NoError(t, r.Register(mjd19721231, adj))
	return r
}

func TestFallbackRegistry(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	s := r.Snapshot()
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, LeapSecond{Day: fallbackDay, Offset: fallbackOffset}, s.Latest())
	assert.Empty(t, r.LeapDays())
	assert.Equal(t, 0, r.Adjustment(fallbackDay))
	assert.Equal(t, 10, r.Offset(0))
	assert.Equal(t, 10, r.Offset(60000))
	assert.Equal(t, int64(41317), civilDay(1972, 1, 1))
}

func TestRegistryLookups(t *testing.T) {
	r, err := NewRegistry([]LeapSecond{
		{Day: 41316, Offset: 10},
		{Day: 41498, Offset: 11},
		{Day: 41682, Offset: 12},
		{Day: 42000, Offset: 11},
	})
	require.NoError(t, err)

	tests := []struct {
		day    int64
		adj    int
		offset int
	}{
		{0, 0, 10},
		{41316, 0, 10},
		{41317, 0, 10},
		{41498, 1, 10},
		{41499, 0, 11},
		{41682, 1, 11},
		{41683, 0, 12},
		{42000, -1, 12},
		{42001, 0, 11},
		{99999, 0, 11},
	}
	for _, tt := range tests {
		if got := r.Adjustment(tt.day); got != tt.adj {
			t.Errorf("Adjustment(%d) = %d, want %d", tt.day, got, tt.adj)
		}
		if got := r.Offset(tt.day); got != tt.offset {
			t.Errorf("Offset(%d) = %d, want %d", tt.day, got, tt.offset)
		}
	}
	assert.Equal(t, []int64{41498, 41682, 42000}, r.LeapDays())
}

func TestNewRegistryAnchorsTable(t *testing.T) {
	r, err := NewRegistry([]LeapSecond{{Day: 41498, Offset: 11}})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Adjustment(41498))
	assert.Equal(t, 10, r.Offset(41498))
	assert.Equal(t, 11, r.Offset(41499))
	assert.Equal(t, []LeapSecond{{Day: 41497, Offset: 10}, {Day: 41498, Offset: 11}}, r.Snapshot().Entries())
}

func TestNewRegistryRejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name    string
		entries []LeapSecond
	}{
		{"days not increasing", []LeapSecond{{Day: 41317, Offset: 10}, {Day: 41317, Offset: 11}}},
		{"days decreasing", []LeapSecond{{Day: 41317, Offset: 10}, {Day: 41000, Offset: 11}}},
		{"offset jumps", []LeapSecond{{Day: 41317, Offset: 10}, {Day: 41498, Offset: 12}}},
		{"offset flat", []LeapSecond{{Day: 41317, Offset: 10}, {Day: 41498, Offset: 10}}},
		{"anchor too far", []LeapSecond{{Day: 41498, Offset: 13}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries)
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestRegister(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	require.NoError(t, r.Register(mjd19721231, 1))
	require.NoError(t, r.Register(mjd19721231, 1))
	assert.Equal(t, []int64{mjd19721231}, r.LeapDays())
	assert.Equal(t, 1, r.Adjustment(mjd19721231))
	assert.Equal(t, 11, r.Offset(mjd19730101))

	err = r.Register(mjd19721231, -1)
	assert.ErrorIs(t, err, ErrConflict)
	err = r.Register(41500, 1)
	assert.ErrorIs(t, err, ErrConflict)
	err = r.Register(fallbackDay, 1)
	assert.ErrorIs(t, err, ErrConflict)

	for _, adj := range []int{0, 2, -2} {
		assert.ErrorIs(t, r.Register(50000, adj), ErrInvalidAdjustment)
	}

	require.NoError(t, r.Register(42000, -1))
	assert.Equal(t, -1, r.Adjustment(42000))
	assert.Equal(t, 10, r.Offset(42001))
	require.NoError(t, r.Register(43000, 1))
	assert.Equal(t, []int64{mjd19721231, 42000, 43000}, r.LeapDays())
	assert.Equal(t, 11, r.Offset(43001))
}

func TestRegisterKeepsOldSnapshots(t *testing.T) {
	r := newTestRegistry(t, 1)
	before := r.Snapshot()
	require.NoError(t, r.Register(42000, 1))

	assert.Equal(t, 2, before.Len())
	assert.Equal(t, 0, before.Adjustment(42000))
	assert.Equal(t, 3, r.Snapshot().Len())
}

func TestRegisterConcurrentSameDay(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	const writers = 32
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Register(50000, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrConcurrentModification)
	}
	assert.GreaterOrEqual(t, wins, 1)
	assert.Equal(t, 2, r.Snapshot().Len())
	assert.Equal(t, 1, r.Adjustment(50000))
	// A lost race is retriable: the retry sees the winner's row.
	assert.NoError(t, r.Register(50000, 1))
}

func TestRegisterConcurrentNeverCorrupts(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	const writers = 16
	var (
		eg   errgroup.Group
		wins atomic.Int32
	)
	for i := 0; i < writers; i++ {
		day := int64(50000 + i)
		eg.Go(func() error {
			for {
				err := r.Register(day, 1)
				switch {
				case errors.Is(err, ErrConcurrentModification):
					continue
				case err == nil:
					wins.Add(1)
					return nil
				case errors.Is(err, ErrConflict):
					return nil
				default:
					return err
				}
			}
		})
	}
	require.NoError(t, eg.Wait())

	entries := r.Snapshot().Entries()
	assert.Len(t, entries, int(wins.Load())+1)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Day, entries[i-1].Day)
		assert.Equal(t, entries[i-1].Offset+1, entries[i].Offset)
	}
}

func TestRegistryLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r, err := NewRegistry(nil, WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, r.Register(mjd19721231, 1))
	require.Error(t, r.Register(41500, 1))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "leap second registered", entries[0].Message)
	assert.Equal(t, "leap second rejected", entries[1].Message)
	assert.Equal(t, int64(mjd19721231), entries[0].ContextMap()["mjd"])
}

func TestSystemRegistry(t *testing.T) {
	r := System()
	require.NotNil(t, r)
	assert.Same(t, r, System())

	assert.Len(t, r.LeapDays(), 27)
	assert.Equal(t, 1, r.Adjustment(civilDay(2016, 12, 31)))
	assert.Equal(t, 36, r.Offset(civilDay(2016, 12, 31)))
	assert.Equal(t, 37, r.Offset(civilDay(2017, 1, 1)))
	assert.Equal(t, 10, r.Offset(civilDay(1970, 1, 1)))
	assert.Equal(t, 1, r.Adjustment(mjd19721231))
}
