package timescale

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
)

// The table used when no leap second data is supplied: TAI-UTC was 10
// seconds at the start of 1972, when whole leap seconds were introduced.
const (
	fallbackDay    = 41317 // 1972-01-01
	fallbackOffset = 10
)

// ErrInvalidTable is returned when leap second data breaks the table
// invariants: strictly increasing days and offsets moving by one second.
var ErrInvalidTable = errors.New("timescale: invalid leap second table")

// LeapSecond is one row of a leap second table. At the end of Day, a
// Modified Julian Day, the offset TAI-UTC becomes Offset seconds.
type LeapSecond struct {
	Day    int64
	Offset int
}

// Snapshot is an immutable version of a leap second table.
type Snapshot struct {
	days       []int64
	offsets    []int
	taiSeconds []int64
}

func newSnapshot(entries []LeapSecond) (*Snapshot, error) {
	s := &Snapshot{
		days:       make([]int64, 0, len(entries)),
		offsets:    make([]int, 0, len(entries)),
		taiSeconds: make([]int64, 0, len(entries)),
	}
	for i, e := range entries {
		if i > 0 {
			prev := entries[i-1]
			if e.Day <= prev.Day {
				return nil, fmt.Errorf("%w: day %d does not follow day %d", ErrInvalidTable, e.Day, prev.Day)
			}
			if d := e.Offset - prev.Offset; d != 1 && d != -1 {
				return nil, fmt.Errorf("%w: offset moves from %d to %d on day %d", ErrInvalidTable, prev.Offset, e.Offset, e.Day)
			}
		}
		tai, err := changeSecond(e.Day, e.Offset)
		if err != nil {
			return nil, err
		}
		s.days = append(s.days, e.Day)
		s.offsets = append(s.offsets, e.Offset)
		s.taiSeconds = append(s.taiSeconds, tai)
	}
	return s, nil
}

// changeSecond returns the TAI second at which the day after day begins
// when the offset is offset.
func changeSecond(day int64, offset int) (int64, error) {
	d, err := addExact(day, 1-mjdTAIEpoch)
	if err != nil {
		return 0, err
	}
	secs, err := mulExact(d, secondsPerDay)
	if err != nil {
		return 0, err
	}
	return addExact(secs, int64(offset))
}

func (s *Snapshot) appended(day int64, offset int) (*Snapshot, error) {
	tai, err := changeSecond(day, offset)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		days:       append(slices.Clip(s.days), day),
		offsets:    append(slices.Clip(s.offsets), offset),
		taiSeconds: append(slices.Clip(s.taiSeconds), tai),
	}, nil
}

// Len returns the number of rows.
func (s *Snapshot) Len() int { return len(s.days) }

// Latest returns the last row.
func (s *Snapshot) Latest() LeapSecond {
	n := len(s.days) - 1
	return LeapSecond{Day: s.days[n], Offset: s.offsets[n]}
}

// Adjustment returns the leap second at the end of day: +1, -1 or 0.
func (s *Snapshot) Adjustment(day int64) int {
	pos, found := slices.BinarySearch(s.days, day)
	if !found || pos == 0 {
		return 0
	}
	return s.offsets[pos] - s.offsets[pos-1]
}

// Offset returns TAI-UTC in seconds during day.
func (s *Snapshot) Offset(day int64) int {
	pos, _ := slices.BinarySearch(s.days, day)
	if pos == 0 {
		return fallbackOffset
	}
	return s.offsets[pos-1]
}

// LeapDays returns the days ending in a leap second, oldest first.
func (s *Snapshot) LeapDays() []int64 {
	if len(s.days) < 2 {
		return nil
	}
	return slices.Clone(s.days[1:])
}

// Entries returns a copy of the table.
func (s *Snapshot) Entries() []LeapSecond {
	out := make([]LeapSecond, len(s.days))
	for i := range s.days {
		out[i] = LeapSecond{Day: s.days[i], Offset: s.offsets[i]}
	}
	return out
}

// offsetAt returns the row in force at TAI second secs and its offset,
// or -1 and the fallback offset before the first row.
func (s *Snapshot) offsetAt(secs int64) (int, int) {
	pos, found := slices.BinarySearch(s.taiSeconds, secs)
	if !found {
		pos--
	}
	if pos < 0 {
		return -1, fallbackOffset
	}
	return pos, s.offsets[pos]
}

// Registry is the shared leap second table. Readers see an immutable
// Snapshot; Register replaces it atomically. Registry is safe for
// concurrent use, but registrations should be serialized by the caller.
type Registry struct {
	data atomic.Pointer[Snapshot]
	log  *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger logs table changes to l.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry returns a registry holding entries, or the 1972 fallback
// row when entries is empty. A table whose first row is not at the
// 10 second offset of early 1972 gets an anchor row before it.
func NewRegistry(entries []LeapSecond, opts ...Option) (*Registry, error) {
	if len(entries) == 0 {
		entries = []LeapSecond{{Day: fallbackDay, Offset: fallbackOffset}}
	}
	snap, err := newSnapshot(anchored(entries))
	if err != nil {
		return nil, err
	}
	r := &Registry{log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.data.Store(snap)
	return r, nil
}

// Snapshot returns the current table.
func (r *Registry) Snapshot() *Snapshot { return r.data.Load() }

// Adjustment returns the leap second at the end of day: +1, -1 or 0.
func (r *Registry) Adjustment(day int64) int { return r.Snapshot().Adjustment(day) }

// Offset returns TAI-UTC in seconds during day.
func (r *Registry) Offset(day int64) int { return r.Snapshot().Offset(day) }

// LeapDays returns the days ending in a leap second, oldest first.
func (r *Registry) LeapDays() []int64 { return r.Snapshot().LeapDays() }

// Register adds a leap second of adjustment (-1 or +1) at the end of day.
// Registering a leap second already in the table does nothing. Any other
// day must be after the newest day in the table, otherwise ErrConflict is
// returned. If another registration lands first the result is
// ErrConcurrentModification and the table is unchanged.
func (r *Registry) Register(day int64, adjustment int) error {
	if adjustment != -1 && adjustment != 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidAdjustment, adjustment)
	}
	old := r.data.Load()
	if old.Adjustment(day) == adjustment {
		return nil
	}
	latest := old.Latest()
	if day <= latest.Day {
		r.log.Warn("leap second rejected",
			zap.Int64("mjd", day),
			zap.Int("adjustment", adjustment),
			zap.Int64("latest", latest.Day))
		return fmt.Errorf("%w: day %d with adjustment %+d is not after %d", ErrConflict, day, adjustment, latest.Day)
	}
	next, err := old.appended(day, latest.Offset+adjustment)
	if err != nil {
		return err
	}
	if !r.data.CompareAndSwap(old, next) {
		return ErrConcurrentModification
	}
	r.log.Info("leap second registered",
		zap.Int64("mjd", day),
		zap.Int("adjustment", adjustment),
		zap.Int("offset", latest.Offset+adjustment))
	return nil
}
