package timescale

import (
	"math"
	"time"
)

// maxTimeUnix is the largest Unix second time.Unix can hold without
// overflowing its internal representation.
const maxTimeUnix = math.MaxInt64 - 62135596800

// minTimeUnix is the smallest Unix second a time.Time formats without
// wrapping.
const minTimeUnix = math.MinInt64 + 62135596800

// Converter converts instants between the TAI, UTC and civil time-scales
// using the leap second table of a Registry. Each call works on a single
// snapshot of the table.
type Converter struct {
	reg *Registry
}

// NewConverter returns a converter reading r.
func NewConverter(r *Registry) *Converter {
	return &Converter{reg: r}
}

// Registry returns the registry c reads.
func (c *Converter) Registry() *Registry { return c.reg }

// ToTAI is Converter.ToTAI against this snapshot. Callers that read
// several values for one answer use a single snapshot for all of them.
func (s *Snapshot) ToTAI(u UTCInstant) (TAIInstant, error) { return toTAI(s, u) }

// ToUTC is Converter.ToUTC against this snapshot.
func (s *Snapshot) ToUTC(t TAIInstant) (UTCInstant, error) { return toUTC(s, t) }

// ToTAI converts a UTC instant to the atomic scale.
func (c *Converter) ToTAI(u UTCInstant) (TAIInstant, error) {
	return toTAI(c.reg.Snapshot(), u)
}

// ToUTC converts an atomic instant to UTC. An instant inside a leap second
// comes back as second 60 of the day before the change.
func (c *Converter) ToUTC(t TAIInstant) (UTCInstant, error) {
	return toUTC(c.reg.Snapshot(), t)
}

// ToTime converts a UTC instant to a time.Time using UTC-SLS: on a day
// with a leap second, the last 1000 UTC seconds are mapped linearly onto
// 1000 +/- 1 civil seconds so every civil day lasts 86400 seconds.
func (c *Converter) ToTime(u UTCInstant) (time.Time, error) {
	return toTime(c.reg.Snapshot(), u)
}

// FromTime is the inverse of ToTime.
func (c *Converter) FromTime(t time.Time) (UTCInstant, error) {
	return fromTime(c.reg.Snapshot(), t)
}

// TAIToTime converts an atomic instant to civil time through UTC.
func (c *Converter) TAIToTime(t TAIInstant) (time.Time, error) {
	s := c.reg.Snapshot()
	u, err := toUTC(s, t)
	if err != nil {
		return time.Time{}, err
	}
	return toTime(s, u)
}

// TimeToTAI converts civil time to the atomic scale through UTC.
func (c *Converter) TimeToTAI(t time.Time) (TAIInstant, error) {
	s := c.reg.Snapshot()
	u, err := fromTime(s, t)
	if err != nil {
		return TAIInstant{}, err
	}
	return toTAI(s, u)
}

// PlusUTC returns u+d where d is elapsed atomic time.
func (c *Converter) PlusUTC(u UTCInstant, d time.Duration) (UTCInstant, error) {
	s := c.reg.Snapshot()
	t, err := toTAI(s, u)
	if err != nil {
		return UTCInstant{}, err
	}
	if t, err = t.Plus(d); err != nil {
		return UTCInstant{}, err
	}
	return toUTC(s, t)
}

// MinusUTC returns u-d where d is elapsed atomic time.
func (c *Converter) MinusUTC(u UTCInstant, d time.Duration) (UTCInstant, error) {
	s := c.reg.Snapshot()
	t, err := toTAI(s, u)
	if err != nil {
		return UTCInstant{}, err
	}
	if t, err = t.Minus(d); err != nil {
		return UTCInstant{}, err
	}
	return toUTC(s, t)
}

// UTCUntil returns the elapsed time from u to v, leap seconds included.
func (c *Converter) UTCUntil(u, v UTCInstant) (time.Duration, error) {
	s := c.reg.Snapshot()
	a, err := toTAI(s, u)
	if err != nil {
		return 0, err
	}
	b, err := toTAI(s, v)
	if err != nil {
		return 0, err
	}
	return a.Until(b)
}

func toTAI(s *Snapshot, u UTCInstant) (TAIInstant, error) {
	days, err := subExact(u.day, mjdTAIEpoch)
	if err != nil {
		return TAIInstant{}, err
	}
	secs, err := mulExact(days, secondsPerDay)
	if err != nil {
		return TAIInstant{}, err
	}
	secs, err = addExact(secs, u.nanoOfDay/nanosPerSecond+int64(s.Offset(u.day)))
	if err != nil {
		return TAIInstant{}, err
	}
	return TAIOf(secs, u.nanoOfDay%nanosPerSecond)
}

func toUTC(s *Snapshot, t TAIInstant) (UTCInstant, error) {
	pos, offset := s.offsetAt(t.seconds)
	adjusted, err := subExact(t.seconds, int64(offset))
	if err != nil {
		return UTCInstant{}, err
	}
	day, err := addExact(floorDiv(adjusted, secondsPerDay), mjdTAIEpoch)
	if err != nil {
		return UTCInstant{}, err
	}
	nod := floorMod(adjusted, secondsPerDay)*nanosPerSecond + int64(t.nanos)
	// The seconds between the end of a leap day and the next row taking
	// effect belong to second 60 of the leap day.
	if next := pos + 1; next < len(s.days) && day == s.days[next]+1 {
		day--
		nod += nanosPerDay
	}
	return s.UTC(day, nod)
}

// slsStart is the nano-of-day at which UTC-SLS smoothing begins on a day
// with leap second adjustment adj.
func slsStart(adj int64) int64 {
	return (secondsPerDay + adj - 1000) * nanosPerSecond
}

func toTime(s *Snapshot, u UTCInstant) (time.Time, error) {
	epochDay, err := subExact(u.day, mjdUnixEpoch)
	if err != nil {
		return time.Time{}, err
	}
	epochSec, err := mulExact(epochDay, secondsPerDay)
	if err != nil {
		return time.Time{}, err
	}
	adj := int64(s.Adjustment(u.day))
	sls := u.nanoOfDay
	if start := slsStart(adj); adj != 0 && sls >= start {
		sls -= adj * (sls - start) / 1000
	}
	sec, err := addExact(epochSec, sls/nanosPerSecond)
	if err != nil || sec > maxTimeUnix || sec < minTimeUnix {
		return time.Time{}, ErrOverflow
	}
	return time.Unix(sec, sls%nanosPerSecond).UTC(), nil
}

func fromTime(s *Snapshot, t time.Time) (UTCInstant, error) {
	sec := t.Unix()
	day, err := addExact(floorDiv(sec, secondsPerDay), mjdUnixEpoch)
	if err != nil {
		return UTCInstant{}, err
	}
	sls := floorMod(sec, secondsPerDay)*nanosPerSecond + int64(t.Nanosecond())
	adj := int64(s.Adjustment(day))
	nod := sls
	if start := slsStart(adj); adj != 0 && sls >= start {
		nod = start + (sls-start)*1000/(1000-adj)
	}
	return s.UTC(day, nod)
}
