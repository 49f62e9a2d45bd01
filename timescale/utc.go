package timescale

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UTCInstant is an instant on the leap-aware UTC scale: a Modified Julian
// Day and a nanosecond within it. On a day ending in an inserted leap
// second the nano-of-day runs up to 86401e9, on a day ending in a removed
// one it stops at 86399e9. Values are only created through a Registry,
// which checks that range.
//
// The methods that revalidate or do arithmetic (WithDay, WithNanoOfDay,
// Plus, Minus, Until) read the System registry. For a value validated
// against another Registry use that registry's methods, or a Converter
// on it, so both agree on the leap seconds.
type UTCInstant struct {
	day       int64
	nanoOfDay int64
}

// UTC is Registry.UTC against this snapshot.
func (s *Snapshot) UTC(day, nanoOfDay int64) (UTCInstant, error) {
	limit := nanosPerDay + int64(s.Adjustment(day))*nanosPerSecond
	if nanoOfDay < 0 || nanoOfDay >= limit {
		return UTCInstant{}, fmt.Errorf("%w: nano-of-day %d not in [0, %d) on MJD %d", ErrRange, nanoOfDay, limit, day)
	}
	return UTCInstant{day: day, nanoOfDay: nanoOfDay}, nil
}

// UTC returns the instant nanoOfDay nanoseconds into the Modified Julian
// Day day, or ErrRange if that day is too short for it.
func (r *Registry) UTC(day, nanoOfDay int64) (UTCInstant, error) {
	return r.Snapshot().UTC(day, nanoOfDay)
}

// WithDay returns u moved to day, keeping the nano-of-day.
func (r *Registry) WithDay(u UTCInstant, day int64) (UTCInstant, error) {
	return r.UTC(day, u.nanoOfDay)
}

// WithNanoOfDay returns u with its nano-of-day replaced.
func (r *Registry) WithNanoOfDay(u UTCInstant, nanoOfDay int64) (UTCInstant, error) {
	return r.UTC(u.day, nanoOfDay)
}

// UTCOf is UTC on the System registry.
func UTCOf(day, nanoOfDay int64) (UTCInstant, error) {
	return System().UTC(day, nanoOfDay)
}

// Day returns the Modified Julian Day.
func (u UTCInstant) Day() int64 { return u.day }

// NanoOfDay returns the nanoseconds since the start of the day.
func (u UTCInstant) NanoOfDay() int64 { return u.nanoOfDay }

// IsLeapSecond reports whether u falls within an inserted leap second.
func (u UTCInstant) IsLeapSecond() bool { return u.nanoOfDay >= nanosPerDay }

// WithDay is Registry.WithDay on the System registry.
func (u UTCInstant) WithDay(day int64) (UTCInstant, error) {
	return System().WithDay(u, day)
}

// WithNanoOfDay is Registry.WithNanoOfDay on the System registry.
func (u UTCInstant) WithNanoOfDay(nanoOfDay int64) (UTCInstant, error) {
	return System().WithNanoOfDay(u, nanoOfDay)
}

// Plus returns u+d, counting leap seconds as elapsed time.
func (u UTCInstant) Plus(d time.Duration) (UTCInstant, error) {
	return NewConverter(System()).PlusUTC(u, d)
}

// Minus returns u-d, counting leap seconds as elapsed time.
func (u UTCInstant) Minus(d time.Duration) (UTCInstant, error) {
	return NewConverter(System()).MinusUTC(u, d)
}

// Until returns the elapsed time from u to v, leap seconds included.
func (u UTCInstant) Until(v UTCInstant) (time.Duration, error) {
	return NewConverter(System()).UTCUntil(u, v)
}

// Compare returns -1, 0 or +1 as u is before, equal to or after v.
func (u UTCInstant) Compare(v UTCInstant) int {
	if c := cmp.Compare(u.day, v.day); c != 0 {
		return c
	}
	return cmp.Compare(u.nanoOfDay, v.nanoOfDay)
}

// Before reports whether u is before v.
func (u UTCInstant) Before(v UTCInstant) bool { return u.Compare(v) < 0 }

// After reports whether u is after v.
func (u UTCInstant) After(v UTCInstant) bool { return u.Compare(v) > 0 }

// Equal reports whether u and v are the same instant.
func (u UTCInstant) Equal(v UTCInstant) bool { return u == v }

// String returns ISO-8601 text such as "1972-12-31T23:59:60Z". The
// fraction, if any, is written with three, six or nine digits.
func (u UTCInstant) String() string {
	y, m, d := Date(u.day)
	sod := u.nanoOfDay / nanosPerSecond
	hh, mm, ss := sod/3600, sod/60%60, sod%60
	if hh == 24 {
		hh, mm, ss = 23, 59, 60
	}
	var b strings.Builder
	b.WriteString(formatYear(y))
	fmt.Fprintf(&b, "-%02d-%02dT%02d:%02d:%02d", m, d, hh, mm, ss)
	switch frac := u.nanoOfDay % nanosPerSecond; {
	case frac == 0:
	case frac%1_000_000 == 0:
		fmt.Fprintf(&b, ".%03d", frac/1_000_000)
	case frac%1_000 == 0:
		fmt.Fprintf(&b, ".%06d", frac/1_000)
	default:
		fmt.Fprintf(&b, ".%09d", frac)
	}
	b.WriteByte('Z')
	return b.String()
}

func formatYear(y int64) string {
	switch {
	case y < 0:
		return fmt.Sprintf("-%04d", -y)
	case y > 9999:
		return "+" + strconv.FormatInt(y, 10)
	default:
		return fmt.Sprintf("%04d", y)
	}
}

// ParseUTC parses text in the form written by UTCInstant.String, with a
// fraction of up to nine digits. A seconds field of 60 is accepted only as
// 23:59:60 on a day ending in an inserted leap second.
func (r *Registry) ParseUTC(s string) (UTCInstant, error) {
	p := textParser{s: s}
	y := p.year()
	p.lit('-')
	month := p.field(2, 1, 12)
	p.lit('-')
	dom := p.field(2, 1, 31)
	p.lit('T')
	hh := p.field(2, 0, 23)
	p.lit(':')
	mm := p.field(2, 0, 59)
	p.lit(':')
	secPos := p.i
	ss := p.field(2, 0, 60)
	frac := p.fraction()
	p.lit('Z')
	if p.err == nil && p.i != len(s) {
		p.fail("unexpected trailing text")
	}
	if p.err != nil {
		return UTCInstant{}, p.err
	}
	if dom > daysInMonth(y, month) {
		return UTCInstant{}, parseErr(s, 0, "day of month out of range")
	}
	snap := r.Snapshot()
	day, err := mjdFromCivil(y, month, dom)
	if err != nil {
		return UTCInstant{}, &ParseError{Input: s, Pos: 0, Msg: "date out of range", Err: err}
	}
	if ss == 60 {
		if hh != 23 || mm != 59 {
			return UTCInstant{}, parseErr(s, secPos, "leap second must be 23:59:60")
		}
		if snap.Adjustment(day) != 1 {
			return UTCInstant{}, parseErr(s, secPos, "no leap second on "+s[:secPos-7])
		}
	}
	nod := (int64(hh)*3600+int64(mm)*60+int64(ss))*nanosPerSecond + frac
	u, err := snap.UTC(day, nod)
	if err != nil {
		return UTCInstant{}, &ParseError{Input: s, Pos: secPos, Msg: "time does not exist on that day", Err: err}
	}
	return u, nil
}

// ParseUTC is Registry.ParseUTC on the System registry.
func ParseUTC(s string) (UTCInstant, error) {
	return System().ParseUTC(s)
}

// MarshalText implements encoding.TextMarshaler.
func (u UTCInstant) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler against the System
// registry.
func (u *UTCInstant) UnmarshalText(b []byte) error {
	v, err := ParseUTC(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// textParser reads fixed-width ISO-8601 fields, keeping the first error.
type textParser struct {
	s   string
	i   int
	err error
}

func (p *textParser) fail(msg string) {
	if p.err == nil {
		p.err = parseErr(p.s, p.i, msg)
	}
}

func (p *textParser) digits(min, max int) (int64, bool) {
	start := p.i
	var v int64
	for p.i < len(p.s) && p.i-start < max && isDigit(p.s[p.i]) {
		v = v*10 + int64(p.s[p.i]-'0')
		p.i++
	}
	if p.i-start < min {
		return 0, false
	}
	return v, true
}

func (p *textParser) year() int64 {
	if p.err != nil {
		return 0
	}
	sign, min := int64(1), 4
	if p.i < len(p.s) {
		switch p.s[p.i] {
		case '-':
			sign = -1
			p.i++
		case '+':
			min = 5
			p.i++
		}
	}
	start := p.i
	max := 4
	if p.i > 0 {
		// Enough for every year an int64 day count can reach.
		max = 17
	}
	v, ok := p.digits(min, max)
	if !ok {
		p.i = start
		p.fail("expected year")
		return 0
	}
	return sign * v
}

func (p *textParser) field(width int, lo, hi int) int {
	if p.err != nil {
		return 0
	}
	start := p.i
	v, ok := p.digits(width, width)
	if !ok || v < int64(lo) || v > int64(hi) {
		p.i = start
		p.fail(fmt.Sprintf("expected %d digit value in [%d, %d]", width, lo, hi))
		return 0
	}
	return int(v)
}

func (p *textParser) fraction() int64 {
	if p.err != nil || p.i >= len(p.s) || p.s[p.i] != '.' {
		return 0
	}
	p.i++
	start := p.i
	v, ok := p.digits(1, 9)
	if !ok {
		p.fail("expected fraction digits")
		return 0
	}
	for n := p.i - start; n < 9; n++ {
		v *= 10
	}
	return v
}

func (p *textParser) lit(c byte) {
	if p.err != nil {
		return
	}
	if p.i >= len(p.s) || p.s[p.i] != c {
		p.fail(fmt.Sprintf("expected %q", c))
		return
	}
	p.i++
}
