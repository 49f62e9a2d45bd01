package timescale

import (
	"cmp"
	"fmt"
	"strconv"
	"time"

	"github.com/karasz/gtscale/tai64"
)

// labelShift is the number of seconds from 1958-01-01 to 1970-01-01 on the
// atomic scale, the distance between the TAIInstant epoch and the TAI64 base.
const labelShift = (mjdUnixEpoch - mjdTAIEpoch) * secondsPerDay

const taiSuffix = "s(ATOMIC)"

// TAIInstant is an instant on the atomic time-scale: a count of SI seconds
// since 1958-01-01T00:00:00(TAI) with no leap seconds, and a nanosecond
// within that second. The zero value is the epoch.
type TAIInstant struct {
	seconds int64
	nanos   int32
}

// TAIOf returns the instant seconds + nanoAdjustment nanoseconds after the
// epoch. Any combination denoting the same instant gives the same value.
func TAIOf(seconds, nanoAdjustment int64) (TAIInstant, error) {
	secs, err := addExact(seconds, floorDiv(nanoAdjustment, nanosPerSecond))
	if err != nil {
		return TAIInstant{}, err
	}
	return TAIInstant{seconds: secs, nanos: int32(floorMod(nanoAdjustment, nanosPerSecond))}, nil
}

// Seconds returns the whole seconds since the epoch.
func (t TAIInstant) Seconds() int64 { return t.seconds }

// Nanos returns the nanosecond within the second, in [0, 1e9).
func (t TAIInstant) Nanos() int32 { return t.nanos }

// PlusSeconds adds an exact amount of atomic seconds and nanoseconds.
func (t TAIInstant) PlusSeconds(seconds, nanos int64) (TAIInstant, error) {
	if seconds == 0 && nanos == 0 {
		return t, nil
	}
	secs, err := addExact(t.seconds, seconds)
	if err != nil {
		return TAIInstant{}, err
	}
	secs, err = addExact(secs, nanos/nanosPerSecond)
	if err != nil {
		return TAIInstant{}, err
	}
	return TAIOf(secs, int64(t.nanos)+nanos%nanosPerSecond)
}

// Plus returns t+d. The duration is counted on the atomic scale.
func (t TAIInstant) Plus(d time.Duration) (TAIInstant, error) {
	return t.PlusSeconds(0, int64(d))
}

// Minus returns t-d.
func (t TAIInstant) Minus(d time.Duration) (TAIInstant, error) {
	n := int64(d)
	return t.PlusSeconds(-(n / nanosPerSecond), -(n % nanosPerSecond))
}

// SecondsUntil returns the exact span from t to u as whole seconds and a
// nanosecond part in [0, 1e9).
func (t TAIInstant) SecondsUntil(u TAIInstant) (int64, int32, error) {
	secs, err := subExact(u.seconds, t.seconds)
	if err != nil {
		return 0, 0, err
	}
	nanos := u.nanos - t.nanos
	if nanos < 0 {
		if secs, err = subExact(secs, 1); err != nil {
			return 0, 0, err
		}
		nanos += nanosPerSecond
	}
	return secs, nanos, nil
}

// Until returns u-t, or ErrOverflow if it does not fit a time.Duration.
func (t TAIInstant) Until(u TAIInstant) (time.Duration, error) {
	secs, err := subExact(u.seconds, t.seconds)
	if err != nil {
		return 0, err
	}
	n, err := mulExact(secs, nanosPerSecond)
	if err != nil {
		return 0, err
	}
	n, err = addExact(n, int64(u.nanos-t.nanos))
	if err != nil {
		return 0, err
	}
	return time.Duration(n), nil
}

// Compare returns -1, 0 or +1 as t is before, equal to or after u.
func (t TAIInstant) Compare(u TAIInstant) int {
	if c := cmp.Compare(t.seconds, u.seconds); c != 0 {
		return c
	}
	return cmp.Compare(t.nanos, u.nanos)
}

// Before reports whether t is before u.
func (t TAIInstant) Before(u TAIInstant) bool { return t.Compare(u) < 0 }

// After reports whether t is after u.
func (t TAIInstant) After(u TAIInstant) bool { return t.Compare(u) > 0 }

// Equal reports whether t and u are the same instant.
func (t TAIInstant) Equal(u TAIInstant) bool { return t == u }

// Label returns the TAI64N label of t.
func (t TAIInstant) Label() (tai64.Label, error) {
	s, err := subExact(t.seconds, labelShift)
	if err != nil || s < -(1<<62) || s >= 1<<62 {
		return tai64.Label{}, ErrOverflow
	}
	return tai64.Label{Sec: tai64.Base + uint64(s), Nano: uint32(t.nanos)}, nil
}

// TAIFromLabel returns the instant named by a TAI64N label. Labels at or
// above 2^63 are reserved and rejected.
func TAIFromLabel(l tai64.Label) (TAIInstant, error) {
	if l.Sec >= 1<<63 || l.Nano >= nanosPerSecond {
		return TAIInstant{}, ErrOverflow
	}
	return TAIOf(int64(l.Sec-tai64.Base)+labelShift, int64(l.Nano))
}

// String returns the canonical text, e.g. "-1.123456789s(ATOMIC)".
func (t TAIInstant) String() string {
	return fmt.Sprintf("%d.%09d%s", t.seconds, t.nanos, taiSuffix)
}

// ParseTAI parses the canonical text produced by String. Any other
// spelling of the same instant, such as leading zeros or "-0", is rejected.
func ParseTAI(s string) (TAIInstant, error) {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return TAIInstant{}, parseErr(s, i, "expected seconds")
	}
	if s[start] == '0' && i-start > 1 {
		return TAIInstant{}, parseErr(s, start, "leading zero in seconds")
	}
	if s[start] == '0' && start > 0 {
		return TAIInstant{}, parseErr(s, 0, "negative zero seconds")
	}
	secs, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return TAIInstant{}, &ParseError{Input: s, Pos: 0, Msg: "seconds out of range", Err: ErrOverflow}
	}
	if i >= len(s) || s[i] != '.' {
		return TAIInstant{}, parseErr(s, i, "expected '.'")
	}
	i++
	var nanos int64
	for k := 0; k < 9; k++ {
		if i >= len(s) || !isDigit(s[i]) {
			return TAIInstant{}, parseErr(s, i, "expected nine fraction digits")
		}
		nanos = nanos*10 + int64(s[i]-'0')
		i++
	}
	if s[i:] != taiSuffix {
		return TAIInstant{}, parseErr(s, i, "expected "+strconv.Quote(taiSuffix))
	}
	return TAIInstant{seconds: secs, nanos: int32(nanos)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t TAIInstant) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TAIInstant) UnmarshalText(b []byte) error {
	v, err := ParseTAI(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
