// Package tai64 handles external TAI64 and TAI64N labels as produced by
// libtai, daemontools and the gtclock tools.
package tai64

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/karasz/glibtai"
)

// Base is the label of 1970-01-01 00:00:00 TAI.
const Base = uint64(1) << 62

// UnixBase is the label of the first second of the Unix epoch,
// when TAI was 10 seconds ahead of UTC.
const UnixBase = Base + 10

// Length is the size of a packed TAI64 label.
const Length = 8

// NLength is the size of a packed TAI64N label.
const NLength = 12

// NALength is the size of a packed TAI64NA label.
const NALength = 16

// ErrLabel is returned for malformed labels.
var ErrLabel = errors.New("tai64: malformed label")

// Label is a TAI64N label: a TAI64 second and a nanosecond within it.
type Label struct {
	Sec  uint64
	Nano uint32
}

// Pack returns the 12 byte big-endian form of l.
func Pack(l Label) []byte {
	b := make([]byte, NLength)
	binary.BigEndian.PutUint64(b, l.Sec)
	binary.BigEndian.PutUint32(b[Length:], l.Nano)
	return b
}

// Unpack reads a TAI64 (8 byte), TAI64N (12 byte) or TAI64NA (16 byte)
// label. Attoseconds are dropped.
func Unpack(b []byte) (Label, error) {
	switch len(b) {
	case Length:
		return Label{Sec: binary.BigEndian.Uint64(b)}, nil
	case NALength:
		if atto := binary.BigEndian.Uint32(b[NLength:]); atto > 999_999_999 {
			return Label{}, fmt.Errorf("%w: attosecond field %d", ErrLabel, atto)
		}
		return Unpack(b[:NLength])
	case NLength:
		l := Label{
			Sec:  binary.BigEndian.Uint64(b),
			Nano: binary.BigEndian.Uint32(b[Length:]),
		}
		if l.Nano > 999_999_999 {
			return Label{}, fmt.Errorf("%w: nanosecond field %d", ErrLabel, l.Nano)
		}
		return l, nil
	default:
		return Label{}, fmt.Errorf("%w: %d bytes", ErrLabel, len(b))
	}
}

// FromTAIN converts a glibtai timestamp.
func FromTAIN(t glibtai.TAIN) Label {
	l, _ := Unpack(glibtai.TAINPack(t))
	return l
}

// TAIN converts l to a glibtai timestamp.
func (l Label) TAIN() glibtai.TAIN {
	return glibtai.TAINUnpack(Pack(l))
}

// String returns the external form, "@" followed by 24 hex digits.
func (l Label) String() string {
	return l.TAIN().String()
}

// Parse reads "@" followed by 16 (TAI64) or 24 (TAI64N) hex digits.
func Parse(s string) (Label, error) {
	switch len(s) {
	case 1 + 2*Length:
		t, err := glibtai.TAIfromString(s)
		if err != nil {
			return Label{}, fmt.Errorf("%w: %v", ErrLabel, err)
		}
		return Unpack(glibtai.TAIPack(t))
	case 1 + 2*NLength:
		t, err := glibtai.TAINfromString(s)
		if err != nil {
			return Label{}, fmt.Errorf("%w: %v", ErrLabel, err)
		}
		return Unpack(glibtai.TAINPack(t))
	default:
		return Label{}, fmt.Errorf("%w: %q", ErrLabel, s)
	}
}
