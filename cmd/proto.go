package cmd

import (
	"encoding/binary"
	"errors"

	"github.com/karasz/gtscale/tai64"
	"github.com/karasz/gtscale/timescale"
)

// Conversion protocol, served by gtscaled over UDP.
//
// Requests:
//
//	"qutc" + TAI64N label (12 bytes)                 TAI to UTC
//	"qtai" + MJD (8 bytes) + nanosecond of day (8)   UTC to TAI
//
// Every answer is 36 bytes:
//
//	Byte  0:     'r', or 'x' if the request could not be converted
//	Bytes 1-3:   copied from the request
//	Bytes 4-15:  TAI64N label
//	Bytes 16-23: Modified Julian Day, big-endian two's complement
//	Bytes 24-31: nanosecond of day, big-endian
//	Bytes 32-35: TAI-UTC in seconds on that day, big-endian two's complement
//
// A failed answer carries zeros after the tag. Requests with another tag
// or too few bytes are dropped.
const (
	tagLength      = 4
	utcQueryLength = tagLength + tai64.NLength
	taiQueryLength = tagLength + 16
	answerLength   = 36
)

var (
	utcQueryTag = []byte("qutc")
	taiQueryTag = []byte("qtai")
)

var errQuery = errors.New("malformed query")

// conversion is the decoded body of an answer.
type conversion struct {
	label     tai64.Label
	day       int64
	nanoOfDay int64
	offset    int32
}

func utcQuery(l tai64.Label) []byte {
	return append(append([]byte(nil), utcQueryTag...), tai64.Pack(l)...)
}

func taiQuery(day, nanoOfDay int64) []byte {
	b := make([]byte, taiQueryLength)
	copy(b, taiQueryTag)
	binary.BigEndian.PutUint64(b[4:], uint64(day))
	binary.BigEndian.PutUint64(b[12:], uint64(nanoOfDay))
	return b
}

func encodeAnswer(tag []byte, c conversion) []byte {
	b := make([]byte, answerLength)
	copy(b, tag[:tagLength])
	b[0] = 'r'
	copy(b[4:16], tai64.Pack(c.label))
	binary.BigEndian.PutUint64(b[16:], uint64(c.day))
	binary.BigEndian.PutUint64(b[24:], uint64(c.nanoOfDay))
	binary.BigEndian.PutUint32(b[32:], uint32(c.offset))
	return b
}

func failedAnswer(tag []byte) []byte {
	b := make([]byte, answerLength)
	copy(b, tag[:tagLength])
	b[0] = 'x'
	return b
}

func decodeAnswer(b []byte) (conversion, error) {
	if len(b) != answerLength {
		return conversion{}, errQuery
	}
	if b[0] == 'x' {
		return conversion{}, errors.New("server could not convert the query")
	}
	if b[0] != 'r' {
		return conversion{}, errQuery
	}
	l, err := tai64.Unpack(b[4:16])
	if err != nil {
		return conversion{}, err
	}
	return conversion{
		label:     l,
		day:       int64(binary.BigEndian.Uint64(b[16:])),
		nanoOfDay: int64(binary.BigEndian.Uint64(b[24:])),
		offset:    int32(binary.BigEndian.Uint32(b[32:])),
	}, nil
}

// answer converts one query on the current leap second table. It returns
// nil for requests that are not queries at all.
func answer(conv *timescale.Converter, req []byte) []byte {
	return answerFrom(conv.Registry().Snapshot(), req)
}

// answerFrom converts one query reading every value from snap.
func answerFrom(snap *timescale.Snapshot, req []byte) []byte {
	if len(req) < tagLength {
		return nil
	}
	tag := req[:tagLength]
	var (
		c   conversion
		err error
	)
	switch {
	case string(tag) == string(utcQueryTag) && len(req) >= utcQueryLength:
		c, err = convertLabel(snap, req[tagLength:utcQueryLength])
	case string(tag) == string(taiQueryTag) && len(req) >= taiQueryLength:
		c, err = convertUTC(snap,
			int64(binary.BigEndian.Uint64(req[4:])),
			int64(binary.BigEndian.Uint64(req[12:])))
	default:
		return nil
	}
	if err != nil {
		return failedAnswer(tag)
	}
	return encodeAnswer(tag, c)
}

func convertLabel(snap *timescale.Snapshot, b []byte) (conversion, error) {
	l, err := tai64.Unpack(b)
	if err != nil {
		return conversion{}, err
	}
	t, err := timescale.TAIFromLabel(l)
	if err != nil {
		return conversion{}, err
	}
	u, err := snap.ToUTC(t)
	if err != nil {
		return conversion{}, err
	}
	return conversion{
		label:     l,
		day:       u.Day(),
		nanoOfDay: u.NanoOfDay(),
		offset:    int32(snap.Offset(u.Day())),
	}, nil
}

func convertUTC(snap *timescale.Snapshot, day, nanoOfDay int64) (conversion, error) {
	u, err := snap.UTC(day, nanoOfDay)
	if err != nil {
		return conversion{}, err
	}
	t, err := snap.ToTAI(u)
	if err != nil {
		return conversion{}, err
	}
	l, err := t.Label()
	if err != nil {
		return conversion{}, err
	}
	return conversion{
		label:     l,
		day:       day,
		nanoOfDay: nanoOfDay,
		offset:    int32(snap.Offset(day)),
	}, nil
}
