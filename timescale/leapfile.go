package timescale

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

//go:embed leapsecs.txt
var builtinTable []byte

// Source supplies leap second data in the text format read by
// ParseLeapSeconds.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a leap second file from disk.
type FileSource string

func (f FileSource) Name() string { return string(f) }

func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

type bytesSource struct {
	name string
	data []byte
}

func (b bytesSource) Name() string { return b.name }

func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// BytesSource serves data held in memory.
func BytesSource(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

// Builtin is the leap second table compiled into the package.
func Builtin() Source { return BytesSource("builtin", builtinTable) }

// ParseLeapSeconds reads lines of the form "1972-06-30 11": the day on
// which a leap second occurs and TAI-UTC after it. Blank lines and lines
// starting with '#' are skipped. Days must increase and the offset must
// move by exactly one second from row to row.
func ParseLeapSeconds(r io.Reader) ([]LeapSecond, error) {
	var out []LeapSecond
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bad := func(msg string) error {
			return &ParseError{Input: line, Pos: n, Line: true, Msg: msg}
		}
		f := strings.Fields(line)
		if len(f) != 2 {
			return nil, bad("expected a date and an offset")
		}
		date, err := time.Parse(time.DateOnly, f[0])
		if err != nil {
			return nil, bad("invalid date")
		}
		if strings.TrimLeft(f[1], "0123456789") != "" {
			return nil, bad("invalid offset")
		}
		offset, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, bad("invalid offset")
		}
		day, err := MJD(int64(date.Year()), int(date.Month()), date.Day())
		if err != nil {
			return nil, bad("invalid date")
		}
		e := LeapSecond{Day: day, Offset: offset}
		if k := len(out); k > 0 {
			prev := out[k-1]
			if e.Day <= prev.Day {
				return nil, bad("date is not after the previous row")
			}
			if d := e.Offset - prev.Offset; d != 1 && d != -1 {
				return nil, bad("offset must change by one second")
			}
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readSource(src Source) ([]LeapSecond, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	entries, err := ParseLeapSeconds(rc)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidTable)
	}
	entries = anchored(entries)
	if _, err := newSnapshot(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// anchored prepends a fallback-offset row when a table starts at its first
// leap second, so that second is reported as an adjustment.
func anchored(entries []LeapSecond) []LeapSecond {
	if len(entries) == 0 || entries[0].Offset == fallbackOffset {
		return entries
	}
	first := LeapSecond{Day: entries[0].Day - 1, Offset: fallbackOffset}
	return append([]LeapSecond{first}, entries...)
}

// LoadRegistry reads every source and builds a registry from the one
// whose newest leap second is the most recent. Unreadable or malformed
// sources are logged and skipped; if none is usable the 1972 fallback
// table is used.
func LoadRegistry(sources []Source, opts ...Option) (*Registry, error) {
	probe := &Registry{log: zap.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}
	log := probe.log

	var best []LeapSecond
	var bestName string
	for _, src := range sources {
		entries, err := readSource(src)
		if err != nil {
			log.Warn("leap second source skipped", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		if best == nil || entries[len(entries)-1].Day > best[len(best)-1].Day {
			best, bestName = entries, src.Name()
		}
	}
	if best == nil {
		log.Info("no leap second source usable, using fallback table")
	} else {
		log.Info("leap second table loaded",
			zap.String("source", bestName),
			zap.Int("rows", len(best)),
			zap.Int64("latest", best[len(best)-1].Day))
	}
	return NewRegistry(best, opts...)
}

var (
	system     atomic.Pointer[Registry]
	loadSystem = sync.OnceValue(func() *Registry {
		r, err := LoadRegistry([]Source{Builtin()})
		if err != nil {
			r, _ = NewRegistry(nil)
		}
		return r
	})
)

// System returns the process-wide registry, loading the built-in table
// on first use unless SetSystem was called.
func System() *Registry {
	if r := system.Load(); r != nil {
		return r
	}
	system.CompareAndSwap(nil, loadSystem())
	return system.Load()
}

// SetSystem replaces the process-wide registry.
func SetSystem(r *Registry) { system.Store(r) }

// RegisterLeapSecond registers a leap second with the System registry.
func RegisterLeapSecond(day int64, adjustment int) error {
	return System().Register(day, adjustment)
}
