package timescale

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow is returned when a result cannot be represented.
	ErrOverflow = errors.New("timescale: arithmetic overflow")
	// ErrRange is returned when a nano-of-day is outside the range allowed
	// by that day's leap second adjustment.
	ErrRange = errors.New("timescale: value out of range")
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("timescale: parse error")
	// ErrConflict is returned when a leap second registration contradicts
	// the table.
	ErrConflict = errors.New("timescale: leap second conflicts with table")
	// ErrConcurrentModification is returned when another registration
	// replaced the table first. The call may be retried.
	ErrConcurrentModification = errors.New("timescale: leap second table modified concurrently")
	// ErrInvalidAdjustment is returned for adjustments other than -1 and +1.
	ErrInvalidAdjustment = errors.New("timescale: leap second adjustment must be -1 or +1")
)

// ParseError describes text that could not be parsed.
// Pos is a byte offset into Input, or a 1-based line number when Line is set.
type ParseError struct {
	Input string
	Pos   int
	Line  bool
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	where := "position"
	if e.Line {
		where = "line"
	}
	return fmt.Sprintf("timescale: cannot parse %q at %s %d: %s", e.Input, where, e.Pos, e.Msg)
}

// Is reports ErrParse, and the wrapped error if any.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(input string, pos int, msg string) error {
	return &ParseError{Input: input, Pos: pos, Msg: msg}
}
