package timescale

import (
	"fmt"
	"time"
)

// TT runs a constant 32.184 s ahead of TAI.
const ttOffset = 32_184 * time.Millisecond

// GPS time starts at 1980-01-06T00:00:00 UTC, when TAI-UTC was 19 s,
// and has since run a constant 19 s behind TAI.
const gpsEpoch = (44244-mjdTAIEpoch)*secondsPerDay + 19

// TTInstant is an instant on Terrestrial Time, counted in seconds from
// 1958-01-01T00:00:00(TT).
type TTInstant struct {
	t TAIInstant
}

// TTFromTAI converts an atomic instant to Terrestrial Time.
func TTFromTAI(t TAIInstant) (TTInstant, error) {
	v, err := t.Plus(ttOffset)
	return TTInstant{t: v}, err
}

// TAIFromTT converts Terrestrial Time to the atomic scale.
func TAIFromTT(tt TTInstant) (TAIInstant, error) {
	return tt.t.Minus(ttOffset)
}

// TTOf returns the TT instant seconds + nanoAdjustment after its epoch.
func TTOf(seconds, nanoAdjustment int64) (TTInstant, error) {
	v, err := TAIOf(seconds, nanoAdjustment)
	return TTInstant{t: v}, err
}

func (tt TTInstant) Seconds() int64 { return tt.t.seconds }
func (tt TTInstant) Nanos() int32   { return tt.t.nanos }

func (tt TTInstant) String() string {
	return fmt.Sprintf("%d.%09ds(TT)", tt.t.seconds, tt.t.nanos)
}

// GPSInstant is an instant on GPS time, counted in seconds from the GPS
// epoch.
type GPSInstant struct {
	t TAIInstant
}

// GPSFromTAI converts an atomic instant to GPS time.
func GPSFromTAI(t TAIInstant) (GPSInstant, error) {
	v, err := t.PlusSeconds(-gpsEpoch, 0)
	return GPSInstant{t: v}, err
}

// TAIFromGPS converts GPS time to the atomic scale.
func TAIFromGPS(g GPSInstant) (TAIInstant, error) {
	return g.t.PlusSeconds(gpsEpoch, 0)
}

// GPSOf returns the GPS instant seconds + nanoAdjustment after its epoch.
func GPSOf(seconds, nanoAdjustment int64) (GPSInstant, error) {
	v, err := TAIOf(seconds, nanoAdjustment)
	return GPSInstant{t: v}, err
}

func (g GPSInstant) Seconds() int64 { return g.t.seconds }
func (g GPSInstant) Nanos() int32   { return g.t.nanos }

// Week returns the GPS week number and the seconds into that week.
func (g GPSInstant) Week() (week int64, seconds int64) {
	const secondsPerWeek = 7 * secondsPerDay
	return floorDiv(g.t.seconds, secondsPerWeek), floorMod(g.t.seconds, secondsPerWeek)
}

func (g GPSInstant) String() string {
	return fmt.Sprintf("%d.%09ds(GPS)", g.t.seconds, g.t.nanos)
}
