package timescale

// Modified Julian Days of the scale epochs.
const (
	mjdTAIEpoch  = 36204 // 1958-01-01
	mjdUnixEpoch = 40587 // 1970-01-01
)

const (
	daysPerEra = 146097 // 400 Gregorian years
	// mjdShift is the day count from 0000-03-01 to MJD 0 (1858-11-17).
	mjdShift = 678881
)

// mjdFromCivil returns the Modified Julian Day of a proleptic Gregorian
// date, or ErrOverflow if it does not fit an int64.
func mjdFromCivil(y int64, m, d int) (int64, error) {
	if m <= 2 {
		var err error
		if y, err = subExact(y, 1); err != nil {
			return 0, err
		}
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := int64((m + 9) % 12)
	doy := (153*mp+2)/5 + int64(d) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	// Split so the era product never exceeds the final result.
	if era >= 0 {
		hi, err := mulExact(era-5, daysPerEra)
		if err != nil {
			return 0, err
		}
		return addExact(hi, doe+5*daysPerEra-mjdShift)
	}
	hi, err := mulExact(era, daysPerEra)
	if err != nil {
		return 0, err
	}
	return addExact(hi, doe-mjdShift)
}

// civilFromMJD is the inverse of mjdFromCivil. It is defined for every
// int64 day.
func civilFromMJD(mjd int64) (y int64, m, d int) {
	era := floorDiv(mjd, daysPerEra)
	z := floorMod(mjd, daysPerEra) + mjdShift
	era += z / daysPerEra
	doe := z % daysPerEra
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = int(doy - (153*mp+2)/5 + 1)
	if mp < 10 {
		m = int(mp + 3)
	} else {
		m = int(mp - 9)
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

func daysInMonth(y int64, m int) int {
	switch m {
	case 2:
		if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// MJD returns the Modified Julian Day of a proleptic Gregorian date, or
// ErrOverflow for years too far out for an int64 day count.
func MJD(year int64, month, day int) (int64, error) {
	return mjdFromCivil(year, month, day)
}

// Date returns the proleptic Gregorian date of a Modified Julian Day.
func Date(mjd int64) (year int64, month, day int) {
	return civilFromMJD(mjd)
}
