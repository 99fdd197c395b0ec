package epoch

import (
	"fmt"
	"math"
)

// Gregorian is a broken-down calendar representation of an epoch in
// some time scale.
type Gregorian struct {
	Year, Month, Day   int
	Hour, Minute       int
	Second             float64 // [0, 61); 60.xx during an inserted leap second
}

func (g Gregorian) iso() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%012.9f",
		g.Year, g.Month, g.Day, g.Hour, g.Minute, g.Second)
}

// daysFromCivil returns the day count of y-m-d relative to 2000-01-01
// in the proleptic Gregorian calendar.
func daysFromCivil(y, m, d int) int64 {
	if m <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400 // [0, 399]
	mp := (m + 9) % 12 // March = 0
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	// 730425 is the day count from the era origin to 2000-01-01.
	return int64(era)*146097 + int64(doe) - 730425
}

// civilFromDays inverts daysFromCivil.
func civilFromDays(days int64) (y, m, d int) {
	z := days + 730425
	era := z / 146097
	if z < 0 && z%146097 != 0 {
		era--
	}
	doe := z - era*146097 // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	yr := int(yoe) + int(era)*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*int(doy) + 2) / 153
	d = int(doy) - (153*mp+2)/5 + 1
	m = (mp+2)%12 + 1
	if m <= 2 {
		yr++
	}
	return yr, m, d
}

// naiveLabelSeconds returns calendar seconds from the scale's
// 2000-01-01T12:00:00 label to the given broken-down label, with no
// leap-second awareness.
func naiveLabelSeconds(y, mo, d, h, mi int, sec float64) float64 {
	days := daysFromCivil(y, mo, d)
	tod := float64(h)*3600 + float64(mi)*60 + sec
	return float64(days)*SecondsPerDay + tod - 43200
}

// FromGregorian builds an Epoch from a broken-down calendar label in
// the given scale, using the builtin leap-second table for UTC.
func FromGregorian(scale TimeScale, y, mo, d, h, mi int, sec float64) (Epoch, error) {
	return FromGregorianWith(scale, y, mo, d, h, mi, sec, BuiltinLeapTable(), LeapPolicyError)
}

// FromGregorianWith is FromGregorian with an explicit leap-second table
// and policy.
func FromGregorianWith(scale TimeScale, y, mo, d, h, mi int, sec float64, lt *LeapTable, policy LeapPolicy) (Epoch, error) {
	label := naiveLabelSeconds(y, mo, d, h, mi, sec)
	switch scale {
	case TAI:
		return mkEpoch(scale, 0, label), nil
	case TT:
		return mkEpoch(scale, 0, label-ttMinusTAI), nil
	case TDB, ET:
		guess := label - ttMinusTAI
		for i := 0; i < 3; i++ {
			guess = label - ttMinusTAI - tdbMinusTT(guess)
		}
		return mkEpoch(scale, 0, guess), nil
	case UTC:
		dat, err := lt.deltaATForUTCLabel(utcMJD(y, mo, d), policy)
		if err != nil {
			return Epoch{}, err
		}
		return mkEpoch(scale, 0, label+dat), nil
	default:
		return Epoch{}, fmt.Errorf("calendar in scale %d: %w", int(scale), ErrUnsupportedScale)
	}
}

// FromJulianDate builds an Epoch from a Julian Date in the given scale.
func FromJulianDate(scale TimeScale, jd float64) (Epoch, error) {
	label := (jd - J2000JD) * SecondsPerDay
	day := math.Floor(label/SecondsPerDay + 0.5)
	tod := label - (day-0.5)*SecondsPerDay // seconds past midnight
	y, mo, d := civilFromDays(int64(day))
	h := int(tod / 3600)
	mi := int(tod/60) - h*60
	sec := tod - float64(h)*3600 - float64(mi)*60
	return FromGregorian(scale, y, mo, d, h, mi, sec)
}

// utcMJD returns the Modified Julian Day number of a calendar date.
func utcMJD(y, mo, d int) float64 {
	return float64(daysFromCivil(y, mo, d)) + J2000MJD
}

// Gregorian breaks the epoch down into a calendar label in the given
// scale, using the builtin leap-second table for UTC. During an
// inserted leap second the UTC label reads second 60.
func (e Epoch) Gregorian(s TimeScale) (Gregorian, error) {
	return e.GregorianWith(s, BuiltinLeapTable(), LeapPolicyError)
}

// GregorianWith is Gregorian with an explicit leap-second table.
func (e Epoch) GregorianWith(s TimeScale, lt *LeapTable, policy LeapPolicy) (Gregorian, error) {
	if s == UTC {
		if g, ok := lt.leapSecondLabel(e.TAISecondsJ2000()); ok {
			return g, nil
		}
	}
	label, err := e.labelSecondsJ2000(s, lt, policy)
	if err != nil {
		return Gregorian{}, err
	}
	return splitLabel(label), nil
}

func splitLabel(label float64) Gregorian {
	// Shift from the noon reference to midnight-based days.
	fromMidnight := label + 43200
	day := math.Floor(fromMidnight / SecondsPerDay)
	tod := fromMidnight - day*SecondsPerDay
	if tod < 0 {
		tod = 0
	}
	y, mo, d := civilFromDays(int64(day))
	h := int(tod / 3600)
	if h > 23 {
		h = 23
	}
	mi := int((tod - float64(h)*3600) / 60)
	if mi > 59 {
		mi = 59
	}
	sec := tod - float64(h)*3600 - float64(mi)*60
	return Gregorian{Year: y, Month: mo, Day: d, Hour: h, Minute: mi, Second: sec}
}
