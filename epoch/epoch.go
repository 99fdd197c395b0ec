// Package epoch provides a high-precision instant type and conversions
// between the astronomical time scales (TAI, TT, TDB, UTC).
//
// An Epoch is stored as a split count of TAI seconds since the J2000
// reference instant (2000-01-01T12:00:00 TAI): a whole int64 part plus
// a fractional float64 part kept in [0, 1). The split representation
// avoids the cancellation a single float64 suffers over centuries-scale
// offsets and keeps arithmetic exact to well below a nanosecond.
package epoch

import (
	"fmt"
	"math"
)

// SecondsPerDay is the number of SI seconds in one day.
const SecondsPerDay = 86400.0

// J2000JD is the Julian Date of the J2000 reference instant.
const J2000JD = 2451545.0

// J2000MJD is the Modified Julian Date of 2000-01-01T00:00:00.
const J2000MJD = 51544.0

// ttMinusTAI is the fixed offset TT - TAI in seconds.
const ttMinusTAI = 32.184

// Duration is a signed span of time with the same split representation
// as Epoch. The fractional part is always normalized into [0, 1), so
// -0.5 s is stored as {sec: -1, frac: 0.5}.
type Duration struct {
	sec  int64
	frac float64
}

// Seconds builds a Duration from a floating-point second count.
func Seconds(s float64) Duration {
	return mkDuration(0, s)
}

// Days builds a Duration from a floating-point day count.
func Days(d float64) Duration {
	whole, fracDay := math.Modf(d)
	return mkDuration(int64(whole)*86400, fracDay*SecondsPerDay)
}

func mkDuration(sec int64, frac float64) Duration {
	floor := math.Floor(frac)
	sec += int64(floor)
	frac -= floor
	// Guard against frac landing exactly on 1.0 after rounding.
	if frac >= 1 {
		sec++
		frac--
	}
	return Duration{sec: sec, frac: frac}
}

// AsSeconds returns the duration as a float64 second count. Precision
// is limited to float64 for large spans.
func (d Duration) AsSeconds() float64 {
	return float64(d.sec) + d.frac
}

// AsDays returns the duration as a float64 day count.
func (d Duration) AsDays() float64 {
	return (float64(d.sec) + d.frac) / SecondsPerDay
}

// Neg returns -d.
func (d Duration) Neg() Duration {
	return mkDuration(-d.sec, -d.frac)
}

// Add returns d + o.
func (d Duration) Add(o Duration) Duration {
	return mkDuration(d.sec+o.sec, d.frac+o.frac)
}

// Abs returns the magnitude of d.
func (d Duration) Abs() Duration {
	if d.sec < 0 || (d.sec == 0 && d.frac < 0) {
		return d.Neg()
	}
	return d
}

// IsNegative reports whether d is strictly less than zero.
func (d Duration) IsNegative() bool {
	return d.sec < 0
}

// Epoch is an instant in time, expressed in a particular TimeScale.
// The zero value is the J2000 reference instant in TAI.
//
// Epochs are immutable; all arithmetic returns new values. The instant
// itself is scale-independent: converting between scales relabels the
// epoch without moving it, so round trips are exact.
type Epoch struct {
	scale TimeScale
	sec   int64   // whole TAI seconds since J2000
	frac  float64 // fractional TAI second in [0, 1)
}

func mkEpoch(scale TimeScale, sec int64, frac float64) Epoch {
	d := mkDuration(sec, frac)
	return Epoch{scale: scale, sec: d.sec, frac: d.frac}
}

// FromTAISecondsJ2000 builds an Epoch from TAI seconds past J2000.
func FromTAISecondsJ2000(s float64) Epoch {
	return mkEpoch(TAI, 0, s)
}

// FromTDBSecondsJ2000 builds an Epoch from TDB seconds past J2000, the
// native time argument of ephemeris kernels.
func FromTDBSecondsJ2000(s float64) Epoch {
	// TDB label -> TAI count: subtract the TT offset and the periodic
	// TDB-TT term. The term depends on the instant itself, so iterate;
	// it is < 2 ms with a tiny derivative and converges immediately.
	guess := s - ttMinusTAI
	for i := 0; i < 3; i++ {
		guess = s - ttMinusTAI - tdbMinusTT(guess)
	}
	return mkEpoch(TDB, 0, guess)
}

// Scale returns the time scale this epoch is expressed in.
func (e Epoch) Scale() TimeScale { return e.scale }

// TAISecondsJ2000 returns TAI seconds past J2000 as a single float64.
func (e Epoch) TAISecondsJ2000() float64 {
	return float64(e.sec) + e.frac
}

// TDBSecondsJ2000 returns TDB seconds past J2000, the argument expected
// by kernel segment evaluation.
func (e Epoch) TDBSecondsJ2000() float64 {
	tai := e.TAISecondsJ2000()
	return tai + ttMinusTAI + tdbMinusTT(tai)
}

// Add returns the epoch advanced by d. The scale label is preserved.
func (e Epoch) Add(d Duration) Epoch {
	return mkEpoch(e.scale, e.sec+d.sec, e.frac+d.frac)
}

// Sub returns the epoch moved back by d.
func (e Epoch) Sub(d Duration) Epoch {
	return e.Add(d.Neg())
}

// DurationSince returns the signed span e - o. Scale labels do not
// matter: both epochs identify absolute instants.
func (e Epoch) DurationSince(o Epoch) Duration {
	return mkDuration(e.sec-o.sec, e.frac-o.frac)
}

// Equal reports whether two epochs identify the same instant,
// regardless of scale label.
func (e Epoch) Equal(o Epoch) bool {
	return e.sec == o.sec && e.frac == o.frac
}

// Before reports whether e is strictly earlier than o.
func (e Epoch) Before(o Epoch) bool {
	if e.sec != o.sec {
		return e.sec < o.sec
	}
	return e.frac < o.frac
}

// After reports whether e is strictly later than o.
func (e Epoch) After(o Epoch) bool {
	return o.Before(e)
}

// ToScale relabels the epoch in the target scale using the builtin
// leap-second table for UTC. The instant is unchanged, which makes
// scale round trips exact.
func (e Epoch) ToScale(s TimeScale) (Epoch, error) {
	return e.ToScaleWith(s, BuiltinLeapTable(), LeapPolicyError)
}

// ToScaleWith relabels the epoch in the target scale using an explicit
// leap-second table and out-of-range policy for UTC.
func (e Epoch) ToScaleWith(s TimeScale, lt *LeapTable, policy LeapPolicy) (Epoch, error) {
	if !s.Valid() {
		return Epoch{}, fmt.Errorf("converting to scale %d: %w", int(s), ErrUnsupportedScale)
	}
	if s == UTC {
		// Validate that the table can express this instant.
		if _, err := lt.deltaAT(e.TAISecondsJ2000(), policy); err != nil {
			return Epoch{}, err
		}
	}
	out := e
	out.scale = s
	return out, nil
}

// JulianDate returns the Julian Date of the epoch expressed in the
// given scale, using the builtin leap-second table for UTC.
func (e Epoch) JulianDate(s TimeScale) (float64, error) {
	label, err := e.labelSecondsJ2000(s, BuiltinLeapTable(), LeapPolicyError)
	if err != nil {
		return 0, err
	}
	return J2000JD + label/SecondsPerDay, nil
}

// labelSecondsJ2000 returns "clock-reading" seconds since the
// 2000-01-01T12:00:00 label of scale s.
func (e Epoch) labelSecondsJ2000(s TimeScale, lt *LeapTable, policy LeapPolicy) (float64, error) {
	tai := e.TAISecondsJ2000()
	switch s {
	case TAI:
		return tai, nil
	case TT:
		return tai + ttMinusTAI, nil
	case TDB, ET:
		return tai + ttMinusTAI + tdbMinusTT(tai), nil
	case UTC:
		dat, err := lt.deltaAT(tai, policy)
		if err != nil {
			return 0, err
		}
		return tai - dat, nil
	default:
		return 0, fmt.Errorf("labeling in scale %d: %w", int(s), ErrUnsupportedScale)
	}
}

// String formats the epoch as an ISO calendar string in its own scale.
// UTC epochs outside the builtin leap table fall back to TAI labeling.
func (e Epoch) String() string {
	g, err := e.Gregorian(e.scale)
	if err != nil {
		g, _ = e.Gregorian(TAI)
		return fmt.Sprintf("%s TAI (~%s)", g.iso(), e.scale)
	}
	return fmt.Sprintf("%s %s", g.iso(), e.scale)
}

// tdbMinusTT evaluates the dominant periodic term of TDB-TT in seconds
// at the given TAI seconds past J2000. The omitted terms are below
// 30 microseconds; the relabeling round trip remains exact because the
// same term is applied in both directions.
func tdbMinusTT(taiSec float64) float64 {
	// Mean anomaly of the Earth-Moon barycenter heliocentric orbit.
	g := 6.239996 + 1.99096871e-7*taiSec
	return 1.657e-3 * math.Sin(g+1.671e-2*math.Sin(g))
}
