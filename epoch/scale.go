package epoch

import (
	"errors"
	"fmt"
	"strings"
)

// TimeScale identifies the time scale an Epoch is expressed in.
type TimeScale int

const (
	// TAI is International Atomic Time.
	TAI TimeScale = iota
	// TT is Terrestrial Time (TAI + 32.184 s).
	TT
	// TDB is Barycentric Dynamical Time, the scale ephemeris kernels
	// record coverage in.
	TDB
	// ET is Ephemeris Time, treated as an alias of TDB.
	ET
	// UTC is Coordinated Universal Time. Conversions require a
	// leap-second table.
	UTC
)

// ErrUnsupportedScale is returned when no conversion path is defined
// for the requested time scale.
var ErrUnsupportedScale = errors.New("unsupported time scale")

// ErrLeapTableRange is returned when a UTC conversion falls outside the
// coverage of the loaded leap-second table and the policy is
// LeapPolicyError.
var ErrLeapTableRange = errors.New("epoch outside leap-second table range")

var scaleNames = map[TimeScale]string{
	TAI: "TAI",
	TT:  "TT",
	TDB: "TDB",
	ET:  "ET",
	UTC: "UTC",
}

// String returns the conventional abbreviation for the scale.
func (s TimeScale) String() string {
	if name, ok := scaleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TimeScale(%d)", int(s))
}

// Valid reports whether s is one of the supported scales.
func (s TimeScale) Valid() bool {
	_, ok := scaleNames[s]
	return ok
}

// ParseScale parses a scale abbreviation such as "TDB" or "utc".
func ParseScale(name string) (TimeScale, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range scaleNames {
		if n == upper {
			return s, nil
		}
	}
	return TAI, fmt.Errorf("parsing time scale %q: %w", name, ErrUnsupportedScale)
}
