package epoch

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LeapPolicy selects the behavior when a UTC conversion falls outside
// the leap-second table's coverage.
type LeapPolicy int

const (
	// LeapPolicyError propagates ErrLeapTableRange to the caller.
	LeapPolicyError LeapPolicy = iota
	// LeapPolicyClamp uses the nearest table edge's offset instead.
	LeapPolicyClamp
)

// leapEntry records one step of TAI-UTC.
type leapEntry struct {
	mjd float64 // UTC date (MJD at 00:00) the offset takes effect
	dat float64 // TAI - UTC in seconds from that date on
	tai float64 // TAI seconds past J2000 of the effectivity instant
}

// LeapTable maps between TAI and UTC. Immutable after construction and
// safe for concurrent use.
type LeapTable struct {
	entries []leapEntry // ascending by mjd
}

// builtin TAI-UTC steps, 1972 through 2017.
var builtinLeaps = [...]struct {
	mjd float64
	dat float64
}{
	{41317, 10}, // 1972-01-01
	{41499, 11}, // 1972-07-01
	{41683, 12}, // 1973-01-01
	{42048, 13}, // 1974-01-01
	{42413, 14}, // 1975-01-01
	{42778, 15}, // 1976-01-01
	{43144, 16}, // 1977-01-01
	{43509, 17}, // 1978-01-01
	{43874, 18}, // 1979-01-01
	{44239, 19}, // 1980-01-01
	{44786, 20}, // 1981-07-01
	{45151, 21}, // 1982-07-01
	{45516, 22}, // 1983-07-01
	{46247, 23}, // 1985-07-01
	{47161, 24}, // 1988-01-01
	{47892, 25}, // 1990-01-01
	{48257, 26}, // 1991-01-01
	{48804, 27}, // 1992-07-01
	{49169, 28}, // 1993-07-01
	{49534, 29}, // 1994-07-01
	{50083, 30}, // 1996-01-01
	{50630, 31}, // 1997-07-01
	{51179, 32}, // 1999-01-01
	{53736, 33}, // 2006-01-01
	{54832, 34}, // 2009-01-01
	{56109, 35}, // 2012-07-01
	{57204, 36}, // 2015-07-01
	{57754, 37}, // 2017-01-01
}

var builtinTable = newLeapTableFromSteps(builtinLeaps[:])

func newLeapTableFromSteps(steps []struct {
	mjd float64
	dat float64
}) *LeapTable {
	lt := &LeapTable{entries: make([]leapEntry, 0, len(steps))}
	for _, s := range steps {
		lt.entries = append(lt.entries, leapEntry{
			mjd: s.mjd,
			dat: s.dat,
			tai: (s.mjd-J2000MJD)*SecondsPerDay - 43200 + s.dat,
		})
	}
	sort.Slice(lt.entries, func(i, j int) bool { return lt.entries[i].mjd < lt.entries[j].mjd })
	return lt
}

// BuiltinLeapTable returns the compiled-in leap-second table
// (1972-01-01 through the 2017-01-01 step).
func BuiltinLeapTable() *LeapTable {
	return builtinTable
}

// Len returns the number of TAI-UTC steps in the table.
func (lt *LeapTable) Len() int { return len(lt.entries) }

// deltaAT returns TAI-UTC at the instant given by TAI seconds past
// J2000. Epochs predating the first table entry trigger the policy;
// epochs after the last entry use the last known offset, since a leap
// table never declares its own expiry.
func (lt *LeapTable) deltaAT(taiSec float64, policy LeapPolicy) (float64, error) {
	if len(lt.entries) == 0 {
		return 0, fmt.Errorf("empty leap-second table: %w", ErrLeapTableRange)
	}
	if taiSec < lt.entries[0].tai {
		if policy == LeapPolicyClamp {
			return lt.entries[0].dat, nil
		}
		return 0, fmt.Errorf("epoch predates first leap entry (MJD %.1f): %w",
			lt.entries[0].mjd, ErrLeapTableRange)
	}
	i := sort.Search(len(lt.entries), func(i int) bool { return lt.entries[i].tai > taiSec })
	return lt.entries[i-1].dat, nil
}

// deltaATForUTCLabel returns TAI-UTC for a UTC calendar date given as
// an MJD day number.
func (lt *LeapTable) deltaATForUTCLabel(mjd float64, policy LeapPolicy) (float64, error) {
	if len(lt.entries) == 0 {
		return 0, fmt.Errorf("empty leap-second table: %w", ErrLeapTableRange)
	}
	if mjd < lt.entries[0].mjd {
		if policy == LeapPolicyClamp {
			return lt.entries[0].dat, nil
		}
		return 0, fmt.Errorf("date MJD %.1f predates first leap entry (MJD %.1f): %w",
			mjd, lt.entries[0].mjd, ErrLeapTableRange)
	}
	i := sort.Search(len(lt.entries), func(i int) bool { return lt.entries[i].mjd > mjd })
	return lt.entries[i-1].dat, nil
}

// leapSecondLabel reports whether the instant falls inside an inserted
// leap second and, if so, returns its 23:59:60-style UTC label.
func (lt *LeapTable) leapSecondLabel(taiSec float64) (Gregorian, bool) {
	for i := 1; i < len(lt.entries); i++ {
		e := lt.entries[i]
		if taiSec >= e.tai-1 && taiSec < e.tai {
			y, mo, d := civilFromDays(int64(e.mjd-J2000MJD) - 1)
			return Gregorian{
				Year: y, Month: mo, Day: d,
				Hour: 23, Minute: 59,
				Second: 60 + (taiSec - (e.tai - 1)),
			}, true
		}
	}
	return Gregorian{}, false
}

var lskMonths = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// ParseLSK parses a NAIF text leap-second kernel (KPL/LSK). Only the
// DELTET/DELTA_AT assignment is consumed; the relativistic correction
// constants are fixed in this engine.
func ParseLSK(data []byte) (*LeapTable, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("KPL/LSK")) {
		return nil, fmt.Errorf("leap-second kernel: missing KPL/LSK marker")
	}

	// Collect the DELTA_AT assignment body across lines:
	// DELTET/DELTA_AT = ( 10, @1972-JAN-1
	//                     11, @1972-JUL-1 ... )
	var body strings.Builder
	inAssign := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !inAssign {
			idx := strings.Index(line, "DELTET/DELTA_AT")
			if idx < 0 {
				continue
			}
			eq := strings.Index(line[idx:], "=")
			if eq < 0 {
				continue
			}
			inAssign = true
			line = line[idx+eq+1:]
		}
		body.WriteString(line)
		body.WriteString(" ")
		if strings.Contains(line, ")") {
			break
		}
	}
	if !inAssign {
		return nil, fmt.Errorf("leap-second kernel: no DELTET/DELTA_AT assignment")
	}

	text := body.String()
	open := strings.Index(text, "(")
	closeIdx := strings.Index(text, ")")
	if open < 0 || closeIdx < open {
		return nil, fmt.Errorf("leap-second kernel: malformed DELTA_AT assignment")
	}
	fields := strings.FieldsFunc(text[open+1:closeIdx], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 || len(fields)%2 != 0 {
		return nil, fmt.Errorf("leap-second kernel: DELTA_AT needs offset/date pairs, got %d fields", len(fields))
	}

	steps := make([]struct {
		mjd float64
		dat float64
	}, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		dat, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("leap-second kernel: bad offset %q: %w", fields[i], err)
		}
		date := strings.TrimPrefix(fields[i+1], "@")
		parts := strings.Split(date, "-")
		if len(parts) != 3 {
			return nil, fmt.Errorf("leap-second kernel: bad date %q", fields[i+1])
		}
		y, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("leap-second kernel: bad year in %q: %w", date, err)
		}
		mo, ok := lskMonths[strings.ToUpper(parts[1])]
		if !ok {
			return nil, fmt.Errorf("leap-second kernel: bad month in %q", date)
		}
		d, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("leap-second kernel: bad day in %q: %w", date, err)
		}
		steps = append(steps, struct {
			mjd float64
			dat float64
		}{mjd: utcMJD(y, mo, d), dat: dat})
	}
	return newLeapTableFromSteps(steps), nil
}
