package epoch

import (
	"errors"
	"math"
	"testing"
)

func TestFromGregorianTAIReference(t *testing.T) {
	e, err := FromGregorian(TAI, 2000, 1, 1, 12, 0, 0)
	if err != nil {
		t.Fatalf("FromGregorian failed: %v", err)
	}
	if got := e.TAISecondsJ2000(); got != 0 {
		t.Errorf("J2000 TAI seconds: got %v, want 0", got)
	}
}

func TestGregorianRoundTrip(t *testing.T) {
	cases := []struct {
		name            string
		scale           TimeScale
		y, mo, d, h, mi int
		sec             float64
	}{
		{"tai midnight", TAI, 2023, 6, 1, 0, 0, 0},
		{"tt afternoon", TT, 2010, 12, 31, 15, 30, 12.25},
		{"tdb morning", TDB, 2030, 1, 1, 6, 0, 59.999},
		{"utc modern", UTC, 2023, 6, 1, 0, 0, 0},
		{"utc pre-2000", UTC, 1987, 3, 15, 23, 59, 59},
		{"leap day", TAI, 2024, 2, 29, 12, 0, 0},
		{"far future", TDB, 2150, 7, 4, 1, 2, 3.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := FromGregorian(tc.scale, tc.y, tc.mo, tc.d, tc.h, tc.mi, tc.sec)
			if err != nil {
				t.Fatalf("FromGregorian failed: %v", err)
			}
			g, err := e.Gregorian(tc.scale)
			if err != nil {
				t.Fatalf("Gregorian failed: %v", err)
			}
			if g.Year != tc.y || g.Month != tc.mo || g.Day != tc.d || g.Hour != tc.h || g.Minute != tc.mi {
				t.Errorf("calendar fields: got %+v, want %d-%d-%d %d:%d", g, tc.y, tc.mo, tc.d, tc.h, tc.mi)
			}
			if math.Abs(g.Second-tc.sec) > 1e-6 {
				t.Errorf("seconds: got %.9f, want %.9f", g.Second, tc.sec)
			}
		})
	}
}

func TestScaleRoundTrip(t *testing.T) {
	e, err := FromGregorian(TAI, 2023, 6, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("FromGregorian failed: %v", err)
	}
	pairs := [][2]TimeScale{
		{TAI, TT}, {TAI, TDB}, {TDB, TAI}, {TT, UTC}, {TDB, UTC}, {TAI, ET},
	}
	for _, p := range pairs {
		a, err := e.ToScale(p[0])
		if err != nil {
			t.Fatalf("ToScale(%v) failed: %v", p[0], err)
		}
		b, err := a.ToScale(p[1])
		if err != nil {
			t.Fatalf("ToScale(%v) failed: %v", p[1], err)
		}
		back, err := b.ToScale(p[0])
		if err != nil {
			t.Fatalf("ToScale back to %v failed: %v", p[0], err)
		}
		if !back.Equal(a) {
			t.Errorf("%v->%v->%v moved the instant by %v s",
				p[0], p[1], p[0], back.DurationSince(a).AsSeconds())
		}
	}
}

func TestKnownScaleOffsets(t *testing.T) {
	e, err := FromGregorian(TAI, 2023, 6, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("FromGregorian failed: %v", err)
	}

	// TT label leads TAI by exactly 32.184 s.
	tai := e.TAISecondsJ2000()
	tt, err := e.labelSecondsJ2000(TT, BuiltinLeapTable(), LeapPolicyError)
	if err != nil {
		t.Fatalf("TT label failed: %v", err)
	}
	if got := tt - tai; math.Abs(got-32.184) > 1e-12 {
		t.Errorf("TT-TAI: got %.12f, want 32.184", got)
	}

	// UTC label lags TAI by 37 s in 2023.
	utc, err := e.labelSecondsJ2000(UTC, BuiltinLeapTable(), LeapPolicyError)
	if err != nil {
		t.Fatalf("UTC label failed: %v", err)
	}
	if got := tai - utc; got != 37 {
		t.Errorf("TAI-UTC in 2023: got %v, want 37", got)
	}

	// TDB stays within 2 ms of TT.
	tdb := e.TDBSecondsJ2000()
	if got := math.Abs(tdb - tt); got > 2e-3 {
		t.Errorf("|TDB-TT|: got %.6f, want < 0.002", got)
	}
}

func TestTDBSecondsRoundTrip(t *testing.T) {
	for _, s := range []float64{0, 1e6, -1e6, 7.4e8, 9.46728e8} {
		e := FromTDBSecondsJ2000(s)
		if got := e.TDBSecondsJ2000(); math.Abs(got-s) > 5e-7 {
			t.Errorf("TDB seconds round trip at %v: got %v (delta %.3e)", s, got, got-s)
		}
	}
}

func TestJulianDate(t *testing.T) {
	e, err := FromGregorian(TT, 2000, 1, 1, 12, 0, 0)
	if err != nil {
		t.Fatalf("FromGregorian failed: %v", err)
	}
	jd, err := e.JulianDate(TT)
	if err != nil {
		t.Fatalf("JulianDate failed: %v", err)
	}
	if math.Abs(jd-2451545.0) > 1e-9 {
		t.Errorf("J2000 TT Julian Date: got %.9f, want 2451545.0", jd)
	}

	back, err := FromJulianDate(TT, jd)
	if err != nil {
		t.Fatalf("FromJulianDate failed: %v", err)
	}
	if d := back.DurationSince(e).Abs().AsSeconds(); d > 1e-5 {
		t.Errorf("Julian Date round trip moved epoch by %v s", d)
	}
}

func TestDurationArithmetic(t *testing.T) {
	e, err := FromGregorian(TDB, 2023, 6, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("FromGregorian failed: %v", err)
	}
	d := Seconds(86400.5)
	later := e.Add(d)
	if got := later.DurationSince(e).AsSeconds(); got != 86400.5 {
		t.Errorf("DurationSince after Add: got %v, want 86400.5", got)
	}
	if back := later.Sub(d); !back.Equal(e) {
		t.Error("Add then Sub did not return the original epoch")
	}

	neg := e.DurationSince(later)
	if !neg.IsNegative() {
		t.Error("expected negative duration")
	}
	if got := neg.Abs().AsSeconds(); got != 86400.5 {
		t.Errorf("Abs: got %v, want 86400.5", got)
	}

	if got := Days(1.5).AsSeconds(); got != 129600 {
		t.Errorf("Days(1.5): got %v s, want 129600", got)
	}
}

func TestOrdering(t *testing.T) {
	a, _ := FromGregorian(TAI, 2023, 1, 1, 0, 0, 0)
	b := a.Add(Seconds(1e-9))
	if !a.Before(b) || !b.After(a) {
		t.Error("1 ns offset not ordered correctly")
	}
	if a.Equal(b) {
		t.Error("distinct instants compare equal")
	}
}

func TestUnsupportedScale(t *testing.T) {
	e, _ := FromGregorian(TAI, 2023, 1, 1, 0, 0, 0)
	if _, err := e.ToScale(TimeScale(99)); !errors.Is(err, ErrUnsupportedScale) {
		t.Errorf("got %v, want ErrUnsupportedScale", err)
	}
	if _, err := ParseScale("GPS"); !errors.Is(err, ErrUnsupportedScale) {
		t.Errorf("ParseScale: got %v, want ErrUnsupportedScale", err)
	}
	if s, err := ParseScale("tdb"); err != nil || s != TDB {
		t.Errorf("ParseScale(tdb): got %v, %v", s, err)
	}
}
