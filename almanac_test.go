package nyx

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/hartmut/nyx/epoch"
	"github.com/hartmut/nyx/internal/kerneltest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

const (
	auKM      = 1.496e8
	yearSec   = 3.15576e7
	weekSec   = 7 * 86400.0
	embRadius = 4671.0
	moonMonth = 2.36e6
)

// solarSystemSPK approximates Earth with two circular hops: the
// Earth-Moon barycenter around the solar system barycenter at 1 AU,
// and Earth around the Earth-Moon barycenter.
func solarSystemSPK() []byte {
	emb := kerneltest.CircularOrbit{RadiusKM: auKM, PeriodSec: yearSec}
	earth := kerneltest.CircularOrbit{RadiusKM: embRadius, PeriodSec: moonMonth, Phase: 2.5}
	return kerneltest.NewSPK().
		WithComment("synthetic two-body ephemeris for tests").
		AddChebyshevSegment("EMB", EarthMoonBarycenter, SolarSystemBarycenter, J2000, 2,
			0, weekSec, 0, 86400, emb.ChebyshevRecords(0, 86400, 7, 12)).
		AddChebyshevSegment("EARTH", Earth, EarthMoonBarycenter, J2000, 2,
			0, weekSec, 0, 86400, earth.ChebyshevRecords(0, 86400, 7, 12)).
		Build()
}

func loadSolarSystem(t *testing.T) *Almanac {
	t.Helper()
	a := New(WithLogger(testLogger()))
	if _, err := a.Load("de.bsp", solarSystemSPK()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return a
}

func TestEarthStateEndToEnd(t *testing.T) {
	a := New(WithLogger(testLogger()))

	e, err := a.Epoch(epoch.TDB, 2023, 6, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}
	start := e.TDBSecondsJ2000() - 3*86400

	emb := kerneltest.CircularOrbit{RadiusKM: auKM, PeriodSec: yearSec}
	earth := kerneltest.CircularOrbit{RadiusKM: embRadius, PeriodSec: moonMonth, Phase: 2.5}
	data := kerneltest.NewSPK().
		AddChebyshevSegment("EMB", EarthMoonBarycenter, SolarSystemBarycenter, J2000, 2,
			start, start+weekSec, start, 86400, emb.ChebyshevRecords(start, 86400, 7, 12)).
		AddChebyshevSegment("EARTH", Earth, EarthMoonBarycenter, J2000, 2,
			start, start+weekSec, start, 86400, earth.ChebyshevRecords(start, 86400, 7, 12)).
		Build()
	if _, err := a.Load("de.bsp", data); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	st, err := a.EphemerisState(Earth, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}

	r := math.Sqrt(st.Position[0]*st.Position[0] + st.Position[1]*st.Position[1] + st.Position[2]*st.Position[2])
	if math.Abs(r-auKM) > embRadius+1 {
		t.Errorf("heliocentric distance: got %v km, want about %v", r, auKM)
	}
	v := math.Sqrt(st.Velocity[0]*st.Velocity[0] + st.Velocity[1]*st.Velocity[1] + st.Velocity[2]*st.Velocity[2])
	if math.Abs(v-29.78) > 0.1 {
		t.Errorf("heliocentric speed: got %v km/s, want about 29.78", v)
	}
	if st.Frame != J2000 || st.Target != Earth || st.Observer != SolarSystemBarycenter {
		t.Errorf("state labels: %+v", st)
	}
}

func TestStateScaleIndependence(t *testing.T) {
	a := loadSolarSystem(t)

	utc, err := a.Epoch(epoch.UTC, 2000, 1, 2, 6, 30, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}
	tt, err := a.ConvertScale(utc, epoch.TT)
	if err != nil {
		t.Fatalf("ConvertScale failed: %v", err)
	}

	s1, err := a.EphemerisState(Earth, SolarSystemBarycenter, utc)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}
	s2, err := a.EphemerisState(Earth, SolarSystemBarycenter, tt)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}
	for c := 0; c < 3; c++ {
		if s1.Position[c] != s2.Position[c] {
			t.Errorf("relabeled epoch moved the state: %v vs %v", s1.Position, s2.Position)
		}
	}
}

func TestLastLoadWins(t *testing.T) {
	a := loadSolarSystem(t)
	e, err := a.Epoch(epoch.TDB, 2000, 1, 2, 0, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}

	before, err := a.EphemerisState(EarthMoonBarycenter, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}

	// An update kernel with the same pair and coverage but a shifted
	// phase supersedes the first load.
	shifted := kerneltest.CircularOrbit{RadiusKM: auKM, PeriodSec: yearSec, Phase: math.Pi}
	update := kerneltest.NewSPK().
		AddChebyshevSegment("EMB2", EarthMoonBarycenter, SolarSystemBarycenter, J2000, 2,
			0, weekSec, 0, 86400, shifted.ChebyshevRecords(0, 86400, 7, 12)).
		Build()
	h, err := a.Load("update.bsp", update)
	if err != nil {
		t.Fatalf("Load update failed: %v", err)
	}

	after, err := a.EphemerisState(EarthMoonBarycenter, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}
	if math.Abs(after.Position[0]+before.Position[0]) > 1 || math.Abs(after.Position[1]+before.Position[1]) > 1 {
		t.Errorf("opposite phase expected: before %v, after %v", before.Position, after.Position)
	}

	// Unloading the update restores the original answer.
	if err := a.Unload(h); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
	restored, err := a.EphemerisState(EarthMoonBarycenter, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}
	if restored.Position != before.Position {
		t.Errorf("unload did not restore: %v vs %v", restored.Position, before.Position)
	}
}

func TestQueryErrors(t *testing.T) {
	a := loadSolarSystem(t)
	e, err := a.Epoch(epoch.TDB, 2000, 1, 2, 0, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}

	if _, err := a.EphemerisState(Mars, SolarSystemBarycenter, e); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("unknown object: got %v", err)
	}

	late := e.Add(epoch.Days(400))
	if _, err := a.EphemerisState(Earth, SolarSystemBarycenter, late); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("uncovered epoch: got %v", err)
	}

	if _, err := a.FrameTransform(J2000, 3000, e); !errors.Is(err, ErrNoPath) {
		t.Errorf("missing frame: got %v", err)
	}

	if _, err := a.Load("junk.bin", []byte("not a kernel")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("junk load: got %v", err)
	}
	if err := a.Unload(KernelHandle(99)); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("bogus unload: got %v", err)
	}
}

func TestCacheConsistencyAndInvalidation(t *testing.T) {
	a := loadSolarSystem(t)
	e, err := a.Epoch(epoch.TDB, 2000, 1, 2, 12, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}

	first, err := a.EphemerisState(Earth, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("EphemerisState failed: %v", err)
	}
	second, err := a.EphemerisState(Earth, SolarSystemBarycenter, e)
	if err != nil {
		t.Fatalf("cached EphemerisState failed: %v", err)
	}
	if first != second {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	stats := a.Stats()
	if stats.Hits == 0 {
		t.Errorf("expected a cache hit, stats %+v", stats)
	}
	if stats.Entries == 0 {
		t.Errorf("expected cached entries, stats %+v", stats)
	}

	// Any load invalidates wholesale.
	if _, err := a.Load("again.bsp", solarSystemSPK()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := a.Stats().Entries; got != 0 {
		t.Errorf("entries after load: got %d, want 0", got)
	}
}

func TestCacheDisabled(t *testing.T) {
	a := New(WithLogger(testLogger()), WithCacheSize(0))
	if _, err := a.Load("de.bsp", solarSystemSPK()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e, err := a.Epoch(epoch.TDB, 2000, 1, 2, 0, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := a.EphemerisState(Earth, SolarSystemBarycenter, e); err != nil {
			t.Fatalf("EphemerisState failed: %v", err)
		}
	}
	if stats := a.Stats(); stats.Hits != 0 || stats.Entries != 0 {
		t.Errorf("disabled cache recorded activity: %+v", stats)
	}
}

func TestEagerDecodeRejectsBadTrailer(t *testing.T) {
	bad := kerneltest.NewSPK().
		AddRawSegment("BAD", []int32{399, 3, 1, 2}, 0, 100,
			[]float64{50, 50, 1, 0, 0, 0, 100, 5, 3}). // trailer claims 3 records
		Build()

	lazy := New(WithLogger(testLogger()))
	if _, err := lazy.Load("bad.bsp", bad); err != nil {
		t.Fatalf("lazy load should defer decode, got %v", err)
	}

	eager := New(WithLogger(testLogger()), WithEagerDecode())
	if _, err := eager.Load("bad.bsp", bad); err == nil {
		t.Errorf("eager load accepted an inconsistent trailer")
	}
	if len(eager.Kernels()) != 0 {
		t.Errorf("failed load left kernels registered")
	}
}

func TestCoverageAndComment(t *testing.T) {
	a := loadSolarSystem(t)

	wins := a.Coverage(Earth)
	if len(wins) != 1 {
		t.Fatalf("coverage windows: got %d, want 1", len(wins))
	}
	if got := wins[0].End.TDBSecondsJ2000() - wins[0].Start.TDBSecondsJ2000(); math.Abs(got-weekSec) > 1e-5 {
		t.Errorf("window length: got %v, want %v", got, weekSec)
	}

	infos := a.Kernels()
	if len(infos) != 1 || infos[0].Family != "SPK" || infos[0].Segments != 2 {
		t.Fatalf("kernel info: %+v", infos)
	}
	text, err := a.Comment(infos[0].Handle)
	if err != nil {
		t.Fatalf("Comment failed: %v", err)
	}
	if text != "synthetic two-body ephemeris for tests" {
		t.Errorf("comment: got %q", text)
	}
}

func TestLSKLoadAndPolicy(t *testing.T) {
	lsk := []byte(`KPL/LSK

\begindata

DELTET/DELTA_AT = ( 10, @1972-JAN-1
                    37, @2017-JAN-1 )

\begintext
`)
	a := New(WithLogger(testLogger()))
	h, err := a.Load("naif.tls", lsk)
	if err != nil {
		t.Fatalf("LSK load failed: %v", err)
	}

	e, err := a.Epoch(epoch.UTC, 2017, 6, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("Epoch failed: %v", err)
	}
	tai, err := a.ConvertScale(e, epoch.TAI)
	if err != nil {
		t.Fatalf("ConvertScale failed: %v", err)
	}
	g, err := tai.Gregorian(epoch.TAI)
	if err != nil {
		t.Fatalf("Gregorian failed: %v", err)
	}
	if g.Second != 37 {
		t.Errorf("TAI-UTC in 2017: got %v s, want 37", g.Second)
	}

	// Before the table, the Error policy refuses.
	if _, err := a.Epoch(epoch.UTC, 1960, 1, 1, 0, 0, 0); !errors.Is(err, ErrLeapTableRange) {
		t.Errorf("predating epoch: got %v, want ErrLeapTableRange", err)
	}

	// The Clamp policy pins pre-table epochs to the first entry.
	clamped := New(WithLogger(testLogger()), WithLeapPolicy(epoch.LeapPolicyClamp))
	if _, err := clamped.Epoch(epoch.UTC, 1960, 1, 1, 0, 0, 0); err != nil {
		t.Errorf("clamp policy: got %v, want success", err)
	}

	if err := a.Unload(h); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
}
