package frames

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/hartmut/nyx/internal/daf"
	"github.com/hartmut/nyx/internal/index"
	"github.com/hartmut/nyx/internal/interp"
	"github.com/hartmut/nyx/internal/kerneltest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func parse(t *testing.T, name string, data []byte) *daf.Kernel {
	t.Helper()
	k, err := daf.Parse(name, data, testLogger())
	if err != nil {
		t.Fatalf("Parse %s failed: %v", name, err)
	}
	return k
}

// solarSystem builds a two-hop translation chain in frame 1 plus an
// Earth-like spinning frame 3000 based on frame 1.
func solarSystem(t *testing.T) (*index.Index, *Graph, kerneltest.CircularOrbit, kerneltest.CircularOrbit) {
	t.Helper()
	emb := kerneltest.CircularOrbit{RadiusKM: 1.496e8, PeriodSec: 3.15576e7}
	earth := kerneltest.CircularOrbit{RadiusKM: 4671, PeriodSec: 2.36e6, Phase: 1.0}

	spk := kerneltest.NewSPK().
		AddChebyshevSegment("EMB", 3, 0, 1, 2, 0, 4*86400, 0, 86400, emb.ChebyshevRecords(0, 86400, 4, 12)).
		AddChebyshevSegment("EARTH", 399, 3, 1, 2, 0, 4*86400, 0, 86400, earth.ChebyshevRecords(0, 86400, 4, 12)).
		Build()
	pck := kerneltest.NewPCK().
		AddEulerSegment("ITRF", 3000, 1, 0, 4*86400, 0, 4*86400,
			kerneltest.EulerSpinRecords(7.2921150e-5, 0, 0, 4*86400, 1, 10)).
		Build()

	idx := index.New()
	idx.Register(parse(t, "de.bsp", spk))
	idx.Register(parse(t, "earth.bpc", pck))
	g := New(idx, testLogger())
	g.Rebuild()
	return idx, g, emb, earth
}

func TestTranslateMultiHop(t *testing.T) {
	_, g, emb, earth := solarSystem(t)

	et := 40000.0
	st, err := g.Translate(399, 0, 1, et)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	ex, ey, _ := emb.PosAt(et)
	gx, gy, _ := earth.PosAt(et)
	if math.Abs(st.Pos[0]-(ex+gx)) > 1e-4 || math.Abs(st.Pos[1]-(ey+gy)) > 1e-4 {
		t.Errorf("pos: got %v, want (%v, %v)", st.Pos, ex+gx, ey+gy)
	}

	evx, evy, _ := emb.VelAt(et)
	gvx, gvy, _ := earth.VelAt(et)
	if math.Abs(st.Vel[0]-(evx+gvx)) > 1e-8 || math.Abs(st.Vel[1]-(evy+gvy)) > 1e-8 {
		t.Errorf("vel: got %v, want (%v, %v)", st.Vel, evx+gvx, evy+gvy)
	}
}

func TestTranslateInverts(t *testing.T) {
	_, g, _, _ := solarSystem(t)

	et := 120000.0
	fwd, err := g.Translate(399, 0, 1, et)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	rev, err := g.Translate(0, 399, 1, et)
	if err != nil {
		t.Fatalf("reverse Translate failed: %v", err)
	}
	sum := fwd.Add(rev)
	if sum.Pos.Norm() > 1e-9 || sum.Vel.Norm() > 1e-12 {
		t.Errorf("forward plus reverse: pos %v, vel %v", sum.Pos, sum.Vel)
	}
}

func TestTranslateSameObject(t *testing.T) {
	_, g, _, _ := solarSystem(t)
	st, err := g.Translate(399, 399, 1, 0)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if st.Pos.Norm() != 0 || st.Vel.Norm() != 0 {
		t.Errorf("self state: got %v", st)
	}
}

func TestTranslateErrors(t *testing.T) {
	idx := index.New()
	spk := kerneltest.NewSPK().
		AddChebyshevSegment("A", 399, 3, 1, 2, 0, 1000, 0, 1000,
			[][]float64{{500, 500, 1, 0, 0}}).
		AddChebyshevSegment("B", 5, 6, 1, 2, 0, 1000, 0, 1000,
			[][]float64{{500, 500, 1, 0, 0}}).
		Build()
	idx.Register(parse(t, "pairs.bsp", spk))
	g := New(idx, testLogger())
	g.Rebuild()

	// Both ids loaded, graphs disjoint.
	if _, err := g.Translate(399, 5, 1, 500); !errors.Is(err, ErrNoPath) {
		t.Errorf("disjoint: got %v, want ErrNoPath", err)
	}
	// Id never mentioned by any kernel.
	if _, err := g.Translate(399, 999, 1, 500); !errors.Is(err, index.ErrUnknownObject) {
		t.Errorf("unknown: got %v, want ErrUnknownObject", err)
	}
	// Epoch outside the only covering segment.
	if _, err := g.Translate(399, 3, 1, 5000); !errors.Is(err, index.ErrNoCoverage) {
		t.Errorf("uncovered: got %v, want ErrNoCoverage", err)
	}
}

func TestTransformIdentityAndRoundTrip(t *testing.T) {
	_, g, _, _ := solarSystem(t)

	rot, err := g.Transform(1, 1, 0)
	if err != nil {
		t.Fatalf("identity Transform failed: %v", err)
	}
	if rot.Q != interp.IdentityQuat {
		t.Errorf("identity: got %v", rot.Q)
	}

	et := 20000.0
	fwd, err := g.Transform(1, 3000, et)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	rev, err := g.Transform(3000, 1, et)
	if err != nil {
		t.Fatalf("reverse Transform failed: %v", err)
	}
	round := fwd.Compose(rev)
	if math.Abs(math.Abs(round.Q[0])-1) > 1e-12 {
		t.Errorf("round trip: got %v, want identity", round.Q)
	}
	if round.AV.Norm() > 1e-12 {
		t.Errorf("round trip angular velocity: got %v", round.AV)
	}
}

func TestTransformWithCompetingBases(t *testing.T) {
	// Frame 3000 is oriented against base 1, then a later kernel
	// orients it against base 2. Both edges must stay evaluable.
	rate := 7.2921150e-5
	base1 := kerneltest.NewPCK().
		AddEulerSegment("ITRF-1", 3000, 1, 0, 1000, 0, 1000,
			kerneltest.EulerSpinRecords(rate, 0, 0, 1000, 1, 10)).
		Build()
	base2 := kerneltest.NewPCK().
		AddEulerSegment("ITRF-2", 3000, 2, 0, 1000, 0, 1000,
			kerneltest.EulerSpinRecords(rate, 0.5, 0, 1000, 1, 10)).
		Build()

	idx := index.New()
	idx.Register(parse(t, "base1.bpc", base1))
	idx.Register(parse(t, "base2.bpc", base2))
	g := New(idx, testLogger())
	g.Rebuild()

	et := 500.0
	rot, err := g.Transform(1, 3000, et)
	if err != nil {
		t.Fatalf("Transform via base 1 failed: %v", err)
	}
	half := 0.5 * rate * et
	if math.Abs(rot.Q[0]-math.Cos(half)) > 1e-9 || math.Abs(rot.Q[3]+math.Sin(half)) > 1e-9 {
		t.Errorf("base 1 rotation: got %v", rot.Q)
	}

	rot, err = g.Transform(2, 3000, et)
	if err != nil {
		t.Fatalf("Transform via base 2 failed: %v", err)
	}
	half = 0.5 * (rate*et + 0.5)
	if math.Abs(rot.Q[0]-math.Cos(half)) > 1e-9 || math.Abs(rot.Q[3]+math.Sin(half)) > 1e-9 {
		t.Errorf("base 2 rotation: got %v", rot.Q)
	}

	// Both edges compose into a path between the two bases.
	if _, err := g.Transform(1, 2, et); err != nil {
		t.Errorf("base-to-base Transform failed: %v", err)
	}
}

func TestTransformNoPath(t *testing.T) {
	_, g, _, _ := solarSystem(t)
	if _, err := g.Transform(3000, 4000, 0); !errors.Is(err, ErrNoPath) {
		t.Errorf("unknown frame: got %v, want ErrNoPath", err)
	}
}

func TestTranslateIntoRotatingFrame(t *testing.T) {
	_, g, _, _ := solarSystem(t)

	et := 30000.0
	inertial, err := g.Translate(399, 0, 1, et)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	rotating, err := g.Translate(399, 0, 3000, et)
	if err != nil {
		t.Fatalf("rotating Translate failed: %v", err)
	}

	rot, err := g.Transform(1, 3000, et)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := rot.ApplyState(inertial)
	if rotating.Pos.Sub(want.Pos).Norm() > 1e-6 {
		t.Errorf("pos: got %v, want %v", rotating.Pos, want.Pos)
	}
	if rotating.Vel.Sub(want.Vel).Norm() > 1e-9 {
		t.Errorf("vel: got %v, want %v", rotating.Vel, want.Vel)
	}
	// The rotated position keeps its length.
	if math.Abs(rotating.Pos.Norm()-inertial.Pos.Norm()) > 1e-6 {
		t.Errorf("norm changed: %v vs %v", rotating.Pos.Norm(), inertial.Pos.Norm())
	}
}
