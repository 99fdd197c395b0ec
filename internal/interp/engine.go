package interp

import (
	"errors"
	"fmt"
	"math"

	"github.com/hartmut/nyx/internal/daf"
)

// ErrEpochOutOfBounds is returned when the requested epoch lies
// outside a segment's declared coverage. The engine never
// extrapolates, even by one ulp.
var ErrEpochOutOfBounds = errors.New("epoch outside segment coverage")

// checkBounds enforces the no-extrapolation contract.
func checkBounds(seg *daf.Segment, et float64) error {
	if et < seg.Start || et > seg.End {
		return fmt.Errorf("segment %q covers [%v, %v], requested %v: %w",
			seg.Name, seg.Start, seg.End, et, ErrEpochOutOfBounds)
	}
	return nil
}

// Position evaluates a translation segment at et (TDB seconds past
// J2000), returning position (km) and velocity (km/s) of the target
// relative to the center, in the segment's reference frame.
func Position(seg *daf.Segment, et float64) (StateVector, error) {
	if err := checkBounds(seg, et); err != nil {
		return StateVector{}, err
	}
	switch seg.Kind {
	case daf.KindChebyshevPosition:
		return chebyshevPosition(seg, et, false)
	case daf.KindChebyshevPosVel:
		return chebyshevPosition(seg, et, true)
	case daf.KindHermitePosition:
		return hermitePosition(seg, et)
	default:
		return StateVector{}, fmt.Errorf("segment %q: %s is not a translation encoding: %w",
			seg.Name, seg.Kind, daf.ErrUnsupportedDataType)
	}
}

// Orientation evaluates an orientation segment at et, returning the
// rotation from the segment's base frame to the oriented frame.
func Orientation(seg *daf.Segment, et float64) (RotationState, error) {
	if err := checkBounds(seg, et); err != nil {
		return RotationState{}, err
	}
	switch seg.Kind {
	case daf.KindChebyshevOrientation:
		return eulerOrientation(seg, et)
	case daf.KindHermiteOrientation:
		return quaternionOrientation(seg, et)
	default:
		return RotationState{}, fmt.Errorf("segment %q: %s is not an orientation encoding: %w",
			seg.Name, seg.Kind, daf.ErrUnsupportedDataType)
	}
}

// chebyshevPosition handles SPK types 2 and 3. Type 2 stores position
// coefficients only and differentiates for velocity; type 3 carries a
// separate velocity set.
func chebyshevPosition(seg *daf.Segment, et float64, hasVel bool) (StateVector, error) {
	l, err := seg.Layout()
	if err != nil {
		return StateVector{}, err
	}
	idx, x, jac := chebyshevRecord(l.Init, l.IntLen, l.N, et)
	rec, err := seg.Record(idx)
	if err != nil {
		return StateVector{}, err
	}

	ncomp := 3
	if hasVel {
		ncomp = 6
	}
	nterms := (l.RSize - 2) / ncomp

	var out StateVector
	for c := 0; c < 3; c++ {
		coeffs := rec[2+c*nterms : 2+(c+1)*nterms]
		val, deriv := chebyshev(coeffs, x)
		out.Pos[c] = val
		if !hasVel {
			out.Vel[c] = deriv * jac
		}
	}
	if hasVel {
		for c := 0; c < 3; c++ {
			coeffs := rec[2+(3+c)*nterms : 2+(4+c)*nterms]
			val, _ := chebyshev(coeffs, x)
			out.Vel[c] = val
		}
	}
	return out, nil
}

// hermitePosition handles SPK type 12: equally spaced state packets
// joined by cubic Hermite interpolation over the bracketing pair.
// Wider declared windows are accepted at decode but not expanded.
func hermitePosition(seg *daf.Segment, et float64) (StateVector, error) {
	l, err := seg.Layout()
	if err != nil {
		return StateVector{}, err
	}
	i, u := hermiteBracket(l.Init, l.IntLen, l.N, et)
	r0, err := seg.Record(i)
	if err != nil {
		return StateVector{}, err
	}
	r1, err := seg.Record(i + 1)
	if err != nil {
		return StateVector{}, err
	}

	var out StateVector
	for c := 0; c < 3; c++ {
		val, deriv := hermite(r0[c], r0[3+c], r1[c], r1[3+c], l.IntLen, u)
		out.Pos[c] = val
		out.Vel[c] = deriv
	}
	return out, nil
}

// eulerOrientation handles binary PCK type 2: Chebyshev series for the
// 3-1-3 Euler angles (a1 about Z, then a2 about X, then a3 about Z)
// rotating base-frame components into the oriented frame.
func eulerOrientation(seg *daf.Segment, et float64) (RotationState, error) {
	l, err := seg.Layout()
	if err != nil {
		return RotationState{}, err
	}
	idx, x, jac := chebyshevRecord(l.Init, l.IntLen, l.N, et)
	rec, err := seg.Record(idx)
	if err != nil {
		return RotationState{}, err
	}

	nterms := (l.RSize - 2) / 3
	var ang, rate [3]float64
	for c := 0; c < 3; c++ {
		coeffs := rec[2+c*nterms : 2+(c+1)*nterms]
		val, deriv := chebyshev(coeffs, x)
		ang[c] = val
		rate[c] = deriv * jac
	}

	q := euler313Quat(ang)
	// Angular velocity of the oriented frame in its own components,
	// from the 3-1-3 kinematic relations, then re-expressed in the
	// base frame per the RotationState convention.
	s2, c2 := math.Sin(ang[1]), math.Cos(ang[1])
	s3, c3 := math.Sin(ang[2]), math.Cos(ang[2])
	wBody := Vec3{
		rate[0]*s2*s3 + rate[1]*c3,
		rate[0]*s2*c3 - rate[1]*s3,
		rate[0]*c2 + rate[2],
	}
	return RotationState{Q: q, AV: q.Conj().Apply(wBody)}, nil
}

// euler313Quat builds the passive rotation for Z-X-Z angles: first a1
// about Z, then a2 about the rotated X, then a3 about the new Z.
func euler313Quat(ang [3]float64) Quat {
	// Passive single-axis rotations use the negative half angle.
	qz1 := Quat{math.Cos(ang[0] / 2), 0, 0, -math.Sin(ang[0] / 2)}
	qx := Quat{math.Cos(ang[1] / 2), -math.Sin(ang[1] / 2), 0, 0}
	qz3 := Quat{math.Cos(ang[2] / 2), 0, 0, -math.Sin(ang[2] / 2)}
	// Components transform as v' = Rz(a3) Rx(a2) Rz(a1) v.
	return qz3.Mul(qx).Mul(qz1)
}

// quaternionOrientation handles CK type 5: equally spaced quaternion
// plus angular-velocity records joined by Hermite interpolation, with
// quaternion derivatives reconstructed from the angular velocities.
func quaternionOrientation(seg *daf.Segment, et float64) (RotationState, error) {
	l, err := seg.Layout()
	if err != nil {
		return RotationState{}, err
	}
	i, u := hermiteBracket(l.Init, l.IntLen, l.N, et)
	r0, err := seg.Record(i)
	if err != nil {
		return RotationState{}, err
	}
	r1, err := seg.Record(i + 1)
	if err != nil {
		return RotationState{}, err
	}

	q0 := Quat{r0[0], r0[1], r0[2], r0[3]}
	q1 := Quat{r1[0], r1[1], r1[2], r1[3]}
	// Keep the two records in the same quaternion hemisphere so the
	// interpolant does not pass near zero.
	if q0[0]*q1[0]+q0[1]*q1[1]+q0[2]*q1[2]+q0[3]*q1[3] < 0 {
		q1 = Quat{-q1[0], -q1[1], -q1[2], -q1[3]}
	}
	w0 := Vec3{r0[4], r0[5], r0[6]}
	w1 := Vec3{r1[4], r1[5], r1[6]}

	qd0 := quatDerivative(q0, w0)
	qd1 := quatDerivative(q1, w1)

	var q Quat
	var qd Quat
	for c := 0; c < 4; c++ {
		val, deriv := hermite(q0[c], qd0[c], q1[c], qd1[c], l.IntLen, u)
		q[c] = val
		qd[c] = deriv
	}
	q = q.Normalize()

	// Recover angular velocity from the interpolated derivative:
	// for the passive convention q maps base to frame, w (in base
	// components) satisfies qdot = -1/2 q*(0,w), so (0,w) = -2 q* qdot.
	wq := q.Conj().Mul(qd)
	av := Vec3{-2 * wq[1], -2 * wq[2], -2 * wq[3]}
	return RotationState{Q: q, AV: av}, nil
}

// quatDerivative returns qdot for a passive frame quaternion q and
// angular velocity w of the frame w.r.t. the base, in base components.
func quatDerivative(q Quat, w Vec3) Quat {
	wq := Quat{0, w[0], w[1], w[2]}
	d := q.Mul(wq)
	return Quat{-0.5 * d[0], -0.5 * d[1], -0.5 * d[2], -0.5 * d[3]}
}
