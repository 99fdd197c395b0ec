// Package interp evaluates kernel coefficient segments into state
// vectors and orientations at a requested epoch. Each supported
// segment encoding has one evaluation path; the set is closed, so an
// unknown encoding is an error rather than a silent fallthrough.
package interp

import "math"

// Vec3 is a Cartesian 3-vector (km or km/s in ephemeris use).
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns s*v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[0], s * v[1], s * v[2]}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v[0], -v[1], -v[2]}
}

// Dot returns the scalar product.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the vector product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean magnitude.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// StateVector is a position/velocity pair in some reference frame.
type StateVector struct {
	Pos Vec3 // km
	Vel Vec3 // km/s
}

// Add returns the componentwise sum.
func (s StateVector) Add(o StateVector) StateVector {
	return StateVector{Pos: s.Pos.Add(o.Pos), Vel: s.Vel.Add(o.Vel)}
}

// Neg returns the componentwise negation.
func (s StateVector) Neg() StateVector {
	return StateVector{Pos: s.Pos.Neg(), Vel: s.Vel.Neg()}
}

// Quat is a unit quaternion [w, x, y, z] representing a rotation.
type Quat [4]float64

// IdentityQuat is the no-op rotation.
var IdentityQuat = Quat{1, 0, 0, 0}

// Mul returns the Hamilton product q*o.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		q[0]*o[0] - q[1]*o[1] - q[2]*o[2] - q[3]*o[3],
		q[0]*o[1] + q[1]*o[0] + q[2]*o[3] - q[3]*o[2],
		q[0]*o[2] - q[1]*o[3] + q[2]*o[0] + q[3]*o[1],
		q[0]*o[3] + q[1]*o[2] - q[2]*o[1] + q[3]*o[0],
	}
}

// Conj returns the conjugate (the inverse for unit quaternions).
func (q Quat) Conj() Quat {
	return Quat{q[0], -q[1], -q[2], -q[3]}
}

// Norm returns the quaternion magnitude.
func (q Quat) Norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize rescales q to unit norm, guarding interpolation drift.
// The zero quaternion normalizes to identity.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return IdentityQuat
	}
	return Quat{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

// Apply rotates vector components: v' = q v q*.
func (q Quat) Apply(v Vec3) Vec3 {
	// Expanded q v q* using the double-cross identity.
	u := Vec3{q[1], q[2], q[3]}
	uv := u.Cross(v)
	uuv := u.Cross(uv)
	return v.Add(uv.Scale(2 * q[0])).Add(uuv.Scale(2))
}

// RotationState relates two frames at one instant. Q transforms
// vector components from the source frame into the destination frame
// (v_dst = Q.Apply(v_src)); AV is the angular velocity of the
// destination frame with respect to the source, expressed in the
// source frame (rad/s).
type RotationState struct {
	Q  Quat
	AV Vec3
}

// IdentityRotation relates a frame to itself.
var IdentityRotation = RotationState{Q: IdentityQuat}

// Inverse returns the rotation from destination back to source.
func (r RotationState) Inverse() RotationState {
	// The angular velocity of src w.r.t. dst, in dst components.
	return RotationState{
		Q:  r.Q.Conj(),
		AV: r.Q.Apply(r.AV).Neg(),
	}
}

// Compose chains rotations: if r maps A->B and next maps B->C, the
// result maps A->C. Angular velocities add after expressing next's
// contribution in A components.
func (r RotationState) Compose(next RotationState) RotationState {
	return RotationState{
		Q:  next.Q.Mul(r.Q),
		AV: r.AV.Add(r.Q.Conj().Apply(next.AV)),
	}
}

// ApplyState rotates a translation state into the destination frame,
// accounting for frame rotation in the velocity term:
// v_dst = Q(v_src - w x r_src).
func (r RotationState) ApplyState(s StateVector) StateVector {
	return StateVector{
		Pos: r.Q.Apply(s.Pos),
		Vel: r.Q.Apply(s.Vel.Sub(r.AV.Cross(s.Pos))),
	}
}
