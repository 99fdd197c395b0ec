package nyx

import (
	"github.com/hartmut/nyx/epoch"
	"github.com/hartmut/nyx/internal/interp"
)

// Well-known NAIF identifiers. Object ids name ephemeris bodies and
// barycenters; frame ids name reference frames.
const (
	SolarSystemBarycenter = 0
	MercuryBarycenter     = 1
	VenusBarycenter       = 2
	EarthMoonBarycenter   = 3
	MarsBarycenter        = 4
	JupiterBarycenter     = 5
	SaturnBarycenter      = 6
	UranusBarycenter      = 7
	NeptuneBarycenter     = 8
	PlutoBarycenter       = 9
	Sun                   = 10
	Mercury               = 199
	Venus                 = 299
	Moon                  = 301
	Earth                 = 399
	Mars                  = 499
)

// J2000 is the inertial reference frame id queries resolve into by
// default.
const J2000 = 1

// State is the position and velocity of a target relative to an
// observer at one epoch, with components in the named frame.
type State struct {
	Position [3]float64 // km
	Velocity [3]float64 // km/s

	Target   int
	Observer int
	Frame    int
	Epoch    epoch.Epoch
}

// Rotation relates two frames at one epoch. Quaternion is [w, x, y, z]
// and maps vector components from the From frame into the To frame;
// AngularVelocity is the rate of the To frame with respect to From, in
// From components (rad/s).
type Rotation struct {
	Quaternion      [4]float64
	AngularVelocity [3]float64

	From  int
	To    int
	Epoch epoch.Epoch
}

// Apply rotates a vector's components from the From frame into the To
// frame.
func (r Rotation) Apply(v [3]float64) [3]float64 {
	return [3]float64(interp.Quat(r.Quaternion).Apply(interp.Vec3(v)))
}

// ApplyState rotates a position/velocity pair into the To frame,
// including the frame-rotation contribution to the velocity.
func (r Rotation) ApplyState(pos, vel [3]float64) (rpos, rvel [3]float64) {
	rot := interp.RotationState{
		Q:  interp.Quat(r.Quaternion),
		AV: interp.Vec3(r.AngularVelocity),
	}
	s := rot.ApplyState(interp.StateVector{Pos: interp.Vec3(pos), Vel: interp.Vec3(vel)})
	return [3]float64(s.Pos), [3]float64(s.Vel)
}
