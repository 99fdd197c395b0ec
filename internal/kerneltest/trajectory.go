package kerneltest

import "math"

// ChebyshevFit computes degree+1 Chebyshev series coefficients
// approximating f on [a, b], sampled at the Chebyshev nodes. For
// smooth f and a modest degree the fit reaches machine precision, so
// tests can compare interpolated values against the analytic function
// directly.
func ChebyshevFit(f func(float64) float64, a, b float64, degree int) []float64 {
	n := degree + 1
	fx := make([]float64, n)
	for k := 0; k < n; k++ {
		x := math.Cos(math.Pi * (float64(k) + 0.5) / float64(n))
		fx[k] = f(0.5*(b-a)*x + 0.5*(b+a))
	}
	coeffs := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for k := 0; k < n; k++ {
			sum += fx[k] * math.Cos(math.Pi*float64(j)*(float64(k)+0.5)/float64(n))
		}
		c := 2.0 / float64(n) * sum
		if j == 0 {
			c /= 2
		}
		coeffs[j] = c
	}
	return coeffs
}

// CircularOrbit describes a circular trajectory in the XY plane of its
// reference frame, used to fabricate physically plausible ephemeris
// segments.
type CircularOrbit struct {
	RadiusKM  float64
	PeriodSec float64
	Phase     float64 // radians at t = 0 (TDB seconds past J2000)
}

// PosAt returns the position (km) at t.
func (o CircularOrbit) PosAt(t float64) (x, y, z float64) {
	w := 2 * math.Pi / o.PeriodSec
	return o.RadiusKM * math.Cos(w*t+o.Phase), o.RadiusKM * math.Sin(w*t+o.Phase), 0
}

// VelAt returns the velocity (km/s) at t.
func (o CircularOrbit) VelAt(t float64) (vx, vy, vz float64) {
	w := 2 * math.Pi / o.PeriodSec
	return -o.RadiusKM * w * math.Sin(w*t+o.Phase), o.RadiusKM * w * math.Cos(w*t+o.Phase), 0
}

// ChebyshevRecords fits the orbit's position components over
// [start, start+n*intlen] as n SPK type 2 records of the given degree.
func (o CircularOrbit) ChebyshevRecords(start, intlen float64, n, degree int) [][]float64 {
	records := make([][]float64, n)
	for i := 0; i < n; i++ {
		a := start + float64(i)*intlen
		b := a + intlen
		rec := []float64{a + intlen/2, intlen / 2}
		for comp := 0; comp < 3; comp++ {
			comp := comp
			rec = append(rec, ChebyshevFit(func(t float64) float64 {
				x, y, z := o.PosAt(t)
				return [3]float64{x, y, z}[comp]
			}, a, b, degree)...)
		}
		records[i] = rec
	}
	return records
}

// StateRecords samples the orbit at n equally spaced epochs for SPK
// type 12 segments.
func (o CircularOrbit) StateRecords(start, step float64, n int) [][]float64 {
	records := make([][]float64, n)
	for i := 0; i < n; i++ {
		t := start + float64(i)*step
		x, y, z := o.PosAt(t)
		vx, vy, vz := o.VelAt(t)
		records[i] = []float64{x, y, z, vx, vy, vz}
	}
	return records
}

// SpinRecords fabricates CK type 5 records for a frame spinning about
// the Z axis of its base at a constant rate (rad/s), sampled every
// step seconds from start.
func SpinRecords(rate, phase, start, step float64, n int) [][]float64 {
	records := make([][]float64, n)
	for i := 0; i < n; i++ {
		t := start + float64(i)*step
		half := 0.5 * (rate*t + phase)
		// Passive rotation by +angle about Z: q = [cos, 0, 0, -sin].
		records[i] = []float64{math.Cos(half), 0, 0, -math.Sin(half), 0, 0, rate}
	}
	return records
}

// EulerSpinRecords fabricates PCK type 2 records for the same constant
// Z spin expressed as 3-1-3 Euler angles: only the first angle varies.
func EulerSpinRecords(rate, phase, start, intlen float64, n, degree int) [][]float64 {
	records := make([][]float64, n)
	for i := 0; i < n; i++ {
		a := start + float64(i)*intlen
		b := a + intlen
		rec := []float64{a + intlen/2, intlen / 2}
		rec = append(rec, ChebyshevFit(func(t float64) float64 { return rate*t + phase }, a, b, degree)...)
		rec = append(rec, ChebyshevFit(func(float64) float64 { return 0 }, a, b, degree)...)
		rec = append(rec, ChebyshevFit(func(float64) float64 { return 0 }, a, b, degree)...)
		records[i] = rec
	}
	return records
}
