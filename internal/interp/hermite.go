package interp

// hermite evaluates the cubic two-point Hermite interpolant and its
// derivative at normalized u in [0, 1] between nodes (p0, v0) and
// (p1, v1) separated by dt seconds. Derivatives v0, v1 are in units
// per second; the returned derivative is too. Exact for cubics.
func hermite(p0, v0, p1, v1, dt, u float64) (val, deriv float64) {
	u2 := u * u
	u3 := u2 * u

	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2

	val = h00*p0 + h10*dt*v0 + h01*p1 + h11*dt*v1

	d00 := 6*u2 - 6*u
	d10 := 3*u2 - 4*u + 1
	d01 := -6*u2 + 6*u
	d11 := 3*u2 - 2*u

	deriv = (d00*p0 + d10*dt*v0 + d01*p1 + d11*dt*v1) / dt
	return val, deriv
}

// hermiteBracket locates the record pair and normalized abscissa for
// an epoch within an equally spaced Hermite segment of n records.
func hermiteBracket(init, step float64, n int, et float64) (i int, u float64) {
	i = int((et - init) / step)
	if i < 0 {
		i = 0
	}
	if i >= n-1 {
		i = n - 2
	}
	return i, (et - init - float64(i)*step) / step
}
