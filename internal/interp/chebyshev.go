package interp

// chebyshev evaluates a Chebyshev series and its derivative at
// x in [-1, 1] using the three-term recurrence for T_i and T'_i.
// The derivative is with respect to x; callers apply the interval
// Jacobian to recover time units.
func chebyshev(coeffs []float64, x float64) (val, deriv float64) {
	if len(coeffs) == 0 {
		return 0, 0
	}
	val = coeffs[0]
	if len(coeffs) == 1 {
		return val, 0
	}
	val += coeffs[1] * x
	deriv = coeffs[1]

	// T_i and dT_i via the recurrence T_i = 2x T_{i-1} - T_{i-2}.
	tPrev, tCur := 1.0, x
	dPrev, dCur := 0.0, 1.0
	for i := 2; i < len(coeffs); i++ {
		tNext := 2*x*tCur - tPrev
		dNext := 2*tCur + 2*x*dCur - dPrev
		val += coeffs[i] * tNext
		deriv += coeffs[i] * dNext
		tPrev, tCur = tCur, tNext
		dPrev, dCur = dCur, dNext
	}
	return val, deriv
}

// chebyshevRecord locates the record and normalized abscissa for an
// epoch within a fixed-interval Chebyshev segment: index arithmetic,
// not search, since interval length and count are constant.
func chebyshevRecord(init, intlen float64, n int, et float64) (idx int, x, jacobian float64) {
	idx = int((et - init) / intlen)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	mid := init + (float64(idx)+0.5)*intlen
	radius := intlen / 2
	return idx, (et - mid) / radius, 1 / radius
}
