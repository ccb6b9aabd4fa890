package corexy

// Throttler computes, for a polyline sampled on a fixed time grid, the
// per-vertex maximum velocity such that a straight-line step taken every dt
// seconds stays within tau millimetres of the polyline.
//
// The bisection used in maxVelocityAt narrows a bracket for a fixed
// iteration count (16) rather than to a numeric tolerance, since the
// iteration count itself is the documented contract.
type Throttler struct {
	points []Point
	cum    []float64
	vmax   float64
	dt     float64
	tau    float64
}

// NewThrottler builds a Throttler over points, ceiling velocity vmax,
// sampling period dt (seconds) and deviation threshold tau (millimetres).
func NewThrottler(points []Point, vmax, dt, tau float64) *Throttler {
	return &Throttler{
		points: points,
		cum:    Path(points).CumulativeDistances(),
		vmax:   vmax,
		dt:     dt,
		tau:    tau,
	}
}

// MaxVelocities returns V[0..N-1], the per-vertex velocity ceiling.
func (t *Throttler) MaxVelocities() []float64 {
	v := make([]float64, len(t.points))
	for i := range t.points {
		v[i] = t.maxVelocityAt(i)
	}
	return v
}

// maxVelocityAt returns the largest feasible velocity at vertex i, found by
// bisection on [0, vmax] when the ceiling itself is infeasible.
func (t *Throttler) maxVelocityAt(i int) float64 {
	if t.isFeasible(i, t.vmax) {
		return t.vmax
	}
	lo, hi := 0.0, t.vmax
	for iter := 0; iter < 16; iter++ {
		mid := (lo + hi) / 2
		if t.isFeasible(i, mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// isFeasible reports whether stepping distance v*dt from vertex i stays
// within tau of the polyline.
func (t *Throttler) isFeasible(i int, v float64) bool {
	if i >= len(t.points)-1 {
		// Reuse the last real segment for lookup past the final vertex.
		i = len(t.points) - 2
		if i < 0 {
			return true
		}
	}
	d := v * t.dt
	x1 := t.cum[i] + d
	j := i
	for j+1 < len(t.cum) && t.cum[j+1] <= x1 {
		j++
	}
	if j == i {
		return true
	}
	if j+1 >= len(t.points) {
		j = len(t.points) - 2
	}
	pEnd := t.points[j].Lerp(t.points[j+1], x1-t.cum[j])
	for k := i + 1; k <= j; k++ {
		if t.points[k].DistanceToSegment(t.points[i], pEnd) > t.tau {
			return false
		}
	}
	return true
}
