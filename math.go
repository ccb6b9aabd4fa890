package corexy

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Numeric tolerances shared across the geometry, throttler and planner.
const (
	// lengthε is used for arc-length and block-duration zero tests.
	lengthε = 1e-9
	// velocityε is the tolerance for velocity comparisons (continuity,
	// bounds); no code in the package references it.
	velocityε = 1e-6
)

// equal reports whether a and b are within abs of one another.
func equal(a, b, abs float64) bool {
	return floats.EqualWithinAbs(a, b, abs)
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// sign returns -1, 0 or 1 for the sign of v using the same "treat tiny
// magnitudes as zero" convention the rest of the package applies to floats.
func sign(v float64) float64 {
	if equal(v, 0, 1e-12) {
		return 0
	}
	if v < 0 {
		return -1
	}
	return 1
}
