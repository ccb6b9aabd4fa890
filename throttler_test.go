package corexy

import "testing"

func TestThrottlerBoundsAndFeasibility(t *testing.T) {
	points := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	vmax := 4.0
	th := NewThrottler(points, vmax, 0.1, 0.05)
	v := th.MaxVelocities()

	if len(v) != len(points) {
		t.Fatalf("expected %d velocities, got %d", len(points), len(v))
	}
	for i, vi := range v {
		if vi < 0 || vi > vmax+1e-9 {
			t.Fatalf("V[%d] = %f out of [0, vmax]", i, vi)
		}
		if !th.isFeasible(i, vi) {
			t.Fatalf("V[%d] = %f should be feasible", i, vi)
		}
		if vi < vmax-1e-6 {
			if th.isFeasible(i, vi+1e-3) {
				t.Fatalf("V[%d] = %f should not admit a small increase", i, vi)
			}
		}
	}
}

func TestThrottlerStraightLineHitsCeiling(t *testing.T) {
	// A straight line at a shallow sampling rate never deviates: the
	// ceiling itself should always be feasible.
	points := []Point{{0, 0}, {100, 0}}
	th := NewThrottler(points, 4.0, 0.1, 0.01)
	v := th.MaxVelocities()
	if !equal(v[0], 4.0, 1e-6) {
		t.Fatalf("expected straight line to hit vmax, got %f", v[0])
	}
}

func TestThrottlerSharpCornerIsDerated(t *testing.T) {
	// A sharp turn forces a low ceiling at the vertex before the corner: a
	// straight-line sample taken from it would otherwise cut across the
	// corner by more than tau.
	points := []Point{{0, 0}, {1, 0}, {1, 1}}
	th := NewThrottler(points, 4.0, 0.5, 0.01)
	v := th.MaxVelocities()
	if v[0] >= 4.0-1e-6 {
		t.Fatalf("expected vertex before the corner to be derated below vmax, got %f", v[0])
	}
}

func TestThrottlerLastVertexDefined(t *testing.T) {
	points := []Point{{0, 0}, {5, 0}, {5, 5}}
	th := NewThrottler(points, 4.0, 0.1, 0.01)
	v := th.MaxVelocities()
	if v[len(v)-1] < 0 || v[len(v)-1] > 4.0+1e-9 {
		t.Fatalf("V[N-1] = %f out of range", v[len(v)-1])
	}
}
