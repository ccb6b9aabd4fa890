package corexy

import "testing"

func TestPointDistance(t *testing.T) {
	a := Point{0, 0}
	b := Point{3, 4}
	if got := a.Distance(b); !equal(got, 5, 1e-9) {
		t.Fatalf("expected distance 5, got %f", got)
	}
}

func TestPointLerp(t *testing.T) {
	a := Point{0, 0}
	b := Point{10, 0}
	mid := a.Lerp(b, 4)
	if !equal(mid.X, 4, 1e-9) || !equal(mid.Y, 0, 1e-9) {
		t.Fatalf("expected (4,0), got %v", mid)
	}
	// Lerp may overshoot past b.
	over := a.Lerp(b, 20)
	if !equal(over.X, 20, 1e-9) {
		t.Fatalf("expected overshoot to 20, got %v", over)
	}
}

func TestDistanceToSegment(t *testing.T) {
	p := Point{5, 5}
	d := p.DistanceToSegment(Point{0, 0}, Point{10, 0})
	if !equal(d, 5, 1e-9) {
		t.Fatalf("expected perpendicular distance 5, got %f", d)
	}
	// Degenerate segment collapses to point distance.
	d2 := p.DistanceToSegment(Point{1, 1}, Point{1, 1})
	if !equal(d2, Point{1, 1}.Distance(p), 1e-9) {
		t.Fatalf("expected degenerate segment distance, got %f", d2)
	}
}

func TestPathLengthAndCumulativeDistances(t *testing.T) {
	path := Path{{0, 0}, {3, 4}, {3, 0}}
	if got := path.Length(); !equal(got, 9, 1e-9) {
		t.Fatalf("expected length 9, got %f", got)
	}
	cum := path.CumulativeDistances()
	want := []float64{0, 5, 9}
	for i, w := range want {
		if !equal(cum[i], w, 1e-9) {
			t.Fatalf("cum[%d] = %f, want %f", i, cum[i], w)
		}
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	path := Path{{0, 0}, {1, 0.01}, {2, -0.01}, {3, 0}, {10, 0}}
	once := path.Simplify(0.5)
	twice := once.Simplify(0.5)
	if len(once) != len(twice) {
		t.Fatalf("simplify not idempotent in length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("simplify not idempotent at %d: %v vs %v", i, once[i], twice[i])
		}
	}
	if once[0] != path[0] || once[len(once)-1] != path[len(path)-1] {
		t.Fatal("simplify must retain endpoints")
	}
}

func TestSimplifyKeepsWithinTolerance(t *testing.T) {
	tau := 0.5
	path := Path{{0, 0}, {1, 0.01}, {2, -0.01}, {3, 0}, {10, 0}}
	simplified := path.Simplify(tau)
	kept := make(map[Point]bool, len(simplified))
	for _, p := range simplified {
		kept[p] = true
	}
	for _, p := range path {
		if kept[p] {
			continue
		}
		// Find the bracketing retained segment and check deviation.
		var a, b Point
		for i := 0; i < len(simplified)-1; i++ {
			a, b = simplified[i], simplified[i+1]
			if p.DistanceToSegment(a, b) <= tau+1e-9 {
				break
			}
		}
		if p.DistanceToSegment(a, b) > tau+1e-9 {
			t.Fatalf("removed vertex %v deviates more than tau from retained polyline", p)
		}
	}
}
