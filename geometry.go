package corexy

import "math"

// Point is a 2D coordinate in millimetres.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Norm returns the euclidean length of p treated as a vector from the origin.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// Unit returns p normalized to unit length, or the zero vector if p is
// (numerically) the zero vector.
func (p Point) Unit() Point {
	n := p.Norm()
	if equal(n, 0, 1e-12) {
		return Point{0, 0}
	}
	return Point{p.X / n, p.Y / n}
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Sqrt(p.SqDistance(q))
}

// SqDistance returns the squared euclidean distance between p and q, cheaper
// than Distance when only comparisons are needed.
func (p Point) SqDistance(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Lerp advances s millimetres along the direction from p to other and
// returns the resulting point. s may exceed p.Distance(other), in which case
// the result overshoots other along the same ray.
func (p Point) Lerp(other Point, s float64) Point {
	dir := other.Sub(p).Unit()
	return p.Add(dir.Scale(s))
}

// DistanceToSegment returns the perpendicular distance from p to the segment
// (a, b). If a and b coincide, it degenerates to the distance to a.
func (p Point) DistanceToSegment(a, b Point) float64 {
	ab := b.Sub(a)
	abLenSq := ab.Dot(ab)
	if equal(abLenSq, 0, 1e-12) {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / abLenSq
	t = clamp(t, 0, 1)
	proj := a.Add(ab.Scale(t))
	return p.Distance(proj)
}

// Path is an ordered polyline of pen-down points, in millimetres. A path
// with fewer than two points is degenerate and has zero length.
type Path []Point

// Length returns the total arc length of the path.
func (path Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].Distance(path[i])
	}
	return total
}

// CumulativeDistances returns the prefix-sum arc length at each vertex:
// D[0] == 0 and D[i] is the path length from path[0] to path[i].
func (path Path) CumulativeDistances() []float64 {
	d := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		d[i] = d[i-1] + path[i-1].Distance(path[i])
	}
	return d
}

// Simplify applies Douglas-Peucker simplification with deviation tolerance
// tau, returning the subset of vertices (always including the endpoints)
// whose omission would not deviate from the original path by more than tau.
func (path Path) Simplify(tau float64) Path {
	if len(path) < 3 {
		out := make(Path, len(path))
		copy(out, path)
		return out
	}
	keep := make([]bool, len(path))
	keep[0] = true
	keep[len(path)-1] = true
	douglasPeucker(path, 0, len(path)-1, tau, keep)
	out := make(Path, 0, len(path))
	for i, k := range keep {
		if k {
			out = append(out, path[i])
		}
	}
	return out
}

// douglasPeucker marks, in keep, every vertex between lo and hi (exclusive)
// that must be retained to stay within tau of the segment (path[lo], path[hi]).
func douglasPeucker(path Path, lo, hi int, tau float64, keep []bool) {
	if hi <= lo+1 {
		return
	}
	maxDist := -1.0
	split := -1
	for i := lo + 1; i < hi; i++ {
		d := path[i].DistanceToSegment(path[lo], path[hi])
		if d > maxDist {
			maxDist = d
			split = i
		}
	}
	if maxDist <= tau {
		return
	}
	keep[split] = true
	douglasPeucker(path, lo, split, tau, keep)
	douglasPeucker(path, split, hi, tau, keep)
}

// Drawing is an ordered collection of Paths. Paths within a drawing are not
// assumed to be connected: the caller lifts the pen between them.
type Drawing []Path
