package corexy

import "math"

// Block is a constant-acceleration motion element. A block with A == 0 is a
// cruise; otherwise it is a uniformly accelerating or decelerating segment.
type Block struct {
	A      float64 // signed acceleration, mm/s^2
	T      float64 // duration, seconds, >= 0
	Vi     float64 // initial velocity, mm/s
	P1, P2 Point
}

// Length returns the arc length covered by the block.
func (b Block) Length() float64 {
	return b.Vi*b.T + 0.5*b.A*b.T*b.T
}

// velocityAt returns the instantaneous velocity at tLocal seconds into the block.
func (b Block) velocityAt(tLocal float64) float64 {
	return b.Vi + b.A*tLocal
}

// positionAt returns the point reached after tLocal seconds into the block.
func (b Block) positionAt(tLocal float64) (Point, float64) {
	tLocal = clamp(tLocal, 0, b.T)
	sLocal := clamp(b.Vi*tLocal+0.5*b.A*tLocal*tLocal, 0, b.Length())
	return b.P1.Lerp(b.P2, sLocal), sLocal
}

// Segment is a planner-internal entity: one polyline edge carrying the
// mutable entry-velocity bookkeeping the forward/backward pass threads
// through it. Segments are discarded once the Plan is produced.
type Segment struct {
	P1, P2           Point
	dir              Point
	length           float64
	maxEntryVelocity float64
	entryVelocity    float64
	blocks           []Block
}

func newSegment(p1, p2 Point) *Segment {
	length := p1.Distance(p2)
	dir := Point{0, 0}
	if length > 0 {
		dir = p2.Sub(p1).Scale(1 / length)
	}
	return &Segment{P1: p1, P2: p2, dir: dir, length: length, maxEntryVelocity: math.Inf(1)}
}

// buildSegments turns an N-point polyline into N-1 real segments plus a
// trailing zero-length sentinel used to carry the final exit-velocity
// ceiling (defaults to zero: the plotter comes to rest at the end).
func buildSegments(points []Point) []*Segment {
	n := len(points)
	segs := make([]*Segment, 0, n)
	for i := 0; i < n-1; i++ {
		segs = append(segs, newSegment(points[i], points[i+1]))
	}
	sentinel := newSegment(points[n-1], points[n-1])
	sentinel.maxEntryVelocity = 0
	segs = append(segs, sentinel)
	segs[0].maxEntryVelocity = math.Inf(1)
	segs[0].entryVelocity = 0
	return segs
}

// applyCornerVelocities implements the corner-velocity rule at every interior
// vertex, and lowers each segment's maxEntryVelocity to the throttler's
// per-vertex ceiling.
func applyCornerVelocities(segs []*Segment, throttled []float64, a, vmax, cornerFactor float64) {
	n := len(segs) - 1 // number of real segments
	for i := 1; i < n; i++ {
		s1, s2 := segs[i-1], segs[i]
		cos := -s1.dir.Dot(s2.dir)
		sinHalf := math.Sqrt(clamp((1-cos)/2, 0, 1))
		var vCorner float64
		switch {
		case equal(cos, 1, 1e-9):
			// Straight reversal: the carriage must stop.
			vCorner = 0
		case equal(sinHalf, 1, 1e-9):
			// Straight through: no derating needed.
			vCorner = vmax
		default:
			vCorner = math.Min(vmax, math.Sqrt(a*cornerFactor*sinHalf/(1-sinHalf)))
		}
		s2.maxEntryVelocity = vCorner
		s1.maxEntryVelocity = math.Min(s1.maxEntryVelocity, throttled[i])
	}
}

// planProfiles runs the forward pass with backward-propagation revisits,
// assigning each real segment its sequence of constant-acceleration Blocks.
func planProfiles(segs []*Segment, a, vmax float64) {
	n := len(segs) - 1 // number of real segments
	idx := 0
	for idx < n {
		cur := segs[idx]
		next := segs[idx+1]
		s := cur.length
		vi := cur.entryVelocity
		vexit := next.maxEntryVelocity

		if s <= lengthε {
			cur.blocks = nil
			next.entryVelocity = vi
			idx++
			continue
		}

		s1 := (2*a*s + vexit*vexit - vi*vi) / (4 * a)
		s2 := s - s1
		vpeak := math.Sqrt(math.Max(0, vi*vi+2*a*s1))

		switch {
		case s1 < -lengthε:
			// Cannot decelerate to vexit within s from vi: tighten this
			// segment's own entry ceiling and revisit the predecessor.
			ceiling := math.Sqrt(vexit*vexit + 2*a*s)
			if ceiling < cur.maxEntryVelocity {
				cur.maxEntryVelocity = ceiling
			}
			if idx > 0 {
				idx--
				continue
			}
			// No predecessor to revisit: vi is fixed by the start of the
			// drawing, so accelerate as far as physically possible instead.
			vf := math.Sqrt(vi*vi + 2*a*s)
			cur.blocks = []Block{{A: a, T: (vf - vi) / a, Vi: vi, P1: cur.P1, P2: cur.P2}}
			next.entryVelocity = math.Min(vf, next.maxEntryVelocity)
			idx++

		case s2 < 0:
			// Pure acceleration: the segment ends before reaching vpeak.
			vf := math.Sqrt(vi*vi + 2*a*s)
			cur.blocks = []Block{{A: a, T: (vf - vi) / a, Vi: vi, P1: cur.P1, P2: cur.P2}}
			next.entryVelocity = vf
			idx++

		case vpeak > vmax:
			// Trapezoid: accelerate to vmax, cruise, decelerate to vexit.
			t1 := (vmax - vi) / a
			accelS := (vmax + vi) / 2 * t1
			t3 := (vmax - vexit) / a
			decelS := (vmax + vexit) / 2 * t3
			cruiseS := s - accelS - decelS
			t2 := cruiseS / vmax
			mid1 := cur.P1.Lerp(cur.P2, accelS)
			mid2 := cur.P1.Lerp(cur.P2, accelS+cruiseS)
			cur.blocks = []Block{
				{A: a, T: t1, Vi: vi, P1: cur.P1, P2: mid1},
				{A: 0, T: t2, Vi: vmax, P1: mid1, P2: mid2},
				{A: -a, T: t3, Vi: vmax, P1: mid2, P2: cur.P2},
			}
			next.entryVelocity = vexit
			idx++

		default:
			// Triangle: accelerate to vpeak, then decelerate to vexit.
			t1 := (vpeak - vi) / a
			t2 := (vpeak - vexit) / a
			mid := cur.P1.Lerp(cur.P2, s1)
			cur.blocks = []Block{
				{A: a, T: t1, Vi: vi, P1: cur.P1, P2: mid},
				{A: -a, T: t2, Vi: vpeak, P1: mid, P2: cur.P2},
			}
			next.entryVelocity = vexit
			idx++
		}
	}
}

// PlanPath plans a single polyline into a Plan: throttle, derate corners,
// then select a constant-acceleration profile per segment.
//
// acceleration and vmax are in mm/s^2 and mm/s respectively; dt and tau feed
// the Throttler; cornerFactor derates tangential velocity through sharp
// turns.
func PlanPath(points []Point, acceleration, vmax, dt, tau, cornerFactor float64) *Plan {
	if len(points) < 2 {
		return emptyPlan()
	}
	throttled := NewThrottler(points, vmax, dt, tau).MaxVelocities()
	segs := buildSegments(points)
	applyCornerVelocities(segs, throttled, acceleration, vmax, cornerFactor)
	planProfiles(segs, acceleration, vmax)

	var blocks []Block
	for _, s := range segs[:len(segs)-1] {
		for _, b := range s.blocks {
			if b.T > lengthε {
				blocks = append(blocks, b)
			}
		}
	}
	return newPlan(blocks)
}
