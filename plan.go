package corexy

import "sort"

// Instant is a time-parameterised sample of a Plan.
type Instant struct {
	T                  float64
	Position           Point
	CumulativeDistance float64
	Velocity           float64
	Acceleration       float64
}

// Plan is the immutable output of the planner: a sequence of Blocks plus a
// prefix-sum index over time and distance, offering O(log n) evaluation at
// an arbitrary time via atTime.
type Plan struct {
	blocks        []Block
	prefixTime    []float64 // prefixTime[i] is the start time of blocks[i]
	prefixDist    []float64 // prefixDist[i] is the start distance of blocks[i]
	totalTime     float64
	totalDistance float64
}

func emptyPlan() *Plan {
	return &Plan{prefixTime: []float64{0}, prefixDist: []float64{0}}
}

// newPlan builds the prefix-sum index over a flattened, already-filtered
// block sequence.
func newPlan(blocks []Block) *Plan {
	p := &Plan{blocks: blocks}
	p.prefixTime = make([]float64, len(blocks)+1)
	p.prefixDist = make([]float64, len(blocks)+1)
	for i, b := range blocks {
		p.prefixTime[i+1] = p.prefixTime[i] + b.T
		p.prefixDist[i+1] = p.prefixDist[i] + b.Length()
	}
	p.totalTime = p.prefixTime[len(blocks)]
	p.totalDistance = p.prefixDist[len(blocks)]
	return p
}

// TotalTime returns the plan's total duration in seconds.
func (p *Plan) TotalTime() float64 { return p.totalTime }

// TotalDistance returns the plan's total arc length in millimetres.
func (p *Plan) TotalDistance() float64 { return p.totalDistance }

// Blocks returns the plan's underlying block sequence. Callers must not
// mutate the returned slice.
func (p *Plan) Blocks() []Block { return p.blocks }

// AtTime clamps t to [0, totalTime], locates the owning block by binary
// search over the time prefix sums, and evaluates it locally.
func (p *Plan) AtTime(t float64) Instant {
	t = clamp(t, 0, p.totalTime)
	if len(p.blocks) == 0 {
		return Instant{T: t}
	}

	// Largest i such that prefixTime[i] <= t, capped to the last block.
	i := sort.Search(len(p.prefixTime), func(i int) bool { return p.prefixTime[i] > t }) - 1
	if i < 0 {
		i = 0
	}
	if i > len(p.blocks)-1 {
		i = len(p.blocks) - 1
	}

	b := p.blocks[i]
	tLocal := clamp(t-p.prefixTime[i], 0, b.T)
	pos, sLocal := b.positionAt(tLocal)
	return Instant{
		T:                  t,
		Position:           pos,
		CumulativeDistance: p.prefixDist[i] + sLocal,
		Velocity:           b.velocityAt(tLocal),
		Acceleration:       b.A,
	}
}
