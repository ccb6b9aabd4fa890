package corexy

import (
	"math"
	"testing"
)

func TestPlanAtTimeClampsToRange(t *testing.T) {
	blocks := []Block{
		{A: 1, T: 2, Vi: 0, P1: Point{0, 0}, P2: Point{2, 0}},
	}
	plan := newPlan(blocks)
	before := plan.AtTime(-5)
	after := plan.AtTime(100)
	if before.T != 0 {
		t.Fatalf("expected clamp to 0, got %f", before.T)
	}
	if after.T != plan.TotalTime() {
		t.Fatalf("expected clamp to totalTime, got %f", after.T)
	}
}

func TestPlanAtTimeEvaluatesLocally(t *testing.T) {
	// Single block: a=2, vi=0, t in [0,3], covers s = 0.5*2*9 = 9.
	blocks := []Block{{A: 2, T: 3, Vi: 0, P1: Point{0, 0}, P2: Point{9, 0}}}
	plan := newPlan(blocks)
	inst := plan.AtTime(1.5)
	wantV := 2 * 1.5
	wantS := 0.5 * 2 * 1.5 * 1.5
	if math.Abs(inst.Velocity-wantV) > 1e-9 {
		t.Fatalf("velocity = %f, want %f", inst.Velocity, wantV)
	}
	if math.Abs(inst.CumulativeDistance-wantS) > 1e-9 {
		t.Fatalf("cumulative distance = %f, want %f", inst.CumulativeDistance, wantS)
	}
	if math.Abs(inst.Position.X-wantS) > 1e-9 {
		t.Fatalf("position.x = %f, want %f", inst.Position.X, wantS)
	}
}

func TestPlanAtTimeAcrossMultipleBlocks(t *testing.T) {
	blocks := []Block{
		{A: 1, T: 1, Vi: 0, P1: Point{0, 0}, P2: Point{0.5, 0}},
		{A: 0, T: 2, Vi: 1, P1: Point{0.5, 0}, P2: Point{2.5, 0}},
		{A: -1, T: 1, Vi: 1, P1: Point{2.5, 0}, P2: Point{3, 0}},
	}
	plan := newPlan(blocks)
	if math.Abs(plan.TotalTime()-4) > 1e-9 {
		t.Fatalf("totalTime = %f, want 4", plan.TotalTime())
	}
	mid := plan.AtTime(2) // 1s into the cruise block
	if math.Abs(mid.Velocity-1) > 1e-9 {
		t.Fatalf("velocity = %f, want 1", mid.Velocity)
	}
	if math.Abs(mid.Position.X-1.5) > 1e-9 {
		t.Fatalf("position.x = %f, want 1.5", mid.Position.X)
	}
}

func TestEmptyPlan(t *testing.T) {
	plan := emptyPlan()
	if plan.TotalTime() != 0 || plan.TotalDistance() != 0 {
		t.Fatal("expected empty plan to have zero time and distance")
	}
	inst := plan.AtTime(0)
	if inst.Position != (Point{}) {
		t.Fatalf("expected zero position, got %v", inst.Position)
	}
}
