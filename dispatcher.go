package corexy

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"
)

// axisMap is the CoreXY sum/difference transform: physical motor rates are
// the sum and difference of the X/Y axis rates.
var axisMap = mat.NewDense(2, 2, []float64{1, 1, 1, -1})

const (
	minAxisRateStepsPerSec = 1.31
	maxAxisRateStepsPerSec = 25000
)

// Dispatcher samples a Plan on a fixed time grid, differentiates position
// into per-axis step counts with fractional-rounding carry-over, and emits
// timed stepper commands through a ProtocolEngine.
type Dispatcher struct {
	options DeviceOptions
	model   DeviceModel
	engine  *ProtocolEngine
	logger  kitlog.Logger
	trace   *Trace

	errorX, errorY float64
}

// NewDispatcher builds a Dispatcher. trace may be nil to disable recording.
func NewDispatcher(options DeviceOptions, model DeviceModel, engine *ProtocolEngine, logger kitlog.Logger, trace *Trace) *Dispatcher {
	return &Dispatcher{
		options: options,
		model:   model,
		engine:  engine,
		logger:  kitlog.With(logger, "component", "dispatcher"),
		trace:   trace,
	}
}

// deviationThreshold is the throttler's τ: half a microstep, so a
// straight-line sample never visibly deviates from the planned polyline at
// the device's own resolution.
func (d *Dispatcher) deviationThreshold() float64 {
	return 0.5 / d.model.StepsPerMm(d.options.MicrosteppingMode)
}

// Dispatch plans and dispatches an entire Drawing: pen-down before the first
// path, pen-up/connector/pen-down between disjoint paths, pen-up after the
// last. The fractional-step carry-over resets once per drawing, not between
// paths within it.
func (d *Dispatcher) Dispatch(drawing Drawing) error {
	d.errorX, d.errorY = 0, 0
	if len(drawing) == 0 {
		return nil
	}

	if err := d.penDown(); err != nil {
		return fmt.Errorf("corexy: pen down: %w", err)
	}

	for i, path := range drawing {
		if i > 0 {
			prevEnd := drawing[i-1][len(drawing[i-1])-1]
			nextStart := path[0]
			if prevEnd.Distance(nextStart) > lengthε {
				if err := d.penUp(); err != nil {
					return fmt.Errorf("corexy: pen up before connector: %w", err)
				}
				if err := d.dispatchPath(Path{prevEnd, nextStart}); err != nil {
					return fmt.Errorf("corexy: dispatching connector: %w", err)
				}
				if err := d.penDown(); err != nil {
					return fmt.Errorf("corexy: pen down after connector: %w", err)
				}
			}
		}
		if err := d.dispatchPath(path); err != nil {
			return fmt.Errorf("corexy: dispatching path %d: %w", i, err)
		}
	}

	return d.penUp()
}

// dispatchPath plans a single polyline and samples it on the dispatcher's
// fixed time grid. A degenerate (zero-time) plan emits no stepper moves.
func (d *Dispatcher) dispatchPath(path Path) error {
	if len(path) < 2 {
		return nil
	}

	dt := float64(d.options.TimesliceMs) / 1000
	plan := PlanPath(path, d.options.Acceleration, d.options.MaxVelocity, dt, d.deviationThreshold(), d.options.CornerFactor)
	if plan.TotalTime() <= lengthε {
		return nil
	}

	stepsPerMm := d.model.StepsPerMm(d.options.MicrosteppingMode)
	prev := plan.AtTime(0)
	if d.trace != nil {
		d.trace.RecordInstant(prev)
	}

	steps := int(math.Floor(plan.TotalTime()/dt + lengthε))
	for i := 1; i <= steps; i++ {
		cur := plan.AtTime(float64(i) * dt)
		if err := d.emitStep(prev, cur, d.options.TimesliceMs, stepsPerMm); err != nil {
			return err
		}
		prev = cur
	}

	remainder := plan.TotalTime() - float64(steps)*dt
	if remainder > lengthε {
		cur := plan.AtTime(plan.TotalTime())
		if err := d.emitStep(prev, cur, int(math.Round(remainder*1000)), stepsPerMm); err != nil {
			return err
		}
	}

	return nil
}

// emitStep computes the fractional-carry step counts between prev and cur
// and emits a single StepperMove.
func (d *Dispatcher) emitStep(prev, cur Instant, durationMs int, stepsPerMm float64) error {
	dx := cur.Position.X - prev.Position.X
	dy := cur.Position.Y - prev.Position.Y

	rawX := dx*stepsPerMm + d.errorX
	rawY := dy*stepsPerMm + d.errorY

	intX := math.Floor(rawX)
	intY := math.Floor(rawY)
	d.errorX = rawX - intX
	d.errorY = rawY - intY

	if d.trace != nil {
		d.trace.RecordInstant(cur)
	}

	return d.emitStepperMove(durationMs, int64(intX), int64(intY))
}

// emitStepperMove validates the resolved per-physical-motor axis rates and
// writes an `XM,dur,a,b` command through the protocol engine.
func (d *Dispatcher) emitStepperMove(durationMs int, sx, sy int64) error {
	d.checkAxisRates(sx, sy, durationMs)

	cmd := fmt.Sprintf("XM,%d,%d,%d", durationMs, sx, sy)
	reply := d.engine.Write(cmd)
	if reply.Kind != ReplySuccess {
		return fmt.Errorf("stepper move rejected: %s", reply.Reason)
	}
	return nil
}

// checkAxisRates resolves (sx, sy) into the CoreXY sum/difference axes and
// logs (but does not fail the dispatch on) any axis outside
// [1.31, 25000] steps/s.
func (d *Dispatcher) checkAxisRates(sx, sy int64, durationMs int) {
	if durationMs <= 0 {
		return
	}
	v := mat.NewVecDense(2, []float64{float64(sx), float64(sy)})
	var axes mat.VecDense
	axes.MulVec(axisMap, v)

	durS := float64(durationMs) / 1000
	for _, axis := range []float64{axes.AtVec(0), axes.AtVec(1)} {
		rate := axis / durS
		if rate != 0 && (math.Abs(rate) < minAxisRateStepsPerSec || math.Abs(rate) > maxAxisRateStepsPerSec) {
			d.logger.Log("level", "warn", "event", "axis_rate_out_of_range", "rate", rate)
		}
	}
}

// penUp emits the SetPenState command to lift the pen.
func (d *Dispatcher) penUp() error {
	return d.setPenState(1, d.options.PenUpPosition, d.options.PenDownPosition, d.options.PenUpSpeed, d.options.PenUpDelayMs)
}

// penDown emits the SetPenState command to lower the pen, symmetric with penUp.
func (d *Dispatcher) penDown() error {
	return d.setPenState(0, d.options.PenDownPosition, d.options.PenUpPosition, d.options.PenDownSpeed, d.options.PenDownDelayMs)
}

func (d *Dispatcher) setPenState(value, from, to, speed, delayMs int) error {
	var durationMs float64
	if speed > 0 {
		delta := math.Abs(float64(from - to))
		durationMs = 1000 * delta / float64(speed)
	}
	delay := math.Max(0, durationMs+float64(delayMs))

	cmd := fmt.Sprintf("SP,%d,%d", value, int(math.Round(delay)))
	reply := d.engine.Write(cmd)
	if reply.Kind != ReplySuccess {
		return fmt.Errorf("set pen state rejected: %s", reply.Reason)
	}
	return nil
}
