package corexy

import (
	"fmt"
	"math"
)

// DeviceModel holds per-device constants: native step resolution, travel
// envelope, and carriage speed limits.
type DeviceModel struct {
	Name               string
	NativeStepsPerMm   float64
	NativeStepsPerInch float64
	TravelXMm          float64
	TravelYMm          float64
	PenTravelMm        float64
	MaxCarriageSpeed   float64 // mm/s
}

// StepsPerMm returns the effective step resolution at the given
// microstepping mode (1..5): nativeStepsPerMm / 2^(mode-1).
func (m DeviceModel) StepsPerMm(microsteppingMode int) float64 {
	return m.NativeStepsPerMm / math.Pow(2, float64(microsteppingMode-1))
}

// knownModels is the registry of supported DeviceModels, keyed by the
// config's `model` identifier.
var knownModels = map[string]DeviceModel{
	"MiniKit2": {
		Name:               "MiniKit2",
		NativeStepsPerMm:   5.0,
		NativeStepsPerInch: 127.0,
		TravelXMm:          190.5,
		TravelYMm:          228.6,
		PenTravelMm:        20.0,
		MaxCarriageSpeed:   380.0,
	},
	"AxiDrawV3": {
		Name:               "AxiDrawV3",
		NativeStepsPerMm:   5.0,
		NativeStepsPerInch: 127.0,
		TravelXMm:          300.0,
		TravelYMm:          218.0,
		PenTravelMm:        20.0,
		MaxCarriageSpeed:   380.0,
	},
}

// LookupDeviceModel returns the DeviceModel for name, or an error if name is
// unrecognised. An unknown model id is a fatal configuration error.
func LookupDeviceModel(name string) (DeviceModel, error) {
	m, ok := knownModels[name]
	if !ok {
		return DeviceModel{}, fmt.Errorf("corexy: unknown device model %q", name)
	}
	return m, nil
}

// DeviceOptions is the validated runtime configuration for one plotter.
type DeviceOptions struct {
	TimesliceMs       int
	MicrosteppingMode int
	PenUpPosition     int
	PenDownPosition   int
	PenUpSpeed        int
	PenDownSpeed      int
	PenUpDelayMs      int
	PenDownDelayMs    int
	Acceleration      float64
	MaxVelocity       float64
	CornerFactor      float64
	Model             string
}

// DefaultDeviceOptions returns the out-of-the-box option values.
func DefaultDeviceOptions() DeviceOptions {
	return DeviceOptions{
		TimesliceMs:       100,
		MicrosteppingMode: 1,
		PenUpPosition:     60,
		PenUpSpeed:        150,
		PenUpDelayMs:      0,
		PenDownPosition:   40,
		PenDownSpeed:      150,
		PenDownDelayMs:    0,
		Acceleration:      16.0,
		MaxVelocity:       4.0,
		CornerFactor:      0.001,
		Model:             "MiniKit2",
	}
}

// Validate reports out-of-range positions and negative speeds as
// configuration errors, fatal at startup.
func (o DeviceOptions) Validate() error {
	if o.MicrosteppingMode < 1 || o.MicrosteppingMode > 5 {
		return fmt.Errorf("corexy: microstepping_mode %d out of range [1,5]", o.MicrosteppingMode)
	}
	if o.PenUpPosition < 0 || o.PenUpPosition > 100 {
		return fmt.Errorf("corexy: pen_up_position %d out of range [0,100]", o.PenUpPosition)
	}
	if o.PenDownPosition < 0 || o.PenDownPosition > 100 {
		return fmt.Errorf("corexy: pen_down_position %d out of range [0,100]", o.PenDownPosition)
	}
	if o.PenUpSpeed < 0 {
		return fmt.Errorf("corexy: pen_up_speed %d must be non-negative", o.PenUpSpeed)
	}
	if o.PenDownSpeed < 0 {
		return fmt.Errorf("corexy: pen_down_speed %d must be non-negative", o.PenDownSpeed)
	}
	if _, err := LookupDeviceModel(o.Model); err != nil {
		return err
	}
	return nil
}

// ServoUpPosition maps PenUpPosition from percent [0,100] to servo counts
// [7500, 28000].
func (o DeviceOptions) ServoUpPosition() int {
	return int(math.Round(7500 + 205*float64(o.PenUpPosition)))
}

// ServoDownPosition maps PenDownPosition the same way as ServoUpPosition.
func (o DeviceOptions) ServoDownPosition() int {
	return int(math.Round(7500 + 205*float64(o.PenDownPosition)))
}
