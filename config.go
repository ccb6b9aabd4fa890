package corexy

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadDeviceOptions reads device configuration from path (a directory
// containing a `plotter.toml`/`.yaml`/`.json`, resolved by viper) overlaid
// onto DefaultDeviceOptions, and validates the result.
//
// LoadDeviceOptions is called explicitly per device rather than cached
// behind a package-level singleton, since a plotter driver may manage more
// than one configured device in the same process.
func LoadDeviceOptions(path string) (DeviceOptions, error) {
	v := viper.New()
	v.SetConfigName("plotter")
	v.AddConfigPath(path)

	opts := DefaultDeviceOptions()
	v.SetDefault("timeslice_ms", opts.TimesliceMs)
	v.SetDefault("microstepping_mode", opts.MicrosteppingMode)
	v.SetDefault("pen_up_position", opts.PenUpPosition)
	v.SetDefault("pen_up_speed", opts.PenUpSpeed)
	v.SetDefault("pen_up_delay", opts.PenUpDelayMs)
	v.SetDefault("pen_down_position", opts.PenDownPosition)
	v.SetDefault("pen_down_speed", opts.PenDownSpeed)
	v.SetDefault("pen_down_delay", opts.PenDownDelayMs)
	v.SetDefault("acceleration", opts.Acceleration)
	v.SetDefault("max_velocity", opts.MaxVelocity)
	v.SetDefault("corner_factor", opts.CornerFactor)
	v.SetDefault("model", opts.Model)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return DeviceOptions{}, fmt.Errorf("corexy: reading config at %s: %w", path, err)
		}
		// No config file present: the defaults above stand on their own.
	}

	opts = DeviceOptions{
		TimesliceMs:       v.GetInt("timeslice_ms"),
		MicrosteppingMode: v.GetInt("microstepping_mode"),
		PenUpPosition:     v.GetInt("pen_up_position"),
		PenUpSpeed:        v.GetInt("pen_up_speed"),
		PenUpDelayMs:      v.GetInt("pen_up_delay"),
		PenDownPosition:   v.GetInt("pen_down_position"),
		PenDownSpeed:      v.GetInt("pen_down_speed"),
		PenDownDelayMs:    v.GetInt("pen_down_delay"),
		Acceleration:      v.GetFloat64("acceleration"),
		MaxVelocity:       v.GetFloat64("max_velocity"),
		CornerFactor:      v.GetFloat64("corner_factor"),
		Model:             v.GetString("model"),
	}

	if err := opts.Validate(); err != nil {
		return DeviceOptions{}, err
	}
	return opts, nil
}

// MustLoadDeviceOptions is the startup-path wrapper that panics on
// misconfiguration: callers outside of bootstrap should prefer
// LoadDeviceOptions, which stays testable.
func MustLoadDeviceOptions(path string) DeviceOptions {
	opts, err := LoadDeviceOptions(path)
	if err != nil {
		panic(err)
	}
	return opts
}
