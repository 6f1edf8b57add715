package dyno

import (
	"fmt"
	"math"
	"time"
)

// Params is the complete tuning surface of the pipeline. Values are fixed
// for a run unless replaced wholesale via Pipeline.UpdateParams.
type Params struct {
	// RollerCircumferenceM is the rolling circumference of the sensed
	// roller in metres.
	RollerCircumferenceM float64

	// RotationalInertia is J in kg·m², relating angular acceleration to
	// torque.
	RotationalInertia float64

	// AccelWindow is the trailing window for the acceleration slope.
	AccelWindow time.Duration

	// StopTimeout is how long the pipeline waits without a valid sample
	// before declaring the source stalled.
	StopTimeout time.Duration

	// Zero floor gate.
	ZeroSpeedThreshKMH float64
	ZeroDuration       time.Duration
	ZeroVariationKMH   float64

	// Outlier filter full scales and jump factor.
	MaxTorqueNM   float64
	MaxPowerW     float64
	OutlierFactor float64
}

// DefaultParams returns the stock roller assembly parameters. These match
// config/tuning.defaults.json.
func DefaultParams() Params {
	return Params{
		RollerCircumferenceM: math.Pi * 0.06, // 60mm roller
		RotationalInertia:    0.002572,
		AccelWindow:          5 * time.Second,
		StopTimeout:          time.Second,
		ZeroSpeedThreshKMH:   5.0,
		ZeroDuration:         2 * time.Second,
		ZeroVariationKMH:     0.2,
		MaxTorqueNM:          2.0,
		MaxPowerW:            50.0,
		OutlierFactor:        0.8,
	}
}

// Validate checks the parameter set is physically plausible.
func (p Params) Validate() error {
	check := func(name string, v float64, allowZero bool) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
		if v < 0 || (!allowZero && v == 0) {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
		return nil
	}

	if err := check("roller circumference", p.RollerCircumferenceM, false); err != nil {
		return err
	}
	if err := check("rotational inertia", p.RotationalInertia, false); err != nil {
		return err
	}
	if err := check("zero speed threshold", p.ZeroSpeedThreshKMH, true); err != nil {
		return err
	}
	if err := check("zero variation threshold", p.ZeroVariationKMH, true); err != nil {
		return err
	}
	if err := check("max torque", p.MaxTorqueNM, false); err != nil {
		return err
	}
	if err := check("max power", p.MaxPowerW, false); err != nil {
		return err
	}
	if err := check("outlier factor", p.OutlierFactor, false); err != nil {
		return err
	}

	if p.AccelWindow <= 0 {
		return fmt.Errorf("accel window must be positive, got %v", p.AccelWindow)
	}
	if p.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive, got %v", p.StopTimeout)
	}
	if p.ZeroDuration <= 0 {
		return fmt.Errorf("zero duration must be positive, got %v", p.ZeroDuration)
	}
	return nil
}
