package config

import (
	"github.com/banshee-data/dyno.report/internal/dyno"
)

// PipelineParams converts the tuning config into the pipeline's parameter
// set, applying defaults for any unset fields.
func (c *TuningConfig) PipelineParams() dyno.Params {
	return dyno.Params{
		RollerCircumferenceM: c.GetRollerCircumferenceM(),
		RotationalInertia:    c.GetRotationalInertia(),
		AccelWindow:          c.GetAccelWindow(),
		StopTimeout:          c.GetStopTimeout(),
		ZeroSpeedThreshKMH:   c.GetZeroSpeedThreshKMH(),
		ZeroDuration:         c.GetZeroDuration(),
		ZeroVariationKMH:     c.GetZeroVariationKMH(),
		MaxTorqueNM:          c.GetMaxTorqueNM(),
		MaxPowerW:            c.GetMaxPowerW(),
		OutlierFactor:        c.GetOutlierFactor(),
	}
}
