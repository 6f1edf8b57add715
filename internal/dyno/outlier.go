package dyno

import "math"

// OutlierFilter suppresses implausible jumps in a single channel (torque or
// power). A candidate is rejected when its magnitude exceeds the configured
// full scale, or when it jumps more than factor*fullScale away from the last
// accepted value. Rejected candidates never move the reference, so a run of
// outliers cannot re-validate itself.
type OutlierFilter struct {
	fullScale float64
	factor    float64
	ref       float64
	seeded    bool
}

// NewOutlierFilter returns a filter with the given full-scale magnitude and
// allowed jump factor.
func NewOutlierFilter(fullScale, factor float64) *OutlierFilter {
	return &OutlierFilter{fullScale: fullScale, factor: factor}
}

// Apply returns the value to publish for this cycle. accepted reports
// whether the candidate itself was accepted; when false the previous
// accepted value is returned unchanged. The first finite candidate seeds
// the reference unconditionally.
func (f *OutlierFilter) Apply(candidate float64) (value float64, accepted bool) {
	// Non-finite candidates never seed or move the reference.
	if math.IsNaN(candidate) || math.IsInf(candidate, 0) {
		return f.ref, false
	}

	if !f.seeded {
		f.ref = candidate
		f.seeded = true
		return candidate, true
	}

	if math.Abs(candidate) > f.fullScale {
		return f.ref, false
	}
	if math.Abs(candidate-f.ref) > f.factor*f.fullScale {
		return f.ref, false
	}

	f.ref = candidate
	return candidate, true
}

// Reference returns the current accepted reference value.
func (f *OutlierFilter) Reference() float64 {
	return f.ref
}
