package dyno

import "time"

// slopeEpsilon is the minimum time span, in seconds, the two-point slope
// will divide by. Device timestamps carry microsecond resolution, so any
// genuine pair of distinct samples spans at least 1µs.
const slopeEpsilon = 1e-6

type kinematicSample struct {
	t     time.Time
	omega float64
}

// AccelEstimator estimates angular acceleration as the slope across a
// sliding time window of angular velocity samples. Averaging over a
// wall-clock window rather than a fixed sample count keeps the effective
// bandwidth independent of the sensor's data rate.
type AccelEstimator struct {
	window  time.Duration
	samples []kinematicSample
}

// NewAccelEstimator returns an estimator over the given trailing window.
func NewAccelEstimator(window time.Duration) *AccelEstimator {
	return &AccelEstimator{window: window}
}

// Add appends one angular velocity sample, evicts entries that have fallen
// out of the window, and returns the current slope estimate in rad/s².
// ok is false while fewer than two samples remain or the span between the
// oldest and newest sample is below slopeEpsilon.
func (e *AccelEstimator) Add(t time.Time, omega float64) (alpha float64, ok bool) {
	e.samples = append(e.samples, kinematicSample{t: t, omega: omega})

	// Evict entries strictly older than the window start; an entry exactly
	// on the boundary still participates in the slope.
	cutoff := t.Add(-e.window)
	i := 0
	for i < len(e.samples) && e.samples[i].t.Before(cutoff) {
		i++
	}
	if i > 0 {
		e.samples = append(e.samples[:0], e.samples[i:]...)
	}

	if len(e.samples) < 2 {
		return 0, false
	}

	oldest := e.samples[0]
	newest := e.samples[len(e.samples)-1]
	span := newest.t.Sub(oldest.t).Seconds()
	if span < slopeEpsilon {
		return 0, false
	}
	return (newest.omega - oldest.omega) / span, true
}

// Len returns the number of samples currently in the window.
func (e *AccelEstimator) Len() int {
	return len(e.samples)
}

// Reset discards the window. Called when the pipeline stalls, since a data
// gap invalidates any time-windowed estimate.
func (e *AccelEstimator) Reset() {
	e.samples = e.samples[:0]
}
