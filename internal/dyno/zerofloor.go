package dyno

import "time"

type speedSample struct {
	t     time.Time
	speed float64
}

// ZeroFloorDetector is a low-speed gate that forces published speed and RPM
// to exactly zero once readings have been low and flat for long enough.
// Entry is debounced: the gate sets only after a full zeroDuration of
// evidence. Exit is immediate: one sample above the threshold, or one
// variation violation, clears it.
type ZeroFloorDetector struct {
	thresh    float64
	duration  time.Duration
	variation float64

	samples []speedSample
	zeroed  bool
}

// NewZeroFloorDetector returns a detector with the given speed threshold in
// km/h, required evidence duration, and allowed variation in km/h.
func NewZeroFloorDetector(thresh float64, duration time.Duration, variation float64) *ZeroFloorDetector {
	return &ZeroFloorDetector{thresh: thresh, duration: duration, variation: variation}
}

// Observe feeds one computed (unforced) speed value and returns whether the
// gate is set afterwards. The window is evaluated before eviction so the
// span requirement stays reachable at any sample cadence.
func (d *ZeroFloorDetector) Observe(t time.Time, speedKMH float64) bool {
	d.samples = append(d.samples, speedSample{t: t, speed: speedKMH})

	max, min := d.samples[0].speed, d.samples[0].speed
	for _, s := range d.samples[1:] {
		if s.speed > max {
			max = s.speed
		}
		if s.speed < min {
			min = s.speed
		}
	}
	span := t.Sub(d.samples[0].t)

	switch {
	case speedKMH > d.thresh || max-min > d.variation:
		d.zeroed = false
	case span >= d.duration && max <= d.thresh:
		d.zeroed = true
	}
	// Otherwise the gate latches its previous value: conditions hold but
	// the evidence span is still building.

	// Evict entries strictly older than the window start. Eviction runs
	// after evaluation, so entries just past the boundary still counted
	// toward this cycle's span before being dropped.
	cutoff := t.Add(-d.duration)
	i := 0
	for i < len(d.samples) && d.samples[i].t.Before(cutoff) {
		i++
	}
	if i > 0 {
		d.samples = append(d.samples[:0], d.samples[i:]...)
	}

	return d.zeroed
}

// Zeroed reports whether the gate is currently set.
func (d *ZeroFloorDetector) Zeroed() bool {
	return d.zeroed
}

// Reset clears the gate and its window. Called when the pipeline stalls.
func (d *ZeroFloorDetector) Reset() {
	d.samples = d.samples[:0]
	d.zeroed = false
}
