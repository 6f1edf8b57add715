// Package dyno implements the signal pipeline that turns raw wheel-rotation
// timing samples into stable RPM, speed, torque and power readings.
//
// The pipeline is single-writer: one goroutine (Run) consumes ingested
// samples and a stall ticker, mutating all windowed state. Readers take
// atomic snapshots via Latest/Snapshot, and push consumers subscribe for
// published readings.
package dyno

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/dyno.report/internal/monitoring"
	"github.com/banshee-data/dyno.report/internal/timeutil"
)

const (
	// ingestBuffer absorbs bursts from the serial reader without blocking
	// it; overflow drops the sample and counts it.
	ingestBuffer = 64

	// subscriberBuffer is the per-subscriber channel depth. Slow consumers
	// miss readings rather than stall the pipeline.
	subscriberBuffer = 16

	// minStallCheckInterval bounds how often the stall ticker fires when
	// the stop timeout is very short.
	minStallCheckInterval = 50 * time.Millisecond
)

// Pipeline owns all per-sample computation and the published Reading.
type Pipeline struct {
	clock timeutil.Clock
	in    chan RawSample

	parseErrs *monitoring.RateLimiter

	mu        sync.RWMutex
	params    Params
	reading   Reading
	state     State
	lastValid time.Time
	accel     *AccelEstimator
	zero      *ZeroFloorDetector
	torque    *OutlierFilter
	power     *OutlierFilter

	subMu sync.Mutex
	subs  map[string]chan Reading
}

// NewPipeline creates a pipeline with the given parameters. A nil clock
// uses the real clock. The pipeline starts in the Stalled state with an
// all-zero Reading until the first valid sample arrives.
func NewPipeline(params Params, clock timeutil.Clock) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline params: %w", err)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	p := &Pipeline{
		clock:     clock,
		in:        make(chan RawSample, ingestBuffer),
		parseErrs: monitoring.NewRateLimiter(5 * time.Second),
		params:    params,
		state:     StateStalled,
		subs:      make(map[string]chan Reading),
	}
	p.rebuildLocked()
	metricLive.Set(0)
	return p, nil
}

// rebuildLocked recreates the window-bound stages from p.params. Windows
// restart empty and outlier references reseed on the next candidate.
// Callers must hold p.mu.
func (p *Pipeline) rebuildLocked() {
	p.accel = NewAccelEstimator(p.params.AccelWindow)
	p.zero = NewZeroFloorDetector(p.params.ZeroSpeedThreshKMH, p.params.ZeroDuration, p.params.ZeroVariationKMH)
	p.torque = NewOutlierFilter(p.params.MaxTorqueNM, p.params.OutlierFactor)
	p.power = NewOutlierFilter(p.params.MaxPowerW, p.params.OutlierFactor)
}

// Run consumes ingested samples and drives stall detection until the
// context is cancelled. Stall checks run on their own ticker because the
// absence of samples is itself the signal.
func (p *Pipeline) Run(ctx context.Context) error {
	interval := p.stallCheckInterval()
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	monitoring.Logf("pipeline running, stall check every %v", interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-p.in:
			p.process(s)
		case now := <-ticker.C():
			p.checkStall(now)
		}
	}
}

// stallCheckInterval returns a quarter of the stop timeout, floored so a
// short timeout cannot spin the ticker. Worst-case stall detection latency
// is stopTimeout plus one interval.
func (p *Pipeline) stallCheckInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	interval := p.params.StopTimeout / 4
	if interval < minStallCheckInterval {
		interval = minStallCheckInterval
	}
	return interval
}

// IngestLine parses one serial frame and ingests the resulting sample,
// stamping it with the current clock time. Malformed frames are counted
// and logged (rate limited), never fatal.
func (p *Pipeline) IngestLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s, err := ParseLine(p.clock.Now(), line)
	if err != nil {
		metricLinesMalformedTotal.Inc()
		p.parseErrs.Logf("dyno: dropping frame: %v", err)
		return
	}
	p.Ingest(s)
}

// Ingest hands a sample to the pipeline without blocking. If the buffer is
// full the sample is dropped and counted; the next sample carries newer
// information anyway.
func (p *Pipeline) Ingest(s RawSample) {
	select {
	case p.in <- s:
	default:
		metricIngestDroppedTotal.Inc()
	}
}

// process runs one full pipeline pass for a sample.
func (p *Pipeline) process(s RawSample) {
	if !s.PeriodValid {
		metricSamplesAbsentTotal.Inc()
		return
	}
	rpm, ok := PeriodToRPM(s.PeriodUS)
	if !ok {
		metricSamplesAbsentTotal.Inc()
		return
	}
	metricSamplesTotal.Inc()

	p.mu.Lock()
	if p.state == StateStalled {
		p.state = StateLive
		metricLive.Set(1)
		monitoring.Logf("pipeline live")
	}
	p.lastValid = s.Time

	speed := RPMToSpeedKMH(rpm, p.params.RollerCircumferenceM)
	omega := RPMToAngularVelocity(rpm)

	// Torque and power hold their previous published values while the
	// acceleration slope is undefined.
	torque := p.reading.TorqueNM
	power := p.reading.PowerW
	if alpha, ok := p.accel.Add(s.Time, omega); ok {
		rawTorque := p.params.RotationalInertia * alpha
		rawPower := ComputePower(omega, rawTorque)

		var accepted bool
		torque, accepted = p.torque.Apply(rawTorque)
		if !accepted {
			metricOutliersRejectedTotal.WithLabelValues("torque").Inc()
		}
		power, accepted = p.power.Apply(rawPower)
		if !accepted {
			metricOutliersRejectedTotal.WithLabelValues("power").Inc()
		}
	}

	// The zero floor observes the computed speed, not the forced one, so
	// the gate's own evidence is never masked by its effect.
	zeroed := p.zero.Observe(s.Time, speed)
	if zeroed {
		rpm, speed = 0, 0
	}

	r := Reading{Time: s.Time, RPM: rpm, SpeedKMH: speed, TorqueNM: torque, PowerW: power}
	p.reading = r
	p.mu.Unlock()

	p.publishMetrics(r, zeroed)
	p.notify(r)
}

// checkStall transitions Live to Stalled when no valid sample has arrived
// within the stop timeout. Entering Stalled publishes an all-zero Reading
// and resets both time windows; the outlier references persist.
func (p *Pipeline) checkStall(now time.Time) {
	p.mu.Lock()
	if p.state != StateLive || now.Sub(p.lastValid) <= p.params.StopTimeout {
		p.mu.Unlock()
		return
	}
	p.state = StateStalled
	p.accel.Reset()
	p.zero.Reset()
	gap := now.Sub(p.lastValid)
	r := Reading{Time: now}
	p.reading = r
	p.mu.Unlock()

	metricStallsTotal.Inc()
	metricLive.Set(0)
	monitoring.Logf("pipeline stalled: no samples for %v", gap.Round(time.Millisecond))
	p.publishMetrics(r, false)
	p.notify(r)
}

func (p *Pipeline) publishMetrics(r Reading, zeroed bool) {
	metricRPM.Set(r.RPM)
	metricSpeedKMH.Set(r.SpeedKMH)
	metricTorqueNM.Set(r.TorqueNM)
	metricPowerW.Set(r.PowerW)
	if zeroed {
		metricZeroFloorActive.Set(1)
	} else {
		metricZeroFloorActive.Set(0)
	}
}

// Latest returns the most recently published Reading. Safe to call
// concurrently with pipeline updates; repeated calls without new samples
// return identical values.
func (p *Pipeline) Latest() Reading {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reading
}

// State returns the current liveness state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Snapshot returns a consistent view of the reading plus liveness and
// zero floor state.
func (p *Pipeline) Snapshot() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Status{
		State:        p.state,
		Zeroed:       p.zero.Zeroed(),
		LastSampleAt: p.lastValid,
		Reading:      p.reading,
	}
}

// Params returns a copy of the current parameter set.
func (p *Pipeline) Params() Params {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.params
}

// UpdateParams swaps the tuning parameters at runtime. The window-bound
// stages restart empty, the published Reading is kept, and the running
// stall ticker keeps its original cadence.
func (p *Pipeline) UpdateParams(params Params) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline params: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
	p.rebuildLocked()
	monitoring.Logf("pipeline params updated")
	return nil
}

// Subscribe registers a push consumer and returns its ID and channel. The
// channel receives every published Reading; sends never block, so a slow
// consumer misses readings instead of stalling the pipeline.
func (p *Pipeline) Subscribe() (string, <-chan Reading, error) {
	idBytes := make([]byte, 8)
	if _, err := rand.Read(idBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate subscriber ID: %w", err)
	}
	id := hex.EncodeToString(idBytes)

	ch := make(chan Reading, subscriberBuffer)
	p.subMu.Lock()
	p.subs[id] = ch
	p.subMu.Unlock()
	return id, ch, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (p *Pipeline) Unsubscribe(id string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	if ch, ok := p.subs[id]; ok {
		close(ch)
		delete(p.subs, id)
	}
}

func (p *Pipeline) notify(r Reading) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- r:
		default:
		}
	}
}
