package dyno

import "time"

// RawSample is a single timing event from the sample source.
type RawSample struct {
	// Time is the arrival timestamp assigned by the reader.
	Time time.Time

	// PeriodUS is the revolution period in microseconds. Only meaningful
	// when PeriodValid is true.
	PeriodUS float64

	// PeriodValid reports whether the source observed a revolution. A
	// frame with a non-positive period field parses to an invalid period,
	// which counts as "no revolution seen" rather than an error.
	PeriodValid bool
}

// Reading is the latest externally visible output of the pipeline. Exactly
// one current Reading exists; it is replaced atomically on each publish.
type Reading struct {
	Time     time.Time `json:"time"`
	RPM      float64   `json:"rpm"`
	SpeedKMH float64   `json:"speed_kmh"`
	TorqueNM float64   `json:"torque_nm"`
	PowerW   float64   `json:"power_w"`
}

// State is the liveness state of the pipeline.
type State string

const (
	// StateLive means samples are arriving within the stop timeout.
	StateLive State = "live"
	// StateStalled means no valid sample has been seen for longer than
	// the stop timeout. The published Reading is forced to all-zero.
	StateStalled State = "stalled"
)

// Status is a consistent snapshot of the pipeline's externally visible
// state, served by the reading API and published over MQTT.
type Status struct {
	State        State     `json:"state"`
	Zeroed       bool      `json:"zeroed"`
	LastSampleAt time.Time `json:"last_sample_at"`
	Reading      Reading   `json:"reading"`
}
