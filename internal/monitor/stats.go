package monitor

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SessionStats summarises the recorded session. Computed on demand from
// whatever the ring currently holds; stalled points are excluded so gaps
// between pulls do not drag the averages down.
type SessionStats struct {
	SessionID   string    `json:"session_id"`
	Started     time.Time `json:"started"`
	Samples     int       `json:"samples"`
	MaxRPM      float64   `json:"max_rpm"`
	MaxSpeedKMH float64   `json:"max_speed_kmh"`
	MaxTorqueNM float64   `json:"max_torque_nm"`
	MaxPowerW   float64   `json:"max_power_w"`
	MeanSpeed   float64   `json:"mean_speed_kmh"`
	SpeedStdDev float64   `json:"speed_stddev_kmh"`
}

// Stats computes summary statistics for the current session.
func (h *History) Stats() SessionStats {
	points := h.Points()

	stats := SessionStats{
		SessionID: h.SessionID(),
		Started:   h.Started(),
	}

	var rpms, speeds, torques, powers []float64
	for _, p := range points {
		if p.Stalled {
			continue
		}
		rpms = append(rpms, p.Reading.RPM)
		speeds = append(speeds, p.Reading.SpeedKMH)
		torques = append(torques, p.Reading.TorqueNM)
		powers = append(powers, p.Reading.PowerW)
	}
	stats.Samples = len(speeds)
	if stats.Samples == 0 {
		return stats
	}

	stats.MaxRPM = floats.Max(rpms)
	stats.MaxSpeedKMH = floats.Max(speeds)
	stats.MaxTorqueNM = floats.Max(torques)
	stats.MaxPowerW = floats.Max(powers)
	stats.MeanSpeed = stat.Mean(speeds, nil)
	if stats.Samples > 1 {
		stats.SpeedStdDev = stat.StdDev(speeds, nil)
	}
	return stats
}
