package dyno

import "math"

// PeriodToRPM converts a revolution period in microseconds to revolutions
// per minute. ok is false for non-positive or non-finite periods, which
// carry no rotation information.
func PeriodToRPM(periodUS float64) (rpm float64, ok bool) {
	if periodUS <= 0 || math.IsNaN(periodUS) || math.IsInf(periodUS, 0) {
		return 0, false
	}
	return 60_000_000 / periodUS, true
}

// RPMToSpeedKMH converts wheel RPM to linear speed in km/h for a roller of
// the given circumference in metres.
func RPMToSpeedKMH(rpm, circumferenceM float64) float64 {
	return rpm / 60 * circumferenceM * 3.6
}

// RPMToAngularVelocity converts RPM to angular velocity in rad/s.
func RPMToAngularVelocity(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

// ComputePower returns mechanical power in watts from angular velocity in
// rad/s and torque in N·m. The sign follows the torque's sign so braking
// shows as negative power.
func ComputePower(angularVelocity, torqueNM float64) float64 {
	return angularVelocity * torqueNM
}
