// Package units provides speed unit conversion, roller geometry and the
// display rounding applied to published readings.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from km/h to the target units.
// The pipeline computes and publishes speeds in km/h.
func ConvertSpeed(speedKMH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKMH / 3.6
	case MPH:
		return speedKMH * 0.621371192237334
	case KMPH, KPH:
		return speedKMH
	default:
		return speedKMH
	}
}

// CircumferenceFromDiameterMM returns the rolling circumference in metres of
// a roller with the given diameter in millimetres.
func CircumferenceFromDiameterMM(diameterMM float64) float64 {
	return math.Pi * diameterMM / 1000.0
}

// Round rounds v to the given number of decimal places. Published readings
// use 1 decimal for RPM and power, 2 for speed and torque.
func Round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
