package units

import "strings"

// Display speed units
const (
	MPS   = "mps"
	CMPS  = "cmps"
	MMPS  = "mmps"
	KNOTS = "knots"
)

// ValidUnits contains all valid display units
var ValidUnits = []string{MPS, CMPS, MMPS, KNOTS}

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
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from metres per second to the target units.
// Channels store velocities in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case CMPS:
		return speedMPS * 100
	case MMPS:
		return speedMPS * 1000
	case KNOTS:
		return speedMPS * 3600 / 1852
	default:
		return speedMPS
	}
}

// SpeedLabel returns the unit string printed next to converted values.
func SpeedLabel(targetUnits string) string {
	switch targetUnits {
	case CMPS:
		return "cm s-1"
	case MMPS:
		return "mm s-1"
	case KNOTS:
		return "kn"
	default:
		return MetresPerSecond
	}
}
