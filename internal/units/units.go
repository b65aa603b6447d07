// Package units holds the unit strings attached to decoded channels and the
// display conversions used by the CLI.
package units

// Channel units, written in CF/UDUNITS form.
const (
	MetresPerSecond = "m s-1"
	Decibar         = "dbar"
	DegreesCelsius  = "degrees_Celsius"
	Degree          = "degree"
	Volt            = "V"
	Counts          = "counts"
	Percent         = "percent"
)
